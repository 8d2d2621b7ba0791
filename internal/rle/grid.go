package rle

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// ErrOutOfBounds - запись в колонку за пределами плотной сетки
var ErrOutOfBounds = errors.New("координаты вне сетки")

// ErrOffsetOverflow - сдвиг по z выводит границы серий за пределы int32
var ErrOffsetOverflow = errors.New("сдвиг по z выходит за int32")

// Grid - отображение (x, y) в колонки с кэшем вертикальных границ.
// Изменяющие методы помечают кэш устаревшим; MinZ/MaxZ пересчитывают его
// по всем непустым колонкам только при необходимости.
type Grid[T any] interface {
	// ColumnAt возвращает колонку, создавая её при необходимости.
	// nil означает, что колонки по этим координатам нет и быть не может.
	ColumnAt(x, y int) *Column[T]
	// Lookup возвращает колонку без создания; nil - колонки нет.
	Lookup(x, y int) *Column[T]
	// Columns перечисляет все существующие колонки
	Columns() iter.Seq[*Column[T]]
	Codec() Codec[T]

	Get(x, y int, z int32) (T, bool)
	Set(x, y int, z int32, v T) error
	Erase(x, y int, z int32) error
	SetRange(x, y int, zMin, zMax int32, v T) error
	EraseRange(x, y int, zMin, zMax int32) error
	SetRangeInfinite(x, y int, zMax int32, v T) error
	RangeEquals(x, y int, zMin, zMax int32, v T) bool

	MinZ() (int32, bool)
	MaxZ() (int32, bool)
	// Invalidate помечает кэш границ устаревшим. Нужен после изменения
	// колонки напрямую, в обход методов сетки.
	Invalidate()
}

// columnSet - способ адресации колонок конкретной сетки
type columnSet[T any] interface {
	ColumnAt(x, y int) *Column[T]
	Lookup(x, y int) *Column[T]
	Columns() iter.Seq[*Column[T]]
}

// base реализует общую часть Grid поверх columnSet
type base[T any] struct {
	cols  columnSet[T]
	codec Codec[T]

	dirty      bool
	minZ, maxZ int32
	hasBounds  bool
}

func (g *base[T]) Codec() Codec[T] { return g.codec }

func (g *base[T]) Invalidate() { g.dirty = true }

func (g *base[T]) column(x, y int) (*Column[T], error) {
	c := g.cols.ColumnAt(x, y)
	if c == nil {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	return c, nil
}

// Get возвращает значение ячейки; отсутствующая колонка пуста
func (g *base[T]) Get(x, y int, z int32) (T, bool) {
	c := g.cols.Lookup(x, y)
	if c == nil {
		var zero T
		return zero, false
	}
	return c.Get(z)
}

func (g *base[T]) Set(x, y int, z int32, v T) error {
	c, err := g.column(x, y)
	if err != nil {
		return err
	}
	g.dirty = true
	return c.Set(z, v)
}

func (g *base[T]) Erase(x, y int, z int32) error {
	c, err := g.column(x, y)
	if err != nil {
		return err
	}
	g.dirty = true
	c.Erase(z)
	return nil
}

func (g *base[T]) SetRange(x, y int, zMin, zMax int32, v T) error {
	c, err := g.column(x, y)
	if err != nil {
		return err
	}
	g.dirty = true
	return c.SetRange(zMin, zMax, v)
}

func (g *base[T]) EraseRange(x, y int, zMin, zMax int32) error {
	c, err := g.column(x, y)
	if err != nil {
		return err
	}
	g.dirty = true
	return c.EraseRange(zMin, zMax)
}

func (g *base[T]) SetRangeInfinite(x, y int, zMax int32, v T) error {
	c, err := g.column(x, y)
	if err != nil {
		return err
	}
	g.dirty = true
	return c.SetRangeInfinite(zMax, v)
}

func (g *base[T]) RangeEquals(x, y int, zMin, zMax int32, v T) bool {
	c := g.cols.Lookup(x, y)
	if c == nil {
		return false
	}
	return c.RangeEquals(zMin, zMax, v)
}

// MinZ возвращает наименьшую границу среди непустых колонок
func (g *base[T]) MinZ() (int32, bool) {
	g.recompute()
	return g.minZ, g.hasBounds
}

// MaxZ возвращает наибольшую границу среди непустых колонок
func (g *base[T]) MaxZ() (int32, bool) {
	g.recompute()
	return g.maxZ, g.hasBounds
}

func (g *base[T]) recompute() {
	if !g.dirty {
		return
	}
	g.hasBounds = false
	for c := range g.cols.Columns() {
		lo, err := c.MinBoundary()
		if err != nil {
			continue
		}
		hi, _ := c.MaxBoundary()
		if !g.hasBounds || lo < g.minZ {
			g.minZ = lo
		}
		if !g.hasBounds || hi > g.maxZ {
			g.maxZ = hi
		}
		g.hasBounds = true
	}
	g.dirty = false
}

// CopyTo переносит все непустые колонки src в dst со сдвигом (dx, dy, dz).
// Первая серия каждой колонки уходит в минус бесконечность и копируется
// через SetRangeInfinite; остальные - диапазонами от предыдущей границы.
// Колонки, которых в dst быть не может, пропускаются.
// Если хотя бы одна граница после сдвига не помещается в int32, возвращается
// ErrOffsetOverflow и dst не меняется.
func CopyTo[T any](src, dst Grid[T], dx, dy, dz int) error {
	if err := checkShift(src, dz); err != nil {
		return err
	}
	for c := range src.Columns() {
		if c.IsEmpty() {
			continue
		}
		x, y := c.X()+dx, c.Y()+dy
		if dst.ColumnAt(x, y) == nil {
			continue
		}
		first := true
		var prev int32
		for r := range c.Runs() {
			b := r.Boundary + int32(dz)
			var err error
			switch {
			case first && r.Present:
				err = dst.SetRangeInfinite(x, y, b, r.Value)
			case first:
				// пустая первая серия ничего не добавляет
			case r.Present:
				err = dst.SetRange(x, y, prev+1, b, r.Value)
			default:
				err = dst.EraseRange(x, y, prev+1, b)
			}
			if err != nil {
				return fmt.Errorf("копирование колонки (%d,%d): %w", c.X(), c.Y(), err)
			}
			first = false
			prev = b
		}
	}
	return nil
}

func checkShift[T any](src Grid[T], dz int) error {
	if dz < math.MinInt32 || dz > math.MaxInt32 {
		return fmt.Errorf("dz=%d: %w", dz, ErrOffsetOverflow)
	}
	for c := range src.Columns() {
		if c.IsEmpty() {
			continue
		}
		lo, _ := c.MinBoundary()
		hi, _ := c.MaxBoundary()
		if int64(lo)+int64(dz) < math.MinInt32 || int64(hi)+int64(dz) > math.MaxInt32 {
			return fmt.Errorf("колонка (%d,%d), dz=%d: %w", c.X(), c.Y(), dz, ErrOffsetOverflow)
		}
	}
	return nil
}
