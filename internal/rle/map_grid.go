package rle

import (
	"iter"

	"github.com/annel0/voxel-engine/internal/vec"
)

// MapGrid - разреженная неограниченная сетка. Колонка создаётся при первом
// обращении через ColumnAt и больше не удаляется; одни и те же координаты
// всегда дают один и тот же экземпляр.
type MapGrid[T any] struct {
	base[T]
	columns map[vec.Vec2]*Column[T]
}

// NewMapGrid создаёт пустую разреженную сетку
func NewMapGrid[T any](codec Codec[T]) *MapGrid[T] {
	g := &MapGrid[T]{columns: make(map[vec.Vec2]*Column[T])}
	g.base = base[T]{cols: g, codec: codec, dirty: true}
	return g
}

func (g *MapGrid[T]) ColumnAt(x, y int) *Column[T] {
	key := vec.Vec2{X: x, Y: y}
	c, ok := g.columns[key]
	if !ok {
		c = NewColumn(x, y, g.codec)
		g.columns[key] = c
	}
	return c
}

func (g *MapGrid[T]) Lookup(x, y int) *Column[T] {
	return g.columns[vec.Vec2{X: x, Y: y}]
}

// Len возвращает число созданных колонок
func (g *MapGrid[T]) Len() int { return len(g.columns) }

func (g *MapGrid[T]) Columns() iter.Seq[*Column[T]] {
	return func(yield func(*Column[T]) bool) {
		for _, c := range g.columns {
			if !yield(c) {
				return
			}
		}
	}
}
