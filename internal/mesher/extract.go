package mesher

import (
	"slices"

	"github.com/annel0/voxel-engine/internal/rle"
	"github.com/annel0/voxel-engine/internal/vec"
)

// ColumnSource - то, что нужно извлечению от сетки: чтение колонок без
// их создания. Любая rle.Grid подходит.
type ColumnSource[T any] interface {
	Lookup(x, y int) *rle.Column[T]
}

// ExtractQuads находит все открытые грани колонок footprint.
//
// Верх и низ берутся проходом по сериям колонки. Боковые грани - слиянием
// списков серий колонки и соседа: на каждом участке, где колонка заполнена,
// а сосед пуст, выдаётся по одной грани на каждый слой z участка (слои
// между собой не объединяются). Область ниже первой границы обеих колонок
// не обходится: она бесконечна.
//
// Отсутствующая колонка считается пустой. Сетка во время вызова не должна
// изменяться.
func ExtractQuads[T any](src ColumnSource[T], footprint []vec.Vec2) Faces[T] {
	var faces Faces[T]
	for _, p := range footprint {
		runs := columnRuns(src, p.X, p.Y)
		if len(runs) == 0 {
			continue
		}
		for _, dir := range sideDirections {
			o := dir.Offset()
			neighbour := columnRuns(src, p.X+o.X, p.Y+o.Y)
			faces[dir] = appendSideFaces(faces[dir], p, runs, neighbour)
		}
		faces[NegZ], faces[PosZ] = appendVerticalFaces(faces[NegZ], faces[PosZ], p, runs)
	}
	return faces
}

func columnRuns[T any](src ColumnSource[T], x, y int) []rle.Run[T] {
	c := src.Lookup(x, y)
	if c == nil {
		return nil
	}
	return slices.Collect(c.Runs())
}

// appendVerticalFaces: заполненная серия под пустой даёт верхнюю грань на
// своей границе, пустая под заполненной - нижнюю грань у следующей ячейки.
// Выше последней границы колонка пуста.
func appendVerticalFaces[T any](bottom, top []Quad[T], p vec.Vec2, runs []rle.Run[T]) ([]Quad[T], []Quad[T]) {
	for i := 0; i+1 < len(runs); i++ {
		cur, next := runs[i], runs[i+1]
		switch {
		case cur.Present && !next.Present:
			top = append(top, Quad[T]{X: p.X, Y: p.Y, Z: int(cur.Boundary), Value: cur.Value})
		case !cur.Present && next.Present:
			bottom = append(bottom, Quad[T]{X: p.X, Y: p.Y, Z: int(cur.Boundary) + 1, Value: next.Value})
		}
	}
	if last := runs[len(runs)-1]; last.Present {
		top = append(top, Quad[T]{X: p.X, Y: p.Y, Z: int(last.Boundary), Value: last.Value})
	}
	return bottom, top
}

// appendSideFaces сливает два отсортированных списка серий. pos - нижний
// край текущего участка (не включая); участок заканчивается ближайшей из
// текущих границ обеих колонок.
func appendSideFaces[T any](quads []Quad[T], p vec.Vec2, own, other []rle.Run[T]) []Quad[T] {
	i, j := 0, 0
	pos := own[0].Boundary
	if len(other) > 0 && other[0].Boundary < pos {
		pos = other[0].Boundary
	}

	emit := func(lo, hi int32) {
		r := own[i]
		if !r.Present || (j < len(other) && other[j].Present) {
			return
		}
		for z := lo; z < hi; z++ {
			quads = append(quads, Quad[T]{X: p.X, Y: p.Y, Z: int(z) + 1, Value: r.Value})
		}
	}
	next := func() int32 {
		n := own[i].Boundary
		if j < len(other) && other[j].Boundary < n {
			n = other[j].Boundary
		}
		return n
	}

	for {
		switch {
		case j < len(other) && other[j].Boundary < own[i].Boundary:
			j++
		case i+1 < len(own):
			i++
		default:
			return quads
		}
		n := next()
		emit(pos, n)
		pos = n
	}
}
