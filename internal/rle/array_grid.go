package rle

import "iter"

// ArrayGrid - плотная сетка size x size с колонками, созданными заранее.
// Координаты вне [0, size) не имеют колонок.
type ArrayGrid[T any] struct {
	base[T]
	size    int
	columns []*Column[T]
}

// NewArrayGrid создаёт плотную сетку со стороной size
func NewArrayGrid[T any](size int, codec Codec[T]) *ArrayGrid[T] {
	g := &ArrayGrid[T]{
		size:    size,
		columns: make([]*Column[T], size*size),
	}
	for i := range g.columns {
		g.columns[i] = NewColumn(i/size, i%size, codec)
	}
	g.base = base[T]{cols: g, codec: codec, dirty: true}
	return g
}

// Size возвращает сторону сетки
func (g *ArrayGrid[T]) Size() int { return g.size }

func (g *ArrayGrid[T]) ColumnAt(x, y int) *Column[T] {
	if x < 0 || x >= g.size || y < 0 || y >= g.size {
		return nil
	}
	return g.columns[g.size*x+y]
}

func (g *ArrayGrid[T]) Lookup(x, y int) *Column[T] {
	return g.ColumnAt(x, y)
}

func (g *ArrayGrid[T]) Columns() iter.Seq[*Column[T]] {
	return func(yield func(*Column[T]) bool) {
		for _, c := range g.columns {
			if !yield(c) {
				return
			}
		}
	}
}
