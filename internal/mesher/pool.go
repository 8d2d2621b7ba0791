package mesher

import (
	"context"
	"fmt"

	"github.com/annel0/voxel-engine/internal/vec"
	"golang.org/x/sync/errgroup"
)

// Pool строит пакеты нескольких участков параллельно. Сетка не должна
// изменяться, пока идёт BuildAll.
type Pool[T any] struct {
	workers int
	opts    BuildOptions[T]
}

// NewPool создаёт пул с ограничением workers одновременных построений
func NewPool[T any](workers int, opts BuildOptions[T]) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T]{workers: workers, opts: opts}
}

// BuildAll строит по пакету на каждый участок; порядок результата совпадает
// с порядком tiles. Отмена ctx прекращает запуск новых построений, начатые
// доводятся до конца.
func (p *Pool[T]) BuildAll(ctx context.Context, src ColumnSource[T], tiles [][]vec.Vec2) ([]*Batch[T], error) {
	batches := make([]*Batch[T], len(tiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, tile := range tiles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := Build(src, tile, p.opts)
			if err != nil {
				return fmt.Errorf("участок %d: %w", i, err)
			}
			batches[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return batches, err
	}
	if err := ctx.Err(); err != nil {
		return batches, err
	}
	return batches, nil
}
