package aggregation

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers é o tamanho padrão do pool de chamadas concorrentes.
const DefaultWorkers = 8

// runBounded executes task(i) for i in [0, n) on at most workers goroutines
// and blocks until every started task returns. Tasks report their own
// failures; a cancelled ctx stops scheduling new tasks and is returned.
func runBounded(ctx context.Context, workers, n int, task func(ctx context.Context, i int)) error {
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			task(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	return ctx.Err()
}

// collector is an append-only, mutex-guarded accumulator shared by pool tasks.
type collector[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *collector[T]) add(v ...T) {
	c.mu.Lock()
	c.items = append(c.items, v...)
	c.mu.Unlock()
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}
