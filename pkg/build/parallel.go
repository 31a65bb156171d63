package build

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runParallel runs p on at most cfg.workers goroutines. A node starts once
// all its dependencies finished; the first failure cancels the rest.
func (b *builder) runParallel(ctx context.Context, p *plan) error {
	if len(p.order) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.workers)

	pending := make(map[*node]int, len(p.order))
	dependents := make(map[*node][]*node)
	var ready []*node
	for _, n := range p.order {
		pending[n] = len(n.deps)
		for _, dep := range n.deps {
			dependents[dep] = append(dependents[dep], n)
		}
		if len(n.deps) == 0 {
			ready = append(ready, n)
		}
	}

	// Buffered so workers never block on a busy scheduler.
	done := make(chan *node, len(p.order))

	for remaining := len(p.order); remaining > 0; {
		for _, n := range ready {
			g.Go(func() error {
				if err := b.runNode(gctx, n); err != nil {
					return err
				}
				done <- n
				return nil
			})
		}
		ready = ready[:0]

		select {
		case n := <-done:
			remaining--
			for _, d := range dependents[n] {
				pending[d]--
				if pending[d] == 0 {
					ready = append(ready, d)
				}
			}
		case <-gctx.Done():
			if err := g.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		}
	}

	return g.Wait()
}
