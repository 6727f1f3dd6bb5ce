package library

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut runs fn for every item with at most limit calls in flight and
// waits for all of them. Results are returned in completion order.
func fanOut[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) R) []R {
	results := make(chan R, len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for _, item := range items {
		g.Go(func() error {
			results <- fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	out := make([]R, 0, len(items))
	for r := range results {
		out = append(out, r)
	}
	return out
}
