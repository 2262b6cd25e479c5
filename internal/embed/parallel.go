package embed

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParallelRows executes fn over [0, n) split into contiguous chunks.
// With workers <= 1, or when n is too small to be worth splitting, fn runs
// once on the calling goroutine.
func ParallelRows(n, workers, minChunk int, fn func(start, end int)) {
	if minChunk < 1 {
		minChunk = 1
	}
	if workers <= 1 || n <= minChunk {
		fn(0, n)
		return
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	g, _ := errgroup.WithContext(context.Background())
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, e := start, end
		g.Go(func() error {
			fn(s, e)
			return nil
		})
	}
	// fn has no error path; Wait only joins the workers.
	_ = g.Wait()
}
