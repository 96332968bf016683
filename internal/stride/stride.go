// Package stride implements the stride-scheduled worker pool headlamp
// uses for bounded-concurrency file walks and test-binary discovery:
// given N items and concurrency C, min(C, N) workers each take items at
// index start, start+C, start+2C, …, preserving output order by writing
// into a pre-sized slot vector rather than appending as results land.
package stride

import (
	"context"
	"sync"
)

// Run applies fn to each item in items using min(concurrency, len(items))
// workers striding through the index space, and returns one result per
// item in the original order. The first error any worker returns aborts
// the others cooperatively (checked between items, not mid-item) and is
// the only error Run returns; results for items never reached are left at
// their zero value.
func Run[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	n := len(items)
	results := make([]R, n)

	if n == 0 {
		return results, nil
	}

	workers := concurrency
	if workers > n {
		workers = n
	}

	if workers < 1 {
		workers = 1
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for start := 0; start < workers; start++ {
		wg.Add(1)

		go func(start int) {
			defer wg.Done()

			for i := start; i < n; i += workers {
				select {
				case <-runCtx.Done():
					return
				default:
				}

				result, err := fn(runCtx, items[i])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()

					return
				}

				results[i] = result
			}
		}(start)
	}

	wg.Wait()

	return results, firstErr
}
