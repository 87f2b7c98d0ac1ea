package download

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Manager runs Fetcher.Fetch across a batch of items with bounded
// concurrency.
type Manager struct {
	fetcher Fetcher
}

// NewManager returns a Manager that fetches through fetcher.
func NewManager(fetcher Fetcher) *Manager {
	return &Manager{fetcher: fetcher}
}

// FetchAll fetches every item concurrently and returns each item's
// archive bytes keyed by Item.ID. If any fetch fails, FetchAll returns
// the first error observed once every in-flight fetch has finished;
// it does not cancel siblings early, since a fetch already streaming
// bytes into the cache should be allowed to complete and populate it
// for a future retry.
func (m *Manager) FetchAll(ctx context.Context, items []Item, opts Options) (map[string][]byte, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(2, runtime.NumCPU()/2)
	}

	results := make(map[string][]byte, len(items))
	var mu sync.Mutex
	var firstErr error

	tasks := make(chan Item)
	var wg sync.WaitGroup

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				data, err := m.fetcher.Fetch(ctx, item.Repository, item.ID, item.Version)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("fetch %s@%s: %w", item.ID, item.Version.String(), err)
					}
				} else {
					results[item.ID] = data
				}
				mu.Unlock()
			}
		}()
	}

	for _, item := range items {
		select {
		case tasks <- item:
		case <-ctx.Done():
			close(tasks)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
