package tool

import (
	"context"
	"sync"
)

var (
	limitsMu sync.Mutex
	limits   = make(map[string]chan struct{})
)

// acquire takes a slot of the named limit, creating it with capacity n on
// first use. The returned function releases the slot.
func acquire(ctx context.Context, name string, n int) (func(), error) {
	if n <= 0 {
		return func() {}, nil
	}

	limitsMu.Lock()
	sem, ok := limits[name]
	if !ok {
		sem = make(chan struct{}, n)
		limits[name] = sem
	}
	limitsMu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
