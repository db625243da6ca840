package serviceimpl

import (
	"context"
	"sync"
)

// fakeDebouncer is an in-memory stand-in for the debouncer interface,
// recording which groups were notified without touching Redis.
type fakeDebouncer struct {
	mu       sync.Mutex
	notified []string
}

func (f *fakeDebouncer) Notify(_ context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, groupID)
	return nil
}
