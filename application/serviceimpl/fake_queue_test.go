package serviceimpl

import (
	"context"
	"sync"
	"time"

	infraqueue "phototimeline/infrastructure/queue"
)

// fakeQueue is an in-memory stand-in for infraqueue.Queue's Enqueue
// surface; IngestServiceImpl never calls the delayed-job methods.
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []infraqueue.Job
}

func (f *fakeQueue) Enqueue(_ context.Context, _ string, job infraqueue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeQueue) EnqueueDelayed(context.Context, string, infraqueue.Job, time.Duration) error {
	return nil
}

func (f *fakeQueue) Reschedule(context.Context, string, infraqueue.Job, time.Duration) error {
	return nil
}

func (f *fakeQueue) Dequeue(context.Context, string, time.Duration) (infraqueue.Job, error) {
	return infraqueue.Job{}, infraqueue.ErrEmpty
}

func (f *fakeQueue) PromoteDue(context.Context, string) (int, error) {
	return 0, nil
}

func (f *fakeQueue) Depth(context.Context, string) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.enqueued)), 0, nil
}
