package queue

import (
	"context"
	"sync"
	"time"
)

type delayedEntry struct {
	job Job
	due time.Time
}

// FakeQueue is an in-memory Queue for exercising workers and the
// debounce coordinator without a running Redis.
type FakeQueue struct {
	mu      sync.Mutex
	ready   map[string][]Job
	delayed map[string][]delayedEntry
	now     func() time.Time
}

func NewFakeQueue() *FakeQueue {
	return &FakeQueue{
		ready:   make(map[string][]Job),
		delayed: make(map[string][]delayedEntry),
		now:     time.Now,
	}
}

func (f *FakeQueue) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := f.now()
	f.now = func() time.Time { return base.Add(d) }
}

func (f *FakeQueue) Enqueue(_ context.Context, queueName string, job Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready[queueName] = append(f.ready[queueName], job)
	return nil
}

func (f *FakeQueue) EnqueueDelayed(_ context.Context, queueName string, job Job, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delayed[queueName] = append(f.delayed[queueName], delayedEntry{job: job, due: f.now().Add(delay)})
	return nil
}

func (f *FakeQueue) Reschedule(_ context.Context, queueName string, job Job, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.delayed[queueName]
	for i, e := range entries {
		if e.job.ID == job.ID {
			if job.Payload != nil {
				e.job.Payload = job.Payload
			}
			e.due = f.now().Add(delay)
			entries[i] = e
			f.delayed[queueName] = entries
			return nil
		}
	}
	f.delayed[queueName] = append(entries, delayedEntry{job: job, due: f.now().Add(delay)})
	return nil
}

func (f *FakeQueue) PromoteDue(_ context.Context, queueName string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	var remaining []delayedEntry
	promoted := 0
	for _, e := range f.delayed[queueName] {
		if now.After(e.due) || now.Equal(e.due) {
			f.ready[queueName] = append(f.ready[queueName], e.job)
			promoted++
			continue
		}
		remaining = append(remaining, e)
	}
	f.delayed[queueName] = remaining
	return promoted, nil
}

func (f *FakeQueue) Depth(_ context.Context, queueName string) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.ready[queueName])), int64(len(f.delayed[queueName])), nil
}

func (f *FakeQueue) Dequeue(_ context.Context, queueName string, _ time.Duration) (Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobs := f.ready[queueName]
	if len(jobs) == 0 {
		return Job{}, ErrEmpty
	}
	job := jobs[0]
	f.ready[queueName] = jobs[1:]
	return job, nil
}
