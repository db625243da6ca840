package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"phototimeline/pkg/config"
	"phototimeline/pkg/logger"
)

// ClusterJob is the payload carried by a scheduled cluster job.
type ClusterJob struct {
	GroupID string
	JobID   string
	Attempt int
}

// Queue is the minimal surface DebounceCoordinator needs from the job
// queue: schedule a delayed job, or move an already-scheduled job's
// due time further out.
type Queue interface {
	EnqueueDelayed(ctx context.Context, queueName string, job ClusterJob, delay time.Duration) error
	Reschedule(ctx context.Context, queueName string, job ClusterJob, delay time.Duration) error
}

// DebounceCoordinator implements the three-key NX protocol from
// spec.md §4.6 that turns a burst of uploads into exactly one cluster
// job, scheduled to run after the burst goes quiet.
type DebounceCoordinator struct {
	kv    KV
	queue Queue
	cfg   config.ClusterConfig
}

func NewDebounceCoordinator(kv KV, queue Queue, cfg config.ClusterConfig) *DebounceCoordinator {
	return &DebounceCoordinator{kv: kv, queue: queue, cfg: cfg}
}

func pendingKey(groupID string) string { return "cluster:pending:" + groupID }
func jobKey(groupID string) string     { return "cluster:job:" + groupID }
func countKey(groupID string) string   { return "cluster:count:" + groupID }

// Notify records that an upload for groupID just landed and ensures
// exactly one delayed cluster job is scheduled to reconcile it once
// the burst goes quiet (spec.md §4.6 "On upload").
func (d *DebounceCoordinator) Notify(ctx context.Context, groupID string) error {
	ttl := d.cfg.DebounceTTL

	if err := d.kv.Set(ctx, pendingKey(groupID), "1", ttl); err != nil {
		return fmt.Errorf("debounce: set pending: %w", err)
	}

	count, err := d.kv.Incr(ctx, countKey(groupID))
	if err != nil {
		return fmt.Errorf("debounce: incr count: %w", err)
	}
	if err := d.kv.Expire(ctx, countKey(groupID), ttl); err != nil {
		return fmt.Errorf("debounce: expire count: %w", err)
	}

	newJobID := uuid.NewString()
	jobTTL := d.cfg.RetryDelay + d.cfg.DebounceTTL + 10*time.Second
	won, err := d.kv.SetNX(ctx, jobKey(groupID), newJobID, jobTTL)
	if err != nil {
		return fmt.Errorf("debounce: set job nx: %w", err)
	}
	if !won {
		logger.Debounce("notify_skip", "job already scheduled for group", map[string]interface{}{
			"group_id": groupID, "burst_count": count,
		})
		return nil
	}

	job := ClusterJob{GroupID: groupID, JobID: newJobID}
	if err := d.queue.EnqueueDelayed(ctx, "cluster", job, d.cfg.RetryDelay); err != nil {
		return fmt.Errorf("debounce: enqueue delayed: %w", err)
	}
	logger.Debounce("notify_scheduled", "scheduled cluster job for group", map[string]interface{}{
		"group_id": groupID, "job_id": newJobID, "burst_count": count,
	})
	return nil
}

// ShouldReconcileNow is called by ClusterWorker on job execution
// (spec.md §4.6 "On job execution", step 1). It reports whether the
// burst has gone quiet and reconciliation should proceed, or whether
// the job was rescheduled because uploads are still arriving.
func (d *DebounceCoordinator) ShouldReconcileNow(ctx context.Context, job ClusterJob) (bool, error) {
	_, stillPending, err := d.kv.Get(ctx, pendingKey(job.GroupID))
	if err != nil {
		return false, fmt.Errorf("debounce: get pending: %w", err)
	}
	if !stillPending {
		return true, nil
	}

	if job.Attempt >= d.cfg.MaxRetries {
		logger.Debounce("retries_exhausted", "proceeding despite active burst", map[string]interface{}{
			"group_id": job.GroupID, "job_id": job.JobID, "attempt": job.Attempt,
		})
		return true, nil
	}

	next := job
	next.Attempt++
	if err := d.queue.Reschedule(ctx, "cluster", next, d.cfg.RetryDelay); err != nil {
		return false, fmt.Errorf("debounce: reschedule: %w", err)
	}
	logger.Debounce("rescheduled", "burst still in progress, deferring reconciliation", map[string]interface{}{
		"group_id": job.GroupID, "job_id": job.JobID, "attempt": next.Attempt,
	})
	return false, nil
}

// Cleanup deletes the job and count keys after a successful
// reconciliation (spec.md §4.6 step 2, §4.8 step 8). Must not be
// called when reconciliation failed: the keys' TTL is what provides
// eventual self-healing in that case.
func (d *DebounceCoordinator) Cleanup(ctx context.Context, groupID string) error {
	if err := d.kv.Del(ctx, jobKey(groupID)); err != nil {
		return err
	}
	return d.kv.Del(ctx, countKey(groupID))
}
