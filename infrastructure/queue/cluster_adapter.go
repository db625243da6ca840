package queue

import (
	"context"
	"encoding/json"
	"time"

	infraredis "phototimeline/infrastructure/redis"
)

// ClusterJobAdapter satisfies infrastructure/redis.Queue by JSON
// encoding ClusterJob onto a generic Queue, so DebounceCoordinator
// never needs to know how jobs are transported.
type ClusterJobAdapter struct {
	Queue Queue
}

func (a ClusterJobAdapter) EnqueueDelayed(ctx context.Context, queueName string, job infraredis.ClusterJob, delay time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return a.Queue.EnqueueDelayed(ctx, queueName, Job{ID: job.JobID, Payload: payload}, delay)
}

func (a ClusterJobAdapter) Reschedule(ctx context.Context, queueName string, job infraredis.ClusterJob, delay time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return a.Queue.Reschedule(ctx, queueName, Job{ID: job.JobID, Payload: payload}, delay)
}

// DecodeClusterJob decodes a dequeued cluster-queue job's payload.
func DecodeClusterJob(payload []byte) (infraredis.ClusterJob, error) {
	var job infraredis.ClusterJob
	err := json.Unmarshal(payload, &job)
	return job, err
}
