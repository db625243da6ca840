// Package queue implements the delayed-job primitive the pipeline runs
// on top of Redis: an immediate list for ready work and a time-scored
// sorted set for jobs that become ready in the future (spec.md §4.6,
// §5). No off-the-shelf job-queue library in this codebase's ecosystem
// speaks both "enqueue now" and "enqueue after N seconds with a stable
// job id I can reschedule", so this is built directly on the same
// go-redis client the KV store uses.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"phototimeline/pkg/logger"
)

// ErrEmpty is returned by Dequeue when the wait timeout elapses with
// no job ready.
var ErrEmpty = errors.New("queue: no job ready")

// Job is one unit of work: an opaque id (used to reschedule a delayed
// job before it becomes ready) and a payload the caller encodes and
// decodes itself.
type Job struct {
	ID      string
	Payload []byte
}

// Queue is the surface both ProcessWorker/ClusterWorker and
// DebounceCoordinator drive. EnqueueDelayed and Reschedule are the
// same operation under the hood — a score update on the delay set —
// kept as two names because the debounce protocol's NX race is only
// correct when a fresh job always uses EnqueueDelayed and an
// already-owned job always uses Reschedule.
type Queue interface {
	// Enqueue makes a job immediately ready.
	Enqueue(ctx context.Context, queueName string, job Job) error
	// EnqueueDelayed schedules job to become ready after delay.
	EnqueueDelayed(ctx context.Context, queueName string, job Job, delay time.Duration) error
	// Reschedule moves an existing delayed job (matched by Job.ID) to
	// become ready after a fresh delay, inserting it if absent.
	Reschedule(ctx context.Context, queueName string, job Job, delay time.Duration) error
	// Dequeue blocks up to timeout for a ready job on queueName.
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (Job, error)
	// PromoteDue moves any delayed jobs whose time has come onto the
	// ready list. Callers run this on a loop; Dequeue alone never
	// promotes jobs because BRPOP only looks at the ready list.
	PromoteDue(ctx context.Context, queueName string) (int, error)
	// Depth reports the number of jobs ready to dequeue plus the number
	// still waiting on the delayed set, for the detailed health check.
	Depth(ctx context.Context, queueName string) (ready int64, delayed int64, err error)
}

type redisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) Queue {
	return &redisQueue{rdb: rdb}
}

func readyListKey(queueName string) string  { return "queue:ready:" + queueName }
func delayedSetKey(queueName string) string { return "queue:delayed:" + queueName }
func payloadKey(queueName, jobID string) string {
	return "queue:payload:" + queueName + ":" + jobID
}

func (q *redisQueue) Enqueue(ctx context.Context, queueName string, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := q.rdb.Set(ctx, payloadKey(queueName, job.ID), job.Payload, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("queue: store payload: %w", err)
	}
	return q.rdb.LPush(ctx, readyListKey(queueName), job.ID).Err()
}

func (q *redisQueue) EnqueueDelayed(ctx context.Context, queueName string, job Job, delay time.Duration) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := q.rdb.Set(ctx, payloadKey(queueName, job.ID), job.Payload, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("queue: store payload: %w", err)
	}
	due := float64(time.Now().Add(delay).UnixNano())
	return q.rdb.ZAdd(ctx, delayedSetKey(queueName), redis.Z{Score: due, Member: job.ID}).Err()
}

func (q *redisQueue) Reschedule(ctx context.Context, queueName string, job Job, delay time.Duration) error {
	if job.Payload != nil {
		if err := q.rdb.Set(ctx, payloadKey(queueName, job.ID), job.Payload, 24*time.Hour).Err(); err != nil {
			return fmt.Errorf("queue: store payload: %w", err)
		}
	}
	due := float64(time.Now().Add(delay).UnixNano())
	return q.rdb.ZAdd(ctx, delayedSetKey(queueName), redis.Z{Score: due, Member: job.ID}).Err()
}

// PromoteDue pops every delayed job whose score has elapsed and pushes
// it onto the ready list. It's safe to call concurrently from several
// worker processes: ZRangeByScore + ZRem is race-free per member
// because a second remover simply finds nothing left to remove.
func (q *redisQueue) PromoteDue(ctx context.Context, queueName string) (int, error) {
	now := float64(time.Now().UnixNano())
	ids, err := q.rdb.ZRangeByScore(ctx, delayedSetKey(queueName), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, id := range ids {
		removed, err := q.rdb.ZRem(ctx, delayedSetKey(queueName), id).Result()
		if err != nil {
			return promoted, err
		}
		if removed == 0 {
			continue // another worker already promoted this one
		}
		if err := q.rdb.LPush(ctx, readyListKey(queueName), id).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

func (q *redisQueue) Depth(ctx context.Context, queueName string) (int64, int64, error) {
	ready, err := q.rdb.LLen(ctx, readyListKey(queueName)).Result()
	if err != nil {
		return 0, 0, err
	}
	delayed, err := q.rdb.ZCard(ctx, delayedSetKey(queueName)).Result()
	if err != nil {
		return 0, 0, err
	}
	return ready, delayed, nil
}

func (q *redisQueue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, readyListKey(queueName)).Result()
	if err == redis.Nil {
		return Job{}, ErrEmpty
	}
	if err != nil {
		return Job{}, err
	}
	// res is [listKey, jobID]
	jobID := res[1]

	payload, err := q.rdb.Get(ctx, payloadKey(queueName, jobID)).Bytes()
	if err == redis.Nil {
		logger.Warn(logger.CategoryQueue, "dequeue_missing_payload", "job id popped but payload expired", map[string]interface{}{
			"queue": queueName, "job_id": jobID,
		})
		return Job{}, ErrEmpty
	}
	if err != nil {
		return Job{}, err
	}

	return Job{ID: jobID, Payload: payload}, nil
}
