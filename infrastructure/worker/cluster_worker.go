package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"phototimeline/domain/repositories"
	infraredis "phototimeline/infrastructure/redis"
	"phototimeline/infrastructure/queue"
	"phototimeline/pkg/config"
	"phototimeline/pkg/logger"
)

const clusterQueueName = "cluster"

// ClusterWorker implements component C8: it drains debounced cluster
// jobs and reconciles one group's meeting partition under that
// group's advisory lock (spec.md §4.6 "On job execution", §4.8).
type ClusterWorker struct {
	queue    queue.Queue
	debounce *infraredis.DebounceCoordinator
	photos   repositories.PhotoRepository
	gap      time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	concurrency    int
	dequeueTimeout time.Duration
	jobTimeout     time.Duration
}

func NewClusterWorker(
	q queue.Queue,
	debounce *infraredis.DebounceCoordinator,
	photos repositories.PhotoRepository,
	cfg config.ClusterConfig,
) *ClusterWorker {
	concurrency := cfg.ClusterWorkerCount
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ClusterWorker{
		queue:          q,
		debounce:       debounce,
		photos:         photos,
		gap:            cfg.MeetingGap,
		concurrency:    concurrency,
		dequeueTimeout: 5 * time.Second,
		jobTimeout:     cfg.ClusterJobTimeout,
	}
}

func (w *ClusterWorker) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.loop()
	}
	logger.Cluster("worker_started", "cluster worker started", map[string]interface{}{"concurrency": w.concurrency})
}

func (w *ClusterWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	logger.Cluster("worker_stopped", "cluster worker stopped", nil)
}

func (w *ClusterWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *ClusterWorker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(w.ctx, clusterQueueName, w.dequeueTimeout)
		if err != nil {
			if err != queue.ErrEmpty {
				logger.ClusterError("dequeue_failed", "dequeue error on cluster queue", err, nil)
			}
			continue
		}

		clusterJob, err := queue.DecodeClusterJob(job.Payload)
		if err != nil {
			logger.ClusterError("bad_payload", "could not decode cluster job payload", err, nil)
			continue
		}

		jobCtx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
		w.handle(jobCtx, clusterJob)
		cancel()
	}
}

func (w *ClusterWorker) handle(ctx context.Context, job infraredis.ClusterJob) {
	proceed, err := w.debounce.ShouldReconcileNow(ctx, job)
	if err != nil {
		logger.ClusterError("debounce_check_failed", "could not evaluate debounce state", err, map[string]interface{}{
			"group_id": job.GroupID,
		})
		return
	}
	if !proceed {
		return // rescheduled; the burst is still active
	}

	groupID, err := uuid.Parse(job.GroupID)
	if err != nil {
		logger.ClusterError("bad_group_id", "cluster job carried an invalid group id", err, map[string]interface{}{
			"group_id": job.GroupID,
		})
		return
	}

	var result repositories.ReconcileResult
	err = w.photos.WithAdvisoryLock(ctx, groupID, func(ctx context.Context) error {
		var err error
		result, err = w.photos.ReconcileMeetings(ctx, groupID, w.gap)
		return err
	})
	if err != nil {
		logger.ClusterError("reconcile_failed", "meeting reconciliation failed, leaving debounce keys for retry", err, map[string]interface{}{
			"group_id": job.GroupID,
		})
		return
	}

	if err := w.debounce.Cleanup(ctx, job.GroupID); err != nil {
		logger.ClusterError("cleanup_failed", "reconciliation succeeded but debounce cleanup failed", err, map[string]interface{}{
			"group_id": job.GroupID,
		})
		return
	}

	logger.Cluster("reconciled", "group meetings reconciled", map[string]interface{}{
		"group_id": job.GroupID, "meetings_built": result.MeetingsBuilt, "photos_routed": result.PhotosRouted,
	})
}
