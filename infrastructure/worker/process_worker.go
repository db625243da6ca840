// Package worker runs the two background pipelines spec.md §5
// describes as "multiple parallel worker processes": ProcessWorker
// pulls uploaded photos off the default queue and fills in metadata
// and a thumbnail; ClusterWorker pulls debounced cluster jobs off the
// cluster queue and reconciles a group's meetings.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"phototimeline/domain/repositories"
	"phototimeline/infrastructure/metadata"
	infraredis "phototimeline/infrastructure/redis"
	"phototimeline/infrastructure/queue"
	"phototimeline/infrastructure/storage"
	"phototimeline/infrastructure/thumbnail"
	"phototimeline/pkg/logger"
)

const processQueueName = "default"

type processJobPayload struct {
	PhotoID string `json:"photo_id"`
}

// ProcessWorker implements component C7: it drains the default queue,
// extracts metadata, builds a thumbnail, and hands the group off to
// the debounce coordinator so clustering runs once the burst settles.
type ProcessWorker struct {
	queue      queue.Queue
	photos     repositories.PhotoRepository
	storage    *storage.Storage
	extractor  *metadata.Extractor
	thumbnails *thumbnail.Maker
	debounce   *infraredis.DebounceCoordinator

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	concurrency    int
	dequeueTimeout time.Duration
	jobTimeout     time.Duration
	maxAttempts    int
	baseRetryDelay time.Duration
}

func NewProcessWorker(
	q queue.Queue,
	photos repositories.PhotoRepository,
	store *storage.Storage,
	extractor *metadata.Extractor,
	thumbnails *thumbnail.Maker,
	debounce *infraredis.DebounceCoordinator,
	concurrency int,
	jobTimeout time.Duration,
) *ProcessWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ProcessWorker{
		queue:          q,
		photos:         photos,
		storage:        store,
		extractor:      extractor,
		thumbnails:     thumbnails,
		debounce:       debounce,
		concurrency:    concurrency,
		dequeueTimeout: 5 * time.Second,
		jobTimeout:     jobTimeout,
		maxAttempts:    3,
		baseRetryDelay: 2 * time.Second,
	}
}

func (w *ProcessWorker) Start() {
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
	logger.Process("worker_started", "process worker started", map[string]interface{}{"concurrency": w.concurrency})
}

func (w *ProcessWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	logger.Process("worker_stopped", "process worker stopped", nil)
}

func (w *ProcessWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *ProcessWorker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(w.ctx, processQueueName, w.dequeueTimeout)
		if err != nil {
			if err != queue.ErrEmpty {
				logger.ProcessError("dequeue_failed", "dequeue error on default queue", err, nil)
			}
			continue
		}

		var payload processJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			logger.ProcessError("bad_payload", "could not decode process job payload", err, nil)
			continue
		}

		photoID, err := uuid.Parse(payload.PhotoID)
		if err != nil {
			logger.ProcessError("bad_photo_id", "process job carried an invalid photo id", err, nil)
			continue
		}

		jobCtx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
		w.processWithRetry(jobCtx, photoID)
		cancel()
	}
}

// processWithRetry retries transient failures with exponential backoff
// up to maxAttempts, then records the final error on the photo row
// rather than leaving it stuck unprocessed forever (spec.md §4.2 step
// 6, §7 ErrTransientIO).
func (w *ProcessWorker) processWithRetry(ctx context.Context, photoID uuid.UUID) {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		lastErr = w.processOne(ctx, photoID)
		if lastErr == nil {
			return
		}
		logger.ProcessError("attempt_failed", "process attempt failed", lastErr, map[string]interface{}{
			"photo_id": photoID.String(), "attempt": attempt,
		})
		if attempt < w.maxAttempts {
			select {
			case <-ctx.Done():
			case <-time.After(w.baseRetryDelay << (attempt - 1)):
			}
		}
	}

	msg := lastErr.Error()
	if err := w.photos.UpdatePhotoMetadata(ctx, photoID, repositories.PhotoMetadataUpdate{ProcessingError: &msg}); err != nil {
		logger.ProcessError("mark_failed_failed", "could not record processing error on photo", err, map[string]interface{}{
			"photo_id": photoID.String(),
		})
	}
}

func (w *ProcessWorker) processOne(ctx context.Context, photoID uuid.UUID) error {
	photo, err := w.photos.GetByID(ctx, photoID)
	if err != nil {
		return fmt.Errorf("process: load photo: %w", err)
	}
	if photo.Processed {
		return nil // already handled by a previous (possibly crashed) attempt
	}

	f, err := w.storage.Open(storage.KindOriginal, photo.ContentHash, extFromPath(photo.OriginalPath))
	if err != nil {
		return fmt.Errorf("process: open original: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return fmt.Errorf("process: read original: %w", err)
	}
	data := buf.Bytes()

	meta, err := w.extractor.Extract(ctx, photo.Mime, data)
	if err != nil {
		logger.Warn(logger.CategoryMetadata, "extract_failed", "metadata extraction failed, continuing with no metadata", map[string]interface{}{
			"photo_id": photoID.String(), "error": err.Error(),
		})
		meta = metadata.Result{}
	}

	// update.ProcessingError is left nil: UpdatePhotoMetadata always
	// writes this field, so nil clears any prior failure.
	update := repositories.PhotoMetadataUpdate{}
	if meta.ShotAt != nil {
		update.ShotAt = meta.ShotAt
	}
	if meta.Lat != nil && meta.Lon != nil {
		update.GPSLat = meta.Lat
		update.GPSLon = meta.Lon
	}
	if meta.CameraMake != "" {
		update.CameraMake = &meta.CameraMake
	}
	if meta.CameraModel != "" {
		update.CameraModel = &meta.CameraModel
	}
	if meta.Width > 0 {
		update.Width = &meta.Width
	}
	if meta.Height > 0 {
		update.Height = &meta.Height
	}

	if thumb, err := w.thumbnails.Make(bytes.NewReader(data)); err != nil {
		logger.Warn(logger.CategoryThumbnail, "thumbnail_failed", "thumbnail generation failed, continuing without one", map[string]interface{}{
			"photo_id": photoID.String(), "error": err.Error(),
		})
	} else {
		thumbPath, err := w.storage.Write(storage.KindThumb, photo.ContentHash, "jpg", bytes.NewReader(thumb.Data))
		if err != nil {
			logger.Warn(logger.CategoryThumbnail, "thumbnail_store_failed", "could not store generated thumbnail", map[string]interface{}{
				"photo_id": photoID.String(), "error": err.Error(),
			})
		} else {
			update.ThumbPath = &thumbPath
		}
	}

	if err := w.photos.UpdatePhotoMetadata(ctx, photoID, update); err != nil {
		return fmt.Errorf("process: update metadata: %w", err)
	}

	if err := w.debounce.Notify(ctx, photo.GroupID.String()); err != nil {
		return fmt.Errorf("process: notify debounce: %w", err)
	}

	logger.Process("photo_processed", "photo processed", map[string]interface{}{
		"photo_id": photoID.String(), "group_id": photo.GroupID.String(), "has_shot_at": meta.ShotAt != nil,
	})
	return nil
}

func extFromPath(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return ""
}
