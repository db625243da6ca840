package serviceimpl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"phototimeline/domain/models"
	"phototimeline/domain/repositories"
	"phototimeline/domain/services"
	infraqueue "phototimeline/infrastructure/queue"
	"phototimeline/infrastructure/storage"
	"phototimeline/pkg/apperror"
	"phototimeline/pkg/logger"
)

// processQueueName is the queue ProcessWorker drains (spec.md §4.1,
// §6). Kept distinct from the "cluster" queue the debounce protocol
// schedules jobs onto.
const processQueueName = "default"

// supportedMimes is the closed set of content types this pipeline
// will store and attempt to extract metadata from. Anything else is
// a validation error at the door rather than a silent best effort.
var supportedMimes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/heic": "heic",
	"image/tiff": "tiff",
	"image/webp": "webp",
}

type processJobPayload struct {
	PhotoID string `json:"photo_id"`
}

// IngestServiceImpl wires the ingest path's four collaborators: the
// content-addressed store, the photo repository, the job queue, and
// the debounce coordinator, which it notifies directly — spec.md §4.6
// names IngestAPI as one of the two producers that invoke `notify`,
// alongside ProcessWorker.
type IngestServiceImpl struct {
	storage  *storage.Storage
	photos   repositories.PhotoRepository
	queue    infraqueue.Queue
	debounce debouncer
}

// debouncer is the narrow surface IngestServiceImpl needs from
// infrastructure/redis.DebounceCoordinator, kept as an interface so
// tests can fake it without pulling in a real Redis client.
type debouncer interface {
	Notify(ctx context.Context, groupID string) error
}

func NewIngestService(storage *storage.Storage, photos repositories.PhotoRepository, queue infraqueue.Queue, debounce debouncer) services.IngestService {
	return &IngestServiceImpl{storage: storage, photos: photos, queue: queue, debounce: debounce}
}

// IngestPhoto implements spec.md §4.1's ingest_photo operation: hash,
// store, insert-or-find, enqueue. It never blocks on metadata
// extraction or clustering.
func (s *IngestServiceImpl) IngestPhoto(ctx context.Context, groupID, uploaderID uuid.UUID, declaredMime string, data io.Reader) (*models.Photo, bool, error) {
	ext, ok := supportedMimes[declaredMime]
	if !ok {
		return nil, false, &apperror.ValidationError{Field: "mime", Reason: "unsupported content type: " + declaredMime}
	}

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, false, fmt.Errorf("ingest: read upload: %w", err)
	}
	if len(buf) == 0 {
		return nil, false, &apperror.ValidationError{Field: "file", Reason: "empty upload"}
	}

	hash := sha256.Sum256(buf)
	contentHash := hex.EncodeToString(hash[:])

	originalPath, err := s.storage.Write(storage.KindOriginal, contentHash, ext, bytes.NewReader(buf))
	if err != nil {
		return nil, false, fmt.Errorf("ingest: store original: %w", err)
	}

	photo := &models.Photo{
		ID:           uuid.New(),
		GroupID:      groupID,
		UploaderID:   uploaderID,
		ContentHash:  contentHash,
		OriginalPath: originalPath,
		Mime:         declaredMime,
		Bytes:        int64(len(buf)),
		Processed:    false,
		UploadedAt:   time.Now(),
	}

	existing, created, err := s.photos.InsertPhotoIfAbsent(ctx, photo)
	if err != nil {
		return nil, false, fmt.Errorf("ingest: insert photo: %w", err)
	}
	if !created {
		logger.Ingest("duplicate", "content hash already present in group", map[string]interface{}{
			"group_id": groupID.String(), "photo_id": existing.ID.String(),
		})
		return existing, false, nil
	}

	if err := s.enqueueProcessJob(ctx, photo.ID); err != nil {
		logger.IngestError("enqueue_failed", "photo stored but process job enqueue failed", err, map[string]interface{}{
			"photo_id": photo.ID.String(),
		})
		return photo, true, fmt.Errorf("ingest: enqueue process job: %w", err)
	}

	// spec.md §4.6 names IngestAPI as a notify producer alongside
	// ProcessWorker: the burst needs a scheduled cluster job from the
	// moment uploads start, not only once the first one finishes
	// processing. A notify failure here is non-fatal — ProcessWorker's
	// own notify call after metadata extraction still schedules one.
	if err := s.debounce.Notify(ctx, groupID.String()); err != nil {
		logger.IngestError("notify_failed", "debounce notify failed on upload", err, map[string]interface{}{
			"group_id": groupID.String(), "photo_id": photo.ID.String(),
		})
	}

	logger.Ingest("accepted", "photo stored and process job enqueued", map[string]interface{}{
		"group_id": groupID.String(), "photo_id": photo.ID.String(), "bytes": photo.Bytes,
	})
	return photo, true, nil
}

func (s *IngestServiceImpl) enqueueProcessJob(ctx context.Context, photoID uuid.UUID) error {
	payload := processJobPayload{PhotoID: photoID.String()}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, processQueueName, infraqueue.Job{ID: photoID.String(), Payload: data})
}

// GetPhoto implements the read endpoint behind IngestService.
func (s *IngestServiceImpl) GetPhoto(ctx context.Context, photoID uuid.UUID) (*models.Photo, error) {
	return s.photos.GetByID(ctx, photoID)
}

// RequeueProcessing implements the recovery sweep's half of the
// stuck-photo story: the photo row and its stored bytes are already
// there, only the process job is missing.
func (s *IngestServiceImpl) RequeueProcessing(ctx context.Context, photoID uuid.UUID) error {
	return s.enqueueProcessJob(ctx, photoID)
}
