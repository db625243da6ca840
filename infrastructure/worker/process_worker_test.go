package worker

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phototimeline/domain/models"
	infraredis "phototimeline/infrastructure/redis"
	"phototimeline/infrastructure/metadata"
	"phototimeline/infrastructure/storage"
	"phototimeline/infrastructure/thumbnail"
	"phototimeline/pkg/config"
)

// fakeDebounceQueue satisfies infrastructure/redis.Queue, the narrower
// surface DebounceCoordinator needs, independent of infrastructure/queue.Queue.
type fakeDebounceQueue struct{}

func (fakeDebounceQueue) EnqueueDelayed(context.Context, string, infraredis.ClusterJob, time.Duration) error {
	return nil
}

func (fakeDebounceQueue) Reschedule(context.Context, string, infraredis.ClusterJob, time.Duration) error {
	return nil
}

func newTestProcessWorker(t *testing.T) (*ProcessWorker, *fakePhotoRepository, *storage.Storage) {
	root, err := os.MkdirTemp("", "process-worker-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })

	store := storage.New(root)
	photos := newFakePhotoRepository()
	kv := infraredis.NewFakeKV()
	debounce := infraredis.NewDebounceCoordinator(kv, fakeDebounceQueue{}, config.ClusterConfig{
		DebounceTTL: 5 * time.Second,
		RetryDelay:  3 * time.Second,
		MaxRetries:  2,
	})

	w := NewProcessWorker(&fakeQueue{}, photos, store, metadata.New(), thumbnail.New(512), debounce, 1, 30*time.Second)
	return w, photos, store
}

func newUnprocessedPhoto(groupID uuid.UUID, hash, originalPath string) *models.Photo {
	return &models.Photo{
		ID:           uuid.New(),
		GroupID:      groupID,
		UploaderID:   uuid.New(),
		ContentHash:  hash,
		OriginalPath: originalPath,
		Mime:         "image/jpeg",
		Bytes:        64,
		UploadedAt:   time.Now(),
	}
}

func TestProcessOne_MarksProcessedEvenWithoutExtractableMetadata(t *testing.T) {
	w, photos, store := newTestProcessWorker(t)
	ctx := context.Background()

	data := []byte("not a real jpeg, just bytes for the pipeline to move through")
	hash := "deadbeefcafebabe00112233445566778899aabbccddeeff0011223344556677"
	path, err := store.Write(storage.KindOriginal, hash, "jpg", bytes.NewReader(data))
	require.NoError(t, err)

	photo := newUnprocessedPhoto(uuid.New(), hash, path)
	photos.put(photo)

	require.NoError(t, w.processOne(ctx, photo.ID))

	stored, err := photos.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.True(t, stored.Processed)
	assert.Nil(t, stored.ProcessingError)
}

func TestProcessOne_AlreadyProcessedIsANoOp(t *testing.T) {
	w, photos, _ := newTestProcessWorker(t)
	ctx := context.Background()

	photo := newUnprocessedPhoto(uuid.New(), "irrelevant", "irrelevant")
	photo.Processed = true
	photos.put(photo)

	assert.NoError(t, w.processOne(ctx, photo.ID))
}

func TestProcessOne_MissingOriginalIsAnError(t *testing.T) {
	w, photos, _ := newTestProcessWorker(t)
	ctx := context.Background()

	photo := newUnprocessedPhoto(uuid.New(), "nonexistent-hash-00", "/does/not/exist.jpg")
	photos.put(photo)

	assert.Error(t, w.processOne(ctx, photo.ID))
}

func TestProcessWithRetry_SurvivesRepeatedFailureWithoutPanicking(t *testing.T) {
	w, photos, _ := newTestProcessWorker(t)
	w.baseRetryDelay = time.Millisecond
	ctx := context.Background()

	missingID := uuid.New() // GetByID fails on every attempt; UpdatePhotoMetadata also fails

	w.processWithRetry(ctx, missingID)

	_, err := photos.GetByID(ctx, missingID)
	assert.Error(t, err)
}
