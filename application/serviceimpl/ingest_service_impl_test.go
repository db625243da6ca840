package serviceimpl

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phototimeline/infrastructure/storage"
	"phototimeline/pkg/apperror"
)

func newTestService(t *testing.T) (*IngestServiceImpl, *fakePhotoRepository, *fakeQueue, *fakeDebouncer) {
	root, err := os.MkdirTemp("", "ingest-service-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })

	photos := newFakePhotoRepository()
	queue := &fakeQueue{}
	debounce := &fakeDebouncer{}
	svc := NewIngestService(storage.New(root), photos, queue, debounce).(*IngestServiceImpl)
	return svc, photos, queue, debounce
}

func TestIngestPhoto_StoresAndEnqueues(t *testing.T) {
	svc, photos, queue, debounce := newTestService(t)
	ctx := context.Background()
	groupID, uploaderID := uuid.New(), uuid.New()

	photo, created, err := svc.IngestPhoto(ctx, groupID, uploaderID, "image/jpeg", bytes.NewReader([]byte("fake jpeg bytes")))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, groupID, photo.GroupID)
	assert.False(t, photo.Processed)

	stored, err := photos.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo.ContentHash, stored.ContentHash)

	assert.Len(t, queue.enqueued, 1)
	assert.Equal(t, []string{groupID.String()}, debounce.notified)
}

func TestIngestPhoto_DuplicateContentShortCircuits(t *testing.T) {
	svc, _, queue, debounce := newTestService(t)
	ctx := context.Background()
	groupID, uploaderID := uuid.New(), uuid.New()
	data := []byte("identical bytes")

	first, created, err := svc.IngestPhoto(ctx, groupID, uploaderID, "image/png", bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.IngestPhoto(ctx, groupID, uploaderID, "image/png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// Only the first upload enqueues a process job and notifies debounce.
	assert.Len(t, queue.enqueued, 1)
	assert.Len(t, debounce.notified, 1)
}

func TestIngestPhoto_DifferentGroupsDoNotDedup(t *testing.T) {
	svc, _, queue, debounce := newTestService(t)
	ctx := context.Background()
	data := []byte("same bytes, different groups")

	_, created1, err := svc.IngestPhoto(ctx, uuid.New(), uuid.New(), "image/jpeg", bytes.NewReader(data))
	require.NoError(t, err)
	_, created2, err := svc.IngestPhoto(ctx, uuid.New(), uuid.New(), "image/jpeg", bytes.NewReader(data))
	require.NoError(t, err)

	assert.True(t, created1)
	assert.True(t, created2)
	assert.Len(t, queue.enqueued, 2)
	assert.Len(t, debounce.notified, 2)
}

func TestIngestPhoto_RejectsUnsupportedMime(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.IngestPhoto(ctx, uuid.New(), uuid.New(), "application/pdf", bytes.NewReader([]byte("not an image")))
	require.Error(t, err)
	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "mime", valErr.Field)
}

func TestIngestPhoto_RejectsEmptyUpload(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.IngestPhoto(ctx, uuid.New(), uuid.New(), "image/jpeg", bytes.NewReader(nil))
	require.Error(t, err)
	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "file", valErr.Field)
}

func TestRequeueProcessing_EnqueuesAgain(t *testing.T) {
	svc, _, queue, _ := newTestService(t)
	ctx := context.Background()

	photo, _, err := svc.IngestPhoto(ctx, uuid.New(), uuid.New(), "image/jpeg", bytes.NewReader([]byte("data")))
	require.NoError(t, err)
	require.Len(t, queue.enqueued, 1)

	require.NoError(t, svc.RequeueProcessing(ctx, photo.ID))
	assert.Len(t, queue.enqueued, 2)
}
