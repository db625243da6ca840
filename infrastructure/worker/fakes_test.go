package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"phototimeline/domain/models"
	"phototimeline/domain/repositories"
	"phototimeline/infrastructure/queue"
)

// fakeQueue is an in-memory stand-in for queue.Queue. The worker tests
// drive processOne/handle directly rather than through loop(), so none
// of these methods is called; they exist to satisfy the interface.
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []queue.Job
}

func (f *fakeQueue) Enqueue(_ context.Context, _ string, job queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeQueue) EnqueueDelayed(context.Context, string, queue.Job, time.Duration) error {
	return nil
}

func (f *fakeQueue) Reschedule(context.Context, string, queue.Job, time.Duration) error {
	return nil
}

func (f *fakeQueue) Dequeue(context.Context, string, time.Duration) (queue.Job, error) {
	return queue.Job{}, queue.ErrEmpty
}

func (f *fakeQueue) PromoteDue(context.Context, string) (int, error) {
	return 0, nil
}

func (f *fakeQueue) Depth(context.Context, string) (int64, int64, error) {
	return 0, 0, nil
}

// fakePhotoRepository is an in-memory stand-in for postgres.PhotoRepositoryImpl.
type fakePhotoRepository struct {
	mu                sync.Mutex
	byID              map[uuid.UUID]*models.Photo
	reconcileCalls    int
	reconcileResult   repositories.ReconcileResult
	reconcileErr      error
	advisoryLockCalls int
}

func newFakePhotoRepository() *fakePhotoRepository {
	return &fakePhotoRepository{byID: make(map[uuid.UUID]*models.Photo)}
}

func (r *fakePhotoRepository) put(p *models.Photo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *p
	r.byID[copied.ID] = &copied
}

func (r *fakePhotoRepository) InsertPhotoIfAbsent(_ context.Context, photo *models.Photo) (*models.Photo, bool, error) {
	r.put(photo)
	return photo, true, nil
}

func (r *fakePhotoRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePhotoRepository) UpdatePhotoMetadata(_ context.Context, id uuid.UUID, update repositories.PhotoMetadataUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Processed = true
	if update.ThumbPath != nil {
		p.ThumbPath = *update.ThumbPath
	}
	if update.Width != nil {
		p.Width = *update.Width
	}
	if update.Height != nil {
		p.Height = *update.Height
	}
	if update.ShotAt != nil {
		p.ShotAt = update.ShotAt
	}
	if update.GPSLat != nil && update.GPSLon != nil {
		p.GPSLat = update.GPSLat
		p.GPSLon = update.GPSLon
	}
	if update.CameraMake != nil {
		p.CameraMake = *update.CameraMake
	}
	if update.CameraModel != nil {
		p.CameraModel = *update.CameraModel
	}
	p.ProcessingError = update.ProcessingError
	return nil
}

func (r *fakePhotoRepository) ListGroupPhotosOrdered(_ context.Context, groupID uuid.UUID) ([]models.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Photo
	for _, p := range r.byID {
		if p.GroupID == groupID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePhotoRepository) EnsureDefaultMeeting(_ context.Context, groupID uuid.UUID) (*models.Meeting, error) {
	return &models.Meeting{ID: uuid.New(), GroupID: groupID, Title: models.DefaultMeetingTitle}, nil
}

func (r *fakePhotoRepository) ReconcileMeetings(_ context.Context, groupID uuid.UUID, _ time.Duration) (repositories.ReconcileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconcileCalls++
	if r.reconcileErr != nil {
		return repositories.ReconcileResult{}, r.reconcileErr
	}
	result := r.reconcileResult
	result.GroupID = groupID
	return result, nil
}

func (r *fakePhotoRepository) ListStuckProcessing(_ context.Context, _ time.Duration, _ int) ([]models.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Photo
	for _, p := range r.byID {
		if !p.Processed {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePhotoRepository) CountByGroup(_ context.Context, groupID uuid.UUID) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.byID {
		if p.GroupID == groupID {
			n++
		}
	}
	return n, 0, nil
}

func (r *fakePhotoRepository) VerifyMeetingCounts(_ context.Context) ([]repositories.MeetingCountMismatch, error) {
	return nil, nil
}

func (r *fakePhotoRepository) WithAdvisoryLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.advisoryLockCalls++
	r.mu.Unlock()
	return fn(ctx)
}
