package services

import (
	"context"
	"io"

	"github.com/google/uuid"

	"phototimeline/domain/models"
)

// IngestService is component C9: the thin synchronous boundary
// between the HTTP handler and the rest of the pipeline (spec.md §4,
// data flow diagram). It never blocks on processing or clustering.
type IngestService interface {
	// IngestPhoto stores data content-addressed, inserts (or finds an
	// existing) photo row, and enqueues a process job. The returned
	// bool reports whether this call actually created a new row.
	IngestPhoto(ctx context.Context, groupID, uploaderID uuid.UUID, declaredMime string, data io.Reader) (*models.Photo, bool, error)

	// GetPhoto returns a photo's current state for the read endpoint.
	GetPhoto(ctx context.Context, photoID uuid.UUID) (*models.Photo, error)

	// RequeueProcessing re-enqueues a process job for a photo that is
	// already stored. Used by the stuck-photo recovery sweep to
	// recover from a worker dying mid-job.
	RequeueProcessing(ctx context.Context, photoID uuid.UUID) error
}
