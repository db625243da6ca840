package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"phototimeline/domain/models"
)

// PhotoMetadataUpdate is the set of fields the process worker is allowed
// to write back onto a photo. Fields left nil are not touched.
type PhotoMetadataUpdate struct {
	ThumbPath       *string
	Width           *int
	Height          *int
	ShotAt          *time.Time
	GPSLat          *float64
	GPSLon          *float64
	CameraMake      *string
	CameraModel     *string
	ProcessingError *string
}

// ReconcileResult summarizes one run of the clustering reconciliation for
// a group, for logging.
type ReconcileResult struct {
	GroupID       uuid.UUID
	MeetingsBuilt int
	PhotosRouted  int
}

// MeetingCountMismatch is one meeting whose stored photo_count disagrees
// with the number of photo rows actually pointing at it.
type MeetingCountMismatch struct {
	GroupID     uuid.UUID
	MeetingID   uuid.UUID
	StoredCount int
	ActualCount int
}

// PhotoRepository is the single persistence boundary for the ingest
// pipeline (spec.md §4.4). Every write that touches more than one row —
// InsertPhotoIfAbsent's duplicate check and ReconcileMeetings's rebuild —
// runs inside its own transaction.
type PhotoRepository interface {
	// InsertPhotoIfAbsent inserts a new photo row. If a photo with the
	// same (group_id, content_hash) already exists, it returns that row
	// and created=false instead of inserting (spec.md §4.3 dedup rule).
	InsertPhotoIfAbsent(ctx context.Context, photo *models.Photo) (existing *models.Photo, created bool, err error)

	// GetByID loads a single photo by primary key.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)

	// UpdatePhotoMetadata writes the process worker's extraction result
	// onto a photo and marks it processed, in one statement.
	UpdatePhotoMetadata(ctx context.Context, id uuid.UUID, update PhotoMetadataUpdate) error

	// ListGroupPhotosOrdered returns every photo in a group ordered by
	// shot_at (nulls last), the exact input ClusterEngine needs.
	ListGroupPhotosOrdered(ctx context.Context, groupID uuid.UUID) ([]models.Photo, error)

	// EnsureDefaultMeeting returns the group's catch-all meeting for
	// shot_at-less photos, creating it if it does not exist yet.
	EnsureDefaultMeeting(ctx context.Context, groupID uuid.UUID) (*models.Meeting, error)

	// ReconcileMeetings rebuilds a group's meeting partition from its
	// current photo set (spec.md §4.8). Must be called with the group's
	// advisory lock held for the whole operation.
	ReconcileMeetings(ctx context.Context, groupID uuid.UUID, gap time.Duration) (ReconcileResult, error)

	// ListStuckProcessing returns photos that have sat unprocessed longer
	// than threshold, for the recovery sweep to re-enqueue.
	ListStuckProcessing(ctx context.Context, threshold time.Duration, limit int) ([]models.Photo, error)

	// CountByGroup reports how many photos and how many distinct
	// meetings exist for a group.
	CountByGroup(ctx context.Context, groupID uuid.UUID) (photos int64, meetings int64, err error)

	// VerifyMeetingCounts checks invariant 4 (meeting.photo_count equals
	// the number of photos actually pointing at that meeting) across
	// every meeting in the system, without repairing anything. A
	// non-empty result means ReconcileMeetings needs to run again for
	// the affected groups; surfaced by the detailed health check.
	VerifyMeetingCounts(ctx context.Context) ([]MeetingCountMismatch, error)

	// WithAdvisoryLock runs fn with a Postgres transaction-level advisory
	// lock held on groupID for its entire duration, so two
	// concurrent cluster workers for the same group never interleave
	// (spec.md §4.4, §5).
	WithAdvisoryLock(ctx context.Context, groupID uuid.UUID, fn func(ctx context.Context) error) error
}
