package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMeetingTitle is the sentinel title for the per-group catch-all
// meeting that owns photos lacking a shot_at (invariant 2). The cluster
// worker must never assign this literal to any other meeting.
const DefaultMeetingTitle = "Default Meeting"

// Meeting is a temporal cluster of photos within one group. Created,
// resized, merged, or removed exclusively by the cluster worker.
type Meeting struct {
	ID      uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	GroupID uuid.UUID `gorm:"type:uuid;not null;index:idx_meetings_group_start"`

	Title string `gorm:"size:200;not null"`

	StartTime   time.Time `gorm:"not null;index:idx_meetings_group_start"`
	EndTime     time.Time `gorm:"not null"`
	MeetingDate time.Time `gorm:"not null;type:date"`

	PhotoCount int `gorm:"not null;default:0"`

	Track LineString `gorm:"type:geometry(LineString,4326)"`

	BBoxNorth *float64
	BBoxSouth *float64
	BBoxEast  *float64
	BBoxWest  *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Meeting) TableName() string {
	return "meetings"
}

// IsDefault reports whether this meeting is the group's catch-all for
// photos with no shot_at.
func (m *Meeting) IsDefault() bool {
	return m.Title == DefaultMeetingTitle
}

func (m *Meeting) SetBBox(b BBox) {
	m.BBoxNorth = b.North
	m.BBoxSouth = b.South
	m.BBoxEast = b.East
	m.BBoxWest = b.West
}

// Group and Membership are opaque to the core: the pipeline only ever
// consumes a group_id and trusts the API layer upstream for
// authorization and membership checks, per spec.md §3.
type Group struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name      string    `gorm:"size:200;not null"`
	CreatedAt time.Time
}

func (Group) TableName() string {
	return "groups"
}
