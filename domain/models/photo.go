package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is a single uploaded image within a group. It is created by the
// ingest path with processed=false and meeting_id=nil, mutated once by
// the process worker (metadata fill-in), and mutated repeatedly by the
// cluster worker (meeting assignment). Never deleted on the core path.
type Photo struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	GroupID    uuid.UUID `gorm:"type:uuid;not null;index:idx_photos_group_shot"`
	UploaderID uuid.UUID `gorm:"type:uuid;not null;index"`

	// The composite unique index on (group_id, content_hash) that
	// actually backs dedup is created by runPhotoTimelineMigrations, not
	// by a gorm tag here: AutoMigrate resolves a single-field
	// uniqueIndex tag to a single-column index, which would collide by
	// name with (and silently pre-empt) the composite one.
	ContentHash  string `gorm:"size:64;not null;index:idx_photos_hash"`
	OriginalPath string `gorm:"not null"`
	ThumbPath    string

	Mime   string `gorm:"size:127;not null"`
	Bytes  int64  `gorm:"not null"`
	Width  int
	Height int

	ShotAt *time.Time `gorm:"index:idx_photos_group_shot"`
	GPSLat *float64
	GPSLon *float64
	GPS    Point `gorm:"type:geometry(Point,4326)"`

	CameraMake  string `gorm:"size:100"`
	CameraModel string `gorm:"size:100"`

	MeetingID *uuid.UUID `gorm:"type:uuid;index"`

	Processed       bool `gorm:"not null;default:false;index"`
	ProcessingError *string

	UploadedAt time.Time `gorm:"not null;index"`

	Meeting *Meeting `gorm:"foreignKey:MeetingID"`
}

func (Photo) TableName() string {
	return "photos"
}

// HasGPS reports whether both halves of the GPS pair are present, which
// invariant 3.3 requires to always hold together.
func (p *Photo) HasGPS() bool {
	return p.GPSLat != nil && p.GPSLon != nil
}

func (p *Photo) SetGPS(lat, lon float64) {
	la, lo := lat, lon
	p.GPSLat = &la
	p.GPSLon = &lo
	p.GPS = NewPoint(lat, lon)
}

func (p *Photo) ClearGPS() {
	p.GPSLat = nil
	p.GPSLon = nil
	p.GPS = Point{}
}
