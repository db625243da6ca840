package dto

import (
	"time"

	"github.com/google/uuid"
)

// UploadPhotoRequest is the multipart form ingest accepts (spec.md
// §4.1): a group to file into, the uploading user, and the bytes.
// The file itself is read off the multipart form, not this struct.
type UploadPhotoRequest struct {
	GroupID    uuid.UUID `validate:"required"`
	UploaderID uuid.UUID `validate:"required"`
}

// UploadPhotoResponse answers an ingest request immediately, before
// processing or clustering has run.
type UploadPhotoResponse struct {
	PhotoID uuid.UUID `json:"photo_id"`
	Status  string    `json:"status"` // "accepted" or "duplicate"
}

// PhotoResponse is the DTO for a single photo's current state.
type PhotoResponse struct {
	ID          uuid.UUID  `json:"id"`
	GroupID     uuid.UUID  `json:"group_id"`
	UploaderID  uuid.UUID  `json:"uploader_id"`
	MeetingID   *uuid.UUID `json:"meeting_id,omitempty"`
	Mime        string     `json:"mime"`
	Bytes       int64      `json:"bytes"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	ShotAt      *time.Time `json:"shot_at,omitempty"`
	GPSLat      *float64   `json:"gps_lat,omitempty"`
	GPSLon      *float64   `json:"gps_lon,omitempty"`
	CameraMake  string     `json:"camera_make,omitempty"`
	CameraModel string     `json:"camera_model,omitempty"`
	Processed   bool       `json:"processed"`
	UploadedAt  time.Time  `json:"uploaded_at"`
}
