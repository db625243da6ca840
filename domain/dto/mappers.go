package dto

import "phototimeline/domain/models"

func PhotoToResponse(p *models.Photo) PhotoResponse {
	return PhotoResponse{
		ID:          p.ID,
		GroupID:     p.GroupID,
		UploaderID:  p.UploaderID,
		MeetingID:   p.MeetingID,
		Mime:        p.Mime,
		Bytes:       p.Bytes,
		Width:       p.Width,
		Height:      p.Height,
		ShotAt:      p.ShotAt,
		GPSLat:      p.GPSLat,
		GPSLon:      p.GPSLon,
		CameraMake:  p.CameraMake,
		CameraModel: p.CameraModel,
		Processed:   p.Processed,
		UploadedAt:  p.UploadedAt,
	}
}
