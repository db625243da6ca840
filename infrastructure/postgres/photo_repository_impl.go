package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"phototimeline/domain/cluster"
	"phototimeline/domain/models"
	"phototimeline/domain/repositories"
)

type PhotoRepositoryImpl struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) repositories.PhotoRepository {
	return &PhotoRepositoryImpl{db: db}
}

func (r *PhotoRepositoryImpl) InsertPhotoIfAbsent(ctx context.Context, photo *models.Photo) (*models.Photo, bool, error) {
	var result *models.Photo
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Photo
		err := tx.Where("group_id = ? AND content_hash = ?", photo.GroupID, photo.ContentHash).
			First(&existing).Error
		if err == nil {
			result = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(photo).Error; err != nil {
			// A concurrent insert may have won the race on the unique
			// index between our SELECT and our INSERT; fall back to
			// reading the row that won instead of surfacing a conflict.
			var race models.Photo
			if raceErr := tx.Where("group_id = ? AND content_hash = ?", photo.GroupID, photo.ContentHash).
				First(&race).Error; raceErr == nil {
				result = &race
				return nil
			}
			return err
		}

		result = photo
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (r *PhotoRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *PhotoRepositoryImpl) UpdatePhotoMetadata(ctx context.Context, id uuid.UUID, update repositories.PhotoMetadataUpdate) error {
	updates := map[string]interface{}{
		"processed":  true,
		"updated_at": time.Now(),
	}
	if update.ThumbPath != nil {
		updates["thumb_path"] = *update.ThumbPath
	}
	if update.Width != nil {
		updates["width"] = *update.Width
	}
	if update.Height != nil {
		updates["height"] = *update.Height
	}
	if update.ShotAt != nil {
		updates["shot_at"] = *update.ShotAt
	}
	if update.CameraMake != nil {
		updates["camera_make"] = *update.CameraMake
	}
	if update.CameraModel != nil {
		updates["camera_model"] = *update.CameraModel
	}
	if update.GPSLat != nil && update.GPSLon != nil {
		updates["gps_lat"] = *update.GPSLat
		updates["gps_lon"] = *update.GPSLon
		updates["gps"] = models.NewPoint(*update.GPSLat, *update.GPSLon)
	}
	// processing_error is always written, even when nil, to clear a
	// previous failure on a successful retry (spec.md §4.7 step 4).
	updates["processing_error"] = update.ProcessingError

	return r.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", id).Updates(updates).Error
}

func (r *PhotoRepositoryImpl) ListGroupPhotosOrdered(ctx context.Context, groupID uuid.UUID) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("shot_at ASC NULLS LAST, id ASC").
		Find(&photos).Error
	return photos, err
}

func (r *PhotoRepositoryImpl) EnsureDefaultMeeting(ctx context.Context, groupID uuid.UUID) (*models.Meeting, error) {
	var meeting models.Meeting
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND title = ?", groupID, models.DefaultMeetingTitle).
		First(&meeting).Error
	if err == nil {
		return &meeting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	meeting = models.Meeting{
		GroupID:     groupID,
		Title:       models.DefaultMeetingTitle,
		StartTime:   now,
		EndTime:     now,
		MeetingDate: now,
	}
	if err := r.db.WithContext(ctx).Create(&meeting).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *PhotoRepositoryImpl) ListStuckProcessing(ctx context.Context, threshold time.Duration, limit int) ([]models.Photo, error) {
	cutoff := time.Now().Add(-threshold)
	var photos []models.Photo
	err := r.db.WithContext(ctx).
		Where("processed = ? AND uploaded_at < ?", false, cutoff).
		Order("uploaded_at ASC").
		Limit(limit).
		Find(&photos).Error
	return photos, err
}

func (r *PhotoRepositoryImpl) CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, int64, error) {
	var photos, meetings int64
	if err := r.db.WithContext(ctx).Model(&models.Photo{}).Where("group_id = ?", groupID).Count(&photos).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Meeting{}).Where("group_id = ?", groupID).Count(&meetings).Error; err != nil {
		return 0, 0, err
	}
	return photos, meetings, nil
}

// VerifyMeetingCounts implements the photo-count reconciliation check
// carried over from the original fix_photo_counts.py diagnostic: for
// every meeting in the system, compare its stored photo_count against
// an actual COUNT(*) of member photos. Run system-wide (rather than
// scoped to one group) so the detailed health check can call it
// without first having to enumerate every active group.
func (r *PhotoRepositoryImpl) VerifyMeetingCounts(ctx context.Context) ([]repositories.MeetingCountMismatch, error) {
	var meetings []models.Meeting
	if err := r.db.WithContext(ctx).Find(&meetings).Error; err != nil {
		return nil, err
	}

	var mismatches []repositories.MeetingCountMismatch
	for _, m := range meetings {
		var actual int64
		if err := r.db.WithContext(ctx).Model(&models.Photo{}).Where("meeting_id = ?", m.ID).Count(&actual).Error; err != nil {
			return nil, err
		}
		if int(actual) != m.PhotoCount {
			mismatches = append(mismatches, repositories.MeetingCountMismatch{
				GroupID:     m.GroupID,
				MeetingID:   m.ID,
				StoredCount: m.PhotoCount,
				ActualCount: int(actual),
			})
		}
	}
	return mismatches, nil
}

// WithAdvisoryLock runs fn inside a transaction holding a Postgres
// transaction-level advisory lock on hashtext(group_id), released
// automatically at commit/rollback (spec.md §4.4, §4.8 step 1).
func (r *PhotoRepositoryImpl) WithAdvisoryLock(ctx context.Context, groupID uuid.UUID, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", groupID.String()).Error; err != nil {
			return err
		}
		return fn(withTx(ctx, tx))
	})
}

type txKey struct{}

func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}

// ReconcileMeetings rebuilds the non-default meeting partition for a
// group from scratch, matching desired clusters against existing
// meeting rows by member-set overlap so meeting_id stays stable across
// re-reconciliations whenever possible (spec.md §4.8 step 6).
//
// Call this from inside WithAdvisoryLock; it reuses the transaction
// stashed on ctx when present so the whole reconciliation commits or
// rolls back atomically with the lock.
func (r *PhotoRepositoryImpl) ReconcileMeetings(ctx context.Context, groupID uuid.UUID, gap time.Duration) (repositories.ReconcileResult, error) {
	tx := txFromContext(ctx, r.db).WithContext(ctx)

	var photos []models.Photo
	if err := tx.Where("group_id = ?", groupID).
		Order("shot_at ASC NULLS LAST, id ASC").
		Find(&photos).Error; err != nil {
		return repositories.ReconcileResult{}, err
	}

	var timed []cluster.Photo
	var defaultMembers []uuid.UUID
	for _, p := range photos {
		if p.ShotAt == nil {
			defaultMembers = append(defaultMembers, p.ID)
			continue
		}
		timed = append(timed, cluster.Photo{ID: p.ID, ShotAt: *p.ShotAt, Lat: p.GPSLat, Lon: p.GPSLon})
	}

	desired := cluster.Cluster(timed, gap)

	var current []models.Meeting
	if err := tx.Where("group_id = ? AND title != ?", groupID, models.DefaultMeetingTitle).
		Find(&current).Error; err != nil {
		return repositories.ReconcileResult{}, err
	}

	currentMembers := make(map[uuid.UUID]map[uuid.UUID]bool, len(current))
	for _, p := range photos {
		if p.MeetingID != nil {
			if currentMembers[*p.MeetingID] == nil {
				currentMembers[*p.MeetingID] = map[uuid.UUID]bool{}
			}
			currentMembers[*p.MeetingID][p.ID] = true
		}
	}

	matched := matchMeetings(current, currentMembers, desired)

	keepIDs := make(map[uuid.UUID]bool, len(matched))
	for i, d := range desired {
		m := matched[i]
		if m == nil {
			m = &models.Meeting{GroupID: groupID}
		}
		m.StartTime = d.Start
		m.EndTime = d.End
		m.MeetingDate = d.Start
		m.PhotoCount = len(d.Members)
		m.Title = meetingTitle(d.Start)
		m.SetBBox(d.BBox)
		m.Track = models.LineString{Points: d.Track}

		if m.ID == uuid.Nil {
			if err := tx.Create(m).Error; err != nil {
				return repositories.ReconcileResult{}, err
			}
		} else {
			if err := tx.Save(m).Error; err != nil {
				return repositories.ReconcileResult{}, err
			}
		}
		keepIDs[m.ID] = true

		if err := tx.Model(&models.Photo{}).
			Where("id IN ?", d.Members).
			Update("meeting_id", m.ID).Error; err != nil {
			return repositories.ReconcileResult{}, err
		}
	}

	var staleIDs []uuid.UUID
	for _, m := range current {
		if !keepIDs[m.ID] {
			staleIDs = append(staleIDs, m.ID)
		}
	}
	if len(staleIDs) > 0 {
		if err := tx.Where("id IN ?", staleIDs).Delete(&models.Meeting{}).Error; err != nil {
			return repositories.ReconcileResult{}, err
		}
	}

	if len(defaultMembers) > 0 {
		defMeeting, err := r.ensureDefaultMeetingTx(tx, groupID)
		if err != nil {
			return repositories.ReconcileResult{}, err
		}
		if err := tx.Model(&models.Photo{}).
			Where("id IN ?", defaultMembers).
			Update("meeting_id", defMeeting.ID).Error; err != nil {
			return repositories.ReconcileResult{}, err
		}
		if err := tx.Model(&models.Meeting{}).Where("id = ?", defMeeting.ID).
			Update("photo_count", len(defaultMembers)).Error; err != nil {
			return repositories.ReconcileResult{}, err
		}
	} else {
		// No shot_at-less photos remain: drop the now-empty default
		// meeting so invariant 2 (default meeting exists iff needed)
		// holds after every reconciliation.
		if err := tx.Where("group_id = ? AND title = ?", groupID, models.DefaultMeetingTitle).
			Delete(&models.Meeting{}).Error; err != nil {
			return repositories.ReconcileResult{}, err
		}
	}

	return repositories.ReconcileResult{
		GroupID:       groupID,
		MeetingsBuilt: len(desired),
		PhotosRouted:  len(photos),
	}, nil
}

func (r *PhotoRepositoryImpl) ensureDefaultMeetingTx(tx *gorm.DB, groupID uuid.UUID) (*models.Meeting, error) {
	var meeting models.Meeting
	err := tx.Where("group_id = ? AND title = ?", groupID, models.DefaultMeetingTitle).First(&meeting).Error
	if err == nil {
		return &meeting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	meeting = models.Meeting{
		GroupID:     groupID,
		Title:       models.DefaultMeetingTitle,
		StartTime:   now,
		EndTime:     now,
		MeetingDate: now,
	}
	if err := tx.Create(&meeting).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

// matchMeetings pairs each desired cluster with the existing meeting
// whose member set overlaps it the most, keeping the pair only when
// that overlap is at least 50% of the smaller set (spec.md §4.8 step
// 6), so meeting_id stays stable across reconciliations that don't
// meaningfully change a cluster's membership. Each existing meeting is
// used at most once. Unmatched desired clusters return a nil slot and
// get a freshly created row.
func matchMeetings(current []models.Meeting, currentMembers map[uuid.UUID]map[uuid.UUID]bool, desired []cluster.Meeting) []*models.Meeting {
	matched := make([]*models.Meeting, len(desired))
	if len(current) == 0 || len(desired) == 0 {
		return matched
	}

	used := make([]bool, len(current))

	for i, d := range desired {
		dSet := toSet(d.Members)
		bestIdx := -1
		bestScore := 0.0
		for j := range current {
			if used[j] {
				continue
			}
			score := overlapRatio(dSet, currentMembers[current[j].ID])
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}
		if bestIdx != -1 && bestScore >= 0.5 {
			m := current[bestIdx]
			matched[i] = &m
			used[bestIdx] = true
		}
	}
	return matched
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func overlapRatio(a, b map[uuid.UUID]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	overlap := 0
	for id := range a {
		if b[id] {
			overlap++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(overlap) / float64(smaller)
}

// meetingTitle derives a human-readable title from a cluster's start
// time, e.g. "2024-06-10 Afternoon" (spec.md §7). Localization is left
// to the API layer; this always uses the server's local time zone.
func meetingTitle(start time.Time) string {
	local := start.Local()
	return local.Format("2006-01-02") + " " + dayPart(local.Hour())
}

func dayPart(hour int) string {
	switch {
	case hour < 12:
		return "Morning"
	case hour < 18:
		return "Afternoon"
	default:
		return "Evening"
	}
}
