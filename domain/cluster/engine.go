// Package cluster implements the meeting-clustering algorithm (C5 in
// SPEC_FULL.md). It is a pure function over an in-memory photo list: no
// database, no clock, no I/O of any kind, so it can be exercised and
// reasoned about without any infrastructure.
package cluster

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"phototimeline/domain/models"
)

// DefaultGap is the fallback meeting boundary gap (MEETING_GAP_HOURS=4
// per spec.md §6) used when no override is configured.
const DefaultGap = 4 * time.Hour

// Photo is the minimal shape ClusterEngine needs from a photo row.
// Photos with a nil ShotAt must be filtered out by the caller before
// calling Cluster — they are routed to the default meeting separately.
type Photo struct {
	ID     uuid.UUID
	ShotAt time.Time
	Lat    *float64
	Lon    *float64
}

// Meeting is one emitted cluster: a contiguous run of photos with no
// adjacent gap larger than the configured threshold.
type Meeting struct {
	Start   time.Time
	End     time.Time
	Members []uuid.UUID
	Track   []models.LatLon
	BBox    models.BBox
}

// Cluster groups a photo list into time-ordered meetings using a single
// linear scan: a new meeting starts whenever the gap to the previous
// photo (by ShotAt) exceeds gap. Ties on ShotAt are broken by photo ID
// so the result is a deterministic, total, idempotent function of its
// input (spec.md §8 property 1 and 2).
//
// photos need not be pre-sorted; Cluster sorts a copy internally.
func Cluster(photos []Photo, gap time.Duration) []Meeting {
	if len(photos) == 0 {
		return nil
	}

	ordered := make([]Photo, len(photos))
	copy(ordered, photos)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].ShotAt.Equal(ordered[j].ShotAt) {
			return ordered[i].ShotAt.Before(ordered[j].ShotAt)
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	var meetings []Meeting
	current := newMeetingBuilder(ordered[0])

	for i := 1; i < len(ordered); i++ {
		p := ordered[i]
		prev := ordered[i-1]
		if p.ShotAt.Sub(prev.ShotAt) > gap {
			meetings = append(meetings, current.build())
			current = newMeetingBuilder(p)
			continue
		}
		current.add(p)
	}
	meetings = append(meetings, current.build())

	return meetings
}

type meetingBuilder struct {
	start, end time.Time
	members    []uuid.UUID
	track      []models.LatLon
	bbox       models.BBox
}

func newMeetingBuilder(p Photo) *meetingBuilder {
	b := &meetingBuilder{start: p.ShotAt, end: p.ShotAt}
	b.add(p)
	return b
}

func (b *meetingBuilder) add(p Photo) {
	b.end = p.ShotAt
	b.members = append(b.members, p.ID)
	if p.Lat != nil && p.Lon != nil {
		ll := models.LatLon{Lat: *p.Lat, Lon: *p.Lon}
		b.track = append(b.track, ll)
		b.bbox.Extend(ll)
	}
}

func (b *meetingBuilder) build() Meeting {
	return Meeting{
		Start:   b.start,
		End:     b.end,
		Members: b.members,
		Track:   b.track,
		BBox:    b.bbox,
	}
}
