package cluster

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

// S1 — burst of 10 photos 30s apart clusters to exactly one meeting.
func TestCluster_Burst(t *testing.T) {
	base := mustParse(t, "2024-06-10T10:00:00Z")
	var photos []Photo
	for k := 0; k < 10; k++ {
		photos = append(photos, Photo{
			ID:     uuid.New(),
			ShotAt: base.Add(time.Duration(k) * 30 * time.Second),
		})
	}

	meetings := Cluster(photos, DefaultGap)

	require.Len(t, meetings, 1)
	assert.Len(t, meetings[0].Members, 10)
	assert.True(t, meetings[0].Start.Equal(base))
	assert.True(t, meetings[0].End.Equal(base.Add(9*30*time.Second)))
}

// S2 — a 24h gap between two photos forces two meetings.
func TestCluster_DayGapSplits(t *testing.T) {
	p1 := Photo{ID: uuid.New(), ShotAt: mustParse(t, "2024-06-10T10:00:00Z")}
	p2 := Photo{ID: uuid.New(), ShotAt: mustParse(t, "2024-06-11T10:00:00Z")}

	meetings := Cluster([]Photo{p1, p2}, DefaultGap)

	require.Len(t, meetings, 2)
	assert.Len(t, meetings[0].Members, 1)
	assert.Len(t, meetings[1].Members, 1)
}

// S3 — 10:00, 10:30, 15:00 with a 4h gap: the 10:30->15:00 gap is 4.5h,
// strictly greater than the 4h threshold, so this must split in two:
// {10:00, 10:30} and {15:00}.
func TestCluster_BoundaryGapSplits(t *testing.T) {
	p1 := Photo{ID: uuid.New(), ShotAt: mustParse(t, "2024-06-10T10:00:00Z")}
	p2 := Photo{ID: uuid.New(), ShotAt: mustParse(t, "2024-06-10T10:30:00Z")}
	p3 := Photo{ID: uuid.New(), ShotAt: mustParse(t, "2024-06-10T15:00:00Z")}

	meetings := Cluster([]Photo{p1, p2, p3}, DefaultGap)

	require.Len(t, meetings, 2)
	assert.Len(t, meetings[0].Members, 2)
	assert.Len(t, meetings[1].Members, 1)
}

// A gap exactly equal to the threshold stays in the same meeting — the
// split condition is a strict ">", not ">=".
func TestCluster_ExactGapStaysTogether(t *testing.T) {
	p1 := Photo{ID: uuid.New(), ShotAt: mustParse(t, "2024-06-10T10:00:00Z")}
	p2 := Photo{ID: uuid.New(), ShotAt: mustParse(t, "2024-06-10T14:00:00Z")}

	meetings := Cluster([]Photo{p1, p2}, DefaultGap)

	require.Len(t, meetings, 1)
	assert.Len(t, meetings[0].Members, 2)
}

func TestCluster_TiesBrokenByID(t *testing.T) {
	same := mustParse(t, "2024-06-10T10:00:00Z")
	idLow := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idHigh := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	meetings := Cluster([]Photo{
		{ID: idHigh, ShotAt: same},
		{ID: idLow, ShotAt: same},
	}, DefaultGap)

	require.Len(t, meetings, 1)
	require.Len(t, meetings[0].Members, 2)
	assert.Equal(t, idLow, meetings[0].Members[0])
	assert.Equal(t, idHigh, meetings[0].Members[1])
}

func TestCluster_TrackAndBBoxFromGPSOnly(t *testing.T) {
	lat1, lon1 := 13.7, 100.5
	lat2, lon2 := 13.9, 100.7
	base := mustParse(t, "2024-06-10T10:00:00Z")

	meetings := Cluster([]Photo{
		{ID: uuid.New(), ShotAt: base, Lat: &lat1, Lon: &lon1},
		{ID: uuid.New(), ShotAt: base.Add(time.Minute), Lat: nil, Lon: nil},
		{ID: uuid.New(), ShotAt: base.Add(2 * time.Minute), Lat: &lat2, Lon: &lon2},
	}, DefaultGap)

	require.Len(t, meetings, 1)
	require.Len(t, meetings[0].Track, 2)
	assert.Equal(t, lat1, meetings[0].Track[0].Lat)
	assert.Equal(t, lat2, meetings[0].Track[1].Lat)
	require.NotNil(t, meetings[0].BBox.North)
	assert.Equal(t, lat2, *meetings[0].BBox.North)
	require.NotNil(t, meetings[0].BBox.South)
	assert.Equal(t, lat1, *meetings[0].BBox.South)
}

func TestCluster_Empty(t *testing.T) {
	assert.Nil(t, Cluster(nil, DefaultGap))
}

// Idempotence: re-running Cluster on the same input (property 2) always
// produces the same member-set partition.
func TestCluster_Idempotent(t *testing.T) {
	base := mustParse(t, "2024-06-10T10:00:00Z")
	photos := []Photo{
		{ID: uuid.New(), ShotAt: base},
		{ID: uuid.New(), ShotAt: base.Add(time.Hour)},
		{ID: uuid.New(), ShotAt: base.Add(10 * time.Hour)},
	}

	first := Cluster(photos, DefaultGap)
	second := Cluster(photos, DefaultGap)

	require.Len(t, first, len(second))
	for i := range first {
		assert.ElementsMatch(t, first[i].Members, second[i].Members)
	}
}
