package models

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ewkbPoint builds the little-endian EWKB hex PostGIS actually returns
// for a geometry(Point,4326) column read via plain database/sql, the
// format Point.Scan must handle alongside EWKT.
func ewkbPoint(t *testing.T, lon, lat float64) string {
	t.Helper()
	buf := make([]byte, 1+4+4+16)
	buf[0] = 1 // little-endian
	binary.LittleEndian.PutUint32(buf[1:5], wkbTypePoint|wkbSRIDFlag)
	binary.LittleEndian.PutUint32(buf[5:9], 4326)
	binary.LittleEndian.PutUint64(buf[9:17], math.Float64bits(lon))
	binary.LittleEndian.PutUint64(buf[17:25], math.Float64bits(lat))
	return hex.EncodeToString(buf)
}

func ewkbLineString(t *testing.T, pts []LatLon) string {
	t.Helper()
	buf := make([]byte, 1+4+4+4+16*len(pts))
	buf[0] = 1
	binary.LittleEndian.PutUint32(buf[1:5], wkbTypeLineString|wkbSRIDFlag)
	binary.LittleEndian.PutUint32(buf[5:9], 4326)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(len(pts)))
	off := 13
	for _, p := range pts {
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(p.Lon))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], math.Float64bits(p.Lat))
		off += 16
	}
	return hex.EncodeToString(buf)
}

func TestPointScan_EWKBHex(t *testing.T) {
	var p Point
	require.NoError(t, p.Scan([]byte(ewkbPoint(t, -122.42, 37.77))))
	assert.True(t, p.Valid)
	assert.InDelta(t, -122.42, p.Lon, 1e-9)
	assert.InDelta(t, 37.77, p.Lat, 1e-9)
}

func TestPointScan_EWKBHexAsString(t *testing.T) {
	var p Point
	require.NoError(t, p.Scan(ewkbPoint(t, 10, 20)))
	assert.InDelta(t, 10.0, p.Lon, 1e-9)
	assert.InDelta(t, 20.0, p.Lat, 1e-9)
}

func TestPointScan_EWKT(t *testing.T) {
	var p Point
	require.NoError(t, p.Scan([]byte("SRID=4326;POINT(-122.42 37.77)")))
	assert.InDelta(t, -122.42, p.Lon, 1e-9)
	assert.InDelta(t, 37.77, p.Lat, 1e-9)
}

func TestPointScan_Nil(t *testing.T) {
	p := NewPoint(1, 2)
	require.NoError(t, p.Scan(nil))
	assert.False(t, p.Valid)
}

func TestPointValueScan_RoundTrip(t *testing.T) {
	original := NewPoint(37.77, -122.42)
	val, err := original.Value()
	require.NoError(t, err)

	var scanned Point
	require.NoError(t, scanned.Scan([]byte(val.(string))))
	assert.InDelta(t, original.Lat, scanned.Lat, 1e-9)
	assert.InDelta(t, original.Lon, scanned.Lon, 1e-9)
}

func TestLineStringScan_EWKBHex(t *testing.T) {
	pts := []LatLon{{Lat: 37.0, Lon: -122.0}, {Lat: 37.5, Lon: -122.5}, {Lat: 38.0, Lon: -123.0}}
	var l LineString
	require.NoError(t, l.Scan([]byte(ewkbLineString(t, pts))))
	require.Len(t, l.Points, 3)
	for i, p := range pts {
		assert.InDelta(t, p.Lat, l.Points[i].Lat, 1e-9)
		assert.InDelta(t, p.Lon, l.Points[i].Lon, 1e-9)
	}
}

func TestLineStringScan_EWKT(t *testing.T) {
	var l LineString
	require.NoError(t, l.Scan([]byte("SRID=4326;LINESTRING(-122 37,-122.5 37.5)")))
	require.Len(t, l.Points, 2)
	assert.InDelta(t, -122.0, l.Points[0].Lon, 1e-9)
	assert.InDelta(t, 37.0, l.Points[0].Lat, 1e-9)
}

func TestLineStringScan_Nil(t *testing.T) {
	l := LineString{Points: []LatLon{{Lat: 1, Lon: 2}}}
	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l.Points)
}

func TestLineStringValueScan_RoundTrip(t *testing.T) {
	original := LineString{Points: []LatLon{{Lat: 37.0, Lon: -122.0}, {Lat: 38.0, Lon: -123.0}}}
	val, err := original.Value()
	require.NoError(t, err)

	var scanned LineString
	require.NoError(t, scanned.Scan([]byte(val.(string))))
	require.Len(t, scanned.Points, 2)
	assert.InDelta(t, original.Points[1].Lat, scanned.Points[1].Lat, 1e-9)
}

func TestPointScan_InvalidInputErrors(t *testing.T) {
	var p Point
	assert.Error(t, p.Scan([]byte("not geometry at all")))
}

func TestPointScan_WrongType(t *testing.T) {
	var p Point
	assert.Error(t, p.Scan(42))
}
