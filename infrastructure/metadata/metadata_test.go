package metadata

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidLatLon(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"origin", 0, 0, true},
		{"max corner", 90, 180, true},
		{"min corner", -90, -180, true},
		{"lat over north pole", 90.0001, 0, false},
		{"lat under south pole", -90.0001, 0, false},
		{"lon past antimeridian", 0, 180.0001, false},
		{"lon past negative antimeridian", 0, -180.0001, false},
		{"nan lat", math.NaN(), 0, false},
		{"nan lon", 0, math.NaN(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, validLatLon(tc.lat, tc.lon))
		})
	}
}

func TestIsJPEGOrTIFF(t *testing.T) {
	assert.True(t, isJPEGOrTIFF("image/jpeg"))
	assert.True(t, isJPEGOrTIFF("image/tiff"))
	assert.False(t, isJPEGOrTIFF("image/heic"))
	assert.False(t, isJPEGOrTIFF("image/png"))
	assert.False(t, isJPEGOrTIFF("application/pdf"))
}

// Without exiftool on PATH, HEIC (and anything else goexif rejects)
// must degrade to an empty, non-fatal Result rather than an error.
func TestExtract_NoExiftoolDegradesToEmptyResult(t *testing.T) {
	e := &Extractor{exiftoolPath: ""}
	require.False(t, e.CanShellOut())

	res, err := e.Extract(context.Background(), "image/heic", []byte("not a real heic file"))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

// A JPEG-dispatched extraction that fails to decode EXIF (garbage
// bytes, no real JPEG structure) falls through the same non-fatal path
// once exiftool is unavailable.
func TestExtract_UnparseableJPEGDegradesToEmptyResult(t *testing.T) {
	e := &Extractor{exiftoolPath: ""}

	res, err := e.Extract(context.Background(), "image/jpeg", []byte("definitely not a jpeg"))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}
