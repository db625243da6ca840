// Package metadata implements the MetadataExtractor component (C1)
// from spec.md §4.1: pull shot_at, GPS, dimensions, and camera make/
// model out of an uploaded image. JPEG/TIFF goes through goexif;
// everything goexif can't parse (chiefly HEIC) falls back to a best-
// effort exiftool shell-out, mirroring the piexif+exiftool split in
// the implementation this pipeline's behavior was distilled from.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"phototimeline/pkg/logger"
)

// Result is the closed set of fields the process worker writes back
// onto a photo row. No open maps: every field the pipeline can act on
// has a name (spec.md §9 design note).
type Result struct {
	ShotAt      *time.Time
	Lat, Lon    *float64
	CameraMake  string
	CameraModel string
	Width       int
	Height      int
}

// Extractor pulls a Result out of image bytes.
type Extractor struct {
	exiftoolPath string
}

func New() *Extractor {
	path, _ := exec.LookPath("exiftool")
	return &Extractor{exiftoolPath: path}
}

// CanShellOut reports whether the exiftool fallback is available on
// this host, for the detailed health check to surface.
func (e *Extractor) CanShellOut() bool {
	return e.exiftoolPath != ""
}

// Extract reads metadata from data, identified by mime. JPEG/TIFF is
// parsed in-process via goexif. HEIC and anything else goexif rejects
// falls back to exiftool when available. Extraction failures are
// never fatal: a zero Result routes the photo to the default meeting
// (spec.md §4.7 step 6), never blocks ingestion.
func (e *Extractor) Extract(ctx context.Context, mime string, data []byte) (Result, error) {
	if isJPEGOrTIFF(mime) {
		res, err := extractWithGoexif(data)
		if err == nil {
			return res, nil
		}
		logger.Warn(logger.CategoryMetadata, "goexif_failed", "falling back to exiftool", map[string]interface{}{
			"mime": mime, "error": err.Error(),
		})
	}

	if !e.CanShellOut() {
		return Result{}, nil
	}
	return e.extractWithExiftool(ctx, data)
}

func isJPEGOrTIFF(mime string) bool {
	switch mime {
	case "image/jpeg", "image/tiff":
		return true
	default:
		return false
	}
}

func extractWithGoexif(data []byte) (Result, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("metadata: decode exif: %w", err)
	}

	var res Result

	if t, err := x.DateTime(); err == nil {
		res.ShotAt = &t
	}

	if lat, lon, err := x.LatLong(); err == nil {
		if validLatLon(lat, lon) {
			res.Lat, res.Lon = &lat, &lon
		}
	}

	if tag, err := x.Get(exif.Make); err == nil {
		if s, err := tag.StringVal(); err == nil {
			res.CameraMake = strings.TrimSpace(s)
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil {
			res.CameraModel = strings.TrimSpace(s)
		}
	}
	if tag, err := x.Get(exif.PixelXDimension); err == nil {
		if v, err := tag.Int(0); err == nil {
			res.Width = v
		}
	}
	if tag, err := x.Get(exif.PixelYDimension); err == nil {
		if v, err := tag.Int(0); err == nil {
			res.Height = v
		}
	}

	return res, nil
}

// validLatLon rejects coordinates outside the physically valid range
// or NaN, treating them as a non-fatal extraction miss rather than
// propagating garbage into the GPS columns.
func validLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

type exiftoolRecord struct {
	DateTimeOriginal string  `json:"DateTimeOriginal"`
	CreateDate       string  `json:"CreateDate"`
	GPSLatitude      float64 `json:"GPSLatitude"`
	GPSLongitude     float64 `json:"GPSLongitude"`
	Make             string  `json:"Make"`
	Model            string  `json:"Model"`
	ImageWidth       int     `json:"ImageWidth"`
	ImageHeight      int     `json:"ImageHeight"`
}

// extractWithExiftool shells out to exiftool -j -n so GPS comes back
// as signed decimal degrees instead of a DMS string, writing the
// source image to a temp file exiftool can open.
func (e *Extractor) extractWithExiftool(ctx context.Context, data []byte) (Result, error) {
	tmp, err := writeTempFile(data)
	if err != nil {
		return Result{}, err
	}
	defer tmp.cleanup()

	cmd := exec.CommandContext(ctx, e.exiftoolPath, "-j", "-n", tmp.path)
	out, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("metadata: exiftool: %w", err)
	}

	var records []exiftoolRecord
	if err := json.Unmarshal(out, &records); err != nil || len(records) == 0 {
		return Result{}, fmt.Errorf("metadata: parse exiftool output: %w", err)
	}
	rec := records[0]

	var res Result
	dateStr := rec.DateTimeOriginal
	if dateStr == "" {
		dateStr = rec.CreateDate
	}
	if dateStr != "" {
		if t, err := time.Parse("2006:01:02 15:04:05", dateStr); err == nil {
			res.ShotAt = &t
		}
	}
	if validLatLon(rec.GPSLatitude, rec.GPSLongitude) && (rec.GPSLatitude != 0 || rec.GPSLongitude != 0) {
		lat, lon := rec.GPSLatitude, rec.GPSLongitude
		res.Lat, res.Lon = &lat, &lon
	}
	res.CameraMake = strings.TrimSpace(rec.Make)
	res.CameraModel = strings.TrimSpace(rec.Model)
	res.Width = rec.ImageWidth
	res.Height = rec.ImageHeight

	return res, nil
}

type tempFile struct {
	path    string
	cleanup func()
}

func writeTempFile(data []byte) (tempFile, error) {
	f, err := os.CreateTemp("", "phototimeline-exif-*")
	if err != nil {
		return tempFile{}, err
	}
	path := f.Name()
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(path)
		return tempFile{}, err
	}
	f.Close()
	return tempFile{path: path, cleanup: func() { os.Remove(path) }}, nil
}
