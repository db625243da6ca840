package models

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LatLon is a single GPS fix in decimal degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// Point is a PostGIS geometry(Point,4326) column value. It writes as
// EWKT (plain database/sql accepts that as input text) and reads back
// whatever the driver hands it, EWKT or hex-encoded EWKB, without a
// PostGIS driver extension.
type Point struct {
	Valid bool
	LatLon
}

func NewPoint(lat, lon float64) Point {
	return Point{Valid: true, LatLon: LatLon{Lat: lat, Lon: lon}}
}

func (p Point) Value() (driver.Value, error) {
	if !p.Valid {
		return nil, nil
	}
	return fmt.Sprintf("SRID=4326;POINT(%s %s)", trimFloat(p.Lon), trimFloat(p.Lat)), nil
}

func (p *Point) Scan(src interface{}) error {
	if src == nil {
		*p = Point{}
		return nil
	}
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("models: cannot scan %T into Point", src)
	}
	lon, lat, err := parsePoint(s)
	if err != nil {
		return err
	}
	*p = NewPoint(lat, lon)
	return nil
}

func (Point) GormDataType() string {
	return "geometry(Point,4326)"
}

// LineString is a PostGIS geometry(LineString,4326) column value carrying
// a meeting's GPS track in shot_at order.
type LineString struct {
	Points []LatLon
}

func (l LineString) Value() (driver.Value, error) {
	if len(l.Points) == 0 {
		return nil, nil
	}
	parts := make([]string, len(l.Points))
	for i, p := range l.Points {
		parts[i] = trimFloat(p.Lon) + " " + trimFloat(p.Lat)
	}
	return fmt.Sprintf("SRID=4326;LINESTRING(%s)", strings.Join(parts, ",")), nil
}

func (l *LineString) Scan(src interface{}) error {
	if src == nil {
		l.Points = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("models: cannot scan %T into LineString", src)
	}
	pts, err := parseLineString(s)
	if err != nil {
		return err
	}
	l.Points = pts
	return nil
}

func (LineString) GormDataType() string {
	return "geometry(LineString,4326)"
}

// BBox is the bounding box of a meeting's GPS track, stored as four
// plain nullable columns (mirrors the bbox_north/south/east/west shape
// used by the system this was distilled from).
type BBox struct {
	North, South, East, West *float64
}

func (b *BBox) Extend(p LatLon) {
	if b.North == nil || p.Lat > *b.North {
		v := p.Lat
		b.North = &v
	}
	if b.South == nil || p.Lat < *b.South {
		v := p.Lat
		b.South = &v
	}
	if b.East == nil || p.Lon > *b.East {
		v := p.Lon
		b.East = &v
	}
	if b.West == nil || p.Lon < *b.West {
		v := p.Lon
		b.West = &v
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseWKTPoint(s string) (lon, lat float64, err error) {
	s = stripSRID(s)
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "POINT(")
	s = strings.TrimPrefix(s, "POINT (")
	s = strings.TrimSuffix(s, ")")
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("models: malformed POINT wkt %q", s)
	}
	lon, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, err
	}
	lat, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}

func parseWKTLineString(s string) ([]LatLon, error) {
	s = stripSRID(s)
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "LINESTRING(")
	s = strings.TrimPrefix(s, "LINESTRING (")
	s = strings.TrimSuffix(s, ")")
	if s == "" {
		return nil, nil
	}
	pairs := strings.Split(s, ",")
	points := make([]LatLon, 0, len(pairs))
	for _, pair := range pairs {
		fields := strings.Fields(strings.TrimSpace(pair))
		if len(fields) != 2 {
			return nil, fmt.Errorf("models: malformed LINESTRING point %q", pair)
		}
		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, err
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, err
		}
		points = append(points, LatLon{Lat: lat, Lon: lon})
	}
	return points, nil
}

// parsePoint and parseLineString accept whatever PostGIS hands back to
// a plain database/sql Scan for an unwrapped geometry column: hex-encoded
// EWKB, not WKT. The WKT/EWKT branch stays only for values round-tripped
// through Value() in tests or other code paths that format text directly.

func parsePoint(s string) (lon, lat float64, err error) {
	if looksLikeWKT(s) {
		return parseWKTPoint(s)
	}
	pts, _, err := decodeEWKB(s)
	if err != nil {
		return 0, 0, err
	}
	if len(pts) != 1 {
		return 0, 0, fmt.Errorf("models: expected a single point in EWKB, got %d", len(pts))
	}
	return pts[0].Lon, pts[0].Lat, nil
}

func parseLineString(s string) ([]LatLon, error) {
	if looksLikeWKT(s) {
		return parseWKTLineString(s)
	}
	pts, _, err := decodeEWKB(s)
	return pts, err
}

func looksLikeWKT(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "SRID=") || strings.HasPrefix(s, "POINT") || strings.HasPrefix(s, "LINESTRING")
}

// decodeEWKB parses the hex-encoded Extended WKB that PostGIS returns for
// a geometry column read without an ST_AsText/ST_AsEWKT wrapper. It
// handles the two geometry types this package writes: Point (type 1) and
// LineString (type 2), both 2D with no Z/M ordinates.
const (
	wkbTypePoint      = 1
	wkbTypeLineString = 2
	wkbSRIDFlag       = 0x20000000
	wkbZMFlagMask     = 0xC0000000
)

func decodeEWKB(s string) ([]LatLon, uint32, error) {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, 0, fmt.Errorf("models: not valid WKT or EWKB hex: %q", s)
	}
	if len(data) < 5 {
		return nil, 0, fmt.Errorf("models: EWKB too short (%d bytes)", len(data))
	}

	var order binary.ByteOrder
	switch data[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return nil, 0, fmt.Errorf("models: unrecognized EWKB byte order %d", data[0])
	}

	rawType := order.Uint32(data[1:5])
	geomType := rawType &^ (wkbSRIDFlag | wkbZMFlagMask)
	rest := data[5:]

	var srid uint32
	if rawType&wkbSRIDFlag != 0 {
		if len(rest) < 4 {
			return nil, 0, fmt.Errorf("models: EWKB missing SRID bytes")
		}
		srid = order.Uint32(rest[:4])
		rest = rest[4:]
	}

	switch geomType {
	case wkbTypePoint:
		if len(rest) < 16 {
			return nil, 0, fmt.Errorf("models: EWKB point truncated")
		}
		x := math.Float64frombits(order.Uint64(rest[0:8]))
		y := math.Float64frombits(order.Uint64(rest[8:16]))
		return []LatLon{{Lat: y, Lon: x}}, srid, nil
	case wkbTypeLineString:
		if len(rest) < 4 {
			return nil, 0, fmt.Errorf("models: EWKB linestring missing point count")
		}
		n := order.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(len(rest)) < uint64(n)*16 {
			return nil, 0, fmt.Errorf("models: EWKB linestring truncated")
		}
		points := make([]LatLon, n)
		for i := uint32(0); i < n; i++ {
			off := i * 16
			x := math.Float64frombits(order.Uint64(rest[off : off+8]))
			y := math.Float64frombits(order.Uint64(rest[off+8 : off+16]))
			points[i] = LatLon{Lat: y, Lon: x}
		}
		return points, srid, nil
	default:
		return nil, 0, fmt.Errorf("models: unsupported EWKB geometry type %d", geomType)
	}
}

func stripSRID(s string) string {
	if idx := strings.Index(s, ";"); idx >= 0 && strings.HasPrefix(s, "SRID=") {
		return s[idx+1:]
	}
	return s
}
