package models

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"
)

// wkbPointMarker is the little-endian WKB tag for a 2D point
// (byte order 01, geometry type 01000000).
const wkbPointMarker = "0101000000"

// Point represents a GeoJSON Point geometry in WGS84 lng/lat order.
type Point struct {
	Lng float64
	Lat float64
}

// MarshalJSON implements json.Marshaler for API responses.
// Returns GeoJSON-compliant format for frontend consumption.
func (p Point) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}{
		Type:        "Point",
		Coordinates: [2]float64{p.Lng, p.Lat},
	}
	return json.Marshal(geom)
}

// UnmarshalJSON implements json.Unmarshaler for parsing GeoJSON input.
func (p *Point) UnmarshalJSON(data []byte) error {
	var geom struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}

	if err := json.Unmarshal(data, &geom); err != nil {
		return err
	}

	p.Lng = geom.Coordinates[0]
	p.Lat = geom.Coordinates[1]

	return nil
}

// DecodePointWKB extracts the centroid point from a hex-encoded WKB geometry.
// It scans for the little-endian point marker and reads the 16 bytes that
// follow as two little-endian float64 values (x = longitude, y = latitude).
//
// The boolean result is false when the marker is absent or the coordinate
// bytes are missing or malformed. Callers must treat a false result as "omit
// this record from spatial output", never as an error.
func DecodePointWKB(geomHex string) (Point, bool) {
	if geomHex == "" {
		return Point{}, false
	}

	idx := strings.Index(strings.ToLower(geomHex), wkbPointMarker)
	if idx < 0 {
		return Point{}, false
	}

	// 16 coordinate bytes follow the marker: 32 hex characters.
	coordHex := geomHex[idx+len(wkbPointMarker):]
	if len(coordHex) < 32 {
		return Point{}, false
	}

	raw, err := hex.DecodeString(coordHex[:32])
	if err != nil {
		return Point{}, false
	}

	lng := math.Float64frombits(binary.LittleEndian.Uint64(raw[:8]))
	lat := math.Float64frombits(binary.LittleEndian.Uint64(raw[8:16]))

	return Point{Lng: lng, Lat: lat}, true
}
