package domain

import (
	"math"
	"strconv"
	"strings"
)

const (
	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

// Coordinate is a validated latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ValidateCoordinate checks both axes against their bounds. NaN and infinite
// values count as non-numeric and fail with KindOutOfRange.
func ValidateCoordinate(lat, lng float64) (Coordinate, error) {
	if err := checkAxis("latitude", lat, minLatitude, maxLatitude); err != nil {
		return Coordinate{}, err
	}
	if err := checkAxis("longitude", lng, minLongitude, maxLongitude); err != nil {
		return Coordinate{}, err
	}
	return Coordinate{Latitude: lat, Longitude: lng}, nil
}

// ParseCoordinate validates a coordinate typed as text. Blank input is a
// missing field; anything strconv cannot read is out of range.
func ParseCoordinate(lat, lng string) (Coordinate, error) {
	latV, err := parseAxis("latitude", lat)
	if err != nil {
		return Coordinate{}, err
	}
	lngV, err := parseAxis("longitude", lng)
	if err != nil {
		return Coordinate{}, err
	}
	return ValidateCoordinate(latV, lngV)
}

func parseAxis(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, newValidationError(KindMissingField, field, "is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, newValidationError(KindOutOfRange, field, "%q is not a number", s)
	}
	return v, nil
}

func checkAxis(field string, v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newValidationError(KindOutOfRange, field, "must be a finite number")
	}
	if v < lo || v > hi {
		return newValidationError(KindOutOfRange, field, "must be between %g and %g, got %g", lo, hi, v)
	}
	return nil
}
