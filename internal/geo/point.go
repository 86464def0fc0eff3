// Package geo provides the geodetic primitives used by route planning and
// track accumulation: great-circle distance via the Haversine formula and the
// spherical forward (destination) problem, both on the same mean Earth radius.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRangeCoordinate is returned when a latitude or longitude falls
// outside its geodetic range.
var ErrOutOfRangeCoordinate = errors.New("coordinate out of range")

// Point is a geodetic position in decimal degrees
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// NewPoint returns a validated Point
func NewPoint(lat, lon float64) (Point, error) {
	p := Point{Latitude: lat, Longitude: lon}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Validate reports whether the point lies within [-90,90] x [-180,180].
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrOutOfRangeCoordinate, p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrOutOfRangeCoordinate, p.Longitude)
	}
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

// DegreesToRadians converts degrees to radians
func DegreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadiansToDegrees converts radians to degrees
func RadiansToDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// NormalizeBearing maps any bearing in degrees into [0,360).
func NormalizeBearing(degrees float64) float64 {
	b := math.Mod(degrees, 360)
	if b < 0 {
		b += 360
	}
	if b >= 360 {
		b = 0
	}
	return b
}
