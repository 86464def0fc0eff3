// Package route plans round-trip walking routes: it picks a random bearing,
// places a turnaround waypoint at half the requested distance and asks a
// routing provider for the walkable path to it.
package route

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/stuartshay/walkroute/internal/geo"
)

// Planner errors
var (
	ErrInvalidDistance  = errors.New("route distance must be greater than zero")
	ErrRouteUnavailable = errors.New("route unavailable")
)

// RandomSource supplies uniform values in [0,1). *math/rand/v2.Rand
// satisfies it.
type RandomSource interface {
	Float64() float64
}

// Plan is the turnaround waypoint for an out-and-back route
type Plan struct {
	Origin              geo.Point `json:"origin"`
	Waypoint            geo.Point `json:"waypoint"`
	BearingDegrees      float64   `json:"bearing_degrees"`
	TotalDistanceMeters float64   `json:"total_distance_meters"`
}

// PlanRoundTrip draws a bearing uniformly from [0, 2π) and places the
// waypoint half of totalDistanceMeters away from origin along it.
func PlanRoundTrip(origin geo.Point, totalDistanceMeters float64, rnd RandomSource) (Plan, error) {
	if math.IsNaN(totalDistanceMeters) || math.IsInf(totalDistanceMeters, 0) || totalDistanceMeters <= 0 {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidDistance, totalDistanceMeters)
	}
	if err := origin.Validate(); err != nil {
		return Plan{}, fmt.Errorf("plan round trip: %w", err)
	}

	theta := rnd.Float64() * 2 * math.Pi
	bearing := geo.NormalizeBearing(geo.RadiansToDegrees(theta))

	return Plan{
		Origin:              origin,
		Waypoint:            geo.Destination(origin, bearing, totalDistanceMeters/2),
		BearingDegrees:      bearing,
		TotalDistanceMeters: totalDistanceMeters,
	}, nil
}

// LockedSource serializes access to a RandomSource shared between goroutines
type LockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

// NewLockedSource wraps src
func NewLockedSource(src RandomSource) *LockedSource {
	return &LockedSource{src: src}
}

// Float64 implements RandomSource
func (l *LockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
