package route

import (
	"context"

	"github.com/stuartshay/walkroute/internal/geo"
)

// Route is the walkable path returned by a routing provider
type Route struct {
	Geometry        []geo.Point `json:"geometry"`
	DistanceMeters  float64     `json:"distance_meters"`
	DurationSeconds float64     `json:"duration_seconds"`
}

// Provider computes a walkable path between two points
type Provider interface {
	Route(ctx context.Context, origin, destination geo.Point) (*Route, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, origin, destination geo.Point) (*Route, error)

// Route implements Provider
func (f ProviderFunc) Route(ctx context.Context, origin, destination geo.Point) (*Route, error) {
	return f(ctx, origin, destination)
}
