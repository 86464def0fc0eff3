package route

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stuartshay/walkroute/internal/geo"
)

const tracerName = "github.com/stuartshay/walkroute/internal/route"

// RoundTrip is a planned out-and-back route together with the outbound path
type RoundTrip struct {
	Plan     Plan   `json:"plan"`
	Outbound *Route `json:"outbound"`
}

// Path returns the full loop: the outbound path followed by the same path
// walked back to the origin.
func (r *RoundTrip) Path() []geo.Point {
	if r == nil || r.Outbound == nil {
		return nil
	}
	out := r.Outbound.Geometry
	path := make([]geo.Point, 0, 2*len(out))
	path = append(path, out...)
	for i := len(out) - 2; i >= 0; i-- {
		path = append(path, out[i])
	}
	return path
}

// DistanceMeters returns the walked length of the full loop
func (r *RoundTrip) DistanceMeters() float64 {
	if r == nil || r.Outbound == nil {
		return 0
	}
	if r.Outbound.DistanceMeters > 0 {
		return 2 * r.Outbound.DistanceMeters
	}
	return 2 * geo.PathLength(r.Outbound.Geometry)
}

// Generator plans a waypoint and fetches the outbound path from a Provider.
// The provider is called once; failures are not retried.
type Generator struct {
	provider Provider
	rnd      RandomSource
}

// NewGenerator creates a Generator. rnd must be safe for concurrent use if the
// Generator is shared; see NewLockedSource.
func NewGenerator(provider Provider, rnd RandomSource) *Generator {
	return &Generator{provider: provider, rnd: rnd}
}

// Generate plans a round trip from origin and resolves its outbound path
func (g *Generator) Generate(ctx context.Context, origin geo.Point, totalDistanceMeters float64) (*RoundTrip, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "route.Generate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Float64("route.origin.lat", origin.Latitude),
			attribute.Float64("route.origin.lng", origin.Longitude),
		),
	)
	defer span.End()

	plan, err := PlanRoundTrip(origin, totalDistanceMeters, g.rnd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("route.total_distance_m", plan.TotalDistanceMeters),
		attribute.Float64("route.bearing_deg", plan.BearingDegrees),
	)

	log.Debug().
		Str("origin", plan.Origin.String()).
		Str("waypoint", plan.Waypoint.String()).
		Float64("bearing", plan.BearingDegrees).
		Msg("Round trip planned")

	outbound, err := g.provider.Route(ctx, plan.Origin, plan.Waypoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failed")
		return nil, fmt.Errorf("%w: %w", ErrRouteUnavailable, err)
	}
	if outbound == nil || len(outbound.Geometry) == 0 {
		span.SetStatus(codes.Error, "empty geometry")
		return nil, fmt.Errorf("%w: provider returned no geometry", ErrRouteUnavailable)
	}

	return &RoundTrip{Plan: plan, Outbound: outbound}, nil
}
