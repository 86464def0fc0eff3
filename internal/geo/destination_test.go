package geo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDestination_ZeroDistance(t *testing.T) {
	origin := Point{Latitude: 40.736097, Longitude: -74.039373}

	for _, bearing := range []float64{0, 45, 90, 135, 180, 225, 270, 315, 359.9} {
		got := Destination(origin, bearing, 0)
		assert.InDelta(t, origin.Latitude, got.Latitude, 1e-12)
		assert.InDelta(t, origin.Longitude, got.Longitude, 1e-12)
	}
}

func TestDestination_RoundTripDistance(t *testing.T) {
	origins := []Point{
		{Latitude: 40.736097, Longitude: -74.039373},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 0, Longitude: 179.9},
		{Latitude: 85, Longitude: -10},
	}
	distances := []float64{1, 250, 5000, 1_000_000, 10_000_000, 20_000_000}

	for _, origin := range origins {
		for bearing := 0.0; bearing < 360; bearing += 30 {
			for _, d := range distances {
				name := fmt.Sprintf("%s/%.0f/%.0f", origin, bearing, d)
				t.Run(name, func(t *testing.T) {
					dest := Destination(origin, bearing, d)
					assert.NoError(t, dest.Validate())
					assert.InDelta(t, d, Distance(origin, dest), 1.0)
				})
			}
		}
	}
}

func TestDestination_KnownBearings(t *testing.T) {
	origin := Point{Latitude: 0, Longitude: 0}
	oneDegree := DegreesToRadians(1) * EarthRadiusMeters

	north := Destination(origin, 0, oneDegree)
	assert.InDelta(t, 1.0, north.Latitude, 1e-9)
	assert.InDelta(t, 0.0, north.Longitude, 1e-9)

	east := Destination(origin, 90, oneDegree)
	assert.InDelta(t, 0.0, east.Latitude, 1e-9)
	assert.InDelta(t, 1.0, east.Longitude, 1e-9)

	south := Destination(origin, 180, oneDegree)
	assert.InDelta(t, -1.0, south.Latitude, 1e-9)

	west := Destination(origin, 270, oneDegree)
	assert.InDelta(t, -1.0, west.Longitude, 1e-9)
}

func TestDestination_WrapsAntimeridian(t *testing.T) {
	origin := Point{Latitude: 0, Longitude: 179.5}
	dest := Destination(origin, 90, DegreesToRadians(1)*EarthRadiusMeters)

	assert.InDelta(t, -179.5, dest.Longitude, 1e-9)
	assert.NoError(t, dest.Validate())
}

func TestDestination_CrossesPole(t *testing.T) {
	origin := Point{Latitude: 89, Longitude: 0}
	// 2 degrees due north goes over the pole and down the 180th meridian
	dest := Destination(origin, 0, DegreesToRadians(2)*EarthRadiusMeters)

	assert.InDelta(t, 89.0, dest.Latitude, 1e-6)
	assert.InDelta(t, 180.0, abs(dest.Longitude), 1e-6)
	assert.NoError(t, dest.Validate())
}

func TestWrapLongitude(t *testing.T) {
	tests := []struct {
		in, expected float64
	}{
		{0, 0},
		{179, 179},
		{181, -179},
		{-181, 179},
		{540, -180},
		{-720, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, WrapLongitude(tt.in), 1e-9, "WrapLongitude(%v)", tt.in)
	}
}

func TestNormalizeBearing(t *testing.T) {
	tests := []struct {
		in, expected float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{725, 5},
		{359.5, 359.5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, NormalizeBearing(tt.in), 1e-9, "NormalizeBearing(%v)", tt.in)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
