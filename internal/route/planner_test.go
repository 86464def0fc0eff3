package route

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuartshay/walkroute/internal/geo"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

var home = geo.Point{Latitude: 40.736097, Longitude: -74.039373}

func TestPlanRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		draw    float64
		bearing float64
	}{
		{name: "north", draw: 0, bearing: 0},
		{name: "east", draw: 0.25, bearing: 90},
		{name: "south", draw: 0.5, bearing: 180},
		{name: "west", draw: 0.75, bearing: 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanRoundTrip(home, 5000, fixedSource(tt.draw))
			require.NoError(t, err)

			assert.InDelta(t, tt.bearing, plan.BearingDegrees, 1e-9)
			assert.Equal(t, home, plan.Origin)
			assert.Equal(t, 5000.0, plan.TotalDistanceMeters)
			assert.InDelta(t, 2500, geo.Distance(home, plan.Waypoint), 0.01)

			expected := geo.Destination(home, tt.bearing, 2500)
			assert.InDelta(t, expected.Latitude, plan.Waypoint.Latitude, 1e-9)
			assert.InDelta(t, expected.Longitude, plan.Waypoint.Longitude, 1e-9)
		})
	}
}

func TestPlanRoundTrip_DeterministicWithSeed(t *testing.T) {
	a, err := PlanRoundTrip(home, 8000, rand.New(rand.NewPCG(42, 7)))
	require.NoError(t, err)
	b, err := PlanRoundTrip(home, 8000, rand.New(rand.NewPCG(42, 7)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.InDelta(t, 4000, geo.Distance(home, a.Waypoint), 0.01)
}

func TestPlanRoundTrip_InvalidDistance(t *testing.T) {
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := PlanRoundTrip(home, d, fixedSource(0.1))
		assert.ErrorIs(t, err, ErrInvalidDistance, "distance %v", d)
	}
}

func TestPlanRoundTrip_InvalidOrigin(t *testing.T) {
	_, err := PlanRoundTrip(geo.Point{Latitude: 100}, 1000, fixedSource(0.1))
	assert.ErrorIs(t, err, geo.ErrOutOfRangeCoordinate)
}

func TestPlanRoundTrip_NearAntimeridian(t *testing.T) {
	origin := geo.Point{Latitude: -16.5, Longitude: 179.99}
	plan, err := PlanRoundTrip(origin, 10000, fixedSource(0.25))
	require.NoError(t, err)

	assert.NoError(t, plan.Waypoint.Validate())
	assert.Less(t, plan.Waypoint.Longitude, 0.0)
	assert.InDelta(t, 5000, geo.Distance(origin, plan.Waypoint), 0.01)
}

func TestLockedSource_Concurrent(t *testing.T) {
	src := NewLockedSource(rand.New(rand.NewPCG(1, 2)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := src.Float64()
				assert.GreaterOrEqual(t, v, 0.0)
				assert.Less(t, v, 1.0)
			}
		}()
	}
	wg.Wait()
}
