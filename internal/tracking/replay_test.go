package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuartshay/walkroute/internal/geo"
)

func TestReplay(t *testing.T) {
	start := time.Date(2026, 1, 24, 9, 0, 0, 0, time.UTC)
	fixes := []Fix{
		{Point: geo.Point{Latitude: 40.7000, Longitude: -74.0000}, At: start},
		{Point: geo.Point{Latitude: 40.7010, Longitude: -74.0000}, At: start.Add(time.Minute)},
		{Point: geo.Point{Latitude: 91, Longitude: 0}, At: start.Add(2 * time.Minute)},
		{Point: geo.Point{Latitude: 40.7020, Longitude: -74.0000}, At: start.Add(3 * time.Minute)},
	}

	stats, track, skipped := Replay(fixes)

	assert.Equal(t, 1, skipped)
	require.Len(t, track, 3)
	assert.Equal(t, StateIdle, stats.State)
	assert.Equal(t, 3, stats.Points)
	assert.Equal(t, 3*time.Minute, stats.Elapsed)
	assert.InDelta(t, geo.PathLength(track), stats.DistanceMeters, 1e-6)
	assert.Equal(t, start, stats.StartedAt)
}

func TestReplay_Empty(t *testing.T) {
	stats, track, skipped := Replay(nil)

	assert.Equal(t, StateIdle, stats.State)
	assert.Empty(t, track)
	assert.Zero(t, skipped)
}
