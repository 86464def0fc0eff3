package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/heading"
	"github.com/stuartshay/walkroute/internal/route"
	"github.com/stuartshay/walkroute/internal/tracking"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// withRoute gives s a short generated route so tracking can start
func withRoute(t *testing.T, s *Session) {
	t.Helper()
	origin := geo.Point{Latitude: 0, Longitude: 0}
	waypoint := geo.Point{Latitude: 0.01, Longitude: 0}
	s.SetRoute(&route.RoundTrip{
		Plan:     route.Plan{Origin: origin, Waypoint: waypoint},
		Outbound: &route.Route{Geometry: []geo.Point{origin, waypoint}},
	})
}

func startTracking(t *testing.T, s *Session) {
	t.Helper()
	withRoute(t, s)
	_, err := s.StartTracking()
	require.NoError(t, err)
}

func newTestManager() (*Manager, *testClock) {
	clock := &testClock{t: time.Date(2026, 1, 24, 7, 30, 0, 0, time.UTC)}
	return NewManager(heading.Options{}, WithClock(clock.Now)), clock
}

func TestManager_CreateGetRemove(t *testing.T) {
	m, _ := newTestManager()

	s := m.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Remove(s.ID))
	assert.Zero(t, m.Len())

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Remove(s.ID), ErrSessionNotFound)
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	m, _ := newTestManager()
	a := m.Create()
	b := m.Create()

	startTracking(t, a)
	_, err := a.UpdatePosition(geo.Point{Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	a.IngestHeading(90)

	assert.Equal(t, 1, a.Stats().Points)
	assert.Zero(t, b.Stats().Points)
	assert.Equal(t, 90.0, a.Heading())
	assert.Zero(t, b.Heading())
}

func TestSession_PositionWithoutTracking(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create()

	_, err := s.Position()
	assert.ErrorIs(t, err, ErrNoPosition)

	p := geo.Point{Latitude: 40.736097, Longitude: -74.039373}
	stats, err := s.UpdatePosition(p)
	require.NoError(t, err)
	assert.Equal(t, tracking.StateIdle, stats.State)
	assert.Zero(t, stats.Points)

	got, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestSession_UpdatePositionRejectsInvalid(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create()

	_, err := s.UpdatePosition(geo.Point{Latitude: -100})
	assert.ErrorIs(t, err, geo.ErrOutOfRangeCoordinate)

	_, err = s.Position()
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestSession_TrackingLifecycle(t *testing.T) {
	m, clock := newTestManager()
	s := m.Create()

	startTracking(t, s)
	p1 := geo.Point{Latitude: 0, Longitude: 0}
	p2 := geo.Point{Latitude: 0, Longitude: 0.001}

	_, err := s.UpdatePosition(p1)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	stats, err := s.UpdatePosition(p2)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Points)
	assert.InDelta(t, geo.Distance(p1, p2), stats.DistanceMeters, 1e-9)
	assert.Equal(t, 30*time.Second, stats.Elapsed)

	final, track, err := s.StopTracking()
	require.NoError(t, err)
	assert.Equal(t, tracking.StateIdle, final.State)
	assert.Equal(t, []geo.Point{p1, p2}, track)

	_, _, err = s.StopTracking()
	assert.ErrorIs(t, err, tracking.ErrNotTracking)
}

func TestSession_StartTrackingRequiresRoute(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create()

	_, err := s.StartTracking()
	assert.ErrorIs(t, err, ErrNoRoute)
	assert.Equal(t, tracking.StateIdle, s.Stats().State)

	withRoute(t, s)
	stats, err := s.StartTracking()
	require.NoError(t, err)
	assert.Equal(t, tracking.StateActive, stats.State)
}

func TestSession_CheckRoutable(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create()
	require.NoError(t, s.CheckRoutable())

	startTracking(t, s)
	assert.ErrorIs(t, s.CheckRoutable(), ErrTracking)

	_, _, err := s.StopTracking()
	require.NoError(t, err)
	assert.NoError(t, s.CheckRoutable())
}

func TestSession_Observers(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create()
	withRoute(t, s)

	events, cancel := s.Subscribe(8)
	defer cancel()

	_, err := s.StartTracking()
	require.NoError(t, err)
	_, err = s.UpdatePosition(geo.Point{Latitude: 1, Longitude: 2})
	require.NoError(t, err)
	s.IngestHeading(45)
	s.IngestHeading(45) // below threshold, no event

	ev := <-events
	assert.Equal(t, EventStarted, ev.Type)
	assert.Equal(t, s.ID, ev.SessionID)

	ev = <-events
	assert.Equal(t, EventPosition, ev.Type)
	require.NotNil(t, ev.Position)
	require.NotNil(t, ev.Stats)
	assert.Equal(t, 1, ev.Stats.Points)

	ev = <-events
	assert.Equal(t, EventHeading, ev.Type)
	require.NotNil(t, ev.Heading)
	assert.Equal(t, 45.0, ev.Heading.Heading)

	select {
	case extra := <-events:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestSession_SlowObserverDoesNotBlock(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create()

	_, cancel := s.Subscribe(1)
	defer cancel()

	for i := 0; i < 10; i++ {
		s.IngestHeading(float64(i * 40))
	}
}

func TestSession_CancelAndRemoveCloseChannels(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create()

	a, cancelA := s.Subscribe(1)
	b, cancelB := s.Subscribe(1)
	defer cancelB()

	cancelA()
	cancelA() // idempotent
	_, open := <-a
	assert.False(t, open)

	require.NoError(t, m.Remove(s.ID))
	_, open = <-b
	assert.False(t, open)
}

func TestSession_Route(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create()
	assert.Nil(t, s.Route())

	origin := geo.Point{Latitude: 0, Longitude: 0}
	waypoint := geo.Point{Latitude: 0, Longitude: 0.01}
	trip := &route.RoundTrip{
		Plan:     route.Plan{Origin: origin, Waypoint: waypoint},
		Outbound: &route.Route{Geometry: []geo.Point{origin, waypoint}},
	}

	events, cancel := s.Subscribe(1)
	defer cancel()

	s.SetRoute(trip)
	assert.Same(t, trip, s.Route())

	ev := <-events
	assert.Equal(t, EventRoute, ev.Type)
	assert.Equal(t, []geo.Point{origin, waypoint, origin}, ev.Route)
}

func TestNewStatsView(t *testing.T) {
	view := NewStatsView(tracking.Stats{
		State:          tracking.StateActive,
		Points:         12,
		DistanceMeters: 2345.678,
		Elapsed:        (1*time.Hour + 2*time.Minute + 3*time.Second),
	})

	assert.Equal(t, "2.35", view.DistanceKM)
	assert.Equal(t, "01:02:03", view.Elapsed)
	assert.Equal(t, 3723.0, view.ElapsedSeconds)
	assert.Equal(t, 12, view.Points)
}
