// Package session owns the per-user state of the walk tracker: one track
// accumulator, one heading filter, the last known position and the latest
// generated route. Each Session serializes access to that state and publishes
// events to its observers.
package session

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/heading"
	"github.com/stuartshay/walkroute/internal/route"
	"github.com/stuartshay/walkroute/internal/tracking"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoPosition      = errors.New("no position known for session")
	ErrNoRoute         = errors.New("no route generated for session")
	ErrTracking        = errors.New("session is tracking")
)

// EventType identifies the kind of session event
type EventType string

// Event types
const (
	EventHeading  EventType = "heading"
	EventPosition EventType = "position"
	EventStarted  EventType = "tracking_started"
	EventStopped  EventType = "tracking_stopped"
	EventRoute    EventType = "route"
)

// Event is delivered to session observers
type Event struct {
	Type      EventType            `json:"type"`
	SessionID string               `json:"session_id"`
	At        time.Time            `json:"at"`
	Heading   *heading.ChangeEvent `json:"heading,omitempty"`
	Position  *geo.Point           `json:"position,omitempty"`
	Stats     *StatsView           `json:"stats,omitempty"`
	Route     []geo.Point          `json:"route,omitempty"`
}

// StatsView is the presentation form of tracking.Stats
type StatsView struct {
	State          tracking.State `json:"state"`
	Points         int            `json:"points"`
	DistanceMeters float64        `json:"distance_meters"`
	DistanceKM     string         `json:"distance_km"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	Elapsed        string         `json:"elapsed"`
}

// NewStatsView formats tracker stats the way the map client displays them
func NewStatsView(s tracking.Stats) StatsView {
	return StatsView{
		State:          s.State,
		Points:         s.Points,
		DistanceMeters: s.DistanceMeters,
		DistanceKM:     formatKM(s.DistanceKM()),
		ElapsedSeconds: s.Elapsed.Seconds(),
		Elapsed:        tracking.FormatElapsed(s.Elapsed),
	}
}

// Session is one user's tracking session
type Session struct {
	ID        string
	CreatedAt time.Time

	now func() time.Time

	mu       sync.Mutex
	tracker  *tracking.Tracker
	filter   *heading.Filter
	position *geo.Point
	trip     *route.RoundTrip

	obsMu     sync.Mutex
	observers map[chan Event]struct{}
}

func newSession(id string, opts heading.Options, now func() time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now(),
		now:       now,
		tracker:   tracking.NewTracker(tracking.WithClock(now)),
		filter:    heading.NewFilter(opts),
		observers: make(map[chan Event]struct{}),
	}
}

// UpdatePosition records the latest fix. While tracking it is also appended
// to the track.
func (s *Session) UpdatePosition(p geo.Point) (tracking.Stats, error) {
	if err := p.Validate(); err != nil {
		return tracking.Stats{}, err
	}

	s.mu.Lock()
	s.position = &p
	if s.tracker.State() == tracking.StateActive {
		if err := s.tracker.Append(p); err != nil {
			s.mu.Unlock()
			return tracking.Stats{}, err
		}
	}
	stats := s.tracker.Stats(s.now())
	s.mu.Unlock()

	view := NewStatsView(stats)
	s.publish(Event{Type: EventPosition, Position: &p, Stats: &view})

	return stats, nil
}

// IngestHeading feeds a raw compass sample through the heading filter
func (s *Session) IngestHeading(raw float64) (heading.ChangeEvent, bool) {
	s.mu.Lock()
	ev, ok := s.filter.Ingest(raw)
	s.mu.Unlock()

	if ok {
		s.publish(Event{Type: EventHeading, Heading: &ev})
	}
	return ev, ok
}

// Heading returns the last emitted smoothed heading
func (s *Session) Heading() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Heading()
}

// StartTracking clears the track and starts a new tracking run. A route
// must have been generated first.
func (s *Session) StartTracking() (tracking.Stats, error) {
	s.mu.Lock()
	if s.trip == nil {
		s.mu.Unlock()
		return tracking.Stats{}, ErrNoRoute
	}
	s.tracker.Reset()
	stats := s.tracker.Stats(s.now())
	s.mu.Unlock()

	view := NewStatsView(stats)
	s.publish(Event{Type: EventStarted, Stats: &view})
	return stats, nil
}

// CheckRoutable reports whether a new route may be requested. Routes cannot
// be replaced while a tracking run is in progress.
func (s *Session) CheckRoutable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker.State() == tracking.StateActive {
		return ErrTracking
	}
	return nil
}

// StopTracking ends the tracking run and returns the final stats and the
// completed track
func (s *Session) StopTracking() (tracking.Stats, []geo.Point, error) {
	s.mu.Lock()
	if err := s.tracker.Stop(); err != nil {
		s.mu.Unlock()
		return tracking.Stats{}, nil, err
	}
	stats := s.tracker.Stats(s.now())
	points := s.tracker.Points()
	s.mu.Unlock()

	view := NewStatsView(stats)
	s.publish(Event{Type: EventStopped, Stats: &view, Route: points})
	return stats, points, nil
}

// Stats returns the running totals
func (s *Session) Stats() tracking.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Stats(s.now())
}

// Position returns the last known position
func (s *Session) Position() (geo.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == nil {
		return geo.Point{}, ErrNoPosition
	}
	return *s.position, nil
}

// SetRoute stores the latest generated route
func (s *Session) SetRoute(trip *route.RoundTrip) {
	s.mu.Lock()
	s.trip = trip
	s.mu.Unlock()

	s.publish(Event{Type: EventRoute, Route: trip.Path()})
}

// Route returns the latest generated route, if any
func (s *Session) Route() *route.RoundTrip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trip
}

// Subscribe registers an observer. The returned cancel function must be
// called to release it. Events are dropped for observers that fall behind.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.obsMu.Lock()
	s.observers[ch] = struct{}{}
	s.obsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.obsMu.Lock()
			if _, ok := s.observers[ch]; ok {
				delete(s.observers, ch)
				close(ch)
			}
			s.obsMu.Unlock()
		})
	}
}

func (s *Session) closeObservers() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for ch := range s.observers {
		delete(s.observers, ch)
		close(ch)
	}
}

func (s *Session) publish(ev Event) {
	ev.SessionID = s.ID
	ev.At = s.now()

	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for ch := range s.observers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func formatKM(km float64) string {
	return strconv.FormatFloat(km, 'f', 2, 64)
}
