// Package tracking accumulates a walked track during a session and keeps
// running distance and elapsed-time totals.
package tracking

import (
	"errors"
	"fmt"
	"time"

	"github.com/stuartshay/walkroute/internal/geo"
)

// Tracker errors
var (
	ErrSessionNotStarted = errors.New("tracking session not started")
	ErrNotTracking       = errors.New("not tracking")
)

// State is the tracker lifecycle state
type State string

// Tracker states
const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Stats is a snapshot of the running totals
type Stats struct {
	State          State
	Points         int
	DistanceMeters float64
	Elapsed        time.Duration
	StartedAt      time.Time
}

// DistanceKM returns the distance in kilometers
func (s Stats) DistanceKM() float64 {
	return s.DistanceMeters / 1000
}

// Tracker holds the track of one session. It is not safe for concurrent use;
// callers serialize access.
type Tracker struct {
	now func() time.Time

	state     State
	started   bool
	startedAt time.Time
	stoppedAt time.Time

	points []geo.Point
	total  float64
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the time source used by Reset and Stop
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an idle Tracker
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:   time.Now,
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Reset starts a new session: the track is cleared, the start time recorded
// and the tracker becomes active.
func (t *Tracker) Reset() {
	t.points = t.points[:0]
	t.total = 0
	t.started = true
	t.startedAt = t.now()
	t.stoppedAt = time.Time{}
	t.state = StateActive
}

// Stop ends the active session. Elapsed time is frozen at the stop instant.
func (t *Tracker) Stop() error {
	if t.state != StateActive {
		return ErrNotTracking
	}
	t.stoppedAt = t.now()
	t.state = StateIdle
	return nil
}

// Append adds a point to the track and updates the running distance with
// the leg from the previous last point.
func (t *Tracker) Append(p geo.Point) error {
	if t.state != StateActive {
		return ErrNotTracking
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("append point: %w", err)
	}

	if n := len(t.points); n > 0 {
		t.total += geo.Distance(t.points[n-1], p)
	}
	t.points = append(t.points, p)
	return nil
}

// TotalDistance returns the cumulative track length in meters
func (t *Tracker) TotalDistance() float64 {
	return t.total
}

// Elapsed returns the time since the session started, or the session length
// once stopped.
func (t *Tracker) Elapsed(now time.Time) (time.Duration, error) {
	if !t.started {
		return 0, ErrSessionNotStarted
	}
	end := now
	if t.state == StateIdle && !t.stoppedAt.IsZero() {
		end = t.stoppedAt
	}
	if end.Before(t.startedAt) {
		return 0, nil
	}
	return end.Sub(t.startedAt), nil
}

// State returns the lifecycle state
func (t *Tracker) State() State {
	return t.state
}

// Len returns the number of points in the track
func (t *Tracker) Len() int {
	return len(t.points)
}

// Last returns the most recent point
func (t *Tracker) Last() (geo.Point, bool) {
	if len(t.points) == 0 {
		return geo.Point{}, false
	}
	return t.points[len(t.points)-1], true
}

// Points returns a copy of the track
func (t *Tracker) Points() []geo.Point {
	out := make([]geo.Point, len(t.points))
	copy(out, t.points)
	return out
}

// Stats returns a snapshot of the running totals
func (t *Tracker) Stats(now time.Time) Stats {
	stats := Stats{
		State:          t.state,
		Points:         len(t.points),
		DistanceMeters: t.total,
		StartedAt:      t.startedAt,
	}
	if elapsed, err := t.Elapsed(now); err == nil {
		stats.Elapsed = elapsed
	}
	return stats
}

// FormatElapsed renders a duration as HH:MM:SS
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
