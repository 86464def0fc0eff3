package tracking

import (
	"time"

	"github.com/stuartshay/walkroute/internal/geo"
)

// Fix is a recorded position with its capture time
type Fix struct {
	Point geo.Point
	At    time.Time
}

// Replay runs recorded fixes through a fresh Tracker as if they had been
// received live, starting at the first fix and stopping at the last one.
// Fixes with invalid coordinates are skipped and counted.
func Replay(fixes []Fix) (Stats, []geo.Point, int) {
	if len(fixes) == 0 {
		return Stats{State: StateIdle}, nil, 0
	}

	now := fixes[0].At
	t := NewTracker(WithClock(func() time.Time { return now }))
	t.Reset()

	skipped := 0
	for _, f := range fixes {
		if f.At.After(now) {
			now = f.At
		}
		if err := t.Append(f.Point); err != nil {
			skipped++
		}
	}

	_ = t.Stop()
	return t.Stats(now), t.Points(), skipped
}
