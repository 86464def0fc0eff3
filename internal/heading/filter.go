// Package heading smooths noisy compass samples into a stable heading and
// reports edge-triggered change events when the smoothed value moves by more
// than a threshold.
package heading

import (
	"math"

	"github.com/stuartshay/walkroute/internal/geo"
)

// Default filter parameters
const (
	DefaultSize      = 5
	DefaultThreshold = 5.0 // degrees
)

// Mode selects how the buffer is averaged
type Mode string

const (
	// ModeLinear averages raw degree values. Samples straddling 0°/360°
	// average toward 180°, which matches the behavior of the browser client.
	ModeLinear Mode = "linear"
	// ModeCircular averages unit vectors and reports shortest signed deltas.
	ModeCircular Mode = "circular"
)

// Options configures a Filter. Zero values fall back to the defaults.
type Options struct {
	Size      int
	Threshold float64
	Mode      Mode
}

// ChangeEvent is emitted when the smoothed heading moves past the threshold
type ChangeEvent struct {
	Heading float64 `json:"heading"`
	Delta   float64 `json:"delta"`
	Seq     uint64  `json:"seq"`
}

// Filter holds the rolling sample window and the last emitted heading.
// It is not safe for concurrent use.
type Filter struct {
	size      int
	threshold float64
	mode      Mode

	buf   []float64
	next  int
	count int

	previous float64
	seq      uint64
}

// NewFilter creates a Filter
func NewFilter(opts Options) *Filter {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Mode != ModeCircular {
		opts.Mode = ModeLinear
	}

	return &Filter{
		size:      opts.Size,
		threshold: opts.Threshold,
		mode:      opts.Mode,
		buf:       make([]float64, opts.Size),
	}
}

// Ingest pushes a raw heading in degrees [0,360) and returns a ChangeEvent
// when the smoothed heading differs from the last emitted one by more than
// the threshold. Non-finite samples are dropped.
func (f *Filter) Ingest(raw float64) (ChangeEvent, bool) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return ChangeEvent{}, false
	}

	f.push(raw)
	smoothed := f.Smoothed()

	delta := f.delta(smoothed, f.previous)
	if math.Abs(delta) <= f.threshold {
		return ChangeEvent{}, false
	}

	f.previous = smoothed
	f.seq++

	return ChangeEvent{Heading: smoothed, Delta: delta, Seq: f.seq}, true
}

// Smoothed returns the mean of the buffered samples, or 0 when empty
func (f *Filter) Smoothed() float64 {
	if f.count == 0 {
		return 0
	}

	if f.mode == ModeCircular {
		var sinSum, cosSum float64
		for i := 0; i < f.count; i++ {
			r := geo.DegreesToRadians(f.buf[i])
			sinSum += math.Sin(r)
			cosSum += math.Cos(r)
		}
		return geo.NormalizeBearing(geo.RadiansToDegrees(math.Atan2(sinSum, cosSum)))
	}

	var sum float64
	for i := 0; i < f.count; i++ {
		sum += f.buf[i]
	}
	return sum / float64(f.count)
}

// Heading returns the last emitted heading
func (f *Filter) Heading() float64 {
	return f.previous
}

// Len returns the number of buffered samples
func (f *Filter) Len() int {
	return f.count
}

// Reset clears the buffer and the emitted heading
func (f *Filter) Reset() {
	f.next = 0
	f.count = 0
	f.previous = 0
	f.seq = 0
}

func (f *Filter) push(v float64) {
	f.buf[f.next] = v
	f.next = (f.next + 1) % f.size
	if f.count < f.size {
		f.count++
	}
}

func (f *Filter) delta(smoothed, previous float64) float64 {
	d := smoothed - previous
	if f.mode != ModeCircular {
		return d
	}
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}
