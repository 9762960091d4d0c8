// ABOUTME: Time-based parameter values for sound control
// ABOUTME: Static scalars and breakpoint envelopes with linear/jump interpolation
package param

import (
	"fmt"
	"sort"
)

// Interpolation describes how a breakpoint is reached from the previous one.
type Interpolation string

const (
	InterpLinear Interpolation = "linear"
	InterpJump   Interpolation = "jump"
)

// Breakpoint is a value at a point in time.
type Breakpoint struct {
	Time          float64 // Seconds since the sound's start
	Value         float64
	Interpolation Interpolation
}

// Param is a parameter value that may vary over time.
type Param interface {
	// ValueAt returns the parameter value at the given elapsed time.
	ValueAt(elapsed float64) float64

	// Constant reports whether the value never changes.
	Constant() bool

	// SettledAfter returns the elapsed time after which the value is constant.
	SettledAfter() float64
}

// Static is a parameter that never changes.
type Static float64

func (s Static) ValueAt(elapsed float64) float64 { return float64(s) }
func (s Static) Constant() bool                  { return true }
func (s Static) SettledAfter() float64           { return 0 }

// Envelope interpolates between breakpoints over time.
//
// Evaluation is stateless: the value at any time is derived from the
// breakpoints alone, so repeated queries accumulate no error.
type Envelope struct {
	points []Breakpoint
}

// NewEnvelope creates an envelope from breakpoints, sorting them by time.
func NewEnvelope(points []Breakpoint) (*Envelope, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("envelope requires at least one breakpoint")
	}

	sorted := make([]Breakpoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	return &Envelope{points: sorted}, nil
}

// ValueAt returns the interpolated value at the given elapsed time.
//
// Before the first breakpoint the first value holds; after the last
// breakpoint the last value holds. Between breakpoints the value follows
// the later breakpoint's interpolation mode: linear blends toward it,
// jump holds the earlier value until the breakpoint time is reached.
func (e *Envelope) ValueAt(elapsed float64) float64 {
	first := e.points[0]
	last := e.points[len(e.points)-1]

	if elapsed <= first.Time {
		return first.Value
	}
	if elapsed >= last.Time {
		return last.Value
	}

	for i := 0; i < len(e.points)-1; i++ {
		a := e.points[i]
		b := e.points[i+1]

		if a.Time <= elapsed && elapsed < b.Time {
			if b.Interpolation == InterpJump {
				return a.Value
			}
			t := (elapsed - a.Time) / (b.Time - a.Time)
			return a.Value + t*(b.Value-a.Value)
		}
	}

	return last.Value
}

// Constant reports whether the envelope can never change value.
func (e *Envelope) Constant() bool {
	return len(e.points) <= 1
}

// SettledAfter returns the time of the last breakpoint.
func (e *Envelope) SettledAfter() float64 {
	return e.points[len(e.points)-1].Time
}

// Points returns the sorted breakpoints.
func (e *Envelope) Points() []Breakpoint {
	return e.points
}
