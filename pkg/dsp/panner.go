// ABOUTME: Equal-power panner node for the render thread
// ABOUTME: Lock-free pan target handoff with fixed-length intra-block smoothing
package dsp

import (
	"math"
	"sync/atomic"
)

// RampSamples is the length of the linear smoothing ramp applied when the
// pan target changes. At 44.1kHz this is about 5.8ms, short enough to be
// inaudible as movement but long enough to avoid clicks.
const RampSamples = 256

// Panner converts a mono stream to stereo using the constant-power pan law.
//
// The target pan is written by the control thread via SetTarget and read
// by the render thread in Process through a single atomic scalar. Process
// never blocks, locks, or allocates. All other state is owned by the
// render thread.
type Panner struct {
	targetBits atomic.Uint64

	// Render-thread state.
	prevTarget    float64
	current       float64
	increment     float64
	rampRemaining int
}

// NewPanner creates a panner at the given initial pan position.
func NewPanner(initial float64) *Panner {
	initial = clampPan(initial)
	p := &Panner{
		prevTarget: initial,
		current:    initial,
	}
	p.targetBits.Store(math.Float64bits(initial))
	return p
}

// SetTarget sets the desired pan position in [-1, 1]. Safe to call from
// any thread; values outside the range are clamped.
func (p *Panner) SetTarget(pan float64) {
	p.targetBits.Store(math.Float64bits(clampPan(pan)))
}

// Target returns the most recently set pan target.
func (p *Panner) Target() float64 {
	return math.Float64frombits(p.targetBits.Load())
}

// Gains returns the constant-power left/right gains for a pan position.
// left²+right² = 1 for all pan in [-1, 1].
func Gains(pan float64) (left, right float64) {
	theta := (pan + 1) * 0.25 * math.Pi
	return math.Cos(theta), math.Sin(theta)
}

// Process renders one block: in holds mono frames, out receives
// interleaved stereo and must be exactly twice as long.
//
// If the target changed since the last block and no ramp is running, a
// fixed-length linear ramp toward the new target begins. At the end of a
// ramp the pan snaps exactly to the target so repeated increments cannot
// drift.
func (p *Panner) Process(in []float32, out []float32) {
	if len(in) == 0 {
		return
	}

	target := math.Float64frombits(p.targetBits.Load())
	if target != p.prevTarget && p.rampRemaining == 0 {
		p.rampRemaining = RampSamples
		p.increment = (target - p.current) / RampSamples
		p.prevTarget = target
	}

	for i, sample := range in {
		if p.rampRemaining > 0 {
			p.current += p.increment
			p.rampRemaining--
			if p.rampRemaining == 0 {
				p.current = p.prevTarget
			}
		}

		left, right := Gains(p.current)
		out[i*2] = sample * float32(left)
		out[i*2+1] = sample * float32(right)
	}
}

func clampPan(pan float64) float64 {
	if pan < -1 {
		return -1
	}
	if pan > 1 {
		return 1
	}
	return pan
}
