// ABOUTME: One-pole low-pass filter node for the render thread
// ABOUTME: Lock-free wet-mix gain handoff with fixed-length intra-block smoothing
package dsp

import (
	"math"
	"sync/atomic"
)

// LowPass filters a mono stream through a one-pole low-pass section and
// blends the result with the dry signal. A wet gain of 0 passes the
// input unchanged; 1 is fully filtered. The cutoff is fixed at creation.
//
// Like Panner, the gain target is handed from the control thread to the
// render thread through a single atomic scalar, and Process never
// blocks, locks, or allocates. The filter state advances even at gain 0
// so raising the gain later blends in a warmed-up signal instead of a
// transient.
type LowPass struct {
	gainBits atomic.Uint64

	// Render-thread state.
	coeff         float64
	state         float64
	prevTarget    float64
	current       float64
	increment     float64
	rampRemaining int
}

// NewLowPass creates a filter with the given cutoff frequency at the
// given sample rate and an initial wet gain.
func NewLowPass(cutoff float64, sampleRate int, initialGain float64) *LowPass {
	initialGain = clampUnit(initialGain)
	f := &LowPass{
		coeff:      1 - math.Exp(-2*math.Pi*cutoff/float64(sampleRate)),
		prevTarget: initialGain,
		current:    initialGain,
	}
	f.gainBits.Store(math.Float64bits(initialGain))
	return f
}

// SetGain sets the desired wet gain in [0, 1]. Safe to call from any
// thread; values outside the range are clamped.
func (f *LowPass) SetGain(gain float64) {
	f.gainBits.Store(math.Float64bits(clampUnit(gain)))
}

// Gain returns the most recently set wet gain target.
func (f *LowPass) Gain() float64 {
	return math.Float64frombits(f.gainBits.Load())
}

// Process filters one mono block in place.
//
// Gain changes ramp linearly over RampSamples, snapping exactly to the
// target at the end of the ramp.
func (f *LowPass) Process(buf []float32) {
	if len(buf) == 0 {
		return
	}

	target := math.Float64frombits(f.gainBits.Load())
	if target != f.prevTarget && f.rampRemaining == 0 {
		f.rampRemaining = RampSamples
		f.increment = (target - f.current) / RampSamples
		f.prevTarget = target
	}

	for i, sample := range buf {
		if f.rampRemaining > 0 {
			f.current += f.increment
			f.rampRemaining--
			if f.rampRemaining == 0 {
				f.current = f.prevTarget
			}
		}

		dry := float64(sample)
		f.state += f.coeff * (dry - f.state)
		buf[i] = float32(dry + f.current*(f.state-dry))
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
