// ABOUTME: Waveform generator source (sine, square, triangle, saw)
// ABOUTME: Phase-accumulating oscillator with an optional bounded duration
package source

import (
	"fmt"
	"math"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
)

// Shape selects the generated waveform.
type Shape string

const (
	ShapeSine     Shape = "sine"
	ShapeSquare   Shape = "square"
	ShapeTriangle Shape = "triangle"
	ShapeSaw      Shape = "saw"
)

// Waveform generates a periodic waveform at a fixed frequency. With a
// bounded duration the source ends after durationFrames; otherwise it
// runs forever (a looping caller sees cycle boundaries at duration or,
// unbounded, never).
type Waveform struct {
	shape          Shape
	frequency      float64
	phase          float64 // cycle position in [0, 1)
	framesRead     int
	durationFrames int // -1 for unbounded
}

// NewWaveform creates a generator. durationSeconds of 0 means unbounded.
func NewWaveform(shape Shape, frequency, durationSeconds float64) (*Waveform, error) {
	switch shape {
	case ShapeSine, ShapeSquare, ShapeTriangle, ShapeSaw:
	default:
		return nil, fmt.Errorf("unknown waveform shape %q", shape)
	}
	if frequency <= 0 {
		return nil, fmt.Errorf("waveform frequency must be positive, got %v", frequency)
	}

	durationFrames := -1
	if durationSeconds > 0 {
		durationFrames = int(audio.SecondsToFrames(durationSeconds))
	}

	return &Waveform{
		shape:          shape,
		frequency:      frequency,
		durationFrames: durationFrames,
	}, nil
}

func (w *Waveform) Read(buf []float32) int {
	frames := len(buf)
	if w.durationFrames >= 0 {
		remaining := w.durationFrames - w.framesRead
		if remaining <= 0 {
			return 0
		}
		if frames > remaining {
			frames = remaining
		}
	}

	step := w.frequency / float64(audio.SampleRate)
	for i := 0; i < frames; i++ {
		buf[i] = sampleShape(w.shape, w.phase)
		w.phase += step
		if w.phase >= 1 {
			w.phase -= math.Floor(w.phase)
		}
	}

	w.framesRead += frames
	return frames
}

func (w *Waveform) Reset() {
	w.phase = 0
	w.framesRead = 0
}

func (w *Waveform) Length() int {
	return w.durationFrames
}

func sampleShape(shape Shape, phase float64) float32 {
	switch shape {
	case ShapeSine:
		return float32(math.Sin(2 * math.Pi * phase))
	case ShapeSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case ShapeTriangle:
		// Rises 0..1 over the first quarter, falls to -1 by the third,
		// returns to 0 at the end of the cycle.
		if phase < 0.25 {
			return float32(4 * phase)
		}
		if phase < 0.75 {
			return float32(2 - 4*phase)
		}
		return float32(4*phase - 4)
	case ShapeSaw:
		return float32(2*phase - 1)
	default:
		return 0
	}
}
