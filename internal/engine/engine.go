// ABOUTME: Mixing engine that renders voices into the output device
// ABOUTME: Owns the frame clock and the set of live voices
package engine

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"github.com/Factorio-Access/launcher-audio/pkg/audio/output"
	"github.com/Factorio-Access/launcher-audio/pkg/audio/source"
)

// maxBlockFrames bounds the per-voice scratch buffers. Larger device
// periods are rendered in chunks of this size.
const maxBlockFrames = 8192

// Config configures the engine.
type Config struct {
	// Device selects the output backend: "malgo" (default), "oto", or
	// "none" for headless operation (tests, offline rendering).
	Device string
}

// Engine mixes voices into interleaved stereo float32 blocks and tracks
// absolute engine time as frames rendered. It is the registry's audio
// backend.
type Engine struct {
	out output.Output

	mu     sync.Mutex
	voices []*Voice

	clock  atomic.Int64 // frames rendered since start
	closed bool
}

// NewEngine creates an engine and, unless headless, opens the output
// device. Device failures here are fatal to the owning process.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{}

	switch cfg.Device {
	case "none":
		// Headless: time advances only through ReadFrames.
	case "oto":
		e.out = output.NewOto()
	case "", "malgo":
		e.out = output.NewMalgo()
	default:
		return nil, fmt.Errorf("unknown output device %q", cfg.Device)
	}

	if e.out != nil {
		if err := e.out.Start(e.renderBlock); err != nil {
			return nil, fmt.Errorf("failed to start audio output: %w", err)
		}
	}

	return e, nil
}

// SampleRate returns the engine sample rate.
func (e *Engine) SampleRate() int {
	return audio.SampleRate
}

// NowFrames returns the absolute engine time in frames.
func (e *Engine) NowFrames() int64 {
	return e.clock.Load()
}

// Now returns the absolute engine time in seconds.
func (e *Engine) Now() float64 {
	return audio.FramesToSeconds(e.clock.Load())
}

// CreateVoice adds a voice for the given source. The voice is silent
// until Start or ScheduleStart is called, so it can be configured
// without racing the render thread.
func (e *Engine) CreateVoice(src source.Source, opts VoiceOptions) (*Voice, error) {
	if src == nil {
		return nil, fmt.Errorf("voice requires a source")
	}

	v := newVoice(e, src, opts)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine is closed")
	}
	e.voices = append(e.voices, v)
	e.mu.Unlock()

	return v, nil
}

// removeVoice detaches a destroyed voice from the mix.
func (e *Engine) removeVoice(v *Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, cur := range e.voices {
		if cur == v {
			e.voices = append(e.voices[:i], e.voices[i+1:]...)
			return
		}
	}
}

// VoiceCount returns the number of live voices.
func (e *Engine) VoiceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// renderBlock fills out with the mixed output of all voices and advances
// the engine clock. Called from the output device's render thread, or
// from ReadFrames in headless mode.
func (e *Engine) renderBlock(out []float32) {
	for i := range out {
		out[i] = 0
	}

	frames := len(out) / audio.OutputChannels
	done := 0
	for done < frames {
		n := frames - done
		if n > maxBlockFrames {
			n = maxBlockFrames
		}
		blockStart := e.clock.Load()
		chunk := out[done*audio.OutputChannels : (done+n)*audio.OutputChannels]

		e.mu.Lock()
		for _, v := range e.voices {
			v.render(chunk, blockStart, n)
		}
		e.mu.Unlock()

		e.clock.Add(int64(n))
		done += n
	}
}

// ReadFrames renders directly into buf (interleaved stereo), advancing
// engine time. Only valid in headless mode.
func (e *Engine) ReadFrames(buf []float32) {
	e.renderBlock(buf)
}

// Close stops the output device and drops all voices.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	count := len(e.voices)
	e.voices = nil
	e.mu.Unlock()

	if count > 0 {
		log.Printf("Engine closing with %d live voices", count)
	}

	if e.out != nil {
		return e.out.Close()
	}
	return nil
}
