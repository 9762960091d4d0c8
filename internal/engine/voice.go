// ABOUTME: A single playing sound inside the engine mix
// ABOUTME: Pulls mono source frames, applies rate/gain/fade/filter, pans to stereo
package engine

import (
	"math"
	"sync/atomic"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"github.com/Factorio-Access/launcher-audio/pkg/audio/source"
	"github.com/Factorio-Access/launcher-audio/pkg/dsp"
)

// gainRampFrames is the smoothing window for volume changes, about 50ms
// at the engine rate. Pan smoothing is handled by the panner node.
const gainRampFrames = 2205

// fetchFrames is the chunk size for pulling source frames when the
// playback rate requires resampling.
const fetchFrames = 512

// VoiceOptions seeds a voice's parameters before its first rendered
// frame, avoiding an audible ramp from defaults.
type VoiceOptions struct {
	Volume  float64
	Pan     float64
	Rate    float64
	Looping bool

	// FilterCutoff, when positive, inserts a low-pass stage between the
	// gain and the panner. FilterGain seeds its wet mix.
	FilterCutoff float64
	FilterGain   float64
}

// Voice is one sound in the mix. Control-thread methods communicate with
// the render thread exclusively through atomics; all remaining state is
// owned by the render thread.
type Voice struct {
	engine *Engine
	src    source.Source
	panner *dsp.Panner
	lpf    *dsp.LowPass // nil when the voice has no filter stage

	gainBits   atomic.Uint64 // target gain
	rateBits   atomic.Uint64 // playback rate
	looping    atomic.Bool
	started    atomic.Bool
	startFrame atomic.Int64 // absolute engine frame, 0 = immediate
	stopFrame  atomic.Int64 // absolute engine frame, -1 = none
	ended      atomic.Bool
	destroyed  atomic.Bool

	// Fade-out schedule. Set before Start and read-only afterwards.
	fadeFrom     float64
	fadeTo       float64
	fadeAtFrame  int64
	fadeDuration int64

	// Render-thread state.
	curGain       float64
	gainIncrement float64
	gainRemaining int
	gainTarget    float64
	phase         float64
	hist          [2]float32
	primed        bool
	sourceDone    bool
	fetchBuf      []float32
	fetchPos      int
	fetchLen      int
	monoBuf       []float32
	stereoBuf     []float32
}

func newVoice(e *Engine, src source.Source, opts VoiceOptions) *Voice {
	if opts.Rate <= 0 {
		opts.Rate = 1.0
	}

	v := &Voice{
		engine:     e,
		src:        src,
		panner:     dsp.NewPanner(opts.Pan),
		curGain:    opts.Volume,
		gainTarget: opts.Volume,
		fetchBuf:   make([]float32, fetchFrames),
		monoBuf:    make([]float32, maxBlockFrames),
		stereoBuf:  make([]float32, maxBlockFrames*audio.OutputChannels),
	}
	if opts.FilterCutoff > 0 {
		v.lpf = dsp.NewLowPass(opts.FilterCutoff, audio.SampleRate, opts.FilterGain)
	}
	v.gainBits.Store(math.Float64bits(opts.Volume))
	v.rateBits.Store(math.Float64bits(opts.Rate))
	v.looping.Store(opts.Looping)
	v.stopFrame.Store(-1)
	return v
}

// SetVolume sets the gain target. The render thread ramps toward it over
// a short window, so stepwise control-thread updates stay click-free.
func (v *Voice) SetVolume(gain float64) {
	if gain < 0 {
		gain = 0
	}
	v.gainBits.Store(math.Float64bits(gain))
}

// SetPan sets the pan target in [-1, 1].
func (v *Voice) SetPan(pan float64) {
	v.panner.SetTarget(pan)
}

// SetRate sets the playback rate.
func (v *Voice) SetRate(rate float64) {
	if rate <= 0 {
		rate = 1.0
	}
	v.rateBits.Store(math.Float64bits(rate))
}

// SetFilterGain sets the low-pass wet mix in [0, 1]. A no-op for voices
// created without a filter stage.
func (v *Voice) SetFilterGain(gain float64) {
	if v.lpf != nil {
		v.lpf.SetGain(gain)
	}
}

// SetLooping sets whether the source rewinds at its end. Turning looping
// off mid-cycle lets the current cycle play out.
func (v *Voice) SetLooping(looping bool) {
	v.looping.Store(looping)
}

// Start makes the voice audible immediately.
func (v *Voice) Start() {
	v.started.Store(true)
}

// ScheduleStart makes the voice audible at an absolute engine frame.
func (v *Voice) ScheduleStart(frame int64) {
	v.startFrame.Store(frame)
	v.started.Store(true)
}

// ScheduleStop silences and ends the voice at an absolute engine frame.
func (v *Voice) ScheduleStop(frame int64) {
	v.stopFrame.Store(frame)
}

// ScheduleFade programs a linear gain fade between absolute engine
// frames. Must be called before Start.
func (v *Voice) ScheduleFade(from, to float64, atFrame, durFrames int64) {
	v.fadeFrom = from
	v.fadeTo = to
	v.fadeAtFrame = atFrame
	v.fadeDuration = durFrames
}

// IsPlaying reports whether the voice is producing audio.
func (v *Voice) IsPlaying() bool {
	if !v.started.Load() || v.ended.Load() || v.destroyed.Load() {
		return false
	}
	return v.engine.NowFrames() >= v.startFrame.Load()
}

// AtEnd reports whether the voice has finished its source.
func (v *Voice) AtEnd() bool {
	return v.ended.Load()
}

// Destroy removes the voice from the mix and releases it.
func (v *Voice) Destroy() {
	if v.destroyed.Swap(true) {
		return
	}
	v.engine.removeVoice(v)
}

// render mixes this voice into out (interleaved stereo, frames long)
// for the block starting at absolute frame blockStart. Runs on the
// render thread while the engine holds the voice list.
func (v *Voice) render(out []float32, blockStart int64, frames int) {
	if !v.started.Load() || v.ended.Load() || v.destroyed.Load() {
		return
	}

	stop := v.stopFrame.Load()
	if stop >= 0 && blockStart >= stop {
		v.ended.Store(true)
		return
	}

	// Sample-accurate scheduled start within the block.
	start := v.startFrame.Load()
	if start >= blockStart+int64(frames) {
		return
	}
	offset := 0
	if start > blockStart {
		offset = int(start - blockStart)
	}

	n := frames - offset
	first := blockStart + int64(offset)
	if stop >= 0 && first+int64(n) > stop {
		n = int(stop - first)
	}
	if n <= 0 {
		return
	}

	mono := v.monoBuf[:n]
	produced := v.fillMono(mono)

	for i := 0; i < produced; i++ {
		gain := v.nextGain() * v.fadeMultiplier(first+int64(i))
		mono[i] *= float32(gain)
	}
	for i := produced; i < n; i++ {
		mono[i] = 0
	}

	// The filter runs over the whole block, trailing zeros included, so
	// its state decays naturally across silence.
	if v.lpf != nil {
		v.lpf.Process(mono)
	}

	stereo := v.stereoBuf[: n*audio.OutputChannels : n*audio.OutputChannels]
	v.panner.Process(mono, stereo)

	base := offset * audio.OutputChannels
	for i, s := range stereo {
		out[base+i] += s
	}

	if v.sourceDone && produced < n {
		v.ended.Store(true)
	}
	if stop >= 0 && blockStart+int64(frames) >= stop {
		v.ended.Store(true)
	}
}

// fillMono produces up to len(buf) frames at the current playback rate,
// returning how many were written.
func (v *Voice) fillMono(buf []float32) int {
	rate := math.Float64frombits(v.rateBits.Load())

	if rate == 1.0 && !v.primed {
		// Fast path: no resampler history in flight.
		return v.readSource(buf)
	}

	if !v.primed {
		v.hist[0] = v.nextSourceSample()
		v.hist[1] = v.nextSourceSample()
		v.primed = true
	}

	written := 0
	for written < len(buf) {
		if v.sourceDone && v.fetchPos >= v.fetchLen && v.phase >= 1 {
			break
		}
		buf[written] = v.hist[0] + (v.hist[1]-v.hist[0])*float32(v.phase)
		written++

		v.phase += rate
		for v.phase >= 1 {
			v.hist[0] = v.hist[1]
			v.hist[1] = v.nextSourceSample()
			v.phase--
			if v.sourceDone && v.fetchPos >= v.fetchLen {
				break
			}
		}
	}
	return written
}

// readSource reads frames honoring looping: a short read at a cycle
// boundary rewinds while looping is on, otherwise marks the source done.
func (v *Voice) readSource(buf []float32) int {
	total := 0
	for total < len(buf) {
		if v.sourceDone {
			break
		}
		n := v.src.Read(buf[total:])
		total += n
		if total < len(buf) {
			if v.looping.Load() {
				v.src.Reset()
				if n == 0 && total == 0 {
					// Zero-length source: avoid spinning forever.
					v.sourceDone = true
				}
			} else {
				v.sourceDone = true
			}
		}
	}
	return total
}

// nextSourceSample pulls one frame through the fetch buffer.
func (v *Voice) nextSourceSample() float32 {
	if v.fetchPos >= v.fetchLen {
		if v.sourceDone {
			return 0
		}
		v.fetchLen = v.readSource(v.fetchBuf)
		v.fetchPos = 0
		if v.fetchLen == 0 {
			return 0
		}
	}
	s := v.fetchBuf[v.fetchPos]
	v.fetchPos++
	return s
}

// nextGain advances the volume smoothing ramp by one frame.
func (v *Voice) nextGain() float64 {
	target := math.Float64frombits(v.gainBits.Load())
	if target != v.gainTarget {
		v.gainTarget = target
		v.gainRemaining = gainRampFrames
		v.gainIncrement = (target - v.curGain) / gainRampFrames
	}

	if v.gainRemaining > 0 {
		v.curGain += v.gainIncrement
		v.gainRemaining--
		if v.gainRemaining == 0 {
			v.curGain = v.gainTarget
		}
	}
	return v.curGain
}

// fadeMultiplier evaluates the scheduled fade at an absolute frame.
func (v *Voice) fadeMultiplier(frame int64) float64 {
	if v.fadeDuration <= 0 || frame < v.fadeAtFrame {
		return 1
	}
	t := float64(frame-v.fadeAtFrame) / float64(v.fadeDuration)
	if t >= 1 {
		return v.fadeTo
	}
	return v.fadeFrom + (v.fadeTo-v.fadeFrom)*t
}
