// ABOUTME: Tests for the headless mixing engine and its voices
// ABOUTME: Covers clock advance, scheduling, panning, looping, and teardown
package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"github.com/Factorio-Access/launcher-audio/pkg/audio/source"
	"github.com/Factorio-Access/launcher-audio/pkg/command"
)

func newHeadless(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(Config{Device: "none"})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func pump(e *Engine, frames int) []float32 {
	buf := make([]float32, frames*audio.OutputChannels)
	e.ReadFrames(buf)
	return buf
}

func rms(buf []float32) float64 {
	var sum float64
	for _, s := range buf {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(buf)))
}

func constantSource(value float32, frames int) source.Source {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = value
	}
	return source.NewBuffer(samples)
}

func TestEngineClockAdvances(t *testing.T) {
	e := newHeadless(t)

	if e.Now() != 0 {
		t.Errorf("initial Now() = %v, want 0", e.Now())
	}
	pump(e, audio.SampleRate/2)
	if got := e.Now(); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("Now() after half second = %v, want 0.5", got)
	}
	if got := e.NowFrames(); got != int64(audio.SampleRate/2) {
		t.Errorf("NowFrames() = %d, want %d", got, audio.SampleRate/2)
	}
}

func TestVoiceSilentUntilStarted(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(0.5, audio.SampleRate), VoiceOptions{Volume: 1})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}

	if out := pump(e, 256); rms(out) != 0 {
		t.Error("unstarted voice produced audio")
	}

	v.Start()
	if out := pump(e, 256); rms(out) == 0 {
		t.Error("started voice produced silence")
	}
}

func TestScheduledStartIsSampleAccurate(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(1.0, audio.SampleRate), VoiceOptions{Volume: 1})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}

	const startFrame = 1000
	v.ScheduleStart(startFrame)

	out := pump(e, 2048)
	for i := 0; i < startFrame; i++ {
		if out[i*2] != 0 || out[i*2+1] != 0 {
			t.Fatalf("frame %d audible before scheduled start", i)
		}
	}
	if out[startFrame*2] == 0 && out[startFrame*2+1] == 0 {
		t.Errorf("frame %d silent at scheduled start", startFrame)
	}
}

func TestVoicePanHardLeft(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(1.0, audio.SampleRate), VoiceOptions{Volume: 1, Pan: -1})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}
	v.Start()

	out := pump(e, 256)
	if math.Abs(float64(out[0])-1.0) > 1e-5 {
		t.Errorf("left channel = %v, want 1", out[0])
	}
	if math.Abs(float64(out[1])) > 1e-5 {
		t.Errorf("right channel = %v, want 0", out[1])
	}
}

func TestNonLoopingVoiceEnds(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(1.0, 100), VoiceOptions{Volume: 1})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}
	v.Start()

	out := pump(e, 256)
	if v.IsPlaying() {
		t.Error("voice still playing past its source end")
	}
	if !v.AtEnd() {
		t.Error("voice not at end past its source end")
	}
	// Frames after the source end are silent.
	for i := 101; i < 256; i++ {
		if out[i*2] != 0 {
			t.Fatalf("frame %d audible after source end", i)
		}
	}
}

func TestLoopingVoiceWrapsAndStopsGracefully(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(0.5, 100), VoiceOptions{Volume: 1, Looping: true})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}
	v.Start()

	// Several cycle lengths later the loop is still audible.
	out := pump(e, 1000)
	if out[999*2] == 0 {
		t.Error("looping voice went silent")
	}
	if v.AtEnd() {
		t.Error("looping voice reported end")
	}

	// Dropping looping finishes the current cycle, then the voice ends.
	v.SetLooping(false)
	pump(e, 200)
	if !v.AtEnd() {
		t.Error("voice did not end after looping was dropped")
	}
}

func TestScheduledStopSilencesVoice(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(1.0, audio.SampleRate), VoiceOptions{Volume: 1})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}
	v.ScheduleStop(500)
	v.Start()

	out := pump(e, 1024)
	if out[499*2] == 0 {
		t.Error("frame 499 silent before scheduled stop")
	}
	if out[500*2] != 0 {
		t.Error("frame 500 audible past scheduled stop")
	}
	if !v.AtEnd() {
		t.Error("voice not ended after scheduled stop")
	}
}

func TestScheduledFadeRampsDown(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(1.0, audio.SampleRate), VoiceOptions{Volume: 1})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}
	v.ScheduleFade(1, 0, 1000, 1000)
	v.Start()

	out := pump(e, 2048)
	left := func(frame int) float64 { return float64(out[frame*2]) }

	if left(500) < 0.5 {
		t.Errorf("frame 500 = %v, want full level before fade", left(500))
	}
	mid := left(1500)
	if mid < 0.2 || mid > 0.5 {
		t.Errorf("frame 1500 = %v, want roughly half-faded", mid)
	}
	if left(2047) > 0.01 {
		t.Errorf("frame 2047 = %v, want ~0 after fade", left(2047))
	}
}

func TestPlaybackRateConsumesSourceFaster(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(1.0, 1000), VoiceOptions{Volume: 1, Rate: 2.0})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}
	v.Start()

	// At 2x rate a 1000-frame source lasts about 500 output frames.
	pump(e, 600)
	if !v.AtEnd() {
		t.Error("voice at 2x rate should have consumed its source")
	}
}

func TestDestroyRemovesVoiceFromMix(t *testing.T) {
	e := newHeadless(t)
	v, err := e.CreateVoice(constantSource(1.0, audio.SampleRate), VoiceOptions{Volume: 1})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}
	v.Start()
	pump(e, 64)

	v.Destroy()
	if e.VoiceCount() != 0 {
		t.Errorf("VoiceCount = %d after destroy, want 0", e.VoiceCount())
	}
	if out := pump(e, 64); rms(out) != 0 {
		t.Error("destroyed voice still audible")
	}
}

func TestMixSumsVoices(t *testing.T) {
	e := newHeadless(t)
	for i := 0; i < 2; i++ {
		v, err := e.CreateVoice(constantSource(0.25, audio.SampleRate), VoiceOptions{Volume: 1})
		if err != nil {
			t.Fatalf("CreateVoice %d failed: %v", i, err)
		}
		v.Start()
	}

	out := pump(e, 64)
	centerGain := math.Sqrt2 / 2
	want := 2 * 0.25 * centerGain
	if math.Abs(float64(out[0])-want) > 1e-5 {
		t.Errorf("mixed sample = %v, want %v", out[0], want)
	}
}

func TestBackendBuildsWaveformVoice(t *testing.T) {
	e := newHeadless(t)
	b := NewBackend(e, nil)

	v, err := b.CreateVoice(command.SourceSpec{
		Kind:      command.KindWaveform,
		Waveform:  command.WaveSine,
		Frequency: 440,
	}, VoiceOptions{Volume: 1})
	if err != nil {
		t.Fatalf("CreateVoice failed: %v", err)
	}
	v.Start()

	if out := pump(e, 512); rms(out) == 0 {
		t.Error("waveform voice produced silence")
	}
}

func TestBackendLoaderErrorsIsolated(t *testing.T) {
	e := newHeadless(t)

	b := NewBackend(e, func(name string) ([]byte, error) {
		return nil, fmt.Errorf("no such sound %q", name)
	})
	_, err := b.CreateVoice(command.SourceSpec{Kind: command.KindEncodedBytes, Name: "missing.wav"}, VoiceOptions{})
	if err == nil {
		t.Fatal("expected loader error")
	}
	if e.VoiceCount() != 0 {
		t.Errorf("VoiceCount = %d after failed create, want 0", e.VoiceCount())
	}

	b = NewBackend(e, func(name string) ([]byte, error) {
		return []byte("garbage bytes, not audio"), nil
	})
	_, err = b.CreateVoice(command.SourceSpec{Kind: command.KindEncodedBytes, Name: "bad.wav"}, VoiceOptions{})
	if err == nil {
		t.Fatal("expected decode error")
	}
}
