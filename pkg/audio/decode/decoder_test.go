// ABOUTME: Tests for container sniffing and WAV decoding
// ABOUTME: Uses synthesized RIFF streams to exercise formats and edge cases
package decode

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
)

// buildWAV assembles a minimal RIFF/WAVE stream around raw payload bytes.
func buildWAV(format, channels, sampleRate, bitDepth int, payload []byte) []byte {
	var out []byte
	u16 := func(v int) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, uint16(v)); return b }
	u32 := func(v int) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, uint32(v)); return b }

	blockAlign := channels * bitDepth / 8
	out = append(out, []byte("RIFF")...)
	out = append(out, u32(36+len(payload))...)
	out = append(out, []byte("WAVE")...)
	out = append(out, []byte("fmt ")...)
	out = append(out, u32(16)...)
	out = append(out, u16(format)...)
	out = append(out, u16(channels)...)
	out = append(out, u32(sampleRate)...)
	out = append(out, u32(sampleRate*blockAlign)...)
	out = append(out, u16(blockAlign)...)
	out = append(out, u16(bitDepth)...)
	out = append(out, []byte("data")...)
	out = append(out, u32(len(payload))...)
	out = append(out, payload...)
	return out
}

func TestDecodeWAV16BitMono(t *testing.T) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint16(payload[0:], uint16(int16(16384)))  // 0.5
	binary.LittleEndian.PutUint16(payload[2:], uint16(int16(-16384))) // -0.5
	binary.LittleEndian.PutUint16(payload[4:], 0)
	binary.LittleEndian.PutUint16(payload[6:], uint16(int16(32767)))

	samples, err := Decode(buildWAV(wavFormatPCM, 1, audio.SampleRate, 16, payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []float32{0.5, -0.5, 0, 32767.0 / 32768.0}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if math.Abs(float64(samples[i]-want[i])) > 1e-4 {
			t.Errorf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// One frame: left 1.0, right -1.0 averages to silence; second frame
	// left and right both 0.5.
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint16(payload[0:], uint16(int16(32767)))
	binary.LittleEndian.PutUint16(payload[2:], uint16(int16(-32767)))
	binary.LittleEndian.PutUint16(payload[4:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(payload[6:], uint16(int16(16384)))

	samples, err := Decode(buildWAV(wavFormatPCM, 2, audio.SampleRate, 16, payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d frames, want 2 after downmix", len(samples))
	}
	if math.Abs(float64(samples[0])) > 1e-4 {
		t.Errorf("frame 0 = %v, want ~0 (L/R cancel)", samples[0])
	}
	if math.Abs(float64(samples[1])-0.5) > 1e-4 {
		t.Errorf("frame 1 = %v, want 0.5", samples[1])
	}
}

func TestDecodeWAVResamplesToEngineRate(t *testing.T) {
	payload := make([]byte, 2*22050) // one second at 22.05kHz, silence
	samples, err := Decode(buildWAV(wavFormatPCM, 1, 22050, 16, payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(samples) != audio.SampleRate {
		t.Errorf("got %d frames, want %d after resample", len(samples), audio.SampleRate)
	}
}

func TestDecodeWAVFloat32(t *testing.T) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(payload[4:], math.Float32bits(-0.75))

	samples, err := Decode(buildWAV(wavFormatFloat, 1, audio.SampleRate, 32, payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if samples[0] != 0.25 || samples[1] != -0.75 {
		t.Errorf("samples = %v, want [0.25 -0.75]", samples)
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, err := Decode([]byte("this is not audio data"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	_, err = Decode([]byte{0x01})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("short input: expected ErrUnknownFormat, got %v", err)
	}
}

func TestDecodeWAVMalformed(t *testing.T) {
	cases := map[string][]byte{
		"truncated header": []byte("RIFF\x00\x00"),
		"missing data":     buildWAV(wavFormatPCM, 1, 44100, 16, nil)[:28],
		"bad bit depth":    buildWAV(wavFormatPCM, 1, 44100, 12, make([]byte, 4)),
	}
	for name, data := range cases {
		if _, err := Decode(data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
