// ABOUTME: Container-sniffing audio decoder front end
// ABOUTME: Decodes WAV/FLAC/MP3/Ogg bytes to mono float32 at the engine rate
package decode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"github.com/Factorio-Access/launcher-audio/pkg/audio/resample"
)

// ErrUnknownFormat is returned when the byte stream matches no supported
// container.
var ErrUnknownFormat = errors.New("unknown audio format")

// Decode converts encoded audio bytes to mono float32 samples at the
// engine sample rate. The container is detected from magic bytes:
// WAV, FLAC, Ogg/Opus, and MP3 are supported.
//
// Ogg/Opus input must be stereo: the opus stream API does not expose
// the channel count, so the payload is read as interleaved stereo. A
// mono opus file would decode at the wrong frame grouping.
func Decode(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("audio data too short (%d bytes): %w", len(data), ErrUnknownFormat)
	}

	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return DecodeWAV(data)
	case bytes.HasPrefix(data, []byte("fLaC")):
		return DecodeFLAC(data)
	case bytes.HasPrefix(data, []byte("OggS")):
		return DecodeOgg(data)
	case bytes.HasPrefix(data, []byte("ID3")), data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return DecodeMP3(data)
	default:
		return nil, ErrUnknownFormat
	}
}

// downmix averages interleaved multi-channel samples into mono.
func downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// toEngineRate brings mono samples to the engine sample rate.
func toEngineRate(mono []float32, sourceRate int) []float32 {
	return resample.Linear(mono, sourceRate, audio.SampleRate)
}
