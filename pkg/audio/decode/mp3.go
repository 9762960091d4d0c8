// ABOUTME: MP3 decoder built on go-mp3
// ABOUTME: Decodes an MP3 byte stream to mono float32 at the engine rate
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes a complete MP3 byte stream. go-mp3 always emits
// 16-bit stereo at the source rate, which is then downmixed and brought
// to the engine rate.
func DecodeMP3(data []byte) ([]float32, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := len(pcm) / 2
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = audio.SampleFromInt16(s)
	}

	return toEngineRate(downmix(samples, 2), decoder.SampleRate()), nil
}
