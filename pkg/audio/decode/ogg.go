// ABOUTME: Ogg/Opus decoder built on hraban/opus
// ABOUTME: Decodes an Ogg-contained Opus stream to mono float32 at the engine rate
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// opusRate is the rate libopusfile always decodes at.
const opusRate = 48000

// DecodeOgg decodes an Ogg-contained Opus byte stream. libopusfile
// surfaces the payload as interleaved stereo at 48kHz, which is then
// downmixed and brought to the engine rate.
func DecodeOgg(data []byte) ([]float32, error) {
	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open ogg/opus stream: %w", err)
	}
	defer stream.Close()

	var interleaved []float32
	pcm := make([]int16, 16384)
	for {
		n, err := stream.Read(pcm)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opus decode error: %w", err)
		}
		for _, s := range pcm[:n*2] {
			interleaved = append(interleaved, audio.SampleFromInt16(s))
		}
	}

	return toEngineRate(downmix(interleaved, 2), opusRate), nil
}
