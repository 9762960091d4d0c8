// ABOUTME: FLAC decoder built on mewkiz/flac
// ABOUTME: Decodes a FLAC byte stream to mono float32 at the engine rate
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// DecodeFLAC decodes a complete FLAC byte stream frame by frame,
// downmixing the channels and bringing the result to the engine rate.
func DecodeFLAC(data []byte) ([]float32, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open flac stream: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels < 1 {
		return nil, fmt.Errorf("flac stream reports %d channels", channels)
	}
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	var mono []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac decode error: %w", err)
		}

		blockSize := len(frame.Subframes[0].Samples)
		for i := 0; i < blockSize; i++ {
			var sum float32
			for _, sub := range frame.Subframes {
				sum += float32(sub.Samples[i]) / scale
			}
			mono = append(mono, sum/float32(channels))
		}
	}

	return toEngineRate(mono, int(stream.Info.SampleRate)), nil
}
