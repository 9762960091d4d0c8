// ABOUTME: Audio fundamentals: engine format constants and sample conversion
// ABOUTME: All sources are mono float32 at the fixed engine rate
package audio

// Engine format: sources are decoded or generated as mono float32 at
// SampleRate; the mixer produces interleaved stereo float32.
const (
	SampleRate     = 44100
	OutputChannels = 2
)

// SampleFromInt16 converts a 16-bit PCM sample to float32 in [-1, 1).
func SampleFromInt16(s int16) float32 {
	return float32(s) / 32768.0
}

// SampleToInt16 converts a float32 sample to 16-bit PCM with clipping.
func SampleToInt16(f float32) int16 {
	scaled := f * 32767.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}

// FramesToSeconds converts a frame count at the engine rate to seconds.
func FramesToSeconds(frames int64) float64 {
	return float64(frames) / float64(SampleRate)
}

// SecondsToFrames converts seconds to a frame count at the engine rate.
func SecondsToFrames(seconds float64) int64 {
	return int64(seconds * float64(SampleRate))
}
