// ABOUTME: Audio output interface definition
// ABOUTME: Pull-based playback backends driven by a render callback
package output

// RenderFunc fills out with interleaved stereo float32 frames
// (len(out) = frames * 2). It is invoked from the output device's
// real-time thread and must never block or allocate.
type RenderFunc func(out []float32)

// Output represents an audio playback device.
type Output interface {
	// Start opens the device and begins pulling frames from render.
	Start(render RenderFunc) error

	// Close stops playback and releases device resources.
	Close() error
}
