// ABOUTME: Mono audio source interface consumed by engine voices
// ABOUTME: Sources produce float32 frames and can rewind for looping
package source

// Source produces mono float32 frames at the engine sample rate.
//
// Sources are pulled exclusively by the render thread; implementations
// must not block or allocate inside Read.
type Source interface {
	// Read fills buf with mono frames and returns how many were written.
	// A short read means the source reached its end; looping callers
	// Reset and continue.
	Read(buf []float32) int

	// Reset rewinds the source to its beginning.
	Reset()

	// Length returns the total length in frames, or -1 if unbounded.
	Length() int
}
