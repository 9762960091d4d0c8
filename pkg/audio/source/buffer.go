// ABOUTME: In-memory PCM buffer source
// ABOUTME: Serves decoded audio bytes as a rewindable mono stream
package source

// Buffer serves pre-decoded mono samples from memory.
type Buffer struct {
	samples []float32
	pos     int
}

// NewBuffer wraps decoded mono samples in a Source.
func NewBuffer(samples []float32) *Buffer {
	return &Buffer{samples: samples}
}

func (b *Buffer) Read(buf []float32) int {
	n := copy(buf, b.samples[b.pos:])
	b.pos += n
	return n
}

func (b *Buffer) Reset() {
	b.pos = 0
}

func (b *Buffer) Length() int {
	return len(b.samples)
}
