// Package buffer implements the per-connection TCP reassembly ring: an
// append-only byte region with a read cursor and a write cursor, used to
// accumulate payload bytes ahead of framing.
package buffer

// Ring is a single-owner, append/peek/consume byte buffer. It is not
// thread-safe: the decoder holds it exclusively while decoding one message,
// and the capture thread is the only other caller (appending new payload).
type Ring struct {
	data []byte
	r, w int
}

const defaultCapacity = 4096

// New allocates a Ring with the given initial capacity. A non-positive
// capacity falls back to a sensible default.
func New(initialCapacity int) *Ring {
	if initialCapacity <= 0 {
		initialCapacity = defaultCapacity
	}
	return &Ring{data: make([]byte, initialCapacity)}
}

// Available returns the number of unconsumed bytes currently buffered.
func (b *Ring) Available() int {
	return b.w - b.r
}

// Append copies p into the buffer, compacting or growing the underlying
// storage as needed. Append never fails.
func (b *Ring) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	if b.w+len(p) > len(b.data) {
		b.compact()
	}
	if b.w+len(p) > len(b.data) {
		grown := make([]byte, b.w+len(p))
		copy(grown, b.data[:b.w])
		b.data = grown
	}
	copy(b.data[b.w:], p)
	b.w += len(p)
}

// compact shifts the unconsumed region [r,w) down to [0, w-r), freeing the
// already-consumed prefix. Callers' outstanding Peek views are invalidated
// by this, which is why Peek/Consume must be used within one decode pass.
func (b *Ring) compact() {
	if b.r == 0 {
		return
	}
	n := copy(b.data, b.data[b.r:b.w])
	b.r = 0
	b.w = n
}

// Peek returns a view of the next n unconsumed bytes without advancing the
// read cursor. It reports false, with no side effect, if fewer than n bytes
// are available.
func (b *Ring) Peek(n int) ([]byte, bool) {
	if n < 0 || b.Available() < n {
		return nil, false
	}
	return b.data[b.r : b.r+n], true
}

// Consume advances the read cursor past n bytes. It reports false, with no
// side effect, if fewer than n bytes are available. When the read cursor
// catches up to the write cursor, both reset to zero.
func (b *Ring) Consume(n int) bool {
	if n < 0 || b.Available() < n {
		return false
	}
	b.r += n
	if b.r == b.w {
		b.r, b.w = 0, 0
	}
	return true
}
