// Package iabuf implements the growable instruction-assembly buffer used
// while emitting one bytecode fragment. It tracks used size separately from
// capacity and grows in increments, mirroring the paged-growth style the
// teacher repo uses for its own memory core.
package iabuf

// Buffer is a growable byte vector. The zero value is ready to use.
//
// Buffers are owned by whichever emitter created them and are expected to be
// released (dropped) on normal completion or on error; nothing outside of
// codegen keeps a live reference to one -- only the bytes appended out of it
// onto the shared code array survive.
type Buffer struct {
	b []byte
}

// New returns a Buffer with the given initial capacity pre-allocated.
func New(capacity int) *Buffer {
	return &Buffer{b: make([]byte, 0, capacity)}
}

// Len returns the used size of the buffer.
func (buf *Buffer) Len() int {
	if buf == nil {
		return 0
	}
	return len(buf.b)
}

// Cap returns the buffer's current capacity.
func (buf *Buffer) Cap() int {
	if buf == nil {
		return 0
	}
	return cap(buf.b)
}

// Bytes returns the used prefix of the buffer. The caller must not retain it
// past the buffer's next mutation.
func (buf *Buffer) Bytes() []byte {
	if buf == nil {
		return nil
	}
	return buf.b
}

// Push appends a single byte.
func (buf *Buffer) Push(b byte) {
	buf.grow(1)
	buf.b = append(buf.b, b)
}

// Append appends raw bytes.
func (buf *Buffer) Append(bs ...byte) {
	buf.grow(len(bs))
	buf.b = append(buf.b, bs...)
}

// AppendBuffer copies another buffer's used prefix onto the end of this one.
// Appending a nil buffer is a no-op. The source buffer's used size is
// unaffected (copying preserves the source's used size).
func (buf *Buffer) AppendBuffer(src *Buffer) {
	if src == nil || src.Len() == 0 {
		return
	}
	buf.Append(src.Bytes()...)
}

// CopyOver overwrites buf's used prefix in place with src's bytes, starting
// at offset off, growing buf's used size if necessary.
func (buf *Buffer) CopyOver(off int, src []byte) {
	need := off + len(src)
	buf.grow(need - buf.Len())
	if need > buf.Len() {
		buf.b = buf.b[:need]
	}
	copy(buf.b[off:need], src)
}

// Free resets the buffer to empty, releasing its backing array.
func (buf *Buffer) Free() {
	if buf == nil {
		return
	}
	buf.b = nil
}

// grow ensures capacity for at least `extra` more bytes, growing by half of
// current capacity (at minimum enough to fit the request).
func (buf *Buffer) grow(extra int) {
	need := len(buf.b) + extra
	if need <= cap(buf.b) {
		return
	}
	newCap := cap(buf.b) + cap(buf.b)/2
	if newCap < need {
		newCap = need
	}
	if newCap < 16 {
		newCap = 16
	}
	nb := make([]byte, len(buf.b), newCap)
	copy(nb, buf.b)
	buf.b = nb
}
