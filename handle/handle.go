// Package handle implements the polymorphic byte/character stream
// abstraction of spec §4.6: buffered I/O, seek semantics, a one-code-point
// lookahead, and line/position tracking, backing the file/pipe handle
// variant and feeding (externally) the reader and the extension loader.
package handle

import (
	"errors"
	"io"
)

// Whence selects the origin for Seek, matching spec §4.6.
type Whence int

const (
	SeekSet Whence = iota
	SeekEnd
	SeekCur
)

// ErrClosed is returned by any I/O method on a closed handle.
var ErrClosed = errors.New("io-closed-error: handle is closed")

// ErrAlreadyClosed is raised (per spec §5 "File descriptor discipline") when
// user code calls Close twice on the same handle.
var ErrAlreadyClosed = errors.New("already-closed: handle already closed")

// ErrDoubleLookahead is a coding-error: pushing a second lookahead code
// point without consuming the first (spec §4.6 peek-char contract).
var ErrDoubleLookahead = errors.New("coding-error: double lookahead push")

// Handle is the common interface every concrete stream variant satisfies.
// Not every method applies to every variant (e.g. Seek is optional); those
// that don't apply return an error rather than panicking.
type Handle interface {
	// Capability predicates.
	Readable() bool
	Writable() bool
	Closed() bool

	// Metadata.
	Name() string
	Pathname() string
	Line() int
	Pos() int64

	// Reading.
	GetByte() (byte, error)
	GetChar() (rune, error)
	PeekChar() (rune, error)
	EOF() bool
	Ready() bool

	// Writing.
	PutByte(b byte) error
	PutChar(r rune) error
	PutString(s string) error
	Flush() error

	// Seeking (optional: variants that cannot seek return an error).
	Seek(offset int64, whence Whence) (int64, error)

	Close() error

	// Stream returns an opaque identity used by equal.Eqv to compare
	// handles "by stream identity" (spec §4.5).
	Stream() interface{}
}

// Base supplies the shared lookahead/line/position bookkeeping embedded by
// every concrete handle variant, mirroring how the teacher repo embeds
// ioCore/fileinput.Input into VM/Core.
type Base struct {
	FileName string // user-visible name
	Path     string // actual opened pathname, e.g. /dev/fd/N

	line int
	pos  int64

	lookahead     rune
	hasLookahead  bool

	closed      bool
	interactive bool
	readable    bool
	writable    bool
}

// Init sets up a Base for a fresh handle. line starts at 1 per spec §4.6
// ("current line number (>= 1, or 0 after a seek invalidated it)").
func (b *Base) Init(name, path string, readable, writable, interactive bool) {
	b.FileName = name
	b.Path = path
	b.readable = readable
	b.writable = writable
	b.interactive = interactive
	b.line = 1
}

func (b *Base) Readable() bool    { return b.readable }
func (b *Base) Writable() bool    { return b.writable }
func (b *Base) Closed() bool      { return b.closed }
func (b *Base) Name() string      { return b.FileName }
func (b *Base) Pathname() string  { return b.Path }
func (b *Base) Line() int         { return b.line }
func (b *Base) Pos() int64        { return b.pos }
func (b *Base) Interactive() bool { return b.interactive }

// MarkClosed flips the closed flag, returning ErrAlreadyClosed if it was
// already set (spec §5: "close is idempotent per handle but raises
// already-closed if invoked by user code twice").
func (b *Base) MarkClosed() error {
	if b.closed {
		return ErrAlreadyClosed
	}
	b.closed = true
	return nil
}

// PushLookahead stores r as the one-code-point lookahead buffer. It is an
// error to push a second lookahead without consuming the first.
func (b *Base) PushLookahead(r rune) error {
	if b.hasLookahead {
		return ErrDoubleLookahead
	}
	b.lookahead = r
	b.hasLookahead = true
	return nil
}

// TakeLookahead consumes and clears the lookahead if present.
func (b *Base) TakeLookahead() (rune, bool) {
	if !b.hasLookahead {
		return 0, false
	}
	b.hasLookahead = false
	return b.lookahead, true
}

// HasLookahead reports whether a lookahead code point is pending.
func (b *Base) HasLookahead() bool { return b.hasLookahead }

// ClearLookahead discards any pending lookahead, used by Seek.
func (b *Base) ClearLookahead() { b.hasLookahead = false }

// AdvanceLine bumps the line counter on a newline; InvalidateLine is used by
// Seek to set it to 0 unless the seek target is absolute zero (spec §4.6:
// "invalidates the line counter unless the target is absolute zero"),
// gated on the requested offset/whence rather than the handle's pre-seek
// position (original_source/src/handle.c:1038-1047: `if (0 == offset &&
// SEEK_SET == whence) LINE = 1; else LINE = 0;`).
func (b *Base) AdvanceLine() { b.line++ }
func (b *Base) InvalidateLine(target int64, whence Whence) {
	if target == 0 && whence == SeekSet {
		b.line = 1
		return
	}
	b.line = 0
}
func (b *Base) SetPos(p int64) { b.pos = p }
func (b *Base) AddPos(n int64) { b.pos += n }

// CheckReadable/CheckWritable return ErrClosed or a capability error.
func (b *Base) CheckReadable() error {
	if b.closed {
		return ErrClosed
	}
	if !b.readable {
		return errors.New("io-read-error: handle is not readable")
	}
	return nil
}

func (b *Base) CheckWritable() error {
	if b.closed {
		return ErrClosed
	}
	if !b.writable {
		return errors.New("io-write-error: handle is not writable")
	}
	return nil
}

// StringHandle is an in-memory Handle over a byte buffer, used for string
// ports and as the teacher's "discard" output target generalized to a real
// readable/writable buffer.
type StringHandle struct {
	Base
	buf []byte
	r   int // read cursor
}

// NewStringReader constructs a read-only StringHandle over data.
func NewStringReader(name string, data []byte) *StringHandle {
	sh := &StringHandle{buf: append([]byte(nil), data...)}
	sh.Init(name, name, true, false, false)
	return sh
}

// NewStringWriter constructs a write-only, growable StringHandle.
func NewStringWriter(name string) *StringHandle {
	sh := &StringHandle{}
	sh.Init(name, name, false, true, false)
	return sh
}

func (sh *StringHandle) Bytes() []byte { return sh.buf }

func (sh *StringHandle) GetByte() (byte, error) {
	if err := sh.CheckReadable(); err != nil {
		return 0, err
	}
	if sh.r >= len(sh.buf) {
		return 0, io.EOF
	}
	b := sh.buf[sh.r]
	sh.r++
	sh.AddPos(1)
	return b, nil
}

func (sh *StringHandle) GetChar() (rune, error) {
	if r, ok := sh.TakeLookahead(); ok {
		return r, nil
	}
	r, _, err := DecodeRune(sh, ModeSimple)
	if err == nil && r == '\n' {
		sh.AdvanceLine()
	}
	return r, err
}

func (sh *StringHandle) PeekChar() (rune, error) {
	if r, ok := sh.TakeLookahead(); ok {
		_ = sh.PushLookahead(r)
		return r, nil
	}
	r, err := sh.GetChar()
	if err != nil {
		return 0, err
	}
	_ = sh.PushLookahead(r)
	return r, nil
}

func (sh *StringHandle) EOF() bool   { return !sh.HasLookahead() && sh.r >= len(sh.buf) }
func (sh *StringHandle) Ready() bool { return sh.HasLookahead() || sh.r < len(sh.buf) }

func (sh *StringHandle) PutByte(b byte) error {
	if err := sh.CheckWritable(); err != nil {
		return err
	}
	sh.buf = append(sh.buf, b)
	sh.AddPos(1)
	return nil
}

func (sh *StringHandle) PutChar(r rune) error {
	if err := sh.CheckWritable(); err != nil {
		return err
	}
	n := len(sh.buf)
	sh.buf = appendRune(sh.buf, r)
	sh.AddPos(int64(len(sh.buf) - n))
	if r == '\n' {
		sh.AdvanceLine()
	}
	return nil
}

func (sh *StringHandle) PutString(s string) error {
	for _, r := range s {
		if err := sh.PutChar(r); err != nil {
			return err
		}
	}
	return nil
}

func (sh *StringHandle) Flush() error { return nil }

func (sh *StringHandle) Seek(offset int64, whence Whence) (int64, error) {
	var target int64
	switch whence {
	case SeekSet:
		target = offset
	case SeekCur:
		target = sh.Pos() + offset
	case SeekEnd:
		target = int64(len(sh.buf)) + offset
	}
	if target < 0 || target > int64(len(sh.buf)) {
		return 0, errors.New("system-error: seek out of range")
	}
	sh.InvalidateLine(target, whence)
	sh.ClearLookahead()
	sh.r = int(target)
	sh.SetPos(target)
	return target, nil
}

func (sh *StringHandle) Close() error { return sh.MarkClosed() }
func (sh *StringHandle) Stream() interface{} { return sh }

func appendRune(buf []byte, r rune) []byte {
	var tmp [4]byte
	n := encodeRune(tmp[:], r)
	return append(buf, tmp[:n]...)
}
