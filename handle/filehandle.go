package handle

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jcorbin/idio/cond"
)

// ParsedMode is the decoded form of a POSIX fopen(3)-style mode string, per
// spec §4.6: "r/w/a optionally followed by any of +, e (cloexec), x (excl);
// b is accepted and ignored."
type ParsedMode struct {
	Read, Write, Append bool
	Plus                bool
	CloseOnExec         bool
	Excl                bool
}

// ErrFilenameMode is raised for an invalid mode letter.
var ErrFilenameMode = errors.New("filename-mode-error: invalid mode string")

// ParseMode decodes a fopen(3)-style mode string.
func ParseMode(mode string) (ParsedMode, error) {
	var pm ParsedMode
	if mode == "" {
		return pm, ErrFilenameMode
	}
	switch mode[0] {
	case 'r':
		pm.Read = true
	case 'w':
		pm.Write = true
	case 'a':
		pm.Write = true
		pm.Append = true
	default:
		return pm, ErrFilenameMode
	}
	for _, c := range mode[1:] {
		switch c {
		case '+':
			pm.Plus = true
			pm.Read = true
			pm.Write = true
		case 'e':
			pm.CloseOnExec = true
		case 'x':
			pm.Excl = true
		case 'b':
			// accepted and ignored
		default:
			return pm, ErrFilenameMode
		}
	}
	return pm, nil
}

// OFlags translates a ParsedMode to the open(2) flag bits.
func (pm ParsedMode) OFlags() int {
	var flags int
	switch {
	case pm.Read && pm.Write:
		flags = unix.O_RDWR
	case pm.Write:
		flags = unix.O_WRONLY
	default:
		flags = unix.O_RDONLY
	}
	if pm.Write && !pm.Append {
		flags |= unix.O_CREAT | unix.O_TRUNC
	}
	if pm.Append {
		flags |= unix.O_CREAT | unix.O_APPEND
	}
	if pm.Excl {
		flags |= unix.O_EXCL
	}
	if pm.CloseOnExec {
		flags |= unix.O_CLOEXEC
	}
	return flags
}

// FileHandle backs a Handle onto a file descriptor with an internal
// read/write buffer, interactive-aware flush-on-newline, mirroring spec
// §4.6 exactly.
type FileHandle struct {
	Base
	fd   int
	mode ParsedMode

	rbuf    []byte
	rpos    int
	wbuf    []byte
	wmax    int
	mapping *mapping // non-nil when backed by an mmap fast path
}

const defaultBufSize = 4096

// ErrNoSuchFile/ErrFileExists/ErrProtection/ErrFilenameErr are the
// errno-to-condition mapping of spec §4.6, each a *cond.Condition carrying
// the matching Kind so callers can pattern-match on it (or read
// Message/Location/Detail/Irritants) instead of just comparing sentinels.
var (
	ErrNoSuchFile  = cond.New(cond.IONoSuchFile, "no such file or directory")
	ErrFileExists  = cond.New(cond.IOFileAlreadyExists, "file already exists")
	ErrProtection  = cond.New(cond.IOFileProtection, "permission denied")
	ErrFilenameErr = cond.New(cond.IOFilenameError, "malformed filename")
)

func mapErrno(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return fmt.Errorf("system-error: %w", err)
	}
	switch errno {
	case unix.EACCES:
		return ErrProtection
	case unix.EEXIST:
		return ErrFileExists
	case unix.ENOENT:
		return ErrNoSuchFile
	case unix.ENOTDIR, unix.ENAMETOOLONG:
		return ErrFilenameErr
	default:
		return fmt.Errorf("system-error: %w", errno)
	}
}

// OpenFile implements `open-file name mode` (spec §4.6/§6).
//
// EMFILE/ENFILE failures are retried after the caller-supplied gc callback
// runs (spec §4.6: "A run of open(2) calls retries on EMFILE/ENFILE by
// triggering a GC"); gc may be nil, in which case no retry is attempted.
func OpenFile(name, modeStr string, gc func()) (*FileHandle, error) {
	pm, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	const maxRetries = 1
	var fd int
	for attempt := 0; ; attempt++ {
		fd, err = unix.Open(name, pm.OFlags(), 0666)
		if err == nil {
			break
		}
		if (errors.Is(err, unix.EMFILE) || errors.Is(err, unix.ENFILE)) && gc != nil && attempt < maxRetries {
			gc()
			continue
		}
		if errors.Is(err, unix.ENXIO) && pm.Write && !pm.Read {
			// FIFO opened write-only with no reader: per spec §4.6/§8,
			// this returns false, not a condition.
			return nil, nil
		}
		return nil, mapErrno(err)
	}

	if err := installFDFlags(fd, pm); err != nil {
		unix.Close(fd)
		return nil, err
	}

	fh := &FileHandle{fd: fd, mode: pm}
	fh.Init(name, name, pm.Read, pm.Write, false)
	fh.wmax = defaultBufSize
	return fh, nil
}

// ErrModeFormat is returned by OpenFromFD when the requested access mode
// conflicts with the descriptor's own.
var ErrModeFormat = errors.New("mode-format-error: requested access mode conflicts with descriptor's")

// OpenFromFD implements opening a handle over an already-open descriptor
// (spec §4.6 "Opening from an existing descriptor"). name defaults to
// /dev/fd/<N> when empty.
func OpenFromFD(fd int, name, modeStr string) (*FileHandle, error) {
	pm, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	actual, ferr := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if ferr == nil {
		accMode := actual & unix.O_ACCMODE
		wantRead, wantWrite := pm.Read, pm.Write
		switch accMode {
		case unix.O_RDONLY:
			if wantWrite {
				return nil, ErrModeFormat
			}
		case unix.O_WRONLY:
			if wantRead {
				return nil, ErrModeFormat
			}
		}
	}

	if name == "" {
		name = fmt.Sprintf("/dev/fd/%d", fd)
	}
	fh := &FileHandle{fd: fd, mode: pm}
	fh.Init(name, name, pm.Read, pm.Write, false)
	fh.wmax = defaultBufSize
	return fh, nil
}

func (fh *FileHandle) Stream() interface{} { return fh.fd }

func (fh *FileHandle) fillReadBuffer() error {
	if fh.rpos < len(fh.rbuf) {
		return nil
	}
	buf := make([]byte, defaultBufSize)
	for {
		n, err := unix.Read(fh.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EBADF) {
				// close-raced /dev/fd/n pipe: treat as EOF, mark closed.
				fh.closedNoErr()
				return io.EOF
			}
			return fmt.Errorf("io-read-error: %w", err)
		}
		if n == 0 {
			return io.EOF
		}
		fh.rbuf = buf[:n]
		fh.rpos = 0
		return nil
	}
}

func (fh *FileHandle) closedNoErr() { fh.MarkClosed() }

func (fh *FileHandle) GetByte() (byte, error) {
	if err := fh.CheckReadable(); err != nil {
		return 0, err
	}
	if fh.mapping != nil {
		b, err := fh.mapping.getByte()
		if err == nil {
			fh.AddPos(1)
		}
		return b, err
	}
	if err := fh.fillReadBuffer(); err != nil {
		return 0, err
	}
	b := fh.rbuf[fh.rpos]
	fh.rpos++
	fh.AddPos(1)
	return b, nil
}

func (fh *FileHandle) GetChar() (rune, error) {
	if r, ok := fh.TakeLookahead(); ok {
		return r, nil
	}
	r, _, err := DecodeRune(fh, ModeSimple)
	if err == nil && r == '\n' {
		fh.AdvanceLine()
	}
	return r, err
}

func (fh *FileHandle) PeekChar() (rune, error) {
	if r, ok := fh.TakeLookahead(); ok {
		fh.PushLookahead(r)
		return r, nil
	}
	r, err := fh.GetChar()
	if err != nil {
		return 0, err
	}
	fh.PushLookahead(r)
	return r, nil
}

func (fh *FileHandle) EOF() bool {
	if fh.HasLookahead() {
		return false
	}
	if fh.mapping != nil {
		return fh.mapping.eof()
	}
	return fh.rpos >= len(fh.rbuf) && !fh.Ready()
}

func (fh *FileHandle) Ready() bool {
	if fh.HasLookahead() {
		return true
	}
	if fh.mapping != nil {
		return !fh.mapping.eof()
	}
	return fh.rpos < len(fh.rbuf)
}

func (fh *FileHandle) PutByte(b byte) error {
	if err := fh.CheckWritable(); err != nil {
		return err
	}
	if len(fh.wbuf)+1 > fh.wmax {
		if err := fh.Flush(); err != nil {
			return err
		}
	}
	fh.wbuf = append(fh.wbuf, b)
	if b == '\n' && fh.Interactive() {
		return fh.Flush()
	}
	return nil
}

func (fh *FileHandle) PutChar(r rune) error {
	var tmp [4]byte
	n := encodeRune(tmp[:], r)
	for _, b := range tmp[:n] {
		if err := fh.PutByte(b); err != nil {
			return err
		}
	}
	if r == '\n' {
		fh.AdvanceLine()
	}
	return nil
}

func (fh *FileHandle) PutString(s string) error {
	if err := fh.CheckWritable(); err != nil {
		return err
	}
	if len(fh.wbuf)+len(s) <= fh.wmax {
		fh.wbuf = append(fh.wbuf, s...)
		if strings.ContainsRune(s, '\n') {
			for _, r := range s {
				if r == '\n' {
					fh.AdvanceLine()
				}
			}
			if fh.Interactive() {
				return fh.Flush()
			}
		}
		return nil
	}
	// fast-path would overflow the buffer: drain, then write directly.
	if err := fh.Flush(); err != nil {
		return err
	}
	return fh.writeDirect([]byte(s))
}

func (fh *FileHandle) writeDirect(p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fh.fd, p)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EPIPE) {
				return nil // tolerated silently for pipe-class handles
			}
			return fmt.Errorf("io-write-error: %w", err)
		}
		p = p[n:]
		fh.AddPos(int64(n))
	}
	return nil
}

// Flush writes the output buffer (for writable handles) or discards any
// buffered-ahead bytes (for input-only handles), per spec §4.6.
func (fh *FileHandle) Flush() error {
	if !fh.Writable() {
		fh.rbuf, fh.rpos = nil, 0
		return nil
	}
	if len(fh.wbuf) == 0 {
		return nil
	}
	buf := fh.wbuf
	fh.wbuf = fh.wbuf[:0]
	return fh.writeDirect(buf)
}

// Seek implements spec §4.6's seek semantics.
func (fh *FileHandle) Seek(offset int64, whence Whence) (int64, error) {
	if err := fh.Flush(); err != nil {
		return 0, err
	}
	var w int
	switch whence {
	case SeekSet:
		w = unix.SEEK_SET
	case SeekEnd:
		w = unix.SEEK_END
	case SeekCur:
		w = unix.SEEK_CUR
		offset += fh.Pos()
		w = unix.SEEK_SET
	}
	target, err := unix.Seek(fh.fd, offset, w)
	if err != nil {
		return 0, fmt.Errorf("system-error: %w", err)
	}
	fh.InvalidateLine(target, whence)
	fh.ClearLookahead()
	fh.rbuf, fh.rpos = nil, 0
	fh.SetPos(target)
	if fh.mapping != nil {
		fh.mapping.seek(target)
	}
	return target, nil
}

// Close closes the handle's descriptor, idempotently raising
// ErrAlreadyClosed on a repeat call (spec §5).
func (fh *FileHandle) Close() error {
	if err := fh.MarkClosed(); err != nil {
		return err
	}
	var ferr error
	if fh.Writable() {
		ferr = fh.Flush()
	}
	if fh.mapping != nil {
		fh.mapping.close()
	}
	if err := unix.Close(fh.fd); err != nil && ferr == nil {
		ferr = err
	}
	return ferr
}
