package handle

import (
	"io"
	"os"
	"runtime"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// mapping is the read-only mmap fast path described in SPEC_FULL.md: for a
// regular file opened purely for reading, GetByte walks the mapped region
// directly instead of going through the buffered unix.Read loop. No
// behavioral difference is visible through the Handle interface -- Seek,
// EOF and the lookahead buffer all behave identically either way.
type mapping struct {
	data mmap.MMap
	pos  int
}

// OpenInputFile opens name read-only, preferring an mmap of the whole file
// when it is a regular file of nonzero size; any failure along that path
// (non-regular file, zero length, mmap.Map error) silently falls back to
// OpenFile's buffered read path, per SPEC_FULL.md: "documents this as a pure
// perf path, falling back whenever mmap.Map returns an error."
func OpenInputFile(name string) (*FileHandle, error) {
	fd, err := unix.Open(name, unix.O_RDONLY, 0)
	if err != nil {
		return nil, mapErrno(err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err == nil && st.Mode&unix.S_IFMT == unix.S_IFREG && st.Size > 0 {
		f := os.NewFile(uintptr(fd), name)
		if m, merr := mmap.Map(f, mmap.RDONLY, 0); merr == nil {
			// f's finalizer would otherwise close fd out from under us;
			// FileHandle.Close owns that descriptor instead.
			runtime.SetFinalizer(f, nil)
			fh := &FileHandle{fd: fd, mode: ParsedMode{Read: true}}
			fh.Init(name, name, true, false, false)
			fh.mapping = &mapping{data: m}
			return fh, nil
		}
		runtime.SetFinalizer(f, nil)
	}

	fh := &FileHandle{fd: fd, mode: ParsedMode{Read: true}}
	fh.Init(name, name, true, false, false)
	fh.wmax = defaultBufSize
	return fh, nil
}

func (m *mapping) getByte() (byte, error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	b := m.data[m.pos]
	m.pos++
	return b, nil
}

func (m *mapping) eof() bool       { return m.pos >= len(m.data) }
func (m *mapping) seek(off int64)  { m.pos = int(off) }
func (m *mapping) close() error    { return m.data.Unmap() }
