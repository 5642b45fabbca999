package handle

import (
	"golang.org/x/sys/unix"
)

// installFDFlags sets FD_CLOEXEC via fcntl(2) on a freshly opened fd when
// the mode string asked for 'e'; otherwise it leaves the descriptor alone.
// O_APPEND is not set here: ParsedMode.OFlags already passes it (and
// O_CLOEXEC for 'e') to open.
func installFDFlags(fd int, pm ParsedMode) error {
	if pm.CloseOnExec {
		flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
		if err != nil {
			return err
		}
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC); err != nil {
			return err
		}
	}
	return nil
}

// dup2CloseOnExec sets FD_CLOEXEC on fd via fcntl(2) without otherwise
// touching its open file description; it does not dup the descriptor.
// Nothing in the package calls it.
func dup2CloseOnExec(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC)
	return err
}

// isFIFO reports whether fd refers to a named pipe. Nothing in the package
// calls it; OpenFile's ENXIO handling looks only at the requested mode.
func isFIFO(fd int) bool {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFIFO
}
