//go:build unix

package server

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket marks the listening socket reusable so a restarted daemon
// can bind while old connections sit in TIME_WAIT
func controlSocket(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
