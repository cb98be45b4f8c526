//go:build !unix

package server

import "syscall"

func controlSocket(_, _ string, _ syscall.RawConn) error {
	return nil
}
