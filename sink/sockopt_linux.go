//go:build linux

package sink

import (
	"net"

	"golang.org/x/sys/unix"
)

// setMaxSegmentSize sets TCP_MAXSEG on conn's underlying socket, following
// the SyscallConn().Control pattern used throughout the pack's sockopt
// helpers.
func setMaxSegmentSize(conn *net.TCPConn, mss int) (err error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	ctrlErr := raw.Control(func(fd uintptr) {
		err = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_MAXSEG, mss)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return err
}

func errIsUnsupported(err error) bool {
	return false
}
