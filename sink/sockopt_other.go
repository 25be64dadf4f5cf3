//go:build !linux

package sink

import (
	"errors"
	"fmt"
	"net"
)

// setMaxSegmentSize is a no-op stub on platforms where this package doesn't
// implement TCP_MAXSEG control. Callers treat the returned error as
// non-fatal via errIsUnsupported.
func setMaxSegmentSize(_ *net.TCPConn, _ int) error {
	return fmt.Errorf("%w: setting TCP_MAXSEG is not implemented on this platform", errors.ErrUnsupported)
}

func errIsUnsupported(err error) bool {
	return errors.Is(err, errors.ErrUnsupported)
}
