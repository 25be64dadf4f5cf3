// Package sink writes a fragment.Fragment list to a network connection,
// applying whatever socket-level measures a profile.Profile asks for
// (small MSS, disabled write coalescing) so fragments actually leave the
// host as separate TCP segments instead of being recombined by the kernel.
package sink

import (
	"fmt"
	"net"
	"time"

	"github.com/1etu/turkeydpi/fragment"
)

// smallMSS is the TCP_MAXSEG value requested when a profile sets
// ForceSmallMSS: 88, the smallest value Linux accepts for TCP_MAXSEG
// (smaller values are rejected with EINVAL). Small enough to force the
// first few fragments of a ClientHello into distinct segments on a typical
// path MTU.
const smallMSS = 88

// Sink writes a fragment list to its destination in order, honoring each
// fragment's pre-write delay.
type Sink interface {
	Write(fragments []fragment.Fragment) error
}

// TCPSink writes fragments to a *net.TCPConn, one Write syscall per
// fragment, sleeping PreDelay before each write after the first.
type TCPSink struct {
	conn                   *net.TCPConn
	forceSmallMSS          bool
	disableWriteCoalescing bool
}

// NewTCPSink wraps conn. If forceSmallMSS or disableWriteCoalescing are
// set, the corresponding socket options are applied once, before any
// fragment is written.
func NewTCPSink(conn *net.TCPConn, forceSmallMSS, disableWriteCoalescing bool) (*TCPSink, error) {
	s := &TCPSink{conn: conn, forceSmallMSS: forceSmallMSS, disableWriteCoalescing: disableWriteCoalescing}
	if disableWriteCoalescing {
		if err := conn.SetNoDelay(true); err != nil {
			return nil, fmt.Errorf("sink: disable write coalescing: %w", err)
		}
	}
	if forceSmallMSS {
		if err := setMaxSegmentSize(conn, smallMSS); err != nil && !errIsUnsupported(err) {
			return nil, fmt.Errorf("sink: force small MSS: %w", err)
		}
	}
	return s, nil
}

// Write sends every fragment in order. It never reorders or merges
// fragments; each one is its own Write call on the underlying connection.
func (s *TCPSink) Write(fragments []fragment.Fragment) error {
	for i, f := range fragments {
		if i > 0 && f.PreDelay > 0 {
			time.Sleep(f.PreDelay)
		}
		if len(f.Data) == 0 {
			continue
		}
		if _, err := s.conn.Write(f.Data); err != nil {
			return fmt.Errorf("sink: write fragment %d: %w", i, err)
		}
	}
	return nil
}
