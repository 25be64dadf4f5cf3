package sink

import (
	"time"

	"github.com/1etu/turkeydpi/fragment"
)

// MemSink is an in-memory Sink recording every write it received, for use
// in tests that assert on fragment boundaries and delays without opening a
// real socket.
type MemSink struct {
	Writes []fragment.Fragment
}

// Write appends fragments to Writes, sleeping PreDelay like TCPSink does so
// delay-sensitive tests observe the same timing behavior.
func (m *MemSink) Write(fragments []fragment.Fragment) error {
	for i, f := range fragments {
		if i > 0 && f.PreDelay > 0 {
			time.Sleep(f.PreDelay)
		}
		m.Writes = append(m.Writes, f)
	}
	return nil
}

// Bytes returns the concatenation of every fragment written so far.
func (m *MemSink) Bytes() []byte {
	var out []byte
	for _, f := range m.Writes {
		out = append(out, f.Data...)
	}
	return out
}
