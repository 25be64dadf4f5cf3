// Package fragment turns a first-flight buffer plus a profile.Profile into
// an ordered list of byte-slice fragments, splitting at offsets chosen to
// keep DPI-fingerprinted bytes (the TLS SNI hostname, the HTTP Host header
// value) from appearing contiguously in a single outbound write.
//
// Fragments borrow directly from the input buffer; callers must keep that
// buffer alive until every fragment has been written (see spec ¤9,
// "First-flight buffer ownership").
package fragment

import (
	"sort"
	"time"

	"github.com/1etu/turkeydpi/profile"
	"github.com/1etu/turkeydpi/sniff"
)

// Fragment is one outbound write: the bytes to send, and how long to wait
// before sending them.
type Fragment struct {
	Data     []byte
	PreDelay time.Duration
}

// Passthrough returns the whole buffer as a single, undelayed fragment.
// Used whenever parsing failed and the Fragmenter falls back to forwarding
// the flight unmodified.
func Passthrough(buf []byte) []Fragment {
	if len(buf) == 0 {
		return nil
	}
	return []Fragment{{Data: buf}}
}

// BuildFromTLS computes the fragment list for a TLS ClientHello first
// flight. parseErr is whatever sniff.ParseClientHello returned; any
// non-nil value (including ErrNoSNI) causes a passthrough, matching spec
// ¤4.C's edge case for failed parses.
func BuildFromTLS(buf []byte, p profile.Profile, view sniff.ClientHelloView, parseErr error) []Fragment {
	if parseErr != nil {
		return Passthrough(buf)
	}

	offsets := append([]int{}, p.ExtraSplits...)

	switch p.SNISplitMode {
	case profile.SNISplitFixedOffset:
		offsets = append(offsets, p.SNIFixedOffset)
	case profile.SNISplitBeforeHandshakeType:
		offsets = append(offsets, view.HandshakeTypeOffset)
	case profile.SNISplitInsideHostname:
		if view.SNILength > 0 {
			if at, ok := computePosition(view.SNIOffset, view.SNIOffset+view.SNILength, p.HostnamePosition); ok {
				offsets = append(offsets, at)
			}
		}
	}

	return emit(buf, offsets, p.InterFragmentDelay)
}

// BuildFromHTTP computes the fragment list for a plaintext HTTP request
// first flight. parseErr is whatever sniff.ParseHTTPRequest returned; any
// non-nil value causes a passthrough.
func BuildFromHTTP(buf []byte, p profile.Profile, view sniff.HTTPRequestView, parseErr error) []Fragment {
	if parseErr != nil {
		return Passthrough(buf)
	}

	offsets := append([]int{}, p.ExtraSplits...)

	if p.HTTPHostSplitMode == profile.HTTPHostSplitInsideValue && view.HostLength > 0 {
		if at, ok := computePosition(view.HostOffset, view.HostOffset+view.HostLength, p.HTTPHostPosition); ok {
			offsets = append(offsets, at)
		}
	}

	return emit(buf, offsets, p.InterFragmentDelay)
}

// computePosition resolves a profile.Position against the half-open byte
// range [start, end), clamping at_middle splits to leave at least one byte
// on either side, per spec ¤4.C step 2.
func computePosition(start, end int, pos profile.Position) (int, bool) {
	if end-start < 2 {
		return 0, false
	}
	switch pos.Kind {
	case profile.PositionMiddle:
		mid := start + (end-start)/2
		if mid <= start {
			mid = start + 1
		}
		if mid >= end {
			mid = end - 1
		}
		return mid, true
	case profile.PositionFromStart:
		at := start + pos.N
		if at <= start || at >= end {
			return 0, false
		}
		return at, true
	case profile.PositionFromEnd:
		at := end - pos.N
		if at <= start || at >= end {
			return 0, false
		}
		return at, true
	default:
		return 0, false
	}
}

// emit deduplicates and sorts the candidate offsets, discards anything
// outside (0, len(buf)), and slices buf into the resulting fragments. The
// first fragment always carries zero delay; every subsequent fragment
// carries delay.
func emit(buf []byte, offsets []int, delay time.Duration) []Fragment {
	seen := make(map[int]struct{}, len(offsets))
	var points []int
	for _, o := range offsets {
		if o <= 0 || o >= len(buf) {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		points = append(points, o)
	}
	sort.Ints(points)

	boundaries := make([]int, 0, len(points)+2)
	boundaries = append(boundaries, 0)
	boundaries = append(boundaries, points...)
	boundaries = append(boundaries, len(buf))

	fragments := make([]Fragment, 0, len(boundaries)-1)
	for i := 0; i < len(boundaries)-1; i++ {
		start, end := boundaries[i], boundaries[i+1]
		if start == end {
			continue
		}
		d := time.Duration(0)
		if i > 0 {
			d = delay
		}
		fragments = append(fragments, Fragment{Data: buf[start:end], PreDelay: d})
	}
	return fragments
}
