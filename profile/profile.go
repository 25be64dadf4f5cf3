// Package profile defines the fragmentation policy applied to a session's
// first client->server flight.
//
// A Profile is immutable configuration: it says how and where to split the
// outgoing bytes, not how to perform the split. The split logic itself
// lives in package fragment, which consumes a Profile plus a parsed view of
// the flight (see package sniff).
package profile

import "time"

// SNISplitMode selects how the TLS ClientHello is split.
type SNISplitMode int

const (
	// SNISplitNone performs no TLS-specific split.
	SNISplitNone SNISplitMode = iota
	// SNISplitFixedOffset splits at a fixed absolute offset into the first
	// flight, intended to cleave the 5-byte TLS record header.
	SNISplitFixedOffset
	// SNISplitBeforeHandshakeType splits immediately before the
	// handshake-type byte (offset 5 for a single-record ClientHello).
	SNISplitBeforeHandshakeType
	// SNISplitInsideHostname splits inside the SNI hostname bytes
	// themselves, at the position described by HostnamePosition.
	SNISplitInsideHostname
)

// HTTPHostSplitMode selects how the HTTP Host header value is split.
type HTTPHostSplitMode int

const (
	// HTTPHostSplitNone performs no HTTP-specific split.
	HTTPHostSplitNone HTTPHostSplitMode = iota
	// HTTPHostSplitInsideValue splits inside the Host header value, at the
	// position described by a Position.
	HTTPHostSplitInsideValue
)

// PositionKind is the flavor of a Position: from the start of a byte range,
// at its midpoint, or counted back from its end.
type PositionKind int

const (
	PositionFromStart PositionKind = iota
	PositionMiddle
	PositionFromEnd
)

// Position describes where inside a byte range (e.g. the SNI hostname, or
// the Host header value) to place a split.
type Position struct {
	Kind PositionKind
	N    int // offset from start or from end; unused for PositionMiddle
}

// Mid returns the position with the split at the range's midpoint.
func Mid() Position { return Position{Kind: PositionMiddle} }

// FromStart returns the position n bytes after the range's start.
func FromStart(n int) Position { return Position{Kind: PositionFromStart, N: n} }

// FromEnd returns the position n bytes before the range's end.
func FromEnd(n int) Position { return Position{Kind: PositionFromEnd, N: n} }

// Profile is the immutable fragmentation policy. Zero value is the
// no-op profile: no splitting beyond whatever ExtraSplits names.
type Profile struct {
	Name string

	SNISplitMode     SNISplitMode
	SNIFixedOffset   int      // used when SNISplitMode == SNISplitFixedOffset
	HostnamePosition Position // used when SNISplitMode == SNISplitInsideHostname

	HTTPHostSplitMode HTTPHostSplitMode
	HTTPHostPosition  Position // used when HTTPHostSplitMode == HTTPHostSplitInsideValue

	// ExtraSplits are additional absolute byte offsets to inject as segment
	// boundaries, independent of the SNI/Host logic above.
	ExtraSplits []int

	// InterFragmentDelay is applied before writing every fragment after the
	// first. Zero disables the delay.
	InterFragmentDelay time.Duration

	// ForceSmallMSS requests a small outbound TCP_MAXSEG where the OS
	// supports it.
	ForceSmallMSS bool

	// DisableWriteCoalescing disables Nagle-style coalescing so each
	// fragment write corresponds to its own TCP segment.
	DisableWriteCoalescing bool
}

// None is the empty profile: no fragmentation, traffic passes through
// unmodified. Useful as a baseline and in tests.
func None() Profile {
	return Profile{Name: "none"}
}

// TurkTelekom mirrors the turk-telekom preset from spec ¤4.A: split the TLS
// record header after its 2nd byte, split the Host value at its midpoint.
func TurkTelekom() Profile {
	return Profile{
		Name:                   "turk-telekom",
		SNISplitMode:           SNISplitFixedOffset,
		SNIFixedOffset:         2,
		HTTPHostSplitMode:      HTTPHostSplitInsideValue,
		HTTPHostPosition:       Mid(),
		InterFragmentDelay:     0,
		ForceSmallMSS:          true,
		DisableWriteCoalescing: true,
	}
}

// Vodafone mirrors the vodafone preset: split after the 3rd record-header
// byte, add a 20ms inter-fragment delay.
func Vodafone() Profile {
	return Profile{
		Name:                   "vodafone",
		SNISplitMode:           SNISplitFixedOffset,
		SNIFixedOffset:         3,
		HTTPHostSplitMode:      HTTPHostSplitInsideValue,
		HTTPHostPosition:       Mid(),
		InterFragmentDelay:     20 * time.Millisecond,
		ForceSmallMSS:          true,
		DisableWriteCoalescing: true,
	}
}

// Superonline mirrors the superonline preset: split after the content-type
// byte (offset 1).
func Superonline() Profile {
	return Profile{
		Name:                   "superonline",
		SNISplitMode:           SNISplitFixedOffset,
		SNIFixedOffset:         1,
		HTTPHostSplitMode:      HTTPHostSplitInsideValue,
		HTTPHostPosition:       Mid(),
		InterFragmentDelay:     0,
		ForceSmallMSS:          true,
		DisableWriteCoalescing: true,
	}
}

// Aggressive mirrors the aggressive preset: splits both before the
// handshake-type byte AND inside the hostname, plus a 10ms delay.
func Aggressive() Profile {
	return Profile{
		Name:                   "aggressive",
		SNISplitMode:           SNISplitInsideHostname,
		HostnamePosition:       Mid(),
		ExtraSplits:            []int{5},
		HTTPHostSplitMode:      HTTPHostSplitInsideValue,
		HTTPHostPosition:       Mid(),
		InterFragmentDelay:     10 * time.Millisecond,
		ForceSmallMSS:          true,
		DisableWriteCoalescing: true,
	}
}

// ByName resolves one of the four named presets from spec ¤6's
// --preset flag. ok is false for an unrecognized name.
func ByName(name string) (p Profile, ok bool) {
	switch name {
	case "turk-telekom":
		return TurkTelekom(), true
	case "vodafone":
		return Vodafone(), true
	case "superonline":
		return Superonline(), true
	case "aggressive":
		return Aggressive(), true
	default:
		return Profile{}, false
	}
}
