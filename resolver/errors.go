// Package resolver resolves hostnames to IP addresses using DNS-over-HTTPS
// (RFC 8484), talking the RFC1035 wire format rather than any JSON dialect,
// and dialing the resolver endpoint by literal IP so the lookup never
// depends on the system's own (possibly DPI-visible) resolver.
package resolver

import "errors"

var (
	// ErrNoAddresses means the DoH resolver answered successfully but
	// returned neither an A nor an AAAA record for the name.
	ErrNoAddresses = errors.New("resolver: no addresses returned")
	// ErrNotLiteralEndpoint means the configured DoH endpoint's host is not
	// a literal IP address, which would force a bootstrap resolution this
	// package refuses to perform.
	ErrNotLiteralEndpoint = errors.New("resolver: endpoint host must be a literal IP")
)
