// Package sniff locates the byte ranges inside a first client->server
// flight that DPI middleboxes fingerprint: the TLS SNI hostname and the
// HTTP Host header value. It never mutates its input, and every offset it
// returns is relative to the start of the buffer passed in.
package sniff

import "errors"

// Parse outcomes. A caller sees exactly one of these as the parser's error
// return (nil included), matching spec ¤3's ClientHelloView/HttpRequestView
// failure modes.
var (
	// ErrIncomplete means the buffer doesn't yet hold a full message; the
	// caller should read more bytes and retry.
	ErrIncomplete = errors.New("sniff: incomplete data")
	// ErrMalformed means the bytes don't conform to the expected protocol
	// framing.
	ErrMalformed = errors.New("sniff: malformed data")
	// ErrNoSNI means a ClientHello parsed fine but carried no server_name
	// extension.
	ErrNoSNI = errors.New("sniff: no SNI extension")
	// ErrNotHTTP means the buffer isn't a recognized HTTP request.
	ErrNotHTTP = errors.New("sniff: not an HTTP request")
	// ErrNoHost means an HTTP request parsed fine but carried no Host
	// header.
	ErrNoHost = errors.New("sniff: no Host header")
)
