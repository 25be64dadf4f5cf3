package sniff

import (
	"bytes"
	"strings"
)

// DefaultMaxHeaderBytes bounds how far ParseHTTPRequest will scan before
// giving up with ErrMalformed, matching spec ¤4.B's 16 KiB default.
const DefaultMaxHeaderBytes = 16 * 1024

var methodPrefixes = [][]byte{
	[]byte("GET "),
	[]byte("POST "),
	[]byte("PUT "),
	[]byte("DELETE "),
	[]byte("HEAD "),
	[]byte("OPTIONS "),
	[]byte("PATCH "),
	[]byte("CONNECT "),
}

// HTTPRequestView is the result of parsing an HTTP/1.x request line plus
// headers up to (and including) the end-of-headers marker. All offsets are
// absolute into the buffer given to ParseHTTPRequest.
type HTTPRequestView struct {
	Method  string
	Target  string
	Version string

	// HostOffset/HostLength describe the Host header's value bytes
	// (trimmed of surrounding whitespace), or the CONNECT target's host
	// bytes for CONNECT requests.
	HostOffset int
	HostLength int
	Hostname   string
}

// LooksLikeHTTPRequest reports whether buf begins with a recognized HTTP
// request method, matching spec ¤4.E's classification prefixes.
func LooksLikeHTTPRequest(buf []byte) bool {
	for _, p := range methodPrefixes {
		if bytes.HasPrefix(buf, p) {
			return true
		}
	}
	return false
}

// couldBecomeHTTPRequest reports whether buf is a strict prefix of some
// recognized method prefix, i.e. classification is still undecided and more
// bytes could turn it into a match. Used to tell a too-short read apart from
// bytes that can never be an HTTP request.
func couldBecomeHTTPRequest(buf []byte) bool {
	for _, p := range methodPrefixes {
		if len(buf) < len(p) && bytes.HasPrefix(p, buf) {
			return true
		}
	}
	return false
}

// ParseHTTPRequest scans buf for a CRLF-terminated request line and
// headers, up to an end-of-headers CRLFCRLF or maxHeaderBytes.
//
// For CONNECT requests, the target is "host:port" and the returned
// Hostname excludes the port. For other methods, the parser looks for a
// "Host:" header (case-insensitive) and records its value.
func ParseHTTPRequest(buf []byte, maxHeaderBytes int) (HTTPRequestView, error) {
	var view HTTPRequestView

	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderBytes
	}
	if !LooksLikeHTTPRequest(buf) {
		if couldBecomeHTTPRequest(buf) {
			return view, ErrIncomplete
		}
		return view, ErrNotHTTP
	}

	headerEnd := bytes.Index(buf, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		if len(buf) > maxHeaderBytes {
			return view, ErrMalformed
		}
		return view, ErrIncomplete
	}
	// Keep the CRLF that ends the last line, so a request line with no
	// header lines after it is still found.
	headerBlock := buf[:headerEnd+2]

	lineEnd := bytes.Index(headerBlock, []byte("\r\n"))
	if lineEnd < 0 {
		return view, ErrMalformed
	}
	requestLine := string(headerBlock[:lineEnd])
	parts := strings.SplitN(requestLine, " ", 3)
	if len(parts) != 3 {
		return view, ErrMalformed
	}
	view.Method, view.Target, view.Version = parts[0], parts[1], parts[2]

	if view.Method == "CONNECT" {
		host, _, ok := splitHostPort(view.Target)
		if !ok {
			return view, ErrMalformed
		}
		// Absolute offsets into the target substring within buf.
		targetOffset := bytes.Index(buf, []byte(view.Target))
		hostOffset := targetOffset
		if strings.HasPrefix(view.Target, "[") {
			hostOffset++ // skip the IPv6 opening bracket
		}
		view.HostOffset = hostOffset
		view.HostLength = len(host)
		view.Hostname = host
		return view, nil
	}

	rest := headerBlock[lineEnd+2:]
	offset := lineEnd + 2
	for len(rest) > 0 {
		next := bytes.Index(rest, []byte("\r\n"))
		var line []byte
		if next < 0 {
			line = rest
		} else {
			line = rest[:next]
		}
		if colon := bytes.IndexByte(line, ':'); colon > 0 {
			name := string(line[:colon])
			if strings.EqualFold(strings.TrimSpace(name), "host") {
				valueStart := colon + 1
				for valueStart < len(line) && (line[valueStart] == ' ' || line[valueStart] == '\t') {
					valueStart++
				}
				valueEnd := len(line)
				for valueEnd > valueStart && (line[valueEnd-1] == ' ' || line[valueEnd-1] == '\t') {
					valueEnd--
				}
				value := string(line[valueStart:valueEnd])
				host, _, ok := splitHostPort(value)
				if !ok {
					host = value
				}
				view.HostOffset = offset + valueStart
				view.HostLength = valueEnd - valueStart
				view.Hostname = host
				return view, nil
			}
		}
		if next < 0 {
			break
		}
		rest = rest[next+2:]
		offset += next + 2
	}

	return view, ErrNoHost
}

// splitHostPort splits "host:port" or a bare "host" into its host part
// (without consuming IPv6 brackets beyond stripping them) and port, ok is
// false only for a structurally empty host.
func splitHostPort(hostport string) (host, port string, ok bool) {
	if idx := strings.LastIndex(hostport, ":"); idx >= 0 && !strings.Contains(hostport[idx+1:], "]") {
		host, port = hostport[:idx], hostport[idx+1:]
	} else {
		host = hostport
	}
	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	if host == "" {
		return "", "", false
	}
	return host, port, true
}

// RewriteAbsoluteTarget strips a "scheme://host[:port]" prefix from an
// absolute-form request target, returning the origin-form target. Used by
// the Http classification path since the Host header already conveys the
// destination (spec ¤4.E).
func RewriteAbsoluteTarget(target string) string {
	if !strings.Contains(target, "://") {
		return target
	}
	idx := strings.Index(target, "://")
	rest := target[idx+3:]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		return rest[slash:]
	}
	return "/"
}
