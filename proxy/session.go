package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/1etu/turkeydpi/fragment"
	"github.com/1etu/turkeydpi/profile"
	"github.com/1etu/turkeydpi/resolver"
	"github.com/1etu/turkeydpi/sink"
	"github.com/1etu/turkeydpi/sniff"
)

// Timeouts per spec ¤4.E "Cancellation & timeouts".
const (
	sniffTimeout   = 5 * time.Second
	resolveTimeout = 3 * time.Second
	connectTimeout = 5 * time.Second
)

// relayBufferSize is the per-direction copy buffer size used once the
// session enters Relay mode.
const relayBufferSize = 16 * 1024

// maxFirstFlight bounds how many bytes Session will buffer while waiting
// for a classification to resolve, for either the initial HTTP request or
// the post-CONNECT TLS ClientHello.
const maxFirstFlight = 32 * 1024

// Session drives one client connection through the Accept -> Sniff ->
// Resolve -> Connect -> FragmentFirstFlight -> Relay -> Closed states of
// spec ¤4.E.
type Session struct {
	Profile  profile.Profile
	Resolver *resolver.Resolver
	Logger   *Logger
}

// Handle runs the full session lifecycle for an accepted client
// connection. It always closes clientConn before returning.
func (s *Session) Handle(ctx context.Context, clientConn net.Conn) {
	defer clientConn.Close()
	peer := clientConn.RemoteAddr().String()
	s.Logger.Info("new connection from %s", peer)

	clientConn.SetReadDeadline(time.Now().Add(sniffTimeout))
	buf, parseErr, ioErr := readFirstFlight(clientConn, maxFirstFlight, func(b []byte) error {
		_, err := sniff.ParseHTTPRequest(b, sniff.DefaultMaxHeaderBytes)
		return err
	})
	clientConn.SetReadDeadline(time.Time{})
	if ioErr != nil {
		s.Logger.Error("reading request from %s: %v", peer, ioErr)
		return
	}
	if parseErr != nil {
		s.Logger.Error("classifying request from %s: %v", peer, parseErr)
		return
	}
	view, _ := sniff.ParseHTTPRequest(buf, sniff.DefaultMaxHeaderBytes)
	isConnect := view.Method == "CONNECT"

	host, port, err := targetHostPort(view)
	if err != nil {
		s.Logger.Error("invalid target in request from %s: %v", peer, err)
		return
	}

	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	ips, err := s.Resolver.Resolve(resolveCtx, host)
	cancel()
	if err != nil {
		s.Logger.Warn("resolve failed for %s: %v", host, err)
		if !isConnect {
			writeStatus(clientConn, 502, "Bad Gateway")
		}
		return
	}
	s.Logger.Info("resolved %s -> %s", host, ips[0])

	targetConn, err := dialAny(ctx, ips, port)
	if err != nil {
		s.Logger.Error("connecting to %s:%s: %v", host, port, err)
		if !isConnect {
			writeStatus(clientConn, 502, "Bad Gateway")
		}
		return
	}
	defer targetConn.Close()
	s.Logger.Info("connected %s:%s", host, port)

	tcpTarget, ok := targetConn.(*net.TCPConn)
	if !ok {
		s.Logger.Error("target connection is not TCP")
		return
	}
	targetSink, err := sink.NewTCPSink(tcpTarget, s.Profile.ForceSmallMSS, s.Profile.DisableWriteCoalescing)
	if err != nil {
		s.Logger.Error("preparing sink for %s:%s: %v", host, port, err)
		return
	}

	if isConnect {
		if _, err := clientConn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
			s.Logger.Error("writing CONNECT response to %s: %v", peer, err)
			return
		}
		if !s.fragmentTLSFlight(clientConn, targetSink, host) {
			return
		}
	} else {
		if !s.fragmentHTTPFlight(buf, view, targetSink, host) {
			return
		}
	}

	relay(clientConn, targetConn)
}

// dialAny tries each address in ips, in order, until one connects or all
// fail, per spec ¤4.E "on connect failure it falls back to the next
// address".
func dialAny(ctx context.Context, ips []net.IP, port string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: connectTimeout}
	var lastErr error
	for _, ip := range ips {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// writeStatus writes a minimal HTTP error response to a client that sent a
// non-CONNECT request, used when resolution or connection fails.
func writeStatus(conn net.Conn, code int, reason string) {
	fmt.Fprintf(conn, "HTTP/1.1 %d %s\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", code, reason)
}

// fragmentTLSFlight reads the post-CONNECT first flight from the client
// (expected to be a TLS ClientHello), fragments it per s.Profile, and
// writes it to targetSink. Returns false if the connection is no longer
// usable.
func (s *Session) fragmentTLSFlight(clientConn net.Conn, targetSink sink.Sink, host string) bool {
	clientConn.SetReadDeadline(time.Now().Add(sniffTimeout))
	buf, parseErr, ioErr := readFirstFlight(clientConn, maxFirstFlight, func(b []byte) error {
		_, err := sniff.ParseClientHello(b)
		return err
	})
	clientConn.SetReadDeadline(time.Time{})
	if len(buf) == 0 && ioErr != nil {
		s.Logger.Error("reading ClientHello for %s: %v", host, ioErr)
		return false
	}
	view, _ := sniff.ParseClientHello(buf)
	frags := fragment.BuildFromTLS(buf, s.Profile, view, parseErr)
	switch parseErr {
	case nil:
		s.Logger.Info("SNI fragmented %s (%d fragments)", host, len(frags))
	case sniff.ErrMalformed:
		s.Logger.Debug("malformed ClientHello from %s, forwarding unmodified", host)
	}
	if err := targetSink.Write(frags); err != nil {
		s.Logger.Error("writing fragmented ClientHello for %s: %v", host, err)
		return false
	}
	return ioErr == nil
}

// fragmentHTTPFlight rewrites an absolute-form HTTP request into
// origin-form, fragments it per s.Profile, and writes it to targetSink.
func (s *Session) fragmentHTTPFlight(buf []byte, view sniff.HTTPRequestView, targetSink sink.Sink, host string) bool {
	rewritten := rewriteRequestLine(buf, view)
	view2, parseErr := sniff.ParseHTTPRequest(rewritten, sniff.DefaultMaxHeaderBytes)
	frags := fragment.BuildFromHTTP(rewritten, s.Profile, view2, parseErr)
	switch parseErr {
	case nil:
		s.Logger.Info("Host header fragmented %s (%d fragments)", host, len(frags))
	case sniff.ErrMalformed:
		s.Logger.Debug("malformed request from %s, forwarding unmodified", host)
	}
	if err := targetSink.Write(frags); err != nil {
		s.Logger.Error("writing fragmented request for %s: %v", host, err)
		return false
	}
	return true
}

// rewriteRequestLine replaces buf's absolute-form request line with an
// origin-form one, leaving every header byte untouched.
func rewriteRequestLine(buf []byte, view sniff.HTTPRequestView) []byte {
	lineEnd := bytes.Index(buf, []byte("\r\n"))
	if lineEnd < 0 {
		return buf
	}
	origin := sniff.RewriteAbsoluteTarget(view.Target)
	newLine := fmt.Sprintf("%s %s %s\r\n", view.Method, origin, view.Version)
	out := make([]byte, 0, len(newLine)+len(buf)-lineEnd-2)
	out = append(out, newLine...)
	out = append(out, buf[lineEnd+2:]...)
	return out
}

// targetHostPort extracts the destination host and port implied by an
// HTTPRequestView, defaulting to port 80 for absolute-form HTTP requests
// and port 443 for CONNECT requests that omit one.
func targetHostPort(view sniff.HTTPRequestView) (host, port string, err error) {
	if view.Method == "CONNECT" {
		_, p, ok := splitHostPortLoose(view.Target)
		if !ok {
			// A bare host with no ":port" is accepted and gets the default.
			if view.Target != view.Hostname {
				return "", "", fmt.Errorf("CONNECT target %q is not host:port", view.Target)
			}
			p = ""
		}
		if p == "" {
			p = "443"
		}
		return view.Hostname, p, nil
	}
	u, err := url.Parse(view.Target)
	if err != nil {
		return "", "", fmt.Errorf("invalid request target %q: %w", view.Target, err)
	}
	port = u.Port()
	if port == "" {
		port = "80"
	}
	return view.Hostname, port, nil
}

func splitHostPortLoose(hostport string) (host, port string, ok bool) {
	h, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", "", false
	}
	return h, p, true
}

// relay copies bytes bidirectionally between client and target. When one
// direction reaches EOF or fails, the write side it was copying into is
// half-closed; relay returns once both directions have finished.
func relay(clientConn, targetConn net.Conn) {
	done := make(chan struct{})
	go func() {
		buf := make([]byte, relayBufferSize)
		io.CopyBuffer(targetConn, clientConn, buf)
		if tc, ok := targetConn.(interface{ CloseWrite() error }); ok {
			tc.CloseWrite()
		}
		close(done)
	}()
	buf := make([]byte, relayBufferSize)
	io.CopyBuffer(clientConn, targetConn, buf)
	if cc, ok := clientConn.(interface{ CloseWrite() error }); ok {
		cc.CloseWrite()
	}
	<-done
}

// readFirstFlight accumulates bytes from conn, calling tryParse after every
// read. It stops and returns when tryParse returns a non-sniff.ErrIncomplete
// result (success or a definitive parse failure), when maxBytes is
// exceeded, or when conn.Read fails.
func readFirstFlight(conn net.Conn, maxBytes int, tryParse func([]byte) error) (buf []byte, parseErr error, ioErr error) {
	buf = make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		parseErr = tryParse(buf)
		if parseErr != sniff.ErrIncomplete {
			return buf, parseErr, nil
		}
		if len(buf) >= maxBytes {
			return buf, sniff.ErrMalformed, nil
		}
		n, rerr := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if rerr != nil {
			return buf, parseErr, rerr
		}
	}
}
