package proxy

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/1etu/turkeydpi/profile"
	"github.com/1etu/turkeydpi/resolver"
	"github.com/stretchr/testify/require"
)

// tcpPipe returns two ends of a real loopback TCP connection, letting tests
// exercise CloseWrite half-close semantics that net.Pipe doesn't support.
func tcpPipe(t *testing.T) (a, b *net.TCPConn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptedCh := make(chan *net.TCPConn, 1)
	go func() {
		c, err := ln.Accept()
		require.NoError(t, err)
		acceptedCh <- c.(*net.TCPConn)
	}()

	dialed, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	return dialed.(*net.TCPConn), <-acceptedCh
}

func newTestSession(p profile.Profile) *Session {
	res, _ := resolver.New(resolver.DefaultEndpoint)
	return &Session{Profile: p, Resolver: res, Logger: NewLogger(io.Discard, false)}
}

func TestSessionHandlesAbsoluteFormHTTP(t *testing.T) {
	targetLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer targetLn.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := targetLn.Accept()
		require.NoError(t, err)
		defer conn.Close()
		body, _ := io.ReadAll(conn)
		received <- body
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
	}()

	browserSide, proxySide := tcpPipe(t)
	defer browserSide.Close()

	port := targetLn.Addr().(*net.TCPAddr).Port
	req := "GET http://127.0.0.1:" + strconv.Itoa(port) + "/ HTTP/1.1\r\nHost: 127.0.0.1:" + strconv.Itoa(port) + "\r\n\r\n"
	_, err = browserSide.Write([]byte(req))
	require.NoError(t, err)
	require.NoError(t, browserSide.CloseWrite())

	session := newTestSession(profile.TurkTelekom())
	done := make(chan struct{})
	go func() {
		session.Handle(context.Background(), proxySide)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
	}

	body := <-received
	require.Contains(t, string(body), "GET / HTTP/1.1")
	require.NotContains(t, string(body), "http://127.0.0.1")

	resp, err := io.ReadAll(browserSide)
	require.NoError(t, err)
	require.Contains(t, string(resp), "200 OK")
}

func TestSessionHandlesConnect(t *testing.T) {
	targetLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer targetLn.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := targetLn.Accept()
		require.NoError(t, err)
		defer conn.Close()
		body, _ := io.ReadAll(conn)
		received <- body
	}()

	browserSide, proxySide := tcpPipe(t)
	defer browserSide.Close()

	port := targetLn.Addr().(*net.TCPAddr).Port
	req := "CONNECT 127.0.0.1:" + strconv.Itoa(port) + " HTTP/1.1\r\nHost: 127.0.0.1:" + strconv.Itoa(port) + "\r\n\r\n"
	_, err = browserSide.Write([]byte(req))
	require.NoError(t, err)

	session := newTestSession(profile.Aggressive())
	done := make(chan struct{})
	go func() {
		session.Handle(context.Background(), proxySide)
		close(done)
	}()

	// Read the "200 Connection Established" response.
	buf := make([]byte, 64)
	n, err := browserSide.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "200 Connection Established")

	// Send a fake ClientHello-ish payload through the tunnel.
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}
	payload[0] = 0x16
	payload[1] = 0x03
	payload[2] = 0x01
	_, err = browserSide.Write(payload)
	require.NoError(t, err)
	require.NoError(t, browserSide.CloseWrite())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
	}

	body := <-received
	require.Equal(t, payload, body)
}
