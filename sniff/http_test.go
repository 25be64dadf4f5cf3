package sniff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHTTPRequestAbsoluteForm(t *testing.T) {
	raw := "GET http://twitter.com/ HTTP/1.1\r\nHost: twitter.com\r\nUser-Agent: test\r\n\r\n"
	view, err := ParseHTTPRequest([]byte(raw), 0)
	require.NoError(t, err)
	assert.Equal(t, "GET", view.Method)
	assert.Equal(t, "twitter.com", view.Hostname)
	assert.Equal(t, "twitter.com", raw[view.HostOffset:view.HostOffset+view.HostLength])
}

func TestParseHTTPRequestConnect(t *testing.T) {
	raw := "CONNECT example.com:443 HTTP/1.1\r\nHost: example.com:443\r\n\r\n"
	view, err := ParseHTTPRequest([]byte(raw), 0)
	require.NoError(t, err)
	assert.Equal(t, "CONNECT", view.Method)
	assert.Equal(t, "example.com", view.Hostname)
}

func TestParseHTTPRequestIncomplete(t *testing.T) {
	raw := "GET http://twitter.com/ HTTP/1.1\r\nHost: twitter.com\r\n"
	_, err := ParseHTTPRequest([]byte(raw), 0)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseHTTPRequestNotHTTP(t *testing.T) {
	_, err := ParseHTTPRequest([]byte{0x16, 0x03, 0x01, 0x00, 0x01}, 0)
	assert.ErrorIs(t, err, ErrNotHTTP)
}

func TestParseHTTPRequestNoHost(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nUser-Agent: test\r\n\r\n"
	_, err := ParseHTTPRequest([]byte(raw), 0)
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestRewriteAbsoluteTarget(t *testing.T) {
	assert.Equal(t, "/", RewriteAbsoluteTarget("http://twitter.com"))
	assert.Equal(t, "/index.html", RewriteAbsoluteTarget("http://twitter.com/index.html"))
	assert.Equal(t, "/already-origin", RewriteAbsoluteTarget("/already-origin"))
}
