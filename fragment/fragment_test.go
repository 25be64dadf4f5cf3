package fragment

import (
	"testing"
	"time"

	"github.com/1etu/turkeydpi/profile"
	"github.com/1etu/turkeydpi/sniff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concat(frags []Fragment) []byte {
	var out []byte
	for _, f := range frags {
		out = append(out, f.Data...)
	}
	return out
}

func TestPassthroughOnParseError(t *testing.T) {
	buf := []byte("not really a client hello")
	frags := BuildFromTLS(buf, profile.Aggressive(), sniff.ClientHelloView{}, sniff.ErrMalformed)
	require.Len(t, frags, 1)
	assert.Equal(t, buf, frags[0].Data)
	assert.Zero(t, frags[0].PreDelay)
}

func TestBuildFromTLSRoundTrip(t *testing.T) {
	buf := make([]byte, 517)
	for i := range buf {
		buf[i] = byte(i)
	}
	view := sniff.ClientHelloView{HandshakeTypeOffset: 5, SNIOffset: 54, SNILength: 11}
	frags := BuildFromTLS(buf, profile.Aggressive(), view, nil)

	assert.Equal(t, buf, concat(frags))

	var offsets []int
	pos := 0
	for _, f := range frags {
		pos += len(f.Data)
		offsets = append(offsets, pos)
	}
	// last boundary is len(buf); interior boundaries should be {5, 59}.
	require.True(t, len(offsets) >= 2)
	assert.Equal(t, 5, offsets[0])
	assert.Equal(t, 59, offsets[1])
	assert.Equal(t, len(buf), offsets[len(offsets)-1])
}

func TestBuildFromTLSDelays(t *testing.T) {
	buf := make([]byte, 100)
	view := sniff.ClientHelloView{SNIOffset: 50, SNILength: 10}
	p := profile.Profile{
		SNISplitMode:       profile.SNISplitInsideHostname,
		HostnamePosition:   profile.Mid(),
		InterFragmentDelay: 15 * time.Millisecond,
	}
	frags := BuildFromTLS(buf, p, view, nil)
	require.Len(t, frags, 2)
	assert.Zero(t, frags[0].PreDelay)
	assert.Equal(t, 15*time.Millisecond, frags[1].PreDelay)
}

func TestBuildFromHTTPMatchesWorkedExample(t *testing.T) {
	// Spec scenario 3: twitter.com Host header split between "twitt" and
	// "er.com".
	hostValue := "twitter.com"
	prefix := "GET / HTTP/1.1\r\nHost: "
	buf := []byte(prefix + hostValue + "\r\n\r\n")
	hostOffset := len(prefix)
	view := sniff.HTTPRequestView{HostOffset: hostOffset, HostLength: len(hostValue)}
	p := profile.TurkTelekom()
	frags := BuildFromHTTP(buf, p, view, nil)

	assert.Equal(t, buf, concat(frags))
	require.Len(t, frags, 2)
	assert.Equal(t, "twitt", string(frags[0].Data[hostOffset:]))
	assert.Equal(t, "er.com", string(frags[1].Data[:6]))
}

func TestSplitOffsetsAreDedupedSortedAndBounded(t *testing.T) {
	buf := make([]byte, 10)
	p := profile.Profile{ExtraSplits: []int{3, 3, -1, 0, 10, 11, 5}}
	frags := emit(buf, p.ExtraSplits, 0)
	assert.Equal(t, buf, concat(frags))
	require.Len(t, frags, 3) // boundaries at 3 and 5
	assert.Equal(t, 3, len(frags[0].Data))
	assert.Equal(t, 2, len(frags[1].Data))
	assert.Equal(t, 5, len(frags[2].Data))
}
