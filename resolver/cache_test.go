package resolver

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetMiss(t *testing.T) {
	c := newCache()
	_, ok := c.get("example.com")
	assert.False(t, ok)
}

func TestCachePutThenGet(t *testing.T) {
	c := newCache()
	ips := []net.IP{net.ParseIP("1.2.3.4")}
	c.put("example.com", ips, 30*time.Second)
	got, ok := c.get("example.com")
	require.True(t, ok)
	assert.Equal(t, ips, got)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	base := time.Now()
	c := newCache()
	c.now = func() time.Time { return base }
	c.put("example.com", []net.IP{net.ParseIP("1.2.3.4")}, 10*time.Second)

	c.now = func() time.Time { return base.Add(5 * time.Second) }
	_, ok := c.get("example.com")
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(11 * time.Second) }
	_, ok = c.get("example.com")
	assert.False(t, ok)
}

func TestCacheCapsTTLAtCeiling(t *testing.T) {
	base := time.Now()
	c := newCache()
	c.now = func() time.Time { return base }
	c.put("example.com", []net.IP{net.ParseIP("1.2.3.4")}, time.Hour)

	c.now = func() time.Time { return base.Add(maxCacheTTL + time.Second) }
	_, ok := c.get("example.com")
	assert.False(t, ok)
}
