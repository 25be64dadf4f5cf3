package resolver

import (
	"context"
	"net"
	"time"

	"golang.org/x/net/dns/dnsmessage"
	"golang.org/x/sync/singleflight"
)

// DefaultEndpoint is the DoH endpoint used when no other is configured, a
// literal-IP Cloudflare resolver per spec ¤7's external interfaces.
const DefaultEndpoint = "https://1.1.1.1/dns-query"

// Resolver resolves hostnames to IP addresses over DNS-over-HTTPS, caching
// answers and collapsing concurrent lookups of the same hostname into one
// upstream query.
type Resolver struct {
	transport *dohTransport
	cache     *cache
	group     singleflight.Group
}

// New builds a Resolver bound to endpoint, which must be an https:// URL
// whose host is a literal IP address.
func New(endpoint string) (*Resolver, error) {
	t, err := newDoHTransport(endpoint)
	if err != nil {
		return nil, err
	}
	return &Resolver{transport: t, cache: newCache()}, nil
}

// Resolve returns the IP addresses for hostname, preferring a cache hit,
// then deduplicating concurrent callers for the same hostname onto a single
// upstream query (spec ¤4.D). Resolution order is IPv4-first: if the A
// query returns any addresses those are returned directly, otherwise the
// AAAA results are used.
func (r *Resolver) Resolve(ctx context.Context, hostname string) ([]net.IP, error) {
	if ips, ok := r.cache.get(hostname); ok {
		return ips, nil
	}

	v, err, _ := r.group.Do(hostname, func() (interface{}, error) {
		ips, ttl, err := r.resolveUncached(ctx, hostname)
		if err != nil {
			return nil, err
		}
		r.cache.put(hostname, ips, ttl)
		return ips, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]net.IP), nil
}

func (r *Resolver) resolveUncached(ctx context.Context, hostname string) ([]net.IP, time.Duration, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return []net.IP{ip}, maxCacheTTL, nil
	}

	ips, ttl, err := r.transport.query(ctx, hostname, dnsmessage.TypeA)
	if err == nil && len(ips) > 0 {
		return ips, time.Duration(ttl) * time.Second, nil
	}

	ips, ttl, err = r.transport.query(ctx, hostname, dnsmessage.TypeAAAA)
	if err != nil {
		return nil, 0, err
	}
	return ips, time.Duration(ttl) * time.Second, nil
}
