package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/dns/dnsmessage"
)

const (
	dohMimeType   = "application/dns-message"
	maxDoHMessage = 65535
)

// dohTransport performs a single DNS question/answer exchange over
// DNS-over-HTTPS, dialing the resolver by literal IP so no bootstrap lookup
// is ever needed. It mirrors the wire-format approach of a standard
// outline-sdk HTTPS round tripper, trimmed to a single endpoint instead of
// a generic StreamDialer.
type dohTransport struct {
	endpoint string
	client   *http.Client
}

// newDoHTransport builds a transport bound to endpoint, an https:// URL
// whose host is a literal IP address (e.g. "https://1.1.1.1/dns-query").
func newDoHTransport(endpoint string) (*dohTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolver: parse endpoint: %w", err)
	}
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		return nil, ErrNotLiteralEndpoint
	}
	dialAddr := net.JoinHostPort(host, portOrDefault(u.Port(), u.Scheme))

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	client := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, dialAddr)
			},
			ForceAttemptHTTP2:     true,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
		},
	}
	return &dohTransport{endpoint: endpoint, client: client}, nil
}

// query performs a single RFC8484 exchange for (name, qtype) and returns the
// raw A/AAAA answers plus the minimum TTL among them.
func (t *dohTransport) query(ctx context.Context, name string, qtype dnsmessage.Type) ([]net.IP, uint32, error) {
	q, err := newQuestion(name, qtype)
	if err != nil {
		return nil, 0, err
	}
	id := uint16(rand.Uint32())
	reqBuf, err := appendRequest(id, q, make([]byte, 0, 512))
	if err != nil {
		return nil, 0, fmt.Errorf("resolver: build query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(reqBuf))
	if err != nil {
		return nil, 0, fmt.Errorf("resolver: build request: %w", err)
	}
	httpReq.Header.Set("Accept", dohMimeType)
	httpReq.Header.Set("Content-Type", dohMimeType)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("resolver: doh request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("resolver: doh status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDoHMessage))
	if err != nil {
		return nil, 0, fmt.Errorf("resolver: read response: %w", err)
	}

	var msg dnsmessage.Message
	if err := msg.Unpack(body); err != nil {
		return nil, 0, fmt.Errorf("resolver: unpack response: %w", err)
	}
	if err := checkResponse(id, q, msg.Header, msg.Questions); err != nil {
		return nil, 0, fmt.Errorf("resolver: invalid response: %w", err)
	}

	return extractAddresses(msg, qtype)
}

func newQuestion(domain string, qtype dnsmessage.Type) (dnsmessage.Question, error) {
	name, err := dnsmessage.NewName(dotSuffixed(domain))
	if err != nil {
		return dnsmessage.Question{}, fmt.Errorf("resolver: invalid domain %q: %w", domain, err)
	}
	return dnsmessage.Question{Name: name, Type: qtype, Class: dnsmessage.ClassINET}, nil
}

func dotSuffixed(domain string) string {
	if len(domain) == 0 || domain[len(domain)-1] == '.' {
		return domain
	}
	return domain + "."
}

func appendRequest(id uint16, q dnsmessage.Question, buf []byte) ([]byte, error) {
	b := dnsmessage.NewBuilder(buf, dnsmessage.Header{ID: id, RecursionDesired: true})
	if err := b.StartQuestions(); err != nil {
		return nil, err
	}
	if err := b.Question(q); err != nil {
		return nil, err
	}
	return b.Finish()
}

func checkResponse(reqID uint16, reqQ dnsmessage.Question, hdr dnsmessage.Header, respQs []dnsmessage.Question) error {
	if !hdr.Response {
		return errors.New("response bit not set")
	}
	if reqID != hdr.ID {
		return fmt.Errorf("id mismatch: sent %d got %d", reqID, hdr.ID)
	}
	if len(respQs) == 0 {
		return errors.New("no question in response")
	}
	got := respQs[0]
	if reqQ.Type != got.Type || reqQ.Class != got.Class {
		return errors.New("response question type/class mismatch")
	}
	return nil
}

func extractAddresses(msg dnsmessage.Message, qtype dnsmessage.Type) ([]net.IP, uint32, error) {
	var ips []net.IP
	minTTL := uint32(0)
	for _, a := range msg.Answers {
		if a.Header.Type != qtype {
			continue
		}
		if minTTL == 0 || a.Header.TTL < minTTL {
			minTTL = a.Header.TTL
		}
		switch body := a.Body.(type) {
		case *dnsmessage.AResource:
			ips = append(ips, net.IP(body.A[:]))
		case *dnsmessage.AAAAResource:
			ips = append(ips, net.IP(body.AAAA[:]))
		}
	}
	if len(ips) == 0 {
		return nil, 0, ErrNoAddresses
	}
	return ips, minTTL, nil
}

func portOrDefault(port, scheme string) string {
	if port != "" {
		return port
	}
	if scheme == "http" {
		return "80"
	}
	return "443"
}
