package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/1etu/turkeydpi/profile"
	"github.com/1etu/turkeydpi/resolver"
)

// ErrBind identifies a listener bind failure, distinct from a runtime
// accept/session error, so callers can map it to spec ¤7's "BindError:
// fatal, exit 1" policy instead of a generic runtime exit code.
var ErrBind = errors.New("proxy: bind failed")

// Listener accepts TCP connections and spawns a Session goroutine for
// each, per spec ¤4.F.
type Listener struct {
	Addr     string
	Profile  profile.Profile
	Resolver *resolver.Resolver
	Logger   *Logger

	ln net.Listener
}

// ListenAndServe binds Addr and accepts connections until ctx is canceled
// or an accept error occurs. It blocks until shutdown.
func (l *Listener) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.Addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %v", ErrBind, l.Addr, err)
	}
	l.ln = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("proxy: accept: %w", err)
		}
		session := &Session{Profile: l.Profile, Resolver: l.Resolver, Logger: l.Logger}
		go session.Handle(ctx, conn)
	}
}

// BoundAddr returns the bound address once ListenAndServe has started, or nil
// beforehand.
func (l *Listener) BoundAddr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}
