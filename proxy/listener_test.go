package proxy

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/1etu/turkeydpi/profile"
	"github.com/1etu/turkeydpi/resolver"
	"github.com/stretchr/testify/require"
)

func TestListenerStopsOnContextCancel(t *testing.T) {
	res, err := resolver.New(resolver.DefaultEndpoint)
	require.NoError(t, err)

	l := &Listener{
		Addr:     "127.0.0.1:0",
		Profile:  profile.None(),
		Resolver: res,
		Logger:   NewLogger(io.Discard, false),
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool { return l.BoundAddr() != nil }, time.Second, time.Millisecond)

	addr := l.BoundAddr().(*net.TCPAddr)
	require.NotZero(t, addr.Port)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}
