// Command turkeydpi runs a local HTTP/HTTPS forward proxy that fragments
// the first outgoing flight of each connection to defeat stateless,
// single-packet DPI matching, per spec ¤6's CLI surface:
//
//	turkeydpi bypass [-l <ip:port>] [--preset <name>] [-v]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/1etu/turkeydpi/profile"
	"github.com/1etu/turkeydpi/proxy"
	"github.com/1etu/turkeydpi/resolver"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] != "bypass" {
		fmt.Fprintln(os.Stderr, "usage: turkeydpi bypass [-l <ip:port>] [--preset <name>] [-v]")
		return 1
	}

	fs := flag.NewFlagSet("bypass", flag.ContinueOnError)
	listenAddr := fs.String("l", "127.0.0.1:8844", "address to listen on")
	presetName := fs.String("preset", "turk-telekom", "fragmentation preset to use")
	doh := fs.String("doh", resolver.DefaultEndpoint, "DNS-over-HTTPS endpoint (literal-IP host)")
	verbose := fs.Bool("v", false, "enable verbose (INFO-level) logging")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	logger := proxy.NewLogger(os.Stderr, *verbose)

	p, ok := profile.ByName(*presetName)
	if !ok {
		logger.Error("unknown preset %q", *presetName)
		return 1
	}

	res, err := resolver.New(*doh)
	if err != nil {
		logger.Error("building resolver: %v", err)
		return 1
	}

	listener := &proxy.Listener{
		Addr:     *listenAddr,
		Profile:  p,
		Resolver: res,
		Logger:   logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listener.ListenAndServe(ctx)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("listener stopped: %v", err)
			if errors.Is(err, proxy.ErrBind) {
				return 1
			}
			return 2
		}
		return 0
	case <-sig:
		logger.Info("shutting down")
		cancel()
	}

	select {
	case <-time.After(5 * time.Second):
		logger.Warn("shutdown timed out")
	case <-serveErr:
	}
	return 0
}
