// Command mpc-carrier runs one node of the full-mesh carrier: it dials
// every other configured peer and accepts connections from them, echoing a
// request_id back on every inbound request and periodically sending one to
// every peer. It exists to make the carrier package runnable end to end, the
// way original_source/examples/node.rs demonstrates the Rust carrier; the
// echo application logic itself is outside the carrier's scope
// (spec.md §1).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/worldcoin/mpc-carrier/carrier"
)

func main() {
	var (
		bind            = flag.String("bind", "0.0.0.0", "address to listen for peer connections on")
		port            = flag.Uint("port", 0, "this node's port")
		directoryPath   = flag.String("directory", "", "path to the peer directory file (name=port per line)")
		certChainPath   = flag.String("cert-chain", "", "PEM certificate chain")
		certPrivKeyPath = flag.String("cert-priv-key", "", "PEM certificate private key")
		logLevel        = flag.String("log-level", "info", "silent|error|info|debug")
	)
	flag.Parse()

	if *port == 0 || *directoryPath == "" || *certChainPath == "" || *certPrivKeyPath == "" {
		fmt.Fprintln(os.Stderr, "usage: mpc-carrier -port N -directory FILE -cert-chain FILE -cert-priv-key FILE")
		os.Exit(1)
	}

	directory, err := loadDirectory(*directoryPath)
	if err != nil {
		log.Fatalf("failed to load directory: %v", err)
	}

	logger := carrier.NewLogger(parseLogLevel(*logLevel), fmt.Sprintf("(%d) ", *port))

	supervisor, incoming, outgoing := carrier.New(directory, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runEchoApplication(ctx, incoming)
	go runDemoSender(ctx, outgoing, directory, uint16(*port))

	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGTERM, os.Interrupt)

	runErr := make(chan error, 1)
	go func() {
		runErr <- supervisor.Run(ctx, *bind, uint16(*port), *certChainPath, *certPrivKeyPath)
	}()

	select {
	case <-term:
		logger.Infof("shutting down")
		cancel()
	case err := <-runErr:
		if err != nil {
			log.Fatalf("carrier terminated: %v", err)
		}
	}
}

func parseLogLevel(s string) int {
	switch s {
	case "silent":
		return carrier.LogLevelSilent
	case "error":
		return carrier.LogLevelError
	case "debug":
		return carrier.LogLevelDebug
	default:
		return carrier.LogLevelInfo
	}
}

// runEchoApplication drains the incoming aggregator and replies to every
// request with its request id and no payload, the same trivial echo the
// Rust example application implements.
func runEchoApplication(ctx context.Context, incoming *carrier.Incoming) {
	for {
		peer, env, err := incoming.Recv(ctx)
		if err != nil {
			return
		}
		env.Fulfill(&carrier.Reply{RequestID: env.Request.RequestID})
		_ = peer
	}
}

// runDemoSender periodically sends a request to every configured peer,
// mirroring original_source/examples/node.rs's demo traffic generator.
func runDemoSender(ctx context.Context, outgoing *carrier.Outgoing, directory carrier.Directory, selfPort uint16) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var counter byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reqID := []byte{counter}
			counter++
			for peer := range directory {
				reply, err := outgoing.Send(ctx, peer, &carrier.Request{RequestID: reqID})
				if err != nil {
					continue
				}
				_ = reply
			}
		}
	}
}
