package carrier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"golang.org/x/net/netutil"
)

// Supervisor owns the full-mesh connection set for one node: it runs one
// accept loop (serving every other configured peer's outbound connection to
// us) and one perpetually-retrying outbound session per peer (our
// connection to them). Grounded on original_source/src/lib.rs's Carrier.
type Supervisor struct {
	directory Directory
	log       Logger

	incomingQueues map[PeerID]chan *Envelope // fed by accept-side inbound sessions
	outgoingQueues map[PeerID]chan *Envelope // drained by outbound sessions
}

// New builds a Supervisor for directory together with the application-facing
// incoming aggregator and outgoing dispatcher. directory is consumed here:
// once construction returns, the Supervisor's peer set is immutable for the
// rest of the process (spec.md §3 "Ownership summary").
func New(directory Directory, log Logger) (*Supervisor, *Incoming, *Outgoing) {
	if log == nil {
		log = nopLogger{}
	}

	incomingQueues := make(map[PeerID]chan *Envelope, len(directory))
	outgoingQueues := make(map[PeerID]chan *Envelope, len(directory))
	for peer := range directory {
		incomingQueues[peer] = make(chan *Envelope, channelCapacity)
		outgoingQueues[peer] = make(chan *Envelope, channelCapacity)
	}

	s := &Supervisor{
		directory:      directory,
		log:            log,
		incomingQueues: incomingQueues,
		outgoingQueues: outgoingQueues,
	}
	return s, newIncoming(incomingQueues), newOutgoing(outgoingQueues)
}

// maxUnauthenticatedConnsPerPeer bounds how many TCP connections may sit mid-TLS-
// handshake at once, per peer configured — a defensive cap beyond spec.md's
// literal text (see SPEC_FULL.md component G) so an unauthenticated flood
// cannot spawn unbounded goroutines before SNI is even read.
const maxUnauthenticatedConnsPerPeer = 4

// Run loads TLS material, then launches one accept loop and one outbound
// session per configured peer, returning as soon as any of them terminates
// (spec.md §4.F "Join policy" — a stop-the-world supervisor). A single
// persistent failure, such as failing to bind the listener, brings the
// whole carrier down; transient per-connection and per-peer-reconnect
// failures are handled internally by the sessions and never reach here.
func (s *Supervisor) Run(ctx context.Context, bind string, port uint16, certChainPath, certPrivKeyPath string) error {
	serverConfig, clientConfig, err := LoadTLSMaterial(certChainPath, certPrivKeyPath)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(bind, fmt.Sprintf("%d", port)))
	if err != nil {
		return fmt.Errorf("carrier: listen: %w", err)
	}
	limit := maxUnauthenticatedConnsPerPeer * len(s.directory)
	if limit < maxUnauthenticatedConnsPerPeer {
		limit = maxUnauthenticatedConnsPerPeer
	}
	ln = netutil.LimitListener(ln, limit)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1+len(s.directory))

	go func() { done <- s.acceptLoop(ctx, ln, serverConfig) }()

	for peer, peerPort := range s.directory {
		session := newOutboundSession(peer, peerPort, clientConfig, s.outgoingQueues[peer], s.log)
		go func() { done <- session.run(ctx) }()
	}

	select {
	case err := <-done:
		_ = ln.Close()
		return err
	case <-ctx.Done():
		_ = ln.Close()
		return ctx.Err()
	}
}

func (s *Supervisor) acceptLoop(ctx context.Context, ln net.Listener, serverConfig *tls.Config) error {
	s.log.Infof("listening for peer connections on %s", ln.Addr())
	inbound := newInboundSession(s.directory, s.incomingQueues, s.log)

	for {
		raw, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("carrier: accept: %w", err)
			}
		}
		tlsConn := tls.Server(raw, serverConfig)
		go inbound.serve(tlsConn)
	}
}
