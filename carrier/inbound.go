package carrier

import "crypto/tls"

// inboundSession drives one accepted connection for its lifetime: TLS
// handshake, SNI-based peer authentication, then a loop routing decoded
// requests into the peer's incoming queue and writing back replies as the
// application produces them. Grounded on original_source/src/node.rs's
// incoming/serve_incoming pair.
type inboundSession struct {
	directory Directory
	queues    map[PeerID]chan *Envelope
	log       Logger
}

func newInboundSession(directory Directory, queues map[PeerID]chan *Envelope, log Logger) *inboundSession {
	return &inboundSession{directory: directory, queues: queues, log: log}
}

// serve authenticates and then drives tlsConn, a freshly accepted TCP
// connection wrapped in TLS. It never returns an error that should be
// treated as fatal to the whole carrier — every failure here is logged and
// the connection is simply dropped, per spec.md §7: "per-connection I/O or
// TLS handshake: logged at debug, connection dropped".
func (s *inboundSession) serve(tlsConn *tls.Conn) {
	defer tlsConn.Close()

	if err := tlsConn.Handshake(); err != nil {
		s.log.Debugf("inbound: TLS handshake failed: %v", err)
		return
	}

	serverName := tlsConn.ConnectionState().ServerName
	if serverName == "" {
		s.log.Debugf("inbound: %v", SniError{})
		return
	}
	queue, ok := s.queues[serverName]
	if !ok {
		s.log.Debugf("inbound: %v", &UnknownServerNameError{ServerName: serverName})
		return
	}
	s.log.Debugf("inbound %s: accepted", serverName)

	if err := s.serveRequests(serverName, tlsConn, queue); err != nil {
		s.log.Debugf("inbound %s: terminated: %v", serverName, err)
	}
}

// serveRequests keeps the "unordered set of pending reply-receivers" in
// spec.md §4.E as one relayReply goroutine per in-flight request: each
// forwards exactly one reply (or a nil, on cancellation) onto the session's
// shared ready channel, so the main loop can select over "any pending reply
// became ready" without maintaining a dynamic select case list.
func (s *inboundSession) serveRequests(peer PeerID, conn *tls.Conn, queue chan<- *Envelope) error {
	reader := NewReader[Request, *Request](conn, MaxFrameLen)
	writer := NewWriter[Reply, *Reply](conn, MaxFrameLen)

	// Same arrangement as outbound.go's responses channel: once this loop
	// returns, the deferred drain keeps receiving until pumpReader closes
	// the channel, so the pump's terminal send (the error produced when
	// serve closes the connection) completes instead of leaking the
	// goroutine.
	requests := make(chan readResult[Request], 1)
	go pumpReader[Request, *Request](reader, requests)
	defer func() {
		go func() {
			for range requests {
			}
		}()
	}()

	ready := make(chan *Reply)
	done := make(chan struct{})
	defer close(done)

	for {
		select {
		case res, ok := <-requests:
			if !ok {
				return nil
			}
			if res.err != nil {
				return res.err
			}
			env, appReply := newEnvelope(res.value)
			// A full queue blocks here, which stalls this session before
			// it reads the next frame — the back-pressure chain spec.md
			// §5 describes, propagating via TCP flow control to the peer.
			queue <- env
			go relayReply(appReply, ready, done)

		case resp := <-ready:
			if resp == nil {
				// The application dropped its reply sender without
				// replying. Per spec.md §4.E this is silently omitted on
				// the wire — the remote sees the request go unanswered
				// until the connection eventually closes.
				continue
			}
			if err := writer.Write(resp); err != nil {
				if _, oversize := err.(*InvalidLenError); oversize {
					// Same write contract as outbound.go: an oversize
					// reply fails InvalidLen without touching the stream,
					// so only this reply is dropped; the connection keeps
					// serving the peer's other in-flight requests.
					s.log.Errorf("inbound %s: oversize reply %x: %v", peer, resp.RequestID, err)
					continue
				}
				return err
			}
			if err := writer.Flush(); err != nil {
				return err
			}
		}
	}
}

// relayReply waits for an inbound envelope's reply (or its cancellation) and
// forwards it (or nil, for cancellation) onto ready. It also watches done, so
// that if serveRequests has already returned (and stopped draining ready)
// before the application produces its reply, this goroutine abandons the
// send instead of blocking forever.
func relayReply(reply <-chan *Reply, ready chan<- *Reply, done <-chan struct{}) {
	select {
	case resp, ok := <-reply:
		if !ok {
			select {
			case ready <- nil:
			case <-done:
			}
			return
		}
		select {
		case ready <- resp:
		case <-done:
		}
	case <-done:
	}
}
