package carrier

import (
	"context"
	"fmt"
	"sync"
)

// Envelope pairs a forward Request with a single-use reply channel, per
// spec.md §4.C. Grounded on original_source/src/channels.rs's Callback<T,U>
// — the Go channel takes the place of the futures oneshot channel, with one
// structural difference: Rust's oneshot::Sender surfaces a dropped receiver
// by returning an error from .send(); a Go channel cannot be closed safely
// from the send side without risking a send-on-closed-channel panic if a
// second writer still exists, so completion is signalled by sending exactly
// once (guarded by sync.Once) and cancellation is signalled by closing the
// channel without a value — the receiver side distinguishes the two with
// the comma-ok form, see wait.
type Envelope struct {
	Request *Request

	once  sync.Once
	reply chan *Reply
}

// newEnvelope creates an envelope wrapping req, returning it alongside the
// read-only side of its reply channel.
func newEnvelope(req *Request) (*Envelope, <-chan *Reply) {
	ch := make(chan *Reply, 1)
	return &Envelope{Request: req, reply: ch}, ch
}

// Fulfill delivers resp as the envelope's single reply. Only the first call
// has any effect; later calls (there should not be any) are no-ops.
func (e *Envelope) Fulfill(resp *Reply) {
	e.once.Do(func() {
		e.reply <- resp
		close(e.reply)
	})
}

// Cancel abandons the envelope without a reply, surfacing ErrReturnClosed to
// whoever is waiting on it. Used when a connection tears down with this
// request still in flight, or when a colliding request id forces a message
// to be dropped.
func (e *Envelope) Cancel() {
	e.once.Do(func() {
		close(e.reply)
	})
}

// wait blocks for the envelope's reply, translating a closed-without-value
// channel into ErrReturnClosed.
func wait(ctx context.Context, reply <-chan *Reply) (*Reply, error) {
	select {
	case resp, ok := <-reply:
		if !ok {
			return nil, ErrReturnClosed
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PeerEnvelope is what the Incoming aggregator yields: an inbound envelope
// tagged with which peer it arrived from.
type PeerEnvelope struct {
	Peer     PeerID
	Envelope *Envelope
}

// Incoming is the application-facing aggregated receiver over every
// configured peer's incoming queue (spec.md §4.C "Aggregated incoming
// receive"). Rather than polling a select-all over every peer channel on
// every call (the direct analogue of Rust's future::select_all used in
// channels.rs), each peer's queue is drained by its own forwarding goroutine
// into one shared channel — the fan-in concurrency pattern. This is
// equivalent in effect (fair in the same sense: no peer's queue can starve
// another's, since each forwarder blocks independently) but fits Go's
// channel model more naturally than rebuilding a reflect.Select case list on
// every Recv call.
type Incoming struct {
	agg chan PeerEnvelope
}

func newIncoming(queues map[PeerID]chan *Envelope) *Incoming {
	in := &Incoming{agg: make(chan PeerEnvelope, channelCapacity)}
	for peer, q := range queues {
		go forwardIncoming(peer, q, in.agg)
	}
	return in
}

func forwardIncoming(peer PeerID, q <-chan *Envelope, agg chan<- PeerEnvelope) {
	for env := range q {
		agg <- PeerEnvelope{Peer: peer, Envelope: env}
	}
}

// Recv returns the next inbound envelope from whichever peer's queue became
// ready first. It only returns an error if ctx is done; per spec.md §4.C it
// otherwise never signals end-of-stream in normal operation (every peer's
// queue sender outlives the process).
func (in *Incoming) Recv(ctx context.Context) (PeerID, *Envelope, error) {
	select {
	case pe := <-in.agg:
		return pe.Peer, pe.Envelope, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

// Outgoing is the application-facing aggregated sender over every configured
// peer's outgoing queue (spec.md §4.C "Aggregated outgoing send"). Its
// queues map is built once by Supervisor.New and never mutated again, so
// concurrent calls to Send from many goroutines need no additional locking
// — Go maps are safe for concurrent reads once write access has stopped.
type Outgoing struct {
	queues map[PeerID]chan *Envelope
}

func newOutgoing(queues map[PeerID]chan *Envelope) *Outgoing {
	return &Outgoing{queues: queues}
}

// Send submits req to peer's outgoing queue and waits for the correlated
// reply. Calling Send for a peer that was never configured is a programmer
// error and panics, per spec.md §4.C.
func (out *Outgoing) Send(ctx context.Context, peer PeerID, req *Request) (*Reply, error) {
	q, ok := out.queues[peer]
	if !ok {
		panic(fmt.Sprintf("carrier: peer %q not configured", peer))
	}

	env, reply := newEnvelope(req)
	select {
	case q <- env:
	case <-ctx.Done():
		return nil, ErrForwardClosed
	}

	return wait(ctx, reply)
}
