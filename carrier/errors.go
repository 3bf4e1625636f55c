package carrier

import "errors"

// Sentinel errors surfaced to callers of Outgoing.Send. They distinguish the
// two ways a send can fail to collect a reply, per the callback-envelope
// contract in spec.md §4.C.
var (
	// ErrForwardClosed is returned when the caller's context is done before
	// the peer's outgoing queue accepted the request.
	ErrForwardClosed = errors.New("carrier: forward queue closed")

	// ErrReturnClosed is returned when the reply channel was dropped before
	// a reply arrived — the in-flight request was abandoned, most commonly
	// because the outbound connection it was written on failed and had to
	// be torn down before a response came back, or because it collided with
	// an already in-flight request of the same id.
	ErrReturnClosed = errors.New("carrier: return channel closed")
)

var (
	errShortBuffer   = errors.New("carrier: message buffer too short")
	errTrailingBytes = errors.New("carrier: trailing bytes after message")
)

// InvalidLenError is returned by the codec when a frame's length prefix (on
// read) or a message's encoded length (on write) exceeds the Reader's or
// Writer's configured maximum (MaxFrameLen in the carrier's own sessions).
type InvalidLenError struct {
	Len, Max int
}

func (e *InvalidLenError) Error() string {
	return "carrier: frame length exceeds maximum"
}

// DecodeError wraps a failure to parse a frame's payload into the requested
// message schema.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "carrier: decode: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// TLSStage identifies which step of TLS material loading failed.
type TLSStage int

const (
	TLSStageCertChainIO TLSStage = iota
	TLSStageCertKeyIO
	TLSStageCertKeyParse
	TLSStageServerConfig
	TLSStageClientConfig
)

func (s TLSStage) String() string {
	switch s {
	case TLSStageCertChainIO:
		return "certificate chain file"
	case TLSStageCertKeyIO:
		return "certificate private key file"
	case TLSStageCertKeyParse:
		return "certificate private key unrecognized"
	case TLSStageServerConfig:
		return "TLS server configuration"
	case TLSStageClientConfig:
		return "TLS client configuration"
	default:
		return "TLS"
	}
}

// TLSError is returned by LoadTLSMaterial, and is fatal to Supervisor.Run.
type TLSError struct {
	Stage TLSStage
	Err   error
}

func (e *TLSError) Error() string { return e.Stage.String() + ": " + e.Err.Error() }
func (e *TLSError) Unwrap() error { return e.Err }

// SniError means an inbound TLS handshake completed without the client
// presenting a server name, so there is no way to route it to a peer queue.
type SniError struct{}

func (SniError) Error() string { return "carrier: no SNI server name presented" }

// UnknownServerNameError means the SNI name presented by an inbound
// connection does not match any peer in the directory.
type UnknownServerNameError struct {
	ServerName string
}

func (e *UnknownServerNameError) Error() string {
	return "carrier: unknown server name: " + e.ServerName
}

// UnexpectedResponseError is fatal to an outbound session: the peer sent a
// response whose request id does not match anything currently in flight.
type UnexpectedResponseError struct {
	RequestID []byte
}

func (e *UnexpectedResponseError) Error() string {
	return "carrier: unexpected response for unknown request id"
}
