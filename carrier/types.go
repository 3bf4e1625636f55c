package carrier

import "time"

// PeerID is a configured peer's identity. It must be a non-empty string
// valid as a TLS SNI hostname — it is used verbatim both as the dial target
// and as the expected/offered SNI server name.
type PeerID = string

// Directory is the fixed, statically configured peer set: peer identifier
// to destination TCP port. It is consumed once by Supervisor.New and never
// mutated afterwards (spec.md §3 "Peer directory").
type Directory map[PeerID]uint16

// channelCapacity is the fixed bound on every per-peer incoming/outgoing
// queue (spec.md §3's reference value).
const channelCapacity = 64

// outboundRetryInterval is the minimum delay between reconnect attempts on
// an outbound peer session (spec.md §4.D reference value).
const outboundRetryInterval = 200 * time.Millisecond
