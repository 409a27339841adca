package relay

// ConnID is an opaque identity token for one live connection. The
// transport issues one at accept time; the relay never inspects it.
type ConnID string

// Peer is the relay's handle to one connected client. Deliver must not
// block: implementations queue the envelope and report failure instead
// of waiting on network I/O.
type Peer interface {
	ID() ConnID
	Deliver(env Envelope) error
}
