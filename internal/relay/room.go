package relay

import (
	"encoding/json"
	"time"
)

// PlayerInfo tracks one live connection's association to a room.
type PlayerInfo struct {
	// RoomCode is the code of the room the connection belongs to.
	RoomCode string
	// IsInitiator is true for the connection that created the room.
	IsInitiator bool
	// DisplayName is the name shown to the opponent.
	DisplayName string
}

// Room is one paired two-party session. The Store owns all Rooms and
// hands out value copies, so a Room returned from a Store method is a
// point-in-time snapshot safe to read without locking.
type Room struct {
	// Code is the short join code identifying the room.
	Code string
	// Initiator is the identity of the connection that created the room.
	Initiator ConnID
	// Joiner is the identity of the second connection, or empty while
	// the slot is open. The slot is filled at most once.
	Joiner ConnID
	// InitiatorPeer and JoinerPeer are the transport handles for the
	// two slots; JoinerPeer is nil while the slot is open.
	InitiatorPeer Peer
	JoinerPeer    Peer
	// Rules is the opaque match configuration supplied at creation.
	Rules json.RawMessage
	// InitiatorName and JoinerName are the display names of the two slots.
	InitiatorName string
	JoinerName    string
	// Started is true once the initiator has started the match. It
	// transitions false to true at most once.
	Started bool
	// CreatedAt is when the room was created; unstarted rooms older
	// than the abandonment window are reaped.
	CreatedAt time.Time
	// StartedAt is when the match started; zero until Started.
	StartedAt time.Time
}

// PeerFor returns the transport handle occupying the given slot role.
//
// Postcondition: Returns nil when the joiner slot is empty and
// isInitiator is false.
func (r Room) PeerFor(isInitiator bool) Peer {
	if isInitiator {
		return r.InitiatorPeer
	}
	return r.JoinerPeer
}

// OpponentPeer returns the transport handle for the slot opposite the
// given role, or nil when that slot is empty.
func (r Room) OpponentPeer(isInitiator bool) Peer {
	return r.PeerFor(!isInitiator)
}
