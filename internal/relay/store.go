// Package relay implements the core of the realtime relay server: the
// room store and connection registry, the message router that binds two
// connections into a room and forwards match traffic between them, and
// the reaper that evicts abandoned rooms.
package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store tracks all live rooms and the registry of connections bound to
// them. Both maps are guarded by one mutex so that join, start, leave,
// and disconnect for the same room can never interleave. All methods
// are safe for concurrent use, and none blocks on network I/O.
type Store struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	players map[ConnID]*PlayerInfo

	codeLength      int
	maxCodeAttempts int
}

// NewStore creates an empty Store.
//
// Precondition: codeLength and maxCodeAttempts must be >= 1. Production
// geometry is enforced by config validation; short lengths are legal so
// small code spaces can be built directly.
func NewStore(codeLength, maxCodeAttempts int) *Store {
	return &Store{
		rooms:           make(map[string]*Room),
		players:         make(map[ConnID]*PlayerInfo),
		codeLength:      codeLength,
		maxCodeAttempts: maxCodeAttempts,
	}
}

// CreateRoom allocates a fresh room with the initiator slot filled and
// registers the initiator's PlayerInfo.
//
// Precondition: p must be non-nil and not already registered.
// Postcondition: Returns a snapshot of the new room. The only error is
// ErrCodeSpaceExhausted (wrapped) when code generation keeps colliding,
// which indicates a capacity or randomness defect.
func (s *Store) CreateRoom(p Peer, rules json.RawMessage, displayName string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.freshCodeLocked()
	if err != nil {
		return Room{}, err
	}

	room := &Room{
		Code:          code,
		Initiator:     p.ID(),
		InitiatorPeer: p,
		Rules:         rules,
		InitiatorName: displayName,
		CreatedAt:     time.Now(),
	}
	s.rooms[code] = room
	s.players[p.ID()] = &PlayerInfo{
		RoomCode:    code,
		IsInitiator: true,
		DisplayName: displayName,
	}

	return *room, nil
}

// freshCodeLocked generates a code not held by any live room,
// regenerating on collision up to maxCodeAttempts times.
func (s *Store) freshCodeLocked() (string, error) {
	for attempt := 0; attempt < s.maxCodeAttempts; attempt++ {
		code, err := generateCode(s.codeLength)
		if err != nil {
			return "", fmt.Errorf("generating room code: %w", err)
		}
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, s.maxCodeAttempts)
}

// JoinRoom fills the joiner slot of the room with the given code and
// registers the joiner's PlayerInfo.
//
// Precondition: p must be non-nil and not already registered.
// Postcondition: Returns a snapshot of the room with both slots filled,
// ErrRoomNotFound if the code is unknown, or ErrRoomFull if the joiner
// slot is already taken.
func (s *Store) JoinRoom(p Peer, code, displayName string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if room.JoinerPeer != nil {
		return Room{}, ErrRoomFull
	}

	room.Joiner = p.ID()
	room.JoinerPeer = p
	room.JoinerName = displayName
	s.players[p.ID()] = &PlayerInfo{
		RoomCode:    code,
		IsInitiator: false,
		DisplayName: displayName,
	}

	return *room, nil
}

// StartRoom marks the match started on behalf of the given connection.
// The host check happens inside the lock so that a concurrent leave or
// join cannot race it.
//
// Precondition: now must be the current time.
// Postcondition: Returns a snapshot with Started=true and StartedAt=now.
// Fails with ErrRoomNotFound if conn is not registered, ErrNotHost if
// conn is the joiner, ErrOpponentMissing if the joiner slot is empty,
// or ErrMatchStarted if the match already started.
func (s *Store) StartRoom(conn ConnID, now time.Time) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.players[conn]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if !info.IsInitiator {
		return Room{}, ErrNotHost
	}
	room, ok := s.rooms[info.RoomCode]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if room.JoinerPeer == nil {
		return Room{}, ErrOpponentMissing
	}
	if room.Started {
		return Room{}, ErrMatchStarted
	}

	room.Started = true
	room.StartedAt = now
	return *room, nil
}

// LookupPlayer returns the registry entry for the given connection.
//
// Postcondition: Returns (info, true) if registered, or (zero, false)
// otherwise. The returned value is a copy.
func (s *Store) LookupPlayer(conn ConnID) (PlayerInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.players[conn]
	if !ok {
		return PlayerInfo{}, false
	}
	return *info, true
}

// LookupRoom returns a snapshot of the room with the given code.
//
// Postcondition: Returns (room, true) if found, or (zero, false) otherwise.
func (s *Store) LookupRoom(code string) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return Room{}, false
	}
	return *room, true
}

// RelayTarget returns the peer a relay message from conn should be
// forwarded to: the opposite slot of conn's room, and only when the
// match has started and that slot is connected.
//
// Postcondition: Returns (peer, true) when forwarding should happen,
// or (nil, false) when the message should be silently dropped.
func (s *Store) RelayTarget(conn ConnID) (Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.players[conn]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[info.RoomCode]
	if !ok || !room.Started {
		return nil, false
	}
	target := room.OpponentPeer(info.IsInitiator)
	if target == nil {
		return nil, false
	}
	return target, true
}

// RemovePlayer tears down the room the given connection belongs to,
// deleting the room and the PlayerInfo of both occupants in one step.
//
// Postcondition: Returns pre-deletion snapshots of the room and the
// leaver's PlayerInfo with ok=true, after which LookupRoom for the code
// and LookupPlayer for either former occupant report absent. Idempotent:
// an unregistered conn yields ok=false with no effect.
func (s *Store) RemovePlayer(conn ConnID) (Room, PlayerInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.players[conn]
	if !ok {
		return Room{}, PlayerInfo{}, false
	}

	infoCopy := *info
	delete(s.players, conn)

	room, ok := s.rooms[info.RoomCode]
	if !ok {
		// Registry invariant: every PlayerInfo references a live room.
		return Room{}, infoCopy, true
	}

	roomCopy := *room
	delete(s.rooms, room.Code)
	delete(s.players, room.Initiator)
	if room.Joiner != "" {
		delete(s.players, room.Joiner)
	}

	return roomCopy, infoCopy, true
}

// SweepExpired removes every room that never started and whose age has
// reached timeout, along with the registry entries of its occupants.
//
// Postcondition: Returns the codes of the evicted rooms. Started rooms
// are never evicted regardless of age.
func (s *Store) SweepExpired(now time.Time, timeout time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for code, room := range s.rooms {
		if room.Started || now.Sub(room.CreatedAt) < timeout {
			continue
		}
		delete(s.rooms, code)
		delete(s.players, room.Initiator)
		if room.Joiner != "" {
			delete(s.players, room.Joiner)
		}
		evicted = append(evicted, code)
	}
	return evicted
}

// RoomCount returns the number of live rooms.
func (s *Store) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// PlayerCount returns the number of registered connections.
func (s *Store) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}
