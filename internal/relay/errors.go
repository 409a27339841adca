package relay

import "errors"

// ErrRoomNotFound indicates the room code does not map to a live room,
// or the acting connection is not registered to one.
var ErrRoomNotFound = errors.New("room not found")

// ErrRoomFull indicates the room's joiner slot is already filled.
var ErrRoomFull = errors.New("room is full")

// ErrNotHost indicates a host-only operation was attempted by the joiner.
var ErrNotHost = errors.New("only the host can start the match")

// ErrOpponentMissing indicates the match cannot start with an empty joiner slot.
var ErrOpponentMissing = errors.New("no opponent has joined yet")

// ErrMatchStarted indicates the room's match has already been started.
var ErrMatchStarted = errors.New("match already started")

// ErrCodeSpaceExhausted indicates code generation failed after the
// configured number of attempts. It signals a capacity or randomness
// defect, not a recoverable client condition.
var ErrCodeSpaceExhausted = errors.New("room code space exhausted")
