package relay

import "encoding/json"

// Envelope is the wire shape of every message in both directions.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message kinds.
const (
	KindCreateRoom     = "CREATE_ROOM"
	KindJoinRoom       = "JOIN_ROOM"
	KindStartMatch     = "START_MATCH"
	KindGameUpdate     = "GAME_UPDATE"
	KindOverloadAttack = "OVERLOAD_ATTACK"
	KindLeaveRoom      = "LEAVE_ROOM"
)

// Outbound message kinds. OVERLOAD_ATTACK is relayed under its inbound name.
const (
	KindRoomCreated    = "ROOM_CREATED"
	KindMatchFound     = "MATCH_FOUND"
	KindMatchStart     = "MATCH_START"
	KindOpponentUpdate = "OPPONENT_UPDATE"
	KindOpponentLeft   = "OPPONENT_LEFT"
	KindError          = "ERROR"
)

// CreateRoomRequest is the payload of CREATE_ROOM.
type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
	// Rules is an opaque match configuration blob echoed back to clients.
	Rules json.RawMessage `json:"rules,omitempty"`
}

// JoinRoomRequest is the payload of JOIN_ROOM.
type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// StartMatchRequest is the payload of START_MATCH. Seed lets both
// clients derive identical pseudo-random game content.
type StartMatchRequest struct {
	Seed int64 `json:"seed"`
}

// RoomCreatedPayload is the payload of ROOM_CREATED.
type RoomCreatedPayload struct {
	RoomCode   string          `json:"roomCode"`
	Rules      json.RawMessage `json:"rules,omitempty"`
	PlayerName string          `json:"playerName"`
}

// MatchFoundPayload is the payload of MATCH_FOUND, sent to both sides
// of a room when the joiner arrives.
type MatchFoundPayload struct {
	RoomCode     string          `json:"roomCode"`
	Rules        json.RawMessage `json:"rules,omitempty"`
	HostName     string          `json:"hostName"`
	OpponentName string          `json:"opponentName"`
	IsHost       bool            `json:"isHost"`
}

// MatchStartPayload is the payload of MATCH_START, sent identically to
// both sides. StartTime is Unix milliseconds.
type MatchStartPayload struct {
	StartTime int64           `json:"startTime"`
	Rules     json.RawMessage `json:"rules,omitempty"`
	Seed      int64           `json:"seed"`
}

// OpponentLeftPayload is the payload of OPPONENT_LEFT.
type OpponentLeftPayload struct {
	PlayerName string `json:"playerName"`
}

// ErrorPayload is the payload of ERROR.
type ErrorPayload struct {
	Message string `json:"message"`
}
