package relay

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Router interprets inbound envelopes, dispatches them against the
// Store, and emits outbound envelopes to one or both sides of a room.
// Outbound delivery is fire-and-forget: a failed Deliver is logged and
// never retried.
type Router struct {
	store  *Store
	logger *zap.Logger
	now    func() time.Time
}

// NewRouter creates a Router over the given store.
//
// Precondition: store and logger must be non-nil.
func NewRouter(store *Store, logger *zap.Logger) *Router {
	return &Router{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// HandleFrame processes one raw inbound frame from a connection.
// Malformed frames and unrecognized kinds are logged and dropped; the
// connection stays open.
func (rt *Router) HandleFrame(p Peer, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		rt.logger.Debug("dropping malformed envelope",
			zap.String("conn", string(p.ID())),
			zap.Error(err),
		)
		return
	}

	switch env.Kind {
	case KindCreateRoom:
		rt.handleCreateRoom(p, env.Payload)
	case KindJoinRoom:
		rt.handleJoinRoom(p, env.Payload)
	case KindStartMatch:
		rt.handleStartMatch(p, env.Payload)
	case KindGameUpdate:
		rt.relay(p, KindOpponentUpdate, env.Payload)
	case KindOverloadAttack:
		rt.relay(p, KindOverloadAttack, env.Payload)
	case KindLeaveRoom:
		rt.teardown(p.ID())
	default:
		rt.logger.Debug("ignoring unrecognized message kind",
			zap.String("conn", string(p.ID())),
			zap.String("kind", env.Kind),
		)
	}
}

// Disconnect handles a connection-closed signal from the transport.
// It is equivalent to an explicit LEAVE_ROOM for that connection.
func (rt *Router) Disconnect(p Peer) {
	rt.teardown(p.ID())
}

func (rt *Router) handleCreateRoom(p Peer, payload json.RawMessage) {
	var req CreateRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		rt.logger.Debug("dropping malformed CREATE_ROOM payload",
			zap.String("conn", string(p.ID())),
			zap.Error(err),
		)
		return
	}

	room, err := rt.store.CreateRoom(p, req.Rules, req.PlayerName)
	if err != nil {
		// Exhaustion indicates a capacity or randomness defect.
		rt.logger.Error("room creation failed",
			zap.String("conn", string(p.ID())),
			zap.Error(err),
		)
		rt.sendError(p, "could not create room")
		return
	}

	rt.logger.Info("room created",
		zap.String("room", room.Code),
		zap.String("host", room.InitiatorName),
	)
	rt.send(p, KindRoomCreated, RoomCreatedPayload{
		RoomCode:   room.Code,
		Rules:      room.Rules,
		PlayerName: room.InitiatorName,
	})
}

func (rt *Router) handleJoinRoom(p Peer, payload json.RawMessage) {
	var req JoinRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		rt.logger.Debug("dropping malformed JOIN_ROOM payload",
			zap.String("conn", string(p.ID())),
			zap.Error(err),
		)
		return
	}

	room, err := rt.store.JoinRoom(p, req.RoomCode, req.PlayerName)
	if err != nil {
		rt.logger.Info("join rejected",
			zap.String("room", req.RoomCode),
			zap.Error(err),
		)
		rt.replyError(p, err)
		return
	}

	rt.logger.Info("room filled",
		zap.String("room", room.Code),
		zap.String("host", room.InitiatorName),
		zap.String("opponent", room.JoinerName),
	)

	// Both sides get the full match-found view with their own role flag.
	rt.send(room.JoinerPeer, KindMatchFound, MatchFoundPayload{
		RoomCode:     room.Code,
		Rules:        room.Rules,
		HostName:     room.InitiatorName,
		OpponentName: room.JoinerName,
		IsHost:       false,
	})
	rt.send(room.InitiatorPeer, KindMatchFound, MatchFoundPayload{
		RoomCode:     room.Code,
		Rules:        room.Rules,
		HostName:     room.InitiatorName,
		OpponentName: room.JoinerName,
		IsHost:       true,
	})
}

func (rt *Router) handleStartMatch(p Peer, payload json.RawMessage) {
	var req StartMatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		rt.logger.Debug("dropping malformed START_MATCH payload",
			zap.String("conn", string(p.ID())),
			zap.Error(err),
		)
		return
	}

	room, err := rt.store.StartRoom(p.ID(), rt.now())
	if err != nil {
		rt.logger.Info("start rejected",
			zap.String("conn", string(p.ID())),
			zap.Error(err),
		)
		rt.replyError(p, err)
		return
	}

	rt.logger.Info("match started",
		zap.String("room", room.Code),
		zap.Int64("seed", req.Seed),
	)

	start := MatchStartPayload{
		StartTime: room.StartedAt.UnixMilli(),
		Rules:     room.Rules,
		Seed:      req.Seed,
	}
	rt.send(room.InitiatorPeer, KindMatchStart, start)
	rt.send(room.JoinerPeer, KindMatchStart, start)
}

// relay forwards a payload verbatim to the sender's opponent. Relay
// kinds are best-effort: when the room is missing, not started, or the
// opponent is gone, the message is silently dropped.
func (rt *Router) relay(p Peer, outKind string, payload json.RawMessage) {
	target, ok := rt.store.RelayTarget(p.ID())
	if !ok {
		return
	}
	if err := target.Deliver(Envelope{Kind: outKind, Payload: payload}); err != nil {
		rt.logger.Warn("relay delivery failed",
			zap.String("to", string(target.ID())),
			zap.String("kind", outKind),
			zap.Error(err),
		)
	}
}

// teardown removes the connection's room and notifies the remaining
// peer, if any, that their opponent left.
func (rt *Router) teardown(conn ConnID) {
	room, info, ok := rt.store.RemovePlayer(conn)
	if !ok {
		return
	}

	rt.logger.Info("room closed",
		zap.String("room", room.Code),
		zap.String("left", info.DisplayName),
	)

	if other := room.OpponentPeer(info.IsInitiator); other != nil {
		rt.send(other, KindOpponentLeft, OpponentLeftPayload{
			PlayerName: info.DisplayName,
		})
	}
}

// send marshals payload and delivers it to p. Delivery errors are
// logged, not retried.
func (rt *Router) send(p Peer, kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		rt.logger.Error("marshalling outbound payload",
			zap.String("kind", kind),
			zap.Error(err),
		)
		return
	}
	if err := p.Deliver(Envelope{Kind: kind, Payload: data}); err != nil {
		rt.logger.Warn("outbound delivery failed",
			zap.String("to", string(p.ID())),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func (rt *Router) sendError(p Peer, message string) {
	rt.send(p, KindError, ErrorPayload{Message: message})
}

// replyError reports err back to the originating connection. Errors
// outside the client taxonomy are masked with a generic message.
func (rt *Router) replyError(p Peer, err error) {
	if IsClientError(err) {
		rt.sendError(p, err.Error())
		return
	}
	rt.sendError(p, "internal error")
}

// IsClientError reports whether err belongs to the recoverable,
// connection-local error taxonomy reported back to clients.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrRoomFull) ||
		errors.Is(err, ErrNotHost) ||
		errors.Is(err, ErrOpponentMissing) ||
		errors.Is(err, ErrMatchStarted)
}
