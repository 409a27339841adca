package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/overloadgame/server/internal/config"
	"github.com/overloadgame/server/internal/relay"
)

// errClientClosed is returned by Deliver after the connection has shut down.
var errClientClosed = errors.New("connection closed")

// errSendBufferFull is returned by Deliver when the outbound queue is full.
// A peer that stops draining its socket loses messages rather than
// stalling the router.
var errSendBufferFull = errors.New("send buffer full")

// client wraps one websocket connection and implements relay.Peer.
// Reads happen only in readPump and writes only in writePump, per the
// gorilla concurrency contract.
type client struct {
	id     relay.ConnID
	conn   *websocket.Conn
	router *relay.Router
	cfg    config.WebSocketConfig
	logger *zap.Logger

	send      chan relay.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, router *relay.Router, cfg config.WebSocketConfig, logger *zap.Logger) *client {
	return &client{
		id:     relay.ConnID(newConnID()),
		conn:   conn,
		router: router,
		cfg:    cfg,
		logger: logger,
		send:   make(chan relay.Envelope, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the connection's identity token.
func (c *client) ID() relay.ConnID { return c.id }

// Deliver queues an envelope for the write pump without blocking.
//
// Postcondition: Returns errClientClosed after shutdown or
// errSendBufferFull when the outbound queue is full.
func (c *client) Deliver(env relay.Envelope) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- env:
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errSendBufferFull
	}
}

// readPump pumps frames from the websocket to the router. It owns all
// reads on the connection. On exit the connection is torn down and the
// router is told the peer disconnected.
func (c *client) readPump() {
	defer func() {
		c.shutdown()
		c.router.Disconnect(c)
	}()

	c.conn.SetReadLimit(c.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed",
					zap.String("conn", string(c.id)),
					zap.Error(err),
				)
			}
			return
		}
		c.router.HandleFrame(c, raw)
	}
}

// writePump pumps queued envelopes to the websocket and keeps the
// connection alive with periodic pings. It owns all writes on the
// connection.
func (c *client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Debug("websocket write failed",
					zap.String("conn", string(c.id)),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// shutdown closes the connection once; both pumps funnel through here.
func (c *client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
