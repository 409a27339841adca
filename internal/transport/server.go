// Package transport adapts websocket connections to the relay core and
// exposes the peripheral HTTP surface: the websocket endpoint, a health
// responder, and static client assets.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/overloadgame/server/internal/config"
	"github.com/overloadgame/server/internal/relay"
)

// newConnID issues an opaque connection identity token.
func newConnID() string { return uuid.NewString() }

// Server accepts websocket connections on /ws, serves /health, and
// hosts static client assets at /.
type Server struct {
	cfg      config.HTTPConfig
	wsCfg    config.WebSocketConfig
	router   *relay.Router
	store    *relay.Store
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	httpSrv *http.Server
}

// NewServer creates a transport Server.
//
// Precondition: router, store, and logger must be non-nil.
func NewServer(cfg config.HTTPConfig, wsCfg config.WebSocketConfig, router *relay.Router, store *relay.Store, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		wsCfg:  wsCfg,
		router: router,
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients connect from arbitrary origins (desktop builds,
			// local files), so origin checking is left to deployment.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler serving /ws, /health, and static assets.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /health", s.serveHealth)
	if s.cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return mux
}

// serveWS upgrades the connection and starts the client pumps.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := newClient(conn, s.router, s.wsCfg, s.logger)
	s.logger.Info("client connected",
		zap.String("conn", string(c.ID())),
		zap.String("remote_addr", r.RemoteAddr),
	)

	go c.writePump()
	go c.readPump()
}

// healthResponse is the body of GET /health. Counts reflect live store
// sizes.
type healthResponse struct {
	Status  string `json:"status"`
	Rooms   int    `json:"rooms"`
	Players int    `json:"players"`
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Rooms:   s.store.RoomCount(),
		Players: s.store.PlayerCount(),
	})
}

// Start runs the HTTP server. It blocks until Stop is called.
//
// Postcondition: Returns nil on graceful shutdown, or the listen error.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	s.logger.Info("http server listening",
		zap.String("addr", s.cfg.Addr()),
	)

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", s.cfg.Addr(), err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server, allowing in-flight
// requests a short drain window.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}
