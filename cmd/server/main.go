// Package main provides the relay server binary: it pairs two clients
// into a room over websockets and forwards match traffic between them.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/overloadgame/server/internal/config"
	"github.com/overloadgame/server/internal/observability"
	"github.com/overloadgame/server/internal/relay"
	"github.com/overloadgame/server/internal/server"
	"github.com/overloadgame/server/internal/transport"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses built-in defaults")
	flag.Parse()

	ctx := context.Background()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting relay server",
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.Duration("room_abandon_timeout", cfg.Room.AbandonTimeout),
	)

	store := relay.NewStore(cfg.Room.CodeLength, cfg.Room.MaxCodeAttempts)
	router := relay.NewRouter(store, logger)
	reaper := relay.NewReaper(store, cfg.Room.SweepInterval, cfg.Room.AbandonTimeout, logger)
	httpSrv := transport.NewServer(cfg.HTTP, cfg.WebSocket, router, store, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("reaper", reaper)
	lifecycle.Add("http", httpSrv)

	logger.Info("relay server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
