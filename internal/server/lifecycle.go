// Package server coordinates the relay process's long-running pieces.
// The reaper and the HTTP listener register as services; they start
// together and stop in reverse order on SIGINT, SIGTERM, a service
// failure, or context cancellation.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component owned by the Lifecycle.
type Service interface {
	// Start runs the service. It blocks until the service is stopped
	// or fails.
	Start() error
	// Stop asks the service to wind down. Safe to call after Start has
	// already returned.
	Stop()
}

// Lifecycle starts registered services in order and stops them in
// reverse order. A single failed service brings the whole process down.
type Lifecycle struct {
	logger *zap.Logger

	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name string
	svc  Service
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a named service. Services start in registration order
// and stop in reverse.
//
// Precondition: name must be non-empty; svc must be non-nil. Add must
// not be called after Run.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, svc: svc})
}

// Run starts every registered service and blocks until a termination
// signal arrives, the context is cancelled, or a service fails.
//
// Postcondition: Every service has been stopped. Returns the first
// service failure, or nil when shutdown was signal- or context-driven.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	services := make([]namedService, len(l.services))
	copy(services, l.services)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		ns := ns
		l.logger.Info("starting service", zap.String("service", ns.name))
		go func() {
			if err := ns.svc.Start(); err != nil {
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
				cancel()
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case runErr = <-errCh:
		l.logger.Error("service failed, shutting down",
			zap.Error(runErr),
		)
	case <-ctx.Done():
		// A failing service cancels the context after queueing its
		// error; pick the error up if this branch won the race.
		select {
		case runErr = <-errCh:
		default:
		}
		l.logger.Info("context cancelled, shutting down")
	}

	l.stopAll(services)

	l.logger.Info("shutdown complete",
		zap.Duration("uptime", time.Since(start)),
	)
	return runErr
}

// stopAll stops services in reverse registration order so the HTTP
// listener drains before the reaper behind it goes away.
func (l *Lifecycle) stopAll(services []namedService) {
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		stopStart := time.Now()
		ns.svc.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(stopStart)),
		)
	}
}
