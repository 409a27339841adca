package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubService blocks in Start until stopped, like the reaper and the
// HTTP listener do.
type stubService struct {
	startErr error
	onStop   func()

	quit chan struct{}
	once sync.Once
}

func newStubService(onStop func()) *stubService {
	return &stubService{onStop: onStop, quit: make(chan struct{})}
}

func (s *stubService) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.quit
	return nil
}

func (s *stubService) Stop() {
	s.once.Do(func() {
		close(s.quit)
		if s.onStop != nil {
			s.onStop()
		}
	})
}

func runLifecycle(t *testing.T, l *Lifecycle, ctx context.Context) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestLifecycleStopsInReverseOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	l := NewLifecycle(zaptest.NewLogger(t))
	l.Add("reaper", newStubService(record("reaper")))
	l.Add("http", newStubService(record("http")))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Let both Start calls block before pulling the plug.
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, runLifecycle(t, l, ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"http", "reaper"}, order)
}

func TestLifecycleReturnsServiceError(t *testing.T) {
	failing := newStubService(nil)
	failing.startErr = errors.New("listen tcp: address already in use")

	l := NewLifecycle(zaptest.NewLogger(t))
	l.Add("reaper", newStubService(nil))
	l.Add("http", failing)

	err := runLifecycle(t, l, context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service http")
	assert.ErrorIs(t, err, failing.startErr)
}

func TestLifecycleFailureStopsHealthyServices(t *testing.T) {
	var mu sync.Mutex
	stopped := false

	failing := newStubService(nil)
	failing.startErr = errors.New("boom")

	healthy := newStubService(func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
	})

	l := NewLifecycle(zaptest.NewLogger(t))
	l.Add("reaper", healthy)
	l.Add("http", failing)

	require.Error(t, runLifecycle(t, l, context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, stopped, "healthy service must be stopped after a peer fails")
}

func TestLifecycleNoServices(t *testing.T) {
	l := NewLifecycle(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, runLifecycle(t, l, ctx))
}
