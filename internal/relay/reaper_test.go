package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestReaperSweep(t *testing.T) {
	store := newTestStore()
	reaper := NewReaper(store, time.Minute, 10*time.Minute, zaptest.NewLogger(t))

	created, err := store.CreateRoom(newFakePeer("a"), nil, "Alice")
	require.NoError(t, err)

	assert.Equal(t, 0, reaper.Sweep(created.CreatedAt.Add(5*time.Minute)))
	assert.Equal(t, 1, store.RoomCount())

	assert.Equal(t, 1, reaper.Sweep(created.CreatedAt.Add(10*time.Minute)))
	assert.Equal(t, 0, store.RoomCount())
	assert.Equal(t, 0, store.PlayerCount())
}

func TestReaperSparesStartedRooms(t *testing.T) {
	store := newTestStore()
	reaper := NewReaper(store, time.Minute, 10*time.Minute, zaptest.NewLogger(t))

	host := newFakePeer("a")
	created, err := store.CreateRoom(host, nil, "Alice")
	require.NoError(t, err)
	_, err = store.JoinRoom(newFakePeer("b"), created.Code, "Bob")
	require.NoError(t, err)
	_, err = store.StartRoom(host.ID(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, reaper.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, store.RoomCount())
}

func TestReaperServiceLoop(t *testing.T) {
	store := newTestStore()
	// Zero-length abandonment window: any unstarted room is evicted on
	// the next tick.
	reaper := NewReaper(store, 10*time.Millisecond, time.Nanosecond, zaptest.NewLogger(t))

	_, err := store.CreateRoom(newFakePeer("a"), nil, "Alice")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- reaper.Start() }()

	deadline := time.After(2 * time.Second)
	for store.RoomCount() > 0 {
		select {
		case <-deadline:
			t.Fatal("reaper did not evict in time")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	reaper.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop in time")
	}

	// Stop is idempotent.
	reaper.Stop()
}
