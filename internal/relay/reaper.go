package relay

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reaper periodically evicts rooms that never reached the started state
// within the abandonment window. Started rooms are never evicted by
// time; their lifecycle ends only via leave or disconnect. No
// notification is sent for reaped rooms.
type Reaper struct {
	store    *Store
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewReaper creates a Reaper sweeping the store every interval,
// evicting unstarted rooms whose age has reached timeout.
//
// Precondition: store and logger must be non-nil; interval and timeout
// must be > 0.
func NewReaper(store *Store, interval, timeout time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		store:    store,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop. It blocks until Stop is called.
//
// Postcondition: Returns nil once stopped.
func (r *Reaper) Start() error {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper running",
		zap.Duration("interval", r.interval),
		zap.Duration("abandon_timeout", r.timeout),
	)

	for {
		select {
		case <-ticker.C:
			r.Sweep(time.Now())
		case <-r.quit:
			return nil
		}
	}
}

// Sweep performs one scan-and-evict pass as of the given time.
//
// Postcondition: Returns the number of rooms evicted.
func (r *Reaper) Sweep(now time.Time) int {
	evicted := r.store.SweepExpired(now, r.timeout)
	if len(evicted) > 0 {
		r.logger.Info("evicted abandoned rooms",
			zap.Int("count", len(evicted)),
			zap.Strings("rooms", evicted),
		)
	}
	return len(evicted)
}

// Stop terminates the sweep loop and waits for it to exit. Safe to call
// more than once.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
	<-r.done
}
