package utils

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultUpdateID marks a refresh of the legacy global live messages.
// Session refreshes use the session id instead.
const DefaultUpdateID = "default"

// UpdateIDForScope maps a bet scope to its scheduler update id.
func UpdateIDForScope(scope string) string {
	if scope == LegacyScope {
		return DefaultUpdateID
	}
	return scope
}

// RefreshFunc performs one external refresh of the live message(s) for the
// drained batch of identifiers. It must reload authoritative state itself;
// the scheduler hands it no snapshot.
type RefreshFunc func(ids []string) error

// LiveMessageScheduler coalesces "refresh the live message" requests into
// at most one external update per batch window. ScheduleUpdate is
// non-blocking and idempotent within a window. A failed refresh terminates
// the current cycle and resets the running flag so the next
// ScheduleUpdate starts fresh.
type LiveMessageScheduler struct {
	mu      sync.Mutex
	pending map[string]struct{}
	running bool
	stopped bool
	skipAll time.Time
	skipIDs map[string]time.Time
	refresh RefreshFunc
	window  time.Duration
	stop    chan struct{}
}

// NewLiveMessageScheduler creates a scheduler with the given batch window.
func NewLiveMessageScheduler(window time.Duration) *LiveMessageScheduler {
	return &LiveMessageScheduler{
		pending: make(map[string]struct{}),
		skipIDs: make(map[string]time.Time),
		window:  window,
		stop:    make(chan struct{}),
	}
}

// SetTarget installs the refresh callback. Updates scheduled before a
// target exists stay pending and are flushed once one is attached.
func (s *LiveMessageScheduler) SetTarget(refresh RefreshFunc) {
	s.mu.Lock()
	s.refresh = refresh
	start := refresh != nil && len(s.pending) > 0 && !s.running && !s.stopped
	if start {
		s.running = true
	}
	s.mu.Unlock()

	if start {
		go s.run()
	}
}

// ScheduleUpdate marks an identifier as needing a refresh and starts a
// batch cycle if none is running. Calling it any number of times within
// one window produces a single refresh.
func (s *LiveMessageScheduler) ScheduleUpdate(ids ...string) {
	if len(ids) == 0 {
		ids = []string{DefaultUpdateID}
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	for _, id := range ids {
		s.pending[id] = struct{}{}
	}
	start := s.refresh != nil && !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()

	if start {
		go s.run()
	}
}

// SuppressFor skips batched refreshes until the duration elapses, so a
// just-posted immediate embed (lock, winner) is not overwritten by a
// trailing batch. With ids it suppresses only those update ids, leaving
// other sessions' refreshes untouched; with none it suppresses everything.
func (s *LiveMessageScheduler) SuppressFor(d time.Duration, ids ...string) {
	until := time.Now().Add(d)
	s.mu.Lock()
	if len(ids) == 0 {
		s.skipAll = until
	} else {
		for _, id := range ids {
			s.skipIDs[id] = until
		}
	}
	s.mu.Unlock()
}

// Stop shuts the scheduler down permanently.
func (s *LiveMessageScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.stop)
}

func (s *LiveMessageScheduler) run() {
	for {
		select {
		case <-time.After(s.window):
		case <-s.stop:
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		if len(s.pending) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		now := time.Now()
		batch := make([]string, 0, len(s.pending))
		for id := range s.pending {
			if now.Before(s.skipAll) || now.Before(s.skipIDs[id]) {
				continue
			}
			batch = append(batch, id)
		}
		s.pending = make(map[string]struct{})
		for id, until := range s.skipIDs {
			if !now.Before(until) {
				delete(s.skipIDs, id)
			}
		}
		refresh := s.refresh
		s.mu.Unlock()

		if len(batch) == 0 {
			continue
		}

		if err := refresh(batch); err != nil {
			Log.Error("live message batch refresh failed", zap.Error(err))
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}
		LiveMessageRefreshes.Inc()
	}
}
