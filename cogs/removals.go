package cogs

import (
	"sync"
	"time"
)

type removalKey struct {
	messageID string
	userID    string
	emoji     string
}

// RemovalTracker remembers reaction removals the bot is about to issue
// itself, so the removal events they generate are not mistaken for users
// cancelling their bets. Entries are one-shot: the first matching Consume
// deletes them. Stale entries are purged lazily on Mark, so a lost or
// duplicated platform event cannot leak memory.
type RemovalTracker struct {
	mu      sync.Mutex
	entries map[removalKey]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewRemovalTracker creates a tracker whose entries expire after ttl.
func NewRemovalTracker(ttl time.Duration) *RemovalTracker {
	return &RemovalTracker{
		entries: make(map[removalKey]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Mark records that the next removal event for (message, user, emoji) is
// bot-initiated. Call immediately before issuing the removal API call.
func (t *RemovalTracker) Mark(messageID, userID, emoji string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-t.ttl)
	for key, stamp := range t.entries {
		if stamp.Before(cutoff) {
			delete(t.entries, key)
		}
	}
	t.entries[removalKey{messageID, userID, emoji}] = now
}

// Consume checks for a matching marker; if found it is deleted and true is
// returned, meaning the removal event must be suppressed.
func (t *RemovalTracker) Consume(messageID, userID, emoji string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := removalKey{messageID, userID, emoji}
	stamp, ok := t.entries[key]
	if !ok {
		return false
	}
	delete(t.entries, key)
	return !stamp.Before(t.now().Add(-t.ttl))
}

// Unmark withdraws a marker after the removal API call itself failed, so
// it cannot suppress a future legitimate removal of the same tuple.
func (t *RemovalTracker) Unmark(messageID, userID, emoji string) {
	t.mu.Lock()
	delete(t.entries, removalKey{messageID, userID, emoji})
	t.mu.Unlock()
}

// Len returns the number of live markers.
func (t *RemovalTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
