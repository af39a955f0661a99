package utils

import (
	"sync"
	"time"
)

// MessageRef points at one Discord message.
type MessageRef struct {
	MessageID string
	ChannelID string
}

// RoundState is the authoritative state of the current betting round: the
// contestants, the open/locked lifecycle, the emoji configuration and the
// live message references. All reads and writes go through the mutex; the
// reaction pipeline consults it on every event.
type RoundState struct {
	mu          sync.RWMutex
	open        bool
	locked      bool
	contestants map[string]string // "1"/"2" -> display name

	live      MessageRef
	secondary MessageRef

	timerEnabled bool
	timerEnd     time.Time
}

// NewRoundState returns a closed round with no contestants.
func NewRoundState() *RoundState {
	return &RoundState{
		contestants:  make(map[string]string),
		timerEnabled: EnableBetTimerDefault,
	}
}

// Open starts a new round between two contestants.
func (r *RoundState) Open(name1, name2 string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = true
	r.locked = false
	r.contestants = map[string]string{"1": name1, "2": name2}
}

// Lock stops new bets while keeping the round alive for winner declaration.
func (r *RoundState) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	r.locked = true
	r.timerEnd = time.Time{}
}

// Reset closes the round entirely.
func (r *RoundState) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	r.locked = false
	r.contestants = make(map[string]string)
	r.live = MessageRef{}
	r.secondary = MessageRef{}
	r.timerEnd = time.Time{}
}

// IsOpen reports whether bets can currently be placed.
func (r *RoundState) IsOpen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.open
}

// IsLocked reports whether the round is locked awaiting a winner.
func (r *RoundState) IsLocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

// Contestants returns a copy of the contestant id -> name map.
func (r *RoundState) Contestants() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.contestants))
	for id, name := range r.contestants {
		out[id] = name
	}
	return out
}

// ContestantName resolves a contestant id to its display name.
func (r *RoundState) ContestantName(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.contestants[id]
	return name, ok
}

// ContestantForEmoji maps a betting emoji to its contestant id ("1" or
// "2"). Returns false for the separator and any unmapped emoji.
func (r *RoundState) ContestantForEmoji(emoji string) (string, bool) {
	for _, e := range Contestant1Emojis {
		if e == emoji {
			return "1", true
		}
	}
	for _, e := range Contestant2Emojis {
		if e == emoji {
			return "2", true
		}
	}
	return "", false
}

// StakeForEmoji returns the configured stake for a betting emoji.
func (r *RoundState) StakeForEmoji(emoji string) (int64, bool) {
	amount, ok := ReactionBetAmounts[emoji]
	return amount, ok
}

// BettingEmojis returns every betting emoji in marker order.
func (r *RoundState) BettingEmojis() []string {
	out := make([]string, 0, len(Contestant1Emojis)+len(Contestant2Emojis))
	out = append(out, Contestant1Emojis...)
	out = append(out, Contestant2Emojis...)
	return out
}

// SetLiveMessage records the primary live message reference.
func (r *RoundState) SetLiveMessage(ref MessageRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = ref
}

// SetSecondaryLiveMessage records the secondary live message reference.
func (r *RoundState) SetSecondaryLiveMessage(ref MessageRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secondary = ref
}

// LiveMessage returns the primary live message reference.
func (r *RoundState) LiveMessage() MessageRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// SecondaryLiveMessage returns the secondary live message reference.
func (r *RoundState) SecondaryLiveMessage() MessageRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.secondary
}

// ClearLiveMessage drops a live message reference after the message was
// found deleted, so later refreshes stop targeting it.
func (r *RoundState) ClearLiveMessage(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live.MessageID == messageID {
		r.live = MessageRef{}
	}
	if r.secondary.MessageID == messageID {
		r.secondary = MessageRef{}
	}
}

// IsLiveMessage reports whether the message id is one of the tracked live
// status messages.
func (r *RoundState) IsLiveMessage(messageID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if messageID == "" {
		return false
	}
	return messageID == r.live.MessageID || messageID == r.secondary.MessageID
}

// TimerEnabled reports whether the auto-lock timer is switched on.
func (r *RoundState) TimerEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timerEnabled
}

// ToggleTimer flips the auto-lock timer setting and returns the new value.
func (r *RoundState) ToggleTimer() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timerEnabled = !r.timerEnabled
	return r.timerEnabled
}

// StartTimer records the auto-lock deadline.
func (r *RoundState) StartTimer(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timerEnd = time.Now().Add(duration)
}

// TimerRemaining returns the remaining auto-lock time, if a timer is set.
func (r *RoundState) TimerRemaining() (time.Duration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.timerEnd.IsZero() {
		return 0, false
	}
	remaining := time.Until(r.timerEnd)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
