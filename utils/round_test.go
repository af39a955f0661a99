package utils

import (
	"testing"
	"time"
)

func TestRoundLifecycle(t *testing.T) {
	r := NewRoundState()
	if r.IsOpen() || r.IsLocked() {
		t.Fatal("new round must start closed")
	}

	r.Open("Alpha", "Beta")
	if !r.IsOpen() || r.IsLocked() {
		t.Fatal("opened round must be open and unlocked")
	}

	r.Lock()
	if r.IsOpen() || !r.IsLocked() {
		t.Fatal("locked round must be closed and locked")
	}

	r.Reset()
	if r.IsOpen() || r.IsLocked() {
		t.Fatal("reset round must be fully closed")
	}
	if len(r.Contestants()) != 0 {
		t.Fatal("reset must drop contestants")
	}
}

func TestContestantForEmoji(t *testing.T) {
	r := NewRoundState()

	for _, emoji := range Contestant1Emojis {
		id, ok := r.ContestantForEmoji(emoji)
		if !ok || id != "1" {
			t.Fatalf("%s: expected contestant 1, got %q ok=%v", emoji, id, ok)
		}
	}
	for _, emoji := range Contestant2Emojis {
		id, ok := r.ContestantForEmoji(emoji)
		if !ok || id != "2" {
			t.Fatalf("%s: expected contestant 2, got %q ok=%v", emoji, id, ok)
		}
	}
	if _, ok := r.ContestantForEmoji(SeparatorEmoji); ok {
		t.Fatal("separator must not map to a contestant")
	}
	if _, ok := r.ContestantForEmoji("🎲"); ok {
		t.Fatal("arbitrary emojis must not map to a contestant")
	}
}

func TestStakeForEmoji(t *testing.T) {
	r := NewRoundState()

	for emoji, want := range ReactionBetAmounts {
		got, ok := r.StakeForEmoji(emoji)
		if !ok || got != want {
			t.Fatalf("%s: expected stake %d, got %d ok=%v", emoji, want, got, ok)
		}
	}
	if _, ok := r.StakeForEmoji(SeparatorEmoji); ok {
		t.Fatal("separator carries no stake")
	}
}

func TestLiveMessageTracking(t *testing.T) {
	r := NewRoundState()
	r.Open("Alpha", "Beta")

	if r.IsLiveMessage("") {
		t.Fatal("empty id must never match")
	}

	r.SetLiveMessage(MessageRef{MessageID: "m1", ChannelID: "c1"})
	r.SetSecondaryLiveMessage(MessageRef{MessageID: "m2", ChannelID: "c2"})

	if !r.IsLiveMessage("m1") || !r.IsLiveMessage("m2") {
		t.Fatal("both tracked messages must match")
	}
	if r.IsLiveMessage("m3") {
		t.Fatal("untracked id must not match")
	}

	r.ClearLiveMessage("m1")
	if r.IsLiveMessage("m1") {
		t.Fatal("cleared message must stop matching")
	}
	if !r.IsLiveMessage("m2") {
		t.Fatal("clearing one reference must not touch the other")
	}

	r.Reset()
	if r.IsLiveMessage("m2") {
		t.Fatal("reset must drop live message references")
	}
}

func TestContestantNames(t *testing.T) {
	r := NewRoundState()
	r.Open("Alpha", "Beta")

	if name, ok := r.ContestantName("1"); !ok || name != "Alpha" {
		t.Fatalf("expected Alpha, got %q ok=%v", name, ok)
	}
	if name, ok := r.ContestantName("2"); !ok || name != "Beta" {
		t.Fatalf("expected Beta, got %q ok=%v", name, ok)
	}
	if _, ok := r.ContestantName("3"); ok {
		t.Fatal("unknown id must not resolve")
	}
}

func TestTimerToggleAndDeadline(t *testing.T) {
	r := NewRoundState()
	if r.TimerEnabled() != EnableBetTimerDefault {
		t.Fatal("timer must start at its default")
	}

	first := r.ToggleTimer()
	if first == EnableBetTimerDefault || r.TimerEnabled() != first {
		t.Fatal("toggle must flip the setting")
	}

	if _, ok := r.TimerRemaining(); ok {
		t.Fatal("no deadline before StartTimer")
	}

	r.StartTimer(time.Minute)
	remaining, ok := r.TimerRemaining()
	if !ok || remaining <= 0 || remaining > time.Minute {
		t.Fatalf("unexpected remaining %v ok=%v", remaining, ok)
	}

	r.Lock()
	if _, ok := r.TimerRemaining(); ok {
		t.Fatal("lock must clear the deadline")
	}
}
