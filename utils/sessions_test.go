package utils

import (
	"fmt"
	"testing"
)

func TestSessionOpenAndGetNormalizesIDs(t *testing.T) {
	m := NewSessionManager()

	sess, err := m.Open("  East  ", "Alpha", "Beta")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if sess.ID != "east" {
		t.Fatalf("expected normalized id, got %q", sess.ID)
	}
	if !sess.Round.IsOpen() {
		t.Fatal("a fresh session round should be open")
	}

	got, ok := m.Get("EAST")
	if !ok || got != sess {
		t.Fatal("lookup must be case-insensitive")
	}
}

func TestSessionOpenRejectsDuplicatesAndReservedIDs(t *testing.T) {
	m := NewSessionManager()

	if _, err := m.Open("east", "Alpha", "Beta"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := m.Open("East", "Gamma", "Delta"); err == nil {
		t.Fatal("duplicate id must be rejected")
	}
	if _, err := m.Open("", "Alpha", "Beta"); err == nil {
		t.Fatal("empty id must be rejected")
	}
	if _, err := m.Open("   ", "Alpha", "Beta"); err == nil {
		t.Fatal("whitespace id must be rejected")
	}
	if _, err := m.Open(DefaultUpdateID, "Alpha", "Beta"); err == nil {
		t.Fatal("the global update id must be rejected as a session name")
	}
}

func TestSessionOpenEnforcesLimit(t *testing.T) {
	m := NewSessionManager()
	for i := 0; i < MaxActiveSessions; i++ {
		if _, err := m.Open(fmt.Sprintf("s%d", i), "Alpha", "Beta"); err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
	}
	if _, err := m.Open("overflow", "Alpha", "Beta"); err == nil {
		t.Fatalf("session %d must be rejected", MaxActiveSessions+1)
	}
	if got := m.Len(); got != MaxActiveSessions {
		t.Fatalf("expected %d sessions, got %d", MaxActiveSessions, got)
	}
}

func TestSessionResolveLiveMessage(t *testing.T) {
	m := NewSessionManager()
	east, _ := m.Open("east", "Alpha", "Beta")
	west, _ := m.Open("west", "Gamma", "Delta")
	east.Round.SetLiveMessage(MessageRef{MessageID: "msg-east", ChannelID: "c"})
	west.Round.SetLiveMessage(MessageRef{MessageID: "msg-west", ChannelID: "c"})

	got, ok := m.ResolveLiveMessage("msg-west")
	if !ok || got != west {
		t.Fatal("expected the west session")
	}
	if _, ok := m.ResolveLiveMessage("unknown"); ok {
		t.Fatal("unknown message id must not resolve")
	}
	if _, ok := m.ResolveLiveMessage(""); ok {
		t.Fatal("empty message id must not resolve")
	}
}

func TestSessionRemoveAndList(t *testing.T) {
	m := NewSessionManager()
	m.Open("west", "Alpha", "Beta")
	m.Open("east", "Gamma", "Delta")

	list := m.List()
	if len(list) != 2 || list[0].ID != "east" || list[1].ID != "west" {
		t.Fatalf("expected sorted [east west], got %v", list)
	}

	m.Remove("EAST")
	if _, ok := m.Get("east"); ok {
		t.Fatal("removed session must be gone")
	}
	if got := m.Len(); got != 1 {
		t.Fatalf("expected 1 session, got %d", got)
	}
}
