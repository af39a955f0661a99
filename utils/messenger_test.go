package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func restError(status int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err       error
		notFound  bool
		forbidden bool
		rateLimit bool
	}{
		{restError(http.StatusNotFound), true, false, false},
		{restError(http.StatusForbidden), false, true, false},
		{restError(http.StatusTooManyRequests), false, false, true},
		{fmt.Errorf("wrapped: %w", restError(http.StatusNotFound)), true, false, false},
		{errors.New("HTTP 404 Not Found, Unknown Message"), true, false, false},
		{errors.New("HTTP 403 Forbidden, Missing Permissions"), false, true, false},
		{errors.New("You are being rate limited."), false, false, true},
		{errors.New("connection reset by peer"), false, false, false},
		{nil, false, false, false},
	}

	for _, c := range cases {
		if got := IsNotFound(c.err); got != c.notFound {
			t.Errorf("IsNotFound(%v) = %v, want %v", c.err, got, c.notFound)
		}
		if got := IsForbidden(c.err); got != c.forbidden {
			t.Errorf("IsForbidden(%v) = %v, want %v", c.err, got, c.forbidden)
		}
		if got := IsRateLimited(c.err); got != c.rateLimit {
			t.Errorf("IsRateLimited(%v) = %v, want %v", c.err, got, c.rateLimit)
		}
	}
}

type countingMessenger struct {
	calls int
	errs  []error
}

func (c *countingMessenger) AddReaction(channelID, messageID, emoji string) error {
	err := c.errs[c.calls]
	c.calls++
	return err
}

func (c *countingMessenger) RemoveReaction(channelID, messageID, emoji, userID string) error {
	return nil
}

func (c *countingMessenger) RemoveAllReactions(channelID, messageID string) error {
	return nil
}

func (c *countingMessenger) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	return "", nil
}

func (c *countingMessenger) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	return nil
}

func TestAddReactionWithRetryStopsOnHardFailure(t *testing.T) {
	m := &countingMessenger{errs: []error{restError(http.StatusNotFound)}}
	if err := AddReactionWithRetry(m, "c", "m", "🔥", 2); err == nil {
		t.Fatal("expected the not-found error to surface")
	}
	if m.calls != 1 {
		t.Fatalf("not-found must not be retried, got %d calls", m.calls)
	}
}

func TestAddReactionWithRetryRetriesRateLimits(t *testing.T) {
	m := &countingMessenger{errs: []error{
		restError(http.StatusTooManyRequests),
		restError(http.StatusTooManyRequests),
		nil,
	}}
	if err := AddReactionWithRetry(m, "c", "m", "🔥", 2); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if m.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", m.calls)
	}
}
