package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Messenger is the platform surface the betting core talks to. Production
// code wraps a discordgo session; tests substitute a recording fake.
type Messenger interface {
	AddReaction(channelID, messageID, emoji string) error
	RemoveReaction(channelID, messageID, emoji, userID string) error
	RemoveAllReactions(channelID, messageID string) error
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error)
	EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error
}

// DiscordMessenger implements Messenger on a live discordgo session.
type DiscordMessenger struct {
	Session *discordgo.Session
}

// NewDiscordMessenger wraps a discordgo session.
func NewDiscordMessenger(session *discordgo.Session) *DiscordMessenger {
	return &DiscordMessenger{Session: session}
}

func (m *DiscordMessenger) AddReaction(channelID, messageID, emoji string) error {
	err := m.Session.MessageReactionAdd(channelID, messageID, emoji)
	if err != nil {
		DiscordAPIErrors.WithLabelValues("add_reaction").Inc()
	}
	return err
}

func (m *DiscordMessenger) RemoveReaction(channelID, messageID, emoji, userID string) error {
	err := m.Session.MessageReactionRemove(channelID, messageID, emoji, userID)
	if err != nil {
		DiscordAPIErrors.WithLabelValues("remove_reaction").Inc()
	}
	return err
}

func (m *DiscordMessenger) RemoveAllReactions(channelID, messageID string) error {
	err := m.Session.MessageReactionsRemoveAll(channelID, messageID)
	if err != nil {
		DiscordAPIErrors.WithLabelValues("remove_all_reactions").Inc()
	}
	return err
}

func (m *DiscordMessenger) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	msg, err := m.Session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		DiscordAPIErrors.WithLabelValues("send").Inc()
		return "", err
	}
	return msg.ID, nil
}

func (m *DiscordMessenger) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := m.Session.ChannelMessageEditEmbed(channelID, messageID, embed)
	if err != nil {
		DiscordAPIErrors.WithLabelValues("edit").Inc()
	}
	return err
}

// IsNotFound reports whether an API error means the message, reaction or
// user no longer exists.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound) ||
		containsAny(err, "Unknown Message", "Unknown User", "Unknown Emoji", "404")
}

// IsForbidden reports whether an API error means the bot lacks permission.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden) || containsAny(err, "Missing Permissions", "403")
}

// IsRateLimited reports whether an API error is a 429.
func IsRateLimited(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests) || containsAny(err, "rate limit", "429")
}

func hasStatus(err error, status int) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == status
	}
	return false
}

func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range needles {
		if strings.Contains(msg, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

// AddReactionWithRetry adds one reaction, retrying rate-limited attempts
// with bounded exponential backoff (0.5s, 1s, 2s). Other failures are not
// retried.
func AddReactionWithRetry(m Messenger, channelID, messageID, emoji string, maxRetries int) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = m.AddReaction(channelID, messageID, emoji)
		if err == nil {
			return nil
		}
		if !IsRateLimited(err) {
			BotLogf("REACTION", "could not add reaction %s to message %s: %v", emoji, messageID, err)
			return err
		}
		if attempt < maxRetries {
			wait := 500 * time.Millisecond << attempt
			BotLogf("REACTION", "rate limited adding reaction %s, waiting %v (attempt %d)", emoji, wait, attempt+1)
			time.Sleep(wait)
		}
	}
	BotLogf("REACTION", "failed to add reaction %s after %d attempts: %v", emoji, maxRetries+1, err)
	return err
}
