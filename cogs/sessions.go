package cogs

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"betbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// SessionCog owns the named concurrent betting sessions. Each session is
// a full round of its own: its own live message, its own bets in the
// ledger under the session id, and its own auto-lock timer. The global
// round keeps running untouched alongside.
type SessionCog struct {
	session   *discordgo.Session
	msgr      utils.Messenger
	ledger    *utils.Ledger
	sessions  *utils.SessionManager
	sched     *utils.LiveMessageScheduler
	reactions *ReactionCog

	tickInterval time.Duration

	mu     sync.Mutex
	timers map[string]chan struct{}
}

// NewSessionCog wires the session command layer.
func NewSessionCog(session *discordgo.Session, msgr utils.Messenger, ledger *utils.Ledger, sessions *utils.SessionManager, sched *utils.LiveMessageScheduler, reactions *ReactionCog) *SessionCog {
	return &SessionCog{
		session:   session,
		msgr:      msgr,
		ledger:    ledger,
		sessions:  sessions,
		sched:     sched,
		reactions: reactions,

		tickInterval: utils.BetTimerUpdateInterval,
		timers:       make(map[string]chan struct{}),
	}
}

// RegisterSessionCommands returns the application command definitions for
// multi-session betting.
func RegisterSessionCommands() []*discordgo.ApplicationCommand {
	sessionOpt := func() *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionString, Name: "session",
			Description: "Session name", Required: true,
		}
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        "opensession",
			Description: "Open a named betting session alongside other rounds",
			Options: []*discordgo.ApplicationCommandOption{
				sessionOpt(),
				{Type: discordgo.ApplicationCommandOptionString, Name: "contestant1", Description: "First contestant", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "contestant2", Description: "Second contestant", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "timer", Description: "Auto-lock after this many seconds", Required: false},
			},
		},
		{
			Name:        "locksession",
			Description: "Lock a session so no new bets can be placed",
			Options:     []*discordgo.ApplicationCommandOption{sessionOpt()},
		},
		{
			Name:        "declaresessionwinner",
			Description: "Declare the winner of a locked session and pay out",
			Options: []*discordgo.ApplicationCommandOption{
				sessionOpt(),
				{Type: discordgo.ApplicationCommandOptionString, Name: "winner", Description: "Winning contestant", Required: true},
			},
		},
		{
			Name:        "closesession",
			Description: "Lock a session, declare the winner and pay out in one step",
			Options: []*discordgo.ApplicationCommandOption{
				sessionOpt(),
				{Type: discordgo.ApplicationCommandOptionString, Name: "winner", Description: "Winning contestant", Required: true},
			},
		},
		{
			Name:        "sessionbet",
			Description: "Place or change a bet in a named session",
			Options: []*discordgo.ApplicationCommandOption{
				sessionOpt(),
				{Type: discordgo.ApplicationCommandOptionString, Name: "contestant", Description: "Contestant to bet on", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Stake in coins", Required: true},
			},
		},
		{
			Name:        "sessions",
			Description: "List the active betting sessions",
		},
	}
}

// HandleCommand dispatches one session slash command.
func (c *SessionCog) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "opensession":
		c.handleOpenSession(s, i)
	case "locksession":
		c.handleLockSession(s, i)
	case "declaresessionwinner":
		c.handleDeclareSessionWinner(s, i)
	case "closesession":
		c.handleCloseSession(s, i)
	case "sessionbet":
		c.handleSessionBet(s, i)
	case "sessions":
		c.handleSessions(s, i)
	}
}

func (c *SessionCog) handleOpenSession(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasBetBoyRole(s, i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need the betboy role to manage betting sessions.", utils.ColorError), true)
		return
	}

	opts := commandOptions(i)
	sessionName := opts["session"].StringValue()
	name1 := strings.TrimSpace(opts["contestant1"].StringValue())
	name2 := strings.TrimSpace(opts["contestant2"].StringValue())
	if name1 == "" || name2 == "" || strings.EqualFold(name1, name2) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "Provide two distinct contestant names.", utils.ColorError), true)
		return
	}

	sess, err := c.sessions.Open(sessionName, name1, name2)
	if err != nil {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, err.Error(), utils.ColorWarning), true)
		return
	}
	c.ledger.ClearBets(sess.ID)

	embed := utils.BuildLiveEmbed(sess.Round, c.ledger, sess.ID, nil)
	embed.Title = fmt.Sprintf("%s — %s", utils.TitleLiveBettingRound, sess.ID)
	messageID, err := c.msgr.SendEmbed(i.ChannelID, embed)
	if err != nil {
		c.sessions.Remove(sess.ID)
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "Failed to send the live betting message.", utils.ColorError), true)
		return
	}
	sess.Round.SetLiveMessage(utils.MessageRef{MessageID: messageID, ChannelID: i.ChannelID})

	go seedOptionMarkers(c.msgr, i.ChannelID, messageID)

	if timerOpt, ok := opts["timer"]; ok {
		if secs := timerOpt.IntValue(); secs > 0 {
			c.startSessionTimer(sess, time.Duration(secs)*time.Second)
		}
	}

	respondEmbed(s, i, utils.SimpleEmbed(
		utils.TitleSessionOpened,
		fmt.Sprintf("Session **%s**: %s **%s** vs %s **%s** — place your bets with reactions or `/sessionbet`!",
			sess.ID, utils.Contestant1Emoji, name1, utils.Contestant2Emoji, name2),
		utils.ColorSuccess), false)

	utils.Log.Info("betting session opened",
		zap.String("session", sess.ID),
		zap.String("contestant1", name1),
		zap.String("contestant2", name2))
}

func (c *SessionCog) handleLockSession(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasBetBoyRole(s, i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need the betboy role to manage betting sessions.", utils.ColorError), true)
		return
	}
	sess, ok := c.sessions.Get(commandOptions(i)["session"].StringValue())
	if !ok {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgSessionNotFound, utils.ColorWarning), true)
		return
	}
	if !sess.Round.IsOpen() {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgBetLocked, utils.ColorWarning), true)
		return
	}

	c.lockSession(sess, utils.MsgBettingLockedNotice)
	respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBetsLocked,
		fmt.Sprintf("Session **%s**: %s", sess.ID, utils.MsgBettingLockedNotice), utils.ColorDarkOrange), false)
}

// lockSession locks one session without touching the global round or the
// other sessions, then suppresses only this session's batched refreshes.
func (c *SessionCog) lockSession(sess *utils.Session, summary string) {
	c.stopSessionTimer(sess.ID)
	sess.Round.Lock()

	names := userDisplayNames(c.session, c.ledger.Bets(sess.ID))
	embed := utils.BuildLockedEmbed(sess.Round, c.ledger, sess.ID, names, summary)
	editTrackedMessages(c.msgr, sess.Round, embed)

	c.sched.SuppressFor(utils.LiveUpdateSuppression, sess.ID)

	live := sess.Round.LiveMessage()
	if live.MessageID != "" {
		if err := c.msgr.RemoveAllReactions(live.ChannelID, live.MessageID); err != nil {
			utils.BotLogf("SESSION", "failed to clear reactions on lock: %v", err)
		}
	}

	utils.Log.Info("betting session locked", zap.String("session", sess.ID))
}

func (c *SessionCog) handleDeclareSessionWinner(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasBetBoyRole(s, i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need the betboy role to manage betting sessions.", utils.ColorError), true)
		return
	}
	sess, ok := c.sessions.Get(commandOptions(i)["session"].StringValue())
	if !ok {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgSessionNotFound, utils.ColorWarning), true)
		return
	}
	if !sess.Round.IsLocked() {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "Lock the session before declaring a winner.", utils.ColorWarning), true)
		return
	}
	c.declareSessionWinner(s, i, sess, commandOptions(i)["winner"].StringValue())
}

func (c *SessionCog) handleCloseSession(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasBetBoyRole(s, i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need the betboy role to manage betting sessions.", utils.ColorError), true)
		return
	}
	sess, ok := c.sessions.Get(commandOptions(i)["session"].StringValue())
	if !ok {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgSessionNotFound, utils.ColorWarning), true)
		return
	}
	if sess.Round.IsOpen() {
		c.lockSession(sess, utils.MsgBettingLockedNotice)
	}
	c.declareSessionWinner(s, i, sess, commandOptions(i)["winner"].StringValue())
}

func (c *SessionCog) declareSessionWinner(s *discordgo.Session, i *discordgo.InteractionCreate, sess *utils.Session, winnerArg string) {
	winnerName, ok := resolveContestant(sess.Round, winnerArg)
	if !ok {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError,
			fmt.Sprintf("Unknown contestant: **%s**", winnerArg), utils.ColorError), true)
		return
	}
	respondEmbed(s, i, c.settleSession(sess, winnerName), false)
}

// settleSession pays one session out and removes it. Buffered reaction
// bets in this session's scope are dropped; every other scope, the global
// round included, is left alone.
func (c *SessionCog) settleSession(sess *utils.Session, winnerName string) *discordgo.MessageEmbed {
	results := c.ledger.CalculateRoundResults(sess.ID, winnerName)
	c.ledger.PayOutResults(results)

	names := userDisplayNames(c.session, c.ledger.Bets(sess.ID))
	embed := utils.BuildWinnerEmbed(winnerName, results, names)
	embed.Title = fmt.Sprintf("%s — %s", embed.Title, sess.ID)

	editTrackedMessages(c.msgr, sess.Round, embed)
	c.sched.SuppressFor(utils.LiveUpdateSuppression, sess.ID)

	c.reactions.CancelScope(sess.ID)
	c.ledger.ClearBets(sess.ID)
	c.stopSessionTimer(sess.ID)
	sess.Round.Reset()
	c.sessions.Remove(sess.ID)

	utils.Log.Info("session winner declared",
		zap.String("session", sess.ID),
		zap.String("winner", winnerName),
		zap.Int64("total_pot", results.TotalPot),
		zap.Int64("winning_pot", results.WinningPot))
	return embed
}

func (c *SessionCog) handleSessionBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := commandOptions(i)
	sess, ok := c.sessions.Get(opts["session"].StringValue())
	if !ok {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgSessionNotFound, utils.ColorWarning), true)
		return
	}

	userID := interactionUserID(i)
	bet, errEmbed := applyBet(c.ledger, sess.Round, sess.ID, userID, opts["contestant"].StringValue(), opts["amount"].IntValue(), false)
	if errEmbed != nil {
		respondEmbed(s, i, errEmbed, true)
		return
	}
	c.sched.ScheduleUpdate(sess.ID)

	respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBetPlaced,
		fmt.Sprintf("<@%s>, your bet of `%d` coins on **%s** in session **%s** has been placed!",
			userID, bet.Amount, bet.Choice, sess.ID),
		utils.ColorSuccess), false)
}

func (c *SessionCog) handleSessions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	active := c.sessions.List()
	if len(active) == 0 {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleActiveSessions, utils.MsgNoActiveSessions, utils.ColorInfo), true)
		return
	}

	var desc strings.Builder
	for _, sess := range active {
		status := "🟢 open"
		if sess.Round.IsLocked() {
			status = "🔒 locked"
		}
		contestants := sess.Round.Contestants()
		bets := c.ledger.Bets(sess.ID)
		fmt.Fprintf(&desc, "**%s** (%s): %s vs %s — pot `%d` coins, %d bets\n",
			sess.ID, status, contestants["1"], contestants["2"], c.ledger.TotalPot(sess.ID), len(bets))
	}
	respondEmbed(s, i, utils.SimpleEmbed(utils.TitleActiveSessions, desc.String(), utils.ColorInfo), false)
}

// startSessionTimer arms an auto-lock countdown for one session.
func (c *SessionCog) startSessionTimer(sess *utils.Session, duration time.Duration) {
	c.stopSessionTimer(sess.ID)
	sess.Round.StartTimer(duration)

	cancel := make(chan struct{})
	c.mu.Lock()
	c.timers[sess.ID] = cancel
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				if !sess.Round.IsOpen() {
					return
				}
				remaining, ok := sess.Round.TimerRemaining()
				if !ok {
					return
				}
				if remaining <= 0 {
					c.lockSession(sess, utils.MsgTimerExpiredNotice)
					return
				}
				c.sched.ScheduleUpdate(sess.ID)
			}
		}
	}()
}

func (c *SessionCog) stopSessionTimer(id string) {
	c.mu.Lock()
	if cancel, ok := c.timers[id]; ok {
		close(cancel)
		delete(c.timers, id)
	}
	c.mu.Unlock()
}

// Stop cancels all session timers on shutdown.
func (c *SessionCog) Stop() {
	c.mu.Lock()
	for id, cancel := range c.timers {
		close(cancel)
		delete(c.timers, id)
	}
	c.mu.Unlock()
}
