package cogs

import (
	"sync"
	"time"

	"betbot-go/utils"

	"go.uber.org/zap"
)

// ReactionEvent is the typed wrapper around a raw platform reaction
// payload. The rest of the pipeline never touches platform-shaped data.
type ReactionEvent struct {
	MessageID string
	ChannelID string
	UserID    string
	Emoji     string
}

// betKey identifies one user's pending entry within one bet scope, so a
// user can hold independent pending bets in the global round and in a
// session at the same time.
type betKey struct {
	scope  string
	userID string
}

// pendingBet buffers one user's not-yet-finalized reaction bet during the
// debounce window. It is owned exclusively by the ReactionCog and is
// overwritten wholesale by each newer qualifying reaction.
type pendingBet struct {
	event          ReactionEvent
	scope          string
	round          *utils.RoundState
	contestantID   string
	contestantName string
	amount         int64
}

// ReactionCog is the entry point for every reaction add/remove event. It
// validates events, coalesces bursts of reactions from one user into a
// single bet, and keeps the bot's own cleanup removals from being read as
// user cancellations. Events are routed to the global round or to a
// session by the live message they landed on.
type ReactionCog struct {
	msgr     utils.Messenger
	ledger   *utils.Ledger
	round    *utils.RoundState
	sessions *utils.SessionManager
	sched    *utils.LiveMessageScheduler
	removals *RemovalTracker

	primaryDelay time.Duration
	backupDelay  time.Duration

	mu      sync.Mutex
	selfID  string
	pending map[betKey]*pendingBet
	primary map[betKey]*time.Timer
	backup  map[betKey]*time.Timer
}

// NewReactionCog wires the reaction pipeline. The self user id is set
// later, once the gateway session is ready.
func NewReactionCog(msgr utils.Messenger, ledger *utils.Ledger, round *utils.RoundState, sessions *utils.SessionManager, sched *utils.LiveMessageScheduler) *ReactionCog {
	return &ReactionCog{
		msgr:         msgr,
		ledger:       ledger,
		round:        round,
		sessions:     sessions,
		sched:        sched,
		removals:     NewRemovalTracker(utils.ProgrammaticRemovalTTL),
		primaryDelay: utils.ReactionDebounceDelay,
		backupDelay:  utils.ReactionBackupDelay,
		pending:      make(map[betKey]*pendingBet),
		primary:      make(map[betKey]*time.Timer),
		backup:       make(map[betKey]*time.Timer),
	}
}

// SetSelf records the bot's own user id so its reactions are ignored.
func (c *ReactionCog) SetSelf(userID string) {
	c.mu.Lock()
	c.selfID = userID
	c.mu.Unlock()
}

// Removals exposes the tracker so command handlers that clear reactions
// (lock, winner) can mark their own removals.
func (c *ReactionCog) Removals() *RemovalTracker {
	return c.removals
}

func (c *ReactionCog) isSelf(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID != "" && userID == c.selfID
}

// resolveTarget maps a message id to the bet scope and round it belongs
// to: the global round's live messages or one of the session live
// messages.
func (c *ReactionCog) resolveTarget(messageID string) (string, *utils.RoundState, bool) {
	if c.round.IsLiveMessage(messageID) {
		return utils.LegacyScope, c.round, true
	}
	if sess, ok := c.sessions.ResolveLiveMessage(messageID); ok {
		return sess.ID, sess.Round, true
	}
	return "", nil, false
}

// HandleReactionAdd routes one reaction-add event through the guard chain
// and, if it qualifies, into the debounce buffer.
func (c *ReactionCog) HandleReactionAdd(e ReactionEvent) {
	if c.isSelf(e.UserID) {
		return
	}
	scope, round, ok := c.resolveTarget(e.MessageID)
	if !ok {
		return
	}

	// Closed round: a late reaction would otherwise stick as a ghost
	// indicator, so remove it best-effort and stop.
	if !round.IsOpen() {
		c.removeReactionQuiet(e.ChannelID, e.MessageID, e.Emoji, e.UserID)
		return
	}

	contestantID, ok := round.ContestantForEmoji(e.Emoji)
	if !ok {
		c.removeReactionQuiet(e.ChannelID, e.MessageID, e.Emoji, e.UserID)
		return
	}
	amount, ok := round.StakeForEmoji(e.Emoji)
	if !ok {
		c.removeReactionQuiet(e.ChannelID, e.MessageID, e.Emoji, e.UserID)
		return
	}

	balance := c.ledger.Balance(e.UserID)
	if amount > balance {
		c.removeReactionQuiet(e.ChannelID, e.MessageID, e.Emoji, e.UserID)
		if _, err := c.msgr.SendEmbed(e.ChannelID, utils.InsufficientFundsEmbed(e.UserID, balance, amount)); err != nil {
			utils.BotLogf("REACTION", "failed to send insufficient funds notice: %v", err)
		}
		return
	}

	// A confirmed bet is changed only through the debounce path before its
	// reactions settle; a genuinely late conflicting reaction just gets the
	// user's other reactions swept so one marker remains.
	if _, exists := c.ledger.GetBet(scope, e.UserID); exists {
		c.enforceSingleReaction(round, e.ChannelID, e.MessageID, e.UserID, e.Emoji)
		return
	}

	contestantName, ok := round.ContestantName(contestantID)
	if !ok {
		c.removeReactionQuiet(e.ChannelID, e.MessageID, e.Emoji, e.UserID)
		return
	}

	c.bufferPending(&pendingBet{
		event:          e,
		scope:          scope,
		round:          round,
		contestantID:   contestantID,
		contestantName: contestantName,
		amount:         amount,
	})
}

// bufferPending overwrites the user's pending entry and restarts both
// finalize timers. Cancelling the old primary timer is always paired with
// installing the replacement entry, so a timer handle never outlives its
// pending data.
func (c *ReactionCog) bufferPending(pb *pendingBet) {
	key := betKey{pb.scope, pb.event.UserID}

	c.mu.Lock()
	if t, ok := c.primary[key]; ok {
		t.Stop()
	}
	if t, ok := c.backup[key]; ok {
		t.Stop()
	}
	c.pending[key] = pb
	c.primary[key] = time.AfterFunc(c.primaryDelay, func() { c.finalize(key) })
	c.backup[key] = time.AfterFunc(c.backupDelay, func() { c.finalize(key) })
	c.mu.Unlock()

	utils.Log.Debug("reaction buffered",
		zap.String("user", pb.event.UserID),
		zap.String("scope", pb.scope),
		zap.String("emoji", pb.event.Emoji),
		zap.String("contestant", pb.contestantID))
}

// finalize turns the pending entry into a confirmed bet. Both the primary
// and the backup timer land here; whichever finds the entry present wins
// it by removing it, making a second finalize a no-op.
func (c *ReactionCog) finalize(key betKey) {
	c.mu.Lock()
	pb, ok := c.pending[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	if t, ok := c.primary[key]; ok {
		t.Stop()
		delete(c.primary, key)
	}
	if t, ok := c.backup[key]; ok {
		t.Stop()
		delete(c.backup, key)
	}
	c.mu.Unlock()

	e := pb.event

	// The round may have locked while the entry was pending.
	if !pb.round.IsOpen() {
		c.removeReactionQuiet(e.ChannelID, e.MessageID, e.Emoji, e.UserID)
		return
	}

	// A bet placed through another path (manual command) during the window
	// takes precedence; drop the pending entry and its reaction.
	if _, exists := c.ledger.GetBet(pb.scope, key.userID); exists {
		c.removeReactionQuiet(e.ChannelID, e.MessageID, e.Emoji, e.UserID)
		return
	}

	if !c.ledger.Debit(key.userID, pb.amount) {
		// Balance shrank since the router check. Clean up every reaction,
		// including the final one, and explain.
		c.removeAllBettingReactions(pb.round, e.ChannelID, e.MessageID, e.UserID)
		balance := c.ledger.Balance(key.userID)
		if _, err := c.msgr.SendEmbed(e.ChannelID, utils.InsufficientFundsEmbed(key.userID, balance, pb.amount)); err != nil {
			utils.BotLogf("REACTION", "failed to send insufficient funds notice: %v", err)
		}
		return
	}

	c.ledger.SetBet(pb.scope, key.userID, utils.Bet{
		Amount: pb.amount,
		Choice: pb.contestantName,
		Emoji:  e.Emoji,
	})

	c.enforceSingleReaction(pb.round, e.ChannelID, e.MessageID, key.userID, e.Emoji)
	c.sched.ScheduleUpdate(utils.UpdateIDForScope(pb.scope))

	utils.ReactionBetsPlaced.WithLabelValues(pb.contestantID).Inc()
	utils.Log.Info("reaction bet placed",
		zap.String("user", key.userID),
		zap.String("scope", pb.scope),
		zap.Int64("amount", pb.amount),
		zap.String("contestant", pb.contestantID))
}

// HandleReactionRemove routes one reaction-removal event. Bot-initiated
// removals are consumed here; genuine ones cancel a matching confirmed
// bet and refund the stake.
func (c *ReactionCog) HandleReactionRemove(e ReactionEvent) {
	if c.isSelf(e.UserID) {
		return
	}

	if c.removals.Consume(e.MessageID, e.UserID, e.Emoji) {
		utils.ProgrammaticRemovalsSuppressed.Inc()
		return
	}

	scope, round, ok := c.resolveTarget(e.MessageID)
	if !ok {
		return
	}
	if !round.IsOpen() {
		return
	}
	contestantID, ok := round.ContestantForEmoji(e.Emoji)
	if !ok {
		return
	}
	contestantName, ok := round.ContestantName(contestantID)
	if !ok {
		return
	}

	bet, ok := c.ledger.GetBet(scope, e.UserID)
	if !ok || bet.Emoji != e.Emoji || bet.Choice != contestantName {
		return
	}

	c.ledger.Credit(e.UserID, bet.Amount)
	c.ledger.RemoveBet(scope, e.UserID)
	c.sched.ScheduleUpdate(utils.UpdateIDForScope(scope))

	utils.ReactionBetsRemoved.WithLabelValues(contestantID).Inc()
	utils.Log.Info("reaction bet cancelled",
		zap.String("user", e.UserID),
		zap.String("scope", scope),
		zap.Int64("refund", bet.Amount))
}

// CancelPending drops one user's pending entry and timers without placing
// a bet.
func (c *ReactionCog) CancelPending(scope, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked(betKey{scope, userID})
}

// CancelScope drops every pending entry and timer in one scope. Called
// when the global round or a session is settled, so a buffered reaction
// can never finalize into a round that no longer exists.
func (c *ReactionCog) CancelScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.pending {
		if key.scope == scope {
			c.dropLocked(key)
		}
	}
	for key := range c.primary {
		if key.scope == scope {
			c.dropLocked(key)
		}
	}
}

func (c *ReactionCog) dropLocked(key betKey) {
	delete(c.pending, key)
	if t, ok := c.primary[key]; ok {
		t.Stop()
		delete(c.primary, key)
	}
	if t, ok := c.backup[key]; ok {
		t.Stop()
		delete(c.backup, key)
	}
}

// Stop cancels every timer and clears all pending state.
func (c *ReactionCog) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, t := range c.primary {
		t.Stop()
		delete(c.primary, key)
	}
	for key, t := range c.backup {
		t.Stop()
		delete(c.backup, key)
	}
	c.pending = make(map[betKey]*pendingBet)
}

// removeReactionQuiet issues one bot-initiated removal, marking it first
// so the resulting event is suppressed. Not-found and forbidden errors are
// swallowed; the marker is withdrawn whenever the call fails so it cannot
// mask a later genuine removal.
func (c *ReactionCog) removeReactionQuiet(channelID, messageID, emoji, userID string) {
	c.removals.Mark(messageID, userID, emoji)
	if err := c.msgr.RemoveReaction(channelID, messageID, emoji, userID); err != nil {
		c.removals.Unmark(messageID, userID, emoji)
		if !utils.IsNotFound(err) && !utils.IsForbidden(err) {
			utils.BotLogf("REACTION", "failed to remove reaction %s for user %s: %v", emoji, userID, err)
		}
	}
}

// enforceSingleReaction sweeps every betting reaction the user may hold on
// the message except keepEmoji. One failed removal never stops the rest of
// the sweep.
func (c *ReactionCog) enforceSingleReaction(round *utils.RoundState, channelID, messageID, userID, keepEmoji string) {
	for _, emoji := range round.BettingEmojis() {
		if emoji == keepEmoji {
			continue
		}
		c.removeReactionQuiet(channelID, messageID, emoji, userID)
	}
}

// removeAllBettingReactions sweeps every betting reaction the user may
// hold, the kept one included (failed-finalize path).
func (c *ReactionCog) removeAllBettingReactions(round *utils.RoundState, channelID, messageID, userID string) {
	for _, emoji := range round.BettingEmojis() {
		c.removeReactionQuiet(channelID, messageID, emoji, userID)
	}
}

// pendingCount reports buffered entries; used by tests and the shutdown
// path.
func (c *ReactionCog) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
