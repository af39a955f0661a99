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

// BettingCog owns the global round lifecycle commands and the live
// message refresh path the scheduler drives.
type BettingCog struct {
	session   *discordgo.Session
	msgr      utils.Messenger
	ledger    *utils.Ledger
	round     *utils.RoundState
	sessions  *utils.SessionManager
	sched     *utils.LiveMessageScheduler
	reactions *ReactionCog

	mu           sync.Mutex
	betChannelID string
	timerCancel  chan struct{}
}

// NewBettingCog wires the command layer.
func NewBettingCog(session *discordgo.Session, msgr utils.Messenger, ledger *utils.Ledger, round *utils.RoundState, sessions *utils.SessionManager, sched *utils.LiveMessageScheduler, reactions *ReactionCog) *BettingCog {
	return &BettingCog{
		session:   session,
		msgr:      msgr,
		ledger:    ledger,
		round:     round,
		sessions:  sessions,
		sched:     sched,
		reactions: reactions,
	}
}

// RegisterBettingCommands returns the application command definitions for
// the betting lifecycle.
func RegisterBettingCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "openbet",
			Description: "Start a new betting round between two contestants",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "contestant1", Description: "First contestant", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "contestant2", Description: "Second contestant", Required: true},
			},
		},
		{
			Name:        "lockbets",
			Description: "Lock the current round so no new bets can be placed",
		},
		{
			Name:        "declarewinner",
			Description: "Declare the winner of the locked round and pay out",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "winner", Description: "Winning contestant", Required: true},
			},
		},
		{
			Name:        "closebet",
			Description: "Lock, declare the winner and pay out in one step",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "winner", Description: "Winning contestant", Required: true},
			},
		},
		{
			Name:        "bet",
			Description: "Place or change a bet on a contestant",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "contestant", Description: "Contestant to bet on", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Stake in coins", Required: true},
			},
		},
		{
			Name:        "betall",
			Description: "Bet your whole balance on a contestant",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "contestant", Description: "Contestant to bet on", Required: true},
			},
		},
		{
			Name:        "mybet",
			Description: "Show your current bet",
		},
		{
			Name:        "bettinginfo",
			Description: "Show the state of the current betting round",
		},
		{
			Name:        "setbetchannel",
			Description: "Use this channel for live betting messages",
		},
		{
			Name:        "togglebettimer",
			Description: "Toggle the auto-lock betting timer",
		},
	}
}

// HandleCommand dispatches one betting slash command.
func (b *BettingCog) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "openbet":
		b.handleOpenBet(s, i)
	case "lockbets":
		b.handleLockBets(s, i)
	case "declarewinner":
		b.handleDeclareWinner(s, i)
	case "closebet":
		b.handleCloseBet(s, i)
	case "bet":
		b.handleBet(s, i)
	case "betall":
		b.handleBetAll(s, i)
	case "mybet":
		b.handleMyBet(s, i)
	case "bettinginfo":
		b.handleBettingInfo(s, i)
	case "setbetchannel":
		b.handleSetBetChannel(s, i)
	case "togglebettimer":
		b.handleToggleBetTimer(s, i)
	}
}

func (b *BettingCog) handleOpenBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasBetBoyRole(s, i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need the betboy role to manage betting rounds.", utils.ColorError), true)
		return
	}
	if b.round.IsOpen() || b.round.IsLocked() {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgBetAlreadyOpen, utils.ColorWarning), true)
		return
	}

	opts := commandOptions(i)
	name1 := strings.TrimSpace(opts["contestant1"].StringValue())
	name2 := strings.TrimSpace(opts["contestant2"].StringValue())
	if name1 == "" || name2 == "" || strings.EqualFold(name1, name2) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "Provide two distinct contestant names.", utils.ColorError), true)
		return
	}

	b.round.Open(name1, name2)
	b.ledger.ClearBets(utils.LegacyScope)

	channelID := b.liveChannel(i.ChannelID)
	embed := utils.BuildLiveEmbed(b.round, b.ledger, utils.LegacyScope, nil)
	messageID, err := b.msgr.SendEmbed(channelID, embed)
	if err != nil {
		b.round.Reset()
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "Failed to send the live betting message.", utils.ColorError), true)
		return
	}
	b.round.SetLiveMessage(utils.MessageRef{MessageID: messageID, ChannelID: channelID})

	// Seed the stake markers in the background; reaction adds are
	// rate-limited so this takes a few seconds.
	go seedOptionMarkers(b.msgr, channelID, messageID)

	if b.round.TimerEnabled() {
		b.startBetTimer()
	}

	respondEmbed(s, i, utils.SimpleEmbed(
		utils.TitleBettingRoundOpened,
		fmt.Sprintf("%s **%s** vs %s **%s** — place your bets!", utils.Contestant1Emoji, name1, utils.Contestant2Emoji, name2),
		utils.ColorSuccess), false)

	utils.Log.Info("betting round opened", zap.String("contestant1", name1), zap.String("contestant2", name2))
}

// seedOptionMarkers adds the stake emojis and the separator to a fresh
// live message, spaced out to stay under the reaction rate limit.
func seedOptionMarkers(msgr utils.Messenger, channelID, messageID string) {
	markers := make([]string, 0, len(utils.Contestant1Emojis)+len(utils.Contestant2Emojis)+1)
	markers = append(markers, utils.Contestant1Emojis...)
	markers = append(markers, utils.SeparatorEmoji)
	markers = append(markers, utils.Contestant2Emojis...)

	for idx, emoji := range markers {
		if err := utils.AddReactionWithRetry(msgr, channelID, messageID, emoji, 2); err != nil {
			continue
		}
		if idx < len(markers)-1 {
			time.Sleep(300 * time.Millisecond)
		}
	}
}

func (b *BettingCog) handleLockBets(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasBetBoyRole(s, i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need the betboy role to manage betting rounds.", utils.ColorError), true)
		return
	}
	if !b.round.IsOpen() {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgNoActiveBet, utils.ColorWarning), true)
		return
	}

	b.lockRound(utils.MsgBettingLockedNotice)
	respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBetsLocked, utils.MsgBettingLockedNotice, utils.ColorDarkOrange), false)
}

// lockRound locks the round, performs one immediate refresh with the
// locked embed, and arms the suppression window so a trailing batched
// update cannot overwrite it.
func (b *BettingCog) lockRound(summary string) {
	b.stopBetTimer()
	b.round.Lock()

	names := userDisplayNames(b.session, b.ledger.Bets(utils.LegacyScope))
	embed := utils.BuildLockedEmbed(b.round, b.ledger, utils.LegacyScope, names, summary)
	editTrackedMessages(b.msgr, b.round, embed)

	b.sched.SuppressFor(utils.LiveUpdateSuppression, utils.DefaultUpdateID)

	// Drop the stake markers so the locked message stops inviting clicks.
	live := b.round.LiveMessage()
	if live.MessageID != "" {
		if err := b.msgr.RemoveAllReactions(live.ChannelID, live.MessageID); err != nil {
			utils.BotLogf("BETTING", "failed to clear reactions on lock: %v", err)
		}
	}

	utils.Log.Info("betting round locked")
}

func (b *BettingCog) handleDeclareWinner(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasBetBoyRole(s, i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need the betboy role to manage betting rounds.", utils.ColorError), true)
		return
	}
	if !b.round.IsLocked() {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "Lock the bets before declaring a winner.", utils.ColorWarning), true)
		return
	}
	b.declareWinner(s, i, commandOptions(i)["winner"].StringValue())
}

func (b *BettingCog) handleCloseBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasBetBoyRole(s, i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need the betboy role to manage betting rounds.", utils.ColorError), true)
		return
	}
	if !b.round.IsOpen() && !b.round.IsLocked() {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgNoBetsToClose, utils.ColorWarning), true)
		return
	}
	if b.round.IsOpen() {
		b.lockRound(utils.MsgBettingLockedNotice)
	}
	b.declareWinner(s, i, commandOptions(i)["winner"].StringValue())
}

func (b *BettingCog) declareWinner(s *discordgo.Session, i *discordgo.InteractionCreate, winnerArg string) {
	winnerName, ok := resolveContestant(b.round, winnerArg)
	if !ok {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError,
			fmt.Sprintf("Unknown contestant: **%s**", winnerArg), utils.ColorError), true)
		return
	}
	respondEmbed(s, i, b.settleRound(winnerName), false)
}

// settleRound pays the global round out, shows the terminal embed and
// tears the round down, dropping any still-buffered reaction bets so
// they cannot finalize into the next round.
func (b *BettingCog) settleRound(winnerName string) *discordgo.MessageEmbed {
	results := b.ledger.CalculateRoundResults(utils.LegacyScope, winnerName)
	b.ledger.PayOutResults(results)

	names := userDisplayNames(b.session, b.ledger.Bets(utils.LegacyScope))
	embed := utils.BuildWinnerEmbed(winnerName, results, names)

	// Immediate refresh so the terminal state is visible right away; the
	// suppression window keeps a trailing batched update from overwriting it.
	editTrackedMessages(b.msgr, b.round, embed)
	b.sched.SuppressFor(utils.LiveUpdateSuppression, utils.DefaultUpdateID)

	b.reactions.CancelScope(utils.LegacyScope)
	b.ledger.ClearBets(utils.LegacyScope)
	b.round.Reset()

	utils.Log.Info("winner declared",
		zap.String("winner", winnerName),
		zap.Int64("total_pot", results.TotalPot),
		zap.Int64("winning_pot", results.WinningPot))
	return embed
}

func (b *BettingCog) handleBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := commandOptions(i)
	b.placeBet(s, i, opts["contestant"].StringValue(), opts["amount"].IntValue(), false)
}

func (b *BettingCog) handleBetAll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := commandOptions(i)
	b.placeBet(s, i, opts["contestant"].StringValue(), 0, true)
}

func (b *BettingCog) placeBet(s *discordgo.Session, i *discordgo.InteractionCreate, contestantArg string, amount int64, allIn bool) {
	userID := interactionUserID(i)
	bet, errEmbed := applyBet(b.ledger, b.round, utils.LegacyScope, userID, contestantArg, amount, allIn)
	if errEmbed != nil {
		respondEmbed(s, i, errEmbed, true)
		return
	}
	b.sched.ScheduleUpdate(utils.DefaultUpdateID)

	respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBetPlaced,
		fmt.Sprintf("<@%s>, your bet of `%d` coins on **%s** has been placed!", userID, bet.Amount, bet.Choice),
		utils.ColorSuccess), false)
}

// applyBet validates and records one manual bet in a scope. An existing
// bet is refunded first so the balance check, and an all-in stake, both
// see the user's full funds; if the new stake then fails the old bet is
// put back. Returns the placed bet, or an error embed to show the user.
func applyBet(ledger *utils.Ledger, round *utils.RoundState, scope, userID, contestantArg string, amount int64, allIn bool) (utils.Bet, *discordgo.MessageEmbed) {
	if !round.IsOpen() {
		msg := utils.MsgNoActiveBet
		if round.IsLocked() {
			msg = utils.MsgBetLocked
		}
		return utils.Bet{}, utils.SimpleEmbed(utils.TitleBettingError, msg, utils.ColorWarning)
	}
	if !allIn && amount <= 0 {
		return utils.Bet{}, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgAmountPositive, utils.ColorError)
	}
	contestantName, ok := resolveContestant(round, contestantArg)
	if !ok {
		return utils.Bet{}, utils.SimpleEmbed(utils.TitleBettingError,
			fmt.Sprintf("Unknown contestant: **%s**", contestantArg), utils.ColorError)
	}

	old, hadOld := ledger.RemoveBet(scope, userID)
	if hadOld {
		ledger.Credit(userID, old.Amount)
	}

	if allIn {
		amount = ledger.Balance(userID)
		if amount <= 0 {
			restoreBet(ledger, scope, userID, old, hadOld)
			return utils.Bet{}, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgAmountPositive, utils.ColorError)
		}
	}

	if !ledger.Debit(userID, amount) {
		errEmbed := utils.InsufficientFundsEmbed(userID, ledger.Balance(userID), amount)
		restoreBet(ledger, scope, userID, old, hadOld)
		return utils.Bet{}, errEmbed
	}

	bet := utils.Bet{Amount: amount, Choice: contestantName}
	ledger.SetBet(scope, userID, bet)
	return bet, nil
}

// restoreBet re-places a refunded bet after a failed change attempt.
func restoreBet(ledger *utils.Ledger, scope, userID string, old utils.Bet, hadOld bool) {
	if !hadOld {
		return
	}
	if ledger.Debit(userID, old.Amount) {
		ledger.SetBet(scope, userID, old)
	}
}

func (b *BettingCog) handleMyBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	bet, ok := b.ledger.GetBet(utils.LegacyScope, userID)
	if !ok {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleYourBalance, "You have no active bet.", utils.ColorInfo), true)
		return
	}
	respondEmbed(s, i, utils.SimpleEmbed(utils.TitleYourBalance,
		fmt.Sprintf("You bet `%d` coins on **%s**.", bet.Amount, bet.Choice), utils.ColorInfo), true)
}

func (b *BettingCog) handleBettingInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.round.IsOpen() && !b.round.IsLocked() {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgNoActiveBet, utils.ColorInfo), true)
		return
	}
	names := userDisplayNames(b.session, b.ledger.Bets(utils.LegacyScope))
	respondEmbed(s, i, utils.BuildLiveEmbed(b.round, b.ledger, utils.LegacyScope, names), false)
}

func (b *BettingCog) handleSetBetChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasManageServer(i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need Manage Server to change bot settings.", utils.ColorError), true)
		return
	}
	b.mu.Lock()
	b.betChannelID = i.ChannelID
	b.mu.Unlock()
	respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingChannelSet,
		fmt.Sprintf("Live betting messages will be posted in <#%s>.", i.ChannelID), utils.ColorSuccess), false)
}

func (b *BettingCog) handleToggleBetTimer(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !utils.HasManageServer(i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need Manage Server to change bot settings.", utils.ColorError), true)
		return
	}
	enabled := b.round.ToggleTimer()
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	respondEmbed(s, i, utils.SimpleEmbed("✅ Timer Toggled",
		fmt.Sprintf("The auto-lock betting timer is now **%s**.", state), utils.ColorSuccess), false)
}

// RefreshLiveMessages is the scheduler's flush target. It reloads
// authoritative state per update id and performs one edit per tracked
// live message, global and session-scoped alike.
func (b *BettingCog) RefreshLiveMessages(ids []string) error {
	for _, id := range ids {
		if id == utils.DefaultUpdateID {
			if !b.round.IsOpen() && !b.round.IsLocked() {
				continue
			}
			names := userDisplayNames(b.session, b.ledger.Bets(utils.LegacyScope))
			editTrackedMessages(b.msgr, b.round, utils.BuildLiveEmbed(b.round, b.ledger, utils.LegacyScope, names))
			continue
		}

		sess, ok := b.sessions.Get(id)
		if !ok {
			continue
		}
		names := userDisplayNames(b.session, b.ledger.Bets(sess.ID))
		editTrackedMessages(b.msgr, sess.Round, utils.BuildLiveEmbed(sess.Round, b.ledger, sess.ID, names))
	}
	return nil
}

// editTrackedMessages edits a round's main and secondary live messages.
// A deleted message drops its reference so later refreshes stop targeting
// it; other failures are logged and skipped.
func editTrackedMessages(msgr utils.Messenger, round *utils.RoundState, embed *discordgo.MessageEmbed) {
	for _, ref := range []utils.MessageRef{round.LiveMessage(), round.SecondaryLiveMessage()} {
		if ref.MessageID == "" {
			continue
		}
		if err := msgr.EditEmbed(ref.ChannelID, ref.MessageID, embed); err != nil {
			if utils.IsNotFound(err) {
				utils.BotLogf("BETTING", "live message %s gone, clearing reference", ref.MessageID)
				round.ClearLiveMessage(ref.MessageID)
				continue
			}
			utils.BotLogf("BETTING", "failed to edit live message %s: %v", ref.MessageID, err)
		}
	}
}

// userDisplayNames resolves display names for everyone with a bet. The
// session may be nil in unit wiring; unknown users get a placeholder.
func userDisplayNames(s *discordgo.Session, bets map[string]utils.Bet) map[string]string {
	names := make(map[string]string, len(bets))
	for userID := range bets {
		if s == nil {
			names[userID] = fmt.Sprintf("Unknown User (%s)", userID)
			continue
		}
		user, err := s.User(userID)
		if err != nil {
			names[userID] = fmt.Sprintf("Unknown User (%s)", userID)
			continue
		}
		names[userID] = user.Username
	}
	return names
}

func (b *BettingCog) liveChannel(fallback string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.betChannelID != "" {
		return b.betChannelID
	}
	return fallback
}

// startBetTimer arms the auto-lock countdown and refreshes the live
// message through the scheduler while it runs.
func (b *BettingCog) startBetTimer() {
	b.stopBetTimer()
	b.round.StartTimer(utils.BetTimerDuration)

	cancel := make(chan struct{})
	b.mu.Lock()
	b.timerCancel = cancel
	b.mu.Unlock()

	go func() {
		ticker := time.NewTicker(utils.BetTimerUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				if !b.round.IsOpen() {
					return
				}
				remaining, ok := b.round.TimerRemaining()
				if !ok {
					return
				}
				if remaining <= 0 {
					b.lockRound(utils.MsgTimerExpiredNotice)
					return
				}
				b.sched.ScheduleUpdate(utils.DefaultUpdateID)
			}
		}
	}()
}

func (b *BettingCog) stopBetTimer() {
	b.mu.Lock()
	if b.timerCancel != nil {
		close(b.timerCancel)
		b.timerCancel = nil
	}
	b.mu.Unlock()
}

// resolveContestant matches a user-supplied name against a round's
// contestants, case-insensitively and by unambiguous prefix.
func resolveContestant(round *utils.RoundState, arg string) (string, bool) {
	arg = strings.TrimSpace(strings.ToLower(arg))
	if arg == "" {
		return "", false
	}
	var prefixMatch string
	for _, name := range round.Contestants() {
		lower := strings.ToLower(name)
		if lower == arg {
			return name, true
		}
		if strings.HasPrefix(lower, arg) {
			if prefixMatch != "" && prefixMatch != name {
				return "", false
			}
			prefixMatch = name
		}
	}
	return prefixMatch, prefixMatch != ""
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}
	return opts
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		utils.BotLogf("DISCORD_API", "InteractionRespond failed: %v", err)
	}
}
