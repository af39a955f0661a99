package cogs

import (
	"testing"
	"time"

	"betbot-go/utils"

	"github.com/bwmarrin/discordgo"
)

func newTestBettingCog(t *testing.T) (*BettingCog, *fakeMessenger, *utils.Ledger, *utils.RoundState, *ReactionCog) {
	t.Helper()

	msgr := &fakeMessenger{}
	ledger := utils.NewLedger(utils.StartingBalance)
	round := utils.NewRoundState()
	sessions := utils.NewSessionManager()

	sched := utils.NewLiveMessageScheduler(time.Hour)
	t.Cleanup(sched.Stop)

	reactions := NewReactionCog(msgr, ledger, round, sessions, sched)
	reactions.SetSelf(testBotID)
	t.Cleanup(reactions.Stop)

	b := NewBettingCog(nil, msgr, ledger, round, sessions, sched, reactions)
	return b, msgr, ledger, round, reactions
}

func TestResolveContestant(t *testing.T) {
	round := utils.NewRoundState()
	round.Open("Red Dragon", "Blue Phoenix")

	cases := []struct {
		arg  string
		want string
		ok   bool
	}{
		{"Red Dragon", "Red Dragon", true},
		{"red dragon", "Red Dragon", true},
		{"  BLUE PHOENIX  ", "Blue Phoenix", true},
		{"red", "Red Dragon", true},
		{"blu", "Blue Phoenix", true},
		{"green", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := resolveContestant(round, c.arg)
		if ok != c.ok || got != c.want {
			t.Errorf("resolveContestant(%q) = %q, %v; want %q, %v", c.arg, got, ok, c.want, c.ok)
		}
	}
}

func TestResolveContestantAmbiguousPrefix(t *testing.T) {
	round := utils.NewRoundState()
	round.Open("Blaze", "Blizzard")

	if _, ok := resolveContestant(round, "bl"); ok {
		t.Fatal("ambiguous prefix must not resolve")
	}
	if got, ok := resolveContestant(round, "bla"); !ok || got != "Blaze" {
		t.Fatalf("unambiguous prefix should resolve, got %q ok=%v", got, ok)
	}
}

func TestInteractionUserID(t *testing.T) {
	member := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "guild-user"}},
	}}
	if got := interactionUserID(member); got != "guild-user" {
		t.Fatalf("expected guild member id, got %q", got)
	}

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "dm-user"},
	}}
	if got := interactionUserID(dm); got != "dm-user" {
		t.Fatalf("expected DM user id, got %q", got)
	}

	if got := interactionUserID(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestApplyBetPlacesAndChangesBet(t *testing.T) {
	ledger := utils.NewLedger(utils.StartingBalance)
	round := utils.NewRoundState()
	round.Open("Alpha", "Beta")

	bet, errEmbed := applyBet(ledger, round, utils.LegacyScope, "u1", "alpha", 600, false)
	if errEmbed != nil {
		t.Fatalf("unexpected error embed: %v", errEmbed.Description)
	}
	if bet.Amount != 600 || bet.Choice != "Alpha" {
		t.Fatalf("unexpected bet %+v", bet)
	}
	if got := ledger.Balance("u1"); got != utils.StartingBalance-600 {
		t.Fatalf("stake not debited, balance %d", got)
	}

	// Changing the bet refunds the old stake before debiting the new one.
	bet, errEmbed = applyBet(ledger, round, utils.LegacyScope, "u1", "beta", 900, false)
	if errEmbed != nil {
		t.Fatalf("unexpected error embed: %v", errEmbed.Description)
	}
	if bet.Choice != "Beta" || bet.Amount != 900 {
		t.Fatalf("unexpected changed bet %+v", bet)
	}
	if got := ledger.Balance("u1"); got != utils.StartingBalance-900 {
		t.Fatalf("old stake must be refunded on change, balance %d", got)
	}
}

func TestApplyBetAllInIncludesRefundedStake(t *testing.T) {
	ledger := utils.NewLedger(utils.StartingBalance)
	round := utils.NewRoundState()
	round.Open("Alpha", "Beta")

	if _, errEmbed := applyBet(ledger, round, utils.LegacyScope, "u1", "alpha", 600, false); errEmbed != nil {
		t.Fatalf("setup bet failed: %v", errEmbed.Description)
	}

	// All-in after an existing bet stakes the whole balance, the refunded
	// 600 included.
	bet, errEmbed := applyBet(ledger, round, utils.LegacyScope, "u1", "beta", 0, true)
	if errEmbed != nil {
		t.Fatalf("unexpected error embed: %v", errEmbed.Description)
	}
	if bet.Amount != utils.StartingBalance {
		t.Fatalf("all-in must include the refunded stake, got %d", bet.Amount)
	}
	if got := ledger.Balance("u1"); got != 0 {
		t.Fatalf("all-in should leave a zero balance, got %d", got)
	}
}

func TestApplyBetRestoresOldBetWhenDebitFails(t *testing.T) {
	ledger := utils.NewLedger(utils.StartingBalance)
	round := utils.NewRoundState()
	round.Open("Alpha", "Beta")

	if _, errEmbed := applyBet(ledger, round, utils.LegacyScope, "u1", "alpha", 600, false); errEmbed != nil {
		t.Fatalf("setup bet failed: %v", errEmbed.Description)
	}

	// More than balance + refunded stake: the change must fail and the old
	// bet come back untouched.
	_, errEmbed := applyBet(ledger, round, utils.LegacyScope, "u1", "beta", utils.StartingBalance+1, false)
	if errEmbed == nil {
		t.Fatal("expected an insufficient funds embed")
	}
	bet, ok := ledger.GetBet(utils.LegacyScope, "u1")
	if !ok || bet.Choice != "Alpha" || bet.Amount != 600 {
		t.Fatalf("old bet must be restored, got %+v ok=%v", bet, ok)
	}
	if got := ledger.Balance("u1"); got != utils.StartingBalance-600 {
		t.Fatalf("balance must match the restored bet, got %d", got)
	}
}

func TestApplyBetRejectsClosedAndLockedRounds(t *testing.T) {
	ledger := utils.NewLedger(utils.StartingBalance)
	round := utils.NewRoundState()

	if _, errEmbed := applyBet(ledger, round, utils.LegacyScope, "u1", "alpha", 100, false); errEmbed == nil {
		t.Fatal("closed round must reject bets")
	}

	round.Open("Alpha", "Beta")
	round.Lock()
	if _, errEmbed := applyBet(ledger, round, utils.LegacyScope, "u1", "alpha", 100, false); errEmbed == nil {
		t.Fatal("locked round must reject bets")
	}
	if got := ledger.Balance("u1"); got != utils.StartingBalance {
		t.Fatalf("rejected bets must not touch the balance, got %d", got)
	}
}

func TestLockRoundClearsReactionsThroughMessenger(t *testing.T) {
	b, msgr, _, round, _ := newTestBettingCog(t)
	round.Open("Alpha", "Beta")
	round.SetLiveMessage(utils.MessageRef{MessageID: testLiveMsg, ChannelID: testChannel})

	b.lockRound(utils.MsgBettingLockedNotice)

	if !round.IsLocked() {
		t.Fatal("round should be locked")
	}
	cleared := msgr.removedAllMessages()
	if len(cleared) != 1 || cleared[0] != testLiveMsg {
		t.Fatalf("expected one reaction clear on the live message, got %v", cleared)
	}
	edited := msgr.editedMessages()
	if len(edited) != 1 || edited[0] != testLiveMsg {
		t.Fatalf("expected the locked embed pushed immediately, got %v", edited)
	}
}

func TestSettleRoundDropsPendingReactionBets(t *testing.T) {
	b, _, ledger, round, reactions := newTestBettingCog(t)
	round.Open("Alpha", "Beta")
	round.SetLiveMessage(utils.MessageRef{MessageID: testLiveMsg, ChannelID: testChannel})
	reactions.primaryDelay = time.Hour
	reactions.backupDelay = time.Hour

	ledger.Debit("u1", 500)
	ledger.SetBet(utils.LegacyScope, "u1", utils.Bet{Amount: 500, Choice: "Alpha", Emoji: "💪"})
	reactions.HandleReactionAdd(addEvent("u2", "🌟"))
	if n := reactions.pendingCount(); n != 1 {
		t.Fatalf("expected a buffered entry before settlement, got %d", n)
	}

	round.Lock()
	b.settleRound("Alpha")

	if n := reactions.pendingCount(); n != 0 {
		t.Fatalf("settlement must drop buffered entries, got %d", n)
	}
	if round.IsOpen() || round.IsLocked() {
		t.Fatal("round should be fully reset")
	}
	if got := len(ledger.Bets(utils.LegacyScope)); got != 0 {
		t.Fatalf("bets should be cleared, got %d", got)
	}
	// Sole winner takes the whole pot back.
	if got := ledger.Balance("u1"); got != utils.StartingBalance {
		t.Fatalf("winner payout wrong, balance %d", got)
	}
	// The buffered entry never debited anything.
	if got := ledger.Balance("u2"); got != utils.StartingBalance {
		t.Fatalf("dropped pending entry must not cost anything, balance %d", got)
	}
}

func TestRefreshLiveMessagesCoversSessions(t *testing.T) {
	b, msgr, _, round, _ := newTestBettingCog(t)
	round.Open("Alpha", "Beta")
	round.SetLiveMessage(utils.MessageRef{MessageID: testLiveMsg, ChannelID: testChannel})

	sess, err := b.sessions.Open("east", "Gamma", "Delta")
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	sess.Round.SetLiveMessage(utils.MessageRef{MessageID: "sess-live-1", ChannelID: testChannel})

	if err := b.RefreshLiveMessages([]string{utils.DefaultUpdateID, "east", "gone"}); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	edited := msgr.editedMessages()
	if len(edited) != 2 {
		t.Fatalf("expected one edit per live message, got %v", edited)
	}
	seen := map[string]bool{}
	for _, id := range edited {
		seen[id] = true
	}
	if !seen[testLiveMsg] || !seen["sess-live-1"] {
		t.Fatalf("both live messages should be refreshed, got %v", edited)
	}
}
