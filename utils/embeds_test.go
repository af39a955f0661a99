package utils

import (
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	if got := progressBar(0, 0); got != "░░░░░░░░░░" {
		t.Fatalf("empty pot: got %q", got)
	}
	if got := progressBar(500, 1000); got != "▓▓▓▓▓░░░░░" {
		t.Fatalf("half pot: got %q", got)
	}
	if got := progressBar(1000, 1000); got != "▓▓▓▓▓▓▓▓▓▓" {
		t.Fatalf("full pot: got %q", got)
	}
}

func TestBuildLiveEmbedStates(t *testing.T) {
	ledger := NewLedger(StartingBalance)
	round := NewRoundState()
	round.Open("Alpha", "Beta")

	embed := BuildLiveEmbed(round, ledger, LegacyScope, nil)
	if embed.Title != TitleLiveBettingRound {
		t.Fatalf("open round title: got %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "No bets placed yet.") {
		t.Fatal("empty round should say no bets were placed")
	}

	ledger.SetBet(LegacyScope, "u1", Bet{Amount: 750, Choice: "Alpha", Emoji: "💪"})
	round.Lock()
	embed = BuildLiveEmbed(round, ledger, LegacyScope, map[string]string{"u1": "Gambler"})
	if embed.Title != TitleBetsLocked || embed.Color != ColorDarkOrange {
		t.Fatalf("locked round styling: got %q / %#x", embed.Title, embed.Color)
	}
	if !strings.Contains(embed.Description, "Gambler") {
		t.Fatal("bettor name should appear in the breakdown")
	}
	if !strings.Contains(embed.Description, "**750** coins total") {
		t.Fatalf("pot total missing from description:\n%s", embed.Description)
	}
}

func TestBuildWinnerEmbedPotLost(t *testing.T) {
	results := RoundResults{
		TotalPot:    400,
		WinningPot:  0,
		UserResults: map[string]UserResult{"a": {Choice: "Alpha", Amount: 400}},
	}
	embed := BuildWinnerEmbed("Beta", results, nil)
	if embed.Title != TitlePotLost {
		t.Fatalf("expected pot lost title, got %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "The pot is lost!") {
		t.Fatal("pot lost notice missing")
	}
}

func TestInsufficientFundsEmbedShowsShortfall(t *testing.T) {
	embed := InsufficientFundsEmbed("u1", 300, 1000)
	for _, want := range []string{"`1000`", "`300`", "`700`"} {
		if !strings.Contains(embed.Description, want) {
			t.Fatalf("description missing %s:\n%s", want, embed.Description)
		}
	}
}
