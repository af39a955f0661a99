package utils

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ContestantEmojis indexes display emojis by contestant id.
var ContestantEmojis = map[string]string{
	"1": Contestant1Emoji,
	"2": Contestant2Emoji,
}

// progressBar renders a 10-block proportion bar.
func progressBar(amount, total int64) string {
	const barLength = 10
	if total <= 0 {
		return strings.Repeat("░", barLength)
	}
	blocks := int((amount*barLength + total - 1) / total)
	if blocks > barLength {
		blocks = barLength
	}
	return strings.Repeat("▓", blocks) + strings.Repeat("░", barLength-blocks)
}

// timerDisplay renders the countdown line for the live embed.
func timerDisplay(remaining, total time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	secs := int(remaining.Seconds())
	icon := "⏰"
	switch {
	case secs <= 30:
		icon = "🚨"
	case secs <= 60:
		icon = "⚠️"
	}
	elapsed := total - remaining
	bar := strings.Repeat("░", 10)
	if total > 0 {
		blocks := int(elapsed * 10 / total)
		if blocks > 10 {
			blocks = 10
		}
		bar = strings.Repeat("▓", blocks) + strings.Repeat("░", 10-blocks)
	}
	return fmt.Sprintf("%s **%02d:%02d** remaining  [%s]", icon, secs/60, secs%60, bar)
}

// betSummary formats the per-contestant bet breakdown.
func betSummary(contestants map[string]string, bets map[string]Bet, userNames map[string]string) string {
	var b strings.Builder

	var totalPot int64
	for _, bet := range bets {
		totalPot += bet.Amount
	}
	if totalPot > 0 {
		fmt.Fprintf(&b, "💰 **%d** coins total\n\n", totalPot)
	}

	ids := make([]string, 0, len(contestants))
	for id := range contestants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		name := contestants[id]

		type entry struct {
			userID string
			bet    Bet
		}
		var entries []entry
		var contestantTotal int64
		for userID, bet := range bets {
			if bet.Choice == name {
				entries = append(entries, entry{userID, bet})
				contestantTotal += bet.Amount
			}
		}

		pct := int64(0)
		if totalPot > 0 {
			pct = contestantTotal * 100 / totalPot
		}
		fmt.Fprintf(&b, "%s **%s** (%d%%) %s `%d` coins\n",
			ContestantEmojis[id], name, pct, progressBar(contestantTotal, totalPot), contestantTotal)

		if len(entries) > 0 {
			avg := contestantTotal / int64(len(entries))
			plural := "s"
			if len(entries) == 1 {
				plural = ""
			}
			fmt.Fprintf(&b, "   👥 %d bet%s  •  💵 Avg: `%d`\n", len(entries), plural, avg)

			sort.Slice(entries, func(i, j int) bool { return entries[i].bet.Amount > entries[j].bet.Amount })
			shown := entries
			if len(shown) > 3 {
				shown = shown[:3]
			}
			for _, e := range shown {
				name := userNames[e.userID]
				if name == "" {
					name = fmt.Sprintf("Unknown User (%s)", e.userID)
				}
				fmt.Fprintf(&b, "  •  **%s** `%d`\n", name, e.bet.Amount)
			}
			if len(entries) > 3 {
				fmt.Fprintf(&b, "  •  *and %d more...*\n", len(entries)-3)
			}
		}
		b.WriteString("\n")
	}

	if totalPot == 0 {
		b.WriteString("No bets placed yet.\n")
	}
	return b.String()
}

// BuildLiveEmbed renders the live round status embed.
func BuildLiveEmbed(round *RoundState, ledger *Ledger, scope string, userNames map[string]string) *discordgo.MessageEmbed {
	contestants := round.Contestants()
	bets := ledger.Bets(scope)

	var desc strings.Builder
	desc.WriteString(betSummary(contestants, bets, userNames))

	if remaining, ok := round.TimerRemaining(); ok && round.IsOpen() {
		desc.WriteString("\n" + timerDisplay(remaining, BetTimerDuration) + "\n")
	}

	title := TitleLiveBettingRound
	color := ColorGold
	if round.IsLocked() {
		title = TitleBetsLocked
		color = ColorDarkOrange
		desc.WriteString("\n" + MsgBetLockedNoNewBets)
	} else if round.IsOpen() {
		desc.WriteString("\nReact with a stake emoji to bet instantly, or use `/bet`.")
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: desc.String(),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// BuildLockedEmbed renders the terminal embed posted immediately on lock.
func BuildLockedEmbed(round *RoundState, ledger *Ledger, scope string, userNames map[string]string, summary string) *discordgo.MessageEmbed {
	embed := BuildLiveEmbed(round, ledger, scope, userNames)
	embed.Title = TitleBetsLocked
	embed.Color = ColorDarkOrange
	if summary != "" {
		embed.Description = summary + "\n\n" + embed.Description
	}
	return embed
}

// BuildWinnerEmbed renders the payout embed after a winner declaration.
func BuildWinnerEmbed(winnerName string, results RoundResults, userNames map[string]string) *discordgo.MessageEmbed {
	var desc strings.Builder
	fmt.Fprintf(&desc, "🎉 **%s** wins!\n\n", winnerName)
	fmt.Fprintf(&desc, "💰 Total pot: `%d` coins\n", results.TotalPot)

	if results.WinningPot == 0 {
		desc.WriteString("\nNobody bet on the winner. The pot is lost!")
		return &discordgo.MessageEmbed{
			Title:       TitlePotLost,
			Description: desc.String(),
			Color:       ColorDarkGray,
			Timestamp:   time.Now().Format(time.RFC3339),
		}
	}

	type payout struct {
		userID   string
		winnings int64
	}
	var winners []payout
	for userID, result := range results.UserResults {
		if result.Won {
			winners = append(winners, payout{userID, result.Winnings})
		}
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].winnings > winners[j].winnings })

	desc.WriteString("\n**Winners:**\n")
	for _, w := range winners {
		name := userNames[w.userID]
		if name == "" {
			name = fmt.Sprintf("Unknown User (%s)", w.userID)
		}
		fmt.Fprintf(&desc, "• **%s** +`%d` coins\n", name, w.winnings)
	}

	return &discordgo.MessageEmbed{
		Title:       TitleWinnerDeclared,
		Description: desc.String(),
		Color:       ColorSuccess,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// SimpleEmbed builds a one-shot titled embed.
func SimpleEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
}

// InsufficientFundsEmbed explains a failed stake with the exact shortfall.
func InsufficientFundsEmbed(userID string, balance, amount int64) *discordgo.MessageEmbed {
	return SimpleEmbed(
		TitleInsufficientFunds,
		fmt.Sprintf("<@%s>, insufficient balance! You need `%d` coins but only have `%d` (short `%d`).",
			userID, amount, balance, amount-balance),
		ColorError,
	)
}
