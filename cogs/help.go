package cogs

import (
	"fmt"
	"strings"

	"betbot-go/utils"

	"github.com/bwmarrin/discordgo"
)

// HelpCog answers /help with a command reference and the reaction
// betting stake table.
type HelpCog struct{}

// NewHelpCog returns the help command handler.
func NewHelpCog() *HelpCog {
	return &HelpCog{}
}

// RegisterHelpCommands returns the help command definition.
func RegisterHelpCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "help", Description: "Show all commands and the reaction betting stakes"},
	}
}

// HandleCommand responds to /help, ephemerally so the channel stays clean.
func (c *HelpCog) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondEmbed(s, i, BuildHelpEmbed(), true)
}

// BuildHelpEmbed renders the command reference embed.
func BuildHelpEmbed() *discordgo.MessageEmbed {
	stakeLine := func(emojis []string) string {
		parts := make([]string, 0, len(emojis))
		for _, emoji := range emojis {
			parts = append(parts, fmt.Sprintf("%s `%d`", emoji, utils.ReactionBetAmounts[emoji]))
		}
		return strings.Join(parts, "  ")
	}

	return &discordgo.MessageEmbed{
		Title: utils.TitleHelp,
		Color: utils.BotColor,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "🎲 Betting Rounds",
				Value: "`/openbet` — start a round between two contestants\n" +
					"`/lockbets` — stop new bets\n" +
					"`/declarewinner` — pay the locked round out\n" +
					"`/closebet` — lock and pay out in one step\n" +
					"`/bettinginfo` — show the current round",
			},
			{
				Name: "💰 Placing Bets",
				Value: "`/bet` — bet an amount on a contestant\n" +
					"`/betall` — bet your whole balance\n" +
					"`/mybet` — show your current bet\n" +
					"`/balance` — show your coin balance\n" +
					"React to the live message with a stake emoji to bet instantly.",
			},
			{
				Name: "📋 Sessions",
				Value: "`/opensession` — open a named session alongside other rounds\n" +
					"`/sessionbet` — bet in a named session\n" +
					"`/locksession` `/declaresessionwinner` `/closesession` — session lifecycle\n" +
					"`/sessions` — list the active sessions",
			},
			{
				Name: "🛠️ Admin",
				Value: "`/give` `/take` `/setbal` — adjust balances (Manage Server)\n" +
					"`/setbetchannel` — pin live messages to this channel\n" +
					"`/togglebettimer` — toggle the auto-lock timer",
			},
			{
				Name: "⚡ Reaction Stakes",
				Value: fmt.Sprintf("%s %s\n%s %s",
					utils.Contestant1Emoji, stakeLine(utils.Contestant1Emojis),
					utils.Contestant2Emoji, stakeLine(utils.Contestant2Emojis)),
			},
		},
	}
}
