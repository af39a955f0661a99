package cogs

import (
	"fmt"

	"betbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// EconomyCog owns the coin management commands.
type EconomyCog struct {
	ledger *utils.Ledger
	round  *utils.RoundState
}

// NewEconomyCog wires the economy commands.
func NewEconomyCog(ledger *utils.Ledger, round *utils.RoundState) *EconomyCog {
	return &EconomyCog{ledger: ledger, round: round}
}

// RegisterEconomyCommands returns the application command definitions for
// the coin economy.
func RegisterEconomyCommands() []*discordgo.ApplicationCommand {
	userOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Target user", Required: true,
	}
	amountOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Amount of coins", Required: true,
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "Check a coin balance",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to look up (defaults to you)", Required: false},
			},
		},
		{Name: "give", Description: "Give coins to a user", Options: []*discordgo.ApplicationCommandOption{userOpt, amountOpt}},
		{Name: "take", Description: "Take coins from a user", Options: []*discordgo.ApplicationCommandOption{userOpt, amountOpt}},
		{Name: "setbal", Description: "Set a user's balance", Options: []*discordgo.ApplicationCommandOption{userOpt, amountOpt}},
	}
}

// HandleCommand dispatches one economy slash command.
func (e *EconomyCog) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "balance":
		e.handleBalance(s, i)
	case "give":
		e.handleAdjust(s, i, "give")
	case "take":
		e.handleAdjust(s, i, "take")
	case "setbal":
		e.handleAdjust(s, i, "setbal")
	}
}

func (e *EconomyCog) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	title := utils.TitleYourBalance
	if opt, ok := commandOptions(i)["user"]; ok {
		userID = opt.UserValue(s).ID
		title = "💰 User Balance"
	}

	desc := fmt.Sprintf("<@%s> has **%d** coins.", userID, e.ledger.Balance(userID))
	if bet, ok := e.ledger.GetBet(utils.LegacyScope, userID); ok {
		desc += fmt.Sprintf("\nActive bet: `%d` coins on **%s**.", bet.Amount, bet.Choice)
	}
	respondEmbed(s, i, utils.SimpleEmbed(title, desc, utils.ColorInfo), true)
}

func (e *EconomyCog) handleAdjust(s *discordgo.Session, i *discordgo.InteractionCreate, op string) {
	if !utils.HasManageServer(i) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, "You need Manage Server to manage the economy.", utils.ColorError), true)
		return
	}

	opts := commandOptions(i)
	target := opts["user"].UserValue(s)
	amount := opts["amount"].IntValue()
	if amount < 0 || (op != "setbal" && amount == 0) {
		respondEmbed(s, i, utils.SimpleEmbed(utils.TitleBettingError, utils.MsgAmountPositive, utils.ColorError), true)
		return
	}

	var title, desc string
	switch op {
	case "give":
		e.ledger.Credit(target.ID, amount)
		title = utils.TitleCoinsGiven
		desc = fmt.Sprintf("Gave `%d` coins to <@%s>. New balance: **%d**.", amount, target.ID, e.ledger.Balance(target.ID))
	case "take":
		if !e.ledger.Debit(target.ID, amount) {
			respondEmbed(s, i, utils.SimpleEmbed(utils.TitleInsufficientFunds,
				fmt.Sprintf("<@%s> only has `%d` coins.", target.ID, e.ledger.Balance(target.ID)), utils.ColorError), true)
			return
		}
		title = utils.TitleCoinsTaken
		desc = fmt.Sprintf("Took `%d` coins from <@%s>. New balance: **%d**.", amount, target.ID, e.ledger.Balance(target.ID))
	case "setbal":
		e.ledger.SetBalance(target.ID, amount)
		title = utils.TitleBalanceSet
		desc = fmt.Sprintf("<@%s>'s balance is now **%d** coins.", target.ID, amount)
	}

	respondEmbed(s, i, utils.SimpleEmbed(title, desc, utils.ColorSuccess), false)
	utils.Log.Info("economy adjustment",
		zap.String("op", op),
		zap.String("target", target.ID),
		zap.Int64("amount", amount))
}
