package utils

import "time"

// General Configuration
const (
	StartingBalance int64 = 10000
	BetBoyRole            = "betboy"
	BotColor              = 0x5865F2
)

// Betting timer defaults
const (
	BetTimerDuration       = 90 * time.Second
	BetTimerUpdateInterval = 5 * time.Second
	EnableBetTimerDefault  = false
)

// Multi-session betting
const MaxActiveSessions = 10

// Reaction batching windows. The primary window coalesces a burst of
// reactions from one user into a single bet; the backup window is a
// second finalize path in case the primary task is lost.
const (
	ReactionDebounceDelay = 500 * time.Millisecond
	ReactionBackupDelay   = 1500 * time.Millisecond
)

// Live message batching
const (
	LiveUpdateBatchWindow  = 5 * time.Second
	LiveUpdateSuppression  = 6 * time.Second
	ProgrammaticRemovalTTL = 30 * time.Second
)

// Emojis
const (
	SeparatorEmoji   = "➖"
	Contestant1Emoji = "🔴"
	Contestant2Emoji = "🔵"
)

// Reaction betting emojis, grouped by contestant. Order matters: it is the
// order the option markers are added to the live message.
var (
	Contestant1Emojis = []string{"🔥", "⚡", "💪", "🏆"}
	Contestant2Emojis = []string{"🌟", "💎", "🚀", "👑"}
)

// ReactionBetAmounts maps each betting emoji to its stake.
var ReactionBetAmounts = map[string]int64{
	"🔥": 100,
	"⚡": 250,
	"💪": 500,
	"🏆": 1000,
	"🌟": 100,
	"💎": 250,
	"🚀": 500,
	"👑": 1000,
}

// Embed colors
const (
	ColorSuccess    = 0x2ECC71
	ColorInfo       = 0x3498DB
	ColorWarning    = 0xF1C40F
	ColorError      = 0xE74C3C
	ColorGold       = 0xFFD700
	ColorDarkOrange = 0xFF8C00
	ColorDarkGray   = 0x607D8B
)

// Embed titles
const (
	TitleBettingError       = "❌ Betting Error"
	TitleBetsLocked         = "🔒 Bets Locked!"
	TitleBettingRoundOpened = "✅ Betting Round Opened"
	TitleBetPlaced          = "✅ Bet Placed"
	TitleLiveBettingRound   = "💸 Live Betting Round"
	TitleWinnerDeclared     = "🏆 Winner Declared!"
	TitlePotLost            = "💸 Pot Lost!"
	TitleInsufficientFunds  = "❌ Insufficient Funds"
	TitleYourBalance        = "💰 Your Balance"
	TitleBalanceSet         = "✅ Balance Set"
	TitleCoinsGiven         = "✅ Coins Given"
	TitleCoinsTaken         = "✅ Coins Taken"
	TitleBettingChannelSet  = "✅ Betting Channel Set"
	TitleSessionOpened      = "✅ Session Opened"
	TitleActiveSessions     = "📋 Active Sessions"
	TitleHelp               = "📖 BetBot Commands"
)

// User-facing messages
const (
	MsgBetAlreadyOpen      = "⚠️ A betting round is already open!"
	MsgNoActiveBet         = "⚠️ There is no active betting round."
	MsgBetLocked           = "⚠️ Betting is currently locked. Please wait for a winner to be declared."
	MsgBetLockedNoNewBets  = "⚠️ Betting is locked. No new bets can be placed."
	MsgNoBetsToClose       = "⚠️ There are no open or locked bets to close."
	MsgAmountPositive      = "Amount must be a positive number."
	MsgBettingLockedNotice = "Betting is now locked! No more bets can be placed. A winner will be declared soon."
	MsgTimerExpiredNotice  = "Time's up! Betting is automatically locked. A winner will be declared soon."
	MsgSessionNotFound     = "⚠️ No session with that name is open."
	MsgNoActiveSessions    = "There are no active betting sessions."
)
