package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LegacyScope is the bet scope for the global (non-session) round.
const LegacyScope = ""

// Bet is one user's wager in a round. Amount is always > 0 while the bet
// exists; a zero-amount bet is removed instead of stored.
type Bet struct {
	Amount int64
	Choice string
	Emoji  string
}

// UserResult is one user's outcome when a winner is declared.
type UserResult struct {
	Choice   string
	Amount   int64
	Won      bool
	Winnings int64
}

// RoundResults is the payout breakdown for a finished round.
type RoundResults struct {
	TotalPot    int64
	WinningPot  int64
	UserResults map[string]UserResult
}

// Ledger holds balances and current bets. All methods are synchronous and
// mutate under one lock so a balance check and its debit can never be
// interleaved. Persistence is write-through and best-effort: a database
// failure never blocks or fails the in-memory mutation.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
	bets     map[string]map[string]Bet
	starting int64
	persist  bool
}

// NewLedger creates an empty ledger with the given starting balance for
// unknown users.
func NewLedger(startingBalance int64) *Ledger {
	return &Ledger{
		balances: make(map[string]int64),
		bets:     make(map[string]map[string]Bet),
		starting: startingBalance,
	}
}

// EnablePersistence turns on write-through to Postgres. Call after
// SetupDatabase succeeded.
func (l *Ledger) EnablePersistence() {
	l.mu.Lock()
	l.persist = true
	l.mu.Unlock()
}

// Restore loads persisted balances and bets into the ledger, replacing
// in-memory state for the keys present.
func (l *Ledger) Restore(balances map[string]int64, bets map[string]map[string]Bet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, balance := range balances {
		l.balances[userID] = balance
	}
	for scope, scopeBets := range bets {
		if l.bets[scope] == nil {
			l.bets[scope] = make(map[string]Bet)
		}
		for userID, bet := range scopeBets {
			l.bets[scope][userID] = bet
		}
	}
}

// Balance returns the user's balance, creating the account at the starting
// balance if the user is unknown.
func (l *Ledger) Balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID)
}

func (l *Ledger) balanceLocked(userID string) int64 {
	if _, ok := l.balances[userID]; !ok {
		l.balances[userID] = l.starting
	}
	return l.balances[userID]
}

// Debit subtracts amount from the user's balance if it covers the amount.
// The check and the subtraction happen under one lock.
func (l *Ledger) Debit(userID string, amount int64) bool {
	if amount <= 0 {
		return false
	}
	l.mu.Lock()
	balance := l.balanceLocked(userID)
	if balance < amount {
		l.mu.Unlock()
		return false
	}
	l.balances[userID] = balance - amount
	newBalance := l.balances[userID]
	persist := l.persist
	l.mu.Unlock()

	if persist {
		l.persistBalance(userID, newBalance)
	}
	return true
}

// Credit adds amount to the user's balance.
func (l *Ledger) Credit(userID string, amount int64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	l.balances[userID] = l.balanceLocked(userID) + amount
	newBalance := l.balances[userID]
	persist := l.persist
	l.mu.Unlock()

	if persist {
		l.persistBalance(userID, newBalance)
	}
}

// SetBalance overwrites the user's balance (admin command path).
func (l *Ledger) SetBalance(userID string, amount int64) {
	l.mu.Lock()
	l.balances[userID] = amount
	persist := l.persist
	l.mu.Unlock()

	if persist {
		l.persistBalance(userID, amount)
	}
}

// GetBet returns the user's bet in the scope, if present.
func (l *Ledger) GetBet(scope, userID string) (Bet, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bet, ok := l.bets[scope][userID]
	return bet, ok
}

// SetBet records or overwrites the user's bet in the scope.
func (l *Ledger) SetBet(scope, userID string, bet Bet) {
	l.mu.Lock()
	if l.bets[scope] == nil {
		l.bets[scope] = make(map[string]Bet)
	}
	l.bets[scope][userID] = bet
	persist := l.persist
	l.mu.Unlock()

	if persist {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := PersistBet(ctx, scope, userID, bet); err != nil {
			Log.Warn("failed to persist bet", zap.String("user", userID), zap.Error(err))
		}
	}
}

// RemoveBet deletes the user's bet in the scope. Returns the removed bet.
func (l *Ledger) RemoveBet(scope, userID string) (Bet, bool) {
	l.mu.Lock()
	bet, ok := l.bets[scope][userID]
	if ok {
		delete(l.bets[scope], userID)
	}
	persist := l.persist && ok
	l.mu.Unlock()

	if persist {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := DeletePersistedBet(ctx, scope, userID); err != nil {
			Log.Warn("failed to delete persisted bet", zap.String("user", userID), zap.Error(err))
		}
	}
	return bet, ok
}

// Bets returns a copy of all bets in the scope.
func (l *Ledger) Bets(scope string) map[string]Bet {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Bet, len(l.bets[scope]))
	for userID, bet := range l.bets[scope] {
		out[userID] = bet
	}
	return out
}

// ClearBets removes every bet in the scope (round reset).
func (l *Ledger) ClearBets(scope string) {
	l.mu.Lock()
	delete(l.bets, scope)
	persist := l.persist
	l.mu.Unlock()

	if persist {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := ClearPersistedBets(ctx, scope); err != nil {
			Log.Warn("failed to clear persisted bets", zap.String("scope", scope), zap.Error(err))
		}
	}
}

// TotalPot sums all stakes in the scope.
func (l *Ledger) TotalPot(scope string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, bet := range l.bets[scope] {
		total += bet.Amount
	}
	return total
}

// ContestantTotals sums stakes per contestant name in the scope.
func (l *Ledger) ContestantTotals(scope string) map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	totals := make(map[string]int64)
	for _, bet := range l.bets[scope] {
		totals[bet.Choice] += bet.Amount
	}
	return totals
}

// CalculateRoundResults computes the payout split for the scope. Winners
// divide the total pot proportionally to their stake; stakes were already
// debited at placement, so losers get nothing back. If nobody bet on the
// winner, WinningPot is zero and the pot is lost.
func (l *Ledger) CalculateRoundResults(scope, winnerName string) RoundResults {
	l.mu.Lock()
	defer l.mu.Unlock()

	results := RoundResults{UserResults: make(map[string]UserResult)}
	for _, bet := range l.bets[scope] {
		results.TotalPot += bet.Amount
		if bet.Choice == winnerName {
			results.WinningPot += bet.Amount
		}
	}
	for userID, bet := range l.bets[scope] {
		result := UserResult{Choice: bet.Choice, Amount: bet.Amount}
		if bet.Choice == winnerName && results.WinningPot > 0 {
			result.Won = true
			result.Winnings = bet.Amount * results.TotalPot / results.WinningPot
		}
		results.UserResults[userID] = result
	}
	return results
}

// PayOutResults credits winners their winnings.
func (l *Ledger) PayOutResults(results RoundResults) {
	for userID, result := range results.UserResults {
		if result.Won && result.Winnings > 0 {
			l.Credit(userID, result.Winnings)
		}
	}
}

func (l *Ledger) persistBalance(userID string, balance int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := PersistBalance(ctx, userID, balance); err != nil {
		Log.Warn("failed to persist balance", zap.String("user", userID), zap.Error(err))
	}
}
