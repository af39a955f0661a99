package utils

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	DB            *pgxpool.Pool
	dbInitialized = false
	dbMutex       sync.RWMutex
)

// SetupDatabase initializes the database connection pool. The bot runs
// degraded (in-memory only) when DATABASE_URL is not set.
func SetupDatabase() error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if dbInitialized {
		return nil
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil
	}

	ctx := context.Background()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Modest pool; the ledger is in-memory and writes through best-effort.
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name": "betbot",
		"timezone":         "UTC",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	conn.Release()

	DB = pool
	dbInitialized = true

	return ensureSchema(ctx)
}

// CloseDatabase closes the connection pool.
func CloseDatabase() {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if DB != nil {
		DB.Close()
		DB = nil
		dbInitialized = false
	}
}

// DatabaseAvailable reports whether a pool is connected.
func DatabaseAvailable() bool {
	dbMutex.RLock()
	defer dbMutex.RUnlock()
	return DB != nil
}

func ensureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS balances (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			scope TEXT NOT NULL,
			user_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			choice TEXT NOT NULL,
			emoji TEXT,
			placed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (scope, user_id)
		)`,
	}
	for _, stmt := range schema {
		if _, err := DB.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// PersistBalance upserts one user balance.
func PersistBalance(ctx context.Context, userID string, balance int64) error {
	dbMutex.RLock()
	pool := DB
	dbMutex.RUnlock()
	if pool == nil {
		return nil
	}
	_, err := pool.Exec(ctx,
		`INSERT INTO balances (user_id, balance, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET balance = $2, updated_at = now()`,
		userID, balance)
	return err
}

// PersistBet upserts one bet row.
func PersistBet(ctx context.Context, scope, userID string, bet Bet) error {
	dbMutex.RLock()
	pool := DB
	dbMutex.RUnlock()
	if pool == nil {
		return nil
	}
	_, err := pool.Exec(ctx,
		`INSERT INTO bets (scope, user_id, amount, choice, emoji, placed_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (scope, user_id) DO UPDATE SET amount = $3, choice = $4, emoji = $5, placed_at = now()`,
		scope, userID, bet.Amount, bet.Choice, bet.Emoji)
	return err
}

// DeletePersistedBet removes one bet row.
func DeletePersistedBet(ctx context.Context, scope, userID string) error {
	dbMutex.RLock()
	pool := DB
	dbMutex.RUnlock()
	if pool == nil {
		return nil
	}
	_, err := pool.Exec(ctx, `DELETE FROM bets WHERE scope = $1 AND user_id = $2`, scope, userID)
	return err
}

// ClearPersistedBets removes every bet row in a scope (round reset).
func ClearPersistedBets(ctx context.Context, scope string) error {
	dbMutex.RLock()
	pool := DB
	dbMutex.RUnlock()
	if pool == nil {
		return nil
	}
	_, err := pool.Exec(ctx, `DELETE FROM bets WHERE scope = $1`, scope)
	return err
}

// LoadBalances reads all persisted balances, keyed by user id.
func LoadBalances(ctx context.Context) (map[string]int64, error) {
	dbMutex.RLock()
	pool := DB
	dbMutex.RUnlock()
	if pool == nil {
		return nil, nil
	}
	rows, err := pool.Query(ctx, `SELECT user_id, balance FROM balances`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[string]int64)
	for rows.Next() {
		var userID string
		var balance int64
		if err := rows.Scan(&userID, &balance); err != nil {
			return nil, err
		}
		balances[userID] = balance
	}
	return balances, rows.Err()
}

// LoadBets reads all persisted bets, keyed by scope then user id.
func LoadBets(ctx context.Context) (map[string]map[string]Bet, error) {
	dbMutex.RLock()
	pool := DB
	dbMutex.RUnlock()
	if pool == nil {
		return nil, nil
	}
	rows, err := pool.Query(ctx, `SELECT scope, user_id, amount, choice, COALESCE(emoji, '') FROM bets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bets := make(map[string]map[string]Bet)
	for rows.Next() {
		var scope, userID string
		var bet Bet
		if err := rows.Scan(&scope, &userID, &bet.Amount, &bet.Choice, &bet.Emoji); err != nil {
			return nil, err
		}
		if bets[scope] == nil {
			bets[scope] = make(map[string]Bet)
		}
		bets[scope][userID] = bet
	}
	return bets, rows.Err()
}
