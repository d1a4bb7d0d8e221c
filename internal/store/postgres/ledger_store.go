package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poolbet/poolbet/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore backed by the given connection
// pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// EnsureAccount creates the account if it does not already exist. Existing
// accounts are left untouched, including their owner.
func (s *LedgerStore) EnsureAccount(ctx context.Context, account string, owner domain.Address) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, owner) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		account, owner.String(),
	)
	if err != nil {
		return fmt.Errorf("postgres: ensure account %s: %w", account, err)
	}
	return nil
}

// Balance returns the current balance of an account.
func (s *LedgerStore) Balance(ctx context.Context, account string) (uint64, error) {
	var balance uint64
	err := s.pool.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1`, account,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: balance %s: %w", account, err)
	}
	return balance, nil
}

// Deposit credits an account. Only the dev faucet uses this; production
// deployments disable it in config.
func (s *LedgerStore) Deposit(ctx context.Context, account string, amount uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
		amount, account,
	)
	if err != nil {
		return fmt.Errorf("postgres: deposit %s: %w", account, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.LedgerStore = (*LedgerStore)(nil)
