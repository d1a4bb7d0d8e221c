package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poolbet/poolbet/internal/domain"
)

// SettlementStore implements domain.SettlementStore. Each Apply method runs
// one state transition in a single transaction: the ledger movement and the
// market/bet rows commit or roll back as a unit, so a failed transfer can
// never leave pools and balances disagreeing.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a SettlementStore backed by the given pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// transfer moves amount between two accounts inside tx. The conditional
// UPDATE both debits and enforces the balance floor; zero rows affected means
// the source either does not exist or cannot cover the amount.
func transfer(ctx context.Context, tx pgx.Tx, from, to string, amount uint64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1`,
		amount, from,
	)
	if err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}

	tag, err = tx.Exec(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2`,
		amount, to,
	)
	if err != nil {
		return fmt.Errorf("postgres: credit %s: %w", to, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: credit %s: %w", to, domain.ErrNotFound)
	}
	return nil
}

// updateMarket writes the mutable market fields. The settlement store only
// ever sees markets loaded under the market lock, so a plain write is safe.
func updateMarket(ctx context.Context, tx pgx.Tx, m domain.Market) error {
	tag, err := tx.Exec(ctx, `
		UPDATE markets SET
			pool_a = $2, pool_b = $3, pool_draw = $4,
			resolved = $5, winning_outcome = $6, resolved_at = $7,
			payout_pool = $8, winning_pool = $9,
			updated_at = NOW()
		WHERE id = $1`,
		m.ID,
		m.PoolA, m.PoolB, m.PoolDraw,
		m.Resolved, string(m.WinningOutcome), m.ResolvedAt,
		m.PayoutPool, m.WinningPool,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// upsertBet writes the bet record, creating it on the participant's first
// stake.
func upsertBet(ctx context.Context, tx pgx.Tx, b domain.Bet) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bets (market_id, participant, outcome, amount, status, winnings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (market_id, participant) DO UPDATE SET
			outcome    = EXCLUDED.outcome,
			amount     = EXCLUDED.amount,
			status     = EXCLUDED.status,
			winnings   = EXCLUDED.winnings,
			updated_at = NOW()`,
		b.MarketID, b.Participant.String(), string(b.Outcome),
		b.Amount, string(b.Status), b.Winnings,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert bet %s/%s: %w", b.MarketID, b.Participant, err)
	}
	return nil
}

// inTx runs fn inside a transaction, committing on nil and rolling back on
// error.
func (s *SettlementStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin settlement tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit settlement tx: %w", err)
	}
	return nil
}

// ApplyStake deposits amount from the participant's account into the market
// escrow and persists the updated market and bet.
func (s *SettlementStore) ApplyStake(ctx context.Context, m domain.Market, b domain.Bet, amount uint64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := transfer(ctx, tx, b.Participant.String(), m.EscrowAccount, amount); err != nil {
			return err
		}
		if err := upsertBet(ctx, tx, b); err != nil {
			return err
		}
		return updateMarket(ctx, tx, m)
	})
}

// ApplyResolution persists the resolved market. No value moves at
// resolution; the escrow is drained claim by claim.
func (s *SettlementStore) ApplyResolution(ctx context.Context, m domain.Market) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return updateMarket(ctx, tx, m)
	})
}

// ApplyClaim pays winnings from the market escrow to the participant and
// persists the settled bet. The escrow debit is authorized by the market
// owning its escrow account; the participant never holds that capability.
func (s *SettlementStore) ApplyClaim(ctx context.Context, m domain.Market, b domain.Bet, winnings uint64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := transfer(ctx, tx, m.EscrowAccount, b.Participant.String(), winnings); err != nil {
			return err
		}
		return upsertBet(ctx, tx, b)
	})
}

// ApplyCancel refunds the stake from escrow to the participant and persists
// the decremented pool and the tombstoned bet.
func (s *SettlementStore) ApplyCancel(ctx context.Context, m domain.Market, b domain.Bet, refund uint64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := transfer(ctx, tx, m.EscrowAccount, b.Participant.String(), refund); err != nil {
			return err
		}
		if err := upsertBet(ctx, tx, b); err != nil {
			return err
		}
		return updateMarket(ctx, tx, m)
	})
}

// Compile-time interface check.
var _ domain.SettlementStore = (*SettlementStore)(nil)
