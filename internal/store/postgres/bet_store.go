package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poolbet/poolbet/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL. It is read-only;
// every bet mutation goes through the SettlementStore so it commits together
// with the market row and the ledger movement.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betCols = `market_id, participant, outcome, amount, status, winnings,
	created_at, updated_at`

func scanBet(row pgx.Row) (domain.Bet, error) {
	var (
		b           domain.Bet
		participant string
		outcome     string
		status      string
	)
	err := row.Scan(
		&b.MarketID, &participant, &outcome, &b.Amount, &status, &b.Winnings,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	b.Participant = domain.Address(participant)
	b.Outcome = domain.Outcome(outcome)
	b.Status = domain.BetStatus(status)
	return b, nil
}

// Get retrieves the bet record for a (market, participant) pair.
func (s *BetStore) Get(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets WHERE market_id = $1 AND participant = $2`,
		marketID, participant.String())
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %s/%s: %w", marketID, participant, err)
	}
	return b, nil
}

// ListByMarket returns all bets on a market, newest first.
func (s *BetStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error) {
	return s.list(ctx, `market_id = $1`, marketID, opts)
}

// ListByParticipant returns a participant's bets across markets, newest
// first.
func (s *BetStore) ListByParticipant(ctx context.Context, participant domain.Address, opts domain.ListOpts) ([]domain.Bet, error) {
	return s.list(ctx, `participant = $1`, participant.String(), opts)
}

func (s *BetStore) list(ctx context.Context, where string, arg any, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betCols + ` FROM bets WHERE ` + where + ` ORDER BY created_at DESC`
	args := []any{arg}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: bet rows: %w", err)
	}
	return bets, nil
}

// Compile-time interface check.
var _ domain.BetStore = (*BetStore)(nil)
