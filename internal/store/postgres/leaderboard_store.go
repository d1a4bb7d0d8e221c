package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poolbet/poolbet/internal/domain"
)

// LeaderboardStore implements domain.LeaderboardStore using PostgreSQL.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

// NewLeaderboardStore creates a new LeaderboardStore backed by the given
// connection pool.
func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

// Top returns participants ranked by cumulative winnings across all claimed
// bets. Cancelled bets contribute nothing: their amount is zeroed on refund.
func (s *LeaderboardStore) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT
			participant,
			COALESCE(SUM(winnings), 0) AS total_winnings,
			COALESCE(SUM(amount), 0)   AS total_staked,
			COUNT(*) FILTER (WHERE status = 'claimed' AND winnings > 0) AS bets_won
		FROM bets
		WHERE status <> 'cancelled'
		GROUP BY participant
		ORDER BY total_winnings DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var (
			e           domain.LeaderboardEntry
			participant string
		)
		if err := rows.Scan(&participant, &e.TotalWinnings, &e.TotalStaked, &e.BetsWon); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard entry: %w", err)
		}
		e.Participant = domain.Address(participant)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: leaderboard rows: %w", err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.LeaderboardStore = (*LeaderboardStore)(nil)
