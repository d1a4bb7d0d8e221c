package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists markets.
type MarketStore interface {
	// Create inserts a new market. It returns ErrAlreadyExists when a market
	// for the same event ID is already present.
	Create(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	GetByEventID(ctx context.Context, eventID string) (Market, error)
	// ListOpen returns unresolved markets, newest first.
	ListOpen(ctx context.Context, opts ListOpts) ([]Market, error)
	// ListResolvedBefore returns markets resolved before the given cutoff,
	// oldest first. Used by the settlement archiver.
	ListResolvedBefore(ctx context.Context, cutoff time.Time, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// BetStore reads bet records. All writes go through the SettlementStore so a
// bet mutation and its pool/ledger movement commit as one unit.
type BetStore interface {
	Get(ctx context.Context, marketID string, participant Address) (Bet, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Bet, error)
	ListByParticipant(ctx context.Context, participant Address, opts ListOpts) ([]Bet, error)
}

// LeaderboardEntry is one row of the cumulative-winnings ranking.
type LeaderboardEntry struct {
	Participant   Address `json:"participant"`
	TotalWinnings uint64  `json:"total_winnings"`
	TotalStaked   uint64  `json:"total_staked"`
	BetsWon       int64   `json:"bets_won"`
}

// LeaderboardStore aggregates settled bets into a ranking.
type LeaderboardStore interface {
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// SettlementStore persists one state transition atomically: the market row,
// the bet row, and the associated ledger transfer either all commit or none
// do. A failed transfer (for example ErrInsufficientFunds on a stake) must
// leave every record untouched.
type SettlementStore interface {
	ApplyStake(ctx context.Context, m Market, b Bet, amount uint64) error
	ApplyResolution(ctx context.Context, m Market) error
	ApplyClaim(ctx context.Context, m Market, b Bet, winnings uint64) error
	ApplyCancel(ctx context.Context, m Market, b Bet, refund uint64) error
}

// LedgerStore is the custodial value-transfer collaborator. Accounts are
// plain balance rows; participant accounts are keyed by address and escrow
// accounts by market.
type LedgerStore interface {
	// EnsureAccount creates the account if it does not exist.
	EnsureAccount(ctx context.Context, account string, owner Address) error
	Balance(ctx context.Context, account string) (uint64, error)
	// Deposit credits an account. Exposed for the dev faucet only.
	Deposit(ctx context.Context, account string, amount uint64) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
