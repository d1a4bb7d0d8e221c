package domain

import "time"

// BetStatus is the lifecycle state of a bet record.
type BetStatus string

const (
	// BetStatusActive means the stake is live: it counts toward its
	// outcome's pool and can still be grown, claimed, or cancelled.
	BetStatusActive BetStatus = "active"

	// BetStatusClaimed means winnings have been paid out. Terminal.
	BetStatusClaimed BetStatus = "claimed"

	// BetStatusCancelled means the stake was refunded before the event.
	// Terminal: the record stays as a tombstone and cannot be re-staked.
	BetStatusCancelled BetStatus = "cancelled"
)

// Bet is one participant's cumulative stake against a single market. There is
// at most one bet record per (market, participant) pair; repeated stakes
// accumulate into Amount. The chosen outcome is fixed by the first stake.
type Bet struct {
	MarketID    string    `json:"market_id"`
	Participant Address   `json:"participant"`
	Outcome     Outcome   `json:"outcome"`
	Amount      uint64    `json:"amount"`
	Status      BetStatus `json:"status"`
	Winnings    uint64    `json:"winnings"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Settled reports whether the bet has reached a terminal state, after which
// no further stake, claim, or cancellation is permitted.
func (b *Bet) Settled() bool {
	return b.Status == BetStatusClaimed || b.Status == BetStatusCancelled
}
