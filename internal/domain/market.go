package domain

import "time"

// Market is the wagering pool for a single event. It tracks the cumulative
// stake per outcome while open, and freezes the payout-relevant totals into
// PayoutPool / WinningPool at resolution. A market is never deleted; once
// resolved it acts as a permanent settlement record.
type Market struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Authority     Address   `json:"authority"`
	OutcomeLabelA string    `json:"outcome_label_a"`
	OutcomeLabelB string    `json:"outcome_label_b"`
	StartTime     time.Time `json:"start_time"`
	OracleRef     string    `json:"oracle_ref"`

	// EscrowAccount is the custodial ledger account holding all staked value
	// for this market. Only the market itself may authorize debits from it.
	EscrowAccount string `json:"escrow_account"`

	PoolA    uint64 `json:"pool_a"`
	PoolB    uint64 `json:"pool_b"`
	PoolDraw uint64 `json:"pool_draw"`

	Resolved       bool       `json:"resolved"`
	WinningOutcome Outcome    `json:"winning_outcome"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	// PayoutPool and WinningPool are snapshots taken at resolution time.
	// After resolution they, not the live pools, are authoritative for
	// payout math.
	PayoutPool  uint64 `json:"payout_pool"`
	WinningPool uint64 `json:"winning_pool"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pool returns the live pool total for the given outcome.
func (m *Market) Pool(o Outcome) uint64 {
	switch o {
	case OutcomeA:
		return m.PoolA
	case OutcomeB:
		return m.PoolB
	case OutcomeDraw:
		return m.PoolDraw
	}
	return 0
}

// SetPool writes the live pool total for the given outcome. Calling it with
// OutcomePending is a no-op; callers must validate the outcome first.
func (m *Market) SetPool(o Outcome, v uint64) {
	switch o {
	case OutcomeA:
		m.PoolA = v
	case OutcomeB:
		m.PoolB = v
	case OutcomeDraw:
		m.PoolDraw = v
	}
}

// TotalPool is the sum of the three live pools. The engine guards every pool
// increment with checked arithmetic, so the sum cannot wrap here.
func (m *Market) TotalPool() uint64 {
	return m.PoolA + m.PoolB + m.PoolDraw
}
