// Package engine implements the pari-mutuel accounting state machine: stake
// placement, resolution, proportional payout, and pre-event cancellation.
//
// Every function here is a pure transition over Market and Bet values. The
// engine performs no I/O; the service layer loads the records, runs a
// transition under the market's lock, and persists the result together with
// the ledger transfer in one transaction. A transition either mutates its
// inputs and returns nil, or returns an error and leaves them untouched.
package engine

import (
	"time"

	"github.com/poolbet/poolbet/internal/domain"
)

const (
	// CompletionBuffer is how long after the event start a market must wait
	// before an outcome may be committed: the staking window plus a safety
	// margin for the event itself to finish.
	CompletionBuffer = 3 * time.Hour

	// CancelBuffer is the cutoff before the event start after which a stake
	// can no longer be withdrawn.
	CancelBuffer = time.Hour

	// Platform fee applied to gross winnings: feeNumer/feeDenom.
	feeNumer = 2
	feeDenom = 100
)

// PlaceStake applies one stake of amount on outcome to the market and bet
// pair. The bet may be a zero-value record on the participant's first stake;
// the outcome is fixed at that point and later stakes must match it.
func PlaceStake(m *domain.Market, b *domain.Bet, outcome domain.Outcome, amount uint64, now time.Time) error {
	if !now.Before(m.StartTime) {
		return domain.ErrMarketClosed
	}
	if m.Resolved {
		return domain.ErrMarketResolved
	}
	if !outcome.Selectable() {
		return domain.ErrInvalidOutcome
	}
	if b.Settled() {
		return domain.ErrAlreadyClaimed
	}
	if b.Outcome.Selectable() && b.Outcome != outcome {
		return domain.ErrOutcomeLocked
	}

	newAmount, err := checkedAdd(b.Amount, amount)
	if err != nil {
		return err
	}
	newPool, err := checkedAdd(m.Pool(outcome), amount)
	if err != nil {
		return err
	}

	b.Outcome = outcome
	b.Amount = newAmount
	b.Status = domain.BetStatusActive
	m.SetPool(outcome, newPool)
	return nil
}

// Resolve commits the winning outcome. It is a one-shot terminal transition:
// it freezes the total and winning pools into the payout snapshots that all
// subsequent claims are computed from.
func Resolve(m *domain.Market, winning domain.Outcome, now time.Time) error {
	if !now.After(m.StartTime.Add(CompletionBuffer)) {
		return domain.ErrGameNotComplete
	}
	if m.Resolved {
		return domain.ErrAlreadyResolved
	}
	if !winning.Selectable() {
		return domain.ErrInvalidOutcome
	}

	resolvedAt := now
	m.Resolved = true
	m.WinningOutcome = winning
	m.ResolvedAt = &resolvedAt
	m.PayoutPool = m.TotalPool()
	m.WinningPool = m.Pool(winning)
	return nil
}

// Claim settles a winning bet and returns the payout amount. The payout is
// the bet's proportional share of the full pool, minus the platform fee:
//
//	gross    = floor(amount * payout_pool / winning_pool)
//	fee      = floor(gross * 2 / 100)
//	winnings = gross - fee
//
// Integer floor division at both steps means the sum of all payouts never
// exceeds 98% of the pool; the rounding dust stays in escrow.
func Claim(m *domain.Market, b *domain.Bet) (uint64, error) {
	if !m.Resolved {
		return 0, domain.ErrNotResolved
	}
	if b.Settled() {
		return 0, domain.ErrAlreadyClaimed
	}
	if b.Outcome != m.WinningOutcome {
		return 0, domain.ErrNotWinner
	}
	if m.WinningPool == 0 {
		return 0, domain.ErrNoWinningPool
	}

	gross, err := mulDiv(b.Amount, m.PayoutPool, m.WinningPool)
	if err != nil {
		return 0, err
	}
	feeMul, err := checkedMul(gross, feeNumer)
	if err != nil {
		return 0, err
	}
	fee := feeMul / feeDenom
	winnings, err := checkedSub(gross, fee)
	if err != nil {
		return 0, err
	}

	b.Status = domain.BetStatusClaimed
	b.Winnings = winnings
	return winnings, nil
}

// Cancel withdraws the full stake before the event becomes imminent and
// returns the refund amount. The bet record becomes a permanent tombstone:
// the participant cannot re-stake on this market afterwards.
func Cancel(m *domain.Market, b *domain.Bet, now time.Time) (uint64, error) {
	if !now.Before(m.StartTime.Add(-CancelBuffer)) {
		return 0, domain.ErrTooLateToCancel
	}
	if m.Resolved {
		return 0, domain.ErrMarketResolved
	}
	if b.Settled() {
		return 0, domain.ErrAlreadyClaimed
	}
	if !b.Outcome.Selectable() {
		return 0, domain.ErrInvalidOutcome
	}

	refund := b.Amount
	newPool, err := checkedSub(m.Pool(b.Outcome), refund)
	if err != nil {
		return 0, err
	}

	m.SetPool(b.Outcome, newPool)
	b.Amount = 0
	b.Status = domain.BetStatusCancelled
	return refund, nil
}
