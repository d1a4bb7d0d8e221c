package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poolbet/poolbet/internal/domain"
)

var start = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func openMarket() *domain.Market {
	return &domain.Market{
		ID:             "mkt-1",
		EventID:        "evt-arsenal-chelsea",
		Authority:      "0xaaaa",
		StartTime:      start,
		WinningOutcome: domain.OutcomePending,
	}
}

func activeBet(outcome domain.Outcome, amount uint64) *domain.Bet {
	return &domain.Bet{
		MarketID:    "mkt-1",
		Participant: "0xbbbb",
		Outcome:     outcome,
		Amount:      amount,
		Status:      domain.BetStatusActive,
	}
}

func TestPlaceStake_FirstStake(t *testing.T) {
	m := openMarket()
	b := &domain.Bet{MarketID: m.ID, Participant: "0xbbbb", Outcome: domain.OutcomePending}

	if err := PlaceStake(m, b, domain.OutcomeA, 1000, start.Add(-100*time.Second)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.PoolA != 1000 {
		t.Fatalf("expected pool_a=1000, got %d", m.PoolA)
	}
	if b.Outcome != domain.OutcomeA || b.Amount != 1000 {
		t.Fatalf("unexpected bet state: outcome=%s amount=%d", b.Outcome, b.Amount)
	}
	if b.Status != domain.BetStatusActive {
		t.Fatalf("expected active bet, got %s", b.Status)
	}
}

func TestPlaceStake_Accumulates(t *testing.T) {
	m := openMarket()
	b := activeBet(domain.OutcomeB, 500)
	m.PoolB = 500

	if err := PlaceStake(m, b, domain.OutcomeB, 250, start.Add(-time.Hour)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if b.Amount != 750 || m.PoolB != 750 {
		t.Fatalf("expected amount and pool 750, got %d / %d", b.Amount, m.PoolB)
	}
}

func TestPlaceStake_MarketClosed(t *testing.T) {
	m := openMarket()
	b := &domain.Bet{}

	// At or after start time the market is closed.
	err := PlaceStake(m, b, domain.OutcomeA, 100, start)
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("expected ErrMarketClosed, got %v", err)
	}
	if m.PoolA != 0 || b.Amount != 0 {
		t.Fatalf("failed stake must not mutate state")
	}
}

func TestPlaceStake_ResolvedMarket(t *testing.T) {
	m := openMarket()
	m.Resolved = true

	err := PlaceStake(m, &domain.Bet{}, domain.OutcomeA, 100, start.Add(-time.Minute))
	if !errors.Is(err, domain.ErrMarketResolved) {
		t.Fatalf("expected ErrMarketResolved, got %v", err)
	}
}

func TestPlaceStake_PendingOutcome(t *testing.T) {
	m := openMarket()

	err := PlaceStake(m, &domain.Bet{}, domain.OutcomePending, 100, start.Add(-time.Minute))
	if !errors.Is(err, domain.ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestPlaceStake_OutcomeLocked(t *testing.T) {
	m := openMarket()
	b := activeBet(domain.OutcomeA, 1000)
	m.PoolA = 1000

	err := PlaceStake(m, b, domain.OutcomeB, 500, start.Add(-time.Minute))
	if !errors.Is(err, domain.ErrOutcomeLocked) {
		t.Fatalf("expected ErrOutcomeLocked, got %v", err)
	}
	if b.Outcome != domain.OutcomeA || b.Amount != 1000 || m.PoolB != 0 {
		t.Fatalf("failed stake must not mutate state")
	}
}

func TestPlaceStake_TombstoneBlocksRestake(t *testing.T) {
	m := openMarket()
	b := activeBet(domain.OutcomeA, 0)
	b.Status = domain.BetStatusCancelled

	err := PlaceStake(m, b, domain.OutcomeA, 100, start.Add(-2*time.Hour))
	if !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestPlaceStake_Overflow(t *testing.T) {
	m := openMarket()
	b := activeBet(domain.OutcomeA, math.MaxUint64)
	m.PoolA = math.MaxUint64

	err := PlaceStake(m, b, domain.OutcomeA, 1, start.Add(-time.Minute))
	if !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if b.Amount != math.MaxUint64 {
		t.Fatalf("failed stake must not mutate the bet")
	}
}

func TestResolve_SnapshotsPools(t *testing.T) {
	m := openMarket()
	m.PoolA = 1000
	m.PoolB = 3000

	now := start.Add(CompletionBuffer + time.Second)
	if err := Resolve(m, domain.OutcomeA, now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !m.Resolved || m.WinningOutcome != domain.OutcomeA {
		t.Fatalf("market not resolved as expected")
	}
	if m.PayoutPool != 4000 || m.WinningPool != 1000 {
		t.Fatalf("expected snapshots 4000/1000, got %d/%d", m.PayoutPool, m.WinningPool)
	}
	if m.ResolvedAt == nil || !m.ResolvedAt.Equal(now) {
		t.Fatalf("resolved_at not set")
	}
}

func TestResolve_GameNotComplete(t *testing.T) {
	m := openMarket()

	// Exactly at the buffer boundary is still too early.
	err := Resolve(m, domain.OutcomeA, start.Add(CompletionBuffer))
	if !errors.Is(err, domain.ErrGameNotComplete) {
		t.Fatalf("expected ErrGameNotComplete, got %v", err)
	}
}

func TestResolve_OnlyOnce(t *testing.T) {
	m := openMarket()
	m.PoolA = 1000
	now := start.Add(CompletionBuffer + time.Minute)

	if err := Resolve(m, domain.OutcomeA, now); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}

	err := Resolve(m, domain.OutcomeB, now.Add(time.Hour))
	if !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	// Resolution state must be immutable after the failed second attempt.
	if m.WinningOutcome != domain.OutcomeA || m.PayoutPool != 1000 || m.WinningPool != 1000 {
		t.Fatalf("resolution state mutated by rejected resolve")
	}
}

func TestResolve_PendingOutcome(t *testing.T) {
	m := openMarket()

	err := Resolve(m, domain.OutcomePending, start.Add(CompletionBuffer+time.Minute))
	if !errors.Is(err, domain.ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestClaim_ProportionalPayout(t *testing.T) {
	// Two participants stake 1000 on A and 3000 on B; A wins.
	m := openMarket()
	m.PoolA = 1000
	m.PoolB = 3000
	if err := Resolve(m, domain.OutcomeA, start.Add(CompletionBuffer+time.Second)); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	b := activeBet(domain.OutcomeA, 1000)
	winnings, err := Claim(m, b)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// gross = floor(1000*4000/1000) = 4000, fee = floor(4000*2/100) = 80.
	if winnings != 3920 {
		t.Fatalf("expected winnings 3920, got %d", winnings)
	}
	if b.Status != domain.BetStatusClaimed || b.Winnings != 3920 {
		t.Fatalf("bet not settled: status=%s winnings=%d", b.Status, b.Winnings)
	}
}

func TestClaim_NotResolved(t *testing.T) {
	m := openMarket()
	b := activeBet(domain.OutcomeA, 1000)

	_, err := Claim(m, b)
	if !errors.Is(err, domain.ErrNotResolved) {
		t.Fatalf("expected ErrNotResolved, got %v", err)
	}
}

func TestClaim_OnlyOnce(t *testing.T) {
	m := openMarket()
	m.PoolA = 1000
	if err := Resolve(m, domain.OutcomeA, start.Add(CompletionBuffer+time.Second)); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	b := activeBet(domain.OutcomeA, 1000)
	if _, err := Claim(m, b); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	_, err := Claim(m, b)
	if !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestClaim_NotWinner(t *testing.T) {
	m := openMarket()
	m.PoolA = 1000
	m.PoolB = 5000
	if err := Resolve(m, domain.OutcomeA, start.Add(CompletionBuffer+time.Second)); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	b := activeBet(domain.OutcomeB, 5000)
	_, err := Claim(m, b)
	if !errors.Is(err, domain.ErrNotWinner) {
		t.Fatalf("expected ErrNotWinner regardless of amount, got %v", err)
	}
	if b.Settled() {
		t.Fatalf("losing bet must not be settled by a failed claim")
	}
}

func TestClaim_NoWinningPool(t *testing.T) {
	// Nobody staked the winning outcome: every claim fails and losing stakes
	// stay in escrow.
	m := openMarket()
	m.PoolB = 4000
	if err := Resolve(m, domain.OutcomeA, start.Add(CompletionBuffer+time.Second)); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if m.WinningPool != 0 {
		t.Fatalf("expected zero winning pool, got %d", m.WinningPool)
	}

	b := activeBet(domain.OutcomeA, 0)
	_, err := Claim(m, b)
	if !errors.Is(err, domain.ErrNoWinningPool) {
		t.Fatalf("expected ErrNoWinningPool, got %v", err)
	}
}

func TestClaim_LargePoolsUseWideIntermediate(t *testing.T) {
	// amount * payout_pool overflows 64 bits but the quotient fits.
	m := openMarket()
	m.Resolved = true
	m.WinningOutcome = domain.OutcomeA
	m.PayoutPool = 1 << 40
	m.WinningPool = 1 << 36

	b := activeBet(domain.OutcomeA, 1<<36)
	winnings, err := Claim(m, b)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	gross := uint64(1) << 40
	want := gross - gross*2/100
	if winnings != want {
		t.Fatalf("expected winnings %d, got %d", want, winnings)
	}
}

func TestClaim_PayoutBound(t *testing.T) {
	// Sum of all winners' payouts never exceeds payout_pool minus the fee.
	stakes := []uint64{7, 13, 101, 5000, 333}
	m := openMarket()
	var winningPool uint64
	for _, s := range stakes {
		winningPool += s
	}
	m.PoolA = winningPool
	m.PoolB = 9999
	if err := Resolve(m, domain.OutcomeA, start.Add(CompletionBuffer+time.Second)); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	var paid uint64
	for _, s := range stakes {
		b := activeBet(domain.OutcomeA, s)
		w, err := Claim(m, b)
		if err != nil {
			t.Fatalf("claim of %d failed: %v", s, err)
		}
		paid += w
	}

	bound := m.PayoutPool - m.PayoutPool*2/100
	if paid > bound {
		t.Fatalf("total payouts %d exceed bound %d", paid, bound)
	}
}

func TestCancel_RefundsAndTombstones(t *testing.T) {
	m := openMarket()
	b := activeBet(domain.OutcomeDraw, 800)
	m.PoolDraw = 800

	refund, err := Cancel(m, b, start.Add(-CancelBuffer-time.Second))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if refund != 800 || m.PoolDraw != 0 {
		t.Fatalf("expected full refund and empty pool, got refund=%d pool=%d", refund, m.PoolDraw)
	}
	if b.Status != domain.BetStatusCancelled || b.Amount != 0 {
		t.Fatalf("bet not tombstoned: status=%s amount=%d", b.Status, b.Amount)
	}
}

func TestCancel_CutoffWindow(t *testing.T) {
	m := openMarket()

	// T-3601 succeeds, T-3599 fails.
	b := activeBet(domain.OutcomeA, 100)
	m.PoolA = 100
	if _, err := Cancel(m, b, start.Add(-3601*time.Second)); err != nil {
		t.Fatalf("cancel at T-3601 should succeed, got %v", err)
	}

	b2 := activeBet(domain.OutcomeA, 100)
	m.PoolA = 100
	_, err := Cancel(m, b2, start.Add(-3599*time.Second))
	if !errors.Is(err, domain.ErrTooLateToCancel) {
		t.Fatalf("expected ErrTooLateToCancel at T-3599, got %v", err)
	}
	if m.PoolA != 100 || b2.Amount != 100 {
		t.Fatalf("failed cancel must not mutate state")
	}
}

func TestCancel_ResolvedMarket(t *testing.T) {
	m := openMarket()
	m.Resolved = true
	b := activeBet(domain.OutcomeA, 100)

	_, err := Cancel(m, b, start.Add(-2*time.Hour))
	if !errors.Is(err, domain.ErrMarketResolved) {
		t.Fatalf("expected ErrMarketResolved, got %v", err)
	}
}

func TestCancel_AfterClaimFails(t *testing.T) {
	m := openMarket()
	b := activeBet(domain.OutcomeA, 100)
	b.Status = domain.BetStatusClaimed

	_, err := Cancel(m, b, start.Add(-2*time.Hour))
	if !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestConservation_PoolsMatchActiveBets(t *testing.T) {
	// pool_a + pool_b + pool_draw always equals the sum of live bet amounts
	// through an arbitrary stake/cancel sequence.
	m := openMarket()
	bets := []*domain.Bet{
		{MarketID: m.ID, Participant: "0x01", Outcome: domain.OutcomePending},
		{MarketID: m.ID, Participant: "0x02", Outcome: domain.OutcomePending},
		{MarketID: m.ID, Participant: "0x03", Outcome: domain.OutcomePending},
	}

	steps := []struct {
		bet     int
		outcome domain.Outcome
		amount  uint64
	}{
		{0, domain.OutcomeA, 1200},
		{1, domain.OutcomeB, 900},
		{2, domain.OutcomeDraw, 100},
		{0, domain.OutcomeA, 300},
		{1, domain.OutcomeB, 50},
	}

	now := start.Add(-5 * time.Hour)
	for _, s := range steps {
		if err := PlaceStake(m, bets[s.bet], s.outcome, s.amount, now); err != nil {
			t.Fatalf("stake failed: %v", err)
		}
		checkConservation(t, m, bets)
	}

	if _, err := Cancel(m, bets[1], now); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	checkConservation(t, m, bets)
}

func checkConservation(t *testing.T, m *domain.Market, bets []*domain.Bet) {
	t.Helper()
	var live uint64
	for _, b := range bets {
		if b.Status == domain.BetStatusActive {
			live += b.Amount
		}
	}
	if m.TotalPool() != live {
		t.Fatalf("conservation violated: pools=%d live bets=%d", m.TotalPool(), live)
	}
}
