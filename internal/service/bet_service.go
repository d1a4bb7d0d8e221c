package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/engine"
	"github.com/poolbet/poolbet/internal/metrics"
	"github.com/poolbet/poolbet/internal/notify"
)

// BetService handles stake placement, claim settlement, cancellation, and
// bet reads.
type BetService struct {
	markets     domain.MarketStore
	bets        domain.BetStore
	settle      domain.SettlementStore
	leaderboard domain.LeaderboardStore
	locks       domain.LockManager
	bus         domain.SignalBus
	audit       domain.AuditStore
	clock       domain.Clock
	notifier    *notify.Notifier
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewBetService creates a BetService with all required dependencies.
func NewBetService(
	markets domain.MarketStore,
	bets domain.BetStore,
	settle domain.SettlementStore,
	leaderboard domain.LeaderboardStore,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	notifier *notify.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *BetService {
	return &BetService{
		markets:     markets,
		bets:        bets,
		settle:      settle,
		leaderboard: leaderboard,
		locks:       locks,
		bus:         bus,
		audit:       audit,
		clock:       clock,
		notifier:    notifier,
		metrics:     m,
		logger:      logger.With(slog.String("component", "bet_service")),
	}
}

// loadBet fetches the participant's bet record, returning a zero-value
// record keyed to the pair when none exists yet.
func (s *BetService) loadBet(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error) {
	b, err := s.bets.Get(ctx, marketID, participant)
	if err == nil {
		return b, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		now := s.clock.Now()
		return domain.Bet{
			MarketID:    marketID,
			Participant: participant,
			Outcome:     domain.OutcomePending,
			Status:      domain.BetStatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}
	return domain.Bet{}, err
}

// Place stakes amount on outcome for the calling participant. The deposit
// into escrow and the pool/bet updates commit as one transaction; a failed
// transfer leaves every record untouched.
func (s *BetService) Place(ctx context.Context, marketID string, participant domain.Address, outcome domain.Outcome, amount uint64) (domain.Bet, error) {
	if amount == 0 {
		return domain.Bet{}, fmt.Errorf("bet_service: place: %w", domain.ErrInvalidAmount)
	}

	unlock, err := acquireLock(ctx, s.locks, marketLockKey(marketID))
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: lock market %s: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: place load market %s: %w", marketID, err)
	}
	b, err := s.loadBet(ctx, marketID, participant)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: place load bet %s/%s: %w", marketID, participant, err)
	}

	if err := engine.PlaceStake(&m, &b, outcome, amount, s.clock.Now()); err != nil {
		s.metrics.OperationErrors.WithLabelValues("place").Inc()
		return domain.Bet{}, fmt.Errorf("bet_service: place %s/%s: %w", marketID, participant, err)
	}
	b.UpdatedAt = s.clock.Now()

	if err := s.settle.ApplyStake(ctx, m, b, amount); err != nil {
		s.metrics.OperationErrors.WithLabelValues("place").Inc()
		return domain.Bet{}, fmt.Errorf("bet_service: apply stake %s/%s: %w", marketID, participant, err)
	}

	s.metrics.StakesPlaced.Inc()
	s.metrics.StakeVolume.Add(float64(amount))
	publishEvent(ctx, s.bus, s.logger, domain.ChannelBets, domain.BetPlaced{
		Event:       domain.EventBetPlaced,
		Participant: participant,
		MarketID:    marketID,
		Outcome:     outcome,
		Amount:      amount,
	})
	auditLog(ctx, s.audit, s.logger, domain.EventBetPlaced, map[string]any{
		"market_id":   marketID,
		"participant": participant.String(),
		"outcome":     string(outcome),
		"amount":      amount,
	})

	s.logger.InfoContext(ctx, "bet placed",
		slog.String("market_id", marketID),
		slog.String("participant", participant.String()),
		slog.String("outcome", string(outcome)),
		slog.Uint64("amount", amount),
	)
	return b, nil
}

// Claim settles the calling participant's winning bet on a resolved market
// and pays out their proportional share of the pool.
func (s *BetService) Claim(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error) {
	unlock, err := acquireLock(ctx, s.locks, betLockKey(marketID, participant))
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: lock bet %s/%s: %w", marketID, participant, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: claim load market %s: %w", marketID, err)
	}
	b, err := s.bets.Get(ctx, marketID, participant)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: claim load bet %s/%s: %w", marketID, participant, err)
	}

	winnings, err := engine.Claim(&m, &b)
	if err != nil {
		s.metrics.OperationErrors.WithLabelValues("claim").Inc()
		return domain.Bet{}, fmt.Errorf("bet_service: claim %s/%s: %w", marketID, participant, err)
	}
	b.UpdatedAt = s.clock.Now()

	// The market, owning its escrow account, authorizes the payout debit.
	if err := s.settle.ApplyClaim(ctx, m, b, winnings); err != nil {
		s.metrics.OperationErrors.WithLabelValues("claim").Inc()
		return domain.Bet{}, fmt.Errorf("bet_service: apply claim %s/%s: %w", marketID, participant, err)
	}

	s.metrics.Claims.Inc()
	s.metrics.ClaimVolume.Add(float64(winnings))
	publishEvent(ctx, s.bus, s.logger, domain.ChannelSettlements, domain.WinningsClaimed{
		Event:       domain.EventWinningsClaimed,
		Participant: participant,
		MarketID:    marketID,
		Amount:      winnings,
	})
	auditLog(ctx, s.audit, s.logger, domain.EventWinningsClaimed, map[string]any{
		"market_id":   marketID,
		"participant": participant.String(),
		"winnings":    winnings,
	})
	if err := s.notifier.Notify(ctx, domain.EventWinningsClaimed,
		"Winnings claimed",
		fmt.Sprintf("%s claimed %d on %s", participant, winnings, m.EventID),
	); err != nil {
		s.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "winnings claimed",
		slog.String("market_id", marketID),
		slog.String("participant", participant.String()),
		slog.Uint64("winnings", winnings),
	)
	return b, nil
}

// Cancel withdraws the calling participant's stake before the cancellation
// cutoff and refunds it from escrow.
func (s *BetService) Cancel(ctx context.Context, marketID string, participant domain.Address) (uint64, error) {
	unlock, err := acquireLock(ctx, s.locks, marketLockKey(marketID))
	if err != nil {
		return 0, fmt.Errorf("bet_service: lock market %s: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("bet_service: cancel load market %s: %w", marketID, err)
	}
	b, err := s.bets.Get(ctx, marketID, participant)
	if err != nil {
		return 0, fmt.Errorf("bet_service: cancel load bet %s/%s: %w", marketID, participant, err)
	}

	refund, err := engine.Cancel(&m, &b, s.clock.Now())
	if err != nil {
		s.metrics.OperationErrors.WithLabelValues("cancel").Inc()
		return 0, fmt.Errorf("bet_service: cancel %s/%s: %w", marketID, participant, err)
	}
	b.UpdatedAt = s.clock.Now()

	if err := s.settle.ApplyCancel(ctx, m, b, refund); err != nil {
		s.metrics.OperationErrors.WithLabelValues("cancel").Inc()
		return 0, fmt.Errorf("bet_service: apply cancel %s/%s: %w", marketID, participant, err)
	}

	s.metrics.Cancellations.Inc()
	publishEvent(ctx, s.bus, s.logger, domain.ChannelBets, domain.BetCancelled{
		Event:       domain.EventBetCancelled,
		Participant: participant,
		MarketID:    marketID,
		Refund:      refund,
	})
	auditLog(ctx, s.audit, s.logger, domain.EventBetCancelled, map[string]any{
		"market_id":   marketID,
		"participant": participant.String(),
		"refund":      refund,
	})

	s.logger.InfoContext(ctx, "bet cancelled",
		slog.String("market_id", marketID),
		slog.String("participant", participant.String()),
		slog.Uint64("refund", refund),
	)
	return refund, nil
}

// Get returns the participant's bet on a market.
func (s *BetService) Get(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error) {
	b, err := s.bets.Get(ctx, marketID, participant)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: get %s/%s: %w", marketID, participant, err)
	}
	return b, nil
}

// ListByMarket returns all bets on a market.
func (s *BetService) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error) {
	bets, err := s.bets.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("bet_service: list by market %s: %w", marketID, err)
	}
	return bets, nil
}

// ListByParticipant returns a participant's bets across all markets.
func (s *BetService) ListByParticipant(ctx context.Context, participant domain.Address, opts domain.ListOpts) ([]domain.Bet, error) {
	bets, err := s.bets.ListByParticipant(ctx, participant, opts)
	if err != nil {
		return nil, fmt.Errorf("bet_service: list by participant %s: %w", participant, err)
	}
	return bets, nil
}

// Leaderboard returns the top participants by cumulative winnings.
func (s *BetService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	entries, err := s.leaderboard.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("bet_service: leaderboard: %w", err)
	}
	return entries, nil
}
