package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/engine"
	"github.com/poolbet/poolbet/internal/metrics"
	"github.com/poolbet/poolbet/internal/notify"
)

// marketNamespace seeds market ID derivation. Deriving the ID from the event
// ID makes a second market for the same event collide deterministically
// instead of depending on the database constraint alone.
var marketNamespace = uuid.MustParse("8f7a1c2e-54d3-4a7b-9c41-2f8e6b0a9d17")

// maxLabelLen bounds event IDs and outcome labels.
const maxLabelLen = 60

// CreateMarketParams carries the inputs for opening a market.
type CreateMarketParams struct {
	EventID       string
	OutcomeLabelA string
	OutcomeLabelB string
	StartTime     time.Time
	OracleRef     string
	Authority     domain.Address
}

// MarketService handles market creation, resolution, and reads.
type MarketService struct {
	markets  domain.MarketStore
	settle   domain.SettlementStore
	cache    domain.MarketCache
	locks    domain.LockManager
	bus      domain.SignalBus
	audit    domain.AuditStore
	clock    domain.Clock
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	settle domain.SettlementStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	notifier *notify.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:  markets,
		settle:   settle,
		cache:    cache,
		locks:    locks,
		bus:      bus,
		audit:    audit,
		clock:    clock,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With(slog.String("component", "market_service")),
	}
}

// MarketID derives the deterministic market ID for an event.
func MarketID(eventID string) string {
	return uuid.NewSHA1(marketNamespace, []byte(eventID)).String()
}

// EscrowAccount derives the escrow ledger account owned by a market.
func EscrowAccount(marketID string) string {
	return "escrow:" + marketID
}

// Create opens a new market for an event. The market ID and escrow account
// are derived from the event ID, so duplicate creations fail with
// ErrAlreadyExists.
func (s *MarketService) Create(ctx context.Context, p CreateMarketParams) (domain.Market, error) {
	if p.EventID == "" || len(p.EventID) > maxLabelLen {
		return domain.Market{}, fmt.Errorf("market_service: event id length: %w", domain.ErrInvalidMarket)
	}
	if len(p.OutcomeLabelA) > maxLabelLen || len(p.OutcomeLabelB) > maxLabelLen {
		return domain.Market{}, fmt.Errorf("market_service: outcome label length: %w", domain.ErrInvalidMarket)
	}
	if p.Authority.Zero() {
		return domain.Market{}, fmt.Errorf("market_service: missing authority: %w", domain.ErrUnauthorized)
	}

	id := MarketID(p.EventID)
	now := s.clock.Now()
	m := domain.Market{
		ID:             id,
		EventID:        p.EventID,
		Authority:      p.Authority,
		OutcomeLabelA:  p.OutcomeLabelA,
		OutcomeLabelB:  p.OutcomeLabelB,
		StartTime:      p.StartTime,
		OracleRef:      p.OracleRef,
		EscrowAccount:  EscrowAccount(id),
		WinningOutcome: domain.OutcomePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create %q: %w", p.EventID, err)
	}

	s.metrics.MarketsCreated.Inc()
	s.metrics.OpenMarkets.Inc()
	publishEvent(ctx, s.bus, s.logger, domain.ChannelMarkets, domain.MarketCreated{
		Event:     domain.EventMarketCreated,
		MarketID:  m.ID,
		EventID:   m.EventID,
		StartTime: m.StartTime,
	})
	auditLog(ctx, s.audit, s.logger, domain.EventMarketCreated, map[string]any{
		"market_id": m.ID,
		"event_id":  m.EventID,
	})
	if err := s.notifier.Notify(ctx, domain.EventMarketCreated,
		"Market created",
		fmt.Sprintf("%s vs %s (%s)", m.OutcomeLabelA, m.OutcomeLabelB, m.EventID),
	); err != nil {
		s.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "market created",
		slog.String("market_id", m.ID),
		slog.String("event_id", m.EventID),
		slog.Time("start_time", m.StartTime),
	)
	return m, nil
}

// Resolve commits the winning outcome of a market. Only the market's
// authority may call it, and only after the completion buffer has elapsed.
func (s *MarketService) Resolve(ctx context.Context, marketID string, caller domain.Address, winning domain.Outcome) (domain.Market, error) {
	unlock, err := acquireLock(ctx, s.locks, marketLockKey(marketID))
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: lock market %s: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: resolve load %s: %w", marketID, err)
	}
	if m.Authority != caller {
		return domain.Market{}, fmt.Errorf("market_service: resolve %s by %s: %w", marketID, caller, domain.ErrUnauthorized)
	}

	if err := engine.Resolve(&m, winning, s.clock.Now()); err != nil {
		s.metrics.OperationErrors.WithLabelValues("resolve").Inc()
		return domain.Market{}, fmt.Errorf("market_service: resolve %s: %w", marketID, err)
	}

	if err := s.settle.ApplyResolution(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: persist resolution %s: %w", marketID, err)
	}

	// Resolved markets are immutable; cache for claim-path reads. Failure
	// is non-fatal, claims fall back to the store.
	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "cache resolved market failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.MarketsResolved.Inc()
	s.metrics.OpenMarkets.Dec()
	publishEvent(ctx, s.bus, s.logger, domain.ChannelMarkets, domain.MarketResolved{
		Event:          domain.EventMarketResolved,
		MarketID:       m.ID,
		WinningOutcome: m.WinningOutcome,
		TotalPool:      m.PayoutPool,
	})
	auditLog(ctx, s.audit, s.logger, domain.EventMarketResolved, map[string]any{
		"market_id":       m.ID,
		"winning_outcome": string(m.WinningOutcome),
		"payout_pool":     m.PayoutPool,
		"winning_pool":    m.WinningPool,
	})
	if err := s.notifier.Notify(ctx, domain.EventMarketResolved,
		"Market resolved",
		fmt.Sprintf("%s settled on %q, pool %d", m.EventID, m.WinningOutcome, m.PayoutPool),
	); err != nil {
		s.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "market resolved",
		slog.String("market_id", m.ID),
		slog.String("winning_outcome", string(m.WinningOutcome)),
		slog.Uint64("payout_pool", m.PayoutPool),
		slog.Uint64("winning_pool", m.WinningPool),
	)
	return m, nil
}

// Get retrieves a market by ID, preferring the resolved-market cache.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	if m, err := s.cache.Get(ctx, id); err == nil {
		return m, nil
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}

	if m.Resolved {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return m, nil
}

// ListOpen returns unresolved markets from the store.
func (s *MarketService) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListOpen(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list open: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}
