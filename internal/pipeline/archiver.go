// Package pipeline contains background jobs that run alongside the API
// server. The settlement archiver exports resolved markets and their bets to
// object storage once the retention window has passed.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/poolbet/poolbet/internal/domain"
)

// Archiver exports settled markets older than the retention window to cold
// storage. Resolved markets are immutable, so an export never races a write.
type Archiver struct {
	markets       domain.MarketStore
	bets          domain.BetStore
	blob          domain.BlobWriter
	clock         domain.Clock
	retentionDays int
	batchSize     int
	logger        *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(
	markets domain.MarketStore,
	bets domain.BetStore,
	blob domain.BlobWriter,
	clock domain.Clock,
	retentionDays int,
	batchSize int,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		markets:       markets,
		bets:          bets,
		blob:          blob,
		clock:         clock,
		retentionDays: retentionDays,
		batchSize:     batchSize,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// archiveDoc is the JSON document written per market.
type archiveDoc struct {
	Market     domain.Market `json:"market"`
	Bets       []domain.Bet  `json:"bets"`
	ExportedAt time.Time     `json:"exported_at"`
}

// Run executes a single archive pass: every market resolved before the
// retention cutoff is exported as one JSON object under
// settlements/<year>/<market-id>.json. It returns the number of markets
// exported.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	cutoff := a.clock.Now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.Info("starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	exported := 0
	for offset := 0; ; offset += a.batchSize {
		markets, err := a.markets.ListResolvedBefore(ctx, cutoff, domain.ListOpts{
			Limit:  a.batchSize,
			Offset: offset,
		})
		if err != nil {
			return exported, fmt.Errorf("pipeline: list resolved markets: %w", err)
		}
		if len(markets) == 0 {
			break
		}

		for _, m := range markets {
			if err := a.exportMarket(ctx, m); err != nil {
				return exported, err
			}
			exported++
		}
	}

	a.logger.Info("archive run complete", slog.Int("markets_exported", exported))
	return exported, nil
}

// exportMarket writes one market and its bets as a JSON document.
func (a *Archiver) exportMarket(ctx context.Context, m domain.Market) error {
	bets, err := a.bets.ListByMarket(ctx, m.ID, domain.ListOpts{Limit: 10_000})
	if err != nil {
		return fmt.Errorf("pipeline: list bets for %s: %w", m.ID, err)
	}

	doc := archiveDoc{
		Market:     m,
		Bets:       bets,
		ExportedAt: a.clock.Now().UTC(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal market %s: %w", m.ID, err)
	}

	key := archiveKey(m)
	if err := a.blob.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("pipeline: upload %s: %w", key, err)
	}

	a.logger.Debug("exported market",
		slog.String("market_id", m.ID),
		slog.String("key", key),
		slog.Int("bets", len(bets)),
	)
	return nil
}

// archiveKey builds the object key for a market export, partitioned by the
// year the market resolved.
func archiveKey(m domain.Market) string {
	year := m.StartTime.UTC().Year()
	if m.ResolvedAt != nil {
		year = m.ResolvedAt.UTC().Year()
	}
	return fmt.Sprintf("settlements/%d/%s.json", year, m.ID)
}

// RunEvery runs archive passes at the given interval until the context is
// cancelled. Failures are logged; the next tick retries.
func (a *Archiver) RunEvery(ctx context.Context, interval time.Duration) error {
	a.logger.Info("archiver started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
