package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/poolbet/poolbet/internal/domain"
)

type stubMarketStore struct {
	resolved []domain.Market
}

func (s *stubMarketStore) Create(ctx context.Context, m domain.Market) error { return nil }
func (s *stubMarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	return domain.Market{}, domain.ErrNotFound
}
func (s *stubMarketStore) GetByEventID(ctx context.Context, eventID string) (domain.Market, error) {
	return domain.Market{}, domain.ErrNotFound
}
func (s *stubMarketStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return nil, nil
}
func (s *stubMarketStore) ListResolvedBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Market, error) {
	if opts.Offset >= len(s.resolved) {
		return nil, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(s.resolved) {
		end = len(s.resolved)
	}
	return s.resolved[opts.Offset:end], nil
}
func (s *stubMarketStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.resolved)), nil
}

type stubBetStore struct {
	byMarket map[string][]domain.Bet
}

func (s *stubBetStore) Get(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error) {
	return domain.Bet{}, domain.ErrNotFound
}
func (s *stubBetStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error) {
	return s.byMarket[marketID], nil
}
func (s *stubBetStore) ListByParticipant(ctx context.Context, participant domain.Address, opts domain.ListOpts) ([]domain.Bet, error) {
	return nil, nil
}

type memBlob struct {
	objects map[string][]byte
}

func (b *memBlob) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	b.objects[path] = buf
	return nil
}

func TestArchiverExportsResolvedMarkets(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	resolvedAt := now.AddDate(0, -6, 0)

	markets := make([]domain.Market, 3)
	for i := range markets {
		id := string(rune('a' + i))
		markets[i] = domain.Market{
			ID:             "market-" + id,
			EventID:        "event-" + id,
			StartTime:      resolvedAt.Add(-4 * time.Hour),
			Resolved:       true,
			WinningOutcome: domain.OutcomeA,
			ResolvedAt:     &resolvedAt,
			PayoutPool:     4000,
			WinningPool:    1000,
		}
	}

	bets := &stubBetStore{byMarket: map[string][]domain.Bet{
		"market-a": {{MarketID: "market-a", Participant: "0xa11ce", Amount: 1000}},
	}}
	blob := &memBlob{}
	clock := domain.ClockFunc(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// batchSize 2 forces pagination across two pages.
	a := NewArchiver(&stubMarketStore{resolved: markets}, bets, blob, clock, 90, 2, logger)
	exported, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if exported != 3 {
		t.Fatalf("exported = %d, want 3", exported)
	}

	key := "settlements/2025/market-a.json"
	data, ok := blob.objects[key]
	if !ok {
		t.Fatalf("object %s not written; got keys %v", key, keys(blob.objects))
	}

	var doc archiveDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if doc.Market.ID != "market-a" {
		t.Fatalf("exported market = %s", doc.Market.ID)
	}
	if len(doc.Bets) != 1 || doc.Bets[0].Amount != 1000 {
		t.Fatalf("exported bets = %+v", doc.Bets)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
