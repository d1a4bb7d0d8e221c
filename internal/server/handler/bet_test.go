package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/server/middleware"
)

type fakeBetService struct {
	placed  domain.Bet
	claimed domain.Bet
	refund  uint64
	err     error
}

func (f *fakeBetService) Place(ctx context.Context, marketID string, participant domain.Address, outcome domain.Outcome, amount uint64) (domain.Bet, error) {
	return f.placed, f.err
}

func (f *fakeBetService) Claim(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error) {
	return f.claimed, f.err
}

func (f *fakeBetService) Cancel(ctx context.Context, marketID string, participant domain.Address) (uint64, error) {
	return f.refund, f.err
}

func (f *fakeBetService) Get(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error) {
	return f.placed, f.err
}

func (f *fakeBetService) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error) {
	return []domain.Bet{f.placed}, f.err
}

func (f *fakeBetService) ListByParticipant(ctx context.Context, participant domain.Address, opts domain.ListOpts) ([]domain.Bet, error) {
	return []domain.Bet{f.placed}, f.err
}

func (f *fakeBetService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return nil, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signedAs(r *http.Request, addr domain.Address) *http.Request {
	return r.WithContext(middleware.WithCaller(r.Context(), addr))
}

func TestPlaceBet(t *testing.T) {
	svc := &fakeBetService{placed: domain.Bet{
		MarketID:    "m1",
		Participant: "0xa11ce",
		Outcome:     domain.OutcomeA,
		Amount:      1000,
		Status:      domain.BetStatusActive,
	}}
	h := NewBetHandler(svc, discardLogger())

	body := `{"market_id":"m1","outcome":"a","amount":1000}`
	req := signedAs(httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(body)), "0xa11ce")
	rec := httptest.NewRecorder()
	h.PlaceBet(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var got domain.Bet
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Amount != 1000 || got.Outcome != domain.OutcomeA {
		t.Fatalf("unexpected bet: %+v", got)
	}
}

func TestPlaceBetUnsigned(t *testing.T) {
	h := NewBetHandler(&fakeBetService{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(`{"market_id":"m1","outcome":"a","amount":1}`))
	rec := httptest.NewRecorder()
	h.PlaceBet(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPlaceBetInvalidOutcome(t *testing.T) {
	h := NewBetHandler(&fakeBetService{}, discardLogger())

	body := `{"market_id":"m1","outcome":"c","amount":1000}`
	req := signedAs(httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(body)), "0xa11ce")
	rec := httptest.NewRecorder()
	h.PlaceBet(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPlaceBetDomainErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrMarketClosed, http.StatusConflict},
		{domain.ErrInsufficientFunds, http.StatusPaymentRequired},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrLockHeld, http.StatusServiceUnavailable},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
	}
	for _, tc := range cases {
		h := NewBetHandler(&fakeBetService{err: tc.err}, discardLogger())
		body := `{"market_id":"m1","outcome":"a","amount":1000}`
		req := signedAs(httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(body)), "0xa11ce")
		rec := httptest.NewRecorder()
		h.PlaceBet(rec, req)

		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestCancelBet(t *testing.T) {
	h := NewBetHandler(&fakeBetService{refund: 750}, discardLogger())

	req := signedAs(httptest.NewRequest(http.MethodPost, "/api/markets/m1/cancel", nil), "0xa11ce")
	req.SetPathValue("id", "m1")
	rec := httptest.NewRecorder()
	h.CancelBet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got cancelBetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Refund != 750 {
		t.Fatalf("refund = %d, want 750", got.Refund)
	}
}

func TestClaimBetTooEarly(t *testing.T) {
	h := NewBetHandler(&fakeBetService{err: domain.ErrNotResolved}, discardLogger())

	req := signedAs(httptest.NewRequest(http.MethodPost, "/api/markets/m1/claim", nil), "0xa11ce")
	req.SetPathValue("id", "m1")
	rec := httptest.NewRecorder()
	h.ClaimBet(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
