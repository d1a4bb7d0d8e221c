package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/poolbet/poolbet/internal/domain"
)

// BetService defines the methods the bet handler requires from the service
// layer.
type BetService interface {
	Place(ctx context.Context, marketID string, participant domain.Address, outcome domain.Outcome, amount uint64) (domain.Bet, error)
	Claim(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error)
	Cancel(ctx context.Context, marketID string, participant domain.Address) (uint64, error)
	Get(ctx context.Context, marketID string, participant domain.Address) (domain.Bet, error)
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error)
	ListByParticipant(ctx context.Context, participant domain.Address, opts domain.ListOpts) ([]domain.Bet, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// BetHandler serves bet-related HTTP endpoints.
type BetHandler struct {
	bets   BetService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(bets BetService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		logger: logger,
	}
}

// placeBetRequest is the body of POST /api/bets.
type placeBetRequest struct {
	MarketID string `json:"market_id"`
	Outcome  string `json:"outcome"`
	Amount   uint64 `json:"amount"`
}

// PlaceBet stakes an amount on an outcome for the signing participant.
// POST /api/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}

	var req placeBetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.MarketID == "" {
		writeError(w, http.StatusBadRequest, "missing market_id")
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	b, err := h.bets.Place(r.Context(), req.MarketID, addr, outcome, req.Amount)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: place bet failed",
			slog.String("market_id", req.MarketID),
			slog.String("participant", addr.String()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, b)
}

// ClaimBet settles the signer's winning bet on a resolved market.
// POST /api/markets/{id}/claim
func (h *BetHandler) ClaimBet(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	b, err := h.bets.Claim(r.Context(), id, addr)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: claim failed",
			slog.String("market_id", id),
			slog.String("participant", addr.String()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// cancelBetResponse is the body returned by a successful cancellation.
type cancelBetResponse struct {
	MarketID string `json:"market_id"`
	Refund   uint64 `json:"refund"`
}

// CancelBet withdraws the signer's stake before the cancellation cutoff.
// POST /api/markets/{id}/cancel
func (h *BetHandler) CancelBet(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	refund, err := h.bets.Cancel(r.Context(), id, addr)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: cancel failed",
			slog.String("market_id", id),
			slog.String("participant", addr.String()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cancelBetResponse{MarketID: id, Refund: refund})
}

// listBetsResponse wraps the list endpoints' output.
type listBetsResponse struct {
	Bets   []domain.Bet `json:"bets"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListBets returns bets for a market, or the signer's bets across markets
// when no market_id query parameter is given.
// GET /api/bets?market_id=...&limit=50&offset=0
func (h *BetHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		bets []domain.Bet
		err  error
	)
	if marketID := r.URL.Query().Get("market_id"); marketID != "" {
		bets, err = h.bets.ListByMarket(r.Context(), marketID, opts)
	} else {
		addr, ok := caller(w, r)
		if !ok {
			return
		}
		bets, err = h.bets.ListByParticipant(r.Context(), addr, opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list bets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}

	if bets == nil {
		bets = []domain.Bet{}
	}
	writeJSON(w, http.StatusOK, listBetsResponse{
		Bets:   bets,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetBet returns the signer's bet on a market.
// GET /api/markets/{id}/bet
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	b, err := h.bets.Get(r.Context(), id, addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Leaderboard returns the top participants by cumulative winnings.
// GET /api/leaderboard?limit=50
func (h *BetHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	entries, err := h.bets.Leaderboard(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to build leaderboard")
		return
	}

	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}
