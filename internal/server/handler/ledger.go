package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/poolbet/poolbet/internal/domain"
)

// LedgerService defines the methods the ledger handler requires.
type LedgerService interface {
	Balance(ctx context.Context, participant domain.Address) (uint64, error)
	Deposit(ctx context.Context, participant domain.Address, amount uint64) (uint64, error)
}

// LedgerHandler serves balance and faucet endpoints.
type LedgerHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewLedgerHandler creates a LedgerHandler with the given service and logger.
func NewLedgerHandler(ledger LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: logger,
	}
}

// balanceResponse is the body of balance and faucet responses.
type balanceResponse struct {
	Participant domain.Address `json:"participant"`
	Balance     uint64         `json:"balance"`
}

// GetBalance returns the signer's ledger balance.
// GET /api/balance
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(r.Context(), addr)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: balance failed",
			slog.String("participant", addr.String()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{Participant: addr, Balance: balance})
}

// faucetRequest is the body of POST /api/faucet.
type faucetRequest struct {
	Amount uint64 `json:"amount"`
}

// Faucet credits the signer's account from the development faucet. Returns
// 403 when the faucet is disabled.
// POST /api/faucet
func (h *LedgerHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}

	var req faucetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	balance, err := h.ledger.Deposit(r.Context(), addr, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{Participant: addr, Balance: balance})
}
