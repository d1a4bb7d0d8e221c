package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poolbet/poolbet/internal/domain"
)

// LedgerService exposes account balances and, when the faucet is enabled,
// development deposits.
type LedgerService struct {
	ledger        domain.LedgerStore
	faucetEnabled bool
	faucetMax     uint64
	logger        *slog.Logger
}

// NewLedgerService creates a LedgerService. faucetMax caps a single faucet
// deposit; it is ignored when the faucet is disabled.
func NewLedgerService(ledger domain.LedgerStore, faucetEnabled bool, faucetMax uint64, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		ledger:        ledger,
		faucetEnabled: faucetEnabled,
		faucetMax:     faucetMax,
		logger:        logger.With(slog.String("component", "ledger_service")),
	}
}

// Balance returns the participant's ledger balance, creating the account at
// zero on first sight.
func (s *LedgerService) Balance(ctx context.Context, participant domain.Address) (uint64, error) {
	account := participant.String()
	if err := s.ledger.EnsureAccount(ctx, account, participant); err != nil {
		return 0, fmt.Errorf("ledger_service: ensure account %s: %w", account, err)
	}
	balance, err := s.ledger.Balance(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("ledger_service: balance %s: %w", account, err)
	}
	return balance, nil
}

// Deposit credits the participant's account from the development faucet.
// It fails with ErrUnauthorized when the faucet is disabled and
// ErrInvalidAmount when amount is zero or above the per-call cap.
func (s *LedgerService) Deposit(ctx context.Context, participant domain.Address, amount uint64) (uint64, error) {
	if !s.faucetEnabled {
		return 0, fmt.Errorf("ledger_service: faucet disabled: %w", domain.ErrUnauthorized)
	}
	if amount == 0 || amount > s.faucetMax {
		return 0, fmt.Errorf("ledger_service: deposit of %d: %w", amount, domain.ErrInvalidAmount)
	}

	account := participant.String()
	if err := s.ledger.EnsureAccount(ctx, account, participant); err != nil {
		return 0, fmt.Errorf("ledger_service: ensure account %s: %w", account, err)
	}
	if err := s.ledger.Deposit(ctx, account, amount); err != nil {
		return 0, fmt.Errorf("ledger_service: deposit %s: %w", account, err)
	}

	balance, err := s.ledger.Balance(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("ledger_service: balance %s: %w", account, err)
	}

	s.logger.InfoContext(ctx, "faucet deposit",
		slog.String("participant", account),
		slog.Uint64("amount", amount),
		slog.Uint64("balance", balance),
	)
	return balance, nil
}
