package domain

import "errors"

// State and authorization errors. Each aborts the attempted transition with
// no partial state committed; retrying without changing inputs is pointless.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrMarketClosed    = errors.New("market is closed for staking")
	ErrMarketResolved  = errors.New("market already resolved")
	ErrInvalidOutcome  = errors.New("invalid outcome")
	ErrGameNotComplete = errors.New("event not complete")
	ErrAlreadyResolved = errors.New("already resolved")
	ErrNotResolved     = errors.New("market not resolved")
	ErrAlreadyClaimed  = errors.New("already claimed")
	ErrNotWinner       = errors.New("not a winner")
	ErrNoWinningPool   = errors.New("no winning pool")
	ErrTooLateToCancel = errors.New("too late to cancel")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidMarket   = errors.New("invalid market")
	ErrOutcomeLocked   = errors.New("bet outcome is locked by the first stake")
)

// Arithmetic errors, kept distinct from state errors so callers can tell
// "value out of representable range" apart from a precondition failure.
var (
	ErrOverflow  = errors.New("arithmetic overflow")
	ErrUnderflow = errors.New("arithmetic underflow")
)

// Collaborator and API-surface errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLockHeld          = errors.New("lock already held")
	ErrInvalidAmount     = errors.New("amount must be positive")
)
