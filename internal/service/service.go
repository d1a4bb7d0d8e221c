// Package service orchestrates the pari-mutuel state machine: it loads
// records, runs engine transitions under the market's lock, persists the
// result atomically, and fans out events to the bus, audit log, and
// notification channels.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/poolbet/poolbet/internal/domain"
)

const (
	// lockTTL bounds how long a crashed holder can block a market.
	lockTTL = 10 * time.Second

	// lockAttempts and lockBackoff tune the bounded retry when another
	// writer holds the market's lock.
	lockAttempts = 5
	lockBackoff  = 50 * time.Millisecond
)

// marketLockKey is the lock key guarding all pool-total mutations of a
// market.
func marketLockKey(marketID string) string {
	return "market:" + marketID
}

// betLockKey guards claim settlement of a single bet, so two concurrent
// claims cannot both observe the bet as unclaimed.
func betLockKey(marketID string, participant domain.Address) string {
	return "bet:" + marketID + ":" + participant.String()
}

// acquireLock obtains a distributed lock with a bounded retry on
// ErrLockHeld. Any other error is returned immediately.
func acquireLock(ctx context.Context, locks domain.LockManager, key string) (func(), error) {
	var lastErr error
	for i := 0; i < lockAttempts; i++ {
		unlock, err := locks.Acquire(ctx, key, lockTTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, err
		}
		lastErr = err

		timer := time.NewTimer(lockBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// publishEvent marshals an event and publishes it on the bus. Publish
// failures are logged and swallowed: the state transition has already
// committed and observers are best-effort.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "marshal event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// auditLog appends an audit entry, logging but not failing on error. The
// audit trail is advisory; the settlement transaction is the record of
// truth.
func auditLog(ctx context.Context, audit domain.AuditStore, logger *slog.Logger, event string, detail map[string]any) {
	if err := audit.Log(ctx, event, detail); err != nil {
		logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
