package resendlimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/pkg/clock"
)

// Limiter decides whether a new issuance is currently permitted for an
// account and records accepted issuances. The automatic signup send
// does not pass through here; only self-service resends are capped.
type Limiter struct {
	repo     Repository
	clk      clock.Clock
	cooldown time.Duration
	dailyCap int
}

// LimiterOption defines configuration options
type LimiterOption func(*Limiter)

// WithCooldown sets the minimum wait between two accepted issuances
func WithCooldown(cooldown time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.cooldown = cooldown
	}
}

// WithDailyCap sets the maximum accepted issuances per UTC calendar day
func WithDailyCap(cap int) LimiterOption {
	return func(l *Limiter) {
		l.dailyCap = cap
	}
}

// WithClock sets the time source
func WithClock(clk clock.Clock) LimiterOption {
	return func(l *Limiter) {
		l.clk = clk
	}
}

// NewLimiter creates a new resend rate limiter
func NewLimiter(repo Repository, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		repo:     repo,
		clk:      clock.System(),
		cooldown: 60 * time.Second, // Default 60 second cooldown
		dailyCap: 5,                // Default 5 resends per day
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// CheckAndRecord attempts to record an issuance for the account. The
// increment is a single atomic step at the storage layer, so two
// concurrent resend requests inside one cooldown window resolve to
// exactly one Accepted.
func (l *Limiter) CheckAndRecord(ctx context.Context, accountID uuid.UUID) (Outcome, error) {
	now := l.clk.Now()
	dayKey := DayKey(now)
	notBefore := now.Add(-l.cooldown)

	ok, err := l.repo.IncrementIfAllowed(ctx, accountID, dayKey, now, notBefore, l.dailyCap)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to record issuance: %w", err)
	}
	if ok {
		return Outcome{Status: Accepted}, nil
	}

	// The increment was refused; re-read the counter to name the reason.
	c, err := l.repo.Get(ctx, accountID, dayKey)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load counter: %w", err)
	}
	if c == nil {
		return Outcome{}, fmt.Errorf("counter missing after refused increment")
	}

	if c.Count >= l.dailyCap {
		slog.Warn("Resend daily cap reached", "account_id", accountID, "count", c.Count, "cap", l.dailyCap)
		return Outcome{Status: DailyLimitBlocked}, nil
	}

	var remaining time.Duration
	if c.LastIssuedAt != nil {
		remaining = c.LastIssuedAt.Add(l.cooldown).Sub(now)
	}
	if remaining < 0 {
		remaining = 0
	}

	slog.Info("Resend cooldown active", "account_id", accountID, "retry_after", remaining)
	return Outcome{Status: CooldownBlocked, RetryAfter: remaining}, nil
}
