package resendlimit

import (
	"time"

	"github.com/google/uuid"
)

// Counter is the per-account, per-UTC-day bookkeeping row. A missing
// row behaves as a fresh counter: day rollover needs no reset job, the
// next day simply reads a different DayKey.
type Counter struct {
	AccountID    uuid.UUID  `json:"account_id"`
	DayKey       string     `json:"day_key"`
	Count        int        `json:"count"`
	LastIssuedAt *time.Time `json:"last_issued_at,omitempty"`
}

// DayKey derives the UTC calendar-day bucket key for t.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// OutcomeStatus classifies a resend permission check.
type OutcomeStatus string

const (
	Accepted          OutcomeStatus = "accepted"
	CooldownBlocked   OutcomeStatus = "cooldown_blocked"
	DailyLimitBlocked OutcomeStatus = "daily_limit_blocked"
)

// Outcome is the result of CheckAndRecord. RetryAfter is populated for
// cooldown blocks.
type Outcome struct {
	Status     OutcomeStatus
	RetryAfter time.Duration
}
