package tokenstore

import (
	"time"

	"github.com/google/uuid"
)

// Token is a single-use email verification secret. A token is valid
// iff UsedAt is nil and the clock has not reached ExpiresAt.
type Token struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	Value     string     `json:"value"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// RedemptionStatus classifies the outcome of a redemption attempt.
type RedemptionStatus string

const (
	RedemptionSuccess     RedemptionStatus = "success"
	RedemptionNotFound    RedemptionStatus = "not_found"
	RedemptionExpired     RedemptionStatus = "expired"
	RedemptionAlreadyUsed RedemptionStatus = "already_used"
)

// RedemptionResult carries the status of a redemption attempt and, on
// success, the account that owned the token.
type RedemptionResult struct {
	Status    RedemptionStatus
	AccountID uuid.UUID
}
