package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/pkg/clock"
)

// Store owns token issuance and single-use redemption.
type Store struct {
	repo Repository
	clk  clock.Clock
	ttl  time.Duration
}

// StoreOption defines configuration options
type StoreOption func(*Store)

// WithTTL sets the token expiration duration
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock sets the time source
func WithClock(clk clock.Clock) StoreOption {
	return func(s *Store) {
		s.clk = clk
	}
}

// NewStore creates a new token store
func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo: repo,
		clk:  clock.System(),
		ttl:  24 * time.Hour, // Default 24 hours
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// generateValue generates a cryptographically secure random token value
func generateValue() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Issue creates and persists a fresh token for the account. Multiple
// outstanding tokens per account are permitted; redeeming any valid one
// succeeds.
func (s *Store) Issue(ctx context.Context, accountID uuid.UUID) (*Token, error) {
	value, err := generateValue()
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	token := &Token{
		ID:        uuid.New(),
		AccountID: accountID,
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Insert(ctx, token); err != nil {
		slog.Error("Failed to insert verification token", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to create verification token: %w", err)
	}

	slog.Info("Verification token issued", "account_id", accountID, "token_id", token.ID, "expires_at", token.ExpiresAt)
	return token, nil
}

// Redeem attempts to consume a token. Under concurrent calls with the
// same value exactly one caller observes Success; the rest observe
// AlreadyUsed. An already-used token reports AlreadyUsed regardless of
// how old it is; expiry only applies to tokens that were never used.
func (s *Store) Redeem(ctx context.Context, value string) (RedemptionResult, error) {
	token, err := s.repo.GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return RedemptionResult{Status: RedemptionNotFound}, nil
		}
		return RedemptionResult{}, err
	}

	if token.UsedAt != nil {
		slog.Warn("Token already used", "token_id", token.ID, "used_at", *token.UsedAt)
		return RedemptionResult{Status: RedemptionAlreadyUsed}, nil
	}

	now := s.clk.Now()
	if !now.Before(token.ExpiresAt) {
		slog.Warn("Token expired", "token_id", token.ID, "expires_at", token.ExpiresAt)
		return RedemptionResult{Status: RedemptionExpired}, nil
	}

	won, err := s.repo.ConsumeIfUnused(ctx, value, now)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return RedemptionResult{Status: RedemptionNotFound}, nil
		}
		return RedemptionResult{}, err
	}
	if !won {
		// Lost the compare-and-set race to a concurrent redemption.
		slog.Warn("Token consumed concurrently", "token_id", token.ID)
		return RedemptionResult{Status: RedemptionAlreadyUsed}, nil
	}

	slog.Info("Token redeemed", "token_id", token.ID, "account_id", token.AccountID)
	return RedemptionResult{Status: RedemptionSuccess, AccountID: token.AccountID}, nil
}
