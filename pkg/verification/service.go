package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/pkg/access"
	"github.com/tasknest/tasknest/pkg/accounts"
	"github.com/tasknest/tasknest/pkg/clock"
	"github.com/tasknest/tasknest/pkg/notification"
	"github.com/tasknest/tasknest/pkg/resendlimit"
	"github.com/tasknest/tasknest/pkg/tokenstore"
)

// IssueStatus classifies the outcome of an issuance request.
type IssueStatus string

const (
	IssueAccepted          IssueStatus = "accepted"
	IssueAlreadyVerified   IssueStatus = "already_verified"
	IssueCooldownBlocked   IssueStatus = "cooldown_blocked"
	IssueDailyLimitBlocked IssueStatus = "daily_limit_blocked"
)

// IssueOutcome is the result of a signup-send or resend request.
// DeliveryFailed is set when the token was issued but the email could
// not be handed off; the token stays valid and no replacement is
// issued, the user simply retries the send later.
type IssueOutcome struct {
	Status         IssueStatus
	RetryAfter     time.Duration
	DeliveryFailed bool
}

// Service is the verification orchestrator: it ties the token store,
// the resend limiter, the account directory and the messaging gateway
// together behind the operations the HTTP layer exposes.
type Service struct {
	directory accounts.Directory
	gateway   notification.Gateway
	store     *tokenstore.Store
	limiter   *resendlimit.Limiter

	baseURL        string
	clk            clock.Clock
	tokenTTL       time.Duration
	resendCooldown time.Duration
	resendDailyCap int
}

// ServiceOption defines configuration options
type ServiceOption func(*Service)

// WithTokenTTL sets the token expiration duration
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.tokenTTL = ttl
	}
}

// WithResendCooldown sets the minimum wait between two accepted resends
func WithResendCooldown(cooldown time.Duration) ServiceOption {
	return func(s *Service) {
		s.resendCooldown = cooldown
	}
}

// WithResendDailyCap sets the maximum accepted resends per UTC day
func WithResendDailyCap(cap int) ServiceOption {
	return func(s *Service) {
		s.resendDailyCap = cap
	}
}

// WithClock sets the time source
func WithClock(clk clock.Clock) ServiceOption {
	return func(s *Service) {
		s.clk = clk
	}
}

// NewService creates a new verification orchestrator
func NewService(
	directory accounts.Directory,
	tokenRepo tokenstore.Repository,
	counterRepo resendlimit.Repository,
	gateway notification.Gateway,
	baseURL string,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		directory:      directory,
		gateway:        gateway,
		baseURL:        baseURL,
		clk:            clock.System(),
		tokenTTL:       24 * time.Hour,   // Default 24 hours
		resendCooldown: 60 * time.Second, // Default 60 second cooldown
		resendDailyCap: 5,                // Default 5 resends per day
	}

	for _, opt := range opts {
		opt(s)
	}

	s.store = tokenstore.NewStore(tokenRepo,
		tokenstore.WithTTL(s.tokenTTL),
		tokenstore.WithClock(s.clk),
	)
	s.limiter = resendlimit.NewLimiter(counterRepo,
		resendlimit.WithCooldown(s.resendCooldown),
		resendlimit.WithDailyCap(s.resendDailyCap),
		resendlimit.WithClock(s.clk),
	)

	return s
}

// verificationURL builds the link delivered to the user
func (s *Service) verificationURL(tokenValue string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, tokenValue)
}

// issueAndDeliver issues a token and hands the link to the gateway. A
// delivery failure never rolls back the issuance: the token and the
// recorded attempt remain valid artifacts.
func (s *Service) issueAndDeliver(ctx context.Context, account *accounts.Account) (IssueOutcome, error) {
	token, err := s.store.Issue(ctx, account.ID)
	if err != nil {
		return IssueOutcome{}, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.gateway.Deliver(ctx, account.Email, s.verificationURL(token.Value)); err != nil {
		slog.Error("Failed to deliver verification email", "account_id", account.ID, "error", err)
		return IssueOutcome{Status: IssueAccepted, DeliveryFailed: true}, nil
	}

	return IssueOutcome{Status: IssueAccepted}, nil
}

// RequestSignupVerification issues and delivers the initial token after
// signup. The automatic signup send does not count against the resend
// cap; only self-service resends pass through the limiter.
func (s *Service) RequestSignupVerification(ctx context.Context, accountID uuid.UUID) (IssueOutcome, error) {
	account, err := s.directory.GetAccount(ctx, accountID)
	if err != nil {
		slog.Error("Failed to load account for signup verification", "account_id", accountID, "error", err)
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return IssueOutcome{}, ErrAccountNotFound
		}
		return IssueOutcome{}, fmt.Errorf("failed to load account: %w", err)
	}

	if account.Verified {
		slog.Info("Email already verified", "account_id", accountID)
		return IssueOutcome{Status: IssueAlreadyVerified}, nil
	}

	return s.issueAndDeliver(ctx, account)
}

// RequestResend handles a self-service resend. Already verified
// accounts short-circuit before the limiter: no token is issued and no
// counter is incremented.
func (s *Service) RequestResend(ctx context.Context, accountID uuid.UUID) (IssueOutcome, error) {
	account, err := s.directory.GetAccount(ctx, accountID)
	if err != nil {
		slog.Error("Failed to load account for resend", "account_id", accountID, "error", err)
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return IssueOutcome{}, ErrAccountNotFound
		}
		return IssueOutcome{}, fmt.Errorf("failed to load account: %w", err)
	}

	if account.Verified {
		slog.Info("Email already verified", "account_id", accountID)
		return IssueOutcome{Status: IssueAlreadyVerified}, nil
	}

	outcome, err := s.limiter.CheckAndRecord(ctx, accountID)
	if err != nil {
		return IssueOutcome{}, fmt.Errorf("failed to check rate limit: %w", err)
	}

	switch outcome.Status {
	case resendlimit.CooldownBlocked:
		return IssueOutcome{Status: IssueCooldownBlocked, RetryAfter: outcome.RetryAfter}, nil
	case resendlimit.DailyLimitBlocked:
		return IssueOutcome{Status: IssueDailyLimitBlocked}, nil
	}

	return s.issueAndDeliver(ctx, account)
}

// AttemptRedemption consumes a token and, on success, flips the
// account's verified flag. The two effects are sequenced: the token is
// consumed first, so a failed flip burns the token rather than leaving
// it replayable. SetVerified is idempotent, so retrying a partly
// failed redemption through a fresh token is always safe.
func (s *Service) AttemptRedemption(ctx context.Context, tokenValue string) (tokenstore.RedemptionResult, error) {
	result, err := s.store.Redeem(ctx, tokenValue)
	if err != nil {
		return tokenstore.RedemptionResult{}, fmt.Errorf("failed to redeem token: %w", err)
	}

	if result.Status != tokenstore.RedemptionSuccess {
		return result, nil
	}

	if err := s.directory.SetVerified(ctx, result.AccountID); err != nil {
		slog.Error("Failed to mark account verified after redemption",
			"account_id", result.AccountID, "error", err)
		return tokenstore.RedemptionResult{}, fmt.Errorf("failed to mark account verified: %w", err)
	}

	slog.Info("Email verified", "account_id", result.AccountID)
	return result, nil
}

// GetSessionAccess recomputes the session access mode from the current
// account record. A successful redemption is visible here immediately,
// without re-authentication. Lookup failures resolve to Limited.
func (s *Service) GetSessionAccess(ctx context.Context, accountID uuid.UUID) access.SessionAccess {
	account, err := s.directory.GetAccount(ctx, accountID)
	return access.Resolve(account, err)
}
