// Package verification orchestrates the email verification flow for
// tasknest accounts.
//
// This package ties the token store, the resend rate limiter, the
// account directory and the messaging gateway together behind the
// operations the HTTP layer exposes.
//
// # Overview
//
// The verification package provides:
//   - Initial verification send on signup
//   - Self-service resend with cooldown and daily-cap limiting
//   - Single-use token redemption that flips the account's verified flag
//   - Session access derivation (Limited vs Full) from the account record
//
// # Basic Usage
//
//	import "github.com/tasknest/tasknest/pkg/verification"
//
//	// Create service
//	service := verification.NewService(
//		directory,
//		tokenRepo,
//		counterRepo,
//		gateway,
//		"https://app.example.com",
//		verification.WithTokenTTL(24*time.Hour),
//		verification.WithResendCooldown(60*time.Second),
//		verification.WithResendDailyCap(5),
//	)
//
//	// Send the initial link after signup
//	outcome, err := service.RequestSignupVerification(ctx, accountID)
//
//	// User clicks the link, frontend calls the verify endpoint
//	result, err := service.AttemptRedemption(ctx, tokenValue)
//
//	// Derive the session access mode for any protected request
//	sa := service.GetSessionAccess(ctx, accountID)
//
// # Resend Flow
//
//	outcome, err := service.RequestResend(ctx, accountID)
//	switch outcome.Status {
//	case verification.IssueAccepted:
//		// new token generated and sent
//	case verification.IssueCooldownBlocked:
//		// wait outcome.RetryAfter before trying again
//	case verification.IssueDailyLimitBlocked:
//		// try again tomorrow
//	case verification.IssueAlreadyVerified:
//		// nothing to do
//	}
//
// Already verified accounts never reach the limiter, and the automatic
// signup send does not count against the resend cap.
package verification
