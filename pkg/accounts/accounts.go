package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Account is the directory record the verification subsystem reads.
// Verified is monotonic: it moves false -> true exactly once and never
// reverts.
type Account struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Directory is the account store consumed by the verification
// subsystem. Everything else about accounts (credentials, deletion,
// profile data) lives behind other services.
type Directory interface {
	CreateAccount(ctx context.Context, email string) (*Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	// SetVerified flips the verified flag. Idempotent: calling it on an
	// already verified account is harmless.
	SetVerified(ctx context.Context, id uuid.UUID) error
}

var (
	// ErrAccountNotFound is returned when an account is not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailTaken is returned when creating an account with an email that already exists
	ErrEmailTaken = errors.New("email already registered")
)
