package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory implements Directory backed by PostgreSQL.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory creates a new PostgreSQL-backed account directory
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// CreateAccount creates a new unverified account. Emails are stored
// lowercased so comparisons stay case-insensitive.
func (d *PostgresDirectory) CreateAccount(ctx context.Context, email string) (*Account, error) {
	query := `
		INSERT INTO accounts (id, email)
		VALUES ($1, $2)
		RETURNING id, email, verified, verified_at, created_at
	`

	var a Account
	err := d.db.QueryRow(ctx, query, uuid.New(), strings.ToLower(email)).Scan(
		&a.ID,
		&a.Email,
		&a.Verified,
		&a.VerifiedAt,
		&a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return &a, nil
}

// GetAccount retrieves an account by id
func (d *PostgresDirectory) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	query := `
		SELECT id, email, verified, verified_at, created_at
		FROM accounts
		WHERE id = $1
	`

	var a Account
	err := d.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.Email,
		&a.Verified,
		&a.VerifiedAt,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &a, nil
}

// GetAccountByEmail retrieves an account by email, case-insensitively
func (d *PostgresDirectory) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT id, email, verified, verified_at, created_at
		FROM accounts
		WHERE email = $1
	`

	var a Account
	err := d.db.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&a.ID,
		&a.Email,
		&a.Verified,
		&a.VerifiedAt,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &a, nil
}

// SetVerified marks an account as verified. The WHERE clause keeps the
// flag monotonic: a second call changes nothing.
func (d *PostgresDirectory) SetVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET verified = TRUE,
		    verified_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
		AND verified = FALSE
	`

	_, err := d.db.Exec(ctx, query, id)
	return err
}
