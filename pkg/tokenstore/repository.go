package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTokenNotFound is returned when a verification token is not found
var ErrTokenNotFound = errors.New("verification token not found")

// Repository defines the storage interface for verification tokens.
type Repository interface {
	Insert(ctx context.Context, token *Token) error
	GetByValue(ctx context.Context, value string) (*Token, error)
	// ConsumeIfUnused stamps used_at on the token iff it is still
	// unused. It reports whether this caller won the stamp. This is the
	// compare-and-set that makes redemption at-most-once.
	ConsumeIfUnused(ctx context.Context, value string, usedAt time.Time) (bool, error)
}

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-backed token repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a newly issued token
func (r *PostgresRepository) Insert(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO verification_tokens (id, account_id, value, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		token.ID,
		token.AccountID,
		token.Value,
		token.IssuedAt,
		token.ExpiresAt,
	)
	return err
}

// GetByValue retrieves a token by its secret value
func (r *PostgresRepository) GetByValue(ctx context.Context, value string) (*Token, error) {
	query := `
		SELECT id, account_id, value, issued_at, expires_at, used_at
		FROM verification_tokens
		WHERE value = $1
	`

	var t Token
	err := r.db.QueryRow(ctx, query, value).Scan(
		&t.ID,
		&t.AccountID,
		&t.Value,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return &t, nil
}

// ConsumeIfUnused atomically stamps used_at. The used_at IS NULL guard
// makes concurrent redemptions of the same value resolve to exactly one
// winner at the database level.
func (r *PostgresRepository) ConsumeIfUnused(ctx context.Context, value string, usedAt time.Time) (bool, error) {
	query := `
		UPDATE verification_tokens
		SET used_at = $2
		WHERE value = $1
		AND used_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, value, usedAt)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}
