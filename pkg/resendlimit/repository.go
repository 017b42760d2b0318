package resendlimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the storage interface for resend counters.
type Repository interface {
	// Get returns the counter for (accountID, dayKey), or nil when no
	// issuance has been recorded for that day yet.
	Get(ctx context.Context, accountID uuid.UUID, dayKey string) (*Counter, error)
	// IncrementIfAllowed atomically increments the counter and stamps
	// last_issued_at iff count < cap and the last accepted issuance is
	// at or before notBefore. It reports whether the increment happened.
	// Blocked attempts leave the counter untouched.
	IncrementIfAllowed(ctx context.Context, accountID uuid.UUID, dayKey string, now time.Time, notBefore time.Time, cap int) (bool, error)
}

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-backed counter repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the counter row for the day, or nil when absent
func (r *PostgresRepository) Get(ctx context.Context, accountID uuid.UUID, dayKey string) (*Counter, error) {
	query := `
		SELECT account_id, day_key, count, last_issued_at
		FROM resend_counters
		WHERE account_id = $1
		AND day_key = $2
	`

	var c Counter
	err := r.db.QueryRow(ctx, query, accountID, dayKey).Scan(
		&c.AccountID,
		&c.DayKey,
		&c.Count,
		&c.LastIssuedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &c, nil
}

// IncrementIfAllowed ensures the day row exists, then runs a single
// conditional UPDATE. The WHERE clause carries both preconditions, so
// concurrent resend requests for one account cannot both pass: the row
// lock serializes them and the loser re-evaluates against the updated
// row.
func (r *PostgresRepository) IncrementIfAllowed(ctx context.Context, accountID uuid.UUID, dayKey string, now time.Time, notBefore time.Time, cap int) (bool, error) {
	insert := `
		INSERT INTO resend_counters (account_id, day_key, count, last_issued_at)
		VALUES ($1, $2, 0, NULL)
		ON CONFLICT (account_id, day_key) DO NOTHING
	`

	if _, err := r.db.Exec(ctx, insert, accountID, dayKey); err != nil {
		return false, err
	}

	update := `
		UPDATE resend_counters
		SET count = count + 1,
		    last_issued_at = $3
		WHERE account_id = $1
		AND day_key = $2
		AND count < $4
		AND (last_issued_at IS NULL OR last_issued_at <= $5)
	`

	tag, err := r.db.Exec(ctx, update, accountID, dayKey, now, cap, notBefore)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}
