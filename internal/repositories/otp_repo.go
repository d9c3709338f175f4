package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hayzen-ai/hayzen-api/internal/database"
	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/jackc/pgx/v5"
)

type OTPRepository struct {
	db *database.DB
}

func NewOTPRepository(db *database.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

func scanOTPRow(scanner rowScanner) (*models.OneTimeCode, error) {
	var code models.OneTimeCode

	err := scanner.Scan(
		&code.ID, &code.Email, &code.Purpose, &code.CodeHash,
		&code.CreatedAt, &code.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &code, nil
}

func scanOTPRows(rows pgx.Rows) ([]*models.OneTimeCode, error) {
	defer rows.Close()

	codes := make([]*models.OneTimeCode, 0)

	for rows.Next() {
		code, err := scanOTPRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan one-time code: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return codes, nil
}

func (r *OTPRepository) Create(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error) {
	code.ID = uuid.New().String()

	query := `
		INSERT INTO one_time_codes (id, email, purpose, code_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, email, purpose, code_hash, created_at, expires_at
	`

	return scanOTPRow(r.db.Pool.QueryRow(ctx, query,
		code.ID, code.Email, code.Purpose, code.CodeHash,
		code.CreatedAt, code.ExpiresAt,
	))
}

// ListByEmailPurpose returns codes for (email, purpose) ordered oldest first.
func (r *OTPRepository) ListByEmailPurpose(ctx context.Context, email string, purpose models.OTPPurpose) ([]*models.OneTimeCode, error) {
	query := `
		SELECT id, email, purpose, code_hash, created_at, expires_at
		FROM one_time_codes
		WHERE email = $1 AND purpose = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, email, purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to query one-time codes: %w", err)
	}

	return scanOTPRows(rows)
}

// DeleteExpired removes the codes for (email, purpose) whose expiry is behind
// the given instant.
func (r *OTPRepository) DeleteExpired(ctx context.Context, email string, purpose models.OTPPurpose, now time.Time) error {
	query := `DELETE FROM one_time_codes WHERE email = $1 AND purpose = $2 AND expires_at < $3`

	if _, err := r.db.Pool.Exec(ctx, query, email, purpose, now); err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// DeleteAll removes every code for (email, purpose). No error when nothing
// matched; invalidation is idempotent.
func (r *OTPRepository) DeleteAll(ctx context.Context, email string, purpose models.OTPPurpose) error {
	query := `DELETE FROM one_time_codes WHERE email = $1 AND purpose = $2`

	if _, err := r.db.Pool.Exec(ctx, query, email, purpose); err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// CleanupExpired removes every expired code across all emails and purposes.
// Used by the background sweep.
func (r *OTPRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM one_time_codes WHERE expires_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
