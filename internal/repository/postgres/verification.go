package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/model"
)

const verificationColumns = `id, email, display_name, code, created_at, expires_at, verified`

var _ model.VerificationStore = (*VerificationRepository)(nil)

// VerificationRepository stores attempts in email_verifications. A partial
// unique index keeps at most one unverified attempt per email.
type VerificationRepository struct {
	db DBTX
}

func NewVerificationRepository(db DBTX) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Open replaces any unverified attempt for the email. When two requests race
// the upsert lets the later write win.
func (r *VerificationRepository) Open(ctx context.Context, attempt model.VerificationAttempt) (model.VerificationAttempt, error) {
	const deleteQuery = `DELETE FROM email_verifications WHERE email = $1 AND verified = FALSE`

	if _, err := r.db.ExecContext(ctx, deleteQuery, attempt.Email); err != nil {
		return model.VerificationAttempt{}, fmt.Errorf("failed to delete pending verifications: %w", err)
	}

	const insertQuery = `INSERT INTO email_verifications (id, email, display_name, code, created_at, expires_at, verified)
			  VALUES ($1, $2, $3, $4, $5, $6, FALSE)
			  ON CONFLICT (email) WHERE verified = FALSE DO UPDATE SET
				id = EXCLUDED.id,
				display_name = EXCLUDED.display_name,
				code = EXCLUDED.code,
				created_at = EXCLUDED.created_at,
				expires_at = EXCLUDED.expires_at
			  RETURNING ` + verificationColumns

	saved, err := scanVerification(r.db.QueryRowContext(ctx, insertQuery,
		attempt.ID, attempt.Email, attempt.DisplayName, attempt.Code, attempt.CreatedAt, attempt.ExpiresAt,
	))
	if err != nil {
		return model.VerificationAttempt{}, fmt.Errorf("failed to create verification: %w", err)
	}

	return saved, nil
}

func (r *VerificationRepository) FindActive(ctx context.Context, email, code string, now time.Time) (model.VerificationAttempt, error) {
	const query = `SELECT ` + verificationColumns + ` FROM email_verifications
			  WHERE email = $1 AND code = $2 AND verified = FALSE AND expires_at > $3
			  FOR UPDATE`

	attempt, err := scanVerification(r.db.QueryRowContext(ctx, query, email, code, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VerificationAttempt{}, model.ErrNotFound
		}
		return model.VerificationAttempt{}, fmt.Errorf("failed to find verification: %w", err)
	}

	return attempt, nil
}

// GetByID locks the row so concurrent setups for one attempt serialise.
func (r *VerificationRepository) GetByID(ctx context.Context, id uuid.UUID) (model.VerificationAttempt, error) {
	const query = `SELECT ` + verificationColumns + ` FROM email_verifications WHERE id = $1 FOR UPDATE`

	attempt, err := scanVerification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VerificationAttempt{}, model.ErrNotFound
		}
		return model.VerificationAttempt{}, fmt.Errorf("failed to get verification by id: %w", err)
	}

	return attempt, nil
}

func (r *VerificationRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE email_verifications SET verified = TRUE WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark verification: %w", err)
	}

	return requireAffected(res)
}

func (r *VerificationRepository) Consume(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM email_verifications WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to consume verification: %w", err)
	}

	return nil
}

func (r *VerificationRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM email_verifications WHERE expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep verifications: %w", err)
	}

	return res.RowsAffected()
}

func scanVerification(row *sql.Row) (model.VerificationAttempt, error) {
	var v model.VerificationAttempt
	err := row.Scan(&v.ID, &v.Email, &v.DisplayName, &v.Code, &v.CreatedAt, &v.ExpiresAt, &v.Verified)
	return v, err
}
