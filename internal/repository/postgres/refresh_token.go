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

const refreshTokenColumns = `id, user_id, token_hash, created_at, expires_at, revoked`

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db DBTX
}

func NewRefreshTokenRepository(db DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Issue(ctx context.Context, token model.RefreshToken) (model.RefreshToken, error) {
	const query = `INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, revoked)
			  VALUES ($1, $2, $3, $4, $5, FALSE)
			  RETURNING ` + refreshTokenColumns

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	saved, err := scanRefreshToken(r.db.QueryRowContext(ctx, query,
		token.ID, token.AccountID, token.TokenHash, token.CreatedAt, token.ExpiresAt,
	))
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return saved, nil
}

// FindUsable locks the matching row. A concurrent rotation that revoked it
// first makes the row fall out of the predicate once its lock is released.
func (r *RefreshTokenRepository) FindUsable(ctx context.Context, tokenHash string, now time.Time) (model.RefreshToken, error) {
	const query = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens
			  WHERE token_hash = $1 AND revoked = FALSE AND expires_at > $2
			  FOR UPDATE`

	token, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, tokenHash, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	const query = `UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`

	res, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n > 0, nil
}

func (r *RefreshTokenRepository) RevokeAll(ctx context.Context, accountID uuid.UUID) (int64, error) {
	const query = `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`

	res, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens by account: %w", err)
	}

	return res.RowsAffected()
}

func (r *RefreshTokenRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep refresh tokens: %w", err)
	}

	return res.RowsAffected()
}

func scanRefreshToken(row *sql.Row) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := row.Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.Revoked)
	return t, err
}
