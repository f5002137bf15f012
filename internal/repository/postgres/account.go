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

const (
	constraintUsersEmail       = "users_email_key"
	constraintUsersDisplayName = "users_display_name_key"
)

const accountColumns = `id, email, display_name, password_hash, profile_image_url,
	trim_scale(points_balance)::text, created_at, last_login_at`

var _ model.AccountStore = (*AccountRepository)(nil)

// AccountRepository stores accounts in the users table.
type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE email = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) ExistsByDisplayName(ctx context.Context, displayName string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE display_name = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, displayName).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check display name: %w", err)
	}

	return exists, nil
}

func (r *AccountRepository) Create(ctx context.Context, account model.Account) (model.Account, error) {
	query := `INSERT INTO users (id, email, display_name, password_hash, profile_image_url, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + accountColumns

	saved, err := scanAccount(r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.DisplayName, account.PasswordHash,
		nullable(account.AvatarURL), account.CreatedAt,
	))
	if err != nil {
		if err := conflictError(err); err != nil {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	return saved, nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `UPDATE users SET last_login_at = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return requireAffected(res)
}

// UpdateProfile changes only the supplied fields. An empty avatar URL clears it.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (model.Account, error) {
	query := `UPDATE users SET
				display_name = COALESCE($2::varchar, display_name),
				profile_image_url = CASE WHEN $3::varchar IS NULL THEN profile_image_url ELSE NULLIF($3::varchar, '') END
			  WHERE id = $1
			  RETURNING ` + accountColumns

	saved, err := scanAccount(r.db.QueryRowContext(ctx, query, id, nullable(update.DisplayName), nullable(update.AvatarURL)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		if err := conflictError(err); err != nil {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("failed to update profile: %w", err)
	}

	return saved, nil
}

func scanAccount(row *sql.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.AvatarURL,
		&a.PointsBalance, &a.CreatedAt, &a.LastLoginAt,
	)
	return a, err
}

func conflictError(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case constraintUsersEmail:
		return model.ErrEmailAlreadyRegistered
	case constraintUsersDisplayName:
		return model.ErrDisplayNameTaken
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
