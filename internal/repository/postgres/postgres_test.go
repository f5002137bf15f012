package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Crush-on-Study/Black-Market/internal/model"
)

var (
	now            = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	accountCols    = []string{"id", "email", "display_name", "password_hash", "profile_image_url", "points_balance", "created_at", "last_login_at"}
	verifyCols     = []string{"id", "email", "display_name", "code", "created_at", "expires_at", "verified"}
	refreshCols    = []string{"id", "user_id", "token_hash", "created_at", "expires_at", "revoked"}
	errDBDown      = errors.New("db down")
	emailConflict  = &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	nameConflict   = &pgconn.PgError{Code: "23505", ConstraintName: "users_display_name_key"}
	otherViolation = &pgconn.PgError{Code: "23503", ConstraintName: "refresh_tokens_user_id_fkey"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
			WithArgs("a@x.com").
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(id.String(), "a@x.com", "alice", "$argon2id$x", nil, "0", now, nil))

		got, err := NewAccountRepository(db).GetByEmail(context.Background(), "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "alice", got.DisplayName)
		assert.Equal(t, "0", got.PointsBalance)
		assert.Nil(t, got.AvatarURL)
		assert.Nil(t, got.LastLoginAt)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM\s+users\s+WHERE\s+email`).WithArgs("a@x.com").WillReturnError(sql.ErrNoRows)

		_, err := NewAccountRepository(db).GetByEmail(context.Background(), "a@x.com")
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM\s+users\s+WHERE\s+email`).WithArgs("a@x.com").WillReturnError(errDBDown)

		_, err := NewAccountRepository(db).GetByEmail(context.Background(), "a@x.com")
		require.ErrorIs(t, err, errDBDown)
		assert.Contains(t, err.Error(), "failed to get account by email")
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()
	avatar := "https://cdn/a.png"
	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(id.String(), "a@x.com", "alice", "h", avatar, "12.5", now, now))

	got, err := NewAccountRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got.AvatarURL)
	assert.Equal(t, avatar, *got.AvatarURL)
	require.NotNil(t, got.LastLoginAt)
	assert.Equal(t, "12.5", got.PointsBalance)
}

func TestAccountRepository_ExistsByDisplayName(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+display_name\s*=\s*\$1\)$`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := NewAccountRepository(db).ExistsByDisplayName(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccountRepository_Create(t *testing.T) {
	account := model.Account{ID: uuid.New(), Email: "a@x.com", DisplayName: "alice", PasswordHash: "h", CreatedAt: now}
	insert := `(?s)^INSERT\s+INTO\s+users\s+\(id,\s*email,\s*display_name,\s*password_hash,\s*profile_image_url,\s*created_at\).*RETURNING`

	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(insert).
			WithArgs(account.ID, "a@x.com", "alice", "h", nil, now).
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(account.ID.String(), "a@x.com", "alice", "h", nil, "0", now, nil))

		saved, err := NewAccountRepository(db).Create(context.Background(), account)
		require.NoError(t, err)
		assert.Equal(t, account.ID, saved.ID)
	})

	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{name: "email conflict", dbErr: emailConflict, wantErr: model.ErrEmailAlreadyRegistered},
		{name: "display name conflict", dbErr: nameConflict, wantErr: model.ErrDisplayNameTaken},
		{name: "other violation", dbErr: otherViolation, wantErr: otherViolation},
		{name: "db error", dbErr: errDBDown, wantErr: errDBDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(insert).WillReturnError(tt.dbErr)

			_, err := NewAccountRepository(db).Create(context.Background(), account)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccountRepository_UpdateLastLogin(t *testing.T) {
	id := uuid.New()
	q := `^UPDATE\s+users\s+SET\s+last_login_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("updated", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q).WithArgs(id, now).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, NewAccountRepository(db).UpdateLastLogin(context.Background(), id, now))
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q).WithArgs(id, now).WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, NewAccountRepository(db).UpdateLastLogin(context.Background(), id, now), model.ErrNotFound)
	})
}

func TestAccountRepository_UpdateProfile(t *testing.T) {
	id := uuid.New()
	name := "bob"
	empty := ""
	q := `(?s)^UPDATE\s+users\s+SET.*display_name\s*=\s*COALESCE.*profile_image_url\s*=\s*CASE.*WHERE\s+id\s*=\s*\$1.*RETURNING`

	t.Run("display name only", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).
			WithArgs(id, "bob", nil).
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(id.String(), "a@x.com", "bob", "h", nil, "0", now, nil))

		got, err := NewAccountRepository(db).UpdateProfile(context.Background(), id, model.ProfileUpdate{DisplayName: &name})
		require.NoError(t, err)
		assert.Equal(t, "bob", got.DisplayName)
	})

	t.Run("clear avatar", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).
			WithArgs(id, nil, "").
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(id.String(), "a@x.com", "alice", "h", nil, "0", now, nil))

		got, err := NewAccountRepository(db).UpdateProfile(context.Background(), id, model.ProfileUpdate{AvatarURL: &empty})
		require.NoError(t, err)
		assert.Nil(t, got.AvatarURL)
	})

	t.Run("conflict", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).WillReturnError(nameConflict)

		_, err := NewAccountRepository(db).UpdateProfile(context.Background(), id, model.ProfileUpdate{DisplayName: &name})
		require.ErrorIs(t, err, model.ErrDisplayNameTaken)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

		_, err := NewAccountRepository(db).UpdateProfile(context.Background(), id, model.ProfileUpdate{DisplayName: &name})
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestVerificationRepository_Open(t *testing.T) {
	attempt := model.VerificationAttempt{
		ID: uuid.New(), Email: "a@x.com", DisplayName: "alice", Code: "123456",
		CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute),
	}

	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`^DELETE\s+FROM\s+email_verifications\s+WHERE\s+email\s*=\s*\$1\s+AND\s+verified\s*=\s*FALSE$`).
			WithArgs("a@x.com").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+email_verifications.*ON\s+CONFLICT\s+\(email\)\s+WHERE\s+verified\s*=\s*FALSE\s+DO\s+UPDATE.*RETURNING`).
			WithArgs(attempt.ID, "a@x.com", "alice", "123456", now, attempt.ExpiresAt).
			WillReturnRows(sqlmock.NewRows(verifyCols).AddRow(attempt.ID.String(), "a@x.com", "alice", "123456", now, attempt.ExpiresAt, false))

		saved, err := NewVerificationRepository(db).Open(context.Background(), attempt)
		require.NoError(t, err)
		assert.Equal(t, attempt.ID, saved.ID)
		assert.False(t, saved.Verified)
	})

	t.Run("delete fails", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`DELETE\s+FROM\s+email_verifications`).WillReturnError(errDBDown)

		_, err := NewVerificationRepository(db).Open(context.Background(), attempt)
		require.ErrorIs(t, err, errDBDown)
	})
}

func TestVerificationRepository_FindActive(t *testing.T) {
	q := `(?s)^SELECT\s+id,.*FROM\s+email_verifications\s+WHERE\s+email\s*=\s*\$1\s+AND\s+code\s*=\s*\$2\s+AND\s+verified\s*=\s*FALSE\s+AND\s+expires_at\s*>\s*\$3\s+FOR\s+UPDATE$`
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).
			WithArgs("a@x.com", "123456", now).
			WillReturnRows(sqlmock.NewRows(verifyCols).AddRow(id.String(), "a@x.com", "alice", "123456", now, now.Add(time.Minute), false))

		got, err := NewVerificationRepository(db).FindActive(context.Background(), "a@x.com", "123456", now)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).WithArgs("a@x.com", "000000", now).WillReturnError(sql.ErrNoRows)

		_, err := NewVerificationRepository(db).FindActive(context.Background(), "a@x.com", "000000", now)
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestVerificationRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()
	mock.ExpectQuery(`FROM\s+email_verifications\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE$`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := NewVerificationRepository(db).GetByID(context.Background(), id)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestVerificationRepository_MarkConsumeSweep(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()
	repo := NewVerificationRepository(db)

	mock.ExpectExec(`^UPDATE\s+email_verifications\s+SET\s+verified\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE\s+email_verifications\s+SET\s+verified`).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE\s+FROM\s+email_verifications\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+email_verifications\s+WHERE\s+expires_at\s*<=\s*\$1$`).
		WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.MarkVerified(context.Background(), id))
	require.ErrorIs(t, repo.MarkVerified(context.Background(), id), model.ErrNotFound)
	require.NoError(t, repo.Consume(context.Background(), id))

	n, err := repo.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRefreshTokenRepository_Issue(t *testing.T) {
	db, mock := newMock(t)
	tok := model.RefreshToken{ID: uuid.New(), AccountID: uuid.New(), TokenHash: "abc", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+refresh_tokens\s+\(id,\s*user_id,\s*token_hash,\s*created_at,\s*expires_at,\s*revoked\).*RETURNING`).
		WithArgs(tok.ID, tok.AccountID, "abc", now, tok.ExpiresAt).
		WillReturnRows(sqlmock.NewRows(refreshCols).AddRow(tok.ID.String(), tok.AccountID.String(), "abc", now, tok.ExpiresAt, false))

	saved, err := NewRefreshTokenRepository(db).Issue(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, tok.AccountID, saved.AccountID)
}

func TestRefreshTokenRepository_FindUsable(t *testing.T) {
	q := `(?s)FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1\s+AND\s+revoked\s*=\s*FALSE\s+AND\s+expires_at\s*>\s*\$2\s+FOR\s+UPDATE$`

	t.Run("usable", func(t *testing.T) {
		db, mock := newMock(t)
		id, account := uuid.New(), uuid.New()
		mock.ExpectQuery(q).WithArgs("abc", now).
			WillReturnRows(sqlmock.NewRows(refreshCols).AddRow(id.String(), account.String(), "abc", now, now.Add(time.Hour), false))

		got, err := NewRefreshTokenRepository(db).FindUsable(context.Background(), "abc", now)
		require.NoError(t, err)
		assert.Equal(t, account, got.AccountID)
	})

	t.Run("revoked or expired", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).WithArgs("abc", now).WillReturnError(sql.ErrNoRows)

		_, err := NewRefreshTokenRepository(db).FindUsable(context.Background(), "abc", now)
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	db, mock := newMock(t)
	account := uuid.New()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(`^UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE\s+WHERE\s+token_hash\s*=\s*\$1$`).
		WithArgs("abc").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE\s+token_hash`).
		WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+revoked\s*=\s*FALSE$`).
		WithArgs(account).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+expires_at\s*<=\s*\$1$`).
		WithArgs(now).WillReturnError(errDBDown)

	ok, err := repo.Revoke(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Revoke(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := repo.RevokeAll(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.SweepExpired(context.Background(), now)
	require.ErrorIs(t, err, errDBDown)
}

func TestTransactor_Commit(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+last_login_at`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewTransactor(db).WithinTransaction(context.Background(), func(ctx context.Context, s model.Stores) error {
		return s.Accounts.UpdateLastLogin(ctx, uuid.New(), now)
	})
	require.NoError(t, err)
}

func TestTransactor_Rollback(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := NewTransactor(db).WithinTransaction(context.Background(), func(context.Context, model.Stores) error {
		return model.ErrInvalidRefreshToken
	})
	require.ErrorIs(t, err, model.ErrInvalidRefreshToken)
}

func TestTransactor_RollbackOnPanic(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewTransactor(db).WithinTransaction(context.Background(), func(context.Context, model.Stores) error {
			panic("boom")
		})
	})
}

func TestTransactor_BeginAndCommitErrors(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin().WillReturnError(errDBDown)

		err := NewTransactor(db).WithinTransaction(context.Background(), func(context.Context, model.Stores) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.ErrorIs(t, err, errDBDown)
	})

	t.Run("commit", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errDBDown)

		err := NewTransactor(db).WithinTransaction(context.Background(), func(context.Context, model.Stores) error {
			return nil
		})
		require.ErrorIs(t, err, errDBDown)
		assert.Contains(t, err.Error(), "failed to commit")
	})
}
