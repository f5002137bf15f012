package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Crush-on-Study/Black-Market/internal/model"
)

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ model.Transactor = (*Transactor)(nil)

// Transactor runs units of work inside database transactions.
type Transactor struct {
	db *sql.DB
}

// NewTransactor returns a Transactor over db.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// Stores binds the repositories to q.
func Stores(q DBTX) model.Stores {
	return model.Stores{
		Accounts:      NewAccountRepository(q),
		Verifications: NewVerificationRepository(q),
		RefreshTokens: NewRefreshTokenRepository(q),
	}
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
// A panic in fn rolls back and is re-raised.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, stores model.Stores) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	err = fn(ctx, Stores(tx))
	return err
}
