// Package memory provides an in-process backend for the account stores.
// It is used for local development and in service tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/model"
)

type state struct {
	accounts      map[uuid.UUID]model.Account
	verifications map[uuid.UUID]model.VerificationAttempt
	refreshTokens map[string]model.RefreshToken
}

func (s *state) clone() *state {
	return &state{
		accounts:      maps.Clone(s.accounts),
		verifications: maps.Clone(s.verifications),
		refreshTokens: maps.Clone(s.refreshTokens),
	}
}

var _ model.Transactor = (*DB)(nil)

// DB holds all records. Transactions are serialised by a single mutex and
// rolled back by restoring a snapshot.
type DB struct {
	mu    sync.Mutex
	state *state
}

// New returns an empty DB.
func New() *DB {
	return &DB{state: &state{
		accounts:      make(map[uuid.UUID]model.Account),
		verifications: make(map[uuid.UUID]model.VerificationAttempt),
		refreshTokens: make(map[string]model.RefreshToken),
	}}
}

// WithinTransaction runs fn with exclusive access to the stores. Changes are
// discarded when fn returns an error.
func (db *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context, stores model.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	working := db.state.clone()
	stores := model.Stores{
		Accounts:      &AccountStore{s: working},
		Verifications: &VerificationStore{s: working},
		RefreshTokens: &RefreshTokenStore{s: working},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}

	db.state = working
	return nil
}

// Ping always succeeds.
func (db *DB) Ping(context.Context) error {
	return nil
}
