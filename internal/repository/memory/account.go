package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/model"
)

var _ model.AccountStore = (*AccountStore)(nil)

// AccountStore keeps accounts keyed by id.
type AccountStore struct {
	s *state
}

func (r *AccountStore) GetByEmail(_ context.Context, email string) (model.Account, error) {
	for _, a := range r.s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, model.ErrNotFound
}

func (r *AccountStore) GetByID(_ context.Context, id uuid.UUID) (model.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	return a, nil
}

func (r *AccountStore) ExistsByDisplayName(_ context.Context, displayName string) (bool, error) {
	return r.displayNameTaken(displayName, uuid.Nil), nil
}

func (r *AccountStore) Create(_ context.Context, account model.Account) (model.Account, error) {
	for _, a := range r.s.accounts {
		if a.Email == account.Email {
			return model.Account{}, model.ErrEmailAlreadyRegistered
		}
	}
	if r.displayNameTaken(account.DisplayName, uuid.Nil) {
		return model.Account{}, model.ErrDisplayNameTaken
	}
	if account.PointsBalance == "" {
		account.PointsBalance = "0"
	}

	r.s.accounts[account.ID] = account
	return account, nil
}

func (r *AccountStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	a, ok := r.s.accounts[id]
	if !ok {
		return model.ErrNotFound
	}
	a.LastLoginAt = &at
	r.s.accounts[id] = a
	return nil
}

func (r *AccountStore) UpdateProfile(_ context.Context, id uuid.UUID, update model.ProfileUpdate) (model.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	if update.DisplayName != nil && r.displayNameTaken(*update.DisplayName, id) {
		return model.Account{}, model.ErrDisplayNameTaken
	}

	a = update.Apply(a)
	r.s.accounts[id] = a
	return a, nil
}

func (r *AccountStore) displayNameTaken(name string, except uuid.UUID) bool {
	for id, a := range r.s.accounts {
		if id != except && a.DisplayName == name {
			return true
		}
	}
	return false
}
