package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenStore)(nil)

// RefreshTokenStore keeps refresh tokens keyed by digest.
type RefreshTokenStore struct {
	s *state
}

func (r *RefreshTokenStore) Issue(_ context.Context, token model.RefreshToken) (model.RefreshToken, error) {
	if _, ok := r.s.refreshTokens[token.TokenHash]; ok {
		return model.RefreshToken{}, errors.New("refresh token digest already stored")
	}
	r.s.refreshTokens[token.TokenHash] = token
	return token, nil
}

func (r *RefreshTokenStore) FindUsable(_ context.Context, tokenHash string, now time.Time) (model.RefreshToken, error) {
	t, ok := r.s.refreshTokens[tokenHash]
	if !ok || !t.Usable(now) {
		return model.RefreshToken{}, model.ErrNotFound
	}
	return t, nil
}

func (r *RefreshTokenStore) Revoke(_ context.Context, tokenHash string) (bool, error) {
	t, ok := r.s.refreshTokens[tokenHash]
	if !ok {
		return false, nil
	}
	t.Revoked = true
	r.s.refreshTokens[tokenHash] = t
	return true, nil
}

func (r *RefreshTokenStore) RevokeAll(_ context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	for hash, t := range r.s.refreshTokens {
		if t.AccountID == accountID && !t.Revoked {
			t.Revoked = true
			r.s.refreshTokens[hash] = t
			n++
		}
	}
	return n, nil
}

func (r *RefreshTokenStore) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for hash, t := range r.s.refreshTokens {
		if !now.Before(t.ExpiresAt) {
			delete(r.s.refreshTokens, hash)
			n++
		}
	}
	return n, nil
}
