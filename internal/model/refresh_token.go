package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists refresh token digests.
type RefreshTokenStore interface {
	Issue(ctx context.Context, token RefreshToken) (RefreshToken, error)
	// FindUsable returns ErrNotFound for absent, revoked and expired tokens alike.
	FindUsable(ctx context.Context, tokenHash string, now time.Time) (RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	RevokeAll(ctx context.Context, accountID uuid.UUID) (int64, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// RefreshToken is the stored form of an opaque refresh token.
type RefreshToken struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Usable reports whether the token can still be exchanged at now.
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
