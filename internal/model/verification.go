package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// VerificationStore persists in-flight email verification attempts.
type VerificationStore interface {
	// Open removes any unverified attempt for the email and stores the new one.
	Open(ctx context.Context, attempt VerificationAttempt) (VerificationAttempt, error)
	// FindActive returns an unverified, unexpired attempt matching email and code.
	FindActive(ctx context.Context, email, code string, now time.Time) (VerificationAttempt, error)
	GetByID(ctx context.Context, id uuid.UUID) (VerificationAttempt, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	Consume(ctx context.Context, id uuid.UUID) error
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// VerificationAttempt is one outstanding proof of email ownership.
type VerificationAttempt struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Code        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Verified    bool
}

// Expired reports whether the attempt is past its expiry at now.
func (a VerificationAttempt) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
