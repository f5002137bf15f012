package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenType distinguishes signed token kinds.
type TokenType string

const (
	// TokenTypeVerification is issued after an email code is confirmed.
	TokenTypeVerification TokenType = "email_verification"
	// TokenTypeAccess authenticates API calls.
	TokenTypeAccess TokenType = "access_token"
)

// TokenClaims are the claims carried by signed tokens. AttemptID is set for
// verification tokens, AccountID for access tokens.
type TokenClaims struct {
	Type      TokenType
	AttemptID uuid.UUID
	AccountID uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager issues and validates signed tokens.
type TokenManager interface {
	IssueVerificationToken(attemptID uuid.UUID, email string) (string, error)
	// IssueAccessToken uses the default lifetime when ttl is not positive.
	IssueAccessToken(accountID uuid.UUID, email string, ttl time.Duration) (string, error)
	Decode(token string, expected TokenType) (TokenClaims, error)
}

// OpaqueTokenGenerator produces refresh token secrets and their stored digests.
type OpaqueTokenGenerator interface {
	Generate() (string, error)
	Digest(secret string) string
}

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}
