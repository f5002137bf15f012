package model

import "context"

// Stores bundles the repositories bound to one unit of work.
type Stores struct {
	Accounts      AccountStore
	Verifications VerificationStore
	RefreshTokens RefreshTokenStore
}

// Transactor runs fn atomically against a consistent set of stores.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
