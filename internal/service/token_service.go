package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/model"
)

// TokenTypeBearer is the token_type reported alongside issued tokens.
const TokenTypeBearer = "bearer"

// DefaultRefreshTTL is the lifetime of a refresh token.
const DefaultRefreshTTL = 14 * 24 * time.Hour

// TokenPair is an access token with its companion refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// TokenService issues, rotates and revokes session tokens. Refresh tokens are
// opaque secrets; only their digests are persisted.
type TokenService struct {
	codec      model.TokenManager
	opaque     model.OpaqueTokenGenerator
	tx         model.Transactor
	clock      model.Clock
	refreshTTL time.Duration
	logger     *logger.Logger
}

// NewTokenService creates a TokenService. A non-positive refreshTTL selects
// DefaultRefreshTTL.
func NewTokenService(
	codec model.TokenManager,
	opaque model.OpaqueTokenGenerator,
	tx model.Transactor,
	clock model.Clock,
	refreshTTL time.Duration,
	logger *logger.Logger,
) *TokenService {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		codec:      codec,
		opaque:     opaque,
		tx:         tx,
		clock:      clock,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// issue creates a token pair for account and stores the refresh digest
// through stores, so it commits or rolls back with the caller's transaction.
func (s *TokenService) issue(ctx context.Context, stores model.Stores, account model.Account) (TokenPair, error) {
	access, err := s.codec.IssueAccessToken(account.ID, account.Email, 0)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := s.opaque.Generate()
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := s.clock.Now()
	_, err = stores.RefreshTokens.Issue(ctx, model.RefreshToken{
		ID:        uuid.New(),
		AccountID: account.ID,
		TokenHash: s.opaque.Digest(refresh),
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair bound to the same account is returned. A token can be rotated once.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	s.logger.Debug("Token service: refreshing session")

	if refreshToken == "" {
		return TokenPair{}, model.ErrInvalidRefreshToken
	}
	digest := s.opaque.Digest(refreshToken)

	var pair TokenPair
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		record, err := stores.RefreshTokens.FindUsable(ctx, digest, s.clock.Now())
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrInvalidRefreshToken
		}
		if err != nil {
			return fmt.Errorf("failed to find refresh token: %w", err)
		}

		account, err := stores.Accounts.GetByID(ctx, record.AccountID)
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrInvalidRefreshToken
		}
		if err != nil {
			return fmt.Errorf("failed to get account by id: %w", err)
		}

		if _, err := stores.RefreshTokens.Revoke(ctx, digest); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}

		pair, err = s.issue(ctx, stores, account)
		return err
	})
	if err != nil {
		if !errors.Is(err, model.ErrInvalidRefreshToken) {
			s.logger.Error("Token service: refresh failed", "error", err.Error())
		}
		return TokenPair{}, err
	}

	s.logger.Info("Token service: session refreshed")
	return pair, nil
}

// Logout revokes the refresh token if it is known. Unknown or already revoked
// tokens are not an error.
func (s *TokenService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	digest := s.opaque.Digest(refreshToken)

	var revoked bool
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		var err error
		revoked, err = stores.RefreshTokens.Revoke(ctx, digest)
		return err
	})
	if err != nil {
		s.logger.Error("Token service: logout failed", "error", err.Error())
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	s.logger.Info("Token service: logout", "revoked", revoked)
	return nil
}

// LogoutAll revokes every live refresh token of the account.
func (s *TokenService) LogoutAll(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		var err error
		n, err = stores.RefreshTokens.RevokeAll(ctx, accountID)
		return err
	})
	if err != nil {
		s.logger.Error("Token service: logout all failed",
			"account_id", accountID,
			"error", err.Error())
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	s.logger.Info("Token service: logged out everywhere",
		"account_id", accountID,
		"revoked", n)
	return n, nil
}

// AccountFromAccessToken returns the account id carried by a valid access token.
func (s *TokenService) AccountFromAccessToken(token string) (uuid.UUID, error) {
	claims, err := s.codec.Decode(token, model.TokenTypeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.AccountID, nil
}
