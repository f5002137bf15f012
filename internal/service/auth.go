package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/model"
)

// AuthConfig holds the signup policy.
type AuthConfig struct {
	CodeLength int
	CodeTTL    time.Duration
}

// DefaultAuthConfig returns six-digit codes valid for ten minutes.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{CodeLength: 6, CodeTTL: 10 * time.Minute}
}

// SetupParams is the input of the final signup step.
type SetupParams struct {
	VerificationToken string
	Email             string
	DisplayName       string
	Password          string
	AvatarURL         *string
}

// Session is returned by signup and login.
type Session struct {
	Account model.Account
	TokenPair
}

// Auth drives the signup state machine and password login.
type Auth struct {
	tx     model.Transactor
	hasher model.PasswordHasher
	codec  model.TokenManager
	tokens *TokenService
	mailer model.Mailer
	clock  model.Clock
	cfg    AuthConfig
	logger *logger.Logger

	random    io.Reader
	dummyOnce sync.Once
	dummyHash string
}

// NewAuth creates an Auth service. Zero fields of cfg take their defaults.
func NewAuth(
	tx model.Transactor,
	hasher model.PasswordHasher,
	codec model.TokenManager,
	tokens *TokenService,
	mailer model.Mailer,
	clock model.Clock,
	cfg AuthConfig,
	logger *logger.Logger,
) *Auth {
	def := DefaultAuthConfig()
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = def.CodeLength
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = def.CodeTTL
	}

	return &Auth{
		tx:     tx,
		hasher: hasher,
		codec:  codec,
		tokens: tokens,
		mailer: mailer,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
		random: rand.Reader,
	}
}

// RequestVerification opens a verification attempt for an unregistered email
// and mails its code. Any earlier unverified attempt for the email is replaced.
func (a *Auth) RequestVerification(ctx context.Context, email, displayName string) error {
	a.logger.Debug("Auth service: requesting email verification",
		"email", email)

	code, err := a.generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	err = a.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		_, err := stores.Accounts.GetByEmail(ctx, email)
		if err == nil {
			return model.ErrEmailAlreadyRegistered
		}
		if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to get account by email: %w", err)
		}

		now := a.clock.Now()
		_, err = stores.Verifications.Open(ctx, model.VerificationAttempt{
			ID:          uuid.New(),
			Email:       email,
			DisplayName: displayName,
			Code:        code,
			CreatedAt:   now,
			ExpiresAt:   now.Add(a.cfg.CodeTTL),
		})
		if err != nil {
			return fmt.Errorf("failed to open verification: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrEmailAlreadyRegistered) {
			a.logger.Info("Auth service: email already registered",
				"email", email)
		} else {
			a.logger.Error("Auth service: failed to request verification",
				"email", email,
				"error", err.Error())
		}
		return err
	}

	if err := a.mailer.SendVerificationCode(ctx, email, displayName, code); err != nil {
		a.logger.Error("Auth service: failed to deliver verification code",
			"email", email,
			"error", err.Error())
		return fmt.Errorf("%w: %v", model.ErrDeliveryFailed, err)
	}

	a.logger.Info("Auth service: verification requested",
		"email", email)
	return nil
}

// ConfirmCode marks the matching attempt verified and returns a verification
// token scoped to it. An attempt can be confirmed once.
func (a *Auth) ConfirmCode(ctx context.Context, email, code string) (string, error) {
	a.logger.Debug("Auth service: confirming verification code",
		"email", email)

	var attempt model.VerificationAttempt
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		var err error
		attempt, err = stores.Verifications.FindActive(ctx, email, code, a.clock.Now())
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrInvalidOrExpiredCode
		}
		if err != nil {
			return fmt.Errorf("failed to find verification: %w", err)
		}

		if err := stores.Verifications.MarkVerified(ctx, attempt.ID); err != nil {
			return fmt.Errorf("failed to mark verification: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, model.ErrInvalidOrExpiredCode) {
			a.logger.Error("Auth service: failed to confirm code",
				"email", email,
				"error", err.Error())
		}
		return "", err
	}

	token, err := a.codec.IssueVerificationToken(attempt.ID, attempt.Email)
	if err != nil {
		return "", fmt.Errorf("failed to issue verification token: %w", err)
	}

	a.logger.Info("Auth service: email verified",
		"email", email,
		"attempt_id", attempt.ID)
	return token, nil
}

// CompleteSetup creates the account for a confirmed attempt and opens its
// first session. The attempt is consumed in the same transaction.
func (a *Auth) CompleteSetup(ctx context.Context, params SetupParams) (Session, error) {
	a.logger.Debug("Auth service: completing account setup",
		"email", params.Email)

	claims, err := a.codec.Decode(params.VerificationToken, model.TokenTypeVerification)
	if err != nil {
		a.logger.Info("Auth service: rejected verification token",
			"email", params.Email,
			"reason", err.Error())
		return Session{}, model.ErrInvalidOrExpiredCode
	}
	if claims.Email != params.Email {
		return Session{}, model.ErrEmailMismatch
	}

	passwordHash, err := a.hasher.Hash(params.Password)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var session Session
	err = a.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		attempt, err := stores.Verifications.GetByID(ctx, claims.AttemptID)
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrInvalidVerification
		}
		if err != nil {
			return fmt.Errorf("failed to get verification: %w", err)
		}
		if !attempt.Verified || attempt.Email != params.Email {
			return model.ErrInvalidVerification
		}
		if params.DisplayName != "" && params.DisplayName != attempt.DisplayName {
			return model.ErrEmailMismatch
		}

		if _, err := stores.Accounts.GetByEmail(ctx, params.Email); err == nil {
			return model.ErrEmailAlreadyRegistered
		} else if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to get account by email: %w", err)
		}

		taken, err := stores.Accounts.ExistsByDisplayName(ctx, attempt.DisplayName)
		if err != nil {
			return fmt.Errorf("failed to check display name: %w", err)
		}
		if taken {
			return model.ErrDisplayNameTaken
		}

		account, err := stores.Accounts.Create(ctx, model.Account{
			ID:           uuid.New(),
			Email:        attempt.Email,
			DisplayName:  attempt.DisplayName,
			PasswordHash: passwordHash,
			AvatarURL:    nonEmpty(params.AvatarURL),
			CreatedAt:    a.clock.Now(),
		})
		if err != nil {
			if errors.Is(err, model.ErrEmailAlreadyRegistered) || errors.Is(err, model.ErrDisplayNameTaken) {
				return err
			}
			return fmt.Errorf("failed to create account: %w", err)
		}

		pair, err := a.tokens.issue(ctx, stores, account)
		if err != nil {
			return err
		}

		if err := stores.Verifications.Consume(ctx, attempt.ID); err != nil {
			return fmt.Errorf("failed to consume verification: %w", err)
		}

		session = Session{Account: account, TokenPair: pair}
		return nil
	})
	if err != nil {
		a.logger.Info("Auth service: account setup rejected",
			"email", params.Email,
			"error", err.Error())
		return Session{}, err
	}

	a.sweep(ctx)

	a.logger.Info("Auth service: account created",
		"email", params.Email,
		"account_id", session.Account.ID)
	return session, nil
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords are reported identically.
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	a.logger.Debug("Auth service: login attempt",
		"email", email)

	var session Session
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		account, err := stores.Accounts.GetByEmail(ctx, email)
		if errors.Is(err, model.ErrNotFound) {
			a.hasher.Verify(password, a.dummyDigest())
			return model.ErrInvalidCredentials
		}
		if err != nil {
			return fmt.Errorf("failed to get account by email: %w", err)
		}

		if !a.hasher.Verify(password, account.PasswordHash) {
			return model.ErrInvalidCredentials
		}

		now := a.clock.Now()
		if err := stores.Accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
			return fmt.Errorf("failed to update last login: %w", err)
		}
		account.LastLoginAt = &now

		pair, err := a.tokens.issue(ctx, stores, account)
		if err != nil {
			return err
		}

		session = Session{Account: account, TokenPair: pair}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			a.logger.Info("Auth service: invalid credentials",
				"email", email)
		} else {
			a.logger.Error("Auth service: login failed",
				"email", email,
				"error", err.Error())
		}
		return Session{}, err
	}

	a.logger.Info("Auth service: login successful",
		"account_id", session.Account.ID)
	return session, nil
}

// Refresh rotates a refresh token.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	return a.tokens.Refresh(ctx, refreshToken)
}

// Logout revokes a refresh token.
func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	return a.tokens.Logout(ctx, refreshToken)
}

// LogoutAll revokes all refresh tokens of an account.
func (a *Auth) LogoutAll(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return a.tokens.LogoutAll(ctx, accountID)
}

// sweep drops expired verification attempts and refresh tokens. Failures are
// logged only.
func (a *Auth) sweep(ctx context.Context) {
	now := a.clock.Now()
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		attempts, err := stores.Verifications.SweepExpired(ctx, now)
		if err != nil {
			return err
		}
		tokens, err := stores.RefreshTokens.SweepExpired(ctx, now)
		if err != nil {
			return err
		}
		a.logger.Debug("Auth service: swept expired records",
			"verifications", attempts,
			"refresh_tokens", tokens)
		return nil
	})
	if err != nil {
		a.logger.Warn("Auth service: sweep failed", "error", err.Error())
	}
}

func (a *Auth) generateCode() (string, error) {
	code := make([]byte, a.cfg.CodeLength)
	ten := big.NewInt(10)
	for i := range code {
		n, err := rand.Int(a.random, ten)
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

func (a *Auth) dummyDigest() string {
	a.dummyOnce.Do(func() {
		digest, err := a.hasher.Hash(uuid.NewString())
		if err != nil {
			a.logger.Warn("Auth service: failed to prepare dummy digest", "error", err.Error())
			return
		}
		a.dummyHash = digest
	})
	return a.dummyHash
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
