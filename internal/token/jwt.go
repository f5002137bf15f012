package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/clock"
	"github.com/Crush-on-Study/Black-Market/internal/model"
)

const (
	// DefaultVerificationTTL is the lifetime of an email verification token.
	DefaultVerificationTTL = 30 * time.Minute
	// DefaultAccessTTL is the lifetime of an access token unless overridden.
	DefaultAccessTTL = 20 * time.Minute
)

// Claims represents JWT claims carried by verification and access tokens.
type Claims struct {
	jwt.RegisteredClaims
	AttemptID string          `json:"attempt_id,omitempty"`
	AccountID string          `json:"account_id,omitempty"`
	Email     string          `json:"email"`
	Type      model.TokenType `json:"type"`
}

var _ model.TokenManager = (*JWT)(nil)

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secretKey       []byte
	method          *jwt.SigningMethodHMAC
	clock           model.Clock
	verificationTTL time.Duration
	accessTTL       time.Duration
}

// Option configures a JWT codec.
type Option func(*JWT)

// WithClock sets the time source used for issuing and validating tokens.
func WithClock(c model.Clock) Option {
	return func(j *JWT) { j.clock = c }
}

// WithVerificationTTL overrides the verification token lifetime.
func WithVerificationTTL(ttl time.Duration) Option {
	return func(j *JWT) {
		if ttl > 0 {
			j.verificationTTL = ttl
		}
	}
}

// WithAccessTTL overrides the default access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(j *JWT) {
		if ttl > 0 {
			j.accessTTL = ttl
		}
	}
}

// NewJWT creates a token codec signing with secretKey and the HMAC algorithm
// named by algorithm (HS256, HS384 or HS512).
func NewJWT(secretKey, algorithm string, opts ...Option) (*JWT, error) {
	if secretKey == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	j := &JWT{
		secretKey:       []byte(secretKey),
		method:          method,
		clock:           clock.System{},
		verificationTTL: DefaultVerificationTTL,
		accessTTL:       DefaultAccessTTL,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// IssueVerificationToken creates a token scoped to one verification attempt.
func (j *JWT) IssueVerificationToken(attemptID uuid.UUID, email string) (string, error) {
	now := j.clock.Now()
	return j.Encode(model.TokenClaims{
		Type:      model.TokenTypeVerification,
		AttemptID: attemptID,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(j.verificationTTL),
	})
}

// IssueAccessToken creates a short-lived access token. A non-positive ttl
// selects the configured default.
func (j *JWT) IssueAccessToken(accountID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = j.accessTTL
	}
	now := j.clock.Now()
	return j.Encode(model.TokenClaims{
		Type:      model.TokenTypeAccess,
		AccountID: accountID,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
}

// Encode signs the claims.
func (j *JWT) Encode(c model.TokenClaims) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		Email: c.Email,
		Type:  c.Type,
	}

	switch c.Type {
	case model.TokenTypeVerification:
		claims.AttemptID = c.AttemptID.String()
	case model.TokenTypeAccess:
		claims.AccountID = c.AccountID.String()
	default:
		return "", fmt.Errorf("unknown token type %q", c.Type)
	}

	tokenString, err := jwt.NewWithClaims(j.method, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", c.Type, err)
	}

	return tokenString, nil
}

// Decode validates the signature, expiry and type of tokenString.
func (j *JWT) Decode(tokenString string, expected model.TokenType) (model.TokenClaims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, j.keyFunc,
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithTimeFunc(j.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.TokenClaims{}, model.ErrExpiredToken
		}
		return model.TokenClaims{}, fmt.Errorf("%w: %v", model.ErrMalformedToken, err)
	}
	if claims.Type != expected {
		return model.TokenClaims{}, model.ErrWrongTokenType
	}
	if claims.IssuedAt == nil {
		return model.TokenClaims{}, fmt.Errorf("%w: missing iat", model.ErrMalformedToken)
	}

	out := model.TokenClaims{
		Type:      claims.Type,
		Email:     claims.Email,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	switch expected {
	case model.TokenTypeVerification:
		out.AttemptID, err = uuid.Parse(claims.AttemptID)
	case model.TokenTypeAccess:
		out.AccountID, err = uuid.Parse(claims.AccountID)
	}
	if err != nil {
		return model.TokenClaims{}, fmt.Errorf("%w: bad subject id", model.ErrMalformedToken)
	}

	return out, nil
}

func (j *JWT) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
	}
	return j.secretKey, nil
}
