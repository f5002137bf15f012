package model

import "errors"

// ErrNotFound is returned by stores when the requested row does not exist
// or is not usable.
var ErrNotFound = errors.New("not found")

// Signup and session errors surfaced to callers.
var (
	ErrEmailAlreadyRegistered = errors.New("email is already registered")
	ErrDisplayNameTaken       = errors.New("display name is already taken")
	ErrInvalidOrExpiredCode   = errors.New("invalid or expired verification code")
	ErrEmailMismatch          = errors.New("verification does not match the request")
	ErrInvalidVerification    = errors.New("invalid verification")
	ErrDeliveryFailed         = errors.New("failed to deliver verification email")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
)

// Profile errors.
var (
	ErrStorageDisabled  = errors.New("avatar storage is not configured")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// Token codec errors.
var (
	ErrExpiredToken   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrMalformedToken = errors.New("malformed token")
)
