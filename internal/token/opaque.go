package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/Crush-on-Study/Black-Market/internal/model"
)

// OpaqueSize is the number of random bytes in a refresh token.
const OpaqueSize = 32

var _ model.OpaqueTokenGenerator = (*Opaque)(nil)

// Opaque generates random refresh tokens and their SHA-256 digests.
type Opaque struct {
	random io.Reader
}

// NewOpaque creates a generator reading from crypto/rand.
func NewOpaque() *Opaque {
	return &Opaque{random: rand.Reader}
}

// Generate returns a URL-safe random secret.
func (o *Opaque) Generate() (string, error) {
	b := make([]byte, OpaqueSize)
	if _, err := io.ReadFull(o.random, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest returns the hex SHA-256 of secret, the only form ever stored.
func (o *Opaque) Digest(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}
