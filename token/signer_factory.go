package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const minSecretLength = 32

// NewSigner returns an HMAC signer for the configured secret. An empty secret
// yields a random per-process secret, so issued tokens do not survive a restart.
func NewSigner(secret string) (Signer, error) {
	if secret == "" {
		return NewRandomHMACSigner()
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretLength)
	}
	return NewHMACSigner(secret), nil
}

// NewRandomHMACSigner generates a 256-bit secret and wraps it in an HMACsigner.
func NewRandomHMACSigner() (*HMACsigner, error) {
	secret := make([]byte, 32) // 256 bits
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate HMAC secret: %w", err)
	}
	return NewHMACSigner(hex.EncodeToString(secret)), nil
}
