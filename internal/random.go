package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// OpaqueTokenBytes is the entropy carried by every opaque token.
const OpaqueTokenBytes = 32

// NewOpaqueToken returns OpaqueTokenBytes of crypto/rand output encoded as
// unpadded base64url, safe to embed in a URL query without escaping.
func NewOpaqueToken() (string, error) {
	return newOpaqueToken(OpaqueTokenBytes)
}

func newOpaqueToken(size int) (string, error) {
	if size < OpaqueTokenBytes {
		return "", errors.New("opaque token must carry at least 32 bytes")
	}
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Fingerprint returns a short, non-reversible label for a secret so logs and
// audit events can correlate tokens without carrying them.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:6])
}
