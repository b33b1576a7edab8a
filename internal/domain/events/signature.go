package events

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignaturePrefix precedes the hex digest in X-Hub-Signature-256.
const SignaturePrefix = "sha256="

// Sign returns the X-Hub-Signature-256 value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks header against the HMAC-SHA256 of body in constant time.
func Verify(secret string, body []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return fmt.Errorf("%w: missing header", ErrSignature)
	}
	if !strings.HasPrefix(header, SignaturePrefix) {
		return fmt.Errorf("%w: unsupported scheme", ErrSignature)
	}
	if !hmac.Equal([]byte(header), []byte(Sign(secret, body))) {
		return fmt.Errorf("%w: digest mismatch", ErrSignature)
	}
	return nil
}
