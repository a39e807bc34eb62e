// Package security provides request signing for the API client. Each
// outgoing request carries an HMAC-SHA256 signature over the request ID
// and body, computed with a key derived from the license key via
// HKDF-SHA256. The server recomputes the same signature to reject
// tampered or replayed payloads.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	signingKeySize = 32
	keyContext     = "permit-request-signing-v1"
)

// Signer computes per-request HMAC signatures with a derived key.
type Signer struct {
	key []byte
}

// NewSigner derives a signing key from the license key. The derivation
// salt is fixed so client and server arrive at the same key without a
// negotiation round trip.
func NewSigner(licenseKey string) (*Signer, error) {
	if licenseKey == "" {
		return nil, fmt.Errorf("license key required for signing")
	}

	reader := hkdf.New(sha256.New, []byte(licenseKey), []byte(keyContext), nil)
	key := make([]byte, signingKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	return &Signer{key: key}, nil
}

// Sign returns the hex-encoded HMAC-SHA256 of the request ID and body.
// The request ID binds the signature to a single request so a captured
// signature cannot be replayed with a different ID.
func (s *Signer) Sign(requestID string, body []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(requestID))
	mac.Write([]byte{0})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig matches the expected signature for the
// given request ID and body. Comparison is constant time.
func (s *Signer) Verify(requestID string, body []byte, sig string) bool {
	expected := s.Sign(requestID, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}
