// Package session holds the license-bound authentication session and the
// lifecycle policy that keeps it valid: proactive refresh inside the expiry
// margin, with a single re-validate fallback when refresh fails on a
// token-class error.
package session

import (
	"strings"
	"sync"
	"time"
)

// Session is an immutable snapshot of an authenticated session, returned to
// callers after a successful validate or refresh.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// state is the lock-protected mutable session record. Token and expiry always
// change together; licenseKey and deviceID are retained only to support
// re-validation after a refresh failure. All access goes through the methods
// below, never direct field reads.
type state struct {
	mu         sync.Mutex
	token      string
	expiresAt  int64 // unix UTC seconds, 0 until first validation
	licenseKey string
	deviceID   string
}

// snapshot returns a consistent copy of all fields.
func (s *state) snapshot() (token string, expiresAt int64, licenseKey, deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.expiresAt, s.licenseKey, s.deviceID
}

// setAuthenticated replaces the session wholesale after a successful validate.
func (s *state) setAuthenticated(token string, expiresAt int64, licenseKey, deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
	s.licenseKey = licenseKey
	s.deviceID = deviceID
}

// replaceToken swaps token and expiry together after a successful refresh,
// keeping the recorded binding credentials.
func (s *state) replaceToken(token string, expiresAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
}

// authenticated reports whether a session has been established.
func (s *state) authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// currentToken returns the bearer token, empty when unauthenticated.
func (s *state) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// expiry returns the token expiry; the zero time when unauthenticated.
func (s *state) expiry() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.expiresAt, 0).UTC()
}

// maskToken shortens a bearer token for logging.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}

// maskLicenseKey masks a license key for logging, keeping prefix and suffix
// for support correlation.
func maskLicenseKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}
