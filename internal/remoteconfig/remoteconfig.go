// Package remoteconfig fetches server-managed configuration for the
// current license and exposes it through typed accessors. Values are
// delivered as a flat JSON object; clients read them with a default
// fallback so missing or mistyped keys never break callers.
package remoteconfig

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	apperrors "permitcli/internal/errors"
)

const configPath = "/api/v1/config"

// Sessioner supplies a valid bearer token, refreshing it as needed.
type Sessioner interface {
	EnsureValid(ctx context.Context) error
	Token() string
}

// Exchanger performs authenticated JSON calls against the API.
type Exchanger interface {
	Exchange(ctx context.Context, method, path, token string, body, out any) *apperrors.Failure
}

// Store holds the most recently fetched remote configuration.
type Store struct {
	session  Sessioner
	exchange Exchanger

	mu     sync.RWMutex
	values map[string]any
}

// NewStore creates an empty store. Call Fetch before reading values;
// until then every getter returns its default.
func NewStore(session Sessioner, exchange Exchanger) *Store {
	return &Store{
		session:  session,
		exchange: exchange,
		values:   map[string]any{},
	}
}

// Fetch retrieves the current configuration from the server, replacing
// any previously fetched values. The response body is one flat JSON
// object. On failure the previous values are kept.
func (s *Store) Fetch(ctx context.Context) error {
	if err := s.session.EnsureValid(ctx); err != nil {
		return err
	}

	var values map[string]any
	if failure := s.exchange.Exchange(ctx, http.MethodGet, configPath, s.session.Token(), nil, &values); failure != nil {
		return failure
	}

	if values == nil {
		values = map[string]any{}
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()

	slog.Debug("fetched remote config", slog.Int("keys", len(values)))
	return nil
}

// GetString returns the string value for key, or def when the key is
// missing or holds a non-string value.
func (s *Store) GetString(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return def
}

// GetInt returns the integer value for key, or def when the key is
// missing or not a whole number. JSON numbers decode as float64; a
// fractional value does not count as an int.
func (s *Store) GetInt(key string, def int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(float64); ok && v == float64(int(v)) {
		return int(v)
	}
	return def
}

// GetBool returns the boolean value for key, or def when the key is
// missing or holds a non-boolean value.
func (s *Store) GetBool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return def
}

// GetFloat returns the numeric value for key, or def when the key is
// missing or holds a non-numeric value.
func (s *Store) GetFloat(key string, def float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(float64); ok {
		return v
	}
	return def
}

// Keys returns the keys currently held, in unspecified order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}
