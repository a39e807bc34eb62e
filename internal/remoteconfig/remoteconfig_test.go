package remoteconfig

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "permitcli/internal/errors"
)

type fakeSession struct {
	token     string
	ensureErr error
}

func (f *fakeSession) EnsureValid(ctx context.Context) error { return f.ensureErr }
func (f *fakeSession) Token() string                         { return f.token }

type fakeExchange struct {
	values   map[string]any
	err      *apperrors.Failure
	gotPath  string
	gotToken string
	calls    int
}

func (f *fakeExchange) Exchange(ctx context.Context, method, path, token string, body, out any) *apperrors.Failure {
	f.calls++
	f.gotPath = path
	f.gotToken = token
	if f.err != nil {
		return f.err
	}
	*out.(*map[string]any) = f.values
	return nil
}

// jsonExchange decodes a canned response body into out the way the real
// transport does.
type jsonExchange struct {
	body string
}

func (j *jsonExchange) Exchange(ctx context.Context, method, path, token string, body, out any) *apperrors.Failure {
	if err := json.Unmarshal([]byte(j.body), out); err != nil {
		return apperrors.Classify("MALFORMED_RESPONSE", http.StatusOK, "")
	}
	return nil
}

func TestFetchDecodesFlatObject(t *testing.T) {
	store := NewStore(&fakeSession{token: "tok"},
		&jsonExchange{body: `{"feature_x":true,"max_items":25,"display_name":"Permitted"}`})

	require.NoError(t, store.Fetch(context.Background()))

	assert.True(t, store.GetBool("feature_x", false))
	assert.Equal(t, 25, store.GetInt("max_items", 0))
	assert.Equal(t, "Permitted", store.GetString("display_name", ""))
}

func TestFetchPopulatesValues(t *testing.T) {
	exchange := &fakeExchange{values: map[string]any{
		"feature_x":    true,
		"max_items":    float64(25),
		"display_name": "Permitted",
		"ratio":        0.75,
	}}
	store := NewStore(&fakeSession{token: "tok-1"}, exchange)

	require.NoError(t, store.Fetch(context.Background()))

	assert.Equal(t, "/api/v1/config", exchange.gotPath)
	assert.Equal(t, "tok-1", exchange.gotToken)
	assert.True(t, store.GetBool("feature_x", false))
	assert.Equal(t, 25, store.GetInt("max_items", 0))
	assert.Equal(t, "Permitted", store.GetString("display_name", ""))
	assert.Equal(t, 0.75, store.GetFloat("ratio", 0))
	assert.Len(t, store.Keys(), 4)
}

func TestGettersReturnDefaultsBeforeFetch(t *testing.T) {
	store := NewStore(&fakeSession{}, &fakeExchange{})

	assert.Equal(t, "fallback", store.GetString("missing", "fallback"))
	assert.Equal(t, 42, store.GetInt("missing", 42))
	assert.True(t, store.GetBool("missing", true))
	assert.Equal(t, 1.5, store.GetFloat("missing", 1.5))
}

func TestGettersReturnDefaultsOnTypeMismatch(t *testing.T) {
	exchange := &fakeExchange{values: map[string]any{
		"name":  float64(7),
		"count": "seven",
		"flag":  "yes",
		"ratio": true,
		"frac":  2.5,
	}}
	store := NewStore(&fakeSession{token: "tok"}, exchange)
	require.NoError(t, store.Fetch(context.Background()))

	assert.Equal(t, "def", store.GetString("name", "def"))
	assert.Equal(t, 3, store.GetInt("count", 3))
	assert.False(t, store.GetBool("flag", false))
	assert.Equal(t, 9.9, store.GetFloat("ratio", 9.9))
	// Fractional numbers are not ints.
	assert.Equal(t, 3, store.GetInt("frac", 3))
	assert.Equal(t, 2.5, store.GetFloat("frac", 0))
}

func TestFetchRequiresValidSession(t *testing.T) {
	session := &fakeSession{ensureErr: apperrors.Classify(apperrors.CodeLicenseExpired, http.StatusUnauthorized, "")}
	exchange := &fakeExchange{}
	store := NewStore(session, exchange)

	err := store.Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindLicenseExpired))
	assert.Zero(t, exchange.calls)
}

func TestFetchFailureKeepsPreviousValues(t *testing.T) {
	exchange := &fakeExchange{values: map[string]any{"key": "v1"}}
	store := NewStore(&fakeSession{token: "tok"}, exchange)
	require.NoError(t, store.Fetch(context.Background()))

	exchange.err = apperrors.Classify(apperrors.CodeRateLimited, http.StatusTooManyRequests, "5")
	err := store.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, "v1", store.GetString("key", ""))
}

func TestFetchNilValuesYieldsEmptyStore(t *testing.T) {
	store := NewStore(&fakeSession{token: "tok"}, &fakeExchange{values: nil})

	require.NoError(t, store.Fetch(context.Background()))
	assert.Empty(t, store.Keys())
}
