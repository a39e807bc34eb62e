package license

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitcli/internal/config"
	apperrors "permitcli/internal/errors"
	"permitcli/internal/fingerprint"
)

const testLicenseKey = "PRM-AAAA-BBBB-1234"

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Server.BaseURL = baseURL
	return cfg
}

func fallbackCollector() *fingerprint.Collector {
	return fingerprint.NewCollector(fingerprint.WithFamily(fingerprint.FamilyFallback))
}

func newLicenseServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/license/validate":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req["license_key"] != testLicenseKey {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"code": "INVALID_LICENSE", "message": "unknown key"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"token":      "tok-live",
				"expires_at": time.Now().Add(time.Hour).Unix(),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "NOT_FOUND", "message": "no such path"},
			})
		}
	}))
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.BaseURL = ""

	_, err := NewClient(cfg)
	assert.Error(t, err)
}

func TestActivateRejectsMalformedKey(t *testing.T) {
	client, err := NewClient(testConfig("https://unused.invalid"), WithCollector(fallbackCollector()))
	require.NoError(t, err)

	for _, key := range []string{"", "not-a-key", "PRM-AAAA", "PRM-AAAA-BBBB-CCCC-too-long!"} {
		err := client.Activate(context.Background(), key)
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidOperation), "key %q", key)
	}
}

func TestActivateEstablishesSession(t *testing.T) {
	server := newLicenseServer(t)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), WithCollector(fallbackCollector()))
	require.NoError(t, err)

	require.NoError(t, client.Activate(context.Background(), testLicenseKey))

	status := client.Status(context.Background())
	assert.True(t, status.Activated)
	assert.NotEmpty(t, status.DeviceID)
	assert.True(t, status.TokenExpiry.After(time.Now()))

	assert.NotNil(t, client.Files())
	assert.NotNil(t, client.RemoteConfig())
	assert.NoError(t, client.EnsureValid(context.Background()))
}

func TestActivateNormalizesKeyCase(t *testing.T) {
	server := newLicenseServer(t)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), WithCollector(fallbackCollector()))
	require.NoError(t, err)

	assert.NoError(t, client.Activate(context.Background(), "  prm-aaaa-bbbb-1234  "))
}

func TestActivateSurfacesServerRejection(t *testing.T) {
	server := newLicenseServer(t)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), WithCollector(fallbackCollector()))
	require.NoError(t, err)

	err = client.Activate(context.Background(), "PRM-ZZZZ-ZZZZ-9999")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidLicense))

	status := client.Status(context.Background())
	assert.False(t, status.Activated)
	assert.Nil(t, client.Files())
}

func TestEnsureValidBeforeActivation(t *testing.T) {
	client, err := NewClient(testConfig("https://unused.invalid"), WithCollector(fallbackCollector()))
	require.NoError(t, err)

	err = client.EnsureValid(context.Background())
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidOperation))
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	client, err := NewClient(testConfig("https://unused.invalid"), WithCollector(fallbackCollector()))
	require.NoError(t, err)

	first := client.Fingerprint(context.Background())
	second := client.Fingerprint(context.Background())
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestHealthBeforeActivation(t *testing.T) {
	client, err := NewClient(testConfig("https://unused.invalid"), WithCollector(fallbackCollector()))
	require.NoError(t, err)

	report := client.Health(context.Background())

	assert.Equal(t, HealthStatusDegraded, report.Status)
	assert.Equal(t, HealthStatusHealthy, report.Components["fingerprint"].Status)
	assert.Equal(t, HealthStatusDegraded, report.Components["session"].Status)
	assert.Equal(t, HealthStatusDegraded, report.Components["server"].Status)
}

func TestHealthAfterActivation(t *testing.T) {
	server := newLicenseServer(t)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), WithCollector(fallbackCollector()))
	require.NoError(t, err)
	require.NoError(t, client.Activate(context.Background(), testLicenseKey))

	report := client.Health(context.Background())

	assert.Equal(t, HealthStatusHealthy, report.Status)
	assert.Equal(t, HealthStatusHealthy, report.Components["session"].Status)
	assert.Equal(t, HealthStatusHealthy, report.Components["server"].Status)
}

func TestSessionMetricsRecorder(t *testing.T) {
	// Global provider defaults to a no-op meter; instruments must still
	// be safe to use.
	metrics, err := NewSessionMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordValidate(ctx, 10*time.Millisecond, nil)
	metrics.RecordValidate(ctx, 10*time.Millisecond, apperrors.Classify(apperrors.CodeInvalidLicense, http.StatusUnauthorized, ""))
	metrics.RecordRefresh(ctx, 5*time.Millisecond, nil)
	metrics.RecordRecovery(ctx)
}
