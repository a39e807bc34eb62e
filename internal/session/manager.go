package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	apperrors "permitcli/internal/errors"
	"permitcli/internal/infrastructure"
)

// API paths for the session endpoints.
const (
	validatePath = "/api/v1/license/validate"
	refreshPath  = "/api/v1/license/refresh"
)

// DefaultRefreshMargin is the lead time before expiry at which EnsureValid
// refreshes proactively.
const DefaultRefreshMargin = 300 * time.Second

// Exchanger is the transport collaborator. It performs one HTTP exchange,
// decodes the response into out and classifies any remote error. token is the
// bearer token, empty for unauthenticated calls. Implementations must honor
// context cancellation.
type Exchanger interface {
	Exchange(ctx context.Context, method, path, token string, body, out any) *apperrors.Failure
}

// Recorder receives operation outcomes for metrics. The zero-value manager
// uses a no-op recorder.
type Recorder interface {
	RecordValidate(ctx context.Context, duration time.Duration, err error)
	RecordRefresh(ctx context.Context, duration time.Duration, err error)
	RecordRecovery(ctx context.Context)
}

type nopRecorder struct{}

func (nopRecorder) RecordValidate(context.Context, time.Duration, error) {}
func (nopRecorder) RecordRefresh(context.Context, time.Duration, error)  {}
func (nopRecorder) RecordRecovery(context.Context)                       {}

// Manager owns one session exclusively and implements the lifecycle policy.
// It is safe for concurrent use: session fields are read and written under a
// single lock, while remote calls happen outside it. Two concurrent
// EnsureValid calls may both refresh; refresh is idempotent server-side, so
// this is accepted rather than coordinated.
type Manager struct {
	state    state
	exchange Exchanger
	margin   time.Duration
	now      func() time.Time
	recorder Recorder
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRefreshMargin overrides the refresh lead time.
func WithRefreshMargin(d time.Duration) ManagerOption {
	return func(m *Manager) { m.margin = d }
}

// WithClock injects the time source. Used by tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) { m.recorder = r }
}

// NewManager creates a manager in the Unauthenticated state.
func NewManager(exchange Exchanger, opts ...ManagerOption) *Manager {
	m := &Manager{
		exchange: exchange,
		margin:   DefaultRefreshMargin,
		now:      time.Now,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// validateRequest is the wire shape of the validate call.
type validateRequest struct {
	LicenseKey string `json:"license_key"`
	DeviceID   string `json:"device_id"`
}

// tokenResponse is the wire shape returned by validate and refresh.
type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// Validate establishes a session by exchanging the license key and device
// identifier for a bearer token. On success the session transitions to
// Authenticated and the binding credentials are recorded for the recovery
// path. On failure the previous state is left untouched.
func (m *Manager) Validate(ctx context.Context, licenseKey, deviceID string) (*Session, error) {
	start := time.Now()
	logger := infrastructure.LoggerWithContext(ctx)

	var resp tokenResponse
	failure := m.exchange.Exchange(ctx, http.MethodPost, validatePath, "",
		validateRequest{LicenseKey: licenseKey, DeviceID: deviceID}, &resp)
	m.recorder.RecordValidate(ctx, time.Since(start), failureOrNil(failure))
	if failure != nil {
		logger.WarnContext(ctx, "license validation failed",
			slog.String("component", "session"),
			slog.String("action", "validate"),
			slog.String("license_key_masked", maskLicenseKey(licenseKey)),
			slog.String("failure_kind", failure.Kind.String()),
		)
		return nil, failure
	}

	m.state.setAuthenticated(resp.Token, resp.ExpiresAt, licenseKey, deviceID)

	logger.InfoContext(ctx, "license validated",
		slog.String("component", "session"),
		slog.String("action", "validate"),
		slog.String("license_key_masked", maskLicenseKey(licenseKey)),
		slog.String("token_masked", maskToken(resp.Token)),
		slog.Time("expires_at", time.Unix(resp.ExpiresAt, 0).UTC()),
	)

	return &Session{Token: resp.Token, ExpiresAt: time.Unix(resp.ExpiresAt, 0).UTC()}, nil
}

// Refresh renews the current token. It requires an Authenticated session and
// never retries by itself: a token-class failure propagates so the caller
// (usually EnsureValid) decides on recovery.
func (m *Manager) Refresh(ctx context.Context) (*Session, error) {
	token, _, _, _ := m.state.snapshot()
	if token == "" {
		return nil, apperrors.NewInvalidOperation("no active session; call Validate first")
	}
	return m.refreshWith(ctx, token)
}

// refreshWith performs the remote refresh with a previously snapshotted
// token. The network call runs outside the lock.
func (m *Manager) refreshWith(ctx context.Context, token string) (*Session, error) {
	start := time.Now()
	logger := infrastructure.LoggerWithContext(ctx)

	var resp tokenResponse
	failure := m.exchange.Exchange(ctx, http.MethodPost, refreshPath, token, nil, &resp)
	m.recorder.RecordRefresh(ctx, time.Since(start), failureOrNil(failure))
	if failure != nil {
		logger.WarnContext(ctx, "token refresh failed",
			slog.String("component", "session"),
			slog.String("action", "refresh"),
			slog.String("token_masked", maskToken(token)),
			slog.String("failure_kind", failure.Kind.String()),
		)
		return nil, failure
	}

	m.state.replaceToken(resp.Token, resp.ExpiresAt)

	logger.DebugContext(ctx, "token refreshed",
		slog.String("component", "session"),
		slog.String("action", "refresh"),
		slog.String("token_masked", maskToken(resp.Token)),
		slog.Time("expires_at", time.Unix(resp.ExpiresAt, 0).UTC()),
	)

	return &Session{Token: resp.Token, ExpiresAt: time.Unix(resp.ExpiresAt, 0).UTC()}, nil
}

// EnsureValid is the composite policy consulted before every protected call.
// Unauthenticated sessions fail immediately with an invalid-operation failure
// and zero network calls. A session within the refresh margin is refreshed;
// if the refresh fails with a token-class error and the original binding
// credentials are recorded, one re-validate attempt follows. Any other
// failure propagates unchanged.
func (m *Manager) EnsureValid(ctx context.Context) error {
	token, expiresAt, licenseKey, deviceID := m.state.snapshot()
	if token == "" {
		return apperrors.NewInvalidOperation("no active session; call Validate first")
	}

	if m.now().UTC().Unix() < expiresAt-int64(m.margin/time.Second) {
		return nil
	}

	_, err := m.refreshWith(ctx, token)
	if err == nil {
		return nil
	}

	failure, ok := apperrors.AsFailure(err)
	if !ok || !failure.IsTokenFailure() || licenseKey == "" || deviceID == "" {
		return err
	}

	// Recovery: re-establish the session from the original binding.
	m.recorder.RecordRecovery(ctx)
	infrastructure.LoggerWithContext(ctx).InfoContext(ctx, "refresh failed, re-validating with original binding",
		slog.String("component", "session"),
		slog.String("action", "revalidate_fallback"),
		slog.String("license_key_masked", maskLicenseKey(licenseKey)),
	)
	if _, err := m.Validate(ctx, licenseKey, deviceID); err != nil {
		return err
	}
	return nil
}

// IsAuthenticated reports whether a session has been established.
func (m *Manager) IsAuthenticated() bool {
	return m.state.authenticated()
}

// Token returns the current bearer token, empty when unauthenticated.
func (m *Manager) Token() string {
	return m.state.currentToken()
}

// Expiry returns the current token expiry, the zero time when
// unauthenticated.
func (m *Manager) Expiry() time.Time {
	return m.state.expiry()
}

// failureOrNil converts a typed failure pointer to a plain error without the
// typed-nil pitfall.
func failureOrNil(f *apperrors.Failure) error {
	if f == nil {
		return nil
	}
	return f
}
