package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"

	apperrors "permitcli/internal/errors"
	"permitcli/internal/infrastructure"
)

// SessionEnsurer is the slice of the session manager the gate needs.
type SessionEnsurer interface {
	EnsureValid(ctx context.Context) error
}

// LicenseGate blocks requests until the license session is valid. A
// successful check is cached for a short TTL so the gate does not hit
// the license server on every request.
type LicenseGate struct {
	session SessionEnsurer
	logger  *slog.Logger

	excludePaths    []string
	excludePrefixes []string

	mu       sync.Mutex
	validAt  time.Time
	cacheTTL time.Duration
}

// GateOption configures a LicenseGate.
type GateOption func(*LicenseGate)

// WithExcludedPaths sets exact request paths that bypass the gate.
func WithExcludedPaths(paths ...string) GateOption {
	return func(g *LicenseGate) { g.excludePaths = append(g.excludePaths, paths...) }
}

// WithExcludedPrefixes sets path prefixes that bypass the gate.
func WithExcludedPrefixes(prefixes ...string) GateOption {
	return func(g *LicenseGate) { g.excludePrefixes = append(g.excludePrefixes, prefixes...) }
}

// WithCacheTTL overrides how long a successful check is trusted.
func WithCacheTTL(ttl time.Duration) GateOption {
	return func(g *LicenseGate) { g.cacheTTL = ttl }
}

// NewLicenseGate creates the gate middleware. Health endpoints are
// excluded by default so probes keep working when the license lapses.
func NewLicenseGate(session SessionEnsurer, logger *slog.Logger, opts ...GateOption) *LicenseGate {
	g := &LicenseGate{
		session:  session,
		logger:   logger.With(slog.String("component", "license_gate")),
		cacheTTL: 5 * time.Minute,
		excludePaths: []string{
			"/api/health",
			"/api/health/ready",
			"/api/health/live",
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns the middleware handler.
func (g *LicenseGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if g.shouldExclude(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if g.cachedValid() {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		err := g.session.EnsureValid(ctx)
		if err == nil {
			g.markValid()
			g.logger.DebugContext(ctx, "license check passed",
				slog.String("trace_id", infrastructure.GetTraceID(ctx)),
				slog.Duration("duration", time.Since(start)))
			next.ServeHTTP(w, r)
			return
		}

		g.logger.WarnContext(ctx, "license check failed",
			slog.String("trace_id", infrastructure.GetTraceID(ctx)),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))

		g.renderFailure(w, r, err)
	})
}

func (g *LicenseGate) shouldExclude(path string) bool {
	for _, p := range g.excludePaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range g.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *LicenseGate) cachedValid() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.validAt.IsZero() && time.Since(g.validAt) < g.cacheTTL
}

func (g *LicenseGate) markValid() {
	g.mu.Lock()
	g.validAt = time.Now()
	g.mu.Unlock()
}

// Invalidate clears the cached check, forcing the next request through
// the session manager.
func (g *LicenseGate) Invalidate() {
	g.mu.Lock()
	g.validAt = time.Time{}
	g.mu.Unlock()
}

func (g *LicenseGate) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	failure, ok := apperrors.AsFailure(err)
	if !ok {
		failure = apperrors.NewNetworkFailure(err)
	}

	if failure.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(failure.RetryAfter/time.Second)))
	}

	if err := failure.Render(w, r); err == nil {
		render.JSON(w, r, failure.Payload())
		return
	}
	http.Error(w, failure.Message, http.StatusForbidden)
}
