package license

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"permitcli/internal/config"
	apperrors "permitcli/internal/errors"
	"permitcli/internal/files"
	"permitcli/internal/fingerprint"
	"permitcli/internal/remoteconfig"
	"permitcli/internal/security"
	"permitcli/internal/session"
	"permitcli/internal/transport"
)

// licenseKeyPattern matches keys of the form PRM-XXXX-XXXX-XXXX where
// each group is uppercase alphanumeric. Validated locally before any
// network call so typos fail fast.
var licenseKeyPattern = regexp.MustCompile(`^PRM(-[A-Z0-9]{4}){3}$`)

// Status is a point-in-time snapshot of the client state.
type Status struct {
	Activated   bool      `json:"activated"`
	DeviceID    string    `json:"device_id,omitempty"`
	TokenExpiry time.Time `json:"token_expiry,omitempty"`
	Family      string    `json:"device_family"`
}

// Client is the activation and session facade.
type Client struct {
	cfg       *config.Config
	collector *fingerprint.Collector
	recorder  session.Recorder
	validate  *validator.Validate
	logger    *slog.Logger

	mu      sync.RWMutex
	session *session.Manager
	catalog *files.Catalog
	remote  *remoteconfig.Store
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCollector overrides the fingerprint collector, used in tests to
// substitute fake probes.
func WithCollector(c *fingerprint.Collector) ClientOption {
	return func(cl *Client) { cl.collector = c }
}

// WithRecorder sets the metrics recorder passed to the session manager.
func WithRecorder(r session.Recorder) ClientOption {
	return func(cl *Client) { cl.recorder = r }
}

// NewClient builds a client from validated configuration. The client
// performs no network activity until Activate is called.
func NewClient(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v := validator.New()
	if err := v.RegisterValidation("license_key", func(fl validator.FieldLevel) bool {
		return licenseKeyPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register license key validation: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		validate: v,
		logger:   slog.Default().With(slog.String("component", "license_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.collector == nil {
		c.collector = fingerprint.NewCollector(fingerprint.WithTimeout(cfg.Probe.Timeout))
	}

	return c, nil
}

// Fingerprint returns the stable device identifier for this machine.
func (c *Client) Fingerprint(ctx context.Context) string {
	return c.collector.Fingerprint(ctx)
}

// Activate validates the license key format, computes the device
// fingerprint and establishes a session with the license server.
// Calling Activate again replaces any existing session.
func (c *Client) Activate(ctx context.Context, licenseKey string) error {
	licenseKey = strings.TrimSpace(strings.ToUpper(licenseKey))
	if err := c.validate.Var(licenseKey, "required,license_key"); err != nil {
		return apperrors.NewInvalidOperation("license key format invalid, expected PRM-XXXX-XXXX-XXXX")
	}

	deviceID := c.collector.Fingerprint(ctx)

	signer, err := security.NewSigner(licenseKey)
	if err != nil {
		return fmt.Errorf("prepare request signing: %w", err)
	}

	tc := transport.NewClient(c.cfg.Server.BaseURL, c.cfg.Server.HTTPTimeout,
		transport.WithSigner(signer))

	sessionOpts := []session.ManagerOption{
		session.WithRefreshMargin(c.cfg.Session.RefreshMargin),
	}
	if c.recorder != nil {
		sessionOpts = append(sessionOpts, session.WithRecorder(c.recorder))
	}
	mgr := session.NewManager(tc, sessionOpts...)

	start := time.Now()
	if _, err := mgr.Validate(ctx, licenseKey, deviceID); err != nil {
		c.logger.WarnContext(ctx, "activation failed",
			slog.String("device_id", deviceID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	c.session = mgr
	c.catalog = files.NewCatalog(mgr, tc, c.cfg.Download.RequestsPerSecond, c.cfg.Download.Burst)
	c.remote = remoteconfig.NewStore(mgr, tc)
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "license activated",
		slog.String("device_id", deviceID),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// EnsureValid guarantees the session token is usable, refreshing or
// re-validating as needed. Fails without network activity when the
// client has not been activated.
func (c *Client) EnsureValid(ctx context.Context) error {
	mgr := c.manager()
	if mgr == nil {
		return apperrors.NewInvalidOperation("client not activated")
	}
	return mgr.EnsureValid(ctx)
}

// Status reports the current client state without touching the network.
func (c *Client) Status(ctx context.Context) Status {
	st := Status{
		DeviceID: c.collector.Fingerprint(ctx),
		Family:   c.collector.Family().String(),
	}
	if mgr := c.manager(); mgr != nil && mgr.IsAuthenticated() {
		st.Activated = true
		st.TokenExpiry = mgr.Expiry()
	}
	return st
}

// Files returns the remote file catalog. Nil before activation.
func (c *Client) Files() *files.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog
}

// RemoteConfig returns the remote configuration store. Nil before
// activation.
func (c *Client) RemoteConfig() *remoteconfig.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remote
}

func (c *Client) manager() *session.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}
