// Package transport implements the single HTTP exchange the license client
// performs against the license service. Classification of remote errors
// happens here, once, at this boundary; callers receive typed failures and
// never see raw codes or status lines.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "permitcli/internal/errors"
	"permitcli/internal/infrastructure"
)

// RequestSigner adds integrity material to outgoing requests. Implemented by
// the security package; nil disables signing.
type RequestSigner interface {
	Sign(requestID string, body []byte) string
}

// errorEnvelope is the error body shape returned by the license service.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client performs JSON exchanges against the license service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     RequestSigner
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests and for
// custom TLS setups.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithSigner attaches a request signer.
func WithSigner(s RequestSigner) ClientOption {
	return func(c *Client) { c.signer = s }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a transport client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "permitcli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exchange performs one request/response cycle: marshal body, send, decode
// into out, classify errors. token is the bearer token, empty for
// unauthenticated calls. A nil return means out is populated (or the response
// body was empty and out is nil).
func (c *Client) Exchange(ctx context.Context, method, path, token string, body, out any) *apperrors.Failure {
	resp, failure := c.do(ctx, method, path, token, body)
	if failure != nil {
		return failure
	}
	defer resp.Body.Close()

	if failure := classifyResponse(resp); failure != nil {
		return failure
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Classify("MALFORMED_RESPONSE", resp.StatusCode, "")
	}
	return nil
}

// Stream performs a GET whose body is consumed by the caller, used for file
// downloads. The caller must close the returned reader.
func (c *Client) Stream(ctx context.Context, path, token string) (io.ReadCloser, *apperrors.Failure) {
	resp, failure := c.do(ctx, http.MethodGet, path, token, nil)
	if failure != nil {
		return nil, failure
	}

	if failure := classifyResponse(resp); failure != nil {
		resp.Body.Close()
		return nil, failure
	}
	return resp.Body, nil
}

// do builds and sends the request. Network-level faults are wrapped as
// KindNetworkFailure.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, *apperrors.Failure) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, apperrors.NewNetworkFailure(fmt.Errorf("encode request: %w", err))
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.NewNetworkFailure(err)
	}

	requestID := uuid.New().String()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.signer != nil {
		req.Header.Set("X-Signature", c.signer.Sign(requestID, payload))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		infrastructure.LoggerWithContext(ctx).WarnContext(ctx, "license server request failed",
			slog.String("component", "transport"),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.NewNetworkFailure(err)
	}

	infrastructure.LoggerWithContext(ctx).DebugContext(ctx, "license server request completed",
		slog.String("component", "transport"),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// classifyResponse turns a non-2xx response into a typed failure via the
// error classifier. The body is fully consumed on the error path.
func classifyResponse(resp *http.Response) *apperrors.Failure {
	if resp.StatusCode < 400 {
		return nil
	}

	retryAfter := resp.Header.Get("Retry-After")

	var envelope errorEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil {
		// No parseable envelope; classify on status alone.
		return apperrors.Classify("", resp.StatusCode, retryAfter)
	}
	return apperrors.Classify(envelope.Error.Code, resp.StatusCode, retryAfter)
}
