package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Kind identifies one of the closed set of failure categories surfaced by the
// license client. Every remote error code maps to exactly one Kind; callers
// branch on Kind, never on raw codes.
type Kind int

const (
	// KindGenericAPI covers any remote code the classifier does not recognize.
	// The original code and HTTP status are preserved on the Failure.
	KindGenericAPI Kind = iota
	KindInvalidLicense
	KindLicenseExpired
	KindLicenseSuspended
	KindLicenseRevoked
	KindIdentifierMismatch
	// KindTokenInvalid covers missing, malformed, expired and revoked token
	// variants. They are distinguished only by code and message.
	KindTokenInvalid
	KindAPIDisabled
	KindRateLimited
	KindResourceNotFound
	KindAccessDenied
	KindDownloadRateLimited
	KindNetworkFailure
	KindInvalidOperation
)

// String returns the stable name of the kind, used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindInvalidLicense:
		return "invalid_license"
	case KindLicenseExpired:
		return "license_expired"
	case KindLicenseSuspended:
		return "license_suspended"
	case KindLicenseRevoked:
		return "license_revoked"
	case KindIdentifierMismatch:
		return "identifier_mismatch"
	case KindTokenInvalid:
		return "token_invalid"
	case KindAPIDisabled:
		return "api_disabled"
	case KindRateLimited:
		return "rate_limited"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindDownloadRateLimited:
		return "download_rate_limited"
	case KindNetworkFailure:
		return "network_failure"
	case KindInvalidOperation:
		return "invalid_operation"
	default:
		return "generic_api_failure"
	}
}

// Failure is the typed error surfaced by every remote license operation.
// Instances are built by Classify (remote codes), NewNetworkFailure (transport
// faults) and NewInvalidOperation (local state violations) only.
type Failure struct {
	Kind       Kind
	Code       string // raw remote code, empty for local failures
	Message    string
	HTTPStatus int
	// RetryAfter is populated for KindRateLimited and KindDownloadRateLimited
	// when the server provided a Retry-After header; zero otherwise.
	RetryAfter time.Duration
	// Err holds the wrapped transport fault for KindNetworkFailure.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Code != "" {
		return fmt.Sprintf("%s (%s): %s", f.Kind, f.Code, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap exposes the underlying transport fault for errors.Is/As chains.
func (f *Failure) Unwrap() error {
	return f.Err
}

// IsTokenFailure reports whether the failure is a token-class failure, the
// trigger condition for the re-validate recovery path.
func (f *Failure) IsTokenFailure() bool {
	return f.Kind == KindTokenInvalid
}

// Render implements the render.Renderer interface so a Failure can be written
// directly as an HTTP error response by the license-gate middleware.
func (f *Failure) Render(w http.ResponseWriter, r *http.Request) error {
	status := f.HTTPStatus
	if status == 0 {
		status = renderStatus(f.Kind)
	}
	render.Status(r, status)
	return nil
}

// MarshalableFailure is the JSON shape written by Render.
type MarshalableFailure struct {
	Kind       string `json:"kind"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

// Payload returns the renderable JSON body for the failure.
func (f *Failure) Payload() MarshalableFailure {
	return MarshalableFailure{
		Kind:       f.Kind.String(),
		Code:       f.Code,
		Message:    f.Message,
		RetryAfter: int(f.RetryAfter / time.Second),
	}
}

func renderStatus(k Kind) int {
	switch k {
	case KindInvalidOperation:
		return http.StatusPreconditionRequired
	case KindTokenInvalid:
		return http.StatusUnauthorized
	case KindRateLimited, KindDownloadRateLimited:
		return http.StatusTooManyRequests
	case KindResourceNotFound:
		return http.StatusNotFound
	case KindAccessDenied:
		return http.StatusForbidden
	case KindNetworkFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusForbidden
	}
}

// NewNetworkFailure wraps a lower-level transport fault. The original error
// remains reachable through Unwrap.
func NewNetworkFailure(err error) *Failure {
	return &Failure{
		Kind:    KindNetworkFailure,
		Message: fmt.Sprintf("license server unreachable: %v", err),
		Err:     err,
	}
}

// NewInvalidOperation signals a local protocol violation, such as calling
// Refresh or EnsureValid before a successful Validate. No network call is
// involved.
func NewInvalidOperation(msg string) *Failure {
	return &Failure{
		Kind:    KindInvalidOperation,
		Message: msg,
	}
}

// AsFailure extracts a *Failure from an error chain. The second return is
// false when err carries no Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err carries a Failure of the given kind.
func IsKind(err error, k Kind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == k
}
