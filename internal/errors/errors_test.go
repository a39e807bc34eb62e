package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureImplementsError(t *testing.T) {
	f := Classify(CodeLicenseExpired, http.StatusForbidden, "")

	var err error = f
	assert.Contains(t, err.Error(), "license_expired")
	assert.Contains(t, err.Error(), CodeLicenseExpired)
}

func TestNetworkFailureWrapsTransportFault(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	f := NewNetworkFailure(fmt.Errorf("validate: %w", cause))

	assert.Equal(t, KindNetworkFailure, f.Kind)
	assert.ErrorIs(t, f, cause)
}

func TestAsFailure(t *testing.T) {
	f := NewInvalidOperation("no session; call Validate first")
	wrapped := fmt.Errorf("ensure valid: %w", f)

	got, ok := AsFailure(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindInvalidOperation, got.Kind)

	_, ok = AsFailure(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsFailure(nil)
	assert.False(t, ok)
}

func TestIsKind(t *testing.T) {
	f := Classify(CodeAccessDenied, http.StatusForbidden, "")

	assert.True(t, IsKind(f, KindAccessDenied))
	assert.False(t, IsKind(f, KindTokenInvalid))
	assert.False(t, IsKind(errors.New("plain"), KindAccessDenied))
}

func TestRenderUsesRemoteStatus(t *testing.T) {
	f := Classify(CodeRateLimited, http.StatusTooManyRequests, "10")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	require.NoError(t, f.Render(w, r))
}

func TestRenderStatusForLocalFailures(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{kind: KindInvalidOperation, want: http.StatusPreconditionRequired},
		{kind: KindTokenInvalid, want: http.StatusUnauthorized},
		{kind: KindRateLimited, want: http.StatusTooManyRequests},
		{kind: KindNetworkFailure, want: http.StatusServiceUnavailable},
		{kind: KindResourceNotFound, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, renderStatus(tt.kind))
		})
	}
}

func TestKindStringsAreUnique(t *testing.T) {
	kinds := []Kind{
		KindGenericAPI, KindInvalidLicense, KindLicenseExpired,
		KindLicenseSuspended, KindLicenseRevoked, KindIdentifierMismatch,
		KindTokenInvalid, KindAPIDisabled, KindRateLimited,
		KindResourceNotFound, KindAccessDenied, KindDownloadRateLimited,
		KindNetworkFailure, KindInvalidOperation,
	}

	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		assert.False(t, seen[k.String()], "duplicate name %s", k)
		seen[k.String()] = true
	}
}
