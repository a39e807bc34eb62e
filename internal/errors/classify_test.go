package errors

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownCodes(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		httpStatus int
		wantKind   Kind
	}{
		{name: "invalid license", code: CodeInvalidLicense, httpStatus: http.StatusUnauthorized, wantKind: KindInvalidLicense},
		{name: "expired license", code: CodeLicenseExpired, httpStatus: http.StatusForbidden, wantKind: KindLicenseExpired},
		{name: "suspended license", code: CodeLicenseSuspended, httpStatus: http.StatusForbidden, wantKind: KindLicenseSuspended},
		{name: "revoked license", code: CodeLicenseRevoked, httpStatus: http.StatusForbidden, wantKind: KindLicenseRevoked},
		{name: "identifier mismatch", code: CodeIdentifierMismatch, httpStatus: http.StatusForbidden, wantKind: KindIdentifierMismatch},
		{name: "api disabled", code: CodeAPIDisabled, httpStatus: http.StatusForbidden, wantKind: KindAPIDisabled},
		{name: "not found", code: CodeNotFound, httpStatus: http.StatusNotFound, wantKind: KindResourceNotFound},
		{name: "access denied", code: CodeAccessDenied, httpStatus: http.StatusForbidden, wantKind: KindAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Classify(tt.code, tt.httpStatus, "")

			require.NotNil(t, f)
			assert.Equal(t, tt.wantKind, f.Kind)
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, tt.httpStatus, f.HTTPStatus)
			assert.NotEmpty(t, f.Message)
		})
	}
}

func TestClassifyTokenVariantsCollapseToTokenInvalid(t *testing.T) {
	codes := []string{CodeTokenMissing, CodeTokenInvalid, CodeTokenExpired, CodeTokenRevoked}

	seen := make(map[string]bool)
	for _, code := range codes {
		f := Classify(code, http.StatusUnauthorized, "")

		assert.Equal(t, KindTokenInvalid, f.Kind, "code %s", code)
		assert.True(t, f.IsTokenFailure(), "code %s", code)
		// Variants stay distinguishable through code and message.
		assert.Equal(t, code, f.Code)
		assert.False(t, seen[f.Message], "duplicate message for %s", code)
		seen[f.Message] = true
	}
}

func TestClassifyRateLimitedCarriesRetryAfter(t *testing.T) {
	f := Classify(CodeRateLimited, http.StatusTooManyRequests, "30")

	assert.Equal(t, KindRateLimited, f.Kind)
	assert.Equal(t, 30*time.Second, f.RetryAfter)
	assert.Equal(t, 30, f.Payload().RetryAfter)
}

func TestClassifyDownloadRateLimited(t *testing.T) {
	f := Classify(CodeDownloadRateLimited, http.StatusTooManyRequests, "120")

	assert.Equal(t, KindDownloadRateLimited, f.Kind)
	assert.Equal(t, 2*time.Minute, f.RetryAfter)
}

func TestClassifyRetryAfterEdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "absent header", header: "", want: 0},
		{name: "garbage header", header: "soon", want: 0},
		{name: "negative header", header: "-5", want: 0},
		{name: "zero header", header: "0", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Classify(CodeRateLimited, http.StatusTooManyRequests, tt.header)
			assert.Equal(t, tt.want, f.RetryAfter)
		})
	}
}

func TestClassifyUnknownCode(t *testing.T) {
	f := Classify("X_WEIRD", http.StatusTeapot, "")

	assert.Equal(t, KindGenericAPI, f.Kind)
	assert.Equal(t, "X_WEIRD", f.Code)
	assert.Equal(t, http.StatusTeapot, f.HTTPStatus)
}

func TestClassifyUnknownCodeWithoutStatusDefaultsTo500(t *testing.T) {
	f := Classify("X_WEIRD", 0, "")

	assert.Equal(t, http.StatusInternalServerError, f.HTTPStatus)
}

func TestClassifyIsDeterministic(t *testing.T) {
	a := Classify(CodeRateLimited, http.StatusTooManyRequests, "30")
	b := Classify(CodeRateLimited, http.StatusTooManyRequests, "30")

	assert.Equal(t, a, b)
}
