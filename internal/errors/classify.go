package errors

import (
	"net/http"
	"strconv"
	"time"
)

// Remote error codes returned by the license service. Closed set; anything
// else classifies as KindGenericAPI.
const (
	CodeInvalidLicense      = "INVALID_LICENSE"
	CodeLicenseExpired      = "LICENSE_EXPIRED"
	CodeLicenseSuspended    = "LICENSE_SUSPENDED"
	CodeLicenseRevoked      = "LICENSE_REVOKED"
	CodeIdentifierMismatch  = "IDENTIFIER_MISMATCH"
	CodeTokenMissing        = "TOKEN_MISSING"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenRevoked        = "TOKEN_REVOKED"
	CodeAPIDisabled         = "API_DISABLED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeNotFound            = "NOT_FOUND"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeDownloadRateLimited = "DOWNLOAD_RATE_LIMITED"
)

// Classify maps a remote error code plus HTTP status to a typed Failure. It is
// the single place error-kind decisions are made; no other component
// interprets a remote code. retryAfterHeader is the raw Retry-After header
// value, empty when absent.
func Classify(code string, httpStatus int, retryAfterHeader string) *Failure {
	f := &Failure{
		Code:       code,
		HTTPStatus: httpStatus,
	}

	switch code {
	case CodeInvalidLicense:
		f.Kind = KindInvalidLicense
		f.Message = "the provided license key is not valid"
	case CodeLicenseExpired:
		f.Kind = KindLicenseExpired
		f.Message = "the license has expired"
	case CodeLicenseSuspended:
		f.Kind = KindLicenseSuspended
		f.Message = "the license is suspended"
	case CodeLicenseRevoked:
		f.Kind = KindLicenseRevoked
		f.Message = "the license has been revoked"
	case CodeIdentifierMismatch:
		f.Kind = KindIdentifierMismatch
		f.Message = "the license is bound to a different device"
	case CodeTokenMissing:
		f.Kind = KindTokenInvalid
		f.Message = "no session token was supplied"
	case CodeTokenInvalid:
		f.Kind = KindTokenInvalid
		f.Message = "the session token is not valid"
	case CodeTokenExpired:
		f.Kind = KindTokenInvalid
		f.Message = "the session token has expired"
	case CodeTokenRevoked:
		f.Kind = KindTokenInvalid
		f.Message = "the session token has been revoked"
	case CodeAPIDisabled:
		f.Kind = KindAPIDisabled
		f.Message = "API access is disabled for this license"
	case CodeRateLimited:
		f.Kind = KindRateLimited
		f.Message = "too many requests, slow down"
		f.RetryAfter = parseRetryAfter(retryAfterHeader)
	case CodeNotFound:
		f.Kind = KindResourceNotFound
		f.Message = "the requested resource was not found"
	case CodeAccessDenied:
		f.Kind = KindAccessDenied
		f.Message = "the license does not grant access to this resource"
	case CodeDownloadRateLimited:
		f.Kind = KindDownloadRateLimited
		f.Message = "download limit reached"
		f.RetryAfter = parseRetryAfter(retryAfterHeader)
	default:
		f.Kind = KindGenericAPI
		f.Message = "the license server reported an unrecognized error"
		if httpStatus == 0 {
			f.HTTPStatus = http.StatusInternalServerError
		}
	}

	return f
}

// parseRetryAfter interprets a Retry-After header as delay seconds. HTTP-date
// forms are not produced by the license service and yield zero.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
