package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "permitcli/internal/errors"
)

// SessionMetrics records session operation outcomes as OpenTelemetry
// metrics. It implements session.Recorder; when no meter provider is
// configured the instruments are no-ops.
type SessionMetrics struct {
	validationAttempts metric.Int64Counter
	validationFailures metric.Int64Counter
	validationDuration metric.Float64Histogram

	refreshAttempts metric.Int64Counter
	refreshFailures metric.Int64Counter
	refreshDuration metric.Float64Histogram

	recoveries metric.Int64Counter
}

// NewSessionMetrics creates the session metric instruments on the
// global meter provider.
func NewSessionMetrics() (*SessionMetrics, error) {
	meter := otel.Meter("permitcli/license")
	m := &SessionMetrics{}

	var err error
	m.validationAttempts, err = meter.Int64Counter(
		"license_validation_attempts_total",
		metric.WithDescription("Total number of license validation attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("create validation attempts counter: %w", err)
	}

	m.validationFailures, err = meter.Int64Counter(
		"license_validation_failures_total",
		metric.WithDescription("Total number of failed license validations"),
	)
	if err != nil {
		return nil, fmt.Errorf("create validation failures counter: %w", err)
	}

	m.validationDuration, err = meter.Float64Histogram(
		"license_validation_duration_seconds",
		metric.WithDescription("License validation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create validation duration histogram: %w", err)
	}

	m.refreshAttempts, err = meter.Int64Counter(
		"license_refresh_attempts_total",
		metric.WithDescription("Total number of token refresh attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("create refresh attempts counter: %w", err)
	}

	m.refreshFailures, err = meter.Int64Counter(
		"license_refresh_failures_total",
		metric.WithDescription("Total number of failed token refreshes"),
	)
	if err != nil {
		return nil, fmt.Errorf("create refresh failures counter: %w", err)
	}

	m.refreshDuration, err = meter.Float64Histogram(
		"license_refresh_duration_seconds",
		metric.WithDescription("Token refresh duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create refresh duration histogram: %w", err)
	}

	m.recoveries, err = meter.Int64Counter(
		"license_session_recoveries_total",
		metric.WithDescription("Total number of refresh failures recovered by re-validation"),
	)
	if err != nil {
		return nil, fmt.Errorf("create recoveries counter: %w", err)
	}

	return m, nil
}

// RecordValidate records one validate attempt.
func (m *SessionMetrics) RecordValidate(ctx context.Context, duration time.Duration, err error) {
	attrs := outcomeAttributes(err)
	m.validationAttempts.Add(ctx, 1, attrs)
	m.validationDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.validationFailures.Add(ctx, 1, attrs)
	}
}

// RecordRefresh records one refresh attempt.
func (m *SessionMetrics) RecordRefresh(ctx context.Context, duration time.Duration, err error) {
	attrs := outcomeAttributes(err)
	m.refreshAttempts.Add(ctx, 1, attrs)
	m.refreshDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.refreshFailures.Add(ctx, 1, attrs)
	}
}

// RecordRecovery records one refresh-to-revalidate recovery.
func (m *SessionMetrics) RecordRecovery(ctx context.Context) {
	m.recoveries.Add(ctx, 1)
}

func outcomeAttributes(err error) metric.MeasurementOption {
	if err == nil {
		return metric.WithAttributes(attribute.String("outcome", "success"))
	}
	kind := "error"
	if f, ok := apperrors.AsFailure(err); ok {
		kind = f.Kind.String()
	}
	return metric.WithAttributes(
		attribute.String("outcome", "failure"),
		attribute.String("failure_kind", kind),
	)
}
