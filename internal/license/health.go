package license

import (
	"context"
	"time"
)

// HealthStatus represents the overall health of the license subsystem.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth reports the health of one subsystem component.
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Error     string       `json:"error,omitempty"`
}

// HealthReport is the full license subsystem health snapshot.
type HealthReport struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// Health checks the client's session and connectivity state. Session
// checks are local; the connectivity check exercises EnsureValid and
// so may touch the network when the token needs refreshing.
func (c *Client) Health(ctx context.Context) HealthReport {
	now := time.Now().UTC()
	components := map[string]ComponentHealth{
		"fingerprint": c.fingerprintHealth(ctx, now),
		"session":     c.sessionHealth(now),
		"server":      c.serverHealth(ctx, now),
	}

	overall := HealthStatusHealthy
	for _, comp := range components {
		switch comp.Status {
		case HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		}
	}

	return HealthReport{
		Status:     overall,
		Components: components,
		Timestamp:  now,
	}
}

func (c *Client) fingerprintHealth(ctx context.Context, now time.Time) ComponentHealth {
	id := c.collector.Fingerprint(ctx)
	if id == "" {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   "device fingerprint unavailable",
			Timestamp: now,
		}
	}
	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Message:   "device fingerprint available",
		Timestamp: now,
	}
}

func (c *Client) sessionHealth(now time.Time) ComponentHealth {
	mgr := c.manager()
	if mgr == nil || !mgr.IsAuthenticated() {
		return ComponentHealth{
			Status:    HealthStatusDegraded,
			Message:   "no active session, activation required",
			Timestamp: now,
		}
	}

	expiry := mgr.Expiry()
	if !expiry.After(now) {
		return ComponentHealth{
			Status:    HealthStatusDegraded,
			Message:   "session token expired, refresh pending",
			Timestamp: now,
		}
	}
	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Message:   "session token valid until " + expiry.Format(time.RFC3339),
		Timestamp: now,
	}
}

func (c *Client) serverHealth(ctx context.Context, now time.Time) ComponentHealth {
	mgr := c.manager()
	if mgr == nil {
		return ComponentHealth{
			Status:    HealthStatusDegraded,
			Message:   "connectivity unknown before activation",
			Timestamp: now,
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mgr.EnsureValid(checkCtx); err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   "license server check failed",
			Timestamp: now,
			Error:     err.Error(),
		}
	}
	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Message:   "license server reachable",
		Timestamp: now,
	}
}
