// Package monitoring runs the liveness and readiness probes behind the
// health endpoints.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// ProbeFunc reports on one dependency; a nil error means up.
type ProbeFunc func(ctx context.Context) error

// Check is a named probe.
type Check struct {
	Name    string
	Probe   ProbeFunc
	Timeout time.Duration
}

const defaultProbeTimeout = 2 * time.Second

// HealthManager coordinates liveness and readiness probes.
type HealthManager struct {
	livenessChecks  []Check
	readinessChecks []Check
}

// NewHealthManager constructs an empty health manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{}
}

// RegisterLiveness appends a liveness probe. Unnamed checks are ignored.
func (m *HealthManager) RegisterLiveness(check Check) {
	if check.Name != "" {
		m.livenessChecks = append(m.livenessChecks, check)
	}
}

// RegisterReadiness appends a readiness probe. Unnamed checks are ignored.
func (m *HealthManager) RegisterReadiness(check Check) {
	if check.Name != "" {
		m.readinessChecks = append(m.readinessChecks, check)
	}
}

// EvaluateLiveness executes all configured liveness checks.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	return evaluate(ctx, m.livenessChecks)
}

// EvaluateReadiness executes all configured readiness checks.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	return evaluate(ctx, m.readinessChecks)
}

func evaluate(ctx context.Context, checks []Check) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}
	report := HealthReport{Success: true, Status: StatusUp, Checks: make([]ProbeResult, 0, len(checks))}

	for _, check := range checks {
		result := runCheck(ctx, check)
		report.Checks = append(report.Checks, result)

		switch result.Status {
		case StatusDown:
			report.Success = false
			report.Status = StatusDown
		case StatusDegraded:
			report.Success = false
			if report.Status != StatusDown {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		result.Component = check.Name
		result.Duration = time.Since(start)
	}()

	if check.Probe == nil {
		return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
	}

	timeout := check.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return resultFromError(check.Probe(probeCtx))
}

// A probe that ran out of time is degraded rather than down.
func resultFromError(err error) ProbeResult {
	switch {
	case err == nil:
		return ProbeResult{Status: StatusUp}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ProbeResult{Status: StatusDegraded, Details: err.Error()}
	default:
		return ProbeResult{Status: StatusDown, Details: err.Error()}
	}
}
