package vecquery

import (
	"context"

	healthuc "github.com/kailas-cloud/vecquery/internal/usecase/health"
)

// HealthStatus represents the aggregated builder health.
type HealthStatus struct {
	Status string            // "ok", "degraded"
	Engine string            // resolved engine type
	Checks map[string]string // component -> "ok"/"error"/"disabled"
}

// Health checks the vector cache, the vectorizer and semantic search.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Engine: report.Engine,
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
