package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/scheduler/daemon"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	*observability.MetricsSnapshot
	UnderstoodRate float64              `json:"understood_rate"`
	Version        string               `json:"version,omitempty"`
	Health         *daemon.HealthStatus `json:"health,omitempty"`
}

// GetMetrics returns the process metrics together with the daemon health.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	metrics := s.Metrics
	if metrics == nil {
		metrics = observability.GlobalMetrics()
	}
	snapshot := metrics.Snapshot()

	resp := MetricsOverviewResponse{
		MetricsSnapshot: snapshot,
		UnderstoodRate:  snapshot.UnderstoodRate(),
	}
	if s.Profile != nil {
		resp.Version = s.Profile.Version
	}
	if s.Health != nil {
		health := s.Health.HealthCheck()
		resp.Health = &health
	}
	return c.JSON(http.StatusOK, resp)
}

// GetHealth answers 200 while the daemon runs and is not degraded, else 503.
// GET /healthz
func (s *APIV1Service) GetHealth(c echo.Context) error {
	if s.Health == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "daemon not configured"})
	}
	health := s.Health.HealthCheck()
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, health)
}
