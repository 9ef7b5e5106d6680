package daemon

import "time"

// Stats holds daemon statistics since start.
type Stats struct {
	Cycles               int64 `json:"cycles"`
	TotalFired           int64 `json:"total_fired"`
	TotalSkipped         int64 `json:"total_skipped"`
	TotalPublishFailures int64 `json:"total_publish_failures"`
}

// HealthStatus represents the health of the daemon.
type HealthStatus struct {
	Healthy             bool      `json:"healthy"`
	Running             bool      `json:"running"`
	Degraded            bool      `json:"degraded"`
	LastCycleAt         time.Time `json:"last_cycle_at,omitzero"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Stats               Stats     `json:"stats"`
}

// HealthCheck returns the health status.
func (d *Daemon) HealthCheck() HealthStatus {
	running := d.IsRunning()

	d.healthMu.RLock()
	defer d.healthMu.RUnlock()
	return HealthStatus{
		Healthy:             running && !d.degraded,
		Running:             running,
		Degraded:            d.degraded,
		LastCycleAt:         d.lastCycleAt,
		ConsecutiveFailures: d.consecutiveFailures,
		Stats:               d.stats,
	}
}
