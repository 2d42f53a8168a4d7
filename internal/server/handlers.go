package server

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthzResponse is the liveness probe payload.
type HealthzResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	UptimeS   float64   `json:"uptime_seconds"`
}

// ReadyzResponse is the readiness probe payload.
type ReadyzResponse struct {
	Ready  bool                   `json:"ready"`
	Checks map[string]interface{} `json:"checks"`
}

// handleHealthz is the liveness probe: the process is up and serving.
func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(HealthzResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		UptimeS:   time.Since(s.startedAt).Seconds(),
	})
}

// handleReadyz is the readiness probe: the database must be reachable.
func (s *Server) handleReadyz(c *fiber.Ctx) error {
	checks := make(map[string]interface{})
	ready := true

	if err := s.db.Ping(c.Context()); err != nil {
		checks["database"] = false
		ready = false
	} else {
		checks["database"] = true
	}

	status := fiber.StatusOK
	if !ready {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(ReadyzResponse{Ready: ready, Checks: checks})
}

// handleMetrics exposes a minimal Prometheus text-format scrape target
// covering connection pool saturation - enough to alert on the ingestor
// running out of headroom without needing a dedicated /metrics library
// wired through the whole call chain.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	stats := s.db.Stats()
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	body := fmt.Sprintf(
		"# HELP football_ingestor_db_pool_total_conns Total pool connections.\n"+
			"# TYPE football_ingestor_db_pool_total_conns gauge\n"+
			"football_ingestor_db_pool_total_conns %d\n"+
			"# HELP football_ingestor_db_pool_acquired_conns Acquired pool connections.\n"+
			"# TYPE football_ingestor_db_pool_acquired_conns gauge\n"+
			"football_ingestor_db_pool_acquired_conns %d\n"+
			"# HELP football_ingestor_db_pool_idle_conns Idle pool connections.\n"+
			"# TYPE football_ingestor_db_pool_idle_conns gauge\n"+
			"football_ingestor_db_pool_idle_conns %d\n"+
			"# HELP football_ingestor_uptime_seconds Process uptime in seconds.\n"+
			"# TYPE football_ingestor_uptime_seconds gauge\n"+
			"football_ingestor_uptime_seconds %f\n",
		stats.TotalConns(), stats.AcquiredConns(), stats.IdleConns(),
		time.Since(s.startedAt).Seconds(),
	)
	return c.SendString(body)
}
