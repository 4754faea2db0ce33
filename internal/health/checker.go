package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/connectivity"
	"github.com/codewiz073-droid/bwami/internal/database"
)

// HealthChecker manages health checks for all services
type HealthChecker struct {
	dbManager *database.Manager
	monitor   *connectivity.Monitor
	ollamaURL string
	logger    *logrus.Logger
}

func NewHealthChecker(dbManager *database.Manager, monitor *connectivity.Monitor, ollamaURL string, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		dbManager: dbManager,
		monitor:   monitor,
		ollamaURL: ollamaURL,
		logger:    logger,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

func (h *HealthChecker) CheckPostgreSQL() ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingDatabase()
	return h.report("postgresql", start, err)
}

func (h *HealthChecker) CheckRedis() ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingRedis()
	return h.report("redis", start, err)
}

// CheckOllama probes the local model daemon. An unhealthy daemon means the
// offline backend is unavailable, not that the service is down.
func (h *HealthChecker) CheckOllama() ServiceHealth {
	start := time.Now()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(h.ollamaURL + "/api/tags")
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			err = fmt.Errorf("HTTP %d", resp.StatusCode)
		}
	}

	return h.report("ollama", start, err)
}

// CheckInternet reports the connectivity monitor's last known state.
func (h *HealthChecker) CheckInternet() ServiceHealth {
	state := h.monitor.State()

	status := "healthy"
	errorMsg := ""
	if !state.Online {
		status = "degraded"
		errorMsg = state.Status
	}

	return ServiceHealth{
		Name:        "internet",
		Status:      status,
		Error:       errorMsg,
		LastChecked: state.LastChecked.Format(time.RFC3339),
	}
}

func (h *HealthChecker) report(name string, start time.Time, err error) ServiceHealth {
	responseTime := int(time.Since(start).Milliseconds())

	status := "healthy"
	errorMsg := ""
	if err != nil {
		status = "unhealthy"
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", name).Error("Health check failed")
	}

	return ServiceHealth{
		Name:         name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll() OverallHealth {
	services := []ServiceHealth{
		h.CheckPostgreSQL(),
		h.CheckRedis(),
		h.CheckOllama(),
		h.CheckInternet(),
	}

	overallStatus := "healthy"
	for _, service := range services {
		if service.Status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		}
		if service.Status == "degraded" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}
}

var startTime = time.Now()

func (h *HealthChecker) getUptime() string {
	return time.Since(startTime).String()
}

// PeriodicHealthCheck runs health checks periodically
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.CheckAll()
			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}
