package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codewiz073-droid/bwami/internal/health"
	"github.com/codewiz073-droid/bwami/internal/models"
)

type HealthHandler struct {
	checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// HandleHealth is the liveness probe.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Service:   "bwami",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// HandleHealthDetailed checks every dependency and reports per-service
// status. Degraded connectivity is not a failure: the offline backend still
// serves.
func (h *HealthHandler) HandleHealthDetailed(c *gin.Context) {
	overall := h.checker.CheckAll()

	statusCode := http.StatusOK
	if overall.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, overall)
}
