package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/backend"
	"github.com/codewiz073-droid/bwami/internal/connectivity"
	"github.com/codewiz073-droid/bwami/internal/models"
	"github.com/codewiz073-droid/bwami/pkg/utils"
)

// ModeHandler exposes the backend mode: what connectivity detected, and the
// sticky override a client may set for its session.
type ModeHandler struct {
	monitor *connectivity.Monitor
	logger  *logrus.Logger

	mu       sync.RWMutex
	override *backend.Mode
}

func NewModeHandler(monitor *connectivity.Monitor, logger *logrus.Logger) *ModeHandler {
	return &ModeHandler{monitor: monitor, logger: logger}
}

// Override returns the currently forced mode, if any.
func (h *ModeHandler) Override() *backend.Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.override
}

// HandleGetMode reports the effective mode and the detected connectivity.
func (h *ModeHandler) HandleGetMode(c *gin.Context) {
	h.monitor.Check(c.Request.Context())
	state := h.monitor.State()

	mode := backend.Resolve(h.Override(), state.Online)

	c.JSON(http.StatusOK, models.ModeResponse{
		Mode:           string(mode),
		DetectedOnline: state.Online,
		DetectedStatus: state.Status,
	})
}

// HandleConnectivityStatus probes connectivity and reports the raw result
// with the user-facing mode indicator.
func (h *ModeHandler) HandleConnectivityStatus(c *gin.Context) {
	state := h.monitor.Check(c.Request.Context())

	c.JSON(http.StatusOK, models.ConnectivityStatusResponse{
		Online: state.Online,
		Status: state.Status,
		Mode:   state.Mode(),
	})
}

// HandleSetMode forces a mode, or clears the override when mode is "auto".
func (h *ModeHandler) HandleSetMode(c *gin.Context) {
	var req models.ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	h.mu.Lock()
	switch req.Mode {
	case "auto":
		h.override = nil
	default:
		mode, ok := backend.ParseMode(req.Mode)
		if !ok {
			h.mu.Unlock()
			utils.ErrorResponse(c, http.StatusBadRequest, "Mode must be 'online', 'offline' or 'auto'", nil)
			return
		}
		h.override = &mode
	}
	h.mu.Unlock()

	h.logger.WithField("mode", req.Mode).Info("Backend mode updated")

	h.monitor.Check(c.Request.Context())
	state := h.monitor.State()
	c.JSON(http.StatusOK, models.ModeResponse{
		Mode:           string(backend.Resolve(h.Override(), state.Online)),
		DetectedOnline: state.Online,
		DetectedStatus: state.Status,
	})
}
