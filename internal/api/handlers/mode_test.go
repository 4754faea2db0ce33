package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewiz073-droid/bwami/internal/connectivity"
	"github.com/codewiz073-droid/bwami/internal/models"
)

func newModeRouter(t *testing.T, online bool) (*gin.Engine, *ModeHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	endpoint := "http://127.0.0.1:1"
	if online {
		probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		t.Cleanup(probe.Close)
		endpoint = probe.URL
	}

	monitor := connectivity.NewMonitor([]string{endpoint}, 500*time.Millisecond, logger)
	handler := NewModeHandler(monitor, logger)

	router := gin.New()
	router.GET("/mode", handler.HandleGetMode)
	router.POST("/mode", handler.HandleSetMode)
	router.GET("/status/connectivity", handler.HandleConnectivityStatus)
	return router, handler
}

func getMode(t *testing.T, router *gin.Engine) models.ModeResponse {
	t.Helper()
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/mode", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp models.ModeResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func postMode(t *testing.T, router *gin.Engine, mode string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(models.ModeRequest{Mode: mode})
	req := httptest.NewRequest(http.MethodPost, "/mode", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestGetModeReflectsConnectivity(t *testing.T) {
	router, _ := newModeRouter(t, true)
	resp := getMode(t, router)

	assert.Equal(t, "online", resp.Mode)
	assert.True(t, resp.DetectedOnline)
	assert.Equal(t, connectivity.StatusConnected, resp.DetectedStatus)
}

func TestGetModeWhenOffline(t *testing.T) {
	router, _ := newModeRouter(t, false)
	resp := getMode(t, router)

	assert.Equal(t, "offline", resp.Mode)
	assert.False(t, resp.DetectedOnline)
}

func TestSetModeOverridesDetection(t *testing.T) {
	router, handler := newModeRouter(t, true)

	recorder := postMode(t, router, "offline")
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp models.ModeResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "offline", resp.Mode)
	assert.True(t, resp.DetectedOnline)

	require.NotNil(t, handler.Override())
	assert.Equal(t, "offline", string(*handler.Override()))
}

func TestSetModeAutoClearsOverride(t *testing.T) {
	router, handler := newModeRouter(t, true)

	postMode(t, router, "offline")
	require.NotNil(t, handler.Override())

	recorder := postMode(t, router, "auto")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, handler.Override())
}

func TestConnectivityStatusWhenOnline(t *testing.T) {
	router, _ := newModeRouter(t, true)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status/connectivity", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp models.ConnectivityStatusResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.True(t, resp.Online)
	assert.Equal(t, connectivity.StatusConnected, resp.Status)
	assert.Equal(t, "[ONLINE - Internet]", resp.Mode)
}

func TestConnectivityStatusWhenOffline(t *testing.T) {
	router, _ := newModeRouter(t, false)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status/connectivity", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp models.ConnectivityStatusResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.False(t, resp.Online)
	assert.Equal(t, connectivity.StatusOffline, resp.Status)
	assert.Equal(t, "[OFFLINE - Ollama]", resp.Mode)
}

func TestSetModeRejectsUnknownValue(t *testing.T) {
	router, _ := newModeRouter(t, true)
	recorder := postMode(t, router, "hybrid")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
