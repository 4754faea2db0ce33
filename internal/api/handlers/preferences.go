package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/middleware"
	"github.com/codewiz073-droid/bwami/internal/models"
	"github.com/codewiz073-droid/bwami/internal/repository"
	"github.com/codewiz073-droid/bwami/pkg/utils"
)

type PreferencesHandler struct {
	repoManager *repository.RepositoryManager
	logger      *logrus.Logger
}

func NewPreferencesHandler(repoManager *repository.RepositoryManager, logger *logrus.Logger) *PreferencesHandler {
	return &PreferencesHandler{repoManager: repoManager, logger: logger}
}

func (h *PreferencesHandler) HandleGetPreferences(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	prefs, err := h.repoManager.Preferences.GetByUserID(userID)
	if err != nil {
		// No stored row means defaults.
		prefs = &models.UserPreferences{
			UserID:            userID,
			ResponseFormat:    "formatted",
			UseLists:          true,
			UseNumbered:       true,
			UseBullets:        true,
			UseEmojis:         true,
			IncludeConfidence: true,
			PreferredTone:     "professional",
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Preferences retrieved", prefs)
}

func (h *PreferencesHandler) HandleUpdatePreferences(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req models.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	prefs, err := h.repoManager.Preferences.GetByUserID(userID)
	if err != nil {
		prefs = &models.UserPreferences{
			UserID:            userID,
			ResponseFormat:    "formatted",
			UseLists:          true,
			UseNumbered:       true,
			UseBullets:        true,
			UseEmojis:         true,
			IncludeConfidence: true,
			PreferredTone:     "professional",
		}
	}

	if req.ResponseFormat != nil {
		prefs.ResponseFormat = *req.ResponseFormat
	}
	if req.UseLists != nil {
		prefs.UseLists = *req.UseLists
	}
	if req.UseNumbered != nil {
		prefs.UseNumbered = *req.UseNumbered
	}
	if req.UseBullets != nil {
		prefs.UseBullets = *req.UseBullets
	}
	if req.UseEmojis != nil {
		prefs.UseEmojis = *req.UseEmojis
	}
	if req.IncludeConfidence != nil {
		prefs.IncludeConfidence = *req.IncludeConfidence
	}
	if req.PreferredTone != nil {
		prefs.PreferredTone = *req.PreferredTone
	}

	if err := prefs.Validate(); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := h.repoManager.Preferences.Upsert(prefs); err != nil {
		h.logger.WithError(err).Error("Failed to save preferences")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save preferences", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Preferences updated", prefs)
}
