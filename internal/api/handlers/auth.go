package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/auth"
	"github.com/codewiz073-droid/bwami/internal/models"
	"github.com/codewiz073-droid/bwami/pkg/utils"
)

type AuthHandler struct {
	service *auth.Service
	logger  *logrus.Logger
}

func NewAuthHandler(service *auth.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

func (h *AuthHandler) HandleRegister(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	user, token, err := h.service.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			utils.ErrorResponse(c, http.StatusConflict, "Username already taken", nil)
			return
		}
		h.logger.WithError(err).Error("Registration failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Registration failed", nil)
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{
		Token:    token,
		Username: user.Username,
		IsGuest:  false,
	})
}

func (h *AuthHandler) HandleLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	user, token, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid username or password", nil)
			return
		}
		h.logger.WithError(err).Error("Login failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Login failed", nil)
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Token:    token,
		Username: user.Username,
		IsGuest:  false,
	})
}

func (h *AuthHandler) HandleGuest(c *gin.Context) {
	user, token, err := h.service.Guest()
	if err != nil {
		h.logger.WithError(err).Error("Guest session creation failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Could not create guest session", nil)
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{
		Token:    token,
		Username: user.Username,
		IsGuest:  true,
	})
}
