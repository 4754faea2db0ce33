package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/database"
	"github.com/codewiz073-droid/bwami/internal/middleware"
	"github.com/codewiz073-droid/bwami/internal/models"
	"github.com/codewiz073-droid/bwami/internal/repository"
	"github.com/codewiz073-droid/bwami/pkg/utils"
)

const historyLimit = 200

type ChatHandler struct {
	repoManager *repository.RepositoryManager
	// cache may be nil; history is then always read from the database.
	cache  *database.Cache
	logger *logrus.Logger
}

func NewChatHandler(repoManager *repository.RepositoryManager, cache *database.Cache, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{repoManager: repoManager, cache: cache, logger: logger}
}

// HandleListChats returns the authenticated user's conversations.
func (h *ChatHandler) HandleListChats(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	chats, err := h.repoManager.Chats.ListForUser(userID, 50)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list chats")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list chats", err)
		return
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		count, err := h.repoManager.Messages.CountForChat(chat.ChatID)
		if err != nil {
			count = 0
		}
		summaries = append(summaries, models.ChatSummary{
			ChatID:       chat.ChatID,
			Title:        chat.Title,
			MessageCount: int(count),
			UpdatedAt:    chat.UpdatedAt.Format(time.RFC3339),
		})
	}

	utils.SuccessResponse(c, http.StatusOK, "Chats retrieved", summaries)
}

// HandleChatHistory returns the messages of one conversation.
func (h *ChatHandler) HandleChatHistory(c *gin.Context) {
	chatID := c.Param("chat_id")
	if !utils.ValidateChatID(chatID) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid chat id", nil)
		return
	}

	if h.cache != nil {
		if cached, err := h.cache.GetCachedChatHistory(c.Request.Context(), chatID); err == nil {
			utils.SuccessResponse(c, http.StatusOK, "History retrieved", cached)
			return
		}
	}

	messages, err := h.repoManager.Messages.History(chatID, historyLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load chat history")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load chat history", err)
		return
	}

	if h.cache != nil {
		if err := h.cache.CacheChatHistory(c.Request.Context(), chatID, messages, 30*time.Second); err != nil {
			h.logger.WithError(err).Debug("Failed to cache chat history")
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "History retrieved", messages)
}

// HandleDeleteChat removes a conversation and its messages.
func (h *ChatHandler) HandleDeleteChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	if !utils.ValidateChatID(chatID) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid chat id", nil)
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	chat, err := h.repoManager.Chats.GetByChatID(chatID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Chat not found", nil)
		return
	}
	if chat.UserID == nil || *chat.UserID != userID {
		utils.ErrorResponse(c, http.StatusForbidden, "Not your chat", nil)
		return
	}

	if err := h.repoManager.Chats.Delete(chatID); err != nil {
		h.logger.WithError(err).Error("Failed to delete chat")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete chat", err)
		return
	}

	if h.cache != nil {
		if err := h.cache.InvalidateChatHistory(c.Request.Context(), chatID); err != nil {
			h.logger.WithError(err).Debug("Failed to invalidate chat history cache")
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Chat deleted", nil)
}
