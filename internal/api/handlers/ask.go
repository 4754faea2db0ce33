package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/backend"
	"github.com/codewiz073-droid/bwami/internal/formatter"
	"github.com/codewiz073-droid/bwami/internal/middleware"
	"github.com/codewiz073-droid/bwami/internal/models"
	"github.com/codewiz073-droid/bwami/internal/pipeline"
	"github.com/codewiz073-droid/bwami/internal/quality"
	"github.com/codewiz073-droid/bwami/internal/repository"
	"github.com/codewiz073-droid/bwami/pkg/utils"
)

type AskHandler struct {
	pipeline    *pipeline.Pipeline
	repoManager *repository.RepositoryManager
	// modeOverride returns the sticky mode set via the mode endpoint, or
	// nil when selection is automatic.
	modeOverride func() *backend.Mode
	logger       *logrus.Logger
}

func NewAskHandler(p *pipeline.Pipeline, repoManager *repository.RepositoryManager, modeOverride func() *backend.Mode, logger *logrus.Logger) *AskHandler {
	return &AskHandler{
		pipeline:     p,
		repoManager:  repoManager,
		modeOverride: modeOverride,
		logger:       logger,
	}
}

// HandleAsk streams an answer. Quality checking still runs; only the
// verification metadata is left out of the stream.
func (h *AskHandler) HandleAsk(c *gin.Context) {
	h.handle(c, false)
}

// HandleAskVerified streams an answer with verification metadata and source
// listings.
func (h *AskHandler) HandleAskVerified(c *gin.Context) {
	h.handle(c, true)
}

func (h *AskHandler) handle(c *gin.Context, verify bool) {
	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Question cannot be empty", nil)
		return
	}
	if len(question) > 4000 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Question too long (max 4000 characters)", nil)
		return
	}

	// A per-request mode beats the session override; the override beats
	// automatic selection.
	var requestedMode *backend.Mode
	if req.Mode != "" {
		mode, ok := backend.ParseMode(req.Mode)
		if !ok {
			utils.ErrorResponse(c, http.StatusBadRequest, "Mode must be 'online' or 'offline'", nil)
			return
		}
		requestedMode = &mode
	} else if h.modeOverride != nil {
		requestedMode = h.modeOverride()
	}

	chatID := req.ChatID
	if chatID == "" {
		chatID = utils.NewChatID()
	} else if !utils.ValidateChatID(chatID) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid chat id", nil)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Chat-ID", chatID)
	c.Writer.WriteHeader(http.StatusOK)

	emit := func(event pipeline.StreamEvent) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	query := pipeline.Query{
		Text:          question,
		ChatID:        chatID,
		RequestedMode: requestedMode,
	}

	result, err := h.pipeline.Ask(c.Request.Context(), query, verify, h.formatterFor(c), emit)
	if err != nil {
		// The terminal error event already went to the client.
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Ask pipeline failed")
		return
	}

	if result != nil && !result.Blocked {
		h.persist(c, chatID, question, result)
	}
}

// formatterFor builds the preference-driven formatter for the current user.
// Anonymous requests get the defaults.
func (h *AskHandler) formatterFor(c *gin.Context) pipeline.Formatter {
	prefs := formatter.DefaultPreferences()

	if userID, ok := middleware.UserID(c); ok {
		if stored, err := h.repoManager.Preferences.GetByUserID(userID); err == nil {
			prefs = formatter.Preferences{
				PlainFormat:       stored.ResponseFormat == "plain",
				UseLists:          stored.UseLists,
				UseNumbered:       stored.UseNumbered,
				UseBullets:        stored.UseBullets,
				UseEmojis:         stored.UseEmojis,
				IncludeConfidence: stored.IncludeConfidence,
				PreferredTone:     formatter.Tone(stored.PreferredTone),
			}
		}
	}

	return func(text string, confidence quality.Confidence, sources []string) string {
		marker := ""
		if confidence != quality.ConfidenceUnknown {
			marker = string(confidence)
		}
		return formatter.Format(text, prefs, marker, sources)
	}
}

func (h *AskHandler) persist(c *gin.Context, chatID, question string, result *pipeline.Result) {
	if _, err := h.repoManager.Chats.GetByChatID(chatID); err != nil {
		chat := &models.Chat{
			ChatID: chatID,
			Title:  chatTitle(question),
		}
		if userID, ok := middleware.UserID(c); ok {
			chat.UserID = &userID
		}
		if err := h.repoManager.Chats.Create(chat); err != nil {
			h.logger.WithError(err).Warn("Failed to create chat record")
			return
		}
	}

	userMessage := &models.Message{
		ChatRef: chatID,
		Role:    "user",
		Content: question,
	}
	if err := h.repoManager.Messages.Create(userMessage); err != nil {
		h.logger.WithError(err).Warn("Failed to persist user message")
	}

	assistantMessage := &models.Message{
		ChatRef:     chatID,
		Role:        "assistant",
		Content:     result.ResponseText,
		Category:    string(result.Category),
		BackendUsed: string(result.BackendUsed),
		Confidence:  string(result.Confidence),
		Verified:    result.Verified,
	}
	if err := h.repoManager.Messages.Create(assistantMessage); err != nil {
		h.logger.WithError(err).Warn("Failed to persist assistant message")
	}
}

func chatTitle(question string) string {
	const maxTitle = 60
	if len(question) <= maxTitle {
		return question
	}
	return question[:maxTitle] + "..."
}
