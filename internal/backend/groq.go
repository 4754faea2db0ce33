package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// groqModels are the hosted models this client accepts, with coarse context
// window sizes used for logging only.
var groqModels = map[string]int{
	"mixtral-8x7b-32768": 32768,
	"llama3-8b-8192":     8192,
	"llama3-70b-8192":    8192,
	"gemma-7b-it":        8192,
}

// GroqConfig configures the hosted backend.
type GroqConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	RateLimit  int
	RateWindow time.Duration
}

// GroqGenerator talks to the Groq OpenAI-compatible API. It is the online
// backend.
type GroqGenerator struct {
	client  *openai.Client
	model   string
	limiter *WindowLimiter
	logger  *logrus.Logger
}

func NewGroqGenerator(cfg GroqConfig, logger *logrus.Logger) (*GroqGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("groq api key is required")
	}
	if _, ok := groqModels[cfg.Model]; !ok {
		return nil, fmt.Errorf("unsupported groq model %q", cfg.Model)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &GroqGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		limiter: NewWindowLimiter(cfg.RateLimit, cfg.RateWindow),
		logger:  logger,
	}, nil
}

func (g *GroqGenerator) Name() Mode { return ModeOnline }

func (g *GroqGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if !g.limiter.Allow() {
		remaining, resetIn := g.limiter.Status()
		g.logger.WithFields(logrus.Fields{
			"remaining": remaining,
			"reset_in":  resetIn.String(),
		}).Warn("Groq request blocked by local rate limiter")
		return "", newBackendError(KindRateLimited, "local rate limit window exhausted", nil)
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, g.chatRequest(req, false))
	if err != nil {
		return "", g.classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", newBackendError(KindInvalidResponse, "completion had no choices", nil)
	}

	g.logger.WithFields(logrus.Fields{
		"model":    g.modelFor(req),
		"duration": time.Since(start).String(),
		"tokens":   resp.Usage.TotalTokens,
	}).Debug("Groq completion finished")

	return resp.Choices[0].Message.Content, nil
}

func (g *GroqGenerator) GenerateStream(ctx context.Context, req GenerationRequest) (<-chan Fragment, error) {
	if !g.limiter.Allow() {
		return nil, newBackendError(KindRateLimited, "local rate limit window exhausted", nil)
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, g.chatRequest(req, true))
	if err != nil {
		return nil, g.classify(err)
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case out <- Fragment{Err: g.classify(err)}:
				case <-ctx.Done():
				}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				select {
				case out <- Fragment{Text: delta}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (g *GroqGenerator) chatRequest(req GenerationRequest, stream bool) openai.ChatCompletionRequest {
	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	return openai.ChatCompletionRequest{
		Model:    g.modelFor(req),
		Messages: messages,
		Stream:   stream,
	}
}

func (g *GroqGenerator) modelFor(req GenerationRequest) string {
	if req.Model != "" {
		if _, ok := groqModels[req.Model]; ok {
			return req.Model
		}
		g.logger.WithField("model", req.Model).Warn("Ignoring unsupported model override")
	}
	return g.model
}

// classify maps transport and API errors onto ErrorKind so the selector can
// tell a retryable outage from a configuration problem.
func (g *GroqGenerator) classify(err error) *BackendError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return newBackendError(KindAuth, "groq rejected the api key", err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return newBackendError(KindRateLimited, "groq rate limit exceeded", err)
		case apiErr.HTTPStatusCode >= 500:
			return newBackendError(KindServer, "groq server error", err)
		}
		return newBackendError(KindUnknown, "groq api error", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newBackendError(KindTimeout, "groq request timed out", err)
	}

	return newBackendError(KindConnection, "groq request failed", err)
}
