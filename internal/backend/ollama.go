package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// OllamaConfig configures the local backend.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaGenerator talks to a local Ollama daemon. It is the offline backend
// and works with no internet connection.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewOllamaGenerator(cfg OllamaConfig, logger *logrus.Logger) *OllamaGenerator {
	return &OllamaGenerator{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (o *OllamaGenerator) Name() Mode { return ModeOffline }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (o *OllamaGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	resp, err := o.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newBackendError(KindConnection, "failed to read ollama response", err)
	}

	var parsed ollamaGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newBackendError(KindInvalidResponse, "ollama returned malformed json", err)
	}
	if parsed.Error != "" {
		return "", newBackendError(KindServer, "ollama error: "+parsed.Error, nil)
	}

	return parsed.Response, nil
}

// GenerateStream reads the line-delimited JSON stream from /api/generate and
// forwards each chunk's text.
func (o *OllamaGenerator) GenerateStream(ctx context.Context, req GenerationRequest) (<-chan Fragment, error) {
	resp, err := o.post(ctx, req, true)
	if err != nil {
		return nil, err
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk ollamaGenerateResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				select {
				case out <- Fragment{Err: newBackendError(KindInvalidResponse, "ollama stream returned malformed json", err)}:
				case <-ctx.Done():
				}
				return
			}
			if chunk.Error != "" {
				select {
				case out <- Fragment{Err: newBackendError(KindServer, "ollama error: "+chunk.Error, nil)}:
				case <-ctx.Done():
				}
				return
			}
			if chunk.Response != "" {
				select {
				case out <- Fragment{Text: chunk.Response}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- Fragment{Err: o.classify(err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (o *OllamaGenerator) post(ctx context.Context, req GenerationRequest, stream bool) (*http.Response, error) {
	payload := ollamaGenerateRequest{
		Model:  o.modelFor(req),
		Prompt: foldPrompt(req),
		Stream: stream,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, newBackendError(KindUnknown, "failed to marshal ollama request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, newBackendError(KindUnknown, "failed to create ollama request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	o.logger.WithFields(logrus.Fields{
		"model":  payload.Model,
		"stream": stream,
	}).Debug("Sending ollama generate request")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, o.classify(err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return nil, newBackendError(KindServer, fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, body), nil)
		}
		return nil, newBackendError(KindInvalidResponse, fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, body), nil)
	}

	return resp, nil
}

func (o *OllamaGenerator) modelFor(req GenerationRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return o.model
}

// foldPrompt merges the system prompt into the single prompt string the
// generate endpoint expects.
func foldPrompt(req GenerationRequest) string {
	if req.SystemPrompt == "" {
		return req.Prompt
	}
	return fmt.Sprintf("%s\n\nUser: %s\n\nAssistant:", req.SystemPrompt, req.Prompt)
}

func (o *OllamaGenerator) classify(err error) *BackendError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newBackendError(KindTimeout, "ollama request timed out", err)
	}
	return newBackendError(KindConnection, "could not reach ollama daemon", err)
}
