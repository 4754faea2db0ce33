// Package pipeline orchestrates one query end to end: classify, select a
// backend, generate, verify, and stream the result as ordered events.
package pipeline

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/backend"
	"github.com/codewiz073-droid/bwami/internal/classifier"
	"github.com/codewiz073-droid/bwami/internal/connectivity"
	"github.com/codewiz073-droid/bwami/internal/handler"
	"github.com/codewiz073-droid/bwami/internal/quality"
)

// Query is one incoming question.
type Query struct {
	Text   string
	ChatID string
	// RequestedMode overrides connectivity-based backend selection.
	RequestedMode *backend.Mode
}

// Result is what the transport persists after a stream completes.
type Result struct {
	ResponseText string
	Category     classifier.Category
	BackendUsed  backend.Mode
	Confidence   quality.Confidence
	Verified     bool
	Sources      []string
	Blocked      bool
}

// Formatter lets the transport apply per-user presentation preferences to
// the final text before it is streamed. A nil Formatter passes text through.
type Formatter func(text string, confidence quality.Confidence, sources []string) string

// Pipeline wires the stages together. All dependencies are injected so
// tests can run the whole flow with fakes.
type Pipeline struct {
	registry *handler.Registry
	monitor  *connectivity.Monitor
	selector *backend.Selector
	verifier *quality.Verifier
	logger   *logrus.Logger
}

func New(registry *handler.Registry, monitor *connectivity.Monitor, selector *backend.Selector, verifier *quality.Verifier, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		registry: registry,
		monitor:  monitor,
		selector: selector,
		verifier: verifier,
		logger:   logger,
	}
}

// Ask answers a query and streams events to emit. The event order is fixed:
// one status event, zero or more text events, one metadata event, then the
// single terminal done event. Any failure replaces the remainder of the
// sequence with a single error event.
//
// The quality stage runs on every query so low-value answers are replaced
// or withheld regardless of endpoint. verify only controls whether the
// metadata event carries the verification fields.
func (p *Pipeline) Ask(ctx context.Context, query Query, verify bool, format Formatter, emit Emitter) (*Result, error) {
	classification := classifier.Classify(query.Text)
	h := p.registry.Resolve(classification.Category)

	p.monitor.Check(ctx)
	state := p.monitor.State()
	mode := backend.Resolve(query.RequestedMode, state.Online)

	logger := p.logger.WithFields(logrus.Fields{
		"chat_id":  query.ChatID,
		"category": classification.Category,
		"mode":     mode,
	})
	logger.Info("Processing query")

	if err := emit(StreamEvent{Type: EventStatus, Mode: string(mode)}); err != nil {
		return nil, err
	}

	prompt, system := h.BuildPrompt(query.Text)
	candidate, err := p.selector.Generate(ctx, mode, backend.GenerationRequest{
		Prompt:       prompt,
		SystemPrompt: system,
	})
	if err != nil {
		logger.WithError(err).Error("Generation failed on all backends")
		message := "generation failed"
		if errors.Is(err, backend.ErrAllBackendsFailed) {
			message = "no generation backend is available"
		}
		if emitErr := emit(StreamEvent{Type: EventError, Error: message}); emitErr != nil {
			return nil, emitErr
		}
		return nil, err
	}

	text := h.Postprocess(candidate.Text)

	result := &Result{
		Category:    classification.Category,
		BackendUsed: candidate.BackendUsed,
		Confidence:  quality.ConfidenceUnknown,
	}

	report := p.verifier.Verify(ctx, query.Text, text, classification.Category)
	result.Confidence = report.ConfidenceLevel
	result.Verified = report.WebVerified
	result.Sources = sourceURLs(report)
	text = report.ResponseText

	if report.Blocked {
		logger.Warn("Response withheld by quality check")
		result.Blocked = true
		if emitErr := emit(StreamEvent{Type: EventError, Error: "response withheld: could not verify against any source"}); emitErr != nil {
			return nil, emitErr
		}
		return result, nil
	}

	if format != nil {
		text = format(text, result.Confidence, result.Sources)
	}
	result.ResponseText = text

	for _, token := range tokenize(text) {
		if err := emit(StreamEvent{Type: EventText, Content: token}); err != nil {
			return nil, err
		}
	}

	metadata := StreamEvent{
		Type:        EventMetadata,
		Category:    string(result.Category),
		BackendUsed: string(result.BackendUsed),
		Confidence:  string(result.Confidence),
	}
	if verify {
		verified := result.Verified
		count := len(result.Sources)
		metadata.Verified = &verified
		metadata.SourcesCount = &count
		metadata.Sources = result.Sources
	}
	if err := emit(metadata); err != nil {
		return nil, err
	}

	if err := emit(StreamEvent{Type: EventDone}); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"backend":    result.BackendUsed,
		"confidence": result.Confidence,
	}).Info("Query answered")

	return result, nil
}

func sourceURLs(report quality.Report) []string {
	if len(report.VerifiedSources) == 0 {
		return nil
	}
	urls := make([]string, 0, len(report.VerifiedSources))
	for _, doc := range report.VerifiedSources {
		urls = append(urls, doc.URL)
	}
	return urls
}
