// Package handler owns the per-category prompt construction and response
// cleanup. Every classifier category has exactly one handler; the registry
// enforces that at construction time so a taxonomy change cannot silently
// route queries to a missing handler.
package handler

import (
	"fmt"
	"strings"

	"github.com/codewiz073-droid/bwami/internal/classifier"
)

// Handler shapes the model interaction for one query category.
type Handler interface {
	// BuildPrompt turns the raw query into the user prompt and the system
	// prompt for the generation backend.
	BuildPrompt(query string) (prompt, system string)
	// Postprocess cleans generated text before it reaches verification
	// and delivery.
	Postprocess(text string) string
}

// Registry resolves a category to its handler.
type Registry struct {
	handlers map[classifier.Category]Handler
}

// NewRegistry builds the registry and fails if any taxonomy category lacks
// a handler. Callers treat this error as fatal at startup.
func NewRegistry() (*Registry, error) {
	handlers := map[classifier.Category]Handler{
		classifier.CategoryMath:         mathHandler{},
		classifier.CategoryEssay:        essayHandler{},
		classifier.CategoryCode:         codeHandler{},
		classifier.CategoryTranslation:  translationHandler{},
		classifier.CategoryCreative:     creativeHandler{},
		classifier.CategoryAnalysis:     analysisHandler{},
		classifier.CategoryGreeting:     greetingHandler{},
		classifier.CategoryCapabilities: capabilitiesHandler{},
		classifier.CategoryGeneral:      generalHandler{},
	}

	for _, category := range classifier.Categories() {
		if _, ok := handlers[category]; !ok {
			return nil, fmt.Errorf("no handler registered for category %q", category)
		}
	}

	return &Registry{handlers: handlers}, nil
}

// Resolve returns the handler for category, falling back to the general
// handler for anything outside the taxonomy.
func (r *Registry) Resolve(category classifier.Category) Handler {
	if h, ok := r.handlers[category]; ok {
		return h
	}
	return r.handlers[classifier.CategoryGeneral]
}

// trimResponse is the shared cleanup applied by most handlers.
func trimResponse(text string) string {
	text = strings.TrimSpace(text)
	// Some models echo the assistant role marker at the start of a turn.
	for _, marker := range []string{"Assistant:", "ASSISTANT:", "assistant:"} {
		if strings.HasPrefix(text, marker) {
			text = strings.TrimSpace(strings.TrimPrefix(text, marker))
			break
		}
	}
	return text
}

type mathHandler struct{}

func (mathHandler) BuildPrompt(query string) (string, string) {
	system := "You are a precise mathematics tutor. Solve the problem step by step, " +
		"show your working, and state the final answer clearly on its own line."
	return query, system
}

func (mathHandler) Postprocess(text string) string { return trimResponse(text) }

type essayHandler struct{}

func (essayHandler) BuildPrompt(query string) (string, string) {
	system := "You are a skilled writer. Write a well-structured essay with an " +
		"introduction, body paragraphs, and a conclusion. Use clear topic sentences."
	return query, system
}

func (essayHandler) Postprocess(text string) string { return trimResponse(text) }

type codeHandler struct{}

func (codeHandler) BuildPrompt(query string) (string, string) {
	system := "You are an experienced software engineer. Provide working, idiomatic " +
		"code with a brief explanation. Put code inside fenced code blocks."
	return query, system
}

func (codeHandler) Postprocess(text string) string {
	text = trimResponse(text)
	// Close an unterminated code fence so clients render the block.
	if strings.Count(text, "```")%2 == 1 {
		text += "\n```"
	}
	return text
}

type translationHandler struct{}

func (translationHandler) BuildPrompt(query string) (string, string) {
	system := "You are a professional translator. Give the translation first, then " +
		"a short note on pronunciation or usage if helpful."
	return query, system
}

func (translationHandler) Postprocess(text string) string { return trimResponse(text) }

type creativeHandler struct{}

func (creativeHandler) BuildPrompt(query string) (string, string) {
	system := "You are a creative writer with a vivid, engaging style. Follow the " +
		"requested form and keep the piece self-contained."
	return query, system
}

func (creativeHandler) Postprocess(text string) string { return trimResponse(text) }

type analysisHandler struct{}

func (analysisHandler) BuildPrompt(query string) (string, string) {
	system := "You are an analytical assistant. Present a balanced, structured " +
		"analysis. Separate distinct viewpoints and end with a short summary."
	return query, system
}

func (analysisHandler) Postprocess(text string) string { return trimResponse(text) }

type greetingHandler struct{}

func (greetingHandler) BuildPrompt(query string) (string, string) {
	system := "You are a friendly assistant. Respond warmly and briefly, and invite " +
		"the user to ask a question."
	return query, system
}

func (greetingHandler) Postprocess(text string) string { return trimResponse(text) }

type capabilitiesHandler struct{}

func (capabilitiesHandler) BuildPrompt(query string) (string, string) {
	system := "You are an assistant describing your own abilities. List the kinds of " +
		"tasks you can help with: math, writing, coding, translation, creative work, " +
		"and analysis. Be concrete and concise."
	return query, system
}

func (capabilitiesHandler) Postprocess(text string) string { return trimResponse(text) }

type generalHandler struct{}

func (generalHandler) BuildPrompt(query string) (string, string) {
	system := "You are a knowledgeable assistant. Answer factually and concisely. " +
		"If you are unsure about a fact, say so rather than guessing."
	return query, system
}

func (generalHandler) Postprocess(text string) string { return trimResponse(text) }
