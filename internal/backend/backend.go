// Package backend provides the text generation backends and the selection
// logic that chooses between them based on connectivity and explicit mode
// overrides.
package backend

import "context"

// Mode identifies which class of backend serves a request.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeOnline, ModeOffline:
		return Mode(s), true
	}
	return "", false
}

// GenerationRequest carries everything a backend needs to produce text.
type GenerationRequest struct {
	Prompt       string
	SystemPrompt string
	// Model overrides the backend's configured default when set.
	Model string
}

// Fragment is one piece of a streamed generation. When Reset is true the
// receiver must discard everything accumulated so far; the stream is starting
// over on a different backend. Err is terminal: no fragments follow it.
type Fragment struct {
	Text  string
	Reset bool
	Err   error
}

// Generator produces text for a request, either in one shot or as a stream.
type Generator interface {
	Name() Mode
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	GenerateStream(ctx context.Context, req GenerationRequest) (<-chan Fragment, error)
}

// CandidateResponse is the outcome of a generation attempt across backends.
type CandidateResponse struct {
	Text        string
	BackendUsed Mode
	// Attempts records the failures that preceded success, if any.
	Attempts []GenerationError
}

// GenerationError ties a failure to the backend that produced it.
type GenerationError struct {
	Backend Mode
	Err     error
}

func (e GenerationError) Error() string {
	return string(e.Backend) + ": " + e.Err.Error()
}

func (e GenerationError) Unwrap() error { return e.Err }
