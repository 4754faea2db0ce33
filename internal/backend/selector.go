package backend

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Selector picks the primary backend for a request and falls back to the
// other backend exactly once when the primary fails. There is never a second
// retry: two failures mean the request fails.
type Selector struct {
	online  Generator
	offline Generator
	logger  *logrus.Logger
}

func NewSelector(online, offline Generator, logger *logrus.Logger) *Selector {
	return &Selector{online: online, offline: offline, logger: logger}
}

// Resolve decides the primary mode. An explicit request wins over detected
// connectivity; otherwise connectivity decides.
func Resolve(requested *Mode, online bool) Mode {
	if requested != nil {
		return *requested
	}
	if online {
		return ModeOnline
	}
	return ModeOffline
}

func (s *Selector) generator(mode Mode) Generator {
	if mode == ModeOnline {
		return s.online
	}
	return s.offline
}

func (s *Selector) fallbackFor(mode Mode) Generator {
	if mode == ModeOnline {
		return s.offline
	}
	return s.online
}

// Generate runs the request on the primary backend for mode, and on failure
// tries the fallback once. The returned CandidateResponse names the backend
// that actually produced the text.
func (s *Selector) Generate(ctx context.Context, mode Mode, req GenerationRequest) (CandidateResponse, error) {
	primary := s.generator(mode)

	text, err := primary.Generate(ctx, req)
	if err == nil {
		return CandidateResponse{Text: text, BackendUsed: primary.Name()}, nil
	}

	attempts := []GenerationError{{Backend: primary.Name(), Err: err}}
	s.logger.WithError(err).WithField("backend", primary.Name()).Warn("Primary backend failed, trying fallback")

	fallback := s.fallbackFor(mode)
	text, err = fallback.Generate(ctx, req)
	if err == nil {
		return CandidateResponse{
			Text:        text,
			BackendUsed: fallback.Name(),
			Attempts:    attempts,
		}, nil
	}

	attempts = append(attempts, GenerationError{Backend: fallback.Name(), Err: err})
	s.logger.WithError(err).WithField("backend", fallback.Name()).Error("Fallback backend failed")

	return CandidateResponse{Attempts: attempts}, &AllFailedError{Attempts: attempts}
}

// GenerateStream streams from the primary backend. If the primary fails
// before or during streaming, it emits a Reset fragment and continues with
// the fallback's stream. The final fragment before close carries any
// terminal error.
func (s *Selector) GenerateStream(ctx context.Context, mode Mode, req GenerationRequest) (<-chan Fragment, Mode, error) {
	primary := s.generator(mode)
	fallback := s.fallbackFor(mode)

	primaryStream, err := primary.GenerateStream(ctx, req)
	if err != nil {
		s.logger.WithError(err).WithField("backend", primary.Name()).Warn("Primary backend refused stream, trying fallback")
		fallbackStream, fbErr := fallback.GenerateStream(ctx, req)
		if fbErr != nil {
			return nil, "", &AllFailedError{Attempts: []GenerationError{
				{Backend: primary.Name(), Err: err},
				{Backend: fallback.Name(), Err: fbErr},
			}}
		}
		return fallbackStream, fallback.Name(), nil
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		for fragment := range primaryStream {
			if fragment.Err == nil {
				select {
				case out <- fragment:
				case <-ctx.Done():
					return
				}
				continue
			}

			s.logger.WithError(fragment.Err).WithField("backend", primary.Name()).Warn("Stream failed mid-generation, restarting on fallback")

			fallbackStream, fbErr := fallback.GenerateStream(ctx, req)
			if fbErr != nil {
				select {
				case out <- Fragment{Err: &AllFailedError{Attempts: []GenerationError{
					{Backend: primary.Name(), Err: fragment.Err},
					{Backend: fallback.Name(), Err: fbErr},
				}}}:
				case <-ctx.Done():
				}
				return
			}

			// Anything streamed so far is invalid: make the consumer
			// start over before fallback text arrives.
			select {
			case out <- Fragment{Reset: true}:
			case <-ctx.Done():
				return
			}

			for fbFragment := range fallbackStream {
				select {
				case out <- fbFragment:
				case <-ctx.Done():
					return
				}
			}
			return
		}
	}()
	return out, primary.Name(), nil
}
