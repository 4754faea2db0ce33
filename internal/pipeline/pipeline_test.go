package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewiz073-droid/bwami/internal/backend"
	"github.com/codewiz073-droid/bwami/internal/classifier"
	"github.com/codewiz073-droid/bwami/internal/connectivity"
	"github.com/codewiz073-droid/bwami/internal/handler"
	"github.com/codewiz073-droid/bwami/internal/quality"
	"github.com/codewiz073-droid/bwami/internal/websearch"
)

type fakeGenerator struct {
	mode  backend.Mode
	text  string
	err   error
	calls int
}

func (f *fakeGenerator) Name() backend.Mode { return f.mode }

func (f *fakeGenerator) Generate(ctx context.Context, req backend.GenerationRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, req backend.GenerationRequest) (<-chan backend.Fragment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan backend.Fragment, 1)
	out <- backend.Fragment{Text: f.text}
	close(out)
	return out, nil
}

type stubSearcher struct {
	docs []websearch.EvidenceDocument
	err  error
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]websearch.EvidenceDocument, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

type fixture struct {
	pipeline *Pipeline
	online   *fakeGenerator
	offline  *fakeGenerator
}

// newFixture assembles a pipeline whose connectivity probe hits a local
// server, so the detected state is always online unless overridden.
func newFixture(t *testing.T, searcher websearch.Searcher) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(probe.Close)

	registry, err := handler.NewRegistry()
	require.NoError(t, err)

	monitor := connectivity.NewMonitor([]string{probe.URL}, time.Second, logger)

	online := &fakeGenerator{mode: backend.ModeOnline, text: "The capital of France is Paris."}
	offline := &fakeGenerator{mode: backend.ModeOffline, text: "Paris is the capital of France."}
	selector := backend.NewSelector(online, offline, logger)

	if searcher == nil {
		searcher = &stubSearcher{docs: []websearch.EvidenceDocument{}}
	}
	verifier := quality.NewVerifier(searcher, logger)

	return &fixture{
		pipeline: New(registry, monitor, selector, verifier, logger),
		online:   online,
		offline:  offline,
	}
}

func collect(t *testing.T, f *fixture, query Query, verify bool) ([]StreamEvent, *Result, error) {
	t.Helper()
	var events []StreamEvent
	result, err := f.pipeline.Ask(context.Background(), query, verify, nil, func(event StreamEvent) error {
		events = append(events, event)
		return nil
	})
	return events, result, err
}

func TestAskEventOrderAndReassembly(t *testing.T) {
	f := newFixture(t, nil)

	events, result, err := collect(t, f, Query{Text: "hello, how are you?", ChatID: "c1"}, false)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	assert.Equal(t, EventStatus, events[0].Type)
	assert.Equal(t, EventDone, events[len(events)-1].Type)
	assert.Equal(t, EventMetadata, events[len(events)-2].Type)

	// Exactly one terminal event.
	terminals := 0
	var text strings.Builder
	for _, event := range events {
		if event.Type == EventDone || event.Type == EventError {
			terminals++
		}
		if event.Type == EventText {
			text.WriteString(event.Content)
		}
	}
	assert.Equal(t, 1, terminals)

	// Concatenated text events reproduce the response byte for byte.
	assert.Equal(t, result.ResponseText, text.String())
	assert.Equal(t, classifier.CategoryGreeting, result.Category)
	assert.Equal(t, backend.ModeOnline, result.BackendUsed)
}

func TestAskReassemblyPreservesWhitespace(t *testing.T) {
	f := newFixture(t, nil)
	f.online.text = "Line one.\n\n  Indented line,  double spaced. "

	events, result, err := collect(t, f, Query{Text: "hello"}, false)
	require.NoError(t, err)

	var text strings.Builder
	for _, event := range events {
		if event.Type == EventText {
			text.WriteString(event.Content)
		}
	}
	assert.Equal(t, result.ResponseText, text.String())
	assert.Contains(t, text.String(), "\n\n  Indented")
}

func TestAskForcedOfflineAlwaysUsesOfflineBackend(t *testing.T) {
	f := newFixture(t, nil)
	offline := backend.ModeOffline

	events, result, err := collect(t, f, Query{Text: "hello", RequestedMode: &offline}, false)
	require.NoError(t, err)

	assert.Equal(t, "offline", events[0].Mode)
	assert.Equal(t, backend.ModeOffline, result.BackendUsed)
	assert.Equal(t, 0, f.online.calls)
}

func TestAskFallsBackToOfflineWhenOnlineFails(t *testing.T) {
	f := newFixture(t, nil)
	f.online.err = context.DeadlineExceeded

	_, result, err := collect(t, f, Query{Text: "hello"}, false)
	require.NoError(t, err)

	assert.Equal(t, backend.ModeOffline, result.BackendUsed)
	assert.Equal(t, 1, f.online.calls)
	assert.Equal(t, 1, f.offline.calls)
}

func TestAskBothBackendsFailEmitsSingleErrorEvent(t *testing.T) {
	f := newFixture(t, nil)
	f.online.err = context.DeadlineExceeded
	f.offline.err = context.DeadlineExceeded

	events, _, err := collect(t, f, Query{Text: "hello"}, false)
	require.Error(t, err)

	var errorEvents, textEvents, doneEvents int
	for _, event := range events {
		switch event.Type {
		case EventError:
			errorEvents++
		case EventText:
			textEvents++
		case EventDone:
			doneEvents++
		}
	}
	assert.Equal(t, 1, errorEvents)
	assert.Equal(t, 0, textEvents)
	assert.Equal(t, 0, doneEvents)
}

func TestAskSearchFailureDegradesToUnknown(t *testing.T) {
	searcher := &stubSearcher{err: assert.AnError}
	f := newFixture(t, searcher)

	events, result, err := collect(t, f, Query{Text: "tell me about the moon"}, false)
	require.NoError(t, err)

	// Verification that cannot run must not punish the answer.
	assert.Equal(t, quality.ConfidenceUnknown, result.Confidence)
	assert.False(t, result.Verified)
	assert.False(t, result.Blocked)
	assert.Equal(t, EventDone, events[len(events)-1].Type)
}

func TestAskReplacesUnsupportedAnswerOnDefaultPath(t *testing.T) {
	searcher := &stubSearcher{docs: []websearch.EvidenceDocument{
		{
			Title:   "Photosynthesis - Wikipedia",
			URL:     "https://en.wikipedia.org/wiki/Photosynthesis",
			Snippet: "Photosynthesis converts light energy into chemical energy in plants.",
		},
	}}
	f := newFixture(t, searcher)
	f.online.text = "Plants absorb moonlight through their roots to grow."

	events, result, err := collect(t, f, Query{Text: "tell me about photosynthesis"}, false)
	require.NoError(t, err)

	// The uncorroborated answer never reaches the client, even without
	// the verified endpoint.
	var text strings.Builder
	for _, event := range events {
		if event.Type == EventText {
			text.WriteString(event.Content)
		}
	}
	assert.NotContains(t, text.String(), "moonlight")
	assert.Contains(t, text.String(), "[VERIFIED - Web Search Results]")
	assert.Contains(t, text.String(), "https://en.wikipedia.org/wiki/Photosynthesis")
	assert.Equal(t, result.ResponseText, text.String())
	assert.Equal(t, quality.ConfidenceMedium, result.Confidence)
	assert.Equal(t, EventDone, events[len(events)-1].Type)
}

func TestAskVerifiedIncludesMetadata(t *testing.T) {
	searcher := &stubSearcher{docs: []websearch.EvidenceDocument{
		{
			Title:   "Paris - Wikipedia",
			URL:     "https://en.wikipedia.org/wiki/Paris",
			Snippet: "Paris is the capital and largest city of France.",
		},
		{
			Title:   "Paris | Britannica",
			URL:     "https://www.britannica.com/place/Paris",
			Snippet: "Paris, capital city of France.",
		},
	}}
	f := newFixture(t, searcher)
	f.online.text = "The capital of France is Paris, its largest city."

	events, result, err := collect(t, f, Query{Text: "what is the capital of france"}, true)
	require.NoError(t, err)

	var metadata *StreamEvent
	for i := range events {
		if events[i].Type == EventMetadata {
			metadata = &events[i]
		}
	}
	require.NotNil(t, metadata)
	require.NotNil(t, metadata.Verified)
	assert.True(t, *metadata.Verified)
	require.NotNil(t, metadata.SourcesCount)
	assert.Equal(t, len(result.Sources), *metadata.SourcesCount)
	assert.Equal(t, string(quality.ConfidenceHigh), metadata.Confidence)
}

func TestAskBlockedResponseEmitsErrorNotText(t *testing.T) {
	searcher := &stubSearcher{docs: []websearch.EvidenceDocument{}}
	f := newFixture(t, searcher)
	f.online.text = "A fabricated claim with no support anywhere."

	events, result, err := collect(t, f, Query{Text: "compare the pros and cons of imaginary things"}, true)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Blocked)

	for _, event := range events {
		assert.NotEqual(t, EventText, event.Type)
		assert.NotEqual(t, EventDone, event.Type)
	}
	assert.Equal(t, EventError, events[len(events)-1].Type)
}

func TestAskFormatterShapesDeliveredText(t *testing.T) {
	f := newFixture(t, nil)

	var streamed strings.Builder
	result, err := f.pipeline.Ask(context.Background(), Query{Text: "hello"}, false,
		func(text string, confidence quality.Confidence, sources []string) string {
			return strings.ToUpper(text)
		},
		func(event StreamEvent) error {
			if event.Type == EventText {
				streamed.WriteString(event.Content)
			}
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, strings.ToUpper("The capital of France is Paris."), result.ResponseText)
	assert.Equal(t, result.ResponseText, streamed.String())
}
