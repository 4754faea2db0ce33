package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mode      Mode
	text      string
	err       error
	streamErr error
	calls     int
}

func (f *fakeGenerator) Name() Mode { return f.mode }

func (f *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, req GenerationRequest) (<-chan Fragment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan Fragment)
	go func() {
		defer close(out)
		if f.text != "" {
			out <- Fragment{Text: f.text[:len(f.text)/2]}
		}
		if f.streamErr != nil {
			out <- Fragment{Err: f.streamErr}
			return
		}
		if f.text != "" {
			out <- Fragment{Text: f.text[len(f.text)/2:]}
		}
	}()
	return out, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestResolve(t *testing.T) {
	online := ModeOnline
	offline := ModeOffline

	assert.Equal(t, ModeOnline, Resolve(nil, true))
	assert.Equal(t, ModeOffline, Resolve(nil, false))
	// Explicit override beats detected connectivity in both directions.
	assert.Equal(t, ModeOffline, Resolve(&offline, true))
	assert.Equal(t, ModeOnline, Resolve(&online, false))
}

func TestGeneratePrimarySucceeds(t *testing.T) {
	online := &fakeGenerator{mode: ModeOnline, text: "from groq"}
	offline := &fakeGenerator{mode: ModeOffline, text: "from ollama"}
	selector := NewSelector(online, offline, testLogger())

	resp, err := selector.Generate(context.Background(), ModeOnline, GenerationRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "from groq", resp.Text)
	assert.Equal(t, ModeOnline, resp.BackendUsed)
	assert.Empty(t, resp.Attempts)
	assert.Equal(t, 0, offline.calls)
}

func TestGenerateFallsBackExactlyOnce(t *testing.T) {
	online := &fakeGenerator{mode: ModeOnline, err: newBackendError(KindConnection, "down", nil)}
	offline := &fakeGenerator{mode: ModeOffline, text: "from ollama"}
	selector := NewSelector(online, offline, testLogger())

	resp, err := selector.Generate(context.Background(), ModeOnline, GenerationRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "from ollama", resp.Text)
	assert.Equal(t, ModeOffline, resp.BackendUsed)
	require.Len(t, resp.Attempts, 1)
	assert.Equal(t, ModeOnline, resp.Attempts[0].Backend)
	assert.Equal(t, 1, online.calls)
	assert.Equal(t, 1, offline.calls)
}

func TestGenerateOfflinePrimaryFallsBackToOnline(t *testing.T) {
	online := &fakeGenerator{mode: ModeOnline, text: "from groq"}
	offline := &fakeGenerator{mode: ModeOffline, err: newBackendError(KindConnection, "daemon down", nil)}
	selector := NewSelector(online, offline, testLogger())

	resp, err := selector.Generate(context.Background(), ModeOffline, GenerationRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, ModeOnline, resp.BackendUsed)
}

func TestGenerateBothFail(t *testing.T) {
	online := &fakeGenerator{mode: ModeOnline, err: newBackendError(KindServer, "boom", nil)}
	offline := &fakeGenerator{mode: ModeOffline, err: newBackendError(KindConnection, "down", nil)}
	selector := NewSelector(online, offline, testLogger())

	_, err := selector.Generate(context.Background(), ModeOnline, GenerationRequest{Prompt: "q"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllBackendsFailed))

	var allFailed *AllFailedError
	require.True(t, errors.As(err, &allFailed))
	assert.Len(t, allFailed.Attempts, 2)
	// One attempt per backend, never more.
	assert.Equal(t, 1, online.calls)
	assert.Equal(t, 1, offline.calls)
}

func TestGenerateStreamMidFailureResetsAndFallsBack(t *testing.T) {
	online := &fakeGenerator{
		mode:      ModeOnline,
		text:      "partial output",
		streamErr: newBackendError(KindServer, "stream cut", nil),
	}
	offline := &fakeGenerator{mode: ModeOffline, text: "full fallback answer"}
	selector := NewSelector(online, offline, testLogger())

	stream, used, err := selector.GenerateStream(context.Background(), ModeOnline, GenerationRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, ModeOnline, used)

	var accumulated string
	sawReset := false
	for fragment := range stream {
		require.NoError(t, fragment.Err)
		if fragment.Reset {
			sawReset = true
			accumulated = ""
			continue
		}
		accumulated += fragment.Text
	}

	assert.True(t, sawReset)
	assert.Equal(t, "full fallback answer", accumulated)
}

func TestGenerateStreamCancelledConsumerDoesNotBlockErrorDelivery(t *testing.T) {
	online := &fakeGenerator{
		mode:      ModeOnline,
		streamErr: newBackendError(KindServer, "stream cut", nil),
	}
	offline := &fakeGenerator{mode: ModeOffline, err: newBackendError(KindConnection, "down", nil)}
	selector := NewSelector(online, offline, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stream, _, err := selector.GenerateStream(ctx, ModeOnline, GenerationRequest{Prompt: "q"})
	require.NoError(t, err)

	// Walk away before the terminal error arrives. The producer must
	// observe cancellation and close the channel instead of blocking on
	// the send forever.
	cancel()
	time.Sleep(50 * time.Millisecond)

	fragment, ok := <-stream
	assert.False(t, ok)
	assert.Nil(t, fragment.Err)
}

func TestGenerateStreamBothRefuse(t *testing.T) {
	online := &fakeGenerator{mode: ModeOnline, err: newBackendError(KindAuth, "bad key", nil)}
	offline := &fakeGenerator{mode: ModeOffline, err: newBackendError(KindConnection, "down", nil)}
	selector := NewSelector(online, offline, testLogger())

	_, _, err := selector.GenerateStream(context.Background(), ModeOnline, GenerationRequest{Prompt: "q"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllBackendsFailed))
}
