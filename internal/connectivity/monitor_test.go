package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestMonitor_CheckOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	m := NewMonitor([]string{server.URL}, 2*time.Second, logrus.New())
	state := m.Check(context.Background())

	assert.True(t, state.Online)
	assert.Equal(t, StatusConnected, state.Status)
	assert.False(t, state.LastChecked.IsZero())
	assert.Equal(t, "[ONLINE - Internet]", state.Mode())
}

func TestMonitor_CheckOffline(t *testing.T) {
	// Closed server: the probe gets a connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	m := NewMonitor([]string{url}, 500*time.Millisecond, logrus.New())
	state := m.Check(context.Background())

	assert.False(t, state.Online)
	assert.Equal(t, StatusOffline, state.Status)
	assert.Equal(t, "[OFFLINE - Ollama]", state.Mode())
}

func TestMonitor_FallsThroughToSecondEndpoint(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer alive.Close()

	m := NewMonitor([]string{deadURL, alive.URL}, 500*time.Millisecond, logrus.New())
	state := m.Check(context.Background())

	assert.True(t, state.Online)
}

func TestMonitor_StateSnapshotIsConsistent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	m := NewMonitor([]string{server.URL}, 2*time.Second, logrus.New())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s := m.State()
				// Online and status must always agree, even mid-update.
				if s.Online {
					assert.Equal(t, StatusConnected, s.Status)
				} else {
					assert.Equal(t, StatusOffline, s.Status)
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		m.Check(context.Background())
	}
	wg.Wait()
}

func TestMonitor_NeverBlocksPastTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	m := NewMonitor([]string{slow.URL}, 200*time.Millisecond, logrus.New())

	start := time.Now()
	state := m.Check(context.Background())
	elapsed := time.Since(start)

	assert.False(t, state.Online)
	assert.Less(t, elapsed, time.Second)
}
