package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	StatusConnected = "Connected"
	StatusOffline   = "No internet connection"
)

// State is a full snapshot of the process's connectivity belief. Online and
// Status are always updated together; readers never see them disagree.
type State struct {
	Online      bool      `json:"online"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
}

// Mode returns the user-facing mode indicator for this state.
func (s State) Mode() string {
	if s.Online {
		return "[ONLINE - Internet]"
	}
	return "[OFFLINE - Ollama]"
}

// Monitor probes a small set of well-known endpoints to decide whether the
// process has internet access. Probes are bounded by a short timeout and a
// probe failure is never an error: it just means offline.
type Monitor struct {
	mu        sync.RWMutex
	state     State
	endpoints []string
	client    *http.Client
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewMonitor(endpoints []string, timeout time.Duration, logger *logrus.Logger) *Monitor {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if len(endpoints) == 0 {
		endpoints = []string{"https://www.google.com/generate_204"}
	}
	return &Monitor{
		state: State{
			Online: false,
			Status: StatusOffline,
		},
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
		logger:    logger,
	}
}

// Check performs a reachability probe, updates the shared state snapshot and
// returns the fresh state. It blocks no longer than one timeout per endpoint.
func (m *Monitor) Check(ctx context.Context) State {
	online := false
	for _, endpoint := range m.endpoints {
		if m.probe(ctx, endpoint) {
			online = true
			break
		}
	}

	status := StatusOffline
	if online {
		status = StatusConnected
	}

	next := State{
		Online:      online,
		Status:      status,
		LastChecked: time.Now(),
	}

	m.mu.Lock()
	changed := m.state.Online != next.Online
	m.state = next
	m.mu.Unlock()

	if changed {
		m.logger.WithFields(logrus.Fields{
			"online": next.Online,
			"status": next.Status,
		}).Info("Connectivity state changed")
	}

	return next
}

// State returns the last known snapshot without probing.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// probe attempts a single bounded-latency request. All failures, including
// panics in transports, reduce to "not reachable".
func (m *Monitor) probe(ctx context.Context, endpoint string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.WithError(err).WithField("endpoint", endpoint).Debug("Connectivity probe failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}

// Run refreshes the state periodically until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
