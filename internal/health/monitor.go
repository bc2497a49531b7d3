// Package health polls the three endpoints the collector depends on and
// exposes the tri-state connectivity view that gates sync actions.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State classifies one endpoint's reachability.
type State string

const (
	StateChecking     State = "checking"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	// StateError is part of the published vocabulary but probes never
	// produce it; timeouts, network errors and non-2xx responses all
	// classify as disconnected.
	StateError State = "error"
)

// Endpoint names one probed dependency.
type Endpoint string

const (
	EndpointLocalStore  Endpoint = "local_store"
	EndpointRemoteStore Endpoint = "remote_store"
	EndpointRemoteAPI   Endpoint = "remote_api"
)

// Probe checks one endpoint. A nil return within the deadline means
// connected; anything else means disconnected.
type Probe func(ctx context.Context) error

// Targets holds the three probes.
type Targets struct {
	LocalStore  Probe
	RemoteStore Probe
	RemoteAPI   Probe
}

// Observer is notified after every probe. Optional, used for metrics.
type Observer func(endpoint Endpoint, connected bool)

const (
	defaultInterval     = 60 * time.Second
	defaultProbeTimeout = 5 * time.Second
)

// Monitor runs one lightweight polling task per endpoint, so a slow
// endpoint never delays the others. States start as checking and then
// alternate between connected and disconnected on each tick.
type Monitor struct {
	targets  Targets
	interval time.Duration
	timeout  time.Duration
	observer Observer
	logger   *zap.Logger

	mu        sync.RWMutex
	states    map[Endpoint]State
	checkedAt map[Endpoint]time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Snapshot is one point-in-time view of all three endpoints plus the
// derived aggregate flags.
type Snapshot struct {
	LocalStore            State     `json:"local_store"`
	RemoteStore           State     `json:"remote_store"`
	RemoteAPI             State     `json:"remote_api"`
	AllConnected          bool      `json:"all_connected"`
	RemoteSystemConnected bool      `json:"remote_system_connected"`
	CheckedAt             time.Time `json:"checked_at"`
}

// NewMonitor builds monitor. Zero interval and timeout fall back to the
// 60s/5s defaults.
func NewMonitor(targets Targets, interval, timeout time.Duration, observer Observer, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Monitor{
		targets:  targets,
		interval: interval,
		timeout:  timeout,
		observer: observer,
		logger:   logger,
		states: map[Endpoint]State{
			EndpointLocalStore:  StateChecking,
			EndpointRemoteStore: StateChecking,
			EndpointRemoteAPI:   StateChecking,
		},
		checkedAt: make(map[Endpoint]time.Time),
	}
}

// Start probes each endpoint once immediately, then on every interval
// tick until Stop is called.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	for endpoint, probe := range map[Endpoint]Probe{
		EndpointLocalStore:  m.targets.LocalStore,
		EndpointRemoteStore: m.targets.RemoteStore,
		EndpointRemoteAPI:   m.targets.RemoteAPI,
	} {
		m.wg.Add(1)
		go m.run(ctx, endpoint, probe)
	}
}

// Stop cancels the polling tasks and any in-flight probe, then waits
// for them to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context, endpoint Endpoint, probe Probe) {
	defer m.wg.Done()

	m.check(ctx, endpoint, probe)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx, endpoint, probe)
		}
	}
}

func (m *Monitor) check(ctx context.Context, endpoint Endpoint, probe Probe) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := probe(probeCtx)

	state := StateConnected
	if err != nil {
		state = StateDisconnected
	}

	m.mu.Lock()
	previous := m.states[endpoint]
	m.states[endpoint] = state
	m.checkedAt[endpoint] = time.Now().UTC()
	m.mu.Unlock()

	if m.observer != nil {
		m.observer(endpoint, err == nil)
	}
	if previous != state {
		m.logger.Info("connectivity changed",
			zap.String("endpoint", string(endpoint)),
			zap.String("from", string(previous)),
			zap.String("to", string(state)),
			zap.Error(err),
		)
	}
}

// Snapshot returns the current tri-states and aggregate flags.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	local := m.states[EndpointLocalStore]
	remote := m.states[EndpointRemoteStore]
	api := m.states[EndpointRemoteAPI]

	var checkedAt time.Time
	for _, ts := range m.checkedAt {
		if ts.After(checkedAt) {
			checkedAt = ts
		}
	}

	return Snapshot{
		LocalStore:            local,
		RemoteStore:           remote,
		RemoteAPI:             api,
		AllConnected:          local == StateConnected && remote == StateConnected && api == StateConnected,
		RemoteSystemConnected: remote == StateConnected && api == StateConnected,
		CheckedAt:             checkedAt,
	}
}

// RemoteSystemConnected reports whether both remote endpoints are
// reachable. The local store is deliberately excluded: local capture
// continues regardless of remote reachability.
func (m *Monitor) RemoteSystemConnected() bool {
	return m.Snapshot().RemoteSystemConnected
}

// AllConnected reports whether every endpoint is reachable.
func (m *Monitor) AllConnected() bool {
	return m.Snapshot().AllConnected
}

// HTTPProbe returns a probe that issues a GET against a health URL and
// treats any 2xx response as connected.
func HTTPProbe(client *http.Client, url string) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("health: status %d", resp.StatusCode)
		}
		return nil
	}
}
