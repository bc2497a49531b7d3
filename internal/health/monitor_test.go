package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func ok(ctx context.Context) error   { return nil }
func down(ctx context.Context) error { return errors.New("connection refused") }

// hang blocks until the probe context is cancelled.
func hang(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestMonitorStartsChecking(t *testing.T) {
	m := NewMonitor(Targets{LocalStore: ok, RemoteStore: ok, RemoteAPI: ok}, time.Hour, time.Second, nil, zap.NewNop())

	snapshot := m.Snapshot()
	if snapshot.LocalStore != StateChecking || snapshot.RemoteStore != StateChecking || snapshot.RemoteAPI != StateChecking {
		t.Fatalf("states must start as checking, got %+v", snapshot)
	}
	if snapshot.AllConnected || snapshot.RemoteSystemConnected {
		t.Fatal("aggregates must be false while checking")
	}
}

func TestMonitorAllConnected(t *testing.T) {
	m := NewMonitor(Targets{LocalStore: ok, RemoteStore: ok, RemoteAPI: ok}, time.Hour, time.Second, nil, zap.NewNop())
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return m.Snapshot().AllConnected })
	if !m.RemoteSystemConnected() {
		t.Fatal("remote system must be connected when everything is up")
	}
}

func TestRemoteSystemIgnoresLocalStore(t *testing.T) {
	m := NewMonitor(Targets{LocalStore: down, RemoteStore: ok, RemoteAPI: ok}, time.Hour, time.Second, nil, zap.NewNop())
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool {
		s := m.Snapshot()
		return s.LocalStore == StateDisconnected && s.RemoteStore == StateConnected && s.RemoteAPI == StateConnected
	})

	s := m.Snapshot()
	if s.AllConnected {
		t.Fatal("allConnected must be false with the local store down")
	}
	if !s.RemoteSystemConnected {
		t.Fatal("remoteSystemConnected must ignore the local store")
	}
}

func TestSlowProbeResolvesDisconnectedWithinTimeout(t *testing.T) {
	start := time.Now()
	m := NewMonitor(Targets{LocalStore: ok, RemoteStore: hang, RemoteAPI: ok}, time.Hour, 50*time.Millisecond, nil, zap.NewNop())
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return m.Snapshot().RemoteStore == StateDisconnected })
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("probe should resolve near its 50ms timeout, took %v", elapsed)
	}
}

func TestSlowProbeDoesNotDelayOthers(t *testing.T) {
	m := NewMonitor(Targets{LocalStore: ok, RemoteStore: hang, RemoteAPI: ok}, time.Hour, 500*time.Millisecond, nil, zap.NewNop())
	m.Start()
	defer m.Stop()

	// Local and API settle while the remote store probe is still hanging.
	waitFor(t, func() bool {
		s := m.Snapshot()
		return s.LocalStore == StateConnected && s.RemoteAPI == StateConnected
	})
}

func TestStopCancelsInFlightProbe(t *testing.T) {
	m := NewMonitor(Targets{LocalStore: hang, RemoteStore: hang, RemoteAPI: hang}, time.Hour, time.Hour, nil, zap.NewNop())
	m.Start()

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop must cancel in-flight probes instead of waiting them out")
	}
}

func TestMonitorObserver(t *testing.T) {
	results := make(chan bool, 3)
	observer := func(endpoint Endpoint, connected bool) {
		if endpoint == EndpointRemoteAPI {
			results <- connected
		}
	}
	m := NewMonitor(Targets{LocalStore: ok, RemoteStore: ok, RemoteAPI: down}, time.Hour, time.Second, observer, zap.NewNop())
	m.Start()
	defer m.Stop()

	select {
	case connected := <-results:
		if connected {
			t.Fatal("observer should report the API down")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observer not called")
	}
}

func TestHTTPProbe(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if err := HTTPProbe(nil, healthy.URL)(context.Background()); err != nil {
		t.Fatalf("2xx must probe clean, got %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	if err := HTTPProbe(nil, failing.URL)(context.Background()); err == nil {
		t.Fatal("non-2xx must probe as error")
	}

	unreachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachable.Close()

	if err := HTTPProbe(nil, unreachable.URL)(context.Background()); err == nil {
		t.Fatal("refused connection must probe as error")
	}
}
