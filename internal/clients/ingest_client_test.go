package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"edgemeter/internal/models"
)

func TestDeliverReading(t *testing.T) {
	var (
		gotPath    string
		gotKey     string
		gotPayload ReadingPayload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewIngestClient(server.URL, "secret-key", time.Second, zap.NewNop())
	reading := models.MeterReading{
		ID:         42,
		TenantID:   7,
		MeterID:    3,
		Value:      13.37,
		Unit:       "kWh",
		CapturedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := client.DeliverReading(context.Background(), reading); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if gotPath != "/api/ingest/readings" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "secret-key" {
		t.Fatalf("unexpected api key %q", gotKey)
	}
	if gotPayload.ReadingID != 42 || gotPayload.TenantID != 7 || gotPayload.Value != 13.37 {
		t.Fatalf("unexpected payload %+v", gotPayload)
	}
}

func TestDeliverReadingNonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewIngestClient(server.URL, "", time.Second, zap.NewNop())
	if err := client.DeliverReading(context.Background(), models.MeterReading{ID: 1}); err == nil {
		t.Fatal("non-2xx must fail the delivery")
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewIngestClient(server.URL, "", time.Second, zap.NewNop())
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}

	server.Close()
	if err := client.Health(context.Background()); err == nil {
		t.Fatal("unreachable server must fail the probe")
	}
}
