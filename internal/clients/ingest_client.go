package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"edgemeter/internal/models"
)

const apiKeyHeader = "X-API-Key"

// IngestClient delivers captured readings to the central ingest API.
type IngestClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// ReadingPayload is the wire format for one delivered reading. The
// reading identifier lets the remote side deduplicate redelivery after
// a lost acknowledgement.
type ReadingPayload struct {
	ReadingID  int64     `json:"reading_id"`
	TenantID   int64     `json:"tenant_id"`
	MeterID    int64     `json:"meter_id"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	CapturedAt time.Time `json:"captured_at"`
}

// NewIngestClient returns client wrapper.
func NewIngestClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *IngestClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IngestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// DeliverReading pushes one reading to the ingest API. Any non-2xx
// response counts as a failed delivery.
func (c *IngestClient) DeliverReading(ctx context.Context, reading models.MeterReading) error {
	payload := ReadingPayload{
		ReadingID:  reading.ID,
		TenantID:   reading.TenantID,
		MeterID:    reading.MeterID,
		Value:      reading.Value,
		Unit:       reading.Unit,
		CapturedAt: reading.CapturedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ingest/readings", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingest: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Health probes the ingest API health endpoint. 2xx within the client
// timeout means reachable, anything else is reported as an error.
func (c *IngestClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingest: health returned status %d", resp.StatusCode)
	}
	return nil
}
