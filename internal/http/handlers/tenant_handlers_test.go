package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"edgemeter/internal/models"
	"edgemeter/internal/service"
)

type fakeSyncer struct {
	result *service.TenantSyncResult
	err    error
	calls  int
}

func (f *fakeSyncer) SyncTenant(ctx context.Context, tenantID int64) (*service.TenantSyncResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeTenantGetter struct {
	tenant *models.Tenant
	err    error
}

func (f *fakeTenantGetter) Get(ctx context.Context) (*models.Tenant, error) {
	return f.tenant, f.err
}

func postTenantSync(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/local/tenant-sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestTenantSyncMissingID(t *testing.T) {
	syncer := &fakeSyncer{}
	handler := NewTenantSyncHandler(syncer, zap.NewNop())

	rec := postTenantSync(handler, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if syncer.calls != 0 {
		t.Fatal("validation must reject before any store access")
	}

	rec = postTenantSync(handler, `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestTenantSyncNotFound(t *testing.T) {
	handler := NewTenantSyncHandler(&fakeSyncer{err: service.ErrTenantNotFound}, zap.NewNop())

	rec := postTenantSync(handler, `{"tenant_id":99}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("404 must carry an explanatory message")
	}
}

func TestTenantSyncRemoteUnavailable(t *testing.T) {
	handler := NewTenantSyncHandler(&fakeSyncer{err: service.ErrRemoteUnavailable}, zap.NewNop())

	rec := postTenantSync(handler, `{"tenant_id":7}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
}

func TestTenantSyncInsertedThenUpdated(t *testing.T) {
	completedAt := time.Now().UTC()
	tenant := &models.Tenant{ID: 7, Name: "Acme", Active: true, SyncedAt: completedAt}

	handler := NewTenantSyncHandler(&fakeSyncer{result: &service.TenantSyncResult{
		Tenant:      tenant,
		Inserted:    true,
		CompletedAt: completedAt,
	}}, zap.NewNop())

	rec := postTenantSync(handler, `{"tenant_id":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var body struct {
		Success    bool `json:"success"`
		SyncResult struct {
			Inserted int `json:"inserted"`
			Updated  int `json:"updated"`
		} `json:"sync_result"`
		TenantData models.Tenant `json:"tenant_data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Success || body.SyncResult.Inserted != 1 || body.SyncResult.Updated != 0 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.TenantData.Name != "Acme" {
		t.Fatalf("unexpected tenant data %+v", body.TenantData)
	}

	handler = NewTenantSyncHandler(&fakeSyncer{result: &service.TenantSyncResult{
		Tenant:      tenant,
		Inserted:    false,
		CompletedAt: completedAt,
	}}, zap.NewNop())

	rec = postTenantSync(handler, `{"tenant_id":7}`)
	body.SyncResult.Inserted = 0
	body.SyncResult.Updated = 0
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.SyncResult.Updated != 1 || body.SyncResult.Inserted != 0 {
		t.Fatalf("repeat sync must report updated, got %+v", body.SyncResult)
	}
	if body.TenantData.Name != "Acme" {
		t.Fatal("tenant data must be identical on repeat sync")
	}
}

func TestLocalTenantNotSynced(t *testing.T) {
	handler := NewLocalTenantHandler(&fakeTenantGetter{err: sql.ErrNoRows}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/local/tenant", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestLocalTenantHidesAPIKey(t *testing.T) {
	handler := NewLocalTenantHandler(&fakeTenantGetter{tenant: &models.Tenant{ID: 7, Name: "Acme", APIKey: "secret"}}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/local/tenant", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatal("api key must not appear in the response")
	}
}
