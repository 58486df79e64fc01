package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/api/handler"
	"github.com/fixlytaller/fixly-session/internal/api/middleware"
	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

// memRepairs is an in-memory repair table with a history count per repair.
type memRepairs struct {
	mu      sync.Mutex
	repairs map[int64]*domain.Repair
	history map[int64]int
}

func newMemRepairs() *memRepairs {
	return &memRepairs{repairs: map[int64]*domain.Repair{}, history: map[int64]int{}}
}

func (m *memRepairs) FindByID(_ context.Context, id int64) (*domain.Repair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repairs[id]
	if !ok {
		return nil, domain.ErrRepairNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepairs) DeleteArchived(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repairs[id]
	if !ok {
		return domain.ErrRepairNotFound
	}
	if !r.Archived {
		return domain.ErrNotArchived
	}
	delete(m.repairs, id)
	delete(m.history, id)
	return nil
}

func newTestRouter(repo *memRepairs, key string) http.Handler {
	return NewRouter(Deps{
		Repairs:   repo,
		MasterKey: middleware.MasterKeyConfig{Key: key},
		Checks: map[string]handler.Check{
			"mongo": func(context.Context) error { return nil },
		},
		Log: zerolog.Nop(),
	})
}

func doDelete(t *testing.T, h http.Handler, path, key string) (int, errorResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	if key != "" {
		req.Header.Set(middleware.HeaderMasterKey, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestRouter_DeleteArchivedRepair(t *testing.T) {
	repo := newMemRepairs()
	repo.repairs[42] = &domain.Repair{ID: 42, Archived: false}
	repo.history[42] = 3
	h := newTestRouter(repo, "s3cret")

	code, body := doDelete(t, h, "/api/historial/42", "s3cret")
	if code != http.StatusConflict || body.Error != "not_archived" {
		t.Fatalf("expected 409 not_archived, got %d %+v", code, body)
	}
	if _, ok := repo.repairs[42]; !ok {
		t.Fatalf("repair deleted while not archived")
	}

	repo.repairs[42].Archived = true
	code, body = doDelete(t, h, "/api/historial/42", "s3cret")
	if code != http.StatusOK || !body.OK {
		t.Fatalf("expected 200 ok, got %d %+v", code, body)
	}
	if _, ok := repo.repairs[42]; ok {
		t.Fatalf("repair still present")
	}
	if repo.history[42] != 0 {
		t.Fatalf("history still present")
	}

	code, body = doDelete(t, h, "/api/historial/42", "s3cret")
	if code != http.StatusNotFound || body.Error != "not_found" {
		t.Fatalf("expected 404 not_found, got %d %+v", code, body)
	}
}

func TestRouter_DeleteRejections(t *testing.T) {
	repo := newMemRepairs()
	repo.repairs[1] = &domain.Repair{ID: 1, Archived: true}

	tests := []struct {
		name       string
		configured string
		path       string
		key        string
		wantCode   int
		wantError  string
	}{
		{"wrong key", "s3cret", "/api/historial/1", "nope", http.StatusForbidden, "unauthorized"},
		{"missing key", "s3cret", "/api/historial/1", "", http.StatusForbidden, "unauthorized"},
		{"no configured key", "", "/api/historial/1", "s3cret", http.StatusInternalServerError, "server_config_error"},
		{"bad id before key", "s3cret", "/api/historial/abc", "nope", http.StatusBadRequest, "bad_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doDelete(t, newTestRouter(repo, tt.configured), tt.path, tt.key)
			if code != tt.wantCode || body.Error != tt.wantError || body.OK {
				t.Fatalf("expected %d %s, got %d %+v", tt.wantCode, tt.wantError, code, body)
			}
		})
	}
	if _, ok := repo.repairs[1]; !ok {
		t.Fatalf("rejected request deleted the repair")
	}
}

func TestRouter_MasterKeyFromBody(t *testing.T) {
	repo := newMemRepairs()
	repo.repairs[9] = &domain.Repair{ID: 9, Archived: true}
	h := newTestRouter(repo, "s3cret")

	req := httptest.NewRequest(http.MethodDelete, "/api/historial/9", strings.NewReader(`{"masterKey":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(newMemRepairs(), "s3cret")

	req := httptest.NewRequest(http.MethodOptions, "/api/historial/1", nil)
	req.Header.Set("Origin", "https://taller.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	allowed := rec.Header().Get("Access-Control-Allow-Headers")
	if !strings.Contains(allowed, middleware.HeaderMasterKey) || !strings.Contains(allowed, middleware.HeaderTenantID) {
		t.Fatalf("unexpected allowed headers: %q", allowed)
	}
	if rec.Header().Get("Access-Control-Max-Age") != "86400" {
		t.Fatalf("unexpected max age: %q", rec.Header().Get("Access-Control-Max-Age"))
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newTestRouter(newMemRepairs(), "s3cret")

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouter_ReadinessDegraded(t *testing.T) {
	e := NewRouter(Deps{
		Repairs: newMemRepairs(),
		Checks: map[string]handler.Check{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
		Log: zerolog.Nop(),
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
