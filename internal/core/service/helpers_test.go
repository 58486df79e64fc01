package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory KV stub that counts backend operations
// ---------------------------------------------------------------------------

type mapKV struct {
	mu      sync.Mutex
	data    map[string]string
	sets    int
	deletes int
}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string]string)}
}

func (m *mapKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapKV) SetMany(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

func (m *mapKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapKV) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// ---------------------------------------------------------------------------
// Host UI stub
// ---------------------------------------------------------------------------

type fakeUI struct {
	mu        sync.Mutex
	hasLogin  bool
	resets    int
	shown     int
	navigated []string
}

func (u *fakeUI) ShowLogin() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.shown++
	return u.hasLogin
}

func (u *fakeUI) ResetAfterLogout() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.resets++
}

func (u *fakeUI) Navigate(location string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.navigated = append(u.navigated, location)
}

func (u *fakeUI) resetCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.resets
}

// ---------------------------------------------------------------------------
// Fake backend + wired session
// ---------------------------------------------------------------------------

type backend struct {
	*httptest.Server
	hits atomic.Int32
}

func newBackend(t *testing.T, h http.HandlerFunc) *backend {
	t.Helper()
	b := &backend{}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(b.Close)
	return b
}

// unreachableOrigin returns the URL of a server that is already closed.
func unreachableOrigin() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type harness struct {
	kv        *mapKV
	store     *CredentialStore
	transport *Transport
	client    *SessionClient
	ui        *fakeUI
}

func newHarness(t *testing.T, origin string) *harness {
	t.Helper()
	kv := newMapKV()
	store := NewCredentialStore(kv, DefaultStorageKeys())
	tr := NewTransport(TransportConfig{Origin: origin, Timeout: 2 * time.Second}, store, zerolog.Nop())
	ui := &fakeUI{}
	client := NewSessionClient(SessionConfig{}, store, tr, ui, zerolog.Nop())
	client.newDeviceID = func() string { return "dev-1" }
	return &harness{kv: kv, store: store, transport: tr, client: client, ui: ui}
}

// seed stores an already verified session.
func (h *harness) seed(t *testing.T, token string, p *domain.Principal, tc domain.TenantContext) {
	t.Helper()
	ctx := context.Background()
	if err := h.store.SetToken(ctx, token); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := h.store.SetPrincipal(ctx, p); err != nil {
		t.Fatalf("seed principal: %v", err)
	}
	if err := h.store.SetTenant(ctx, tc); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if err := h.store.SetValid(ctx, true); err != nil {
		t.Fatalf("seed valid: %v", err)
	}
}
