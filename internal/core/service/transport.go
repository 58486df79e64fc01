package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/api/metrics"
	"github.com/fixlytaller/fixly-session/internal/core/domain"
	"github.com/fixlytaller/fixly-session/internal/core/ports"
)

// Request headers attached by the transport.
const (
	HeaderAuthorization = "Authorization"
	HeaderTenantID      = "X-Tenant-Id"
	HeaderLocationID    = "X-Location-Id"
	HeaderDeviceID      = "X-Device-Id"
)

const defaultRequestTimeout = 15 * time.Second

// TransportConfig configures the authenticated transport.
type TransportConfig struct {
	// Origin is the base URL relative paths are joined to.
	Origin string
	// Timeout bounds every request that does not set its own.
	Timeout time.Duration
	// HTTPClient defaults to a client without its own timeout; the
	// per-request context deadline is the only bound.
	HTTPClient *http.Client
}

// RequestOptions tunes a single request.
type RequestOptions struct {
	// Body is JSON-encoded when non-nil.
	Body    any
	Headers http.Header
	// NoAuth opts out of credential and tenant headers and of auto-logout.
	NoAuth  bool
	Timeout time.Duration
}

// Response is a fully read backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the body into v. An empty or invalid body is reported as
// domain.ErrMalformedResponse, never as a network or auth failure.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("%w: empty body", domain.ErrMalformedResponse)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}

// ErrorMessage returns the server's {"error"} or {"message"} field, if any.
func (r *Response) ErrorMessage() string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(r.Body, &envelope) != nil {
		return ""
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return envelope.Message
}

// Transport is the single outbound path to the backend. It attaches the
// credential and tenant headers and collapses the session on a 401.
type Transport struct {
	origin  string
	client  *http.Client
	timeout time.Duration
	store   ports.CredentialStore
	log     zerolog.Logger

	mu        sync.RWMutex
	onExpired func(ctx context.Context) error
}

func NewTransport(cfg TransportConfig, store ports.CredentialStore, log zerolog.Logger) *Transport {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Transport{
		origin:  strings.TrimRight(strings.TrimSpace(cfg.Origin), "/"),
		client:  client,
		timeout: timeout,
		store:   store,
		log:     log,
	}
}

// OnSessionExpired registers the local-logout path run on a 401.
func (t *Transport) OnSessionExpired(fn func(ctx context.Context) error) {
	t.mu.Lock()
	t.onExpired = fn
	t.mu.Unlock()
}

// URL resolves path against the origin. Absolute URLs pass through untouched.
func (t *Transport) URL(path string) string {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.origin + path
}

func (t *Transport) Get(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	return t.Do(ctx, http.MethodGet, path, opts)
}

func (t *Transport) Post(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	return t.Do(ctx, http.MethodPost, path, opts)
}

// Do performs the request. Non-2xx statuses are returned as *domain.StatusError
// alongside the response; transport failures as domain.ErrNetworkFailure or
// domain.ErrTimeout with a nil response.
func (t *Transport) Do(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = t.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := t.URL(path)
	req, err := t.newRequest(reqCtx, method, url, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := t.client.Do(req)
	if err != nil {
		metrics.TransportRequestDuration.Observe(time.Since(start).Seconds())
		return nil, t.transportError(method, url, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	metrics.TransportRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, t.transportError(method, url, err)
	}

	resp := &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: body}
	metrics.TransportRequestsTotal.WithLabelValues(statusClass(resp.Status)).Inc()

	t.log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.Status).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.Status >= 200 && resp.Status < 300 {
		return resp, nil
	}

	statusErr := &domain.StatusError{
		Status:  resp.Status,
		Message: resp.ErrorMessage(),
		Body:    body,
		Kind:    domain.ErrServerError,
	}
	switch {
	case resp.Status == http.StatusUnauthorized && !opts.NoAuth:
		statusErr.Kind = domain.ErrSessionExpired
		t.expire(ctx, method, url)
	case resp.Status == http.StatusForbidden:
		statusErr.Kind = domain.ErrForbidden
	}
	return resp, statusErr
}

func (t *Transport) newRequest(ctx context.Context, method, url string, opts RequestOptions) (*http.Request, error) {
	var body io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if opts.NoAuth {
		return req, nil
	}
	if err := t.attachSession(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// attachSession adds the bearer and scoping headers, skipping empty values.
func (t *Transport) attachSession(ctx context.Context, req *http.Request) error {
	token, err := t.store.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	req.Header.Set(HeaderAuthorization, "Bearer "+token)

	tc, err := t.store.Tenant(ctx)
	if err != nil {
		return err
	}
	setIfPresent(req.Header, HeaderTenantID, tc.TenantID)
	setIfPresent(req.Header, HeaderLocationID, tc.LocationID)
	setIfPresent(req.Header, HeaderDeviceID, tc.DeviceID)
	return nil
}

func (t *Transport) expire(ctx context.Context, method, url string) {
	t.mu.RLock()
	fn := t.onExpired
	t.mu.RUnlock()

	t.log.Warn().Str("method", method).Str("url", url).Msg("credential rejected, ending session")
	if fn == nil {
		return
	}
	// The caller may already be cancelling; the local clear must still run.
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		t.log.Error().Err(err).Msg("local logout after 401 failed")
	}
}

func (t *Transport) transportError(method, url string, err error) error {
	kind := domain.ErrNetworkFailure
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = domain.ErrTimeout
	}
	if kind == domain.ErrTimeout {
		metrics.TransportRequestsTotal.WithLabelValues("timeout").Inc()
	} else {
		metrics.TransportRequestsTotal.WithLabelValues("network").Inc()
	}
	t.log.Warn().Err(err).Str("method", method).Str("url", url).Msg("backend unreachable")
	return fmt.Errorf("%w: %s %s: %w", kind, method, url, err)
}

// Health calls the unauthenticated liveness probe. Failures never touch the session.
func (t *Transport) Health(ctx context.Context) (map[string]any, error) {
	resp, err := t.Get(ctx, "/health", RequestOptions{NoAuth: true})
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func setIfPresent(h http.Header, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		h.Set(key, v)
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
