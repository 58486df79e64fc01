package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fixlytaller/fixly-session/internal/api/metrics"
	"github.com/fixlytaller/fixly-session/internal/core/domain"
	"github.com/fixlytaller/fixly-session/internal/core/ports"
)

const logoutFlight = "logout"

// LoginFields names the JSON fields of the login request body.
type LoginFields struct {
	Identifier string
	Secret     string
	Tenant     string
}

// SessionConfig collects the backend contract of the session endpoints.
// The variation between backend deployments is expressed here, not in code.
type SessionConfig struct {
	LoginPath       string
	PublicLoginPath string
	LogoutPath      string
	IdentityPath    string
	// LoginLocation is where the host navigates when it has no login view.
	LoginLocation string
	LoginFields   LoginFields
	// TokenFields are the accepted response fields carrying the credential, in order.
	TokenFields []string
}

// DefaultSessionConfig returns the contract of the production backend.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		LoginPath:       "/auth/login",
		PublicLoginPath: "/auth/public/login",
		LogoutPath:      "/auth/logout",
		IdentityPath:    "/auth/me",
		LoginLocation:   "login.html",
		LoginFields:     LoginFields{Identifier: "username", Secret: "password", Tenant: "tenantId"},
		TokenFields:     []string{"token", "jwt", "accessToken"},
	}
}

type loginInput struct {
	Identifier string `validate:"required"`
	Secret     string `validate:"required"`
}

var _ ports.SessionClient = (*SessionClient)(nil)

// SessionClient implements ports.SessionClient against the backend auth endpoints.
type SessionClient struct {
	cfg       SessionConfig
	store     ports.CredentialStore
	transport *Transport
	ui        ports.UI
	validate  *validator.Validate
	log       zerolog.Logger

	logouts singleflight.Group

	timersMu sync.Mutex
	timers   []*sessionTimer

	newDeviceID func() string
}

// NewSessionClient wires the client into transport so a 401 on any
// authenticated call runs LocalLogout. A nil ui disables UI signalling.
func NewSessionClient(cfg SessionConfig, store ports.CredentialStore, transport *Transport, ui ports.UI, log zerolog.Logger) *SessionClient {
	defaults := DefaultSessionConfig()
	if cfg.LoginPath == "" {
		cfg.LoginPath = defaults.LoginPath
	}
	if cfg.PublicLoginPath == "" {
		cfg.PublicLoginPath = defaults.PublicLoginPath
	}
	if cfg.LogoutPath == "" {
		cfg.LogoutPath = defaults.LogoutPath
	}
	if cfg.IdentityPath == "" {
		cfg.IdentityPath = defaults.IdentityPath
	}
	if cfg.LoginLocation == "" {
		cfg.LoginLocation = defaults.LoginLocation
	}
	if cfg.LoginFields.Identifier == "" || cfg.LoginFields.Secret == "" {
		cfg.LoginFields = defaults.LoginFields
	}
	if len(cfg.TokenFields) == 0 {
		cfg.TokenFields = defaults.TokenFields
	}
	if ui == nil {
		ui = nopUI{}
	}

	c := &SessionClient{
		cfg:         cfg,
		store:       store,
		transport:   transport,
		ui:          ui,
		validate:    validator.New(),
		log:         log,
		newDeviceID: uuid.NewString,
	}
	transport.OnSessionExpired(c.LocalLogout)
	return c
}

// Login exchanges identifier and secret for a credential. A 401/403 is always
// reported as domain.ErrInvalidCredentials so the caller cannot tell an
// unknown identifier from a wrong secret.
func (c *SessionClient) Login(ctx context.Context, identifier, secret, tenantHint string) (*domain.Principal, error) {
	if err := c.validate.Struct(loginInput{Identifier: identifier, Secret: secret}); err != nil {
		return nil, fmt.Errorf("login: %w: identifier and secret are required", domain.ErrInvalidInput)
	}

	body := map[string]string{
		c.cfg.LoginFields.Identifier: identifier,
		c.cfg.LoginFields.Secret:     secret,
	}
	path := c.cfg.LoginPath
	if tenantHint != "" {
		path = c.cfg.PublicLoginPath
		if c.cfg.LoginFields.Tenant != "" {
			body[c.cfg.LoginFields.Tenant] = tenantHint
		}
	}

	resp, err := c.transport.Post(ctx, path, RequestOptions{Body: body, NoAuth: true})
	if err != nil {
		var se *domain.StatusError
		if !errors.As(err, &se) {
			metrics.LoginsTotal.WithLabelValues("network").Inc()
			return nil, fmt.Errorf("login: %w", err)
		}
		if se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return nil, &domain.LoginFailedError{Message: se.Message}
	}

	token, principal, err := c.parseLogin(resp)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		c.log.Warn().Err(err).Int("status", resp.Status).Msg("login response without credential")
		return nil, err
	}

	if err := c.persistLogin(ctx, token, principal, tenantHint); err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	c.log.Info().Str("user", principal.Name).Str("role", principal.Role).Msg("signed in")
	return principal, nil
}

// parseLogin extracts the credential from the first accepted token field. A
// 2xx without one is a protocol violation, not a success.
func (c *SessionClient) parseLogin(resp *Response) (string, *domain.Principal, error) {
	var fields map[string]json.RawMessage
	if err := resp.Decode(&fields); err != nil {
		return "", nil, &domain.LoginFailedError{Message: "malformed login response"}
	}

	var token string
	for _, name := range c.cfg.TokenFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var v string
		if json.Unmarshal(raw, &v) == nil && v != "" {
			token = v
			break
		}
	}
	if token == "" {
		return "", nil, &domain.LoginFailedError{Message: "no credential in login response"}
	}

	principal := &domain.Principal{}
	if raw, ok := fields["user"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, principal); err != nil {
			return "", nil, &domain.LoginFailedError{Message: "malformed user profile"}
		}
	}
	return token, principal, nil
}

func (c *SessionClient) persistLogin(ctx context.Context, token string, principal *domain.Principal, tenantHint string) error {
	if err := c.store.SetToken(ctx, token); err != nil {
		return err
	}
	if err := c.store.SetPrincipal(ctx, principal); err != nil {
		return err
	}

	tc, err := c.store.Tenant(ctx)
	if err != nil {
		return err
	}
	claims := unverifiedClaims(token)
	tc.TenantID = firstNonEmpty(tenantHint, principal.TenantID, claimString(claims, "tenant_id"), claimString(claims, "tenantId"), tc.TenantID)
	tc.SessionID = firstNonEmpty(claimString(claims, "jti"), claimString(claims, "sid"))
	if tc.DeviceID == "" {
		tc.DeviceID = c.newDeviceID()
	}
	if err := c.store.SetTenant(ctx, tc); err != nil {
		return err
	}

	return c.store.SetValid(ctx, true)
}

// Logout ends the session. The server call is best effort; the local clear
// always runs. Concurrent calls share one execution and calls made after the
// session is gone are no-ops.
func (c *SessionClient) Logout(ctx context.Context, opts ports.LogoutOptions) error {
	_, err, _ := c.logouts.Do(logoutFlight, func() (any, error) {
		return nil, c.logout(ctx, opts, "user")
	})
	return err
}

// LocalLogout clears the session without contacting the server and without
// the navigation fallback. It is the path taken on a confirmed rejection.
func (c *SessionClient) LocalLogout(ctx context.Context) error {
	_, err, _ := c.logouts.Do(logoutFlight, func() (any, error) {
		return nil, c.logout(ctx, ports.LogoutOptions{}, "expired")
	})
	return err
}

func (c *SessionClient) logout(ctx context.Context, opts ports.LogoutOptions, reason string) error {
	c.cancelTimers()

	token, err := c.store.Token(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("read token during logout")
	}
	active := token != ""

	if opts.NotifyServer && active {
		c.notifyLogout(ctx, token)
	}

	// Clear runs even without a token: a profile, tenant context or validity
	// flag left behind is a half-authenticated state.
	clearErr := c.store.Clear(ctx)
	if clearErr != nil {
		c.log.Error().Err(clearErr).Msg("clear session storage")
	}

	if active {
		metrics.LogoutsTotal.WithLabelValues(reason).Inc()
		c.log.Info().Str("reason", reason).Msg("signed out")
	}

	// A rejection seen after the session is already gone is a duplicate of
	// one that was signalled; a user logout always reaches the UI.
	if active || reason == "user" {
		c.ui.ResetAfterLogout()
		if !c.ui.ShowLogin() && opts.Redirect {
			c.ui.Navigate(c.cfg.LoginLocation)
		}
	}
	return clearErr
}

func (c *SessionClient) notifyLogout(ctx context.Context, token string) {
	headers := http.Header{}
	headers.Set(HeaderAuthorization, "Bearer "+token)
	_, err := c.transport.Post(ctx, c.cfg.LogoutPath, RequestOptions{NoAuth: true, Headers: headers})
	if err != nil {
		c.log.Warn().Err(err).Msg("server logout failed, clearing locally")
	}
}

// Identity refreshes the principal from the backend. Only a 401/403 ends the
// session; network errors and 5xx leave the stored credential untouched.
func (c *SessionClient) Identity(ctx context.Context) (*domain.Principal, error) {
	token, err := c.store.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, domain.ErrNoCredential
	}

	resp, err := c.transport.Get(ctx, c.cfg.IdentityPath, RequestOptions{})
	if err != nil {
		var se *domain.StatusError
		if errors.As(err, &se) && domain.IsAuthRejection(se) {
			metrics.IdentityRefreshTotal.WithLabelValues("rejected").Inc()
			if se.Status == http.StatusForbidden {
				// The transport only collapses the session on 401.
				if lerr := c.LocalLogout(ctx); lerr != nil {
					c.log.Error().Err(lerr).Msg("local logout after 403 failed")
				}
			}
			return nil, &domain.StatusError{Status: se.Status, Message: se.Message, Kind: domain.ErrSessionExpired}
		}
		metrics.IdentityRefreshTotal.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("identity: %w", err)
	}

	var payload struct {
		User *domain.Principal `json:"user"`
	}
	if err := resp.Decode(&payload); err != nil {
		metrics.IdentityRefreshTotal.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("identity: %w", err)
	}
	if payload.User == nil {
		metrics.IdentityRefreshTotal.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("identity: %w: missing user", domain.ErrMalformedResponse)
	}

	// The session may have ended while the request was in flight.
	if err := c.store.CommitIdentity(ctx, token, payload.User); err != nil {
		if errors.Is(err, domain.ErrNoCredential) {
			metrics.IdentityRefreshTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("identity: %w", err)
		}
		return nil, err
	}
	metrics.IdentityRefreshTotal.WithLabelValues("ok").Inc()
	return payload.User, nil
}

// IsAuthenticated holds only when a credential is present and the last
// identity round trip succeeded.
func (c *SessionClient) IsAuthenticated(ctx context.Context) bool {
	token, err := c.store.Token(ctx)
	if err != nil || token == "" {
		return false
	}
	valid, err := c.store.Valid(ctx)
	return err == nil && valid
}

// User returns the cached principal, or nil.
func (c *SessionClient) User(ctx context.Context) *domain.Principal {
	p, err := c.store.Principal(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("cached principal unreadable")
		return nil
	}
	return p
}

// Token returns the stored credential, or "".
func (c *SessionClient) Token(ctx context.Context) string {
	token, err := c.store.Token(ctx)
	if err != nil {
		return ""
	}
	return token
}

// unverifiedClaims reads claims from a JWT-shaped credential without checking
// its signature. Opaque credentials yield nil.
func unverifiedClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func claimString(claims jwt.MapClaims, name string) string {
	if claims == nil {
		return ""
	}
	switch v := claims[name].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type nopUI struct{}

func (nopUI) ShowLogin() bool   { return false }
func (nopUI) ResetAfterLogout() {}
func (nopUI) Navigate(string)   {}
