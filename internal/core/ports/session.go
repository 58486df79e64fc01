package ports

import (
	"context"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

// LogoutOptions controls the side effects of a logout.
type LogoutOptions struct {
	// NotifyServer sends a best-effort POST to the logout endpoint.
	NotifyServer bool
	// Redirect navigates to the login location when the UI has no login view.
	Redirect bool
}

// DefaultLogoutOptions notifies the server and redirects.
func DefaultLogoutOptions() LogoutOptions {
	return LogoutOptions{NotifyServer: true, Redirect: true}
}

// SessionClient owns the credential lifecycle.
type SessionClient interface {
	Login(ctx context.Context, identifier, secret, tenantHint string) (*domain.Principal, error)
	Logout(ctx context.Context, opts LogoutOptions) error
	LocalLogout(ctx context.Context) error
	Identity(ctx context.Context) (*domain.Principal, error)
	IsAuthenticated(ctx context.Context) bool
	User(ctx context.Context) *domain.Principal
}

// UI is the host-application hook surface the session layer signals.
type UI interface {
	// ShowLogin displays the login view and reports whether one exists.
	ShowLogin() bool
	// ResetAfterLogout drops any per-user UI state.
	ResetAfterLogout()
	// Navigate moves the host to location.
	Navigate(location string)
}

// ActionView toggles visibility of declared UI actions.
type ActionView interface {
	SetVisible(actionID string, visible bool)
}
