package ports

import (
	"context"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

// CredentialStore owns the persisted session: token, profile, tenant context
// and validity flag. No other component touches the underlying KVStore.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Principal(ctx context.Context) (*domain.Principal, error)
	SetPrincipal(ctx context.Context, p *domain.Principal) error
	Valid(ctx context.Context) (bool, error)
	SetValid(ctx context.Context, valid bool) error
	// CommitIdentity writes a refreshed profile and the validity flag only if
	// token is still the stored credential.
	CommitIdentity(ctx context.Context, token string, p *domain.Principal) error
	Tenant(ctx context.Context) (domain.TenantContext, error)
	SetTenant(ctx context.Context, tc domain.TenantContext) error
	// Clear removes every session key in one operation.
	Clear(ctx context.Context) error
}
