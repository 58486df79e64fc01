package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
	"github.com/fixlytaller/fixly-session/internal/core/ports"
)

const validFlagValue = "1"

// StorageKeys names every persisted session key. LegacyTokens are aliases
// kept in lockstep with Token for collaborators written against older names.
type StorageKeys struct {
	Token        string
	LegacyTokens []string
	User         string
	Tenant       string
	Location     string
	Device       string
	Session      string
	Valid        string
	// Extra keys are only cleared, never read (e.g. legacy login markers).
	Extra []string
}

// DefaultStorageKeys returns the key names used by the web frontend.
func DefaultStorageKeys() StorageKeys {
	return StorageKeys{
		Token:        "fixly_token",
		LegacyTokens: []string{"fixlyAuthToken"},
		User:         "fixly_user",
		Tenant:       "fixlyTenantId",
		Location:     "fixlyLocationId",
		Device:       "fixlyDeviceId",
		Session:      "fixlySessionJti",
		Valid:        "fixly_me_valid",
		Extra:        []string{"fixlytallerLoggedIn"},
	}
}

// SessionKeys returns every key Clear removes.
func (k StorageKeys) SessionKeys() []string {
	keys := []string{k.Token}
	keys = append(keys, k.LegacyTokens...)
	keys = append(keys, k.User, k.Tenant, k.Location, k.Device, k.Session, k.Valid)
	return append(keys, k.Extra...)
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

// CredentialStore persists the session over a KVStore. All access is
// serialised so the token aliases and the validity flag never diverge.
type CredentialStore struct {
	kv   ports.KVStore
	keys StorageKeys
	mu   sync.RWMutex
}

func NewCredentialStore(kv ports.KVStore, keys StorageKeys) *CredentialStore {
	if keys.Token == "" {
		keys = DefaultStorageKeys()
	}
	return &CredentialStore{kv: kv, keys: keys}
}

// Keys returns the key layout in use.
func (s *CredentialStore) Keys() StorageKeys { return s.keys }

// Token returns the stored credential, preferring the primary key over the
// legacy aliases. An absent credential is the empty string.
func (s *CredentialStore) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokenLocked(ctx)
}

func (s *CredentialStore) tokenLocked(ctx context.Context) (string, error) {
	for _, key := range append([]string{s.keys.Token}, s.keys.LegacyTokens...) {
		v, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		if ok && v != "" {
			return v, nil
		}
	}
	return "", nil
}

// CommitIdentity stores p and sets the validity flag in one write, but only
// while token is still the stored credential. Otherwise nothing is written
// and domain.ErrNoCredential is returned.
func (s *CredentialStore) CommitIdentity(ctx context.Context, token string, p *domain.Principal) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tokenLocked(ctx)
	if err != nil {
		return err
	}
	if token == "" || current != token {
		return fmt.Errorf("commit identity: %w: credential changed", domain.ErrNoCredential)
	}
	if err := s.kv.SetMany(ctx, map[string]string{
		s.keys.User:  string(raw),
		s.keys.Valid: validFlagValue,
	}); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

// SetToken writes token to the primary key and every alias in one operation.
func (s *CredentialStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("set token: %w: empty token", domain.ErrInvalidInput)
	}

	values := map[string]string{s.keys.Token: token}
	for _, alias := range s.keys.LegacyTokens {
		values[alias] = token
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.SetMany(ctx, values); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s *CredentialStore) Principal(ctx context.Context) (*domain.Principal, error) {
	s.mu.RLock()
	raw, ok, err := s.kv.Get(ctx, s.keys.User)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("read principal: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var p domain.Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode cached principal: %w", err)
	}
	return &p, nil
}

// SetPrincipal caches p; a nil principal removes the cached profile.
func (s *CredentialStore) SetPrincipal(ctx context.Context, p *domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p == nil {
		return s.kv.Delete(ctx, s.keys.User)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}
	if err := s.kv.SetMany(ctx, map[string]string{s.keys.User: string(raw)}); err != nil {
		return fmt.Errorf("write principal: %w", err)
	}
	return nil
}

func (s *CredentialStore) Valid(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok, err := s.kv.Get(ctx, s.keys.Valid)
	if err != nil {
		return false, fmt.Errorf("read validity flag: %w", err)
	}
	return ok && v == validFlagValue, nil
}

func (s *CredentialStore) SetValid(ctx context.Context, valid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !valid {
		return s.kv.Delete(ctx, s.keys.Valid)
	}
	return s.kv.SetMany(ctx, map[string]string{s.keys.Valid: validFlagValue})
}

func (s *CredentialStore) Tenant(ctx context.Context) (domain.TenantContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tc domain.TenantContext
	fields := []struct {
		key string
		dst *string
	}{
		{s.keys.Tenant, &tc.TenantID},
		{s.keys.Location, &tc.LocationID},
		{s.keys.Device, &tc.DeviceID},
		{s.keys.Session, &tc.SessionID},
	}
	for _, f := range fields {
		v, _, err := s.kv.Get(ctx, f.key)
		if err != nil {
			return domain.TenantContext{}, fmt.Errorf("read tenant context: %w", err)
		}
		*f.dst = v
	}
	return tc, nil
}

// SetTenant replaces the tenant context. Empty fields are removed rather than
// stored, so no empty identifier is ever read back.
func (s *CredentialStore) SetTenant(ctx context.Context, tc domain.TenantContext) error {
	set := make(map[string]string, 4)
	var unset []string
	for key, v := range map[string]string{
		s.keys.Tenant:   tc.TenantID,
		s.keys.Location: tc.LocationID,
		s.keys.Device:   tc.DeviceID,
		s.keys.Session:  tc.SessionID,
	} {
		if v == "" {
			unset = append(unset, key)
			continue
		}
		set[key] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(set) > 0 {
		if err := s.kv.SetMany(ctx, set); err != nil {
			return fmt.Errorf("write tenant context: %w", err)
		}
	}
	if len(unset) > 0 {
		if err := s.kv.Delete(ctx, unset...); err != nil {
			return fmt.Errorf("clear tenant context fields: %w", err)
		}
	}
	return nil
}

// Clear removes every session key in a single backend operation.
func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, s.keys.SessionKeys()...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ── Tenant-scoped application storage ─────────────────────────────────────────

// TenantKey prefixes key with the current tenant ("default" when unset).
func (s *CredentialStore) TenantKey(ctx context.Context, key string) (string, error) {
	tc, err := s.Tenant(ctx)
	if err != nil {
		return "", err
	}
	return tc.Prefix() + "_" + key, nil
}

// SaveTenantJSON stores v as JSON under the tenant-scoped key.
func (s *CredentialStore) SaveTenantJSON(ctx context.Context, key string, v any) error {
	skey, err := s.TenantKey(ctx, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", skey, err)
	}
	return s.kv.SetMany(ctx, map[string]string{skey: string(raw)})
}

// LoadTenantJSON decodes the tenant-scoped value into v and reports whether it existed.
func (s *CredentialStore) LoadTenantJSON(ctx context.Context, key string, v any) (bool, error) {
	skey, err := s.TenantKey(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok, err := s.kv.Get(ctx, skey)
	if err != nil || !ok || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", skey, err)
	}
	return true, nil
}

func (s *CredentialStore) RemoveTenantKey(ctx context.Context, key string) error {
	skey, err := s.TenantKey(ctx, key)
	if err != nil {
		return err
	}
	return s.kv.Delete(ctx, skey)
}
