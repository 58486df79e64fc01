package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/api/metrics"
	"github.com/fixlytaller/fixly-session/internal/core/domain"
	"github.com/fixlytaller/fixly-session/internal/core/ports"
)

// SessionState is the part of the session client the access controller reads.
type SessionState interface {
	IsAuthenticated(ctx context.Context) bool
	User(ctx context.Context) *domain.Principal
}

// AccessController resolves which sections the signed-in principal may open.
// Denial is a normal outcome: nothing here returns an error.
type AccessController struct {
	session SessionState
	caps    *domain.CapabilityMap
	log     zerolog.Logger
}

func NewAccessController(session SessionState, caps *domain.CapabilityMap, log zerolog.Logger) *AccessController {
	if caps == nil {
		caps = domain.DefaultCapabilityMap()
	}
	return &AccessController{session: session, caps: caps, log: log}
}

// principal returns the cached principal only when a valid credential backs it.
func (a *AccessController) principal(ctx context.Context) *domain.Principal {
	if !a.session.IsAuthenticated(ctx) {
		return nil
	}
	return a.session.User(ctx)
}

func (a *AccessController) isAdmin(p *domain.Principal) bool {
	return p.Role == a.caps.AdminRole()
}

// CanOpen reports whether the current principal may open section.
func (a *AccessController) CanOpen(ctx context.Context, section domain.Section) bool {
	p := a.principal(ctx)
	if p == nil {
		a.countDenial(section)
		return false
	}
	if a.isAdmin(p) {
		return true
	}

	key, ok := a.resolveKey(p)
	if !ok {
		a.countDenial(section)
		return false
	}
	if !a.caps.Has(key, section) {
		a.countDenial(section)
		return false
	}
	return true
}

// countDenial records a denial. Section ids outside the configured universe
// share the "unknown" label so callers cannot grow the label set.
func (a *AccessController) countDenial(section domain.Section) {
	label := "unknown"
	for _, s := range a.caps.All() {
		if s == section {
			label = string(section)
			break
		}
	}
	metrics.AccessDenialsTotal.WithLabelValues(label).Inc()
}

// AllowedSections returns the sections the current principal may open, for
// filtering a navigation menu.
func (a *AccessController) AllowedSections(ctx context.Context) []domain.Section {
	p := a.principal(ctx)
	if p == nil {
		return []domain.Section{}
	}
	if a.isAdmin(p) {
		return a.caps.All()
	}
	key, ok := a.resolveKey(p)
	if !ok {
		return []domain.Section{}
	}
	sections, _ := a.caps.Lookup(key)
	return sections
}

// Guard runs onDeny and returns false when section is refused.
func (a *AccessController) Guard(ctx context.Context, section domain.Section, onDeny func(domain.Section)) bool {
	if a.CanOpen(ctx, section) {
		return true
	}
	if onDeny != nil {
		onDeny(section)
	}
	return false
}

// ApplyVisibility shows or hides every declared action according to CanOpen.
// It sets every action explicitly, so calling it again after a login, logout
// or role change converges on the same state.
func (a *AccessController) ApplyVisibility(ctx context.Context, actions []domain.Action, view ports.ActionView) map[string]bool {
	allowed := make(map[domain.Section]bool)
	for _, s := range a.AllowedSections(ctx) {
		allowed[s] = true
	}

	decisions := make(map[string]bool, len(actions))
	for _, action := range actions {
		visible := allowed[action.Section]
		decisions[action.ID] = visible
		if view != nil {
			view.SetVisible(action.ID, visible)
		}
	}
	return decisions
}

// resolveKey finds the capability entry for p: display name first, then role.
// An unconfigured principal is expected and logged as a warning.
func (a *AccessController) resolveKey(p *domain.Principal) (string, bool) {
	if _, ok := a.caps.Lookup(p.Name); ok {
		return p.Name, true
	}
	if p.Role != "" {
		if _, ok := a.caps.Lookup(p.Role); ok {
			return p.Role, true
		}
	}
	a.log.Warn().Str("user", p.Name).Str("role", p.Role).Msg("no section permissions configured")
	return "", false
}
