package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/api/metrics"
	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

type stubSession struct {
	authenticated bool
	user          *domain.Principal
}

func (s *stubSession) IsAuthenticated(context.Context) bool   { return s.authenticated }
func (s *stubSession) User(context.Context) *domain.Principal { return s.user }

type recordingView map[string]bool

func (v recordingView) SetVisible(id string, visible bool) { v[id] = visible }

func TestAccessController_AdminOpensEverything(t *testing.T) {
	acl := NewAccessController(&stubSession{authenticated: true, user: &domain.Principal{Name: "Dueño", Role: domain.RoleAdmin}}, nil, zerolog.Nop())
	ctx := context.Background()

	for _, s := range domain.AllSections {
		if !acl.CanOpen(ctx, s) {
			t.Fatalf("admin denied %s", s)
		}
	}
	if got := acl.AllowedSections(ctx); len(got) != len(domain.AllSections) {
		t.Fatalf("expected all sections, got %v", got)
	}
}

func TestAccessController_EmployeeByName(t *testing.T) {
	acl := NewAccessController(&stubSession{authenticated: true, user: &domain.Principal{Name: "María García", Role: domain.RoleEmployee}}, nil, zerolog.Nop())
	ctx := context.Background()

	want := []domain.Section{domain.SectionDashboard, domain.SectionWhatsapp, domain.SectionClientes}
	got := acl.AllowedSections(ctx)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if acl.CanOpen(ctx, domain.SectionPedidos) {
		t.Fatalf("pedidos must be denied")
	}
}

func TestAccessController_UnknownPrincipalGetsNothing(t *testing.T) {
	acl := NewAccessController(&stubSession{authenticated: true, user: &domain.Principal{Name: "Nuevo", Role: domain.RoleEmployee}}, nil, zerolog.Nop())
	ctx := context.Background()

	if got := acl.AllowedSections(ctx); len(got) != 0 {
		t.Fatalf("expected no sections, got %v", got)
	}
	for _, s := range domain.AllSections {
		if acl.CanOpen(ctx, s) {
			t.Fatalf("unknown principal allowed %s", s)
		}
	}
}

func TestAccessController_FallsBackToRole(t *testing.T) {
	caps := domain.NewCapabilityMap("", nil, map[string][]domain.Section{
		"cajero": {domain.SectionPedidos},
	})
	acl := NewAccessController(&stubSession{authenticated: true, user: &domain.Principal{Name: "Luis", Role: "cajero"}}, caps, zerolog.Nop())

	if !acl.CanOpen(context.Background(), domain.SectionPedidos) {
		t.Fatalf("expected role entry to grant pedidos")
	}
}

func TestAccessController_RequiresValidSession(t *testing.T) {
	acl := NewAccessController(&stubSession{authenticated: false, user: &domain.Principal{Role: domain.RoleAdmin}}, nil, zerolog.Nop())

	if acl.CanOpen(context.Background(), domain.SectionDashboard) {
		t.Fatalf("a cached principal without a valid session must be denied")
	}
	if got := acl.AllowedSections(context.Background()); len(got) != 0 {
		t.Fatalf("expected no sections, got %v", got)
	}
}

func TestAccessController_GuardCallsOnDeny(t *testing.T) {
	acl := NewAccessController(&stubSession{authenticated: true, user: &domain.Principal{Name: "Juan Pérez"}}, nil, zerolog.Nop())
	var denied []domain.Section
	onDeny := func(s domain.Section) { denied = append(denied, s) }

	if !acl.Guard(context.Background(), domain.SectionHistorial, onDeny) {
		t.Fatalf("historial must be allowed")
	}
	if acl.Guard(context.Background(), domain.SectionConfiguracion, onDeny) {
		t.Fatalf("configuracion must be denied")
	}
	if len(denied) != 1 || denied[0] != domain.SectionConfiguracion {
		t.Fatalf("unexpected denials: %v", denied)
	}
}

func TestAccessController_ApplyVisibilityConverges(t *testing.T) {
	session := &stubSession{authenticated: true, user: &domain.Principal{Name: "Ana Silva"}}
	acl := NewAccessController(session, nil, zerolog.Nop())
	actions := []domain.Action{
		{ID: "btn-clientes", Section: domain.SectionClientes},
		{ID: "btn-config", Section: domain.SectionConfiguracion},
	}
	view := recordingView{}

	first := acl.ApplyVisibility(context.Background(), actions, view)
	second := acl.ApplyVisibility(context.Background(), actions, view)
	if !first["btn-clientes"] || first["btn-config"] || second["btn-clientes"] != first["btn-clientes"] {
		t.Fatalf("unexpected decisions: %v %v", first, second)
	}

	session.authenticated = false
	acl.ApplyVisibility(context.Background(), actions, view)
	if view["btn-clientes"] || view["btn-config"] {
		t.Fatalf("actions visible after logout: %v", view)
	}
}

func TestAccessController_DenialLabelsAreBounded(t *testing.T) {
	acl := NewAccessController(&stubSession{authenticated: true, user: &domain.Principal{Name: "Ana Silva"}}, nil, zerolog.Nop())
	ctx := context.Background()

	unknown := metrics.AccessDenialsTotal.WithLabelValues("unknown")
	before := testutil.ToFloat64(unknown)
	acl.CanOpen(ctx, "billing")
	if got := testutil.ToFloat64(unknown) - before; got != 1 {
		t.Fatalf("expected one unknown denial, got %v", got)
	}

	series := testutil.CollectAndCount(metrics.AccessDenialsTotal)
	acl.CanOpen(ctx, "payroll-2024")
	acl.CanOpen(ctx, "../../etc")
	if got := testutil.CollectAndCount(metrics.AccessDenialsTotal); got != series {
		t.Fatalf("caller-supplied sections added label values: %d -> %d", series, got)
	}

	configuracion := metrics.AccessDenialsTotal.WithLabelValues(string(domain.SectionConfiguracion))
	before = testutil.ToFloat64(configuracion)
	acl.CanOpen(ctx, domain.SectionConfiguracion)
	if got := testutil.ToFloat64(configuracion) - before; got != 1 {
		t.Fatalf("known section must keep its own label, got delta %v", got)
	}
}
