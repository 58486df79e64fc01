package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

const probeTimeout = 5 * time.Second

// Decision is the outcome of a startup session check.
type Decision int

const (
	// DecisionSkip means the current page is the login surface; nothing was checked.
	DecisionSkip Decision = iota
	// DecisionShowLogin means the host must show the login view.
	DecisionShowLogin
	// DecisionProceed means the credential was verified against the backend.
	DecisionProceed
	// DecisionProceedUnverified means verification failed transiently and the
	// existing session was kept.
	DecisionProceedUnverified
)

func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionShowLogin:
		return "show_login"
	case DecisionProceed:
		return "proceed"
	case DecisionProceedUnverified:
		return "proceed_unverified"
	default:
		return "unknown"
	}
}

// identityChecker is the slice of SessionClient the guard drives.
type identityChecker interface {
	Token(ctx context.Context) string
	Identity(ctx context.Context) (*domain.Principal, error)
	LocalLogout(ctx context.Context) error
}

type healthProber interface {
	Health(ctx context.Context) (map[string]any, error)
}

// BootstrapGuard decides at startup whether to show the app or force a login.
// It fails open on transient errors and closed only on confirmed rejection.
type BootstrapGuard struct {
	session    identityChecker
	health     healthProber
	loginPages []string
	log        zerolog.Logger
}

// NewBootstrapGuard builds a guard. loginPages are path suffixes identifying
// the login surface; health may be nil to skip the liveness probe.
func NewBootstrapGuard(session identityChecker, health healthProber, loginPages []string, log zerolog.Logger) *BootstrapGuard {
	if len(loginPages) == 0 {
		loginPages = []string{"/login.html", "/login"}
	}
	return &BootstrapGuard{session: session, health: health, loginPages: loginPages, log: log}
}

// Check decides for page. The liveness probe runs in the background and
// never delays the decision.
func (g *BootstrapGuard) Check(ctx context.Context, page string) Decision {
	if g.health != nil {
		go g.probe(context.WithoutCancel(ctx))
	}

	if g.isLoginPage(page) {
		return DecisionSkip
	}
	if g.session.Token(ctx) == "" {
		return DecisionShowLogin
	}

	_, err := g.session.Identity(ctx)
	switch {
	case err == nil:
		return DecisionProceed
	case errors.Is(err, domain.ErrInvalidCredentials), domain.IsAuthRejection(err):
		if lerr := g.session.LocalLogout(ctx); lerr != nil {
			g.log.Error().Err(lerr).Msg("local logout on startup failed")
		}
		return DecisionShowLogin
	case errors.Is(err, domain.ErrNoCredential):
		return DecisionShowLogin
	default:
		g.log.Warn().Err(err).Msg("could not verify session, keeping it")
		return DecisionProceedUnverified
	}
}

func (g *BootstrapGuard) isLoginPage(page string) bool {
	p := strings.ToLower(strings.TrimSpace(page))
	for _, suffix := range g.loginPages {
		if strings.HasSuffix(p, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// probe logs backend liveness. A failure never affects the session.
func (g *BootstrapGuard) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status, err := g.health.Health(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("health probe failed")
		return
	}
	g.log.Debug().Interface("health", status).Msg("health probe")
}
