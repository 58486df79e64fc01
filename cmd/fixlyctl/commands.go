package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
	"github.com/fixlytaller/fixly-session/internal/core/ports"
	"github.com/fixlytaller/fixly-session/internal/core/service"
)

type command func(ctx context.Context, a *app, args []string) int

var commands = map[string]command{
	"login":    runLogin,
	"logout":   runLogout,
	"me":       runMe,
	"status":   runStatus,
	"sections": runSections,
	"can":      runCan,
	"get":      runGet,
	"check":    runCheck,
	"watch":    runWatch,
}

func runLogin(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.out)
	user := fs.String("u", "", "username")
	password := fs.String("p", "", "password (default $FIXLY_PASSWORD)")
	tenant := fs.String("tenant", "", "tenant id; uses the public login endpoint")
	location := fs.String("location", "", "location id attached to later requests")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *password == "" {
		*password = os.Getenv("FIXLY_PASSWORD")
	}

	p, err := a.session.Login(ctx, *user, *password, *tenant)
	if err != nil {
		return a.fail(err)
	}
	if *location != "" {
		tc, err := a.store.Tenant(ctx)
		if err == nil {
			tc.LocationID = *location
			err = a.store.SetTenant(ctx, tc)
		}
		if err != nil {
			return a.fail(err)
		}
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", p.Name, p.Role)
	return 0
}

func runLogout(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(a.out)
	local := fs.Bool("local", false, "clear the session without notifying the server")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var err error
	if *local {
		err = a.session.LocalLogout(ctx)
	} else {
		err = a.session.Logout(ctx, ports.DefaultLogoutOptions())
	}
	if err != nil {
		return a.fail(err)
	}
	return 0
}

func runMe(ctx context.Context, a *app, _ []string) int {
	p, err := a.session.Identity(ctx)
	if err != nil {
		return a.fail(err)
	}
	return a.printJSON(p)
}

func runStatus(ctx context.Context, a *app, _ []string) int {
	tc, err := a.store.Tenant(ctx)
	if err != nil {
		return a.fail(err)
	}
	return a.printJSON(struct {
		Authenticated bool                 `json:"authenticated"`
		User          *domain.Principal    `json:"user"`
		Tenant        domain.TenantContext `json:"tenant"`
	}{
		Authenticated: a.session.IsAuthenticated(ctx),
		User:          a.session.User(ctx),
		Tenant:        tc,
	})
}

func runSections(ctx context.Context, a *app, _ []string) int {
	for _, s := range a.acl.AllowedSections(ctx) {
		fmt.Fprintln(a.out, s)
	}
	return 0
}

func runCan(ctx context.Context, a *app, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: fixlyctl can <section>")
		return 2
	}
	allowed := a.acl.Guard(ctx, domain.Section(args[0]), func(s domain.Section) {
		fmt.Fprintf(a.out, "no access to %s\n", s)
	})
	if !allowed {
		return 1
	}
	fmt.Fprintf(a.out, "allowed: %s\n", args[0])
	return 0
}

func runGet(ctx context.Context, a *app, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: fixlyctl get <path>")
		return 2
	}
	resp, err := a.transport.Get(ctx, args[0], service.RequestOptions{})
	if resp != nil {
		fmt.Fprintln(a.out, strings.TrimSpace(string(resp.Body)))
	}
	if err != nil {
		return a.fail(err)
	}
	return 0
}

func runCheck(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(a.out)
	page := fs.String("page", "/index.html", "page being opened")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	d := a.guard.Check(ctx, *page)
	fmt.Fprintln(a.out, d)
	if d == service.DecisionShowLogin {
		return 1
	}
	return 0
}

func runWatch(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(a.out)
	interval := fs.Duration("interval", a.cfg.KeepAlive, "identity refresh interval")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *interval <= 0 {
		*interval = time.Minute
	}
	if !a.session.IsAuthenticated(ctx) {
		return a.fail(domain.ErrNoCredential)
	}

	stop := a.session.StartKeepAlive(ctx, *interval)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
			if !a.session.IsAuthenticated(ctx) {
				return 1
			}
		}
	}
}

func (a *app) printJSON(v any) int {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return a.fail(err)
	}
	return 0
}

// fail reports err and maps it to an exit code: 1 for session problems,
// 3 for an unreachable backend.
func (a *app) fail(err error) int {
	fmt.Fprintf(a.out, "error: %v\n", err)
	if errors.Is(err, domain.ErrNetworkFailure) || errors.Is(err, domain.ErrTimeout) {
		return 3
	}
	return 1
}
