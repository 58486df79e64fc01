package main

import (
	"context"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/core/ports"
	"github.com/fixlytaller/fixly-session/internal/core/service"
	"github.com/fixlytaller/fixly-session/internal/infrastructure/capabilities"
	"github.com/fixlytaller/fixly-session/internal/infrastructure/config"
	"github.com/fixlytaller/fixly-session/internal/infrastructure/db/redis"
	"github.com/fixlytaller/fixly-session/internal/infrastructure/db/sqlite"
	"github.com/fixlytaller/fixly-session/internal/infrastructure/store/memory"
	"github.com/fixlytaller/fixly-session/pkg/logger"
)

// app is the wired session stack for one invocation.
type app struct {
	cfg       *config.ClientConfig
	log       zerolog.Logger
	out       io.Writer
	store     *service.CredentialStore
	transport *service.Transport
	session   *service.SessionClient
	acl       *service.AccessController
	guard     *service.BootstrapGuard
	closeKV   func() error
}

func newApp(ctx context.Context, stdout, stderr io.Writer) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadClient(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: stderr, Service: "fixlyctl"})

	kv, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		return nil, err
	}

	caps, err := capabilities.Load(cfg.CapabilitiesFile)
	if err != nil {
		_ = closeKV()
		return nil, err
	}

	store := service.NewCredentialStore(kv, service.DefaultStorageKeys())
	transport := service.NewTransport(service.TransportConfig{Origin: cfg.APIBase, Timeout: cfg.Timeout}, store, log)

	sessionCfg := service.DefaultSessionConfig()
	sessionCfg.LoginFields.Identifier = cfg.IdentifierField
	sessionCfg.LoginFields.Secret = cfg.SecretField
	if len(cfg.TokenFields) > 0 {
		sessionCfg.TokenFields = cfg.TokenFields
	}
	session := service.NewSessionClient(sessionCfg, store, transport, &terminalUI{out: stdout}, log)

	return &app{
		cfg:       cfg,
		log:       log,
		out:       stdout,
		store:     store,
		transport: transport,
		session:   session,
		acl:       service.NewAccessController(session, caps, log),
		guard:     service.NewBootstrapGuard(session, transport, nil, log),
		closeKV:   closeKV,
	}, nil
}

func (a *app) Close() {
	if err := a.closeKV(); err != nil {
		a.log.Warn().Err(err).Msg("closing session store")
	}
}

// openKV selects the session backend named by FIXLY_STORE.
func openKV(ctx context.Context, cfg *config.ClientConfig) (ports.KVStore, func() error, error) {
	switch cfg.Store {
	case "memory":
		return memory.NewKVStore(), func() error { return nil }, nil
	case "redis":
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redis.NewKVStore(client, cfg.RedisNamespace), client.Close, nil
	case "sqlite", "":
		db, err := sqlite.Open(sqlite.Config{Path: cfg.StorePath})
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewKVStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q (want sqlite, redis or memory)", cfg.Store)
	}
}

// terminalUI is the host surface: there is no login view to show, so a
// logout tells the user how to sign in again.
type terminalUI struct {
	out io.Writer
}

func (u *terminalUI) ShowLogin() bool {
	fmt.Fprintln(u.out, "session ended, run `fixlyctl login` to sign in")
	return true
}

func (u *terminalUI) ResetAfterLogout() {}

func (u *terminalUI) Navigate(location string) {
	fmt.Fprintf(u.out, "open %s to sign in\n", location)
}
