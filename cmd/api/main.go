// Command api serves the fixly backend endpoints owned by this module:
// archived repair deletion plus health and metrics probes.
//
// @title        Fixly API
// @version      1.0
// @description  Archived repair deletion and health endpoints.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/api"
	"github.com/fixlytaller/fixly-session/internal/api/handler"
	"github.com/fixlytaller/fixly-session/internal/api/middleware"
	"github.com/fixlytaller/fixly-session/internal/infrastructure/config"
	"github.com/fixlytaller/fixly-session/internal/infrastructure/db/mongo"
	"github.com/fixlytaller/fixly-session/internal/infrastructure/db/redis"
	"github.com/fixlytaller/fixly-session/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "fixly-api",
	})
	if cfg.MasterKey == "" && cfg.MasterKeyHash == "" {
		log.Warn().Msg("MASTER_KEY not set, record deletion will answer server_config_error")
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	checks := map[string]handler.Check{
		"mongo": mongo.Check(client),
	}

	// Redis is optional for the server; it backs shared client sessions.
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, readiness will report it")
			checks["redis"] = func(context.Context) error { return err }
		} else {
			defer rdb.Close()
			checks["redis"] = redis.Check(rdb)
		}
	}

	e := api.NewRouter(api.Deps{
		Repairs:      mongo.NewRepairRepository(db),
		Checks:       checks,
		MasterKey:    middleware.MasterKeyConfig{Key: cfg.MasterKey, Hash: cfg.MasterKeyHash},
		AllowOrigins: cfg.CORSAllowOrigins,
		Log:          log,
	})

	return serve(ctx, e, ":"+cfg.Port, log)
}

func serve(ctx context.Context, h http.Handler, addr string, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
