// main is the entry point of the student dashboard.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the session store (memory, SQLite or Redis)
//  4. Build the students backend client and the identity provider
//  5. Register all HTTP routes and start the server in a goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/student-dashboard --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/student-dashboard
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/client"
	"github.com/aanand-mishra/student-dashboard/internal/config"
	"github.com/aanand-mishra/student-dashboard/internal/dashboard"
	dashboardhttp "github.com/aanand-mishra/student-dashboard/internal/http"
	"github.com/aanand-mishra/student-dashboard/internal/http/middleware"
	"github.com/aanand-mishra/student-dashboard/internal/identity"
	"github.com/aanand-mishra/student-dashboard/internal/storage"
	"github.com/aanand-mishra/student-dashboard/internal/storage/memory"
	"github.com/aanand-mishra/student-dashboard/internal/storage/redis"
	"github.com/aanand-mishra/student-dashboard/internal/storage/sqlite"
)

const evictInterval = time.Minute

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// Installed as the default so every package's slog calls share it.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting student-dashboard",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 3. Session Store ──────────────────────────────────────────────────
	store, err := openStore(ctx, cfg.Session)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	log.Info("storage initialised", slog.String("store", cfg.Session.Store))

	// ── 4. Collaborators ──────────────────────────────────────────────────
	verifier, err := newVerifier(cfg.Identity)
	if err != nil {
		log.Error("failed to initialise token verifier", slog.String("error", err.Error()))
		os.Exit(1)
	}
	provider := identity.NewClient(
		cfg.Identity.BaseURL,
		cfg.APIKey,
		cfg.RevokeURL,
		cfg.Identity.Timeout,
		verifier,
	)
	students := client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	opts := dashboard.OptionsFromConfig(cfg.UI)
	sessions := middleware.NewSessions(func() *dashboard.Shell {
		return dashboard.NewShell(students, provider, opts)
	}, store, cfg.TTL)
	go sessions.Run(ctx, evictInterval)

	// ── 5. HTTP Server ────────────────────────────────────────────────────
	server := dashboardhttp.Server(cfg, dashboardhttp.Router(cfg, sessions))

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	<-ctx.Done()
	log.Info("shutdown signal received, stopping server...")

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

func openStore(ctx context.Context, cfg config.Session) (storage.Storage, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return sqlite.New(cfg.StoragePath)
	case config.StoreRedis:
		return redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.StoreMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

func newVerifier(cfg config.Identity) (*identity.Verifier, error) {
	if cfg.PublicKeyPEM != "" {
		return identity.NewRSAVerifier(cfg.PublicKeyPEM, cfg.Issuer, cfg.Audience, cfg.AdminClaim)
	}
	return identity.NewHMACVerifier(cfg.SigningSecret, cfg.Issuer, cfg.Audience, cfg.AdminClaim), nil
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
