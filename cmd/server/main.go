package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"unigraph/internal/assemble"
	assemblemetrics "unigraph/internal/assemble/metrics"
	"unigraph/internal/graph"
	"unigraph/internal/platform/config"
	"unigraph/internal/platform/httpserver"
	"unigraph/internal/platform/logger"
	"unigraph/internal/platform/middleware"
	platformredis "unigraph/internal/platform/redis"
	"unigraph/internal/resolve"
	httptransport "unigraph/internal/transport/http"
	"unigraph/internal/vault"
	vaultmetrics "unigraph/internal/vault/metrics"
	vaultfile "unigraph/internal/vault/store/file"
	vaultpostgres "unigraph/internal/vault/store/postgres"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal services packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	ctx := context.Background()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// Audit store: postgres when a DSN is configured, append-only file
	// otherwise. The vault refuses to start if the existing chain tail
	// cannot be read.
	var auditStore vault.Store
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open audit database: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("audit database unreachable: %w", err)
		}
		pg := vaultpostgres.New(db)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("audit schema migration: %w", err)
		}
		auditStore = pg
		log.Info("audit store: postgres")
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.AuditLogPath), 0o700); err != nil {
			return fmt.Errorf("create audit log directory: %w", err)
		}
		fs, err := vaultfile.Open(cfg.AuditLogPath)
		if err != nil {
			return fmt.Errorf("open audit log %s: %w", cfg.AuditLogPath, err)
		}
		closers = append(closers, func() { _ = fs.Close() })
		auditStore = fs
		log.Info("audit store: file", "path", cfg.AuditLogPath)
	}

	vaultM := vaultmetrics.New()

	var mirror vault.Mirror
	if len(cfg.KafkaBrokers) > 0 {
		km, err := vault.NewKafkaMirror(cfg.KafkaBrokers, cfg.KafkaTopic, log, vaultM)
		if err != nil {
			return fmt.Errorf("kafka mirror init: %w", err)
		}
		closers = append(closers, km.Close)
		mirror = km
		log.Info("audit mirror enabled", "topic", cfg.KafkaTopic)
	}

	vaultSvc, err := vault.NewService(ctx, auditStore, mirror, log, vaultM)
	if err != nil {
		return fmt.Errorf("audit vault init: %w", err)
	}

	graphStore := graph.NewStore()
	resolver := resolve.NewService(graphStore, log)
	assembler := assemble.NewService(graphStore, vaultSvc, log, assemblemetrics.New())

	var redisClient *platformredis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = platformredis.New(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Tools:              httptransport.NewToolsHandler(assembler, log),
		Admin:              httptransport.NewAdminHandler(resolver, vaultSvc, log),
		Auth:               middleware.NewHMACValidator(cfg.JWTSigningKey),
		Redis:              redisClient,
		Logger:             log,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("unigraph listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
