package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/action/complete"
	"github.com/gyaneshwarpardhi/piwebhook/internal/action/refund"
	"github.com/gyaneshwarpardhi/piwebhook/internal/action/verify"
	"github.com/gyaneshwarpardhi/piwebhook/internal/api"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/catalog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/config"
	"github.com/gyaneshwarpardhi/piwebhook/internal/engine"
	"github.com/gyaneshwarpardhi/piwebhook/internal/fulfillment"
	"github.com/gyaneshwarpardhi/piwebhook/internal/history"
	"github.com/gyaneshwarpardhi/piwebhook/internal/tracing"
	"github.com/gyaneshwarpardhi/piwebhook/internal/verifier"
)

func main() {
	cfgPath := flag.String("config", "", "Path to service YAML config (optional; PIWEBHOOK_* env vars override it)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	slog.SetDefault(newLogger(cfg.Server))
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Tracing ───────────────────────────────────────────────────────────────
	tp, err := tracing.NewProvider(cfg.Tracing, cfg.Issuer.Environment, api.ServiceVersion)
	if err != nil {
		slog.Error("failed to initialize tracing", "err", err)
		os.Exit(1)
	}

	// ── Product catalog ───────────────────────────────────────────────────────
	products, err := catalog.NewLoader(cfg.Catalog.Path)
	if err != nil {
		slog.Error("failed to load product catalog", "err", err)
		os.Exit(1)
	}
	products.OnChange(func(c *catalog.Catalog) {
		slog.Info("product catalog reloaded", "products", len(c.Products), "version", c.Version)
	})
	if cfg.Catalog.Watch {
		stopWatch, err := products.Watch()
		if err != nil {
			slog.Warn("catalog watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── Stores ────────────────────────────────────────────────────────────────
	auditStore := auditlog.NewFileStore(cfg.Storage.AuditLog)
	audit := auditlog.NewLogger(auditStore)
	receipts := fulfillment.NewFileReceiptStore(cfg.Storage.ReceiptLog)

	// ── Pipeline ──────────────────────────────────────────────────────────────
	fulfiller := fulfillment.New(products, receipts, audit, cfg.Issuer.Environment == config.EnvSandbox)

	reg := action.NewRegistry()
	reg.Register(complete.New(fulfiller, audit))
	reg.Register(verify.New(audit))
	reg.Register(refund.New(audit))

	eng := engine.New(
		verifier.New(cfg.Issuer, audit),
		action.NewDispatcher(reg, audit),
		audit,
	)
	slog.Info("pipeline ready",
		"environment", cfg.Issuer.Environment,
		"issuer", cfg.Issuer.IssuerBaseURL(),
		"actions", reg.Types(),
		"audit_log", cfg.Storage.AuditLog,
		"receipt_log", cfg.Storage.ReceiptLog,
	)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(api.Deps{
		Engine:      eng,
		History:     history.NewReader(auditStore),
		Catalog:     products,
		Audit:       audit,
		AuditStore:  auditStore,
		Receipts:    receipts,
		Environment: cfg.Issuer.Environment,
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	if err := tp.Shutdown(shutCtx); err != nil {
		slog.Warn("tracer shutdown", "err", err)
	}
	slog.Info("goodbye")
}

func newLogger(conf config.ServerConf) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(conf.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(conf.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
