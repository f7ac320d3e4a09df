// tabrulesd is the daemon host process: it loads configuration, wires the
// scheduler to the orchestrator, serves Prometheus metrics and a health
// check, and mounts the MCP tool surface until a termination signal
// arrives. The rules file is read once at startup.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tabsentry/engine/internal/config"
	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/engine"
	"github.com/tabsentry/engine/internal/mcpserver"
	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/scheduler"
	"github.com/tabsentry/engine/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := os.Getenv("TABSENTRY_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rules := newRuleStore()
	loaded, err := loadRulesFile(cfg.RulesPath)
	if err != nil {
		logger.Fatal("failed to load rules file", zap.Error(err))
	}
	rules.Replace(loaded)
	logger.Info("loaded rules", zap.Int("count", len(loaded)), zap.String("path", cfg.RulesPath))

	registry := prometheus.NewRegistry()
	metrics := engine.NewMetrics(registry)

	var drv driver.Driver = driver.NoopDriver{}
	st := store.NewMemory()
	orch := engine.New(logger, drv, st, nil, metrics, time.Now)

	runFunc := func(ctx context.Context, ruleID string, kind model.TriggerKind) {
		rule, ok := rules.Lookup(ruleID)
		if !ok {
			logger.Warn("scheduled fire for unknown rule", zap.String("ruleId", ruleID))
			return
		}
		result := orch.RunRule(ctx, rule, engine.RunOptions{TriggerType: kind})
		if len(result.Errors) > 0 {
			logger.Warn("rule run completed with errors", zap.String("ruleId", ruleID), zap.Int("errors", len(result.Errors)))
		}
	}

	sched := scheduler.New(logger, st, runFunc, time.Now)
	if err := sched.Init(ctx); err != nil {
		logger.Fatal("failed to initialize scheduler", zap.Error(err))
	}
	for _, rule := range loaded {
		if err := sched.InstallRule(ctx, rule); err != nil {
			logger.Error("failed to install rule", zap.String("ruleId", rule.ID), zap.Error(err))
		}
	}
	sched.Start()
	defer sched.StopAll()

	mcp := mcpserver.New(orch, rules.Lookup, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"version":"%s","commit":"%s","date":"%s"}`+"\n", version, commit, date)
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/mcp", mcp.Handler())

	srv := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting tabrulesd",
		zap.String("addr", cfg.MetricsAddr),
		zap.String("version", version),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return cfg.Build()
}
