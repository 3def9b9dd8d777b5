package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/complyscan/api"
	"github.com/use-agent/complyscan/cache"
	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/detector"
	"github.com/use-agent/complyscan/fetcher"
	"github.com/use-agent/complyscan/llm"
	"github.com/use-agent/complyscan/metrics"
	"github.com/use-agent/complyscan/scanner"
	"github.com/use-agent/complyscan/store/postgres"
	"github.com/use-agent/complyscan/store/redis"
	"github.com/use-agent/complyscan/webhook"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	// ── 1. Load and validate configuration ──────────────────────────
	cfg := config.Load()
	initLogger(cfg.Log)

	if cfg.RulesFile != "" {
		if err := config.LoadRules(cfg, cfg.RulesFile); err != nil {
			slog.Error("failed to load rules file", "path", cfg.RulesFile, "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("complyscan starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"history", cfg.History.Backend,
		"summary", cfg.Summary.Enabled(),
		"batchMax", cfg.Batch.MaxSize,
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── 2. Detection rules ──────────────────────────────────────────
	rules, err := detector.DefaultRules().Extend(cfg.Detection)
	if err != nil {
		slog.Error("invalid detection rules", "error", err)
		os.Exit(1)
	}
	det := detector.New(rules)

	// ── 3. Cache, metrics, fetcher ──────────────────────────────────
	cc := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	go cc.Run(rootCtx, cfg.Cache.PurgeInterval)

	m := metrics.New(cc.Stats)

	fe := fetcher.New(cfg.Fetch, fetcher.WithAttemptObserver(m.ObserveFetchAttempt))
	defer fe.Close()

	// ── 4. Optional collaborators ───────────────────────────────────
	history, closeHistory := openHistory(rootCtx, cfg.History)
	defer closeHistory()

	opts := []scanner.Option{scanner.WithMetrics(m), scanner.WithHistory(history)}
	if cfg.Summary.Enabled() {
		opts = append(opts, scanner.WithSummarizer(llm.NewClient(cfg.Summary, nil)))
	}
	sc := scanner.New(cfg, fe, det, cc, opts...)

	notifier := webhook.NewNotifier(cfg.Webhook)

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(rootCtx, api.Deps{
		Scanner:  sc,
		Notifier: notifier,
		Metrics:  m,
		Version:  version,
	}, cfg, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests, batches included, 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	stop()
	notifier.Wait()
	slog.Info("complyscan stopped")
}

// openHistory connects the configured history backend. An unreachable
// backend is logged and replaced by NoHistory so scans keep working.
func openHistory(ctx context.Context, cfg config.HistoryConfig) (scanner.HistoryStore, func()) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var (
		store   scanner.HistoryStore
		closeFn func()
		err     error
	)
	switch cfg.Backend {
	case config.HistoryPostgres:
		var s *postgres.Store
		if s, err = postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns); err == nil {
			store, closeFn = s, s.Close
		}
	case config.HistoryRedis:
		var s *redis.Store
		if s, err = redis.Dial(ctx, cfg); err == nil {
			store, closeFn = s, s.Close
		}
	default:
		return scanner.NoHistory{}, func() {}
	}

	if err != nil {
		slog.Warn("history store unavailable, continuing without history",
			"backend", cfg.Backend,
			"error", err,
		)
		return scanner.NoHistory{}, func() {}
	}
	slog.Info("history store ready", "backend", store.Name())
	return store, closeFn
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
