package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FranksOps/auger/internal/config"
	"github.com/FranksOps/auger/internal/cse"
	"github.com/FranksOps/auger/internal/fingerprint"
	"github.com/FranksOps/auger/internal/harvest"
	"github.com/FranksOps/auger/internal/infer"
	"github.com/FranksOps/auger/internal/metrics"
	"github.com/FranksOps/auger/internal/report"
	"github.com/FranksOps/auger/internal/storage"
	"github.com/FranksOps/auger/internal/storage/csvbackend"
	"github.com/FranksOps/auger/internal/storage/jsonbackend"
	"github.com/FranksOps/auger/internal/storage/postgres"
	"github.com/FranksOps/auger/internal/storage/sqlite"
	"github.com/FranksOps/auger/pkg/proxy"
	"github.com/FranksOps/auger/pkg/ratelimit"
	"github.com/FranksOps/auger/pkg/useragent"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "auger: %v\n", err)
		os.Exit(1)
	}

	initLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("auger starting",
		"org", cfg.Organization,
		"store", cfg.Store,
		"roles", len(cfg.RoleTerms),
		"max_pages", cfg.MaxPages,
	)

	if cfg.MetricsPort > 0 {
		srv := metrics.Start(cfg.MetricsPort)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				slog.Error("metrics server shutdown failed", "err", err)
			}
		}()
	}

	uaPool := useragent.NewPool(nil)
	if cfg.UAFile != "" {
		var err error
		uaPool, err = useragent.NewPoolFromFile(cfg.UAFile)
		if err != nil {
			return err
		}
	}

	var proxyPool *proxy.Pool
	if cfg.Proxy != "" || cfg.ProxyFile != "" {
		proxyPool = proxy.NewPool(proxy.Config{})
		if cfg.Proxy != "" {
			if err := proxyPool.Add(cfg.Proxy); err != nil {
				return err
			}
		}
		if cfg.ProxyFile != "" {
			if err := proxyPool.LoadFile(cfg.ProxyFile); err != nil {
				return err
			}
		}
		slog.Info("proxy pool loaded", "proxies", proxyPool.Len())
	}

	profile, err := fingerprint.Parse(cfg.Fingerprint)
	if err != nil {
		return err
	}

	limiter := ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Jitter)
	defer limiter.Stop()

	client, err := cse.NewGoogleClient(cse.Config{
		APIKey:          cfg.APIKey,
		CSEID:           cfg.CSEID,
		APIURL:          cfg.APIURL,
		Timeout:         cfg.Timeout,
		ThrottleBackoff: cfg.ThrottleBackoff,
		ProxyPool:       proxyPool,
		UAPool:          uaPool,
		Fingerprint:     profile,
		Limiter:         limiter,
		Logger:          slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create search client: %w", err)
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init %s store: %w", cfg.Store, err)
	}

	collector := report.NewCollector(cfg.Organization)

	h := harvest.New(harvest.Config{
		Organization:  cfg.Organization,
		RoleTerms:     cfg.RoleTerms,
		MaxPages:      cfg.MaxPages,
		EmailFormat:   cfg.EmailFormat,
		EmailPolicy:   infer.Policy(cfg.EmailPolicy),
		FlushInterval: cfg.FlushInterval,
	}, client, backend, slog.Default())

	runErr := h.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		slog.Warn("interrupted, persisting partial results")
		runErr = nil
	}

	// Results and run metrics are written no matter how the run ended. A
	// fresh context keeps an interrupt from cancelling its own persistence.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := backend.Flush(shutdownCtx); err != nil {
		slog.Error("final flush failed", "err", err)
	}
	if err := backend.Close(); err != nil {
		slog.Error("store close failed", "err", err)
	}

	stats := h.Stats()
	rm := collector.Finalize(client.Requests(), stats.Profiles, stats.Queries, stats.Discarded)
	if err := report.WriteFile(cfg.MetricsPath, rm); err != nil {
		slog.Error("write run metrics failed", "path", cfg.MetricsPath, "err", err)
	}
	if err := report.WriteText(os.Stdout, rm); err != nil {
		slog.Error("write summary failed", "err", err)
	}

	return runErr
}

func newBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Store {
	case "json":
		return jsonbackend.New(cfg.OutputPath)
	case "csv":
		return csvbackend.New(cfg.OutputPath)
	case "sqlite":
		return sqlite.New(cfg.StoreDSN)
	case "postgres":
		return postgres.New(ctx, cfg.StoreDSN)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// initLogger configures the default slog logger. Logs go to stderr so the
// end-of-run summary on stdout stays clean.
func initLogger(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
