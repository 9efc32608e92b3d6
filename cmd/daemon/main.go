package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ftv2g/ftv2g/internal/api"
	"github.com/ftv2g/ftv2g/internal/cache"
	"github.com/ftv2g/ftv2g/internal/config"
	"github.com/ftv2g/ftv2g/internal/frndly"
	"github.com/ftv2g/ftv2g/internal/jobs"
	xlog "github.com/ftv2g/ftv2g/internal/log"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded.
	xlog.Configure(xlog.Config{
		Level:   "info",
		Service: "ftv2g",
		Version: version,
	})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Msg("failed to load configuration")
	}

	xlog.Configure(xlog.Config{
		Level:   cfg.LogLevel,
		Service: "ftv2g",
		Version: version,
	})

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.Listen).
		Msg("starting ftv2g")
	logger.Info().Msgf("→ Account: %s", cfg.Username)
	logger.Info().Msgf("→ Guide: %d days", cfg.GuideDays)
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	if cfg.ForwardedIP != "" {
		logger.Info().Msgf("→ Forwarded IP: %s", cfg.ForwardedIP)
	}

	client := frndly.New(frndly.Credentials{
		Username:    cfg.Username,
		Password:    cfg.Password,
		ForwardedIP: cfg.ForwardedIP,
	},
		frndly.WithTimeout(cfg.Timeout),
		frndly.WithLiveMapSnapshot(filepath.Join(cfg.DataDir, "app.json")),
	)

	var outputCache cache.Cache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "cache.redis_failed").
				Str("addr", cfg.RedisAddr).
				Msg("failed to connect to redis")
		}
		defer func() {
			if cerr := rc.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("failed to close redis client")
			}
		}()
		outputCache = rc
		logger.Info().Msgf("→ Cache: redis (%s)", cfg.RedisAddr)
	} else {
		outputCache = cache.NewMemory()
		logger.Info().Msg("→ Cache: in-memory")
	}

	// Sign in before serving so the first playlist request does not pay
	// the login latency. A failure here is logged, not fatal: the retry
	// path signs in again on demand.
	if err := client.Login(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "login.initial_failed").
			Msg("initial sign-in failed, will retry on first request")
	}

	keepAlive := jobs.NewKeepAliveWorker(client, cfg.KeepAliveInterval)
	go keepAlive.Start(ctx)

	if cfg.RefreshInterval > 0 {
		refresh := jobs.NewRefreshWorker(client, jobs.Config{
			DataDir:   cfg.DataDir,
			BaseURL:   advertisedBase(cfg.Listen),
			GuideDays: cfg.GuideDays,
			LogoSize:  cfg.LogoSize,
		}, cfg.RefreshInterval)
		go refresh.Start(ctx)
		logger.Info().Msgf("→ Artifact refresh: every %s", cfg.RefreshInterval)
	}

	server := api.NewServer(cfg, client, outputCache)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("event", "http.listen").Str("addr", cfg.Listen).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Str("event", "shutdown.signal").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().
				Err(err).
				Str("event", "http.failed").
				Msg("http server failed")
		}
	}

	logger.Info().Msg("server exiting")
}

// advertisedBase turns a listen address into the base URL written into
// playlist artifacts. A wildcard host becomes 127.0.0.1 since the file
// is meant for players on the same machine.
func advertisedBase(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
