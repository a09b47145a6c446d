package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/KaioHerculano/livesync/internal/config"
	"github.com/KaioHerculano/livesync/internal/httpapi"
	"github.com/KaioHerculano/livesync/internal/httpapi/middleware"
	"github.com/KaioHerculano/livesync/internal/logging"
	"github.com/KaioHerculano/livesync/internal/notify"
	"github.com/KaioHerculano/livesync/internal/probe"
	"github.com/KaioHerculano/livesync/internal/repo"
	"github.com/KaioHerculano/livesync/internal/repo/memory"
	"github.com/KaioHerculano/livesync/internal/repo/postgres"
	"github.com/KaioHerculano/livesync/internal/repo/sqlite"
	"github.com/KaioHerculano/livesync/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		targets repo.TargetStore
		records repo.NotificationStore
		closeFn func()
	)
	switch cfg.DatabaseDriver {
	case "postgres":
		st, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres_open_error", zap.Error(err))
		}
		targets, records = st, st
		closeFn = st.Close
	case "sqlite":
		st, err := sqlite.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("sqlite_open_error", zap.Error(err))
		}
		targets, records = st, st
		closeFn = func() { _ = st.Close() }
	default:
		st := memory.New()
		targets, records = st, st
		closeFn = func() {}
	}
	defer closeFn()

	probers := probe.NewRegistry(logger, cfg.ProbeTimeout)
	notifier := notify.NewDiscord(logger, cfg.ProbeTimeout)

	poller := scheduler.New(logger, targets, records, probers, notifier, scheduler.Config{
		Interval:     cfg.PollInterval,
		ProbeTimeout: cfg.ProbeTimeout,
		Concurrency:  cfg.MaxConcurrentChecks,
	})
	go poller.Run(ctx)

	api := httpapi.NewServer(logger, targets, records, poller,
		middleware.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys},
		cfg.PublicRPM, cfg.PublicBurst,
	)
	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}

	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api_serve_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", zap.Error(err))
	}
}
