package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rpggio/starcards/internal/config"
	"github.com/rpggio/starcards/internal/domain/activity"
	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/rpggio/starcards/internal/notify"
	"github.com/rpggio/starcards/internal/rpc"
	"github.com/rpggio/starcards/internal/rules"
	"github.com/rpggio/starcards/internal/scheduler"
	"github.com/rpggio/starcards/internal/sqlite"
	"github.com/rpggio/starcards/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logWriter := io.Writer(os.Stdout)
	if logPath := os.Getenv("STARCARDS_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return err
	}

	store := sqlite.NewStore(db)
	playerRepo := sqlite.NewPlayerRepository(db)
	cardRepo := sqlite.NewCardRepository(db)
	apiKeys := sqlite.NewAPIKeyRepository(db)

	notifier, closeNotifier := newNotifier(cfg.Notify, logger)
	defer closeNotifier()

	registry, err := activity.NewRegistry(rules.All(rules.Deps{
		Store:    store,
		Notifier: notifier,
		Balance:  cfg.Balance,
		Logger:   logger,
	})...)
	if err != nil {
		return fmt.Errorf("build rule registry: %w", err)
	}

	sched := scheduler.New(store, registry,
		scheduler.WithLogger(logger),
		scheduler.WithWorkers(cfg.Scheduler.Workers),
		scheduler.WithCompletionTimeout(cfg.Scheduler.CompletionTimeout),
	)
	activitySvc := activity.NewService(store, registry, sched, logger)
	playerSvc := player.NewService(playerRepo, cardRepo, cfg.Balance.Starter, logger)

	armed, err := activitySvc.RestartAll(context.Background())
	if err != nil {
		return fmt.Errorf("restore activities: %w", err)
	}
	logger.Info("activities restored", "armed", armed)

	opts := transport.Options{
		Auth:      transport.AuthMiddleware(apiKeys),
		Registrar: rpc.NewRegistration(playerSvc, apiKeys, logger),
		Metrics:   promhttp.Handler(),
		Logger:    logger,
	}
	if cfg.RateLimit.RPS > 0 {
		opts.RateLimit = transport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware
	}
	handler := rpc.WithTrafficLogging(rpc.NewHandler(activitySvc, playerSvc), logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(handler, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			activitySvc.StopAll()
			return fmt.Errorf("listen: %w", err)
		}
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Records stay stored; the next start re-arms them.
	stopped := activitySvc.StopAll()
	logger.Info("timers stopped", "count", stopped)
	return nil
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Notifier, func()) {
	if len(cfg.Brokers) == 0 {
		return notify.NewLogNotifier(logger), func() {}
	}

	producer := notify.NewKafkaProducer(cfg.Brokers)
	notifier := notify.NewKafkaNotifier(producer, cfg.Topic, logger)
	logger.Info("publishing notifications to kafka", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return notifier, func() {
		notifier.Close()
		if err := producer.Close(); err != nil {
			logger.Warn("failed to close kafka producer", "error", err)
		}
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
