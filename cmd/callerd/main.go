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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"patient-caller-backend/config"
	"patient-caller-backend/internal/api"
	"patient-caller-backend/internal/db"
	"patient-caller-backend/internal/events"
	"patient-caller-backend/internal/logging"
	"patient-caller-backend/internal/metrics"
	"patient-caller-backend/internal/mw"
	"patient-caller-backend/internal/notification"
	"patient-caller-backend/internal/queue"
	"patient-caller-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Log, os.Stdout)
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("server gracefully stopped")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	if cfg.Server.LockFile != "" {
		lock := flock.New(cfg.Server.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", cfg.Server.LockFile, err)
		}
		if !locked {
			return fmt.Errorf("another server holds %s", cfg.Server.LockFile)
		}
		defer lock.Unlock()
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appStore := store.NewGormStore(gormDB)
	appMetrics := metrics.New("patient_caller")

	responseCache := mw.NewResponseCache(cfg.Server.CacheTTL, 10*time.Minute)

	hub := events.NewHub(logger)
	go hub.Run(ctx)

	// The cache must be flushed before displays hear about a change.
	fanout := events.Fanout{responseCache, hub}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger)
		pool.Start(ctx)
		fanout = append(fanout, pool)
	} else {
		logger.Warn().Msg("VAPID keys are not configured; web push notifications disabled")
	}

	if cfg.Events.RedisURL != "" {
		relay, err := events.NewRedisRelay(ctx, cfg.Events.RedisURL, cfg.Events.Channel, logger)
		if err != nil {
			return err
		}
		defer relay.Close()
		// Remote events only reach local displays and the cache; each
		// replica pushes its own notifications.
		go relay.Forward(ctx, events.Fanout{responseCache, hub})
		fanout = append(fanout, relay)
		logger.Info().Str("channel", cfg.Events.Channel).Msg("redis event relay enabled")
	}

	svc := queue.NewService(appStore,
		queue.WithPublisher(fanout),
		queue.WithMetrics(appMetrics),
		queue.WithLogger(logger),
		queue.WithLocation(cfg.Server.Location),
	)

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(svc, appStore, webpushOptions, logger)
	router := api.NewRouter(handler, api.Options{
		RateLimit: cfg.Server.RateLimitPerSec,
		Burst:     cfg.Server.RateLimitBurst,
		Cache:     responseCache,
		Metrics:   appMetrics,
		Hub:       hub,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received, stopping services")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}
