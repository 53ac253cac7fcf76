package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skylink/internal/core/ports"
	"skylink/internal/core/services"
	httphandlers "skylink/internal/handlers/http"
	"skylink/internal/infrastructure/backend"
	"skylink/internal/infrastructure/middleware"
	"skylink/internal/infrastructure/monitoring"
	"skylink/internal/infrastructure/push"
	"skylink/internal/infrastructure/render"
	repositories "skylink/internal/infrastructure/repositories"
	webrtcinfra "skylink/internal/infrastructure/webrtc"
	"skylink/pkg/config"
	"skylink/pkg/logger"
	"skylink/pkg/retry"
	"skylink/pkg/tracing"
)

func main() {
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/skylink/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	// Tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "skylink-agent",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Repositories (draft persistence)
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()
	configRepo := repoFactory.CreateConfigRepository()

	// Backend client: control + signaling over HTTP
	client := backend.NewClient(
		cfg.Backend.BaseURL,
		cfg.Backend.AuthToken,
		cfg.Backend.RequestTimeout,
		backend.Limits{
			StatsPerSecond:      cfg.Telemetry.StatsPerSecond,
			CandidatesPerSecond: cfg.Telemetry.CandidatesPerSecond,
			Burst:               cfg.Telemetry.Burst,
		},
		log,
	)

	// Metrics
	var metrics ports.MetricsSink = monitoring.NewPrometheusCollector()

	// Session stack
	renderer := render.NewSink(nil, log)
	factory := webrtcinfra.NewFactory(log)
	sessionRetry := retry.Config{
		Enabled:      cfg.Viewer.SessionRetry.Enabled,
		MaxAttempts:  cfg.Viewer.SessionRetry.MaxAttempts,
		InitialDelay: cfg.Viewer.SessionRetry.InitialDelay,
		MaxDelay:     cfg.Viewer.SessionRetry.MaxDelay,
		Multiplier:   2,
		Jitter:       true,
	}
	session := services.NewSessionManager(client, factory, renderer, metrics, services.SessionConfig{
		MaxBitrateKbps:   cfg.Viewer.MaxBitrateKbps,
		SamplingInterval: cfg.Viewer.SamplingInterval,
		Retry:            sessionRetry,
	}, log)

	// Push channel for authoritative status
	statusSource := push.NewWebSocketSource(
		cfg.Backend.PushURL,
		cfg.Backend.AuthToken,
		retry.Config{
			Enabled:      true,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2,
			Jitter:       true,
		},
		log,
	)
	go statusSource.Run(rootCtx)

	// Viewer service
	store := services.NewConfigStore(rootCtx, configRepo, log)
	live := services.NewLiveUpdateChannel(client, cfg.Viewer.DebounceWindow, metrics, log)
	viewer := services.NewViewerService(store, client, session, live, statusSource, metrics, log)
	go viewer.Run(rootCtx)

	// Health checks
	health := monitoring.NewHealthChecker()
	health.AddCheck("storage", repoFactory.HealthCheck, 2*time.Second)
	health.AddCheck("backend", func(ctx context.Context) error {
		_, err := client.FetchLinkHints(ctx)
		return err
	}, 3*time.Second)

	// HTTP API
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestLogMiddleware(zapLogger))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(50, 100))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	handler := httphandlers.NewViewerHandler(viewer, health)
	handler.SetupRoutes(router)

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting skylink agent on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down skylink agent...")
	rootCancel()
	viewer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer", "error", err)
	}

	log.Info("skylink agent stopped")
}
