package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"veridoc/internal/audit"
	"veridoc/internal/capture"
	"veridoc/internal/capture/metrics"
	"veridoc/internal/capture/ports"
	"veridoc/internal/capture/preview"
	"veridoc/internal/capture/service"
	"veridoc/internal/capture/store/document"
	"veridoc/internal/capture/store/state"
	"veridoc/internal/capture/upload"
	"veridoc/internal/notify"
	"veridoc/internal/platform/config"
	"veridoc/internal/platform/httpserver"
	"veridoc/internal/platform/logger"
	"veridoc/internal/platform/middleware"
	platformredis "veridoc/internal/platform/redis"
	"veridoc/internal/platform/token"
	"veridoc/internal/uploader"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New("veridoc")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Document records: PostgreSQL when configured, in-memory otherwise.
	var documents ports.DocumentStore
	if cfg.Postgres.DSN != "" {
		db, err := document.OpenDB(cfg.Postgres.DSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pgStore := document.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		documents = pgStore
	} else {
		documents = document.NewInMemoryStore()
	}

	// State snapshots: Redis when configured, in-memory otherwise.
	var states ports.StateStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		states = state.NewRedis(redisClient.Client)
	} else {
		states = state.NewInMemoryStore()
	}

	// Audit trail: Kafka sink when brokers are configured, in-memory
	// otherwise, both behind an async publisher.
	var auditSink audit.Store
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditSink = kafkaStore
	} else {
		auditSink = audit.NewInMemoryStore()
	}
	auditPublisher := audit.NewPublisher(auditSink, audit.WithAsyncBuffer(512))
	defer auditPublisher.Close()

	intakeClient, err := uploader.New(cfg.Intake.BaseURL,
		uploader.WithLogger(log),
		uploader.WithHTTPClient(&http.Client{Timeout: cfg.Intake.Timeout}),
	)
	if err != nil {
		log.Error("intake client configuration invalid", "error", err)
		os.Exit(1)
	}

	previews := preview.NewManager()
	captureMetrics := metrics.New(previews.LiveHandles)

	orchestrator, err := upload.New(intakeClient,
		upload.WithLogger(log),
		upload.WithNotifier(notify.NewLogNotifier(log)),
		upload.WithDocumentStore(documents),
		upload.WithStateStore(states),
		upload.WithAuditPublisher(auditPublisher),
		upload.WithMetrics(captureMetrics),
	)
	if err != nil {
		log.Error("failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	captureService, err := capture.NewService(orchestrator, previews, log,
		service.WithStateStore(states),
		service.WithDocumentStore(documents),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(captureMetrics),
	)
	if err != nil {
		log.Error("failed to build capture service", "error", err)
		os.Exit(1)
	}

	tokens := token.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.CaptureSource)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The rate limiter sits behind authentication so buckets key on the
	// operator, not the shared ingress IP.
	captureHandler := capture.NewHandler(captureService, log, tokens,
		middleware.RateLimit(rate.Limit(50), 100))
	captureHandler.Register(router)
	captureHandler.RegisterAdmin(router, cfg.Auth.AdminKeyHash)

	srv := httpserver.New(cfg.Server.Addr, router,
		httpserver.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting veridoc", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
