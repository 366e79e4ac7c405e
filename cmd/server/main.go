package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"regdesk/internal/blob"
	jwttoken "regdesk/internal/jwt_token"
	"regdesk/internal/platform/config"
	"regdesk/internal/platform/httpserver"
	"regdesk/internal/platform/logger"
	"regdesk/internal/platform/middleware"
	"regdesk/internal/platform/postgres"
	platformredis "regdesk/internal/platform/redis"
	regcache "regdesk/internal/registration/cache"
	reghandler "regdesk/internal/registration/handler"
	regmetrics "regdesk/internal/registration/metrics"
	regservice "regdesk/internal/registration/service"
	regstore "regdesk/internal/registration/store"
	userhandler "regdesk/internal/user/handler"
	usermetrics "regdesk/internal/user/metrics"
	userservice "regdesk/internal/user/service"
	userstore "regdesk/internal/user/store"
	"regdesk/migrations"
	"regdesk/pkg/platform/audit/publisher"
	"regdesk/pkg/platform/audit/relay"
	auditpg "regdesk/pkg/platform/audit/store/postgres"
)

// main wires the dependency graph and owns process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := regmetrics.New()

	var registrations regservice.Store = regstore.NewPostgres(db)
	if redisClient != nil {
		registrations = regcache.New(regstore.NewPostgres(db), redisClient.Client, cfg.Redis.CacheTTL, log, metrics)
	}

	var blobs regservice.BlobStore
	if cfg.S3.Bucket != "" {
		s3Store, err := blob.NewS3(ctx, cfg.S3)
		if err != nil {
			log.Error("s3 blob store init failed", "error", err)
			os.Exit(1)
		}
		blobs = s3Store
	} else {
		log.Warn("S3_BUCKET not set; storing attachment bytes in memory")
		blobs = blob.NewMemory("")
	}

	auditStore := auditpg.New(db)
	auditPublisher := publisher.NewPublisher(auditStore, publisher.WithLogger(log))
	defer auditPublisher.Close()

	if len(cfg.Kafka.Brokers) > 0 {
		auditRelay, err := relay.New(ctx, auditStore, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.PollInterval, log)
		if err != nil {
			log.Error("audit relay init failed", "error", err)
			os.Exit(1)
		}
		defer auditRelay.Close()
		go func() {
			if err := auditRelay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err)
			}
		}()
	} else {
		log.Warn("KAFKA_BROKERS not set; audit events stay in the outbox table")
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "regdesk", "regdesk-dashboard")

	registrationService := regservice.New(registrations,
		regservice.WithLogger(log),
		regservice.WithAuditPublisher(auditPublisher),
		regservice.WithMetrics(metrics),
		regservice.WithBlobStore(blobs),
	)
	userService := userservice.New(userstore.NewPostgres(db), jwtService,
		userservice.WithLogger(log),
		userservice.WithAuditPublisher(auditPublisher),
		userservice.WithMetrics(usermetrics.New()),
	)

	registrationHandler := reghandler.New(registrationService, log)
	userHandler := userhandler.New(userService, log)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	requireAuth := middleware.RequireAuth(jwttoken.NewMiddlewareAdapter(jwtService), log)
	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			userHandler.RegisterPublic(r)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				registrationHandler.Register(r)
				userHandler.Register(r)
			})
		})

		// Multipart uploads skip the JSON content-type guard.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			registrationHandler.RegisterUploads(r)
		})
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
