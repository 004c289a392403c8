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

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/adapters/cache"
	"github.com/zatekoja/bloodlink/internal/adapters/database"
	"github.com/zatekoja/bloodlink/internal/adapters/events"
	"github.com/zatekoja/bloodlink/internal/adapters/memory"
	"github.com/zatekoja/bloodlink/internal/adapters/ratelimit"
	"github.com/zatekoja/bloodlink/internal/api/handlers"
	"github.com/zatekoja/bloodlink/internal/api/middleware"
	"github.com/zatekoja/bloodlink/internal/api/routes"
	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/bloodlink/internal/infrastructure/clients/redis"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	"github.com/zatekoja/bloodlink/migrations"
	"github.com/zatekoja/bloodlink/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Storage
	var (
		store    repositories.Store
		pgClient *postgres.Client
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pgClient, err = postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()
		if err := migrations.Apply(ctx, pgClient.DB()); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		store = database.NewStore(pgClient)
		log.Info().Str("database", cfg.Database.Database).Msg("using PostgreSQL storage")
	default:
		store = memory.NewStore()
		log.Warn().Msg("using in-memory storage; data is lost on restart")
	}

	// Redis backs the cache, the event bus and the shared rate limiter.
	// The service runs without it on process-local equivalents.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Redis client, continuing without it")
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	} else {
		eventBus = events.NewLocalEventBus()
	}

	var limiter providers.RateLimiter
	if cfg.RateLimit.Enabled {
		window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		if cfg.RateLimit.Backend == "redis" && redisClient != nil {
			limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Requests, window)
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, window)
		}
	}

	hospitalRepo := store.Hospitals()
	if cacheProvider != nil {
		hospitalRepo = database.NewCachedHospitalAdapter(hospitalRepo, cacheProvider, cfg.Cache.HospitalTTL)
	}

	// Services
	opts := []services.Option{services.WithEventBus(eventBus), services.WithMetrics(metrics)}
	donorService := services.NewDonorService(store, opts...)
	recipientService := services.NewRecipientService(store, opts...)
	hospitalService := services.NewHospitalService(hospitalRepo, opts...)
	referralService := services.NewReferralService(store, opts...)
	matchingService := services.NewMatchingService(store, cacheProvider, cfg.Cache.MatchesTTL, opts...)
	appointmentService := services.NewAppointmentService(store, opts...)
	notificationService := services.NewNotificationService(store.Notifications())

	invalidation := services.NewCacheInvalidationService(matchingService, eventBus)
	if err := invalidation.Start(); err != nil {
		log.Warn().Err(err).Msg("failed to start cache invalidation service")
	}

	sweeper := services.NewAvailabilitySweeper(donorService, services.WithSweepSchedule(cfg.Availability.SweepSchedule))
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Availability.SweepSchedule).Msg("invalid availability sweep schedule")
	}
	go sweeper.RunOnce(ctx)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, middleware.WithCacheMetrics(metrics))
	}

	router := routes.NewRouter(routes.Handlers{
		Donor:        handlers.NewDonorHandler(donorService, matchingService),
		Recipient:    handlers.NewRecipientHandler(recipientService),
		Hospital:     handlers.NewHospitalHandler(hospitalService),
		Referral:     handlers.NewReferralHandler(referralService),
		Matching:     handlers.NewMatchingHandler(matchingService),
		Appointment:  handlers.NewAppointmentHandler(appointmentService),
		Notification: handlers.NewNotificationHandler(notificationService),
	}, cacheMiddleware, limiter, metrics)
	proxies, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid RATE_LIMIT_TRUSTED_PROXIES")
	}
	router.WithTrustedProxies(proxies)
	if pgClient != nil {
		router.WithReadinessCheck("postgres", pgClient)
	}
	if redisClient != nil {
		router.WithReadinessCheck("redis", redisClient)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	sweeper.Stop()
	invalidation.Stop()
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event bus")
	}

	log.Info().Msg("server stopped")
}
