package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caresync/portal-api/config"
	"github.com/caresync/portal-api/internal/email"
	"github.com/caresync/portal-api/internal/handler"
	audithandler "github.com/caresync/portal-api/internal/handler/audit"
	authhandler "github.com/caresync/portal-api/internal/handler/auth"
	practitionerhandler "github.com/caresync/portal-api/internal/handler/practitioner"
	presencehandler "github.com/caresync/portal-api/internal/handler/presence"
	"github.com/caresync/portal-api/internal/middleware"
	"github.com/caresync/portal-api/internal/repository/postgres"
	"github.com/caresync/portal-api/internal/router"
	auditservice "github.com/caresync/portal-api/internal/service/audit"
	authservice "github.com/caresync/portal-api/internal/service/auth"
	availabilityservice "github.com/caresync/portal-api/internal/service/availability"
	presenceservice "github.com/caresync/portal-api/internal/service/presence"
	"github.com/caresync/portal-api/pkg/auth"
	"github.com/caresync/portal-api/pkg/event"
	"github.com/caresync/portal-api/pkg/logger"
	"github.com/caresync/portal-api/pkg/messaging/redis"
	"github.com/caresync/portal-api/pkg/metrics"
	"github.com/caresync/portal-api/pkg/security"
	"github.com/caresync/portal-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("portal")

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	presenceRepo := postgres.NewPresenceRepository(base)
	availabilityRepo := postgres.NewAvailabilityRepository(base)
	auditRepo := postgres.NewAuditRepository(base)

	bus := event.NewBus(cfg.Presence.StreamBuffer)
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis bridges presence events between instances. Without it the
	// bus still serves all clients of this process.
	var broadcaster presenceservice.Broadcaster = bus
	if cfg.Redis.Enabled {
		broker, err := redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, appLogger.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer broker.Close()

		relay := event.NewRelay(bus, broker, cfg.Redis.Channel, appLogger)
		go func() {
			if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
				appLogger.Error(err, "presence relay stopped")
			}
		}()
		broadcaster = relay
	}

	auditSvc := auditservice.NewService(auditRepo, appLogger)
	presenceSvc := presenceservice.NewService(presenceRepo, userRepo, broadcaster, appLogger).
		WithWindow(cfg.Presence.FreshnessWindow).
		WithMetrics(m)
	availabilitySvc := availabilityservice.NewService(availabilityRepo, userRepo, presenceSvc, auditSvc)

	emailSvc := email.NewNoopService()
	if cfg.SMTP.Enabled {
		emailSvc = email.NewSMTPService(cfg.SMTP)
	}

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)
	hasher := security.NewBcryptHasher(0)
	authSvc := authservice.NewService(userRepo, hasher, jwtSvc, presenceSvc, auditSvc, emailSvc, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	h := handler.NewHandler(db)
	authHandler := authhandler.NewHandler(authSvc)
	practitionerHandler := practitionerhandler.NewHandler(availabilitySvc, presenceSvc)
	presenceHandler := presencehandler.NewHandler(bus, m)
	auditHandler := audithandler.NewHandler(auditSvc)

	r := router.NewRouter(
		authMiddleware,
		authHandler,
		practitionerHandler,
		presenceHandler,
		auditHandler,
		h,
		router.RouterConfig{
			RateLimit: middleware.RateLimiterConfig{
				RPS:   cfg.RateLimit.RequestsPerSecond,
				Burst: cfg.RateLimit.Burst,
			},
			LoginRateLimit: middleware.RateLimiterConfig{
				RPS:   cfg.RateLimit.LoginPerMinute / 60,
				Burst: cfg.RateLimit.LoginBurst,
			},
			CORSConfig:     corsConfig(cfg.CORS),
			RequestTimeout: cfg.Server.RequestTimeout,
			MetricsPrefix:  "portal_http",
		},
	)
	r.Setup()

	// No WriteTimeout: the presence stream keeps its response open
	// indefinitely. Per-request deadlines come from the timeout
	// middleware instead.
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r.Engine(),
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited properly")
}

func corsConfig(cfg config.CORSConfig) middleware.CORSConfig {
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return corsCfg
}
