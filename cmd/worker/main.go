package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/caresync/portal-api/config"
	"github.com/caresync/portal-api/internal/repository/postgres"
	auditservice "github.com/caresync/portal-api/internal/service/audit"
	"github.com/caresync/portal-api/pkg/logger"
	"github.com/caresync/portal-api/pkg/metrics"
	"github.com/caresync/portal-api/pkg/worker"
)

// The worker binary runs the maintenance loops separate from the API:
// stale presence row sweeping and audit log retention.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("portal_worker")

	base := postgres.NewBaseRepository(db)
	presenceRepo := postgres.NewPresenceRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	auditSvc := auditservice.NewService(auditRepo, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := worker.NewPresenceSweeper(presenceRepo, auditSvc, worker.PresenceSweeperConfig{
		Interval:  cfg.Presence.SweepInterval,
		Retention: cfg.Presence.SweepRetention,
	}, appLogger, m)

	cleanup := worker.NewAuditCleanupWorker(auditSvc, worker.AuditCleanupConfig{
		Interval:  cfg.Audit.CleanupInterval,
		Retention: cfg.Audit.Retention,
	}, appLogger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	log.Info().Msg("maintenance workers started")
	wg.Wait()
	log.Info().Msg("maintenance workers stopped")
}
