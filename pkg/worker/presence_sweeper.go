package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
	"github.com/caresync/portal-api/internal/service/audit"
	"github.com/caresync/portal-api/pkg/logger"
	"github.com/caresync/portal-api/pkg/metrics"
)

type PresenceSweeperConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// PresenceSweeper deletes presence rows whose last activity is older
// than the retention. Liveness never depends on it; staleness is
// computed at read time, the sweeper only keeps the table small.
type PresenceSweeper struct {
	repo    repository.PresenceRepository
	auditor *audit.Service
	config  PresenceSweeperConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewPresenceSweeper(repo repository.PresenceRepository, auditor *audit.Service,
	config PresenceSweeperConfig, logger *logger.Logger, metrics *metrics.Metrics) *PresenceSweeper {
	return &PresenceSweeper{
		repo:    repo,
		auditor: auditor,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (w *PresenceSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *PresenceSweeper) sweep(ctx context.Context) {
	w.metrics.PresenceSweeps.Inc()

	cutoff := time.Now().Add(-w.config.Retention)
	deleted, err := w.repo.DeleteStale(ctx, cutoff)
	if err != nil {
		w.logger.Error(err, "presence sweep failed")
		return
	}

	if deleted > 0 {
		w.metrics.PresenceSwept.Add(float64(deleted))
		w.logger.Info("swept stale presence rows", "deleted", deleted)
		w.auditor.Log(ctx, audit.Entry{
			ActorRole: "system",
			Action:    model.AuditActionPresenceExpired,
			Resource:  "presence",
			Outcome:   model.AuditOutcomeSuccess,
			Detail:    fmt.Sprintf("%d stale rows removed", deleted),
		})
	}
}
