package worker

import (
	"context"
	"time"

	"github.com/caresync/portal-api/internal/service/audit"
	"github.com/caresync/portal-api/pkg/logger"
)

type AuditCleanupConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// AuditCleanupWorker enforces the audit trail retention policy.
type AuditCleanupWorker struct {
	svc    *audit.Service
	config AuditCleanupConfig
	logger *logger.Logger
}

func NewAuditCleanupWorker(svc *audit.Service, config AuditCleanupConfig, logger *logger.Logger) *AuditCleanupWorker {
	return &AuditCleanupWorker{
		svc:    svc,
		config: config,
		logger: logger,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-w.config.Retention)
			deleted, err := w.svc.Cleanup(ctx, cutoff)
			if err != nil {
				w.logger.Error(err, "audit cleanup failed")
				continue
			}
			if deleted > 0 {
				w.logger.Info("expired audit logs removed", "deleted", deleted)
			}
		}
	}
}
