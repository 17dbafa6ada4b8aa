package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
	"github.com/caresync/portal-api/pkg/logger"
)

// Service writes the append-only audit trail. Writers treat it as
// fire-and-forget: a failed write is logged server-side and never
// escalates into the caller's response.
type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Entry describes a security-relevant action. ActorID is nil for
// anonymous actors (failed logins, signup attempts).
type Entry struct {
	ActorID   *uuid.UUID
	ActorRole string
	Action    string
	Resource  string
	IPAddress string
	UserAgent string
	Outcome   string
	Detail    string
}

// Log appends an audit event. Detail text is redacted before storage so
// personally identifying substrings never persist.
func (s *Service) Log(ctx context.Context, entry Entry) {
	log := &model.AuditLog{
		ID:        uuid.New(),
		ActorID:   entry.ActorID,
		ActorRole: entry.ActorRole,
		Action:    entry.Action,
		Resource:  entry.Resource,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		Outcome:   entry.Outcome,
		Detail:    Redact(entry.Detail),
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.Error(err, "failed to write audit log",
			"action", entry.Action, "resource", entry.Resource)
	}
}

func (s *Service) ListWithPagination(ctx context.Context, filter *model.AuditLogFilter) ([]*model.AuditLog, int64, error) {
	return s.repo.ListWithPagination(ctx, filter)
}

// Cleanup removes audit rows older than the retention cutoff. Only the
// retention worker calls this; request paths never delete.
func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, before)
}
