package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, actor_id, actor_role, action, resource,
			ip_address, user_agent, outcome, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		log.ActorRole,
		log.Action,
		log.Resource,
		log.IPAddress,
		log.UserAgent,
		log.Outcome,
		log.Detail,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) ListWithPagination(ctx context.Context, filter *model.AuditLogFilter) ([]*model.AuditLog, int64, error) {
	baseQuery := `FROM audit_logs WHERE 1=1`
	var args []interface{}

	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		baseQuery += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		baseQuery += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.Outcome != "" {
		args = append(args, filter.Outcome)
		baseQuery += fmt.Sprintf(" AND outcome = $%d", len(args))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	args = append(args, filter.PageSize, filter.Offset())
	query := "SELECT * " + baseQuery +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var logs []*model.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM audit_logs WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit logs: %w", err)
	}
	return result.RowsAffected()
}
