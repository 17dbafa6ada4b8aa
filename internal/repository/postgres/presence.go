package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
)

type presenceRepository struct {
	BaseRepository
}

func NewPresenceRepository(base BaseRepository) repository.PresenceRepository {
	return &presenceRepository{base}
}

// Upsert writes the single presence row for a user. The primary key on
// user_id is what enforces the at-most-one-row invariant; concurrent
// upserts for the same user resolve to last write wins.
func (r *presenceRepository) Upsert(ctx context.Context, rec *model.PresenceRecord) error {
	query := `
		INSERT INTO presence_records (user_id, last_activity, ip_address, user_agent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			last_activity = EXCLUDED.last_activity,
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.UserID,
		rec.LastActivity,
		rec.IPAddress,
		rec.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert presence record: %w", err)
	}
	return nil
}

func (r *presenceRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM presence_records WHERE user_id = $1`

	// Deleting an absent record is not an error; absence already means
	// inactive.
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete presence record: %w", err)
	}
	return nil
}

func (r *presenceRepository) Get(ctx context.Context, userID uuid.UUID) (*model.PresenceRecord, error) {
	query := `SELECT * FROM presence_records WHERE user_id = $1`

	var rec model.PresenceRecord
	if err := r.db.GetContext(ctx, &rec, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get presence record: %w", err)
	}
	return &rec, nil
}

func (r *presenceRepository) ListByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]*model.PresenceRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `SELECT * FROM presence_records WHERE user_id = ANY($1)`

	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	var recs []*model.PresenceRecord
	if err := r.db.SelectContext(ctx, &recs, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list presence records: %w", err)
	}
	return recs, nil
}

func (r *presenceRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM presence_records WHERE last_activity < $1`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale presence records: %w", err)
	}
	return result.RowsAffected()
}
