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

type availabilityRepository struct {
	BaseRepository
}

func NewAvailabilityRepository(base BaseRepository) repository.AvailabilityRepository {
	return &availabilityRepository{base}
}

// dayOrderExpr orders rows by canonical day-of-week position, Monday
// first, regardless of insertion order.
const dayOrderExpr = `array_position(
	ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday'],
	day_of_week)`

// Upsert inserts or overwrites the slot for (practitioner, day) in a
// single statement, so two concurrent upserts for the same day can never
// surface a constraint violation; one insert wins and the other lands on
// the DO UPDATE path.
func (r *availabilityRepository) Upsert(ctx context.Context, slot *model.AvailabilitySlot) (*model.AvailabilitySlot, error) {
	query := `
		INSERT INTO availability_slots (
			id, practitioner_id, day_of_week, start_time, end_time,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (practitioner_id, day_of_week) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			updated_at = EXCLUDED.updated_at
		RETURNING *
	`

	now := time.Now()
	var stored model.AvailabilitySlot
	err := r.db.GetContext(ctx, &stored, query,
		uuid.New(),
		slot.PractitionerID,
		slot.DayOfWeek,
		slot.StartTime,
		slot.EndTime,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert availability slot: %w", err)
	}
	return &stored, nil
}

func (r *availabilityRepository) Get(ctx context.Context, practitionerID uuid.UUID, dayOfWeek string) (*model.AvailabilitySlot, error) {
	query := `
		SELECT * FROM availability_slots
		WHERE practitioner_id = $1 AND day_of_week = $2
	`

	var slot model.AvailabilitySlot
	if err := r.db.GetContext(ctx, &slot, query, practitionerID, dayOfWeek); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get availability slot: %w", err)
	}
	return &slot, nil
}

func (r *availabilityRepository) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]model.AvailabilitySlot, error) {
	query := `
		SELECT * FROM availability_slots
		WHERE practitioner_id = $1
		ORDER BY ` + dayOrderExpr

	var slots []model.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, practitionerID); err != nil {
		return nil, fmt.Errorf("failed to list availability slots: %w", err)
	}
	return slots, nil
}

func (r *availabilityRepository) ListByPractitioners(ctx context.Context, practitionerIDs []uuid.UUID) (map[uuid.UUID][]model.AvailabilitySlot, error) {
	result := make(map[uuid.UUID][]model.AvailabilitySlot, len(practitionerIDs))
	if len(practitionerIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT * FROM availability_slots
		WHERE practitioner_id = ANY($1)
		ORDER BY practitioner_id, ` + dayOrderExpr

	ids := make([]string, len(practitionerIDs))
	for i, id := range practitionerIDs {
		ids[i] = id.String()
	}

	var slots []model.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list availability slots: %w", err)
	}

	for _, slot := range slots {
		result[slot.PractitionerID] = append(result[slot.PractitionerID], slot)
	}
	return result, nil
}

// Delete removes a slot only when it belongs to the given practitioner.
// Missing and foreign-owned slots both return ErrNotFound so ownership
// is never leaked.
func (r *availabilityRepository) Delete(ctx context.Context, slotID, practitionerID uuid.UUID) error {
	query := `
		DELETE FROM availability_slots
		WHERE id = $1 AND practitioner_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, slotID, practitionerID)
	if err != nil {
		return fmt.Errorf("failed to delete availability slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
