package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/portal-api/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a
	// write.
	ErrDuplicate = errors.New("duplicate")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	ListByRole(ctx context.Context, role string) ([]*model.User, error)
}

type PresenceRepository interface {
	Upsert(ctx context.Context, rec *model.PresenceRecord) error
	Delete(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*model.PresenceRecord, error)
	ListByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]*model.PresenceRecord, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type AvailabilityRepository interface {
	Upsert(ctx context.Context, slot *model.AvailabilitySlot) (*model.AvailabilitySlot, error)
	Get(ctx context.Context, practitionerID uuid.UUID, dayOfWeek string) (*model.AvailabilitySlot, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]model.AvailabilitySlot, error)
	ListByPractitioners(ctx context.Context, practitionerIDs []uuid.UUID) (map[uuid.UUID][]model.AvailabilitySlot, error)
	Delete(ctx context.Context, slotID, practitionerID uuid.UUID) error
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	ListWithPagination(ctx context.Context, filter *model.AuditLogFilter) ([]*model.AuditLog, int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
