package availability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
	"github.com/caresync/portal-api/internal/service/audit"
	"github.com/caresync/portal-api/internal/service/presence"
	apperrors "github.com/caresync/portal-api/pkg/errors"
	"github.com/caresync/portal-api/pkg/validator"
)

// Service is the availability calendar: weekly recurring slots, one per
// (practitioner, day-of-week), plus the roster read joining slots with
// presence status.
type Service struct {
	repo     repository.AvailabilityRepository
	users    repository.UserRepository
	presence *presence.Service
	auditor  *audit.Service
}

func NewService(repo repository.AvailabilityRepository, users repository.UserRepository,
	presenceSvc *presence.Service, auditor *audit.Service) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		presence: presenceSvc,
		auditor:  auditor,
	}
}

// Upsert validates and stores the slot for (practitioner, day),
// overwriting any existing slot for that day. Returns the stored slot
// including its id.
func (s *Service) Upsert(ctx context.Context, practitionerID uuid.UUID, req *model.UpsertSlotRequest) (*model.AvailabilitySlot, error) {
	if _, ok := model.DayOrder(req.DayOfWeek); !ok {
		return nil, apperrors.Validation(fmt.Sprintf("invalid day of week: %q", req.DayOfWeek))
	}
	if !validator.ValidHHMM(req.StartTime) || !validator.ValidHHMM(req.EndTime) {
		return nil, apperrors.Validation("times must be HH:MM in 24-hour form")
	}

	start := minutesSinceMidnight(req.StartTime)
	end := minutesSinceMidnight(req.EndTime)
	if end <= start {
		return nil, apperrors.Validation("end time must be after start time")
	}

	// Existing row only decides the audit wording; the single upsert
	// statement below handles both paths without racing a concurrent
	// writer.
	action := "created"
	if _, err := s.repo.Get(ctx, practitionerID, req.DayOfWeek); err == nil {
		action = "updated"
	}

	slot, err := s.repo.Upsert(ctx, &model.AvailabilitySlot{
		PractitionerID: practitionerID,
		DayOfWeek:      req.DayOfWeek,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ActorID:   &practitionerID,
		ActorRole: model.RolePractitioner,
		Action:    model.AuditActionSlotUpsert,
		Resource:  "availability/" + slot.ID.String(),
		Outcome:   model.AuditOutcomeSuccess,
		Detail:    fmt.Sprintf("slot %s for %s %s-%s", action, slot.DayOfWeek, slot.StartTime, slot.EndTime),
	})

	return slot, nil
}

// List returns the practitioner's slots in canonical day order, Monday
// first.
func (s *Service) List(ctx context.Context, practitionerID uuid.UUID) ([]model.AvailabilitySlot, error) {
	slots, err := s.repo.ListByPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return slots, nil
}

// Delete removes a slot scoped to its owner. A missing slot and a slot
// owned by someone else both report not found.
func (s *Service) Delete(ctx context.Context, slotID, practitionerID uuid.UUID) error {
	if err := s.repo.Delete(ctx, slotID, practitionerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("availability slot")
		}
		return apperrors.Storage(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ActorID:   &practitionerID,
		ActorRole: model.RolePractitioner,
		Action:    model.AuditActionSlotDelete,
		Resource:  "availability/" + slotID.String(),
		Outcome:   model.AuditOutcomeSuccess,
	})
	return nil
}

// Roster returns every practitioner with their full slot list and
// current presence status. A presence tracker failure degrades every
// entry to inactive rather than failing the read.
func (s *Service) Roster(ctx context.Context) ([]model.PractitionerRoster, error) {
	practitioners, err := s.users.ListByRole(ctx, model.RolePractitioner)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	ids := make([]uuid.UUID, len(practitioners))
	for i, p := range practitioners {
		ids[i] = p.ID
	}

	slotsByID, err := s.repo.ListByPractitioners(ctx, ids)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	activity := s.presence.ListActivity(ctx, ids)

	roster := make([]model.PractitionerRoster, len(practitioners))
	for i, p := range practitioners {
		entry := model.PractitionerRoster{
			ID:           p.ID,
			Name:         p.FullName(),
			Email:        p.Email,
			Availability: slotsByID[p.ID],
		}
		if entry.Availability == nil {
			entry.Availability = []model.AvailabilitySlot{}
		}
		if act, ok := activity[p.ID]; ok {
			entry.IsActive = act.Active
			entry.LastActivity = act.LastActivity
		}
		roster[i] = entry
	}
	return roster, nil
}

// minutesSinceMidnight assumes s already matched the HH:MM pattern.
func minutesSinceMidnight(s string) int {
	parts := strings.SplitN(s, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m
}
