package model

import (
	"time"

	"github.com/google/uuid"
)

// Canonical day-of-week names, Monday first. List order defines the
// ordering of availability listings.
var DaysOfWeek = []string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

// DayOrder returns the canonical position of a day name (Monday=0) and
// whether the name is one of the seven enumerated values.
func DayOrder(day string) (int, bool) {
	for i, d := range DaysOfWeek {
		if d == day {
			return i, true
		}
	}
	return 0, false
}

// AvailabilitySlot is a weekly recurring time window for a practitioner.
// At most one slot exists per (practitioner, day) pair. Times are
// wall-clock HH:MM, 24-hour form.
type AvailabilitySlot struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PractitionerID uuid.UUID `json:"practitioner_id" db:"practitioner_id"`
	DayOfWeek      string    `json:"day_of_week" db:"day_of_week"`
	StartTime      string    `json:"start_time" db:"start_time"`
	EndTime        string    `json:"end_time" db:"end_time"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// UpsertSlotRequest represents availability upsert parameters.
type UpsertSlotRequest struct {
	DayOfWeek string `json:"day_of_week" binding:"required,dayofweek"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm"`
}

// PractitionerRoster joins a practitioner's identity, full slot list and
// current presence status for roster display.
type PractitionerRoster struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Availability []AvailabilitySlot `json:"availability"`
	IsActive     bool               `json:"is_active"`
	LastActivity *time.Time         `json:"last_activity,omitempty"`
}
