package model

import (
	"time"

	"github.com/google/uuid"
)

// PresenceRecord tracks a single user's last observed activity. At most
// one row exists per user; it is upserted on login and heartbeat and
// deleted on logout. Absence and staleness both read as "inactive".
type PresenceRecord struct {
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
	IPAddress    string    `json:"ip_address" db:"ip_address"`
	UserAgent    string    `json:"user_agent" db:"user_agent"`
}

// PresenceStatus is the broadcast payload emitted whenever presence
// changes. ProfileSummary is optional and may be empty when the user
// lookup fails.
type PresenceStatus struct {
	UserID         uuid.UUID       `json:"user_id"`
	IsActive       bool            `json:"is_active"`
	LastActivity   *time.Time      `json:"last_activity,omitempty"`
	ProfileSummary *ProfileSummary `json:"profile_summary,omitempty"`
}

// ProfileSummary is the roster-facing slice of a user profile.
type ProfileSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
