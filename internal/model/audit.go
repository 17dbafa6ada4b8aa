package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only security event record. Never updated or
// deleted by request paths; retention is handled by the cleanup worker.
type AuditLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ActorID   *uuid.UUID `json:"actor_id" db:"actor_id"`
	ActorRole string     `json:"actor_role" db:"actor_role"`
	Action    string     `json:"action" db:"action"`
	Resource  string     `json:"resource" db:"resource"`
	IPAddress string     `json:"ip_address" db:"ip_address"`
	UserAgent string     `json:"user_agent" db:"user_agent"`
	Outcome   string     `json:"outcome" db:"outcome"`
	Detail    string     `json:"detail" db:"detail"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Audit outcomes
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

// Audit action tags
const (
	AuditActionSignup          = "auth.signup"
	AuditActionLogin           = "auth.login"
	AuditActionLogout          = "auth.logout"
	AuditActionSlotUpsert      = "availability.upsert"
	AuditActionSlotDelete      = "availability.delete"
	AuditActionAuditList       = "audit.list"
	AuditActionPresenceExpired = "presence.swept"
)

// AuditLogFilter represents audit listing parameters.
type AuditLogFilter struct {
	Pagination
	ActorID string `form:"actor_id"`
	Action  string `form:"action"`
	Outcome string `form:"outcome"`
}
