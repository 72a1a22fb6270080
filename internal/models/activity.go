package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audited actions.
const (
	ActionResumptionApproved = "resumption.approved"
	ActionResumptionRejected = "resumption.rejected"
	ActionAdmissionApproved  = "admission.approved"
	ActionAdmissionRejected  = "admission.rejected"
	ActionResultRecomputed   = "result.recomputed"
	ActionStudentsInvited    = "enrollment.invited"
)

// ActivityLog captures auditable administrator decisions within one tenant.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	TenantID   uint              `gorm:"index" json:"tenant_id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
