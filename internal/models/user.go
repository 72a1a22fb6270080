package models

import (
	"strings"
	"time"
)

// Account roles supplied by the identity layer.
const (
	RoleSuperAdmin     = "SUPERADMIN"
	RoleAdmin          = "ADMIN"
	RoleStudent        = "STUDENT"
	RoleRepresentative = "REPRESENTATIVE"
)

// Account lifecycle states.
const (
	UserStatusActive            = "ACTIVE"
	UserStatusActivationPending = "ACTIVATION_PENDING"
	UserStatusInactive          = "INACTIVE"
)

// User is an account belonging to one entity (school or college).
type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Name                string     `gorm:"size:255" json:"name"`
	Email               string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone               string     `gorm:"size:32" json:"phone"`
	Address             string     `gorm:"type:text" json:"address"`
	Gender              string     `gorm:"size:16" json:"gender"`
	RollNumber          string     `gorm:"size:64" json:"roll_number"`
	Role                string     `gorm:"size:32;not null;index" json:"role"`
	Status              string     `gorm:"size:32;not null" json:"status"`
	EntityID            uint       `gorm:"not null;index" json:"entity_id"`
	PasswordHash        string     `gorm:"size:255" json:"-"`
	InvitationToken     *string    `gorm:"size:64;uniqueIndex" json:"-"`
	InvitationExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasPassword reports whether the account can already sign in.
func (u User) HasPassword() bool {
	return strings.TrimSpace(u.PasswordHash) != ""
}

// IsAdmin reports whether the role may manage exams.
func IsAdmin(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}
