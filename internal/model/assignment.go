package model

import (
	"time"

	"github.com/google/uuid"
)

// UserRole grants a role to a user within a specific branch. A user may
// hold many assignments, but at most one is marked primary; the access
// service enforces that invariant, not the schema.
type UserRole struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_role_branch" json:"user_id"`
	User   *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`

	RoleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_role_branch" json:"role_id"`
	Role   *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`

	BranchID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_role_branch" json:"branch_id"`
	Branch   *Branch   `gorm:"foreignKey:BranchID" json:"branch,omitempty"`

	IsPrimary  bool       `gorm:"default:false" json:"is_primary"`
	AssignedBy *uuid.UUID `gorm:"type:uuid" json:"assigned_by"`
	AssignedAt time.Time  `gorm:"autoCreateTime" json:"assigned_at"`
}
