package model

import (
	"time"

	"github.com/google/uuid"
)

// Permission is an immutable catalog entry identified by a
// "module.action" code. Seeded at bootstrap, read-only afterwards.
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "invoice.view"
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Module      string    `gorm:"type:varchar(50);not null;index" json:"module"`
	Action      string    `gorm:"type:varchar(50);not null" json:"action"`
	IsSystem    bool      `gorm:"default:true" json:"is_system"` // system entries are non-deletable
	CreatedAt   time.Time `json:"created_at"`
}

// Role is a distributor-scoped named bundle of permissions.
type Role struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DistributorID uuid.UUID    `gorm:"type:uuid;not null;index;uniqueIndex:idx_role_dist_name" json:"distributor_id"`
	Distributor   *Distributor `gorm:"foreignKey:DistributorID" json:"distributor,omitempty"`

	Name        string `gorm:"type:varchar(100);not null;uniqueIndex:idx_role_dist_name" json:"name"` // unique within distributor
	Description string `gorm:"type:text" json:"description"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"` // prevent deletion of built-in roles
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Permissions []Permission `gorm:"many2many:role_permissions;joinForeignKey:RoleID;joinReferences:PermissionID" json:"permissions"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RolePermission is the role↔permission join row. It exists as a full
// model, rather than an implicit join table, so each grant carries its
// own timestamp and can be audited individually.
type RolePermission struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RoleID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_role_perm" json:"role_id"`
	PermissionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_role_perm" json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName keeps the join table shared with the many2many association
func (RolePermission) TableName() string {
	return "role_permissions"
}
