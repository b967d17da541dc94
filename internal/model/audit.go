package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionGrantPermission  = "GRANT_PERMISSION"
	ActionRevokePermission = "REVOKE_PERMISSION"
	ActionAssignRole       = "ASSIGN_ROLE"
	ActionUnassignRole     = "UNASSIGN_ROLE"
	ActionSetPrimary       = "SET_PRIMARY_ASSIGNMENT"
	ActionCreateInvoice    = "CREATE_INVOICE"
	ActionRecordPayment    = "RECORD_PAYMENT"
	ActionCancelInvoice    = "CANCEL_INVOICE"
	ActionSwitchBranch     = "SWITCH_BRANCH"
)

// AuditLog tracks who did what and when for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nullable for automated actors
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
