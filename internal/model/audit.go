package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionLoginSucceeded   = "LOGIN_SUCCEEDED"
	ActionLoginFailed      = "LOGIN_FAILED"
	ActionAccountBlocked   = "ACCOUNT_BLOCKED"
	ActionAccountUnblocked = "ACCOUNT_UNBLOCKED"
	ActionStatusChanged    = "STATUS_CHANGED"
	ActionRoleChanged      = "ROLE_CHANGED"
	ActionPasswordChanged  = "PASSWORD_CHANGED"
	ActionCreateUser       = "CREATE_SYSTEM_USER"
	ActionBootstrapAdmin   = "BOOTSTRAP_ADMIN"
	ActionGrantPermission  = "GRANT_PERMISSION"
	ActionRevokePermission = "REVOKE_PERMISSION"
	ActionDeleteRole       = "DELETE_ROLE"
	ActionDeletePermission = "DELETE_PERMISSION"
	ActionDeleteClient     = "DELETE_CLIENT"
)

// AuditLog tracks who did what and when for security relevant changes
type AuditLog struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID  `gorm:"type:uuid;index" json:"user_id"` // nil for automated actions
	User       *SystemUser `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL;" json:"user,omitempty"`
	Action     string      `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string      `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string      `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string      `gorm:"type:text" json:"details"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
