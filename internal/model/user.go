package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LockoutThreshold is the number of consecutive failed password checks that blocks an account
const LockoutThreshold = 3

type UserStatus string

const (
	StatusActive   UserStatus = "activo"
	StatusInactive UserStatus = "inactivo"
	StatusBlocked  UserStatus = "bloqueado"
)

var statusLabels = map[UserStatus]string{
	StatusActive:   "Activo",
	StatusInactive: "Inactivo",
	StatusBlocked:  "Bloqueado",
}

func (s UserStatus) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s UserStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

var ErrRoleRequired = errors.New("system user requires a role")

// SystemUser is an authenticable principal bound to exactly one role
type SystemUser struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Password string     `gorm:"type:varchar(255);not null" json:"-"`
	RoleID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"role_id"`
	Role     *Role      `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"role,omitempty"`
	ClientID *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	Client   *Client    `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"client,omitempty"`

	Status         UserStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	FailedAttempts int        `gorm:"not null;default:0" json:"failed_attempts"`

	CreatedAt            time.Time  `gorm:"index" json:"created_at"`
	LastAccessAt         *time.Time `json:"last_access_at"`
	LastPasswordChangeAt *time.Time `json:"last_password_change_at"`

	// derived from the role on every persist, see DeriveAccessFlags
	IsStaffAccess     bool `gorm:"not null" json:"is_staff_access"`
	IsSuperuserAccess bool `gorm:"not null" json:"is_superuser_access"`
}

func (SystemUser) TableName() string {
	return "usuarios_sistema"
}

// DeriveAccessFlags returns the elevated access flags implied by a role kind
func DeriveAccessFlags(role RoleName) (staff, superuser bool) {
	if role == RoleAdministrator {
		return true, true
	}
	return false, false
}

func (u *SystemUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	return nil
}

// BeforeSave overwrites the access flags from the persisted role, whatever the caller set
func (u *SystemUser) BeforeSave(tx *gorm.DB) error {
	name, err := u.roleName(tx)
	if err != nil {
		return err
	}
	u.IsStaffAccess, u.IsSuperuserAccess = DeriveAccessFlags(name)
	return nil
}

func (u *SystemUser) roleName(tx *gorm.DB) (RoleName, error) {
	if u.RoleID == uuid.Nil {
		return "", ErrRoleRequired
	}
	if u.Role != nil && u.Role.ID == u.RoleID {
		return u.Role.Name, nil
	}
	var role Role
	if err := tx.Session(&gorm.Session{NewDB: true}).Select("id", "name").First(&role, "id = ?", u.RoleID).Error; err != nil {
		return "", err
	}
	u.Role = &role
	return role.Name, nil
}

func (u *SystemUser) hasRole(name RoleName) bool {
	return u.Role != nil && u.Role.Name == name
}

func (u *SystemUser) IsAdmin() bool            { return u.hasRole(RoleAdministrator) }
func (u *SystemUser) IsCashier() bool          { return u.hasRole(RoleCashier) }
func (u *SystemUser) IsAccountExecutive() bool { return u.hasRole(RoleAccountExecutive) }
func (u *SystemUser) IsAuditor() bool          { return u.hasRole(RoleAuditor) }
func (u *SystemUser) IsClient() bool           { return u.hasRole(RoleClient) }

func (u *SystemUser) IsBlocked() bool {
	return u.Status == StatusBlocked
}

func (u *SystemUser) String() string {
	if u.Role == nil {
		return u.Username
	}
	return u.Username + " (" + u.Role.Name.Label() + ")"
}

// RoleBadgeClass is the css class the admin list uses for the role column
func (u *SystemUser) RoleBadgeClass() string {
	if u.Role == nil {
		return "bg-secondary"
	}
	switch u.Role.Name {
	case RoleAdministrator:
		return "bg-danger"
	case RoleCashier:
		return "bg-info"
	case RoleAccountExecutive:
		return "bg-primary"
	case RoleAuditor:
		return "bg-warning"
	case RoleClient:
		return "bg-success"
	}
	return "bg-secondary"
}

// StatusBadgeClass is the css class the admin list uses for the status column
func (u *SystemUser) StatusBadgeClass() string {
	switch u.Status {
	case StatusActive:
		return "bg-success"
	case StatusBlocked:
		return "bg-danger"
	}
	return "bg-secondary"
}
