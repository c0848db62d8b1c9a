package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleName is the closed set of role kinds a system user can hold
type RoleName string

const (
	RoleAdministrator    RoleName = "administrador"
	RoleCashier          RoleName = "cajero"
	RoleAccountExecutive RoleName = "ejecutivo_cuentas"
	RoleAuditor          RoleName = "auditor"
	RoleClient           RoleName = "cliente"
)

var roleLabels = map[RoleName]string{
	RoleAdministrator:    "Administrador",
	RoleCashier:          "Cajero",
	RoleAccountExecutive: "Ejecutivo de Cuentas",
	RoleAuditor:          "Auditor",
	RoleClient:           "Cliente",
}

// RoleNames lists every role kind in declaration order
func RoleNames() []RoleName {
	return []RoleName{RoleAdministrator, RoleCashier, RoleAccountExecutive, RoleAuditor, RoleClient}
}

func (n RoleName) IsValid() bool {
	_, ok := roleLabels[n]
	return ok
}

// Label is the display name, or the raw value for unknown kinds
func (n RoleName) Label() string {
	if l, ok := roleLabels[n]; ok {
		return l
	}
	return string(n)
}

// Role is a row of the role catalog
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        RoleName  `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Role) TableName() string {
	return "roles"
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r Role) String() string {
	return r.Name.Label()
}

// Permission is a named capability, e.g. "crear_cliente"
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Permission) TableName() string {
	return "permisos"
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RolePermission grants a permission to every holder of a role; unique per pair
type RolePermission struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	RoleID       uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uni_role_perm" json:"role_id"`
	Role         *Role       `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"role,omitempty"`
	PermissionID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uni_role_perm;index" json:"permission_id"`
	Permission   *Permission `gorm:"foreignKey:PermissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"permission,omitempty"`
}

func (RolePermission) TableName() string {
	return "roles_permisos"
}

func (rp *RolePermission) BeforeCreate(tx *gorm.DB) error {
	if rp.ID == uuid.Nil {
		rp.ID = uuid.New()
	}
	return nil
}
