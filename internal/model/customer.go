package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerRole is the role of an end-user identity of the online banking site
type CustomerRole string

const (
	CustomerRoleAdmin    CustomerRole = "admin"
	CustomerRoleClient   CustomerRole = "cliente"
	CustomerRoleEmployee CustomerRole = "empleado"
)

func (r CustomerRole) IsValid() bool {
	return r == CustomerRoleAdmin || r == CustomerRoleClient || r == CustomerRoleEmployee
}

func (r CustomerRole) Label() string {
	switch r {
	case CustomerRoleAdmin:
		return "Administrador"
	case CustomerRoleClient:
		return "Cliente"
	case CustomerRoleEmployee:
		return "Empleado del Banco"
	}
	return string(r)
}

// PhonePattern accepts an optional "+", optional leading 1 and 9 to 15 digits
var PhonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// Customer is the email-login identity of the public site
type Customer struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string       `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string       `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Password     string       `gorm:"type:varchar(255);not null" json:"-"`
	FirstName    string       `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string       `gorm:"type:varchar(150)" json:"last_name"`
	Role         CustomerRole `gorm:"type:varchar(20);not null" json:"role"`
	Phone        string       `gorm:"type:varchar(17)" json:"phone"`
	BirthDate    *time.Time   `gorm:"type:date" json:"birth_date"`
	Address      string       `gorm:"type:text" json:"address"`
	IsActive     bool         `gorm:"not null" json:"is_active"`
	IsStaff      bool         `gorm:"not null" json:"is_staff"`
	IsSuperuser  bool         `gorm:"not null" json:"is_superuser"`
	RegisteredAt time.Time    `gorm:"index" json:"registered_at"`
	LastAccessAt *time.Time   `json:"last_access_at"`
	Profile      *UserProfile `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"profile,omitempty"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.RegisteredAt = time.Now()
	return nil
}

// BeforeSave keeps the staff/superuser flags in line with the role
func (c *Customer) BeforeSave(tx *gorm.DB) error {
	admin := c.Role == CustomerRoleAdmin
	c.IsStaff, c.IsSuperuser = admin, admin
	return nil
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Customer) String() string {
	return c.FullName() + " (" + c.Email + ")"
}

func (c *Customer) IsAdmin() bool    { return c.Role == CustomerRoleAdmin }
func (c *Customer) IsClient() bool   { return c.Role == CustomerRoleClient }
func (c *Customer) IsEmployee() bool { return c.Role == CustomerRoleEmployee }

// RoleBadgeClass is the css class templates use for the role
func (c *Customer) RoleBadgeClass() string {
	switch c.Role {
	case CustomerRoleAdmin:
		return "bg-danger"
	case CustomerRoleEmployee:
		return "bg-primary"
	case CustomerRoleClient:
		return "bg-success"
	}
	return "bg-secondary"
}

// ClientNumberLength is the number of digits of a generated client number
const ClientNumberLength = 10

// UserProfile extends a customer with banking data; created together with the customer
type UserProfile struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID    uuid.UUID           `gorm:"type:uuid;uniqueIndex;not null" json:"customer_id"`
	ClientNumber  *string             `gorm:"type:varchar(20);uniqueIndex" json:"client_number"`
	NationalID    *string             `gorm:"type:varchar(20);uniqueIndex" json:"national_id"`
	Profession    string              `gorm:"type:varchar(100)" json:"profession"`
	MonthlyIncome decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"monthly_income"`
	NotifyEmail   bool                `gorm:"not null" json:"notify_email"`
	NotifySMS     bool                `gorm:"not null" json:"notify_sms"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
