package model

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is the bank's client record a system user may represent
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GivenName string    `gorm:"column:nombres;type:varchar(200);not null" json:"nombres"`
	Surname   string    `gorm:"column:apellidos;type:varchar(200);not null" json:"apellidos"`
}

func (Client) TableName() string {
	return "clientes"
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c Client) FullName() string {
	return strings.TrimSpace(c.GivenName + " " + c.Surname)
}
