package models

import (
	"time"

	"github.com/google/uuid"
)

type Supplier struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	ContactEmail *string   `gorm:"column:contact_email"`
	ContactPhone *string   `gorm:"column:contact_phone"`
	Country      *string   `gorm:"column:country"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
