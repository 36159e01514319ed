package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is a seller's storefront that receives released catalog entries.
type Store struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null;uniqueIndex:stores_owner_user_id_key"`
	Name        string    `gorm:"column:name;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
