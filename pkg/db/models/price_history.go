package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// PriceHistoryEntry is an append-only audit of wholesale price and MOQ changes.
type PriceHistoryEntry struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	Field         enums.PriceHistoryField `gorm:"column:field;not null"`
	PreviousValue string                  `gorm:"column:previous_value;not null"`
	NewValue      string                  `gorm:"column:new_value;not null"`
	ChangedBy     *uuid.UUID              `gorm:"column:changed_by;type:uuid"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (PriceHistoryEntry) TableName() string {
	return "product_price_history"
}
