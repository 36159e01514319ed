package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the arbitrary-depth catalog tree.
type Category struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string     `gorm:"column:name;not null"`
	Slug            string     `gorm:"column:slug;not null;uniqueIndex:categories_slug_key"`
	ParentID        *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	IsVisiblePublic bool       `gorm:"column:is_visible_public;not null"`
	SortOrder       int        `gorm:"column:sort_order;not null;default:0"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}
