package models

import (
	"time"

	"gorm.io/datatypes"
)

// HabitItem is a single habit definition owned by one user. Items are
// soft-deleted: IsDeleted hides them from tree views without breaking the
// log history that references them.
type HabitItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerID     string         `gorm:"type:uuid;index;not null" json:"owner_id"`
	Name        string         `gorm:"not null" json:"name"`
	ShortName   string         `json:"short_name"`
	Description string         `json:"description"`
	ItemStyle   datatypes.JSON `json:"item_style,omitempty"`
	IsDeleted   bool           `gorm:"default:false;index" json:"is_deleted"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName keeps the schema aligned with the hadbit naming convention.
func (HabitItem) TableName() string { return "hadbit_items" }
