package models

import (
	"time"

	"gorm.io/datatypes"
)

// The legacy schema predates the UUID identity system: users are keyed by an
// integer id resolved from their email address, and tree edges use NULL (not
// the 0 sentinel) for root items. These models are read-only inputs to the
// migration engine.

// LegacyIdentity maps a user's email to their legacy integer id.
type LegacyIdentity struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Mail string `gorm:"uniqueIndex;not null" json:"mail"`
}

// TableName matches the historical lookup table.
func (LegacyIdentity) TableName() string { return "mail_to_id" }

// LegacyItem is a habit definition in the legacy schema.
type LegacyItem struct {
	ID          int            `gorm:"primaryKey" json:"id"`
	UserID      int            `gorm:"index;not null" json:"user_id"`
	Name        string         `gorm:"not null" json:"name"`
	ShortName   string         `json:"short_name"`
	Description string         `json:"description"`
	ItemStyle   datatypes.JSON `json:"item_style,omitempty"`
	DeleteFlag  bool           `gorm:"default:false" json:"delete_flag"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName matches the historical items table.
func (LegacyItem) TableName() string { return "habit_items" }

// LegacyTreeEdge is a tree position in the legacy schema. ParentID is nil
// for root items.
type LegacyTreeEdge struct {
	ItemID   int  `gorm:"primaryKey;autoIncrement:false" json:"item_id"`
	ParentID *int `gorm:"index" json:"parent_id"`
	OrderNo  int  `json:"order_no"`
}

// TableName matches the historical tree table.
func (LegacyTreeEdge) TableName() string { return "habit_item_tree" }

// LegacyLog is a dated habit record in the legacy schema.
type LegacyLog struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"index;not null" json:"user_id"`
	ItemID    int       `gorm:"index;not null" json:"item_id"`
	DoneAt    time.Time `json:"done_at"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName matches the historical logs table.
func (LegacyLog) TableName() string { return "habit_logs" }
