package models

import "time"

// HabitLog is a dated record against a habit item. Multiple logs per item
// per day are allowed. Logs are hard-deleted on request; soft-deleting the
// referenced item leaves its logs retrievable by id.
type HabitLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:uuid;index;not null" json:"owner_id"`
	ItemID    uint      `gorm:"index;not null" json:"item_id"`
	DoneAt    time.Time `gorm:"index;not null" json:"done_at"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the schema aligned with the hadbit naming convention.
func (HabitLog) TableName() string { return "hadbit_logs" }
