package models

// RootParentID is the sentinel parent for top-level (category) items.
const RootParentID uint = 0

// HabitTreeEdge pins an item into the two-level habit tree. Every item owns
// exactly one edge, created together with the item. ParentID is either
// RootParentID or the id of another item belonging to the same owner.
// OrderNo is a sortable rank among siblings, not a dense index.
type HabitTreeEdge struct {
	ItemID   uint   `gorm:"primaryKey;autoIncrement:false" json:"item_id"`
	OwnerID  string `gorm:"type:uuid;index;not null" json:"owner_id"`
	ParentID uint   `gorm:"index;default:0" json:"parent_id"`
	OrderNo  int    `gorm:"not null" json:"order_no"`
}

// TableName keeps the schema aligned with the hadbit naming convention.
func (HabitTreeEdge) TableName() string { return "hadbit_trees" }
