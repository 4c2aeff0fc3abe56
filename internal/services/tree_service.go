package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/models"
	apperrors "github.com/hadbitapp/hadbit-server/pkg/errors"
	"github.com/hadbitapp/hadbit-server/pkg/metrics"
)

// TreeService maintains the per-owner two-level habit tree: one edge per item,
// siblings totally ordered by order_no. All mutations run inside a
// transaction with the sibling bucket locked, so concurrent edits on the same
// (owner, parent) bucket serialize instead of double-allocating order slots.
type TreeService struct {
	db *gorm.DB
}

// NewTreeService constructs a tree service.
func NewTreeService(db *gorm.DB) (*TreeService, error) {
	if db == nil {
		return nil, errors.New("tree service: db is required")
	}
	return &TreeService{db: db}, nil
}

// ItemSummary is the per-item projection used in tree views.
type ItemSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	ShortName   string `json:"short_name"`
	Description string `json:"description"`
	OrderNo     int    `json:"order_no"`
}

// TreeNode is one top-level category with its ordered children.
type TreeNode struct {
	Item     ItemSummary   `json:"item"`
	Children []ItemSummary `json:"children"`
}

// MaxOrder returns the highest order_no among direct children of parentID,
// or 0 when the bucket is empty. Callers computing the next trailing slot as
// MaxOrder+1 must do so inside a transaction that locks the bucket; the
// service's own mutations already do.
func (s *TreeService) MaxOrder(ctx context.Context, owner string, parentID uint) (int, error) {
	ctx = ensureContext(ctx)
	return maxOrder(s.db.WithContext(ctx), owner, parentID)
}

func maxOrder(tx *gorm.DB, owner string, parentID uint) (int, error) {
	var current sql.NullInt64
	err := tx.Model(&models.HabitTreeEdge{}).
		Where("owner_id = ? AND parent_id = ?", owner, parentID).
		Select("MAX(order_no)").
		Scan(&current).Error
	if err != nil {
		return 0, fmt.Errorf("tree service: max order: %w", err)
	}
	if !current.Valid {
		return 0, nil
	}
	return int(current.Int64), nil
}

// CreateEdge inserts the tree position for an item. The order slot must have
// been computed by the caller, inside the same transaction as the MaxOrder
// read when concurrent creations are possible.
func (s *TreeService) CreateEdge(ctx context.Context, owner string, itemID, parentID uint, orderNo int) error {
	ctx = ensureContext(ctx)
	edge := models.HabitTreeEdge{
		ItemID:   itemID,
		OwnerID:  owner,
		ParentID: parentID,
		OrderNo:  orderNo,
	}
	if err := s.db.WithContext(ctx).Create(&edge).Error; err != nil {
		return fmt.Errorf("tree service: create edge: %w", err)
	}
	metrics.TreeMutations.WithLabelValues("create").Inc()
	return nil
}

// MoveUp swaps the item's order slot with its nearest preceding sibling.
// Already-first items and rows not owned by the caller are silent no-ops.
func (s *TreeService) MoveUp(ctx context.Context, owner string, itemID uint) error {
	return s.moveStep(ensureContext(ctx), owner, itemID, "move_up")
}

// MoveDown swaps the item's order slot with its nearest following sibling.
// Already-last items and rows not owned by the caller are silent no-ops.
func (s *TreeService) MoveDown(ctx context.Context, owner string, itemID uint) error {
	return s.moveStep(ensureContext(ctx), owner, itemID, "move_down")
}

func (s *TreeService) moveStep(ctx context.Context, owner string, itemID uint, direction string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.HabitTreeEdge
		err := lockForUpdate(tx).Where("owner_id = ? AND item_id = ?", owner, itemID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		neighbourQuery := lockForUpdate(tx).Where("owner_id = ? AND parent_id = ?", owner, current.ParentID)
		if direction == "move_up" {
			neighbourQuery = neighbourQuery.Where("order_no < ?", current.OrderNo).Order("order_no DESC")
		} else {
			neighbourQuery = neighbourQuery.Where("order_no > ?", current.OrderNo).Order("order_no ASC")
		}

		var neighbour models.HabitTreeEdge
		err = neighbourQuery.First(&neighbour).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // already at the boundary
		}
		if err != nil {
			return err
		}

		if err := swapOrder(tx, owner, current.ItemID, neighbour.OrderNo); err != nil {
			return err
		}
		if err := swapOrder(tx, owner, neighbour.ItemID, current.OrderNo); err != nil {
			return err
		}

		metrics.TreeMutations.WithLabelValues(direction).Inc()
		return nil
	})
	if err != nil {
		return fmt.Errorf("tree service: %s: %w", direction, err)
	}
	return nil
}

func swapOrder(tx *gorm.DB, owner string, itemID uint, orderNo int) error {
	return tx.Model(&models.HabitTreeEdge{}).
		Where("owner_id = ? AND item_id = ?", owner, itemID).
		Update("order_no", orderNo).Error
}

// Reparent moves an item under a different parent, appending it as the new
// trailing sibling. The old sibling set keeps its order values untouched.
// A matching current parent is a no-op; a missing item is a silent no-op;
// a destination parent that does not belong to the owner is NotFound.
func (s *TreeService) Reparent(ctx context.Context, owner string, itemID, newParentID uint) error {
	ctx = ensureContext(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return reparent(tx, owner, itemID, newParentID)
	})
	if err != nil {
		return fmt.Errorf("tree service: reparent: %w", err)
	}
	return nil
}

func reparent(tx *gorm.DB, owner string, itemID, newParentID uint) error {
	var current models.HabitTreeEdge
	err := lockForUpdate(tx).Where("owner_id = ? AND item_id = ?", owner, itemID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if current.ParentID == newParentID {
		return nil
	}

	if newParentID != models.RootParentID {
		if newParentID == itemID {
			return apperrors.NewBadRequest("item cannot be its own parent")
		}
		if err := ensureTopLevelParent(tx, owner, newParentID); err != nil {
			return err
		}
	}

	highest, err := maxOrder(lockForUpdate(tx), owner, newParentID)
	if err != nil {
		return err
	}

	err = tx.Model(&models.HabitTreeEdge{}).
		Where("owner_id = ? AND item_id = ?", owner, itemID).
		Updates(map[string]any{
			"parent_id": newParentID,
			"order_no":  highest + 1,
		}).Error
	if err != nil {
		return err
	}

	metrics.TreeMutations.WithLabelValues("reparent").Inc()
	return nil
}

// ensureTopLevelParent verifies the destination parent exists for the owner
// and sits at the top level. The tree is fixed at two tiers; hanging an item
// under another child would silently open a third.
func ensureTopLevelParent(tx *gorm.DB, owner string, parentID uint) error {
	var edge models.HabitTreeEdge
	err := tx.Where("owner_id = ? AND item_id = ?", owner, parentID).First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound.WithMessage("destination parent not found")
	}
	if err != nil {
		return err
	}
	if edge.ParentID != models.RootParentID {
		return apperrors.NewBadRequest("destination parent must be a top-level item")
	}
	return nil
}

// Reorder rewrites the order slots of the given items to match the sequence
// of ids, starting at 1. Ids not owned by the caller are skipped silently.
func (s *TreeService) Reorder(ctx context.Context, owner string, itemIDs []uint) error {
	ctx = ensureContext(ctx)
	if len(itemIDs) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for idx, itemID := range itemIDs {
			err := tx.Model(&models.HabitTreeEdge{}).
				Where("owner_id = ? AND item_id = ?", owner, itemID).
				Update("order_no", idx+1).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tree service: reorder: %w", err)
	}

	metrics.TreeMutations.WithLabelValues("reorder").Inc()
	return nil
}

type treeRow struct {
	ItemID      uint
	ParentID    uint
	OrderNo     int
	Name        string
	ShortName   string
	Description string
}

// ListTree returns the owner's top-level categories in sibling order, each
// with its non-deleted children in sibling order. Categories with no
// surviving children are included with an empty child list.
func (s *TreeService) ListTree(ctx context.Context, owner string) ([]TreeNode, error) {
	ctx = ensureContext(ctx)

	var rows []treeRow
	err := s.db.WithContext(ctx).
		Table("hadbit_trees AS t").
		Select("t.item_id, t.parent_id, t.order_no, i.name, i.short_name, i.description").
		Joins("INNER JOIN hadbit_items AS i ON i.id = t.item_id AND i.owner_id = t.owner_id").
		Where("t.owner_id = ? AND i.is_deleted = ?", owner, false).
		Order("t.order_no ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tree service: list tree: %w", err)
	}

	childrenByParent := make(map[uint][]ItemSummary)
	var parents []ItemSummary
	for _, row := range rows {
		summary := ItemSummary{
			ID:          row.ItemID,
			Name:        row.Name,
			ShortName:   row.ShortName,
			Description: row.Description,
			OrderNo:     row.OrderNo,
		}
		if row.ParentID == models.RootParentID {
			parents = append(parents, summary)
			continue
		}
		childrenByParent[row.ParentID] = append(childrenByParent[row.ParentID], summary)
	}

	nodes := make([]TreeNode, 0, len(parents))
	for _, parent := range parents {
		children := childrenByParent[parent.ID]
		if children == nil {
			children = []ItemSummary{}
		}
		nodes = append(nodes, TreeNode{Item: parent, Children: children})
	}
	return nodes, nil
}

// ListParents returns the owner's non-deleted top-level items in sibling
// order, for category pickers.
func (s *TreeService) ListParents(ctx context.Context, owner string) ([]ItemSummary, error) {
	ctx = ensureContext(ctx)

	var rows []treeRow
	err := s.db.WithContext(ctx).
		Table("hadbit_trees AS t").
		Select("t.item_id, t.parent_id, t.order_no, i.name, i.short_name, i.description").
		Joins("INNER JOIN hadbit_items AS i ON i.id = t.item_id AND i.owner_id = t.owner_id").
		Where("t.owner_id = ? AND t.parent_id = ? AND i.is_deleted = ?", owner, models.RootParentID, false).
		Order("t.order_no ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tree service: list parents: %w", err)
	}

	parents := make([]ItemSummary, 0, len(rows))
	for _, row := range rows {
		parents = append(parents, ItemSummary{
			ID:          row.ItemID,
			Name:        row.Name,
			ShortName:   row.ShortName,
			Description: row.Description,
			OrderNo:     row.OrderNo,
		})
	}
	return parents, nil
}
