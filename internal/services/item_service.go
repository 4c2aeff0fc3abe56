package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/models"
	apperrors "github.com/hadbitapp/hadbit-server/pkg/errors"
)

// ItemService manages habit item definitions and their lifecycle. Every item
// is created together with its tree edge so the two never drift apart.
type ItemService struct {
	db   *gorm.DB
	tree *TreeService
}

// NewItemService constructs an item service.
func NewItemService(db *gorm.DB, tree *TreeService) (*ItemService, error) {
	if db == nil {
		return nil, errors.New("item service: db is required")
	}
	if tree == nil {
		var err error
		tree, err = NewTreeService(db)
		if err != nil {
			return nil, err
		}
	}
	return &ItemService{db: db, tree: tree}, nil
}

// ItemInput describes item create/update payloads.
type ItemInput struct {
	Name        string
	ShortName   string
	Description string
	ItemStyle   datatypes.JSON
	ParentID    *uint
}

// ItemDTO is the item projection returned to callers, including the item's
// current tree position.
type ItemDTO struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	ShortName   string         `json:"short_name"`
	Description string         `json:"description"`
	ItemStyle   datatypes.JSON `json:"item_style,omitempty"`
	IsDeleted   bool           `json:"is_deleted"`
	ParentID    uint           `json:"parent_id"`
	ParentName  string         `json:"parent_name,omitempty"`
	OrderNo     int            `json:"order_no"`
}

// Create inserts a new item and appends it to the trailing order slot of the
// requested parent bucket (top level when ParentID is absent). Item and edge
// are written in one transaction so the max-order read cannot race another
// creation in the same bucket.
func (s *ItemService) Create(ctx context.Context, owner string, input ItemInput) (*ItemDTO, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("item name is required")
	}

	parentID := models.RootParentID
	if input.ParentID != nil {
		parentID = *input.ParentID
	}

	item := models.HabitItem{
		OwnerID:     owner,
		Name:        name,
		ShortName:   strings.TrimSpace(input.ShortName),
		Description: input.Description,
		ItemStyle:   input.ItemStyle,
	}

	var orderNo int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if parentID != models.RootParentID {
			var count int64
			if err := tx.Model(&models.HabitItem{}).
				Where("id = ? AND owner_id = ? AND is_deleted = ?", parentID, owner, false).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperrors.ErrNotFound.WithMessage("parent item not found")
			}
			if err := ensureTopLevelParent(tx, owner, parentID); err != nil {
				return err
			}
		}

		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		highest, err := maxOrder(lockForUpdate(tx), owner, parentID)
		if err != nil {
			return err
		}
		orderNo = highest + 1

		return tx.Create(&models.HabitTreeEdge{
			ItemID:   item.ID,
			OwnerID:  owner,
			ParentID: parentID,
			OrderNo:  orderNo,
		}).Error
	})
	if err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("item service: create: %w", err)
	}

	return &ItemDTO{
		ID:          item.ID,
		Name:        item.Name,
		ShortName:   item.ShortName,
		Description: item.Description,
		ItemStyle:   item.ItemStyle,
		ParentID:    parentID,
		OrderNo:     orderNo,
	}, nil
}

type itemDetailRow struct {
	ID          uint
	Name        string
	ShortName   string
	Description string
	ItemStyle   datatypes.JSON
	IsDeleted   bool
	ParentID    *uint
	ParentName  *string
	OrderNo     *int
}

// Get returns the item with its current parent resolved through the tree.
// Missing rows and rows belonging to other owners are both NotFound.
func (s *ItemService) Get(ctx context.Context, owner string, id uint) (*ItemDTO, error) {
	ctx = ensureContext(ctx)

	var row itemDetailRow
	err := s.db.WithContext(ctx).
		Table("hadbit_items AS i").
		Select("i.id, i.name, i.short_name, i.description, i.item_style, i.is_deleted, t.parent_id, t.order_no, p.name AS parent_name").
		Joins("LEFT JOIN hadbit_trees AS t ON t.item_id = i.id AND t.owner_id = i.owner_id").
		Joins("LEFT JOIN hadbit_items AS p ON p.id = t.parent_id AND p.owner_id = i.owner_id").
		Where("i.id = ? AND i.owner_id = ?", id, owner).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("item service: get: %w", err)
	}

	dto := &ItemDTO{
		ID:          row.ID,
		Name:        row.Name,
		ShortName:   row.ShortName,
		Description: row.Description,
		ItemStyle:   row.ItemStyle,
		IsDeleted:   row.IsDeleted,
	}
	if row.ParentID != nil {
		dto.ParentID = *row.ParentID
	}
	if row.ParentName != nil {
		dto.ParentName = *row.ParentName
	}
	if row.OrderNo != nil {
		dto.OrderNo = *row.OrderNo
	}
	return dto, nil
}

// Update overwrites the item's descriptive fields. When the input carries a
// parent different from the item's current one, the item is also reparented
// to the trailing slot of the new bucket, all in one transaction. Rows not
// owned by the caller are silent no-ops.
func (s *ItemService) Update(ctx context.Context, owner string, id uint, input ItemInput) error {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewBadRequest("item name is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"name":        name,
			"short_name":  strings.TrimSpace(input.ShortName),
			"description": input.Description,
		}
		if input.ItemStyle != nil {
			updates["item_style"] = input.ItemStyle
		}

		result := tx.Model(&models.HabitItem{}).
			Where("id = ? AND owner_id = ?", id, owner).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil // absent or foreign row, deliberately silent
		}

		if input.ParentID != nil {
			return reparent(tx, owner, id, *input.ParentID)
		}
		return nil
	})
	if err != nil {
		if appErr := asAppError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("item service: update: %w", err)
	}
	return nil
}

// SoftDelete flags the item as deleted without touching its tree edge or
// logs. Zero-row updates are silent.
func (s *ItemService) SoftDelete(ctx context.Context, owner string, id uint) error {
	return s.setDeleted(ensureContext(ctx), owner, id, true)
}

// Restore clears the deletion flag. Zero-row updates are silent.
func (s *ItemService) Restore(ctx context.Context, owner string, id uint) error {
	return s.setDeleted(ensureContext(ctx), owner, id, false)
}

func (s *ItemService) setDeleted(ctx context.Context, owner string, id uint, deleted bool) error {
	err := s.db.WithContext(ctx).Model(&models.HabitItem{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Update("is_deleted", deleted).Error
	if err != nil {
		return fmt.Errorf("item service: set deleted: %w", err)
	}
	return nil
}

func asAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
