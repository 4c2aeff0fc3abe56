package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/models"
	apperrors "github.com/hadbitapp/hadbit-server/pkg/errors"
)

// defaultLogWindow is the trailing period returned by List when the caller
// gives no explicit bounds.
const defaultLogWindow = 365 * 24 * time.Hour

// LogService manages dated habit records. Logs reference items but survive
// item soft-deletion; they are removed only by an explicit Delete.
type LogService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLogService constructs a log service.
func NewLogService(db *gorm.DB) (*LogService, error) {
	if db == nil {
		return nil, errors.New("log service: db is required")
	}
	return &LogService{db: db, now: time.Now}, nil
}

// LogDTO is a log row joined with its item and the item's parent category.
type LogDTO struct {
	ID              uint      `json:"id"`
	DoneAt          time.Time `json:"done_at"`
	Comment         string    `json:"comment"`
	ItemID          uint      `json:"item_id"`
	ItemName        string    `json:"item_name"`
	ItemShortName   string    `json:"item_short_name"`
	ParentItemID    uint      `json:"parent_item_id"`
	ParentName      string    `json:"parent_name"`
	ParentShortName string    `json:"parent_short_name"`
}

// DeletedLog carries the removed row's fields back to the caller so an undo
// can recreate an equivalent entry. The recreate gets a fresh id.
type DeletedLog struct {
	ItemID  uint      `json:"item_id"`
	DoneAt  time.Time `json:"done_at"`
	Comment string    `json:"comment"`
}

// Create inserts a new log entry. Multiple entries per item per day are
// allowed. The referenced item must exist and belong to the owner.
func (s *LogService) Create(ctx context.Context, owner string, itemID uint, doneAt time.Time, comment string) (uint, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.HabitItem{}).
		Where("id = ? AND owner_id = ?", itemID, owner).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("log service: create: %w", err)
	}
	if count == 0 {
		return 0, apperrors.ErrNotFound.WithMessage("habit item not found")
	}

	log := models.HabitLog{
		OwnerID: owner,
		ItemID:  itemID,
		DoneAt:  doneAt,
		Comment: comment,
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return 0, fmt.Errorf("log service: create: %w", err)
	}
	return log.ID, nil
}

const logJoinSelect = `logs.id, logs.done_at, logs.comment, logs.item_id,
citem.name AS item_name, citem.short_name AS item_short_name,
pitem.id AS parent_item_id, pitem.name AS parent_name, pitem.short_name AS parent_short_name`

func (s *LogService) joined(ctx context.Context, owner string) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("hadbit_logs AS logs").
		Select(logJoinSelect).
		Joins("INNER JOIN hadbit_items AS citem ON citem.id = logs.item_id AND citem.owner_id = logs.owner_id").
		Joins("INNER JOIN hadbit_trees AS tree ON tree.item_id = logs.item_id AND tree.owner_id = logs.owner_id").
		Joins("INNER JOIN hadbit_items AS pitem ON pitem.id = tree.parent_id AND pitem.owner_id = logs.owner_id").
		Where("logs.owner_id = ?", owner)
}

// Get returns the log joined with its item and the item's parent for display.
// Inner-join semantics: a log whose item has no tree edge or sits at the top
// level is not reachable through this view.
func (s *LogService) Get(ctx context.Context, owner string, id uint) (*LogDTO, error) {
	ctx = ensureContext(ctx)

	var row LogDTO
	err := s.joined(ctx, owner).Where("logs.id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("log service: get: %w", err)
	}
	return &row, nil
}

// List returns logs in the [start, end] window joined like Get, newest first.
// Omitted bounds default to the trailing 365 days through the end of today.
func (s *LogService) List(ctx context.Context, owner string, start, end *time.Time) ([]LogDTO, error) {
	ctx = ensureContext(ctx)

	now := s.now()
	// Default bounds cover whole days: 365 days back at midnight through the
	// end of today, so entries on the boundary days are never clipped.
	from := now.Add(-defaultLogWindow)
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	if start != nil {
		from = *start
	}
	until := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	if end != nil {
		until = *end
	}

	var rows []LogDTO
	err := s.joined(ctx, owner).
		Where("logs.done_at BETWEEN ? AND ?", from, until).
		Order("logs.done_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("log service: list: %w", err)
	}
	return rows, nil
}

// Update overwrites the log's timestamp and memo. Rows not owned by the
// caller are silent no-ops.
func (s *LogService) Update(ctx context.Context, owner string, id uint, doneAt time.Time, comment string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Model(&models.HabitLog{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Updates(map[string]any{
			"done_at": doneAt,
			"comment": comment,
		}).Error
	if err != nil {
		return fmt.Errorf("log service: update: %w", err)
	}
	return nil
}

// UpdateMemo overwrites only the memo. Rows not owned by the caller are
// silent no-ops.
func (s *LogService) UpdateMemo(ctx context.Context, owner string, id uint, memo string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Model(&models.HabitLog{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Update("comment", memo).Error
	if err != nil {
		return fmt.Errorf("log service: update memo: %w", err)
	}
	return nil
}

// Delete removes the log and returns its prior fields for the caller's undo
// affordance. Absent rows and rows of other owners are both NotFound.
func (s *LogService) Delete(ctx context.Context, owner string, id uint) (*DeletedLog, error) {
	ctx = ensureContext(ctx)

	var deleted *DeletedLog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var log models.HabitLog
		err := tx.Where("id = ? AND owner_id = ?", id, owner).First(&log).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("id = ? AND owner_id = ?", id, owner).Delete(&models.HabitLog{}).Error; err != nil {
			return err
		}

		deleted = &DeletedLog{
			ItemID:  log.ItemID,
			DoneAt:  log.DoneAt,
			Comment: log.Comment,
		}
		return nil
	})
	if err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("log service: delete: %w", err)
	}
	return deleted, nil
}
