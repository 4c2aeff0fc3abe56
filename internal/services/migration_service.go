package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/models"
	apperrors "github.com/hadbitapp/hadbit-server/pkg/errors"
	"github.com/hadbitapp/hadbit-server/pkg/logger"
	"github.com/hadbitapp/hadbit-server/pkg/metrics"
)

// MigrationService copies a user's entire legacy tree and log history into
// the current schema under their new identity. The legacy schema is keyed by
// an integer id resolved from the user's email; item ids differ across
// schemas, so parent/child links and log references are re-derived by
// matching item names. That only works when names are unique within the
// user's legacy item set, so Execute refuses to run when they are not.
type MigrationService struct {
	db  *gorm.DB
	log *zap.Logger

	// afterItems runs inside the migration transaction once items are copied.
	// Tests use it to force mid-sequence failures.
	afterItems func(tx *gorm.DB) error
}

// NewMigrationService constructs a migration service.
func NewMigrationService(db *gorm.DB) (*MigrationService, error) {
	if db == nil {
		return nil, errors.New("migration service: db is required")
	}
	return &MigrationService{db: db, log: logger.WithModule("migration")}, nil
}

// Preview describes what a migration run would read and destroy, without
// touching anything.
type Preview struct {
	TargetEmail  string `json:"target_email"`
	LegacyUserID int    `json:"legacy_user_id"`
	OwnerID      string `json:"owner_id"`
	LegacyItems  int64  `json:"legacy_items"`
	LegacyLogs   int64  `json:"legacy_logs"`
	CurrentItems int64  `json:"current_items"`
	CurrentLogs  int64  `json:"current_logs"`
}

// Receipt reports the final state after a successful migration.
type Receipt struct {
	ItemsCount int64 `json:"items_count"`
	LogsCount  int64 `json:"logs_count"`
}

func resolveLegacyID(tx *gorm.DB, email string) (int, error) {
	var identity models.LegacyIdentity
	err := tx.Where("mail = ?", email).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.ErrNotFound.WithMessage(fmt.Sprintf("no legacy identity for %s", email))
	}
	if err != nil {
		return 0, err
	}
	return identity.ID, nil
}

// Preview computes read-only counts for the confirmation step. NotFound when
// the email has no legacy identity mapping.
func (s *MigrationService) Preview(ctx context.Context, owner, email string) (*Preview, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	legacyID, err := resolveLegacyID(db, email)
	if err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("migration service: preview: %w", err)
	}

	preview := &Preview{
		TargetEmail:  email,
		LegacyUserID: legacyID,
		OwnerID:      owner,
	}

	counts := []struct {
		dest  *int64
		model any
		where string
		arg   any
	}{
		{&preview.LegacyItems, &models.LegacyItem{}, "user_id = ?", legacyID},
		{&preview.LegacyLogs, &models.LegacyLog{}, "user_id = ?", legacyID},
		{&preview.CurrentItems, &models.HabitItem{}, "owner_id = ?", owner},
		{&preview.CurrentLogs, &models.HabitLog{}, "owner_id = ?", owner},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.arg).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("migration service: preview: %w", err)
		}
	}

	return preview, nil
}

// Execute runs the migration as a single transaction: wipe the owner's
// current data, copy legacy items in legacy-id order, rebuild tree edges and
// logs through the name map, normalising legacy NULL parents to the root
// sentinel. Any failure rolls the whole run back. Re-running after success
// reproduces the same final counts under fresh row ids.
func (s *MigrationService) Execute(ctx context.Context, owner, email string) (*Receipt, error) {
	ctx = ensureContext(ctx)

	var receipt Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		legacyID, err := resolveLegacyID(tx, email)
		if err != nil {
			return err
		}

		if err := s.checkNameCollisions(tx, legacyID); err != nil {
			return err
		}

		for _, model := range []any{&models.HabitLog{}, &models.HabitTreeEdge{}, &models.HabitItem{}} {
			if err := tx.Where("owner_id = ?", owner).Delete(model).Error; err != nil {
				return err
			}
		}

		nameToID, legacyItems, err := s.copyItems(tx, owner, legacyID)
		if err != nil {
			return err
		}

		if s.afterItems != nil {
			if err := s.afterItems(tx); err != nil {
				return err
			}
		}

		if err := s.copyEdges(tx, owner, legacyItems, nameToID); err != nil {
			return err
		}

		if err := s.copyLogs(tx, owner, legacyID, legacyItems, nameToID); err != nil {
			return err
		}

		if err := tx.Model(&models.HabitItem{}).Where("owner_id = ?", owner).Count(&receipt.ItemsCount).Error; err != nil {
			return err
		}
		return tx.Model(&models.HabitLog{}).Where("owner_id = ?", owner).Count(&receipt.LogsCount).Error
	})
	if err != nil {
		metrics.MigrationRuns.WithLabelValues("failure").Inc()
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("migration service: execute: %w", err)
	}

	metrics.MigrationRuns.WithLabelValues("success").Inc()
	s.log.Info("legacy migration complete",
		zap.String("owner_id", owner),
		zap.Int64("items", receipt.ItemsCount),
		zap.Int64("logs", receipt.LogsCount),
	)
	return &receipt, nil
}

// checkNameCollisions aborts the run when the legacy item set contains
// duplicate names. The name join is the only available key, and a collision
// would silently attach children and logs to the wrong item.
func (s *MigrationService) checkNameCollisions(tx *gorm.DB, legacyID int) error {
	var duplicates []struct {
		Name  string
		Count int64
	}
	err := tx.Model(&models.LegacyItem{}).
		Select("name, COUNT(*) AS count").
		Where("user_id = ?", legacyID).
		Group("name").
		Having("COUNT(*) > 1").
		Scan(&duplicates).Error
	if err != nil {
		return err
	}
	if len(duplicates) == 0 {
		return nil
	}

	var combined error
	for _, dup := range duplicates {
		combined = multierr.Append(combined, fmt.Errorf("item name %q appears %d times", dup.Name, dup.Count))
	}
	s.log.Warn("aborting migration on duplicate legacy item names",
		zap.Int("legacy_user_id", legacyID),
		zap.Error(combined),
	)
	return apperrors.ErrIntegrityRisk.WithInternal(combined)
}

func (s *MigrationService) copyItems(tx *gorm.DB, owner string, legacyID int) (map[string]uint, []models.LegacyItem, error) {
	var legacyItems []models.LegacyItem
	err := tx.Where("user_id = ?", legacyID).Order("id ASC").Find(&legacyItems).Error
	if err != nil {
		return nil, nil, err
	}

	nameToID := make(map[string]uint, len(legacyItems))
	for _, legacy := range legacyItems {
		item := models.HabitItem{
			OwnerID:     owner,
			Name:        legacy.Name,
			ShortName:   legacy.ShortName,
			Description: legacy.Description,
			ItemStyle:   legacy.ItemStyle,
			IsDeleted:   legacy.DeleteFlag,
			CreatedAt:   legacy.CreatedAt,
			UpdatedAt:   legacy.UpdatedAt,
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, nil, err
		}
		nameToID[legacy.Name] = item.ID
	}
	return nameToID, legacyItems, nil
}

func (s *MigrationService) copyEdges(tx *gorm.DB, owner string, legacyItems []models.LegacyItem, nameToID map[string]uint) error {
	if len(legacyItems) == 0 {
		return nil
	}

	byLegacyID := make(map[int]models.LegacyItem, len(legacyItems))
	ids := make([]int, 0, len(legacyItems))
	for _, item := range legacyItems {
		byLegacyID[item.ID] = item
		ids = append(ids, item.ID)
	}

	var legacyEdges []models.LegacyTreeEdge
	if err := tx.Where("item_id IN ?", ids).Find(&legacyEdges).Error; err != nil {
		return err
	}

	for _, edge := range legacyEdges {
		child, ok := byLegacyID[edge.ItemID]
		if !ok {
			continue
		}
		newChildID, ok := nameToID[child.Name]
		if !ok {
			continue
		}

		// Legacy roots use NULL parents; unresolvable parents also fall
		// back to the root sentinel, matching the legacy normalisation pass.
		newParentID := models.RootParentID
		if edge.ParentID != nil && *edge.ParentID != 0 {
			if parent, ok := byLegacyID[*edge.ParentID]; ok {
				if mapped, ok := nameToID[parent.Name]; ok {
					newParentID = mapped
				}
			}
		}

		err := tx.Create(&models.HabitTreeEdge{
			ItemID:   newChildID,
			OwnerID:  owner,
			ParentID: newParentID,
			OrderNo:  edge.OrderNo,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MigrationService) copyLogs(tx *gorm.DB, owner string, legacyID int, legacyItems []models.LegacyItem, nameToID map[string]uint) error {
	byLegacyID := make(map[int]models.LegacyItem, len(legacyItems))
	for _, item := range legacyItems {
		byLegacyID[item.ID] = item
	}

	var legacyLogs []models.LegacyLog
	if err := tx.Where("user_id = ?", legacyID).Order("id ASC").Find(&legacyLogs).Error; err != nil {
		return err
	}

	for _, legacy := range legacyLogs {
		item, ok := byLegacyID[legacy.ItemID]
		if !ok {
			continue // log references an item outside the user's set
		}
		newItemID, ok := nameToID[item.Name]
		if !ok {
			continue
		}

		err := tx.Create(&models.HabitLog{
			OwnerID:   owner,
			ItemID:    newItemID,
			DoneAt:    legacy.DoneAt,
			Comment:   legacy.Comment,
			CreatedAt: legacy.CreatedAt,
			UpdatedAt: legacy.UpdatedAt,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}
