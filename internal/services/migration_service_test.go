package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/database/testutil"
	"github.com/hadbitapp/hadbit-server/internal/models"
	apperrors "github.com/hadbitapp/hadbit-server/pkg/errors"
)

const legacyEmail = "user@example.com"

func intPtr(v int) *int { return &v }

// seedLegacyData creates a legacy user with two categories, two children and
// three logs:
//
//	Health (id 10, order 1)
//	  Run  (id 11, order 1) — 2 logs
//	Study  (id 20, order 2)
//	  Read (id 21, order 1) — 1 log
func seedLegacyData(t *testing.T, db *gorm.DB) int {
	t.Helper()

	const legacyUserID = 7
	require.NoError(t, db.Create(&models.LegacyIdentity{ID: legacyUserID, Mail: legacyEmail}).Error)

	created := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	items := []models.LegacyItem{
		{ID: 10, UserID: legacyUserID, Name: "Health", ShortName: "hp", CreatedAt: created, UpdatedAt: created},
		{ID: 11, UserID: legacyUserID, Name: "Run", ShortName: "run", CreatedAt: created, UpdatedAt: created},
		{ID: 20, UserID: legacyUserID, Name: "Study", CreatedAt: created, UpdatedAt: created},
		{ID: 21, UserID: legacyUserID, Name: "Read", DeleteFlag: true, CreatedAt: created, UpdatedAt: created},
	}
	for i := range items {
		require.NoError(t, db.Create(&items[i]).Error)
	}

	edges := []models.LegacyTreeEdge{
		{ItemID: 10, ParentID: nil, OrderNo: 1},
		{ItemID: 11, ParentID: intPtr(10), OrderNo: 1},
		{ItemID: 20, ParentID: nil, OrderNo: 2},
		{ItemID: 21, ParentID: intPtr(20), OrderNo: 1},
	}
	for i := range edges {
		require.NoError(t, db.Create(&edges[i]).Error)
	}

	logs := []models.LegacyLog{
		{ID: 100, UserID: legacyUserID, ItemID: 11, DoneAt: created.AddDate(0, 1, 0), Comment: "first run"},
		{ID: 101, UserID: legacyUserID, ItemID: 11, DoneAt: created.AddDate(0, 2, 0), Comment: "second run"},
		{ID: 102, UserID: legacyUserID, ItemID: 21, DoneAt: created.AddDate(0, 3, 0), Comment: "finished a chapter"},
	}
	for i := range logs {
		require.NoError(t, db.Create(&logs[i]).Error)
	}

	return legacyUserID
}

func newMigrationFixture(t *testing.T) (*gorm.DB, *MigrationService, string) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	svc, err := NewMigrationService(db)
	require.NoError(t, err)
	return db, svc, uuid.NewString()
}

func countRows(t *testing.T, db *gorm.DB, model any, owner string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(model).Where("owner_id = ?", owner).Count(&count).Error)
	return count
}

func TestPreviewReportsCounts(t *testing.T) {
	db, svc, owner := newMigrationFixture(t)
	legacyID := seedLegacyData(t, db)
	ctx := context.Background()

	// pre-existing new-schema data that a run would wipe
	require.NoError(t, db.Create(&models.HabitItem{OwnerID: owner, Name: "Existing"}).Error)

	preview, err := svc.Preview(ctx, owner, legacyEmail)
	require.NoError(t, err)
	require.Equal(t, legacyID, preview.LegacyUserID)
	require.Equal(t, int64(4), preview.LegacyItems)
	require.Equal(t, int64(3), preview.LegacyLogs)
	require.Equal(t, int64(1), preview.CurrentItems)
	require.Equal(t, int64(0), preview.CurrentLogs)
}

func TestPreviewUnknownEmailIsNotFound(t *testing.T) {
	_, svc, owner := newMigrationFixture(t)

	_, err := svc.Preview(context.Background(), owner, "nobody@example.com")
	requireNotFound(t, err)
}

func TestExecuteCopiesTreeRelinkedByName(t *testing.T) {
	db, svc, owner := newMigrationFixture(t)
	seedLegacyData(t, db)
	ctx := context.Background()

	receipt, err := svc.Execute(ctx, owner, legacyEmail)
	require.NoError(t, err)
	require.Equal(t, int64(4), receipt.ItemsCount)
	require.Equal(t, int64(3), receipt.LogsCount)

	var health, run, study, read models.HabitItem
	require.NoError(t, db.Where("owner_id = ? AND name = ?", owner, "Health").First(&health).Error)
	require.NoError(t, db.Where("owner_id = ? AND name = ?", owner, "Run").First(&run).Error)
	require.NoError(t, db.Where("owner_id = ? AND name = ?", owner, "Study").First(&study).Error)
	require.NoError(t, db.Where("owner_id = ? AND name = ?", owner, "Read").First(&read).Error)

	// descriptive fields, flags and timestamps survive the copy
	require.Equal(t, "hp", health.ShortName)
	require.True(t, read.IsDeleted)
	require.Equal(t, 2023, health.CreatedAt.Year())

	// parent links re-derived by name, NULL roots normalised to the sentinel
	require.Equal(t, models.RootParentID, edgeFor(t, db, owner, health.ID).ParentID)
	require.Equal(t, models.RootParentID, edgeFor(t, db, owner, study.ID).ParentID)
	require.Equal(t, health.ID, edgeFor(t, db, owner, run.ID).ParentID)
	require.Equal(t, study.ID, edgeFor(t, db, owner, read.ID).ParentID)
	require.Equal(t, 2, edgeFor(t, db, owner, study.ID).OrderNo)

	// logs follow their items across schemas
	var runLogs int64
	require.NoError(t, db.Model(&models.HabitLog{}).Where("owner_id = ? AND item_id = ?", owner, run.ID).Count(&runLogs).Error)
	require.Equal(t, int64(2), runLogs)
}

func TestExecuteWipesPriorDataForOwner(t *testing.T) {
	db, svc, owner := newMigrationFixture(t)
	seedLegacyData(t, db)
	ctx := context.Background()

	stale := models.HabitItem{OwnerID: owner, Name: "Stale"}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&models.HabitTreeEdge{ItemID: stale.ID, OwnerID: owner, ParentID: models.RootParentID, OrderNo: 1}).Error)
	require.NoError(t, db.Create(&models.HabitLog{OwnerID: owner, ItemID: stale.ID, DoneAt: time.Now(), Comment: "stale"}).Error)

	// another owner's data must survive the wipe
	bystander := uuid.NewString()
	require.NoError(t, db.Create(&models.HabitItem{OwnerID: bystander, Name: "Untouched"}).Error)

	_, err := svc.Execute(ctx, owner, legacyEmail)
	require.NoError(t, err)

	var staleCount int64
	require.NoError(t, db.Model(&models.HabitItem{}).Where("owner_id = ? AND name = ?", owner, "Stale").Count(&staleCount).Error)
	require.Zero(t, staleCount)
	require.Equal(t, int64(1), countRows(t, db, &models.HabitItem{}, bystander))
}

func TestExecuteRollsBackOnMidSequenceFailure(t *testing.T) {
	db, svc, owner := newMigrationFixture(t)
	seedLegacyData(t, db)
	ctx := context.Background()

	svc.afterItems = func(*gorm.DB) error {
		return errors.New("forced failure between items and logs")
	}

	_, err := svc.Execute(ctx, owner, legacyEmail)
	require.Error(t, err)

	require.Zero(t, countRows(t, db, &models.HabitItem{}, owner))
	require.Zero(t, countRows(t, db, &models.HabitTreeEdge{}, owner))
	require.Zero(t, countRows(t, db, &models.HabitLog{}, owner))
}

func TestExecuteAbortsOnDuplicateLegacyNames(t *testing.T) {
	db, svc, owner := newMigrationFixture(t)
	legacyID := seedLegacyData(t, db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.LegacyItem{ID: 30, UserID: legacyID, Name: "Run"}).Error)

	_, err := svc.Execute(ctx, owner, legacyEmail)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrIntegrityRisk.Code, appErr.Code)

	require.Zero(t, countRows(t, db, &models.HabitItem{}, owner))
}

func TestExecuteRerunReproducesFinalCounts(t *testing.T) {
	db, svc, owner := newMigrationFixture(t)
	seedLegacyData(t, db)
	ctx := context.Background()

	first, err := svc.Execute(ctx, owner, legacyEmail)
	require.NoError(t, err)

	var firstRunID uint
	require.NoError(t, db.Model(&models.HabitItem{}).
		Where("owner_id = ? AND name = ?", owner, "Run").
		Select("id").Scan(&firstRunID).Error)

	second, err := svc.Execute(ctx, owner, legacyEmail)
	require.NoError(t, err)
	require.Equal(t, first.ItemsCount, second.ItemsCount)
	require.Equal(t, first.LogsCount, second.LogsCount)

	// same final state, fresh row ids
	var secondRunID uint
	require.NoError(t, db.Model(&models.HabitItem{}).
		Where("owner_id = ? AND name = ?", owner, "Run").
		Select("id").Scan(&secondRunID).Error)
	require.NotEqual(t, firstRunID, secondRunID)
}

func TestExecuteUnknownEmailIsNotFound(t *testing.T) {
	_, svc, owner := newMigrationFixture(t)

	_, err := svc.Execute(context.Background(), owner, "nobody@example.com")
	requireNotFound(t, err)
}
