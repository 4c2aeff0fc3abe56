package maintenance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/database/testutil"
	"github.com/hadbitapp/hadbit-server/internal/models"
)

func seedItem(t *testing.T, db *gorm.DB, owner, name string, parentID uint, orderNo int) models.HabitItem {
	t.Helper()

	item := models.HabitItem{OwnerID: owner, Name: name}
	require.NoError(t, db.Create(&item).Error)
	require.NoError(t, db.Create(&models.HabitTreeEdge{
		ItemID:   item.ID,
		OwnerID:  owner,
		ParentID: parentID,
		OrderNo:  orderNo,
	}).Error)
	return item
}

func TestSweepCleanTreeReportsNothing(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	owner := uuid.NewString()

	health := seedItem(t, db, owner, "Health", models.RootParentID, 1)
	seedItem(t, db, owner, "Run", health.ID, 1)
	seedItem(t, db, owner, "Swim", health.ID, 2)

	report, err := NewSweeper(db).RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.DuplicateOrders)
	require.Zero(t, report.OrphanChildren)
}

func TestSweepDetectsDuplicateSiblingOrder(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	owner := uuid.NewString()

	health := seedItem(t, db, owner, "Health", models.RootParentID, 1)
	seedItem(t, db, owner, "Run", health.ID, 1)
	seedItem(t, db, owner, "Swim", health.ID, 1)

	report, err := NewSweeper(db).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), report.DuplicateOrders)
	require.Zero(t, report.OrphanChildren)
}

func TestSweepDetectsOrphanChildEdges(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	owner := uuid.NewString()

	item := models.HabitItem{OwnerID: owner, Name: "Run"}
	require.NoError(t, db.Create(&item).Error)
	require.NoError(t, db.Create(&models.HabitTreeEdge{
		ItemID:   item.ID,
		OwnerID:  owner,
		ParentID: 9999,
		OrderNo:  1,
	}).Error)

	report, err := NewSweeper(db).RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.DuplicateOrders)
	require.Equal(t, int64(1), report.OrphanChildren)
}

func TestSweepScopesParentLookupPerOwner(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	ownerA := uuid.NewString()
	ownerB := uuid.NewString()

	parent := seedItem(t, db, ownerA, "Health", models.RootParentID, 1)

	// Owner B references owner A's parent; within B's tree that edge is orphaned.
	stray := models.HabitItem{OwnerID: ownerB, Name: "Run"}
	require.NoError(t, db.Create(&stray).Error)
	require.NoError(t, db.Create(&models.HabitTreeEdge{
		ItemID:   stray.ID,
		OwnerID:  ownerB,
		ParentID: parent.ID,
		OrderNo:  1,
	}).Error)

	report, err := NewSweeper(db).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), report.OrphanChildren)
}

func TestSweeperStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	sweeper := NewSweeper(db, WithSchedule("@every 1h"))
	require.NoError(t, sweeper.Start())

	ctx := sweeper.Stop()
	<-ctx.Done()
}
