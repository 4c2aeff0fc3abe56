package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/models"
	"github.com/hadbitapp/hadbit-server/pkg/logger"
	"github.com/hadbitapp/hadbit-server/pkg/metrics"
)

const defaultSweepSpec = "@daily"

// Sweeper periodically scans the habit tree tables for ordering anomalies.
// It is strictly read-only: findings are logged and exported as metrics so an
// operator can investigate, never repaired in place.
type Sweeper struct {
	db       *gorm.DB
	cron     *cron.Cron
	log      *zap.Logger
	schedule string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the integrity sweep.
func WithSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults.
func NewSweeper(db *gorm.DB, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		db:       db,
		schedule: defaultSweepSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the sweep with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.db == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("integrity sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running sweep to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// SweepReport summarises the anomalies found during one pass.
type SweepReport struct {
	DuplicateOrders int64
	OrphanChildren  int64
}

type duplicateOrderRow struct {
	OwnerID  string
	ParentID uint
	OrderNo  int
	Count    int64
}

// RunOnce executes a single sweep across all owners.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	if s.db == nil {
		return SweepReport{}, errors.New("integrity sweep: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	report := SweepReport{}

	var duplicates []duplicateOrderRow
	if err := s.db.WithContext(ctx).
		Model(&models.HabitTreeEdge{}).
		Select("owner_id, parent_id, order_no, COUNT(*) AS count").
		Group("owner_id, parent_id, order_no").
		Having("COUNT(*) > 1").
		Scan(&duplicates).Error; err != nil {
		return report, fmt.Errorf("integrity sweep: duplicate orders: %w", err)
	}
	for _, dup := range duplicates {
		report.DuplicateOrders += dup.Count - 1
		s.log.Warn("duplicate sibling order detected",
			zap.String("owner_id", dup.OwnerID),
			zap.Uint("parent_id", dup.ParentID),
			zap.Int("order_no", dup.OrderNo),
			zap.Int64("rows", dup.Count))
	}

	var orphans []models.HabitTreeEdge
	if err := s.db.WithContext(ctx).
		Table("hadbit_trees AS t").
		Select("t.*").
		Where("t.parent_id <> ?", models.RootParentID).
		Where("NOT EXISTS (SELECT 1 FROM hadbit_trees p WHERE p.item_id = t.parent_id AND p.owner_id = t.owner_id)").
		Scan(&orphans).Error; err != nil {
		return report, fmt.Errorf("integrity sweep: orphan children: %w", err)
	}
	for _, orphan := range orphans {
		report.OrphanChildren++
		s.log.Warn("orphan child edge detected",
			zap.String("owner_id", orphan.OwnerID),
			zap.Uint("item_id", orphan.ItemID),
			zap.Uint("parent_id", orphan.ParentID))
	}

	metrics.IntegrityAnomalies.WithLabelValues("duplicate_order").Set(float64(report.DuplicateOrders))
	metrics.IntegrityAnomalies.WithLabelValues("orphan_child").Set(float64(report.OrphanChildren))

	return report, nil
}
