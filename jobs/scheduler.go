package jobs

import (
	"context"
	"time"

	"restaurant-pos-api/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs the nightly report snapshot, history pruning and the
// process monitor.
type Scheduler struct {
	db          *gorm.DB
	loc         *time.Location
	historyDays int
	cron        *cron.Cron
	now         func() time.Time
}

func NewScheduler(db *gorm.DB, loc *time.Location, historyDays int) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		db:          db,
		loc:         loc,
		historyDays: historyDays,
		cron:        cron.New(cron.WithLocation(loc), cron.WithParser(cronParser)),
		now:         time.Now,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	// shortly after midnight, close out yesterday
	if _, err := s.cron.AddFunc("0 5 0 * * *", s.SnapshotYesterday); err != nil {
		return err
	}
	// refresh today's figures so /api/reports/daily is never a day behind
	if _, err := s.cron.AddFunc("@every 15m", s.SnapshotToday); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", s.PruneHistory); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 5m", s.MonitorProcess); err != nil {
		return err
	}
	s.cron.Start()
	zap.L().Info("scheduler started", zap.String("location", s.loc.String()))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) SnapshotYesterday() {
	s.snapshot(s.now().In(s.loc).AddDate(0, 0, -1))
}

func (s *Scheduler) SnapshotToday() {
	s.snapshot(s.now())
}

func (s *Scheduler) snapshot(day time.Time) {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	report, err := SnapshotDay(ctx, s.db, day, s.loc)
	if err != nil {
		zap.L().Error("daily report snapshot failed", zap.Error(err))
		return
	}
	zap.L().Info("daily report snapshot",
		zap.String("day", report.Day),
		zap.Int("orders", report.Orders),
		zap.Float64("revenue", report.Revenue))
}

// PruneHistory deletes status history rows older than the retention window.
func (s *Scheduler) PruneHistory() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if s.historyDays <= 0 {
		return
	}
	cutoff := s.now().AddDate(0, 0, -s.historyDays)
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.OrderStatusHistory{})
	if res.Error != nil {
		zap.L().Error("history pruning failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		zap.L().Info("pruned status history", zap.Int64("rows", res.RowsAffected), zap.Time("before", cutoff))
	}
}
