package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"custodian/internal/config"
	"custodian/internal/types"
	"custodian/logger"
)

type (
	// TriggerKind names one scheduled cadence.
	TriggerKind string

	// Trigger is the capability the scheduler drives. The
	// orchestrator satisfies it; tests substitute a recorder so
	// cadence wiring is checked without waiting for calendar time.
	Trigger interface {
		PerformDatabaseBackup(ctx context.Context, class types.ScheduleClass) (*types.BackupRecord, error)
		PerformFullBackup(ctx context.Context, class types.ScheduleClass) (*types.BackupRecord, error)
		CleanupOldBackups(ctx context.Context) (*types.CleanupResult, error)
	}

	Scheduler interface {
		Start(ctx context.Context) error
		Stop() error
		NextRun() *time.Time
	}

	scheduler struct {
		cfg     config.Config
		trigger Trigger
		runner  gocron.Scheduler
	}
)

const (
	TriggerDaily   TriggerKind = "daily-database-backup"
	TriggerWeekly  TriggerKind = "weekly-full-backup"
	TriggerMonthly TriggerKind = "monthly-full-backup"
	TriggerCleanup TriggerKind = "daily-cleanup"
)

func New(cfg config.Config, trigger Trigger) (Scheduler, error) {
	for _, expr := range []string{cfg.DailyBackupCron, cfg.WeeklyBackupCron, cfg.MonthlyBackupCron, cfg.CleanupCron} {
		if err := validateExpression(expr); err != nil {
			return nil, err
		}
	}

	runner, err := gocron.NewScheduler(
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeReschedule))
	if err != nil {
		return nil, err
	}

	return &scheduler{cfg: cfg, trigger: trigger, runner: runner}, nil
}

func (s *scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		kind TriggerKind
		expr string
		task func(context.Context) error
	}{
		{TriggerDaily, s.cfg.DailyBackupCron, func(ctx context.Context) error {
			_, err := s.trigger.PerformDatabaseBackup(ctx, types.ScheduleDaily)
			return err
		}},
		{TriggerWeekly, s.cfg.WeeklyBackupCron, func(ctx context.Context) error {
			_, err := s.trigger.PerformFullBackup(ctx, types.ScheduleWeekly)
			return err
		}},
		{TriggerMonthly, s.cfg.MonthlyBackupCron, func(ctx context.Context) error {
			_, err := s.trigger.PerformFullBackup(ctx, types.ScheduleMonthly)
			return err
		}},
		{TriggerCleanup, s.cfg.CleanupCron, func(ctx context.Context) error {
			_, err := s.trigger.CleanupOldBackups(ctx)
			return err
		}},
	}

	for _, j := range jobs {
		job := j
		_, err := s.runner.NewJob(
			gocron.CronJob(job.expr, false),
			gocron.NewTask(func() {
				if err := job.task(ctx); err != nil {
					// each cadence is a fresh attempt; failures are
					// surfaced to operators, never retried mid-run
					logger.Error("scheduled job failed",
						zap.String("job", string(job.kind)),
						zap.Error(err))
					return
				}
				logger.Info("scheduled job completed", zap.String("job", string(job.kind)))
			}),
			gocron.WithName(string(job.kind)))
		if err != nil {
			return err
		}

		logger.Info("job scheduled",
			zap.String("job", string(job.kind)),
			zap.String("expression", job.expr))
	}

	s.runner.Start()
	return nil
}

func (s *scheduler) Stop() error {
	return s.runner.Shutdown()
}

// NextRun reports the soonest upcoming run across all jobs.
func (s *scheduler) NextRun() *time.Time {
	var soonest *time.Time
	for _, job := range s.runner.Jobs() {
		next, err := job.NextRun()
		if err != nil {
			continue
		}
		if soonest == nil || next.Before(*soonest) {
			t := next
			soonest = &t
		}
	}
	return soonest
}

func validateExpression(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
