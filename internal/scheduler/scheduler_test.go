package scheduler

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/internal/config"
	"custodian/internal/types"
	"custodian/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("development"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type recordingTrigger struct {
	mu      sync.Mutex
	classes []types.ScheduleClass
}

func (r *recordingTrigger) PerformDatabaseBackup(_ context.Context, class types.ScheduleClass) (*types.BackupRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = append(r.classes, class)
	return &types.BackupRecord{}, nil
}

func (r *recordingTrigger) PerformFullBackup(_ context.Context, class types.ScheduleClass) (*types.BackupRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = append(r.classes, class)
	return &types.BackupRecord{}, nil
}

func (r *recordingTrigger) CleanupOldBackups(context.Context) (*types.CleanupResult, error) {
	return &types.CleanupResult{}, nil
}

func testConfig() config.Config {
	return config.Config{
		DailyBackupCron:   "0 2 * * *",
		WeeklyBackupCron:  "0 3 * * 0",
		MonthlyBackupCron: "0 4 1 * *",
		CleanupCron:       "30 5 * * *",
	}
}

func TestNew_RejectsInvalidExpression(t *testing.T) {
	cfg := testConfig()
	cfg.WeeklyBackupCron = "not a cron line"

	_, err := New(cfg, &recordingTrigger{})
	assert.Error(t, err)
}

func TestScheduler_RegistersAllCadences(t *testing.T) {
	sched, err := New(testConfig(), &recordingTrigger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sched.Start(ctx))
	defer func() { require.NoError(t, sched.Stop()) }()

	next := sched.NextRun()
	require.NotNil(t, next, "four jobs are scheduled, so a next run must exist")
	assert.False(t, next.IsZero())
}

func TestScheduler_NextRunNilBeforeStart(t *testing.T) {
	sched, err := New(testConfig(), &recordingTrigger{})
	require.NoError(t, err)

	assert.Nil(t, sched.NextRun())
}
