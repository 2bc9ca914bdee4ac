package backup

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"custodian/internal/types"
	"custodian/logger"
)

// CleanupOldBackups deletes records older than the retention window,
// remote artifacts first and catalog rows second. A record whose
// remote deletion is unconfirmed keeps its catalog row and is retried
// on the next scheduled run; re-running with nothing expired is a
// no-op.
func (o *orchestrator) CleanupOldBackups(ctx context.Context) (*types.CleanupResult, error) {
	if !o.pipeline.TryLock() {
		return nil, ErrBackupInProgress
	}
	defer o.pipeline.Unlock()

	cutoff := o.now().AddDate(0, 0, -o.cfg.RetentionDays)
	expired, err := o.catalog.ListOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	if len(expired) == 0 {
		return &types.CleanupResult{}, nil
	}

	keys := lo.FlatMap(expired, func(record *types.BackupRecord, _ int) []string {
		return remoteKeys(record)
	})

	deleted, failed, err := o.store.RemoveMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	deletedSet := lo.SliceToMap(deleted, func(key string) (string, bool) {
		return key, true
	})

	result := &types.CleanupResult{ObjectsDeleted: len(deleted), ObjectsRetained: len(failed)}
	for _, record := range expired {
		confirmed := lo.EveryBy(remoteKeys(record), func(key string) bool {
			return deletedSet[key]
		})
		if !confirmed {
			logger.Warn("remote deletion unconfirmed, keeping catalog record for retry",
				zap.String("record", record.Name))
			continue
		}

		if err := o.catalog.Delete(ctx, record.ID); err != nil {
			logger.Error("failed to delete catalog record",
				zap.String("record", record.Name),
				zap.Error(err))
			continue
		}
		result.RecordsDeleted++
	}

	logger.Info("cleanup completed",
		zap.Time("cutoff", cutoff),
		zap.Int("records_deleted", result.RecordsDeleted),
		zap.Int("objects_deleted", result.ObjectsDeleted),
		zap.Int("objects_retained", result.ObjectsRetained))
	return result, nil
}

// remoteKeys returns the non-empty object keys of a record; zero-size
// placeholder artifacts have nothing stored remotely.
func remoteKeys(record *types.BackupRecord) []string {
	keys := make([]string, 0, len(record.Artifacts))
	for _, a := range record.Artifacts {
		if a.RemoteKey != "" {
			keys = append(keys, a.RemoteKey)
		}
	}
	return keys
}
