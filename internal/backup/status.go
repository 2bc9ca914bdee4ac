package backup

import (
	"context"
	"fmt"
	"time"

	"custodian/internal/types"
)

const recentRecordLimit = 10

// Status summarizes the catalog for operator dashboards. It takes no
// pipeline lock: the catalog supports concurrent readers while a
// single writer appends.
func (o *orchestrator) Status(ctx context.Context) (*types.Status, error) {
	recent, err := o.catalog.ListRecent(ctx, recentRecordLimit)
	if err != nil {
		return nil, err
	}

	total, err := o.catalog.Count(ctx)
	if err != nil {
		return nil, err
	}

	size, err := o.catalog.TotalSize(ctx)
	if err != nil {
		return nil, err
	}

	status := &types.Status{
		RecentRecords:  recent,
		TotalRecords:   total,
		TotalSizeBytes: size,
		RetentionDays:  o.cfg.RetentionDays,
	}
	if o.nextRun != nil {
		status.NextRun = o.nextRun()
	}

	status.Inconsistencies = o.reconcile(ctx, recent)
	return status, nil
}

// SetNextRunSource attaches the scheduler's next-run lookup after both
// sides are constructed.
func (o *orchestrator) SetNextRunSource(next func() *time.Time) {
	o.nextRun = next
}

// reconcile cross-checks recent catalog entries against a remote
// listing. A record pointing at a key the store no longer lists is an
// inconsistency worth surfacing, not something to silently skip.
func (o *orchestrator) reconcile(ctx context.Context, records []*types.BackupRecord) []string {
	entries, err := o.store.List(ctx, "")
	if err != nil {
		return []string{fmt.Sprintf("remote listing failed: %v", err)}
	}

	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.Key] = true
	}

	var problems []string
	for _, record := range records {
		for _, key := range remoteKeys(record) {
			if !known[key] {
				problems = append(problems,
					fmt.Sprintf("%s: record %s references missing object %s",
						ErrCatalogInconsistent, record.Name, key))
			}
		}
	}
	return problems
}
