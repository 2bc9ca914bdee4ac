package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"custodian/internal/types"
)

// CatalogRepository is the persistent metadata store of backup runs.
// Append-mostly: records are written once by the orchestrator, read by
// status queries and restore, and deleted only by retention cleanup.
type CatalogRepository interface {
	Save(ctx context.Context, record *types.BackupRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.BackupRecord, error)
	ListRecent(ctx context.Context, n int) ([]*types.BackupRecord, error)
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*types.BackupRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	TotalSize(ctx context.Context) (int64, error)
}
