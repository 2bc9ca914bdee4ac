package types

import (
	"time"

	"github.com/google/uuid"
)

type (
	// RestoreOptions selects which components of a record to restore.
	// Zero value restores nothing; callers pick components explicitly
	// because the database apply replaces live data.
	RestoreOptions struct {
		Database      bool `json:"database"`
		Files         bool `json:"files"`
		Configuration bool `json:"configuration"`
	}

	// RestoreResult reports per-component outcomes so operators can
	// tell exactly what was applied and what failed where.
	RestoreResult struct {
		RecordID   uuid.UUID                `json:"record_id"`
		Components map[ComponentKind]string `json:"components"`
	}

	// Status is the operator-facing summary of the subsystem.
	Status struct {
		RecentRecords   []*BackupRecord `json:"recent_records"`
		TotalRecords    int64           `json:"total_records"`
		TotalSizeBytes  int64           `json:"total_size_bytes"`
		RetentionDays   int             `json:"retention_days"`
		NextRun         *time.Time      `json:"next_run,omitempty"`
		Inconsistencies []string        `json:"inconsistencies,omitempty"`
	}

	// CleanupResult summarizes one retention pass.
	CleanupResult struct {
		RecordsDeleted  int `json:"records_deleted"`
		ObjectsDeleted  int `json:"objects_deleted"`
		ObjectsRetained int `json:"objects_retained"`
	}
)

func (o RestoreOptions) Any() bool {
	return o.Database || o.Files || o.Configuration
}
