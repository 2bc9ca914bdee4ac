package types

import (
	"time"

	"github.com/google/uuid"
)

type (
	// ComponentKind identifies which part of the system an artifact
	// captures.
	ComponentKind string

	// ScheduleClass is the cadence label attached to a run. It
	// namespaces remote keys and shows operators where a backup came
	// from.
	ScheduleClass string

	// BackupType distinguishes database-only runs from full-system runs.
	BackupType string
)

const (
	ComponentDatabase      ComponentKind = "database"
	ComponentFiles         ComponentKind = "files"
	ComponentConfiguration ComponentKind = "configuration"

	ScheduleManual  ScheduleClass = "manual"
	ScheduleDaily   ScheduleClass = "daily"
	ScheduleWeekly  ScheduleClass = "weekly"
	ScheduleMonthly ScheduleClass = "monthly"

	BackupTypeDatabase BackupType = "database"
	BackupTypeFull     BackupType = "full"
)

type (
	// Artifact is one encrypted blob in remote storage. Checksum is
	// the hex SHA-256 of the ciphertext as uploaded; RemoteKey is the
	// object locator. Immutable once written.
	Artifact struct {
		ID        uuid.UUID     `json:"id" gorm:"primaryKey"`
		RecordID  uuid.UUID     `json:"record_id" gorm:"index"`
		Kind      ComponentKind `json:"kind"`
		Class     ScheduleClass `json:"schedule_class"`
		CreatedAt time.Time     `json:"created_at"`
		SizeBytes int64         `json:"size_bytes"`
		Checksum  string        `json:"checksum"`
		RemoteKey string        `json:"remote_key"`
	}

	// BackupRecord is one orchestrated run, the unit a restore
	// addresses. A database run carries only the database artifact; a
	// full run carries database, files and configuration. An empty
	// uploads directory yields a zero-size files artifact, not a
	// missing one.
	BackupRecord struct {
		ID        uuid.UUID     `json:"id" gorm:"primaryKey"`
		Name      string        `json:"name"`
		Type      BackupType    `json:"type"`
		Class     ScheduleClass `json:"schedule_class"`
		CreatedAt time.Time     `json:"created_at" gorm:"index"`
		SizeBytes int64         `json:"size_bytes"`

		Artifacts []*Artifact `json:"artifacts" gorm:"foreignKey:RecordID"`
	}
)

// Component returns the artifact of the given kind, or nil.
func (r *BackupRecord) Component(kind ComponentKind) *Artifact {
	for _, a := range r.Artifacts {
		if a.Kind == kind {
			return a
		}
	}
	return nil
}

func (c ComponentKind) String() string { return string(c) }
func (s ScheduleClass) String() string { return string(s) }
func (t BackupType) String() string    { return string(t) }

// ValidScheduleClass reports whether s is one of the known cadence labels.
func ValidScheduleClass(s ScheduleClass) bool {
	switch s {
	case ScheduleManual, ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return true
	}
	return false
}
