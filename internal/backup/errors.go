package backup

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage names a step of a backup or restore pipeline. Failures carry
// the stage so the scheduler and operators can tell a failed dump from
// a failed upload without parsing messages.
type Stage string

const (
	StageDump      Stage = "dump"
	StageArchive   Stage = "archive"
	StageSnapshot  Stage = "snapshot"
	StageEncrypt   Stage = "encrypt"
	StageChecksum  Stage = "checksum"
	StageUpload    Stage = "upload"
	StageCatalog   Stage = "catalog"
	StageDownload  Stage = "download"
	StageVerify    Stage = "verify"
	StageDecrypt   Stage = "decrypt"
	StageUnarchive Stage = "unarchive"
	StageApply     Stage = "apply"
)

var (
	// ErrBackupInProgress is returned when a trigger arrives while
	// another backup or restore holds the pipeline lock. The new
	// trigger is rejected, never queued.
	ErrBackupInProgress = errors.New("another backup or restore is already in progress")

	// ErrIntegrity marks a checksum mismatch between an artifact and
	// its catalog entry. Always fatal for the affected component and
	// never retried automatically.
	ErrIntegrity = errors.New("artifact integrity check failed: checksum mismatch")

	// ErrCatalogInconsistent marks a catalog record whose remote
	// artifact can no longer be resolved.
	ErrCatalogInconsistent = errors.New("catalog record references an unresolvable artifact")
)

// StageError wraps a pipeline failure with the stage it occurred at.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageFailed(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
