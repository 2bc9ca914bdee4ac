package backup

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"custodian/internal/archive"
	"custodian/internal/crypto"
	"custodian/internal/types"
	"custodian/logger"
)

// Restore brings the requested components of a catalogued backup back
// into the live system. Each component runs DOWNLOAD -> VERIFY ->
// DECRYPT -> UNARCHIVE -> APPLY; a checksum mismatch aborts that
// component before any data is applied. Database and files restores
// are independent, so a failure in one does not stop the other.
//
// No safety snapshot is taken here; the database apply replaces live
// data and callers are expected to back up first.
func (o *orchestrator) Restore(ctx context.Context, recordID uuid.UUID, opts types.RestoreOptions) (*types.RestoreResult, error) {
	if !opts.Any() {
		return nil, errors.New("no components requested for restore")
	}

	if !o.pipeline.TryLock() {
		return nil, ErrBackupInProgress
	}
	defer o.pipeline.Unlock()

	record, err := o.catalog.FindByID(ctx, recordID)
	if err != nil {
		return nil, errors.Wrap(err, "backup record not found")
	}

	runDir, err := o.stagingDir(record.Name + "-restore")
	if err != nil {
		return nil, err
	}
	defer o.cleanupStaging(runDir)

	logger.Warn("starting restore, live data will be replaced and no automatic pre-restore snapshot is taken",
		zap.String("record", record.Name),
		zap.Bool("database", opts.Database),
		zap.Bool("files", opts.Files),
		zap.Bool("configuration", opts.Configuration))

	result := &types.RestoreResult{
		RecordID:   record.ID,
		Components: make(map[types.ComponentKind]string),
	}

	var failures []error
	run := func(kind types.ComponentKind, requested bool, apply func(context.Context, *types.Artifact, string) error) {
		if !requested {
			return
		}

		artifact := record.Component(kind)
		if artifact == nil {
			result.Components[kind] = "not present in this backup"
			return
		}
		if artifact.RemoteKey == "" {
			// zero-size placeholder, nothing was stored
			result.Components[kind] = "empty artifact, nothing to restore"
			return
		}

		if err := o.restoreComponent(ctx, runDir, artifact, apply); err != nil {
			result.Components[kind] = "failed: " + err.Error()
			failures = append(failures, errors.Wrap(err, string(kind)))
			return
		}
		result.Components[kind] = "restored"
	}

	run(types.ComponentDatabase, opts.Database, o.applyDatabase)
	run(types.ComponentFiles, opts.Files, o.applyFiles)
	run(types.ComponentConfiguration, opts.Configuration, o.applyConfiguration)

	if len(failures) > 0 {
		return result, stderrors.Join(failures...)
	}

	logger.Info("restore completed", zap.String("record", record.Name))
	return result, nil
}

// restoreComponent downloads and verifies one artifact, decrypts it
// and hands the plaintext to the component's apply step. Verification
// happens on the ciphertext exactly as catalogued; nothing unverified
// is ever decrypted, let alone applied.
func (o *orchestrator) restoreComponent(ctx context.Context, runDir string,
	artifact *types.Artifact, apply func(context.Context, *types.Artifact, string) error) error {
	encPath := filepath.Join(runDir, filepath.Base(artifact.RemoteKey))
	if err := o.download(ctx, artifact.RemoteKey, encPath); err != nil {
		return err
	}

	checksum, err := crypto.ChecksumFile(encPath)
	if err != nil {
		return stageFailed(StageVerify, err)
	}
	if checksum != artifact.Checksum {
		logger.Error("artifact checksum mismatch, aborting component restore",
			zap.String("remote_key", artifact.RemoteKey),
			zap.String("expected", artifact.Checksum),
			zap.String("actual", checksum))
		return stageFailed(StageVerify, ErrIntegrity)
	}

	plainPath := encPath + ".plain"
	if err := o.decryptFile(encPath, plainPath); err != nil {
		return stageFailed(StageDecrypt, err)
	}

	return apply(ctx, artifact, plainPath)
}

func (o *orchestrator) applyDatabase(ctx context.Context, _ *types.Artifact, plainPath string) error {
	dumpDir := filepath.Join(filepath.Dir(plainPath), "restored-dump")
	if err := archive.Unpack(plainPath, dumpDir); err != nil {
		return stageFailed(StageUnarchive, err)
	}

	if err := o.dumper.Apply(ctx, dumpDir); err != nil {
		return stageFailed(StageApply, err)
	}
	return nil
}

func (o *orchestrator) applyFiles(_ context.Context, _ *types.Artifact, plainPath string) error {
	if err := os.MkdirAll(o.cfg.UploadsDir, 0755); err != nil {
		return stageFailed(StageApply, err)
	}

	if err := archive.Unpack(plainPath, o.cfg.UploadsDir); err != nil {
		return stageFailed(StageUnarchive, err)
	}
	return nil
}

// applyConfiguration stages the recovered settings snapshot next to
// the live configuration for an operator to review; settings are not
// swapped automatically since the running process already loaded its
// environment.
func (o *orchestrator) applyConfiguration(_ context.Context, _ *types.Artifact, plainPath string) error {
	dest := filepath.Join(o.cfg.StagingDir, "recovered-config.json")
	if err := copyFile(plainPath, dest); err != nil {
		return stageFailed(StageApply, err)
	}

	logger.Info("configuration snapshot recovered for operator review",
		zap.String("path", dest))
	return nil
}

func (o *orchestrator) download(ctx context.Context, remoteKey, destPath string) error {
	rc, err := o.store.Get(ctx, remoteKey)
	if err != nil {
		// an unresolvable key on a catalogued record is a
		// consistency problem, not a plain transfer error
		return stageFailed(StageDownload, errors.Wrap(ErrCatalogInconsistent, err.Error()))
	}
	defer rc.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return stageFailed(StageDownload, err)
	}

	if _, err := io.Copy(dst, rc); err != nil {
		_ = dst.Close()
		return stageFailed(StageDownload, err)
	}
	return dst.Close()
}

func (o *orchestrator) decryptFile(encPath, plainPath string) error {
	src, err := os.Open(encPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(plainPath)
	if err != nil {
		return err
	}

	if err := o.cipher.Decrypt(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
