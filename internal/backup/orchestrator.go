package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"custodian/internal/archive"
	"custodian/internal/config"
	"custodian/internal/crypto"
	"custodian/internal/database"
	"custodian/internal/dump"
	"custodian/internal/storage"
	"custodian/internal/types"
	"custodian/logger"
)

type (
	// Orchestrator runs the backup, restore and retention pipelines.
	// At most one pipeline runs at a time process-wide; a trigger that
	// arrives while one is running gets ErrBackupInProgress.
	Orchestrator interface {
		PerformDatabaseBackup(ctx context.Context, class types.ScheduleClass) (*types.BackupRecord, error)
		PerformFullBackup(ctx context.Context, class types.ScheduleClass) (*types.BackupRecord, error)
		Restore(ctx context.Context, recordID uuid.UUID, opts types.RestoreOptions) (*types.RestoreResult, error)
		CleanupOldBackups(ctx context.Context) (*types.CleanupResult, error)
		Status(ctx context.Context) (*types.Status, error)

		// SetNextRunSource attaches the scheduler's next-run lookup
		// once both sides exist; Status reports it when present.
		SetNextRunSource(next func() *time.Time)
	}

	orchestrator struct {
		cfg     config.Config
		catalog database.CatalogRepository
		store   storage.Storage
		dumper  dump.Dumper
		cipher  *crypto.Streamer

		// guards the staging directory, the dump tool and catalog
		// writes; TryLock turns contention into a rejection
		pipeline sync.Mutex

		// wall clock, swapped out in tests
		now func() time.Time

		// reported by Status when a scheduler is attached
		nextRun func() *time.Time
	}
)

func NewOrchestrator(cfg config.Config, catalog database.CatalogRepository,
	store storage.Storage, dumper dump.Dumper) (Orchestrator, error) {
	cipher, err := crypto.NewStreamer(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return &orchestrator{
		cfg:     cfg,
		catalog: catalog,
		store:   store,
		dumper:  dumper,
		cipher:  cipher,
		now:     time.Now,
	}, nil
}

func (o *orchestrator) PerformDatabaseBackup(ctx context.Context, class types.ScheduleClass) (*types.BackupRecord, error) {
	if !o.pipeline.TryLock() {
		return nil, ErrBackupInProgress
	}
	defer o.pipeline.Unlock()

	started := o.now()
	name := runName(types.BackupTypeDatabase, started)
	runDir, err := o.stagingDir(name)
	if err != nil {
		return nil, err
	}
	defer o.cleanupStaging(runDir)

	logger.Info("starting database backup",
		zap.String("name", name),
		zap.String("class", class.String()))

	recordID := uuid.New()
	artifact, err := o.databaseArtifact(ctx, runDir, recordID, class, name)
	if err != nil {
		return nil, err
	}

	record := &types.BackupRecord{
		ID:        recordID,
		Name:      name,
		Type:      types.BackupTypeDatabase,
		Class:     class,
		CreatedAt: started,
		SizeBytes: artifact.SizeBytes,
		Artifacts: []*types.Artifact{artifact},
	}
	if err := o.catalog.Save(ctx, record); err != nil {
		return nil, stageFailed(StageCatalog, err)
	}

	logger.Info("database backup completed",
		zap.String("name", name),
		zap.Int64("size_bytes", record.SizeBytes))
	return record, nil
}

func (o *orchestrator) PerformFullBackup(ctx context.Context, class types.ScheduleClass) (*types.BackupRecord, error) {
	if !o.pipeline.TryLock() {
		return nil, ErrBackupInProgress
	}
	defer o.pipeline.Unlock()

	started := o.now()
	name := runName(types.BackupTypeFull, started)
	runDir, err := o.stagingDir(name)
	if err != nil {
		return nil, err
	}
	defer o.cleanupStaging(runDir)

	logger.Info("starting full backup",
		zap.String("name", name),
		zap.String("class", class.String()))

	// all three components must succeed before anything is
	// catalogued; a partial full backup is never recorded
	recordID := uuid.New()
	dbArtifact, err := o.databaseArtifact(ctx, runDir, recordID, class, name)
	if err != nil {
		return nil, err
	}

	filesArtifact, err := o.filesArtifact(ctx, runDir, recordID, class, name)
	if err != nil {
		return nil, err
	}

	configArtifact, err := o.configArtifact(ctx, runDir, recordID, class, name)
	if err != nil {
		return nil, err
	}

	record := &types.BackupRecord{
		ID:        recordID,
		Name:      name,
		Type:      types.BackupTypeFull,
		Class:     class,
		CreatedAt: started,
		SizeBytes: dbArtifact.SizeBytes + filesArtifact.SizeBytes + configArtifact.SizeBytes,
		Artifacts: []*types.Artifact{dbArtifact, filesArtifact, configArtifact},
	}
	if err := o.catalog.Save(ctx, record); err != nil {
		return nil, stageFailed(StageCatalog, err)
	}

	logger.Info("full backup completed",
		zap.String("name", name),
		zap.Int64("size_bytes", record.SizeBytes))
	return record, nil
}

// databaseArtifact runs DUMP -> ARCHIVE -> ENCRYPT -> CHECKSUM -> UPLOAD.
func (o *orchestrator) databaseArtifact(ctx context.Context, runDir string, recordID uuid.UUID,
	class types.ScheduleClass, name string) (*types.Artifact, error) {
	dumpDir := filepath.Join(runDir, "db-dump")
	if err := o.dumper.Dump(ctx, dumpDir); err != nil {
		return nil, stageFailed(StageDump, err)
	}

	archivePath := filepath.Join(runDir, name+"-db.tar.gz")
	if err := archive.Pack(dumpDir, archivePath); err != nil {
		return nil, stageFailed(StageArchive, err)
	}

	return o.encryptAndUpload(ctx, archivePath, recordID, types.ComponentDatabase, class, name+"-db", "tar.gz")
}

// filesArtifact packs the uploads directory. An absent or empty
// directory is a valid state on a fresh install and yields a zero-size
// artifact rather than a failure.
func (o *orchestrator) filesArtifact(ctx context.Context, runDir string, recordID uuid.UUID,
	class types.ScheduleClass, name string) (*types.Artifact, error) {
	if empty, err := dirMissingOrEmpty(o.cfg.UploadsDir); err != nil {
		return nil, stageFailed(StageArchive, err)
	} else if empty {
		logger.Info("uploads directory absent or empty, recording zero-size files artifact",
			zap.String("dir", o.cfg.UploadsDir))
		return &types.Artifact{
			ID:        uuid.New(),
			RecordID:  recordID,
			Kind:      types.ComponentFiles,
			Class:     class,
			CreatedAt: o.now(),
		}, nil
	}

	archivePath := filepath.Join(runDir, name+"-files.tar.gz")
	if err := archive.Pack(o.cfg.UploadsDir, archivePath); err != nil {
		return nil, stageFailed(StageArchive, err)
	}

	return o.encryptAndUpload(ctx, archivePath, recordID, types.ComponentFiles, class, name+"-files", "tar.gz")
}

// configArtifact serializes the redacted operational settings.
func (o *orchestrator) configArtifact(ctx context.Context, runDir string, recordID uuid.UUID,
	class types.ScheduleClass, name string) (*types.Artifact, error) {
	snapshot, err := json.MarshalIndent(o.cfg.Redacted(), "", "  ")
	if err != nil {
		return nil, stageFailed(StageSnapshot, err)
	}

	snapshotPath := filepath.Join(runDir, name+"-config.json")
	if err := os.WriteFile(snapshotPath, snapshot, 0600); err != nil {
		return nil, stageFailed(StageSnapshot, err)
	}

	return o.encryptAndUpload(ctx, snapshotPath, recordID, types.ComponentConfiguration, class, name+"-config", "json")
}

// encryptAndUpload is the tail shared by every component pipeline:
// encrypt the staged file, checksum the ciphertext, upload it and
// return the artifact describing what was stored.
func (o *orchestrator) encryptAndUpload(ctx context.Context, plainPath string, recordID uuid.UUID,
	kind types.ComponentKind, class types.ScheduleClass, name, ext string) (*types.Artifact, error) {
	encPath := plainPath + ".enc"
	if err := o.encryptFile(plainPath, encPath); err != nil {
		return nil, stageFailed(StageEncrypt, err)
	}

	checksum, err := crypto.ChecksumFile(encPath)
	if err != nil {
		return nil, stageFailed(StageChecksum, err)
	}

	encFile, err := os.Open(encPath)
	if err != nil {
		return nil, stageFailed(StageUpload, err)
	}
	defer encFile.Close()

	stat, err := encFile.Stat()
	if err != nil {
		return nil, stageFailed(StageUpload, err)
	}

	remoteKey := storage.RemoteKey(kind, class, name, ext)
	if err := o.store.Put(ctx, remoteKey, encFile, stat.Size()); err != nil {
		return nil, stageFailed(StageUpload, err)
	}

	return &types.Artifact{
		ID:        uuid.New(),
		RecordID:  recordID,
		Kind:      kind,
		Class:     class,
		CreatedAt: o.now(),
		SizeBytes: stat.Size(),
		Checksum:  checksum,
		RemoteKey: remoteKey,
	}, nil
}

func (o *orchestrator) encryptFile(plainPath, encPath string) error {
	src, err := os.Open(plainPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(encPath)
	if err != nil {
		return err
	}

	if _, err := o.cipher.Encrypt(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func (o *orchestrator) stagingDir(name string) (string, error) {
	runDir := filepath.Join(o.cfg.StagingDir, name)
	if err := os.MkdirAll(runDir, 0700); err != nil {
		return "", errors.Wrap(err, "failed to create staging directory")
	}
	return runDir, nil
}

// cleanupStaging removes the run's staging directory. Runs on every
// exit path, success, failure or cancellation, so local disk never
// accumulates dump or archive leftovers across retries.
func (o *orchestrator) cleanupStaging(runDir string) {
	if err := os.RemoveAll(runDir); err != nil {
		logger.Warn("failed to remove staging directory",
			zap.String("dir", runDir),
			zap.Error(err))
	}
}

func runName(t types.BackupType, ts time.Time) string {
	return fmt.Sprintf("%s-backup-%s", t, ts.UTC().Format("2006_01_02_15_04_05"))
}

func dirMissingOrEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
