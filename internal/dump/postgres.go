package dump

import (
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"custodian/logger"
)

const toolTimeout = 30 * time.Minute

type postgresDumper struct {
	databaseURL string
}

// NewPostgres returns a Dumper backed by pg_dump/pg_restore. Both
// binaries must be on PATH.
func NewPostgres(databaseURL string) Dumper {
	return &postgresDumper{databaseURL: databaseURL}
}

func (p postgresDumper) Dump(ctx context.Context, destDir string) error {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pg_dump",
		"--format=directory",
		"--compress=0", // the archive stage compresses the whole dump
		"--file", destDir,
		"--dbname", p.databaseURL)

	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("pg_dump failed", zap.ByteString("output", out))
		return errors.Wrap(err, "pg_dump failed")
	}
	return nil
}

func (p postgresDumper) Apply(ctx context.Context, srcDir string) error {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pg_restore",
		"--clean",
		"--if-exists",
		"--no-owner",
		"--dbname", p.databaseURL,
		srcDir)

	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("pg_restore failed", zap.ByteString("output", out))
		return errors.Wrap(err, "pg_restore failed")
	}
	return nil
}
