package config

import (
	"encoding/hex"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

type Config struct {
	// EncryptionKey is the 32-byte key every backup artifact is
	// encrypted with before leaving the host. Hex-encoded in the
	// environment; losing it makes every stored backup unreadable.
	EncryptionKey []byte

	// RetentionDays is how long a backup record and its remote
	// artifacts are kept before the cleanup job removes them.
	RetentionDays int

	// StagingDir holds in-flight dump and archive files. Owned
	// exclusively by the running pipeline and emptied on completion.
	StagingDir string

	// UploadsDir is the directory of user-uploaded files included in
	// full backups. May be absent on a fresh install.
	UploadsDir string

	// DatabaseURL is the connection string handed to pg_dump/pg_restore.
	DatabaseURL string

	// CatalogPath is the sqlite file backing the backup catalog.
	CatalogPath string

	Storage StorageConfig

	HTTPAddr string
	Mode     string

	// Cron expressions for the scheduled cadences. Defaults cover
	// daily database backups, weekly/monthly full backups and a daily
	// cleanup; override per-deployment via the environment.
	DailyBackupCron   string
	WeeklyBackupCron  string
	MonthlyBackupCron string
	CleanupCron       string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

func New() (Config, error) {
	key, err := hex.DecodeString(os.Getenv("BACKUP_ENCRYPTION_KEY"))
	if err != nil {
		return Config{}, errors.Wrap(err, "BACKUP_ENCRYPTION_KEY is not valid hex")
	}
	if len(key) != 32 {
		return Config{}, errors.Errorf("BACKUP_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}

	retention, err := intEnv("BACKUP_RETENTION_DAYS", 30)
	if err != nil {
		return Config{}, err
	}

	return Config{
		EncryptionKey:     key,
		RetentionDays:     retention,
		StagingDir:        strEnv("BACKUP_STAGING_DIR", "/var/custodian/staging"),
		UploadsDir:        strEnv("UPLOADS_DIR", "/var/custodian/uploads"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		CatalogPath:       strEnv("CATALOG_PATH", "/var/custodian/catalog.db"),
		HTTPAddr:          strEnv("HTTP_ADDR", ":3655"),
		Mode:              strEnv("MODE", "development"),
		DailyBackupCron:   strEnv("DAILY_BACKUP_CRON", "0 2 * * *"),
		WeeklyBackupCron:  strEnv("WEEKLY_BACKUP_CRON", "0 3 * * 0"),
		MonthlyBackupCron: strEnv("MONTHLY_BACKUP_CRON", "0 4 1 * *"),
		CleanupCron:       strEnv("CLEANUP_CRON", "30 5 * * *"),
		Storage: StorageConfig{
			Endpoint:  os.Getenv("OBJECT_STORAGE_ENDPOINT"),
			AccessKey: os.Getenv("OBJECT_STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("OBJECT_STORAGE_SECRET_KEY"),
			Region:    strEnv("OBJECT_STORAGE_REGION", "us-east-1"),
			Bucket:    strEnv("OBJECT_STORAGE_BUCKET", "backups"),
			UseSSL:    os.Getenv("OBJECT_STORAGE_USE_SSL") == "true",
		},
	}, nil
}

// Redacted returns a copy safe to serialize into a configuration
// snapshot: secrets are masked, everything operational is kept.
func (c Config) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"retention_days":      c.RetentionDays,
		"staging_dir":         c.StagingDir,
		"uploads_dir":         c.UploadsDir,
		"catalog_path":        c.CatalogPath,
		"http_addr":           c.HTTPAddr,
		"mode":                c.Mode,
		"daily_backup_cron":   c.DailyBackupCron,
		"weekly_backup_cron":  c.WeeklyBackupCron,
		"monthly_backup_cron": c.MonthlyBackupCron,
		"cleanup_cron":        c.CleanupCron,
		"storage_endpoint":    c.Storage.Endpoint,
		"storage_bucket":      c.Storage.Bucket,
		"storage_region":      c.Storage.Region,
		"storage_access_key":  mask(c.Storage.AccessKey),
		"storage_secret_key":  mask(c.Storage.SecretKey),
		"database_url":        mask(c.DatabaseURL),
		"encryption_key":      mask(hex.EncodeToString(c.EncryptionKey)),
	}
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	return "****"
}

func strEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func intEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s must be an integer", name)
	}
	return n, nil
}
