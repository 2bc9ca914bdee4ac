package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"custodian/internal/types"
)

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (c catalogRepository) Save(ctx context.Context, record *types.BackupRecord) error {
	return c.db.WithContext(ctx).Save(record).Error
}

func (c catalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.BackupRecord, error) {
	record := &types.BackupRecord{}
	err := c.db.WithContext(ctx).Preload("Artifacts").Where("id = ?", id).First(record).Error
	return record, err
}

func (c catalogRepository) ListRecent(ctx context.Context, n int) ([]*types.BackupRecord, error) {
	result := make([]*types.BackupRecord, 0)
	err := c.db.WithContext(ctx).Preload("Artifacts").
		Order("created_at desc").
		Limit(n).
		Find(&result).Error
	return result, err
}

func (c catalogRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*types.BackupRecord, error) {
	result := make([]*types.BackupRecord, 0)
	err := c.db.WithContext(ctx).Preload("Artifacts").
		Where("created_at < ?", cutoff).
		Find(&result).Error
	return result, err
}

func (c catalogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("record_id = ?", id).Delete(&types.Artifact{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&types.BackupRecord{}).Error
	})
}

func (c catalogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&types.BackupRecord{}).Count(&count).Error
	return count, err
}

func (c catalogRepository) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	err := c.db.WithContext(ctx).Model(&types.BackupRecord{}).
		Select("coalesce(sum(size_bytes), 0)").
		Scan(&total).Error
	return total, err
}
