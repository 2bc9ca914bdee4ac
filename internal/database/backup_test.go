package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"custodian/internal/types"
)

func testRepo(t *testing.T) CatalogRepository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	return NewCatalogRepository(db)
}

func record(name string, createdAt time.Time, size int64) *types.BackupRecord {
	id := uuid.New()
	return &types.BackupRecord{
		ID:        id,
		Name:      name,
		Type:      types.BackupTypeDatabase,
		Class:     types.ScheduleDaily,
		CreatedAt: createdAt,
		SizeBytes: size,
		Artifacts: []*types.Artifact{{
			ID:        uuid.New(),
			RecordID:  id,
			Kind:      types.ComponentDatabase,
			Class:     types.ScheduleDaily,
			CreatedAt: createdAt,
			SizeBytes: size,
			Checksum:  "abc123",
			RemoteKey: "database/daily/" + name + ".tar.gz.enc",
		}},
	}
}

func TestCatalogRepository_SaveAndFind(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	r := record("run-1", time.Now(), 42)
	require.NoError(t, repo.Save(ctx, r))

	found, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Name, found.Name)
	require.Len(t, found.Artifacts, 1)
	assert.Equal(t, r.Artifacts[0].RemoteKey, found.Artifacts[0].RemoteKey)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCatalogRepository_ListRecentOrder(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Save(ctx, record("oldest", now.Add(-2*time.Hour), 1)))
	require.NoError(t, repo.Save(ctx, record("newest", now, 1)))
	require.NoError(t, repo.Save(ctx, record("middle", now.Add(-time.Hour), 1)))

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "newest", recent[0].Name)
	assert.Equal(t, "middle", recent[1].Name)
}

func TestCatalogRepository_ListOlderThanAndDelete(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	now := time.Now()
	old := record("expired", now.AddDate(0, 0, -40), 10)
	fresh := record("fresh", now, 10)
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, fresh))

	expired, err := repo.ListOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "expired", expired[0].Name)

	require.NoError(t, repo.Delete(ctx, old.ID))

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCatalogRepository_TotalSize(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	total, err := repo.TotalSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, repo.Save(ctx, record("a", time.Now(), 100)))
	require.NoError(t, repo.Save(ctx, record("b", time.Now(), 250)))

	total, err = repo.TotalSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 350, total)
}
