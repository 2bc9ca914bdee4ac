package httphandlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"custodian/internal/backup"
	"custodian/internal/types"
)

type stubOrchestrator struct {
	record     *types.BackupRecord
	backupErr  error
	restoreErr error
}

func (s *stubOrchestrator) PerformDatabaseBackup(context.Context, types.ScheduleClass) (*types.BackupRecord, error) {
	return s.record, s.backupErr
}

func (s *stubOrchestrator) PerformFullBackup(context.Context, types.ScheduleClass) (*types.BackupRecord, error) {
	return s.record, s.backupErr
}

func (s *stubOrchestrator) Restore(_ context.Context, id uuid.UUID, _ types.RestoreOptions) (*types.RestoreResult, error) {
	if s.restoreErr != nil {
		return nil, s.restoreErr
	}
	return &types.RestoreResult{RecordID: id}, nil
}

func (s *stubOrchestrator) CleanupOldBackups(context.Context) (*types.CleanupResult, error) {
	return &types.CleanupResult{}, s.backupErr
}

func (s *stubOrchestrator) Status(context.Context) (*types.Status, error) {
	return &types.Status{RetentionDays: 30}, nil
}

func (s *stubOrchestrator) SetNextRunSource(func() *time.Time) {}

func serve(t *testing.T, stub *stubOrchestrator, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := Routes(NewApiHandler(stub))

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTriggerDatabaseBackup(t *testing.T) {
	stub := &stubOrchestrator{record: &types.BackupRecord{ID: uuid.New(), Name: "run-1"}}

	rec := serve(t, stub, http.MethodPost, "/v1/backups/database?class=manual", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Error bool                `json:"error"`
		Data  *types.BackupRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Error)
	assert.Equal(t, "run-1", resp.Data.Name)
}

func TestTriggerBackup_UnknownClassRejected(t *testing.T) {
	rec := serve(t, &stubOrchestrator{}, http.MethodPost, "/v1/backups/full?class=hourly", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerBackup_ConflictWhenBusy(t *testing.T) {
	stub := &stubOrchestrator{backupErr: backup.ErrBackupInProgress}

	rec := serve(t, stub, http.MethodPost, "/v1/backups/database", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRestore_UnknownRecordIs404(t *testing.T) {
	stub := &stubOrchestrator{restoreErr: gorm.ErrRecordNotFound}

	rec := serve(t, stub, http.MethodPost, "/v1/backups/"+uuid.NewString()+"/restore", `{"database":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRestore_BadIDRejected(t *testing.T) {
	rec := serve(t, &stubOrchestrator{}, http.MethodPost, "/v1/backups/not-a-uuid/restore", `{"database":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus(t *testing.T) {
	rec := serve(t, &stubOrchestrator{}, http.MethodGet, "/v1/backups/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data types.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 30, resp.Data.RetentionDays)
}
