package httphandlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"custodian/internal/backup"
	"custodian/internal/types"
)

type (
	ApiHandler struct {
		orchestrator backup.Orchestrator
	}
)

func NewApiHandler(orchestrator backup.Orchestrator) *ApiHandler {
	return &ApiHandler{orchestrator: orchestrator}
}

func (handler *ApiHandler) TriggerDatabaseBackup(w http.ResponseWriter, r *http.Request) {
	class, err := scheduleClass(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	record, err := handler.orchestrator.PerformDatabaseBackup(r.Context(), class)
	if err != nil {
		writeBackupError(w, err)
		return
	}

	ok(w, "database backup completed", record)
}

func (handler *ApiHandler) TriggerFullBackup(w http.ResponseWriter, r *http.Request) {
	class, err := scheduleClass(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	record, err := handler.orchestrator.PerformFullBackup(r.Context(), class)
	if err != nil {
		writeBackupError(w, err)
		return
	}

	ok(w, "full backup completed", record)
}

func (handler *ApiHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, err)
		return
	}

	var opts types.RestoreOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		badRequest(w, err)
		return
	}

	result, err := handler.orchestrator.Restore(r.Context(), id, opts)
	if err != nil {
		if result != nil {
			// partial outcome: some components failed, report which
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			b, _ := json.Marshal(response{Error: true, Message: err.Error(), Data: result})
			w.Write(b)
			return
		}
		writeBackupError(w, err)
		return
	}

	ok(w, "restore completed", result)
}

func (handler *ApiHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	result, err := handler.orchestrator.CleanupOldBackups(r.Context())
	if err != nil {
		writeBackupError(w, err)
		return
	}

	ok(w, "cleanup completed", result)
}

func (handler *ApiHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := handler.orchestrator.Status(r.Context())
	if err != nil {
		serverError(w, err)
		return
	}

	ok(w, "backup status", status)
}

func scheduleClass(r *http.Request) (types.ScheduleClass, error) {
	class := types.ScheduleClass(r.URL.Query().Get("class"))
	if class == "" {
		class = types.ScheduleManual
	}
	if !types.ValidScheduleClass(class) {
		return "", errors.New("unknown schedule class: " + class.String())
	}
	return class, nil
}

func writeBackupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backup.ErrBackupInProgress):
		conflict(w, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		notFound(w, err)
	default:
		serverError(w, err)
	}
}
