package httphandlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func Routes(h *ApiHandler) chi.Router {
	r := chi.NewRouter()
	r.Route("/v1", func(rr chi.Router) {
		rr.Post("/backups/database", h.TriggerDatabaseBackup)
		rr.Post("/backups/full", h.TriggerFullBackup)
		rr.Post("/backups/{id}/restore", h.Restore)
		rr.Post("/backups/cleanup", h.Cleanup)
		rr.Get("/backups/status", h.Status)

		rr.Get("/h", func(writer http.ResponseWriter, request *http.Request) {
			ok(writer, "healthy", struct{}{})
		})
	})
	return r
}
