package update

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/catalog"
	"valuation-backend/internal/middleware/auth"
	"valuation-backend/internal/storage"
)

type ReportUpdater interface {
	Update(ctx context.Context, orgID, userID, reportID string, expectedVersion int64, values map[string]any, tables map[string]catalog.TableState) (*storage.Report, error)
	Transition(ctx context.Context, orgID, userID, reportID string, next storage.ReportStatus, expectedVersion int64) (*storage.Report, error)
}

type UpdateRequest struct {
	Version     int64                         `json:"version"`
	Values      map[string]any                `json:"values"`
	TableStates map[string]catalog.TableState `json:"tableStates,omitempty"`
}

type StatusRequest struct {
	Version int64                `json:"version"`
	Status  storage.ReportStatus `json:"status"`
}

// UpdateReport saves draft content. The request carries the version the
// client last read; a stale version is answered with 409.
func UpdateReport(log *slog.Logger, reports ReportUpdater, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.UpdateReport"

		org := chi.URLParam(r, "org")
		id := chi.URLParam(r, "id")
		log := log.With(slog.String("op", op), slog.String("org", org), slog.String("report", id))

		var req UpdateRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Version <= 0 {
			http.Error(w, "version is required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		rep, err := reports.Update(ctx, org, auth.UserID(r.Context()), id, req.Version, req.Values, req.TableStates)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, rep)
	}
}

func ChangeStatus(log *slog.Logger, reports ReportUpdater, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.ChangeStatus"

		org := chi.URLParam(r, "org")
		id := chi.URLParam(r, "id")
		log := log.With(slog.String("op", op), slog.String("org", org), slog.String("report", id))

		var req StatusRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Version <= 0 || !req.Status.Valid() {
			http.Error(w, "version and a known status are required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		rep, err := reports.Transition(ctx, org, auth.UserID(r.Context()), id, req.Status, req.Version)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("report status changed", slog.String("status", string(rep.Status)))
		render.JSON(w, r, rep)
	}
}
