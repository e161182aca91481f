package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/middleware/auth"
)

type ReportDeleter interface {
	Delete(ctx context.Context, orgID, userID, reportID string) error
}

func DeleteReport(log *slog.Logger, reports ReportDeleter, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.DeleteReport"

		org := chi.URLParam(r, "org")
		id := chi.URLParam(r, "id")
		log := log.With(slog.String("op", op), slog.String("org", org), slog.String("report", id))

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := reports.Delete(ctx, org, auth.UserID(r.Context()), id); err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("report deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}
