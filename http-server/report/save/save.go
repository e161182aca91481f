package save

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/middleware/auth"
	"valuation-backend/internal/service/report"
	"valuation-backend/internal/storage"
)

type ReportCreator interface {
	Create(ctx context.Context, orgID, userID string, d report.Draft) (*storage.Report, error)
}

// CreateReport starts a draft and assigns its reference number.
func CreateReport(log *slog.Logger, reports ReportCreator, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.CreateReport"

		org := chi.URLParam(r, "org")
		log := log.With(slog.String("op", op), slog.String("org", org))

		var d report.Draft
		if err := render.DecodeJSON(r.Body, &d); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if d.BankCode == "" || d.PropertyType == "" {
			http.Error(w, "bankCode and propertyType are required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		rep, err := reports.Create(ctx, org, auth.UserID(r.Context()), d)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("report created", slog.String("report", rep.ID), slog.String("reference", rep.ReferenceNumber))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, rep)
	}
}
