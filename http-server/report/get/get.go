package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/storage"
)

type ReportProvider interface {
	Get(ctx context.Context, orgID, reportID string) (*storage.Report, error)
	List(ctx context.Context, orgID string, filter storage.ReportFilter) ([]*storage.Report, error)
}

type ListResponse struct {
	Reports []*storage.Report `json:"reports"`
}

func GetReport(log *slog.Logger, reports ReportProvider, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.GetReport"

		org := chi.URLParam(r, "org")
		id := chi.URLParam(r, "id")
		log := log.With(slog.String("op", op), slog.String("org", org), slog.String("report", id))

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		rep, err := reports.Get(ctx, org, id)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, rep)
	}
}

// ListReports supports status, bankCode, propertyType, createdBy, limit and
// offset query parameters.
func ListReports(log *slog.Logger, reports ReportProvider, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.ListReports"

		org := chi.URLParam(r, "org")
		log := log.With(slog.String("op", op), slog.String("org", org))

		q := r.URL.Query()
		filter := storage.ReportFilter{
			Status:       storage.ReportStatus(q.Get("status")),
			BankCode:     q.Get("bankCode"),
			PropertyType: q.Get("propertyType"),
			CreatedBy:    q.Get("createdBy"),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		var err error
		if filter.Limit, err = intParam(q.Get("limit")); err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if filter.Offset, err = intParam(q.Get("offset")); err != nil {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		list, err := reports.List(ctx, org, filter)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, ListResponse{Reports: list})
	}
}

func intParam(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
