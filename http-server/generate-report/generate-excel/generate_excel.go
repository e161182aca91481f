package generate_excel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"valuation-backend/http-server/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportExporter interface {
	Report(ctx context.Context, orgID, reportID string) ([]byte, string, error)
}

// ExportReport streams one report as an Excel workbook.
func ExportReport(log *slog.Logger, exporter ReportExporter, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.ExportReport"

		org := chi.URLParam(r, "org")
		id := chi.URLParam(r, "id")
		log := log.With(slog.String("op", op), slog.String("org", org), slog.String("report", id))

		// rendering the workbook takes longer than a plain read
		ctx, cancel := context.WithTimeout(r.Context(), 2*timeout)
		defer cancel()

		excelBytes, fileName, err := exporter.Report(ctx, org, id)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		w.Header().Set("Content-Length", strconv.Itoa(len(excelBytes)))
		if _, err := w.Write(excelBytes); err != nil {
			log.Warn("write export", slog.String("error", err.Error()))
		}
	}
}
