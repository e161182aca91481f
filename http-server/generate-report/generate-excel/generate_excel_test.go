package generate_excel

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"valuation-backend/internal/storage"
)

type MockReportExporter struct {
	mock.Mock
}

func (m *MockReportExporter) Report(ctx context.Context, orgID, reportID string) ([]byte, string, error) {
	args := m.Called(ctx, orgID, reportID)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func TestExportReport(t *testing.T) {
	e := new(MockReportExporter)
	e.On("Report", mock.Anything, "cev", "r1").Return([]byte("PK\x03\x04"), "CEV-20251128-0008.xlsx", nil)
	e.On("Report", mock.Anything, "cev", "r2").Return(nil, "", storage.ErrNotFound)

	r := chi.NewRouter()
	r.Get("/orgs/{org}/reports/{id}/export", ExportReport(slog.Default(), e, time.Second))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orgs/cev/reports/r1/export", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "CEV-20251128-0008.xlsx")
	assert.Equal(t, "PK\x03\x04", rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orgs/cev/reports/r2/export", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
