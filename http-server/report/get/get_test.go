package get

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valuation-backend/internal/storage"
)

type MockReportProvider struct {
	mock.Mock
}

func (m *MockReportProvider) Get(ctx context.Context, orgID, reportID string) (*storage.Report, error) {
	args := m.Called(ctx, orgID, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Report), args.Error(1)
}

func (m *MockReportProvider) List(ctx context.Context, orgID string, filter storage.ReportFilter) ([]*storage.Report, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.Report), args.Error(1)
}

func router(p ReportProvider) http.Handler {
	r := chi.NewRouter()
	r.Get("/orgs/{org}/reports", ListReports(slog.Default(), p, time.Second))
	r.Get("/orgs/{org}/reports/{id}", GetReport(slog.Default(), p, time.Second))
	return r
}

func do(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestListReports_Filter(t *testing.T) {
	p := new(MockReportProvider)
	p.On("List", mock.Anything, "cev", storage.ReportFilter{
		Status:   storage.StatusDraft,
		BankCode: "SBI",
		Limit:    20,
		Offset:   40,
	}).Return([]*storage.Report{{ID: "r1"}, {ID: "r2"}}, nil)

	rr := do(router(p), "/orgs/cev/reports?status=draft&bankCode=SBI&limit=20&offset=40")

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ListResponse
	require.NoError(t, render.DecodeJSON(rr.Body, &resp))
	assert.Len(t, resp.Reports, 2)
	p.AssertExpectations(t)
}

func TestListReports_BadParams(t *testing.T) {
	p := new(MockReportProvider)
	for _, q := range []string{"status=lost", "limit=-1", "offset=x"} {
		rr := do(router(p), "/orgs/cev/reports?"+q)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
	p.AssertNotCalled(t, "List")
}

func TestGetReport(t *testing.T) {
	p := new(MockReportProvider)
	p.On("Get", mock.Anything, "cev", "r1").Return(&storage.Report{ID: "r1", ReferenceNumber: "CEV-20251128-0008"}, nil)
	p.On("Get", mock.Anything, "cev", "r2").Return(nil, fmt.Errorf("get: %w", storage.ErrNotFound))

	rr := do(router(p), "/orgs/cev/reports/r1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "CEV-20251128-0008")

	rr = do(router(p), "/orgs/cev/reports/r2")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
