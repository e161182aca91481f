package save

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"valuation-backend/internal/middleware/auth"
	authservice "valuation-backend/internal/service/auth"
	"valuation-backend/internal/service/report"
	"valuation-backend/internal/storage"
)

type MockReportCreator struct {
	mock.Mock
}

func (m *MockReportCreator) Create(ctx context.Context, orgID, userID string, d report.Draft) (*storage.Report, error) {
	args := m.Called(ctx, orgID, userID, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Report), args.Error(1)
}

func post(c ReportCreator, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/orgs/{org}/reports", CreateReport(slog.Default(), c, time.Second))

	req := httptest.NewRequest(http.MethodPost, "/orgs/cev/reports", strings.NewReader(body))
	req = req.WithContext(auth.WithClaims(req.Context(), &authservice.Claims{UserID: "7", OrgShortName: "cev"}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateReport_Created(t *testing.T) {
	c := new(MockReportCreator)
	c.On("Create", mock.Anything, "cev", "7", mock.MatchedBy(func(d report.Draft) bool {
		return d.BankCode == "SBI" && d.PropertyType == "land" && d.Values["area"] == "100"
	})).Return(&storage.Report{ID: "r1", ReferenceNumber: "CEV-20251128-0001", Version: 1}, nil)

	rr := post(c, `{"bankCode":"SBI","propertyType":"land","values":{"area":"100"}}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "CEV-20251128-0001")
	c.AssertExpectations(t)
}

func TestCreateReport_OrganizationNotConfigured(t *testing.T) {
	c := new(MockReportCreator)
	c.On("Create", mock.Anything, "cev", "7", mock.Anything).
		Return(nil, fmt.Errorf("service.report.Create: %w", storage.ErrConfiguration))

	rr := post(c, `{"bankCode":"SBI","propertyType":"land"}`)

	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
	assert.Contains(t, rr.Body.String(), "contact your administrator")
	assert.NotContains(t, rr.Body.String(), "service.report.Create")
}

func TestCreateReport_MissingTemplateKey(t *testing.T) {
	c := new(MockReportCreator)
	rr := post(c, `{"bankCode":"SBI"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	c.AssertNotCalled(t, "Create")
}
