package save

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/eventbus"
	"valuation-backend/internal/service/templatelint"
	"valuation-backend/internal/storage"
)

type MockTemplateSaver struct {
	mock.Mock
}

func (m *MockTemplateSaver) GetCommonFields(ctx context.Context) (*storage.CommonFields, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.CommonFields), args.Error(1)
}

func (m *MockTemplateSaver) SaveTemplate(ctx context.Context, bankCode string, ref storage.BankTemplateRef, st *storage.TemplateStructure) error {
	return m.Called(ctx, bankCode, ref, st).Error(0)
}

type stubLinter []templatelint.Issue

func (s stubLinter) Check(*storage.TemplateStructure, ...string) []templatelint.Issue {
	return s
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, eventbus.Event) {}

const body = `{
	"bankCode": "SBI",
	"templateId": "sbi-land-v2",
	"propertyType": "land",
	"version": "2",
	"isActive": true,
	"structure": {"tabs": [], "documents": []}
}`

func TestSaveTemplate_Stored(t *testing.T) {
	saver := new(MockTemplateSaver)
	saver.On("GetCommonFields", mock.Anything).Return(&storage.CommonFields{
		Fields: []catalog.FieldDefinition{{FieldID: "reportDate", FieldType: catalog.FieldDate}},
	}, nil)
	saver.On("SaveTemplate", mock.Anything, "SBI", mock.MatchedBy(func(ref storage.BankTemplateRef) bool {
		return ref.TemplateID == "sbi-land-v2" && ref.CollectionRef == "templates_sbi" && ref.IsActive
	}), mock.MatchedBy(func(st *storage.TemplateStructure) bool {
		return st.BankCode == "SBI" && st.PropertyType == "land"
	})).Return(nil)

	warn := stubLinter{{Severity: templatelint.SeverityWarning, Path: "tabs", Message: "no tabs"}}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/templates", strings.NewReader(body))
	rr := httptest.NewRecorder()
	SaveTemplate(slog.Default(), saver, warn, nopPublisher{}, time.Second).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp Response
	require.NoError(t, render.DecodeJSON(rr.Body, &resp))
	assert.Len(t, resp.Issues, 1)
	saver.AssertExpectations(t)
}

func TestSaveTemplate_LintFailure(t *testing.T) {
	saver := new(MockTemplateSaver)
	saver.On("GetCommonFields", mock.Anything).Return(nil, storage.ErrNotFound)

	fail := stubLinter{{Severity: templatelint.SeverityError, Path: "documents", Message: "duplicate fieldId"}}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/templates", strings.NewReader(body))
	rr := httptest.NewRecorder()
	SaveTemplate(slog.Default(), saver, fail, nopPublisher{}, time.Second).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "duplicate fieldId")
	saver.AssertNotCalled(t, "SaveTemplate")
}

func TestSaveTemplate_MissingFields(t *testing.T) {
	saver := new(MockTemplateSaver)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/templates", strings.NewReader(`{"bankCode":"SBI"}`))
	rr := httptest.NewRecorder()
	SaveTemplate(slog.Default(), saver, stubLinter{}, nopPublisher{}, time.Second).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
