package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/eventbus"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/storage"
)

type MockReportStorage struct {
	mock.Mock
}

func (m *MockReportStorage) CreateReport(ctx context.Context, r *storage.Report) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReportStorage) GetReport(ctx context.Context, orgID, reportID string) (*storage.Report, error) {
	args := m.Called(ctx, orgID, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Report), args.Error(1)
}

func (m *MockReportStorage) ListReports(ctx context.Context, orgID string, filter storage.ReportFilter) ([]*storage.Report, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.Report), args.Error(1)
}

func (m *MockReportStorage) UpdateReport(ctx context.Context, r *storage.Report, expectedVersion int64) error {
	return m.Called(ctx, r, expectedVersion).Error(0)
}

func (m *MockReportStorage) DeleteReport(ctx context.Context, orgID, reportID string) error {
	return m.Called(ctx, orgID, reportID).Error(0)
}

type staticTemplates struct {
	tpl *resolver.MergedTemplate
}

func (s staticTemplates) Resolve(context.Context, string, string) (*resolver.MergedTemplate, error) {
	if s.tpl == nil {
		return nil, storage.ErrNotFound
	}
	return s.tpl, nil
}

type fixedReference struct {
	ref string
	err error
}

func (f fixedReference) Next(context.Context, string) (string, error) {
	return f.ref, f.err
}

type recorder struct {
	events []eventbus.Event
}

func (r *recorder) Publish(_ context.Context, evt eventbus.Event) {
	r.events = append(r.events, evt)
}

func landTemplate() *resolver.MergedTemplate {
	total := catalog.FieldDefinition{
		FieldID:    "total",
		FieldType:  catalog.FieldNumber,
		IsReadonly: true,
		CalculationMetadata: &catalog.CalculationMetadata{
			IsCalculatedField: true,
			Formula:           "area * rate",
			Dependencies:      []string{"area", "rate"},
		},
	}
	return &resolver.MergedTemplate{
		TemplateInfo: resolver.TemplateInfo{BankCode: "SBI", PropertyType: "Land", TemplateID: "sbi-land-v2"},
		Tabs: []catalog.Tab{{TabID: "valuation", Fields: []catalog.FieldDefinition{
			{FieldID: "owner", FieldType: catalog.FieldText, IsRequired: true},
			{FieldID: "area", FieldType: catalog.FieldNumber},
			{FieldID: "rate", FieldType: catalog.FieldNumber},
			total,
		}}},
	}
}

func newService(store *MockReportStorage, ref fixedReference) (*Service, *recorder) {
	rec := &recorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, store, staticTemplates{tpl: landTemplate()}, ref, rec), rec
}

func TestCreate_AssignsReferenceAndComputes(t *testing.T) {
	store := new(MockReportStorage)
	store.On("CreateReport", mock.Anything, mock.AnythingOfType("*storage.Report")).Return(nil)
	svc, rec := newService(store, fixedReference{ref: "CEV-20251128-0008"})

	r, err := svc.Create(context.Background(), "cev", "u1", Draft{
		BankCode:     "SBI",
		PropertyType: "land",
		Values:       map[string]any{"area": "120", "rate": "1500", "total": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "CEV-20251128-0008", r.ReferenceNumber)
	assert.Equal(t, storage.StatusDraft, r.Status)
	assert.Equal(t, int64(1), r.Version)
	assert.Equal(t, "Land", r.PropertyType)
	assert.Equal(t, 180000.0, r.Values["total"])
	assert.NotEmpty(t, r.ID)
	require.Len(t, rec.events, 1)
	assert.Equal(t, eventbus.ReportCreated, rec.events[0].Type)
	store.AssertExpectations(t)
}

func TestCreate_MissingInitialsBlocks(t *testing.T) {
	store := new(MockReportStorage)
	svc, _ := newService(store, fixedReference{err: storage.ErrConfiguration})

	_, err := svc.Create(context.Background(), "cev", "u1", Draft{BankCode: "SBI", PropertyType: "land"})
	assert.ErrorIs(t, err, storage.ErrConfiguration)
	store.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything)
}

func TestUpdate_VersionMismatchIsConflict(t *testing.T) {
	store := new(MockReportStorage)
	store.On("GetReport", mock.Anything, "cev", "r1").Return(&storage.Report{ID: "r1", Status: storage.StatusDraft, Version: 3}, nil)
	svc, _ := newService(store, fixedReference{})

	_, err := svc.Update(context.Background(), "cev", "u1", "r1", 2, nil, nil)
	assert.ErrorIs(t, err, storage.ErrConflict)
	store.AssertNotCalled(t, "UpdateReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_IncrementsVersion(t *testing.T) {
	store := new(MockReportStorage)
	store.On("GetReport", mock.Anything, "cev", "r1").Return(&storage.Report{
		ID: "r1", BankCode: "SBI", PropertyType: "Land", Status: storage.StatusDraft, Version: 3,
	}, nil)
	store.On("UpdateReport", mock.Anything, mock.AnythingOfType("*storage.Report"), int64(3)).Return(nil)
	svc, _ := newService(store, fixedReference{})

	r, err := svc.Update(context.Background(), "cev", "u2", "r1", 3, map[string]any{"area": 10, "rate": 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.Version)
	assert.Equal(t, "u2", r.UpdatedBy)
	assert.Equal(t, 20.0, r.Values["total"])
}

func TestUpdate_ConcurrentWriterLoses(t *testing.T) {
	store := new(MockReportStorage)
	store.On("GetReport", mock.Anything, "cev", "r1").Return(&storage.Report{
		ID: "r1", BankCode: "SBI", PropertyType: "Land", Status: storage.StatusDraft, Version: 3,
	}, nil)
	store.On("UpdateReport", mock.Anything, mock.Anything, int64(3)).Return(storage.ErrConflict)
	svc, rec := newService(store, fixedReference{})

	_, err := svc.Update(context.Background(), "cev", "u2", "r1", 3, nil, nil)
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.Empty(t, rec.events)
}

func TestUpdate_OnlyDrafts(t *testing.T) {
	store := new(MockReportStorage)
	store.On("GetReport", mock.Anything, "cev", "r1").Return(&storage.Report{ID: "r1", Status: storage.StatusSubmitted, Version: 1}, nil)
	svc, _ := newService(store, fixedReference{})

	_, err := svc.Update(context.Background(), "cev", "u1", "r1", 1, nil, nil)
	assert.ErrorIs(t, err, ErrNotDraft)
}

func TestTransition_SubmitValidates(t *testing.T) {
	store := new(MockReportStorage)
	store.On("GetReport", mock.Anything, "cev", "r1").Return(&storage.Report{
		ID: "r1", BankCode: "SBI", PropertyType: "Land", Status: storage.StatusDraft, Version: 1,
		Values: map[string]any{"area": "x"},
	}, nil)
	svc, _ := newService(store, fixedReference{})

	_, err := svc.Transition(context.Background(), "cev", "u1", "r1", storage.StatusSubmitted, 1)

	var vf *ValidationFailed
	require.True(t, errors.As(err, &vf))
	assert.Len(t, vf.Errors, 2)
}

func TestTransition_Workflow(t *testing.T) {
	store := new(MockReportStorage)
	store.On("GetReport", mock.Anything, "cev", "r1").Return(&storage.Report{
		ID: "r1", Status: storage.StatusReviewed, Version: 5,
	}, nil)
	store.On("UpdateReport", mock.Anything, mock.Anything, int64(5)).Return(nil)
	svc, rec := newService(store, fixedReference{})

	_, err := svc.Transition(context.Background(), "cev", "u1", "r1", storage.StatusDraft, 5)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	r, err := svc.Transition(context.Background(), "cev", "u1", "r1", storage.StatusApproved, 5)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusApproved, r.Status)
	assert.Equal(t, int64(6), r.Version)
	require.Len(t, rec.events, 1)
	assert.Equal(t, eventbus.ReportStatusChanged, rec.events[0].Type)
}
