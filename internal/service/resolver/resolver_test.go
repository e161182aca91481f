package resolver

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
	"valuation-backend/internal/storage"
)

type MockTemplateStorage struct {
	mock.Mock
}

func (m *MockTemplateStorage) GetBank(ctx context.Context, code string) (*storage.Bank, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Bank), args.Error(1)
}

func (m *MockTemplateStorage) GetTemplateStructure(ctx context.Context, collectionRef, templateID string) (*storage.TemplateStructure, error) {
	args := m.Called(ctx, collectionRef, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.TemplateStructure), args.Error(1)
}

func (m *MockTemplateStorage) GetCommonFields(ctx context.Context) (*storage.CommonFields, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.CommonFields), args.Error(1)
}

func (m *MockTemplateStorage) GetDocumentTypes(ctx context.Context, bankCode, propertyType string) ([]catalog.DocumentType, error) {
	args := m.Called(ctx, bankCode, propertyType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.DocumentType), args.Error(1)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fields(ids ...string) []catalog.FieldDefinition {
	out := make([]catalog.FieldDefinition, len(ids))
	for i, id := range ids {
		out[i] = catalog.FieldDefinition{FieldID: id, FieldType: catalog.FieldText}
	}
	return out
}

func ids(fs []catalog.FieldDefinition) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.FieldID
	}
	return out
}

func sbi() *storage.Bank {
	label := "Owner (as per sale deed)"
	return &storage.Bank{
		Code:     "SBI",
		Name:     "State Bank of India",
		IsActive: true,
		Templates: []storage.BankTemplateRef{
			{TemplateID: "sbi-flat-v1", PropertyType: "Apartment", CollectionRef: "sbi_templates", IsActive: false},
			{TemplateID: "sbi-land-v2", TemplateName: "Land valuation", PropertyType: "Land", CollectionRef: "sbi_templates", Version: "2", IsActive: true},
		},
		FieldOverlays: map[string]storage.FieldOverlay{
			"owner_name": {UIDisplayName: &label},
		},
	}
}

func TestMerge_AccumulatesSectionFields(t *testing.T) {
	st := &storage.TemplateStructure{
		Tabs: []catalog.Tab{{
			TabID:       "property",
			HasSections: true,
			Sections: []catalog.Section{
				{SectionID: "boundaries", SortOrder: 2},
				{SectionID: "location", SortOrder: 1},
				{SectionID: "utilities", SortOrder: 3},
			},
		}},
		Documents: []storage.ContentDocument{
			{DocumentID: "land", Sections: []storage.ContentSection{{SectionID: "location", Fields: fields("a", "b", "c")}}},
			{DocumentID: "land_extra", Sections: []storage.ContentSection{{
				SectionID:             "location",
				Fields:                fields("d", "e"),
				UseDocumentCollection: true,
				DocumentFilter:        map[string]any{"category": "land"},
			}}},
		},
	}

	tabs, warnings := Merge(st)
	require.Len(t, tabs, 1)
	assert.Empty(t, warnings)

	secs := tabs[0].Sections
	require.Len(t, secs, 3)
	assert.Equal(t, "location", secs[0].SectionID)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(secs[0].Fields))
	assert.True(t, secs[0].UseDocumentCollection)
	assert.Equal(t, "land", secs[0].DocumentFilter["category"])

	assert.NotNil(t, secs[1].Fields)
	assert.Empty(t, secs[1].Fields)
}

func TestMerge_TabMatching(t *testing.T) {
	st := &storage.TemplateStructure{
		Tabs: []catalog.Tab{
			{TabID: "inspection_checklist", SortOrder: 3},
			{TabID: "property_details", SortOrder: 1},
			{TabID: "Valuation", SortOrder: 2},
		},
		Documents: []storage.ContentDocument{
			{DocumentID: "detailedvaluation", Fields: fields("rate")},
			{DocumentID: "propertydetails_land", Fields: fields("survey_no")},
			{DocumentID: "Valuation", Fields: fields("market_value")},
		},
	}

	tabs, _ := Merge(st)
	require.Len(t, tabs, 3)

	assert.Equal(t, "property_details", tabs[0].TabID)
	assert.Equal(t, []string{"survey_no"}, ids(tabs[0].Fields))

	assert.Equal(t, []string{"market_value"}, ids(tabs[1].Fields))

	assert.Equal(t, "inspection_checklist", tabs[2].TabID)
	assert.NotNil(t, tabs[2].Fields)
	assert.Empty(t, tabs[2].Fields)
}

func TestMerge_ReportsDuplicateFieldIDs(t *testing.T) {
	st := &storage.TemplateStructure{
		Tabs: []catalog.Tab{{TabID: "t", HasSections: true, Sections: []catalog.Section{{SectionID: "s"}}}},
		Documents: []storage.ContentDocument{
			{DocumentID: "one", Sections: []storage.ContentSection{{SectionID: "s", Fields: fields("x", "y")}}},
			{DocumentID: "two", Sections: []storage.ContentSection{{SectionID: "s", Fields: fields("x")}}},
		},
	}

	tabs, warnings := Merge(st)
	assert.Len(t, tabs[0].Sections[0].Fields, 3)
	assert.Equal(t, []string{"section s: duplicate fieldId x"}, warnings)
}

func TestResolve_Success(t *testing.T) {
	store := new(MockTemplateStorage)
	store.On("GetBank", mock.Anything, "SBI").Return(sbi(), nil)
	store.On("GetTemplateStructure", mock.Anything, "sbi_templates", "sbi-land-v2").Return(&storage.TemplateStructure{
		Tabs:      []catalog.Tab{{TabID: "owner"}},
		Documents: []storage.ContentDocument{{DocumentID: "owner", Fields: fields("owner_name")}},
	}, nil)
	store.On("GetCommonFields", mock.Anything).Return(&storage.CommonFields{Fields: fields("applicant")}, nil)
	store.On("GetDocumentTypes", mock.Anything, "SBI", "Land").Return([]catalog.DocumentType{{ID: "sale_deed", Name: "Sale deed", IsRequired: true}}, nil)

	merged, err := NewService(discard(), store).Resolve(context.Background(), "SBI", "land")
	require.NoError(t, err)

	assert.Equal(t, "sbi-land-v2", merged.TemplateInfo.TemplateID)
	assert.Equal(t, "State Bank of India", merged.TemplateInfo.BankName)
	assert.Equal(t, []string{"applicant"}, ids(merged.CommonFields))
	require.Len(t, merged.Tabs, 1)
	assert.Equal(t, "Owner (as per sale deed)", merged.Tabs[0].Fields[0].UIDisplayName)
	assert.Len(t, merged.DocumentTypes, 1)
	assert.Equal(t, []string{"applicant", "owner_name"}, ids(merged.Fields()))

	store.AssertExpectations(t)
}

func TestResolve_MissingContentDegrades(t *testing.T) {
	store := new(MockTemplateStorage)
	store.On("GetBank", mock.Anything, "SBI").Return(sbi(), nil)
	store.On("GetTemplateStructure", mock.Anything, "sbi_templates", "sbi-land-v2").Return(nil, storage.ErrNotFound)
	store.On("GetCommonFields", mock.Anything).Return(nil, storage.ErrNotFound)
	store.On("GetDocumentTypes", mock.Anything, "SBI", "Land").Return(nil, storage.ErrNotFound)

	merged, err := NewService(discard(), store).Resolve(context.Background(), "SBI", "LAND")
	require.NoError(t, err)

	assert.Empty(t, merged.Tabs)
	assert.Empty(t, merged.CommonFields)
	assert.NotNil(t, merged.DocumentTypes)
	assert.Len(t, merged.Warnings, 1)
}

func TestResolve_NotFound(t *testing.T) {
	store := new(MockTemplateStorage)
	store.On("GetBank", mock.Anything, "XYZ").Return(nil, storage.ErrNotFound)
	store.On("GetBank", mock.Anything, "SBI").Return(sbi(), nil)

	svc := NewService(discard(), store)

	_, err := svc.Resolve(context.Background(), "XYZ", "land")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Resolve(context.Background(), "SBI", "apartment")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolve_StorageFailure(t *testing.T) {
	boom := errors.New("connection reset")

	store := new(MockTemplateStorage)
	store.On("GetBank", mock.Anything, "SBI").Return(sbi(), nil)
	store.On("GetTemplateStructure", mock.Anything, "sbi_templates", "sbi-land-v2").Return(nil, boom)
	store.On("GetCommonFields", mock.Anything).Return(&storage.CommonFields{}, nil)
	store.On("GetDocumentTypes", mock.Anything, "SBI", "Land").Return([]catalog.DocumentType{}, nil)

	_, err := NewService(discard(), store).Resolve(context.Background(), "SBI", "land")
	assert.ErrorIs(t, err, boom)
}
