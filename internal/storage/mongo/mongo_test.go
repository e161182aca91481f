package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/config"
	"valuation-backend/internal/storage"
)

// testStorage connects to MONGO_TEST_URI and uses a throwaway database.
func testStorage(t *testing.T) *Storage {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, config.Mongo{URI: uri, Database: "valuation_test_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndexes(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.db.Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestTemplates(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBank(ctx, &storage.Bank{Code: "SBI", Name: "State Bank of India", IsActive: true}))

	ref := storage.BankTemplateRef{TemplateID: "sbi-land", PropertyType: "Land", CollectionRef: "sbi_templates", Version: "1"}
	st := &storage.TemplateStructure{
		TemplateID: "sbi-land",
		Tabs:       []catalog.Tab{{TabID: "general", TabName: "General"}},
		Documents:  []storage.ContentDocument{{DocumentID: "general", Fields: []catalog.FieldDefinition{{FieldID: "owner", FieldType: catalog.FieldText}}}},
	}
	require.NoError(t, s.SaveTemplate(ctx, "SBI", ref, st))
	require.NoError(t, s.SetTemplateActive(ctx, "SBI", "sbi-land", true))

	bank, err := s.GetBank(ctx, "sbi")
	require.NoError(t, err)
	require.Len(t, bank.Templates, 1)
	assert.True(t, bank.Templates[0].IsActive)

	got, err := s.GetTemplateStructure(ctx, "sbi_templates", "sbi-land")
	require.NoError(t, err)
	assert.Equal(t, "owner", got.Documents[0].Fields[0].FieldID)

	_, err = s.GetBank(ctx, "HDFC")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.SetTemplateActive(ctx, "SBI", "missing", true), storage.ErrNotFound)
}

func TestReportVersionCheck(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	r := &storage.Report{
		ID:              uuid.NewString(),
		OrganizationID:  "cev",
		ReferenceNumber: "CEV-20251128-0008",
		Status:          storage.StatusDraft,
		Values:          map[string]any{"area": "120", "tags": []any{"corner", "road"}},
		Version:         1,
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, s.CreateReport(ctx, r))

	_, err := s.GetReport(ctx, "other", r.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	r.Version = 2
	r.Values["area"] = "150"
	require.NoError(t, s.UpdateReport(ctx, r, 1))

	stale := *r
	stale.Version = 2
	assert.ErrorIs(t, s.UpdateReport(ctx, &stale, 1), storage.ErrConflict)

	got, err := s.GetReport(ctx, "cev", r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "150", got.Values["area"])

	list, err := s.ListReports(ctx, "cev", storage.ReportFilter{Status: storage.StatusDraft})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteReport(ctx, "cev", r.ID))
	assert.ErrorIs(t, s.DeleteReport(ctx, "cev", r.ID), storage.ErrNotFound)
}
