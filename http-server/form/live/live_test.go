package live

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/middleware/auth"
	authservice "valuation-backend/internal/service/auth"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/service/session"
	"valuation-backend/internal/storage"
)

type MockTemplateResolver struct {
	mock.Mock
}

func (m *MockTemplateResolver) Resolve(ctx context.Context, bankCode, propertyType string) (*resolver.MergedTemplate, error) {
	args := m.Called(ctx, bankCode, propertyType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resolver.MergedTemplate), args.Error(1)
}

type MockReportLoader struct {
	mock.Mock
}

func (m *MockReportLoader) Get(ctx context.Context, orgID, reportID string) (*storage.Report, error) {
	args := m.Called(ctx, orgID, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Report), args.Error(1)
}

func sumTemplate() *resolver.MergedTemplate {
	num := func(id string) catalog.FieldDefinition {
		return catalog.FieldDefinition{FieldID: id, TechnicalName: id, UIDisplayName: id, FieldType: catalog.FieldNumber}
	}
	total := num("total")
	total.IsReadonly = true
	total.CalculationMetadata = &catalog.CalculationMetadata{IsCalculatedField: true, Formula: "A + B", Dependencies: []string{"A", "B"}}

	return &resolver.MergedTemplate{
		TemplateInfo: resolver.TemplateInfo{BankCode: "SBI", PropertyType: "flat"},
		Tabs:         []catalog.Tab{{TabID: "main", TabName: "Main", Fields: []catalog.FieldDefinition{num("A"), num("B"), total}}},
	}
}

func startServer(t *testing.T, res TemplateResolver, reports ReportLoader) *httptest.Server {
	t.Helper()
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &authservice.Claims{UserID: "1", OrgShortName: "cev"}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	})
	router.Get("/live/{code}/{propertyType}", Live(slog.Default(), res, reports, Options{
		Debounce: 10 * time.Millisecond,
		Timeout:  time.Second,
	}))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func TestLive_RecalculatesAfterDebounce(t *testing.T) {
	res := new(MockTemplateResolver)
	res.On("Resolve", mock.Anything, "SBI", "flat").Return(sumTemplate(), nil)
	reports := new(MockReportLoader)
	reports.On("Get", mock.Anything, "cev", "r1").Return(&storage.Report{
		ID:     "r1",
		Values: map[string]any{"A": "2", "B": "3"},
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, startServer(t, res, reports), "/live/SBI/flat?reportId=r1")

	var msg session.Message
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	require.Equal(t, session.MessageState, msg.Type)
	assert.Equal(t, 5.0, msg.State.Values["total"])

	require.NoError(t, wsjson.Write(ctx, conn, session.Request{ID: "a", Action: session.Action{Type: session.ActionSetValue, FieldID: "A", Value: "10"}}))

	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "a", msg.RequestID)
	assert.True(t, msg.State.Pending)

	msg = session.Message{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.False(t, msg.State.Pending)
	assert.Equal(t, 13.0, msg.State.Values["total"])

	conn.Close(websocket.StatusNormalClosure, "")
	reports.AssertExpectations(t)
}

func TestLive_UnknownTemplate(t *testing.T) {
	res := new(MockTemplateResolver)
	res.On("Resolve", mock.Anything, "XYZ", "flat").Return(nil, storage.ErrNotFound)

	srv := startServer(t, res, new(MockReportLoader))
	resp, err := http.Get(srv.URL + "/live/XYZ/flat")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t, []string{"localhost:5173", "app.example.com"},
		originPatterns([]string{"http://localhost:5173", "app.example.com"}))
}
