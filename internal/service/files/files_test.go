package files

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valuation-backend/internal/eventbus"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, key, body, size, contentType)
	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e eventbus.Event) {
	p.events = append(p.events, e)
}

func newTestService(store ObjectStore, pub eventbus.Publisher) *Service {
	s := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, pub, 1)
	s.now = func() time.Time { return time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestSave_Success(t *testing.T) {
	store := new(MockObjectStore)
	store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "cev/r1/202511/") && strings.HasSuffix(key, "-site_plan_1.pdf")
	}), mock.Anything, int64(4), "application/pdf").Return("https://files/x", nil)
	pub := &recordingPublisher{}

	info, err := newTestService(store, pub).Save(context.Background(), "cev", "7", Upload{
		ReportID:    "r1",
		FieldID:     "plan",
		FileName:    "../site plan 1.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Body:        strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://files/x", info.URL)
	assert.Equal(t, "application/pdf", info.ContentType)
	require.Len(t, pub.events, 1)
	assert.Equal(t, eventbus.FileUploaded, pub.events[0].Type)
	store.AssertExpectations(t)
}

func TestSave_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		store  ObjectStore
		upload Upload
		want   error
	}{
		{
			name:   "too large",
			store:  new(MockObjectStore),
			upload: Upload{FileName: "a.pdf", ContentType: "application/pdf", Size: 2 << 20},
			want:   ErrTooLarge,
		},
		{
			name:   "unsupported type",
			store:  new(MockObjectStore),
			upload: Upload{FileName: "a.exe", ContentType: "application/octet-stream", Size: 1},
			want:   ErrUnsupportedType,
		},
		{
			name:   "no store",
			upload: Upload{FileName: "a.pdf", ContentType: "application/pdf", Size: 1},
			want:   ErrDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(tt.store, &recordingPublisher{}).Save(context.Background(), "cev", "7", tt.upload)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
