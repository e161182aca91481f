package upload

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valuation-backend/internal/service/files"
)

type MockFileSaver struct {
	mock.Mock
}

func (m *MockFileSaver) Save(ctx context.Context, orgID, userID string, u files.Upload) (*files.FileInfo, error) {
	args := m.Called(ctx, orgID, userID, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*files.FileInfo), args.Error(1)
}

func (m *MockFileSaver) MaxBytes() int64 {
	return 1 << 20
}

func multipartBody(t *testing.T, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("reportId", "r1"))
	require.NoError(t, mw.WriteField("fieldId", "sitePlan"))
	if withFile {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="plan.pdf"`)
		h.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.7"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func serve(s FileSaver, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/orgs/{org}/files", UploadFile(slog.Default(), s, time.Second))
	req := httptest.NewRequest(http.MethodPost, "/orgs/cev/files", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestUploadFile(t *testing.T) {
	s := new(MockFileSaver)
	s.On("Save", mock.Anything, "cev", "", mock.MatchedBy(func(u files.Upload) bool {
		return u.ReportID == "r1" && u.FieldID == "sitePlan" && u.FileName == "plan.pdf" &&
			u.ContentType == "application/pdf" && u.Size == 8
	})).Return(&files.FileInfo{Key: "cev/r1/202511/x-plan.pdf", URL: "https://files/x", Size: 8}, nil)

	body, ct := multipartBody(t, true)
	rr := serve(s, body, ct)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "https://files/x")
	s.AssertExpectations(t)
}

func TestUploadFile_Rejections(t *testing.T) {
	s := new(MockFileSaver)
	s.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, files.ErrUnsupportedType)

	body, ct := multipartBody(t, false)
	rr := serve(s, body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body, ct = multipartBody(t, true)
	rr = serve(s, body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}
