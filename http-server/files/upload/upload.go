package upload

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/middleware/auth"
	"valuation-backend/internal/service/files"
)

const multipartMemory = 8 << 20

type FileSaver interface {
	Save(ctx context.Context, orgID, userID string, u files.Upload) (*files.FileInfo, error)
	MaxBytes() int64
}

// UploadFile accepts one multipart "file" part with optional reportId,
// fieldId and documentTypeId form values.
func UploadFile(log *slog.Logger, saver FileSaver, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.files.UploadFile"

		org := chi.URLParam(r, "org")
		log := log.With(slog.String("op", op), slog.String("org", org))

		// room for the other form parts
		r.Body = http.MaxBytesReader(w, r.Body, saver.MaxBytes()+1<<20)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid multipart form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file part is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ctx, cancel := context.WithTimeout(r.Context(), 6*timeout)
		defer cancel()

		info, err := saver.Save(ctx, org, auth.UserID(r.Context()), files.Upload{
			ReportID:       r.FormValue("reportId"),
			FieldID:        r.FormValue("fieldId"),
			DocumentTypeID: r.FormValue("documentTypeId"),
			FileName:       header.Filename,
			ContentType:    header.Header.Get("Content-Type"),
			Size:           header.Size,
			Body:           file,
		})
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("file uploaded", slog.String("key", info.Key), slog.Int64("size", info.Size))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, info)
	}
}
