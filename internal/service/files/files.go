// Package files accepts uploads for file fields and supporting documents.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"valuation-backend/internal/eventbus"
)

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrDisabled        = errors.New("file storage is not configured")
)

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// Upload describes one incoming file. ReportID and FieldID are optional; a
// supporting document carries DocumentTypeID instead of FieldID.
type Upload struct {
	ReportID       string
	FieldID        string
	DocumentTypeID string
	FileName       string
	ContentType    string
	Size           int64
	Body           io.Reader
}

type FileInfo struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type Service struct {
	log      *slog.Logger
	store    ObjectStore
	events   eventbus.Publisher
	maxBytes int64
	now      func() time.Time
}

// NewService returns a service that rejects every upload when store is nil.
func NewService(log *slog.Logger, store ObjectStore, events eventbus.Publisher, maxUploadMB int64) *Service {
	return &Service{
		log:      log,
		store:    store,
		events:   events,
		maxBytes: maxUploadMB << 20,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

func (s *Service) Save(ctx context.Context, orgID, userID string, u Upload) (*FileInfo, error) {
	const op = "service.files.Save"

	if s.store == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrDisabled)
	}
	if u.Size > s.maxBytes {
		return nil, fmt.Errorf("%s: %d bytes: %w", op, u.Size, ErrTooLarge)
	}
	contentType, _, _ := strings.Cut(u.ContentType, ";")
	if !allowedTypes[contentType] {
		return nil, fmt.Errorf("%s: %q: %w", op, u.ContentType, ErrUnsupportedType)
	}

	key := s.key(orgID, u)
	url, err := s.store.Put(ctx, key, u.Body, u.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.events.Publish(ctx, eventbus.NewEvent(eventbus.FileUploaded, orgID, userID, "file", key, u.FileName))

	return &FileInfo{
		Key:         key,
		URL:         url,
		FileName:    u.FileName,
		ContentType: contentType,
		Size:        u.Size,
	}, nil
}

// key lays files out as org/report-or-unassigned/yyyymm/uuid-name.
func (s *Service) key(orgID string, u Upload) string {
	report := u.ReportID
	if report == "" {
		report = "unassigned"
	}
	name := unsafeName.ReplaceAllString(path.Base(u.FileName), "_")
	if name == "" || name == "." || name == "_" {
		name = "file"
	}
	return path.Join(orgID, report, s.now().Format("200601"), uuid.NewString()+"-"+name)
}
