// Package response maps service errors to HTTP statuses.
package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"valuation-backend/internal/catalog"
	authservice "valuation-backend/internal/service/auth"
	"valuation-backend/internal/service/files"
	"valuation-backend/internal/service/form"
	"valuation-backend/internal/service/report"
	"valuation-backend/internal/storage"
)

type ErrorBody struct {
	Error  string `json:"error"`
	Errors any    `json:"errors,omitempty"`
}

func Status(err error) int {
	var failed *report.ValidationFailed
	switch {
	case errors.As(err, &failed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConfiguration):
		return http.StatusPreconditionFailed
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, report.ErrNotDraft),
		errors.Is(err, report.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, form.ErrUnknownControl),
		errors.Is(err, form.ErrNotEditable),
		errors.Is(err, form.ErrDisabled),
		errors.Is(err, form.ErrNotMutable),
		errors.Is(err, form.ErrUnknownTab),
		errors.Is(err, catalog.ErrTableLimit):
		return http.StatusBadRequest
	case errors.Is(err, authservice.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, files.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, files.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, files.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ConfigurationMessage is shown when an organization lacks the setup a
// request depends on, such as reference initials.
const ConfigurationMessage = "Reference initials are not configured for this organization; contact your administrator"

// messages holds the client-facing text for rejected requests. Wrapped error
// chains carry internal op names and never reach the client.
var messages = []struct {
	err error
	msg string
}{
	{storage.ErrNotFound, "Not found"},
	{storage.ErrConfiguration, ConfigurationMessage},
	{storage.ErrConflict, "The record was changed by someone else; reload and try again"},
	{storage.ErrDuplicate, "The record already exists"},
	{report.ErrNotDraft, "Only draft reports can be edited"},
	{report.ErrInvalidTransition, "This status change is not allowed"},
	{form.ErrUnknownControl, "Unknown field"},
	{form.ErrNotEditable, "The field is read-only"},
	{form.ErrDisabled, "The field is disabled"},
	{form.ErrNotMutable, "The table cannot be changed that way"},
	{form.ErrUnknownTab, "Unknown tab"},
	{catalog.ErrTableLimit, "The table has reached its size limit"},
	{authservice.ErrInvalidCredentials, "Invalid email or password"},
	{files.ErrTooLarge, "The file is too large"},
	{files.ErrUnsupportedType, "This file type is not supported"},
	{files.ErrDisabled, "File uploads are not available"},
}

// Message returns the client-facing text for err.
func Message(err error, status int) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return http.StatusText(status)
}

// Error writes err as a JSON body with the mapped status. Server errors are
// logged with the full chain and answered with a generic message.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := Status(err)
	body := ErrorBody{Error: http.StatusText(status)}

	var failed *report.ValidationFailed
	switch {
	case errors.As(err, &failed):
		body.Errors = failed.Errors
	case status >= http.StatusInternalServerError:
		log.Error("request failed", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
	default:
		body.Error = Message(err, status)
		log.Warn("request rejected", slog.String("error", err.Error()), slog.Int("status", status))
	}

	render.Status(r, status)
	render.JSON(w, r, body)
}
