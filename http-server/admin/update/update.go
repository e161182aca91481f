package update

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/storage"
)

type AdminUpdater interface {
	GetOrganization(ctx context.Context, shortName string) (*storage.Organization, error)
	UpdateOrganization(ctx context.Context, org *storage.Organization) error
	DeactivateUser(ctx context.Context, id int64) error
}

// OrganizationRequest changes only the attributes present in the body.
type OrganizationRequest struct {
	Name              *string `json:"name"`
	ReferenceInitials *string `json:"referenceInitials"`
	IsActive          *bool   `json:"isActive"`
}

func UpdateOrganization(log *slog.Logger, admin AdminUpdater, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.UpdateOrganization"

		shortName := chi.URLParam(r, "org")
		log := log.With(slog.String("op", op), slog.String("org", shortName))

		var req OrganizationRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		org, err := admin.GetOrganization(ctx, shortName)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}
		if req.Name != nil {
			org.Name = *req.Name
		}
		if req.ReferenceInitials != nil {
			org.ReferenceInitials = strings.ToUpper(strings.TrimSpace(*req.ReferenceInitials))
		}
		if req.IsActive != nil {
			org.IsActive = *req.IsActive
		}

		if err := admin.UpdateOrganization(ctx, org); err != nil {
			response.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, org)
	}
}

func DeactivateUser(log *slog.Logger, admin AdminUpdater, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.DeactivateUser"
		log := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := admin.DeactivateUser(ctx, id); err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("user deactivated", slog.Int64("user_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
