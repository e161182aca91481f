package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/storage"
)

type BankProvider interface {
	ListBanks(ctx context.Context) ([]*storage.Bank, error)
}

type OrganizationProvider interface {
	ListOrganizations(ctx context.Context) ([]*storage.Organization, error)
	ListUsers(ctx context.Context, orgShortName string) ([]*storage.User, error)
}

type ActivityProvider interface {
	ListActivity(ctx context.Context, orgID string, limit int) ([]*storage.ActivityEntry, error)
}

func ListBanks(log *slog.Logger, admin BankProvider, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.ListBanks"

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		banks, err := admin.ListBanks(ctx)
		if err != nil {
			response.Error(w, r, log.With(slog.String("op", op)), err)
			return
		}

		render.JSON(w, r, banks)
	}
}

func ListOrganizations(log *slog.Logger, admin OrganizationProvider, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.ListOrganizations"

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		orgs, err := admin.ListOrganizations(ctx)
		if err != nil {
			response.Error(w, r, log.With(slog.String("op", op)), err)
			return
		}

		render.JSON(w, r, orgs)
	}
}

func ListUsers(log *slog.Logger, admin OrganizationProvider, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.ListUsers"

		org := chi.URLParam(r, "org")

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		users, err := admin.ListUsers(ctx, org)
		if err != nil {
			response.Error(w, r, log.With(slog.String("op", op), slog.String("org", org)), err)
			return
		}

		render.JSON(w, r, users)
	}
}

// ListActivity returns the latest activity of an organization, newest first.
func ListActivity(log *slog.Logger, activity ActivityProvider, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.ListActivity"

		org := chi.URLParam(r, "org")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		entries, err := activity.ListActivity(ctx, org, limit)
		if err != nil {
			response.Error(w, r, log.With(slog.String("op", op), slog.String("org", org)), err)
			return
		}

		render.JSON(w, r, entries)
	}
}
