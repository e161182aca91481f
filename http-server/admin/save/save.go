package save

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	authservice "valuation-backend/internal/service/auth"
	"valuation-backend/internal/storage"
)

type BankSaver interface {
	SaveBank(ctx context.Context, bank *storage.Bank) error
}

type AccountSaver interface {
	CreateOrganization(ctx context.Context, org *storage.Organization) error
	CreateUser(ctx context.Context, u *storage.User) error
}

func SaveBank(log *slog.Logger, admin BankSaver, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.SaveBank"
		log := log.With(slog.String("op", op))

		var bank storage.Bank
		if err := render.DecodeJSON(r.Body, &bank); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		bank.Code = strings.TrimSpace(bank.Code)
		if bank.Code == "" || bank.Name == "" {
			http.Error(w, "bankCode and bankName are required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := admin.SaveBank(ctx, &bank); err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("bank saved", slog.String("bank", bank.Code))
		render.JSON(w, r, bank)
	}
}

type OrganizationRequest struct {
	ShortName         string `json:"shortName"`
	Name              string `json:"name"`
	ReferenceInitials string `json:"referenceInitials"`
}

func CreateOrganization(log *slog.Logger, admin AccountSaver, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.CreateOrganization"
		log := log.With(slog.String("op", op))

		var req OrganizationRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.ShortName == "" || req.Name == "" {
			http.Error(w, "shortName and name are required", http.StatusBadRequest)
			return
		}

		org := &storage.Organization{
			ShortName:         strings.ToLower(strings.TrimSpace(req.ShortName)),
			Name:              req.Name,
			ReferenceInitials: strings.ToUpper(strings.TrimSpace(req.ReferenceInitials)),
			IsActive:          true,
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := admin.CreateOrganization(ctx, org); err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("organization created", slog.String("org", org.ShortName))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, org)
	}
}

type UserRequest struct {
	OrgShortName string   `json:"orgShortName"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Name         string   `json:"name"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permissions"`
}

func CreateUser(log *slog.Logger, admin AccountSaver, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.CreateUser"
		log := log.With(slog.String("op", op))

		var req UserRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.OrgShortName == "" || req.Email == "" || len(req.Password) < 8 {
			http.Error(w, "orgShortName, email and a password of at least 8 characters are required", http.StatusBadRequest)
			return
		}

		hash, err := authservice.HashPassword(req.Password)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		u := &storage.User{
			OrgShortName: req.OrgShortName,
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			PasswordHash: hash,
			Name:         req.Name,
			Roles:        req.Roles,
			Permissions:  req.Permissions,
			IsActive:     true,
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := admin.CreateUser(ctx, u); err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("user created", slog.Int64("user_id", u.ID), slog.String("org", u.OrgShortName))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, u)
	}
}
