package update

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
)

type TemplateActivator interface {
	SetTemplateActive(ctx context.Context, bankCode, templateID string, active bool) error
}

type Request struct {
	BankCode string `json:"bankCode"`
	IsActive bool   `json:"isActive"`
}

// SetTemplateActive switches a bank template on or off.
func SetTemplateActive(log *slog.Logger, templates TemplateActivator, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.SetTemplateActive"

		id := chi.URLParam(r, "id")
		log := log.With(slog.String("op", op), slog.String("template", id))

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil || req.BankCode == "" {
			http.Error(w, "bankCode and isActive are required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := templates.SetTemplateActive(ctx, req.BankCode, id, req.IsActive); err != nil {
			response.Error(w, r, log, err)
			return
		}

		log.Info("template status changed", slog.Bool("active", req.IsActive))
		w.WriteHeader(http.StatusNoContent)
	}
}
