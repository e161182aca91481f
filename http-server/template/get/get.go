package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/service/resolver"
)

type TemplateResolver interface {
	Resolve(ctx context.Context, bankCode, propertyType string) (*resolver.MergedTemplate, error)
}

// GetMergedTemplate returns the resolved template for a bank and property type.
func GetMergedTemplate(log *slog.Logger, templates TemplateResolver, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.GetMergedTemplate"

		bankCode := chi.URLParam(r, "code")
		propertyType := chi.URLParam(r, "propertyType")
		log := log.With(slog.String("op", op), slog.String("bank", bankCode), slog.String("property_type", propertyType))

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		tpl, err := templates.Resolve(ctx, bankCode, propertyType)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, tpl)
	}
}
