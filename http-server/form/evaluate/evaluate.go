package evaluate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/catalog"
	"valuation-backend/internal/service/form"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/service/session"
)

type TemplateResolver interface {
	Resolve(ctx context.Context, bankCode, propertyType string) (*resolver.MergedTemplate, error)
}

type Request struct {
	Values      map[string]any                `json:"values"`
	TableStates map[string]catalog.TableState `json:"tableStates,omitempty"`
	Actions     []session.Action              `json:"actions,omitempty"`
}

type Response struct {
	session.State
	Errors []form.ValidationError `json:"errors,omitempty"`
}

// Evaluate builds the form for the posted values, applies the actions in
// order and returns the resulting controls and calculated values.
func Evaluate(log *slog.Logger, templates TemplateResolver, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.form.Evaluate"

		bankCode := chi.URLParam(r, "code")
		propertyType := chi.URLParam(r, "propertyType")
		log := log.With(slog.String("op", op), slog.String("bank", bankCode), slog.String("property_type", propertyType))

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		tpl, err := templates.Resolve(ctx, bankCode, propertyType)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		model, err := form.Build(tpl, &form.Snapshot{Values: req.Values, TableStates: req.TableStates})
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		for _, a := range req.Actions {
			if _, err := session.Apply(model, a); err != nil {
				response.Error(w, r, log, err)
				return
			}
		}

		render.JSON(w, r, Response{State: session.StateOf(model), Errors: model.Validate()})
	}
}
