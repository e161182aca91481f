package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/eventbus"
	"valuation-backend/internal/middleware/auth"
)

type ReferenceGenerator interface {
	Next(ctx context.Context, orgShortName string) (string, error)
}

type Response struct {
	ReferenceNumber string `json:"referenceNumber"`
}

// NextReferenceNumber reserves the next number of the organization. Each call
// consumes a number whether or not a report uses it.
func NextReferenceNumber(log *slog.Logger, refs ReferenceGenerator, events eventbus.Publisher, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reference.NextReferenceNumber"

		org := chi.URLParam(r, "org")
		log := log.With(slog.String("op", op), slog.String("org", org))

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		ref, err := refs.Next(ctx, org)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		events.Publish(ctx, eventbus.NewEvent(eventbus.ReferenceAssigned, org, auth.UserID(r.Context()), "reference", ref, ref))

		render.JSON(w, r, Response{ReferenceNumber: ref})
	}
}
