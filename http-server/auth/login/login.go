package login

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/eventbus"
	"valuation-backend/internal/storage"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, *storage.User, error)
}

type Request struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Response struct {
	Token string        `json:"token"`
	User  *storage.User `json:"user"`
}

func Login(log *slog.Logger, auth Authenticator, events eventbus.Publisher, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.Login"
		log := log.With(slog.String("op", op))

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email and password are required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		token, user, err := auth.Login(ctx, req.Email, req.Password)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		events.Publish(ctx, eventbus.NewEvent(eventbus.UserLoggedIn, user.OrgShortName,
			strconv.FormatInt(user.ID, 10), "user", strconv.FormatInt(user.ID, 10), user.Email))

		render.JSON(w, r, Response{Token: token, User: user})
	}
}
