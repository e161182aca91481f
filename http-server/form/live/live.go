package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/middleware/auth"
	"valuation-backend/internal/service/form"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/service/session"
	"valuation-backend/internal/storage"
)

type TemplateResolver interface {
	Resolve(ctx context.Context, bankCode, propertyType string) (*resolver.MergedTemplate, error)
}

type ReportLoader interface {
	Get(ctx context.Context, orgID, reportID string) (*storage.Report, error)
}

type Options struct {
	Debounce       time.Duration
	Timeout        time.Duration
	AllowedOrigins []string
}

// Live runs an interactive form session over a WebSocket. With ?reportId the
// session starts from the stored values of that report.
func Live(log *slog.Logger, templates TemplateResolver, reports ReportLoader, opts Options) http.HandlerFunc {
	patterns := originPatterns(opts.AllowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.form.Live"

		bankCode := chi.URLParam(r, "code")
		propertyType := chi.URLParam(r, "propertyType")
		log := log.With(slog.String("op", op), slog.String("bank", bankCode), slog.String("property_type", propertyType))

		model, err := prepare(r, templates, reports, bankCode, propertyType, opts.Timeout)
		if err != nil {
			response.Error(w, r, log, err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
		if err != nil {
			log.Warn("websocket accept", slog.String("error", err.Error()))
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		in := make(chan session.Request)
		go func() {
			defer close(in)
			for {
				var req session.Request
				if err := wsjson.Read(ctx, conn, &req); err != nil {
					if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
						log.Debug("read failed", slog.String("error", err.Error()))
					}
					return
				}
				select {
				case in <- req:
				case <-ctx.Done():
					return
				}
			}
		}()

		err = session.Run(ctx, log, model, opts.Debounce, in, func(ctx context.Context, msg session.Message) error {
			return wsjson.Write(ctx, conn, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Info("session ended", slog.String("error", err.Error()))
			return
		}

		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func prepare(r *http.Request, templates TemplateResolver, reports ReportLoader, bankCode, propertyType string, timeout time.Duration) (*form.Model, error) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	tpl, err := templates.Resolve(ctx, bankCode, propertyType)
	if err != nil {
		return nil, err
	}

	var snap *form.Snapshot
	if id := r.URL.Query().Get("reportId"); id != "" {
		claims, ok := auth.ClaimsFrom(r.Context())
		if !ok {
			return nil, storage.ErrNotFound
		}
		rep, err := reports.Get(ctx, claims.OrgShortName, id)
		if err != nil {
			return nil, err
		}
		snap = &form.Snapshot{Values: rep.Values, TableStates: rep.TableStates}
	}

	return form.Build(tpl, snap, form.WithDeferredCalculation())
}

// originPatterns turns configured CORS origins into host patterns.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
