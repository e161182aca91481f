package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	getadmin "valuation-backend/http-server/admin/get"
	saveadmin "valuation-backend/http-server/admin/save"
	upadmin "valuation-backend/http-server/admin/update"
	"valuation-backend/http-server/auth/login"
	"valuation-backend/http-server/files/upload"
	"valuation-backend/http-server/form/evaluate"
	"valuation-backend/http-server/form/live"
	generate_excel "valuation-backend/http-server/generate-report/generate-excel"
	getreference "valuation-backend/http-server/reference/get"
	getreport "valuation-backend/http-server/report/get"
	"valuation-backend/http-server/report/remove"
	savereport "valuation-backend/http-server/report/save"
	upreport "valuation-backend/http-server/report/update"
	gettemplate "valuation-backend/http-server/template/get"
	savetemplate "valuation-backend/http-server/template/save"
	uptemplate "valuation-backend/http-server/template/update"
	"valuation-backend/internal/config"
	"valuation-backend/internal/eventbus"
	"valuation-backend/internal/middleware/auth"
	authservice "valuation-backend/internal/service/auth"
	"valuation-backend/internal/service/export"
	"valuation-backend/internal/service/files"
	"valuation-backend/internal/service/reference"
	"valuation-backend/internal/service/report"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/service/templatelint"
	"valuation-backend/internal/storage/mongo"
	"valuation-backend/internal/storage/mysql"
)

const frontendDir = "./frontend-dist"

type dependencies struct {
	sql        *mysql.Storage
	docs       *mongo.Storage
	auth       *authservice.Service
	templates  *resolver.Service
	references *reference.Service
	reports    *report.Service
	exports    *export.Service
	files      *files.Service
	linter     *templatelint.Linter
	events     eventbus.Publisher
}

func routes(cfg config.Config, log *slog.Logger, d dependencies) *chi.Mux {
	router := chi.NewRouter()
	timeout := cfg.HTTPServer.RequestTimeout

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTPServer.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.With(auth.RateLimit(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.Burst)).
		Post("/api/auth/login", login.Login(log, d.auth, d.events, timeout))

	router.Group(func(r chi.Router) {
		r.Use(auth.Bearer(log, d.auth))

		r.Route("/api/banks/{code}/templates/{propertyType}", func(r chi.Router) {
			r.Get("/", gettemplate.GetMergedTemplate(log, d.templates, timeout))
			r.Post("/form", evaluate.Evaluate(log, d.templates, timeout))
			r.Get("/live", live.Live(log, d.templates, d.reports, live.Options{
				Debounce:       cfg.Form.Debounce,
				Timeout:        timeout,
				AllowedOrigins: cfg.HTTPServer.AllowedOrigins,
			}))
		})

		r.Route("/api/organizations/{org}", func(r chi.Router) {
			r.Use(auth.RequireOrg)

			r.Get("/reports", getreport.ListReports(log, d.reports, timeout))
			r.Post("/reports", savereport.CreateReport(log, d.reports, timeout))
			r.Get("/reports/{id}", getreport.GetReport(log, d.reports, timeout))
			r.Put("/reports/{id}", upreport.UpdateReport(log, d.reports, timeout))
			r.Delete("/reports/{id}", remove.DeleteReport(log, d.reports, timeout))
			r.Post("/reports/{id}/status", upreport.ChangeStatus(log, d.reports, timeout))
			r.Get("/reports/{id}/export", generate_excel.ExportReport(log, d.exports, timeout))

			r.Get("/reference-number", getreference.NextReferenceNumber(log, d.references, d.events, timeout))
			r.Post("/files", upload.UploadFile(log, d.files, timeout))
			r.Get("/activity", getadmin.ListActivity(log, d.sql, timeout))
		})
	})

	adminRouter := chi.NewRouter()
	adminRouter.Use(auth.BasicAuth(cfg.Admin.Login, cfg.Admin.Pass))

	adminRouter.Get("/banks", getadmin.ListBanks(log, d.docs, timeout))
	adminRouter.Post("/banks", saveadmin.SaveBank(log, d.docs, timeout))
	adminRouter.Post("/templates", savetemplate.SaveTemplate(log, d.docs, d.linter, d.events, timeout))
	adminRouter.Put("/templates/{id}", uptemplate.SetTemplateActive(log, d.docs, timeout))
	adminRouter.Get("/organizations", getadmin.ListOrganizations(log, d.sql, timeout))
	adminRouter.Post("/organizations", saveadmin.CreateOrganization(log, d.sql, timeout))
	adminRouter.Put("/organizations/{org}", upadmin.UpdateOrganization(log, d.sql, timeout))
	adminRouter.Get("/organizations/{org}/users", getadmin.ListUsers(log, d.sql, timeout))
	adminRouter.Get("/organizations/{org}/activity", getadmin.ListActivity(log, d.sql, timeout))
	adminRouter.Post("/users", saveadmin.CreateUser(log, d.sql, timeout))
	adminRouter.Put("/users/{id}/deactivate", upadmin.DeactivateUser(log, d.sql, timeout))

	router.Mount("/api/admin", adminRouter)

	mountFrontend(router, log, cfg)

	return router
}

// mountFrontend serves the built SPA when it is present next to the binary.
func mountFrontend(router *chi.Mux, log *slog.Logger, cfg config.Config) {
	if _, err := os.Stat(frontendDir); os.IsNotExist(err) {
		log.Info("frontend not found, serving API only", slog.String("path", frontendDir))
		return
	}

	fileServer := http.FileServer(http.Dir(frontendDir))
	router.Handle("/assets/*", fileServer)

	index := func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	}
	router.With(auth.BasicAuth(cfg.Admin.Login, cfg.Admin.Pass)).HandleFunc("/admin/*", index)

	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(frontendDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
		index(w, r)
	})
}
