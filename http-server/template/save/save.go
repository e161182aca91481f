package save

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"valuation-backend/http-server/response"
	"valuation-backend/internal/catalog"
	"valuation-backend/internal/eventbus"
	"valuation-backend/internal/service/templatelint"
	"valuation-backend/internal/storage"
)

type TemplateSaver interface {
	GetCommonFields(ctx context.Context) (*storage.CommonFields, error)
	SaveTemplate(ctx context.Context, bankCode string, ref storage.BankTemplateRef, st *storage.TemplateStructure) error
}

type Linter interface {
	Check(st *storage.TemplateStructure, commonIDs ...string) []templatelint.Issue
}

type Request struct {
	BankCode      string                     `json:"bankCode"`
	TemplateID    string                     `json:"templateId"`
	TemplateName  string                     `json:"templateName"`
	PropertyType  string                     `json:"propertyType"`
	CollectionRef string                     `json:"collectionRef"`
	Version       string                     `json:"version"`
	IsActive      bool                       `json:"isActive"`
	Structure     *storage.TemplateStructure `json:"structure"`
}

type Response struct {
	TemplateID string               `json:"templateId"`
	Issues     []templatelint.Issue `json:"issues,omitempty"`
}

// SaveTemplate lints an uploaded structure and stores it when no lint error
// was found. Warnings are returned with the stored template.
func SaveTemplate(log *slog.Logger, saver TemplateSaver, linter Linter, events eventbus.Publisher, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.SaveTemplate"
		log := log.With(slog.String("op", op))

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.BankCode == "" || req.TemplateID == "" || req.PropertyType == "" || req.Structure == nil {
			http.Error(w, "bankCode, templateId, propertyType and structure are required", http.StatusBadRequest)
			return
		}
		if req.CollectionRef == "" {
			req.CollectionRef = "templates_" + strings.ToLower(req.BankCode)
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var commonIDs []string
		common, err := saver.GetCommonFields(ctx)
		if err == nil {
			catalog.Walk(common.Fields, func(f *catalog.FieldDefinition) {
				commonIDs = append(commonIDs, f.FieldID)
			})
		}

		st := req.Structure
		st.TemplateID = req.TemplateID
		st.BankCode = req.BankCode
		st.PropertyType = req.PropertyType
		st.Version = req.Version
		st.UpdatedAt = time.Now().UTC()

		issues := linter.Check(st, commonIDs...)
		if templatelint.Failed(issues) {
			log.Warn("template rejected", slog.String("template", req.TemplateID), slog.Int("issues", len(issues)))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, Response{TemplateID: req.TemplateID, Issues: issues})
			return
		}

		ref := storage.BankTemplateRef{
			TemplateID:    req.TemplateID,
			TemplateName:  req.TemplateName,
			PropertyType:  req.PropertyType,
			CollectionRef: req.CollectionRef,
			Version:       req.Version,
			IsActive:      req.IsActive,
		}
		if err := saver.SaveTemplate(ctx, req.BankCode, ref, st); err != nil {
			response.Error(w, r, log, err)
			return
		}

		events.Publish(ctx, eventbus.NewEvent(eventbus.TemplateUploaded, "", "admin", "template", req.TemplateID,
			req.BankCode+"/"+req.PropertyType+" "+req.Version))

		log.Info("template saved", slog.String("template", req.TemplateID), slog.Int("warnings", len(issues)))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{TemplateID: req.TemplateID, Issues: issues})
	}
}
