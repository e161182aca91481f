// Package report manages report drafts: creation with a reference number,
// version-checked updates and the review workflow.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/eventbus"
	"valuation-backend/internal/service/form"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/storage"
)

var (
	ErrNotDraft          = errors.New("report is not a draft")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// ValidationFailed carries the field errors that blocked a submission.
type ValidationFailed struct {
	Errors []form.ValidationError
}

func (e *ValidationFailed) Error() string {
	return fmt.Sprintf("%d field(s) failed validation", len(e.Errors))
}

type ReportStorage interface {
	CreateReport(ctx context.Context, r *storage.Report) error
	GetReport(ctx context.Context, orgID, reportID string) (*storage.Report, error)
	ListReports(ctx context.Context, orgID string, filter storage.ReportFilter) ([]*storage.Report, error)
	// UpdateReport stores r if the stored version equals expectedVersion and
	// returns storage.ErrConflict otherwise.
	UpdateReport(ctx context.Context, r *storage.Report, expectedVersion int64) error
	DeleteReport(ctx context.Context, orgID, reportID string) error
}

type TemplateResolver interface {
	Resolve(ctx context.Context, bankCode, propertyType string) (*resolver.MergedTemplate, error)
}

type ReferenceGenerator interface {
	Next(ctx context.Context, orgShortName string) (string, error)
}

type Service struct {
	log        *slog.Logger
	storage    ReportStorage
	templates  TemplateResolver
	references ReferenceGenerator
	events     eventbus.Publisher
	now        func() time.Time
}

func NewService(log *slog.Logger, storage ReportStorage, templates TemplateResolver, references ReferenceGenerator, events eventbus.Publisher) *Service {
	return &Service{
		log:        log,
		storage:    storage,
		templates:  templates,
		references: references,
		events:     events,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Draft is the user-supplied content of a report.
type Draft struct {
	BankCode     string                        `json:"bankCode"`
	PropertyType string                        `json:"propertyType"`
	Values       map[string]any                `json:"values"`
	TableStates  map[string]catalog.TableState `json:"tableStates,omitempty"`
}

// Create saves a new draft. The reference number is assigned first, so an
// organization without reference initials cannot create reports.
func (s *Service) Create(ctx context.Context, orgID, userID string, d Draft) (*storage.Report, error) {
	const op = "service.report.Create"

	model, err := s.model(ctx, d.BankCode, d.PropertyType, d.Values, d.TableStates)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ref, err := s.references.Next(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info := model.Info()
	now := s.now()
	r := &storage.Report{
		ID:              uuid.NewString(),
		OrganizationID:  orgID,
		ReferenceNumber: ref,
		BankCode:        info.BankCode,
		PropertyType:    info.PropertyType,
		TemplateID:      info.TemplateID,
		Status:          storage.StatusDraft,
		Values:          model.Values(),
		TableStates:     model.TableStates(),
		Version:         1,
		CreatedBy:       userID,
		UpdatedBy:       userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.storage.CreateReport(ctx, r); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.events.Publish(ctx, eventbus.NewEvent(eventbus.ReportCreated, orgID, userID, "report", r.ID, ref+" created"))

	return r, nil
}

func (s *Service) Get(ctx context.Context, orgID, reportID string) (*storage.Report, error) {
	const op = "service.report.Get"

	r, err := s.storage.GetReport(ctx, orgID, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, orgID string, filter storage.ReportFilter) ([]*storage.Report, error) {
	const op = "service.report.List"

	reports, err := s.storage.ListReports(ctx, orgID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reports, nil
}

// Update replaces the content of a draft. expectedVersion must match the
// stored version.
func (s *Service) Update(ctx context.Context, orgID, userID, reportID string, expectedVersion int64, values map[string]any, tables map[string]catalog.TableState) (*storage.Report, error) {
	const op = "service.report.Update"

	r, err := s.storage.GetReport(ctx, orgID, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.Version != expectedVersion {
		return nil, fmt.Errorf("%s: report %s is at version %d, not %d: %w", op, reportID, r.Version, expectedVersion, storage.ErrConflict)
	}
	if r.Status != storage.StatusDraft {
		return nil, fmt.Errorf("%s: report %s is %s: %w", op, reportID, r.Status, ErrNotDraft)
	}

	model, err := s.model(ctx, r.BankCode, r.PropertyType, values, tables)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.Values = model.Values()
	r.TableStates = model.TableStates()
	r.Version = expectedVersion + 1
	r.UpdatedBy = userID
	r.UpdatedAt = s.now()

	if err := s.storage.UpdateReport(ctx, r, expectedVersion); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.events.Publish(ctx, eventbus.NewEvent(eventbus.ReportUpdated, orgID, userID, "report", r.ID,
		fmt.Sprintf("%s saved as version %d", r.ReferenceNumber, r.Version)))

	return r, nil
}

// Transition moves a report along the review workflow. Submitting validates
// the stored values against the current template.
func (s *Service) Transition(ctx context.Context, orgID, userID, reportID string, next storage.ReportStatus, expectedVersion int64) (*storage.Report, error) {
	const op = "service.report.Transition"

	r, err := s.storage.GetReport(ctx, orgID, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.Version != expectedVersion {
		return nil, fmt.Errorf("%s: report %s is at version %d, not %d: %w", op, reportID, r.Version, expectedVersion, storage.ErrConflict)
	}
	if !r.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, r.Status, next, ErrInvalidTransition)
	}

	if next == storage.StatusSubmitted {
		model, err := s.model(ctx, r.BankCode, r.PropertyType, r.Values, r.TableStates)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if errs := model.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("%s: %w", op, &ValidationFailed{Errors: errs})
		}
	}

	prev := r.Status
	r.Status = next
	r.Version = expectedVersion + 1
	r.UpdatedBy = userID
	r.UpdatedAt = s.now()

	if err := s.storage.UpdateReport(ctx, r, expectedVersion); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.events.Publish(ctx, eventbus.NewEvent(eventbus.ReportStatusChanged, orgID, userID, "report", r.ID,
		fmt.Sprintf("%s: %s -> %s", r.ReferenceNumber, prev, next)))

	return r, nil
}

func (s *Service) Delete(ctx context.Context, orgID, userID, reportID string) error {
	const op = "service.report.Delete"

	if err := s.storage.DeleteReport(ctx, orgID, reportID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.events.Publish(ctx, eventbus.NewEvent(eventbus.ReportDeleted, orgID, userID, "report", reportID, "deleted"))
	return nil
}

// Form rebuilds the form model of a stored report.
func (s *Service) Form(ctx context.Context, r *storage.Report) (*form.Model, *resolver.MergedTemplate, error) {
	const op = "service.report.Form"

	tpl, err := s.templates.Resolve(ctx, r.BankCode, r.PropertyType)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	model, err := form.Build(tpl, &form.Snapshot{Values: r.Values, TableStates: r.TableStates})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return model, tpl, nil
}

func (s *Service) model(ctx context.Context, bankCode, propertyType string, values map[string]any, tables map[string]catalog.TableState) (*form.Model, error) {
	tpl, err := s.templates.Resolve(ctx, bankCode, propertyType)
	if err != nil {
		return nil, err
	}
	model, err := form.Build(tpl, &form.Snapshot{Values: values, TableStates: tables})
	if err != nil {
		return nil, err
	}
	for _, w := range model.Warnings() {
		s.log.Warn("template field skipped", slog.String("bank", bankCode), slog.String("propertyType", propertyType), slog.String("reason", w))
	}
	return model, nil
}
