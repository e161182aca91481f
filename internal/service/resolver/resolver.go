// Package resolver aggregates a bank's template, the shared common fields and
// the supporting document types into one renderable structure.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/storage"
)

type TemplateStorage interface {
	GetBank(ctx context.Context, code string) (*storage.Bank, error)
	GetTemplateStructure(ctx context.Context, collectionRef, templateID string) (*storage.TemplateStructure, error)
	GetCommonFields(ctx context.Context) (*storage.CommonFields, error)
	GetDocumentTypes(ctx context.Context, bankCode, propertyType string) ([]catalog.DocumentType, error)
}

type Service struct {
	log     *slog.Logger
	storage TemplateStorage
}

func NewService(log *slog.Logger, storage TemplateStorage) *Service {
	return &Service{log: log, storage: storage}
}

// Resolve builds the merged template for a bank and property type. A missing
// bank or active template is ErrNotFound; missing content only leaves the
// affected parts empty.
func (s *Service) Resolve(ctx context.Context, bankCode, propertyType string) (*MergedTemplate, error) {
	const op = "service.resolver.Resolve"

	bank, err := s.storage.GetBank(ctx, bankCode)
	if err != nil {
		return nil, fmt.Errorf("%s: bank %s: %w", op, bankCode, err)
	}
	if !bank.IsActive {
		return nil, fmt.Errorf("%s: bank %s is inactive: %w", op, bankCode, storage.ErrNotFound)
	}

	ref, ok := ActiveTemplate(bank, propertyType)
	if !ok {
		return nil, fmt.Errorf("%s: no active %s template for %s: %w", op, propertyType, bankCode, storage.ErrNotFound)
	}

	var (
		structure *storage.TemplateStructure
		common    *storage.CommonFields
		docTypes  []catalog.DocumentType
		warnings  []string
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		structure, err = s.storage.GetTemplateStructure(gCtx, ref.CollectionRef, ref.TemplateID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("structure: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		common, err = s.storage.GetCommonFields(gCtx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("common fields: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		docTypes, err = s.storage.GetDocumentTypes(gCtx, bank.Code, ref.PropertyType)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("document types: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	merged := &MergedTemplate{
		TemplateInfo: TemplateInfo{
			BankCode:     bank.Code,
			BankName:     bank.Name,
			PropertyType: ref.PropertyType,
			TemplateID:   ref.TemplateID,
			TemplateName: ref.TemplateName,
			Version:      ref.Version,
		},
		Tabs:          []catalog.Tab{},
		DocumentTypes: docTypes,
		CommonFields:  []catalog.FieldDefinition{},
	}
	if merged.DocumentTypes == nil {
		merged.DocumentTypes = []catalog.DocumentType{}
	}
	if common != nil {
		merged.CommonFields = append(merged.CommonFields, common.Fields...)
	}

	if structure == nil {
		warnings = append(warnings, fmt.Sprintf("structure %s not found in %s", ref.TemplateID, ref.CollectionRef))
	} else {
		var mergeWarnings []string
		merged.Tabs, mergeWarnings = Merge(structure)
		warnings = append(warnings, mergeWarnings...)
	}

	ApplyOverlays(merged, bank.FieldOverlays)

	for _, w := range warnings {
		s.log.With(
			slog.String("op", op),
			slog.String("bank", bank.Code),
			slog.String("template", ref.TemplateID),
		).Warn(w)
	}
	merged.Warnings = warnings

	return merged, nil
}

// ActiveTemplate picks the bank's active template for the property type,
// comparing property types case-insensitively.
func ActiveTemplate(bank *storage.Bank, propertyType string) (storage.BankTemplateRef, bool) {
	for _, t := range bank.Templates {
		if t.IsActive && strings.EqualFold(t.PropertyType, propertyType) {
			return t, true
		}
	}
	return storage.BankTemplateRef{}, false
}
