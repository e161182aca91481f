package storage

import (
	"time"

	"valuation-backend/internal/catalog"
)

// Bank is a lender whose report templates the organizations fill in.
type Bank struct {
	ID        string            `json:"id" bson:"_id"`
	Code      string            `json:"bankCode" bson:"bankCode"`
	Name      string            `json:"bankName" bson:"bankName"`
	IsActive  bool              `json:"isActive" bson:"isActive"`
	Templates []BankTemplateRef `json:"templates" bson:"templates"`
	// FieldOverlays adjusts shared field definitions for this bank, keyed by fieldId.
	FieldOverlays map[string]FieldOverlay `json:"fieldOverlays,omitempty" bson:"fieldOverlays,omitempty"`
}

// BankTemplateRef points at the structural document for one property type.
type BankTemplateRef struct {
	TemplateID    string `json:"templateId" bson:"templateId"`
	TemplateName  string `json:"templateName" bson:"templateName"`
	PropertyType  string `json:"propertyType" bson:"propertyType"`
	CollectionRef string `json:"collectionRef" bson:"collectionRef"`
	Version       string `json:"version" bson:"version"`
	IsActive      bool   `json:"isActive" bson:"isActive"`
}

type FieldOverlay struct {
	UIDisplayName *string             `json:"uiDisplayName,omitempty" bson:"uiDisplayName,omitempty"`
	IsRequired    *bool               `json:"isRequired,omitempty" bson:"isRequired,omitempty"`
	IsReadonly    *bool               `json:"isReadonly,omitempty" bson:"isReadonly,omitempty"`
	Validation    *catalog.Validation `json:"validation,omitempty" bson:"validation,omitempty"`
	DefaultValue  any                 `json:"defaultValue,omitempty" bson:"defaultValue,omitempty"`
	Options       []catalog.Option    `json:"options,omitempty" bson:"options,omitempty"`
}

// TemplateStructure is the structural document of a bank template. Tabs carry
// layout only; the field content sits in Documents and is joined by id.
type TemplateStructure struct {
	ID           string            `json:"id" bson:"_id"`
	TemplateID   string            `json:"templateId" bson:"templateId"`
	BankCode     string            `json:"bankCode" bson:"bankCode"`
	PropertyType string            `json:"propertyType" bson:"propertyType"`
	Version      string            `json:"version" bson:"version"`
	Tabs         []catalog.Tab     `json:"tabs" bson:"tabs"`
	Documents    []ContentDocument `json:"documents" bson:"documents"`
	UpdatedAt    time.Time         `json:"updatedAt" bson:"updatedAt"`
}

type ContentDocument struct {
	DocumentID string                    `json:"documentId" bson:"documentId"`
	Fields     []catalog.FieldDefinition `json:"fields,omitempty" bson:"fields,omitempty"`
	Sections   []ContentSection          `json:"sections,omitempty" bson:"sections,omitempty"`
}

type ContentSection struct {
	SectionID string                    `json:"sectionId" bson:"sectionId"`
	Fields    []catalog.FieldDefinition `json:"fields" bson:"fields"`

	UseDocumentCollection bool                      `json:"useDocumentCollection,omitempty" bson:"useDocumentCollection,omitempty"`
	OriginalFields        []catalog.FieldDefinition `json:"originalFields,omitempty" bson:"originalFields,omitempty"`
	DocumentFilter        map[string]any            `json:"documentFilter,omitempty" bson:"documentFilter,omitempty"`
}

// CommonFields is the organization-independent field set shared by every template.
type CommonFields struct {
	ID     string                    `json:"id" bson:"_id"`
	Fields []catalog.FieldDefinition `json:"fields" bson:"fields"`
}
