package resolver

import "valuation-backend/internal/catalog"

type TemplateInfo struct {
	BankCode     string `json:"bankCode"`
	BankName     string `json:"bankName"`
	PropertyType string `json:"propertyType"`
	TemplateID   string `json:"templateId"`
	TemplateName string `json:"templateName"`
	Version      string `json:"version"`
}

// MergedTemplate is everything a form needs for one bank and property type.
// It is built per request and never cached.
type MergedTemplate struct {
	TemplateInfo  TemplateInfo              `json:"templateInfo"`
	Tabs          []catalog.Tab             `json:"tabs"`
	DocumentTypes []catalog.DocumentType    `json:"documentTypes"`
	CommonFields  []catalog.FieldDefinition `json:"commonFields"`
	Warnings      []string                  `json:"warnings,omitempty"`
}

// Fields returns the top-level fields of the template, common fields first.
func (m *MergedTemplate) Fields() []catalog.FieldDefinition {
	out := append([]catalog.FieldDefinition(nil), m.CommonFields...)
	for i := range m.Tabs {
		out = append(out, m.Tabs[i].AllFields()...)
	}
	return out
}
