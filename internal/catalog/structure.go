package catalog

// Section groups fields inside a tab. SectionID is the join key used when the
// section's fields come from a separate per-document content array.
type Section struct {
	SectionID   string            `json:"sectionId" bson:"sectionId"`
	SectionName string            `json:"sectionName" bson:"sectionName"`
	SortOrder   int               `json:"sortOrder" bson:"sortOrder"`
	Fields      []FieldDefinition `json:"fields" bson:"fields"`

	UseDocumentCollection bool              `json:"useDocumentCollection,omitempty" bson:"useDocumentCollection,omitempty"`
	OriginalFields        []FieldDefinition `json:"originalFields,omitempty" bson:"originalFields,omitempty"`
	DocumentFilter        map[string]any    `json:"documentFilter,omitempty" bson:"documentFilter,omitempty"`
}

// Tab owns either Fields or Sections; HasSections says which.
type Tab struct {
	TabID       string            `json:"tabId" bson:"tabId"`
	TabName     string            `json:"tabName" bson:"tabName"`
	SortOrder   int               `json:"sortOrder" bson:"sortOrder"`
	HasSections bool              `json:"hasSections" bson:"hasSections"`
	Fields      []FieldDefinition `json:"fields,omitempty" bson:"fields,omitempty"`
	Sections    []Section         `json:"sections,omitempty" bson:"sections,omitempty"`
}

// AllFields returns the tab's top-level fields across its sections.
func (t *Tab) AllFields() []FieldDefinition {
	if !t.HasSections {
		return t.Fields
	}
	var out []FieldDefinition
	for _, s := range t.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

type DocumentType struct {
	ID            string   `json:"id" bson:"_id"`
	Name          string   `json:"name" bson:"name"`
	Description   string   `json:"description,omitempty" bson:"description,omitempty"`
	IsRequired    bool     `json:"isRequired" bson:"isRequired"`
	BankCodes     []string `json:"bankCodes,omitempty" bson:"bankCodes,omitempty"`
	PropertyTypes []string `json:"propertyTypes,omitempty" bson:"propertyTypes,omitempty"`
	SortOrder     int      `json:"sortOrder" bson:"sortOrder"`
}
