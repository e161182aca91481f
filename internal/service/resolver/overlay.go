package resolver

import (
	"valuation-backend/internal/catalog"
	"valuation-backend/internal/storage"
)

// ApplyOverlays applies the bank's per-field overrides to every field with a
// matching id, sub-fields and common fields included.
func ApplyOverlays(m *MergedTemplate, overlays map[string]storage.FieldOverlay) {
	if len(overlays) == 0 {
		return
	}

	apply := func(f *catalog.FieldDefinition) {
		o, ok := overlays[f.FieldID]
		if !ok {
			return
		}
		if o.UIDisplayName != nil {
			f.UIDisplayName = *o.UIDisplayName
		}
		if o.IsRequired != nil {
			f.IsRequired = *o.IsRequired
		}
		if o.IsReadonly != nil {
			f.IsReadonly = *o.IsReadonly
		}
		if o.Validation != nil {
			v := *o.Validation
			f.Validation = &v
		}
		if o.DefaultValue != nil {
			f.DefaultValue = o.DefaultValue
		}
		if len(o.Options) > 0 {
			f.Options = append([]catalog.Option(nil), o.Options...)
		}
	}

	catalog.Walk(m.CommonFields, apply)
	for i := range m.Tabs {
		tab := &m.Tabs[i]
		catalog.Walk(tab.Fields, apply)
		for j := range tab.Sections {
			catalog.Walk(tab.Sections[j].Fields, apply)
		}
	}
}
