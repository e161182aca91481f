package resolver

import (
	"fmt"
	"sort"
	"strings"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/storage"
)

// Merge joins the layout tabs of a structure with its content documents.
// Section fields are accumulated from every document declaring the section
// id. Tabs without sections take the fields of the document whose id equals
// the tab id or, failing that, contains or is contained in it once
// underscores are stripped. Unmatched sections and tabs get no fields.
func Merge(st *storage.TemplateStructure) ([]catalog.Tab, []string) {
	var warnings []string

	sectionFields := map[string][]catalog.FieldDefinition{}
	sectionMeta := map[string]storage.ContentSection{}
	docFields := map[string][]catalog.FieldDefinition{}
	var docOrder []string

	for _, doc := range st.Documents {
		if _, seen := docFields[doc.DocumentID]; !seen {
			docOrder = append(docOrder, doc.DocumentID)
		}
		docFields[doc.DocumentID] = append(docFields[doc.DocumentID], doc.Fields...)

		for _, sec := range doc.Sections {
			sectionFields[sec.SectionID] = append(sectionFields[sec.SectionID], sec.Fields...)
			if _, ok := sectionMeta[sec.SectionID]; !ok && declaresCollection(sec) {
				sectionMeta[sec.SectionID] = sec
			}
		}
	}

	tabs := make([]catalog.Tab, len(st.Tabs))
	copy(tabs, st.Tabs)
	sort.SliceStable(tabs, func(i, j int) bool { return tabs[i].SortOrder < tabs[j].SortOrder })

	for i := range tabs {
		tab := &tabs[i]

		if tab.HasSections {
			sections := make([]catalog.Section, len(tab.Sections))
			copy(sections, tab.Sections)
			sort.SliceStable(sections, func(a, b int) bool { return sections[a].SortOrder < sections[b].SortOrder })

			for j := range sections {
				sec := &sections[j]
				sec.Fields = append([]catalog.FieldDefinition{}, sectionFields[sec.SectionID]...)
				if meta, ok := sectionMeta[sec.SectionID]; ok {
					sec.UseDocumentCollection = meta.UseDocumentCollection
					sec.OriginalFields = meta.OriginalFields
					sec.DocumentFilter = meta.DocumentFilter
				}
				warnings = append(warnings, duplicates("section "+sec.SectionID, sec.Fields)...)
			}
			tab.Sections = sections
			continue
		}

		fields := append([]catalog.FieldDefinition{}, tab.Fields...)
		if docID, ok := matchDocument(tab.TabID, docOrder); ok {
			fields = append(fields, docFields[docID]...)
		}
		tab.Fields = fields
		warnings = append(warnings, duplicates("tab "+tab.TabID, tab.Fields)...)
	}

	return tabs, warnings
}

func declaresCollection(sec storage.ContentSection) bool {
	return sec.UseDocumentCollection || len(sec.OriginalFields) > 0 || len(sec.DocumentFilter) > 0
}

func matchDocument(tabID string, docIDs []string) (string, bool) {
	for _, id := range docIDs {
		if id == tabID {
			return id, true
		}
	}

	tab := normalize(tabID)
	if tab == "" {
		return "", false
	}
	for _, id := range docIDs {
		doc := normalize(id)
		if doc == "" {
			continue
		}
		if strings.Contains(doc, tab) || strings.Contains(tab, doc) {
			return id, true
		}
	}
	return "", false
}

func normalize(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "_", ""))
}

// duplicates reports fieldIds declared more than once within one scope.
func duplicates(scope string, fields []catalog.FieldDefinition) []string {
	var out []string
	seen := map[string]int{}
	catalog.Walk(fields, func(f *catalog.FieldDefinition) {
		seen[f.FieldID]++
		if seen[f.FieldID] == 2 {
			out = append(out, fmt.Sprintf("%s: duplicate fieldId %s", scope, f.FieldID))
		}
	})
	return out
}
