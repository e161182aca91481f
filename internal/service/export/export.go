// Package export renders reports to Excel workbooks.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/service/form"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/storage"
)

const summarySheet = "Summary"

type ReportSource interface {
	Get(ctx context.Context, orgID, reportID string) (*storage.Report, error)
	Form(ctx context.Context, r *storage.Report) (*form.Model, *resolver.MergedTemplate, error)
}

type Service struct {
	source ReportSource
}

func NewService(source ReportSource) *Service {
	return &Service{source: source}
}

// Report renders one report as XLSX and returns the file contents together
// with a suggested file name.
func (s *Service) Report(ctx context.Context, orgID, reportID string) ([]byte, string, error) {
	const op = "service.export.Report"

	r, err := s.source.Get(ctx, orgID, reportID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	model, tpl, err := s.source.Form(ctx, r)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	f, err := Render(r, tpl, model)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("%s: write: %w", op, err)
	}

	name := r.ReferenceNumber
	if name == "" {
		name = r.ID
	}
	return buf.Bytes(), name + ".xlsx", nil
}

type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	header int
	bold   int
}

func (w *sheetWriter) set(col int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, w.row)
	w.f.SetCellValue(w.sheet, cell, v)
}

func (w *sheetWriter) styleRow(style, cols int) {
	from, _ := excelize.CoordinatesToCellName(1, w.row)
	to, _ := excelize.CoordinatesToCellName(cols, w.row)
	w.f.SetCellStyle(w.sheet, from, to, style)
}

// Render builds the workbook: a summary sheet and one sheet per tab with a
// label/value row per field and a grid per table.
func Render(r *storage.Report, tpl *resolver.MergedTemplate, model *form.Model) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	f.SetSheetName("Sheet1", summarySheet)
	w := &sheetWriter{f: f, sheet: summarySheet, header: headerStyle, bold: boldStyle}
	summary := [][2]any{
		{"Reference number", r.ReferenceNumber},
		{"Bank", tpl.TemplateInfo.BankName},
		{"Template", tpl.TemplateInfo.TemplateName},
		{"Property type", r.PropertyType},
		{"Status", string(r.Status)},
		{"Version", r.Version},
		{"Updated", r.UpdatedAt.Format("2006-01-02 15:04")},
	}
	for _, kv := range summary {
		w.row++
		w.set(1, kv[0])
		w.set(2, kv[1])
		w.styleRow(boldStyle, 1)
	}
	f.SetColWidth(summarySheet, "A", "B", 28)

	if len(tpl.CommonFields) > 0 {
		w.row++
		for i := range tpl.CommonFields {
			w.field(model, &tpl.CommonFields[i], 0)
		}
	}

	used := map[string]bool{summarySheet: true}
	for i := range tpl.Tabs {
		tab := &tpl.Tabs[i]
		name := sheetName(tab.TabName, tab.TabID, used)
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}

		tw := &sheetWriter{f: f, sheet: name, header: headerStyle, bold: boldStyle, row: 1}
		tw.set(1, "Field")
		tw.set(2, "Value")
		tw.styleRow(headerStyle, 2)

		if tab.HasSections {
			for _, sec := range tab.Sections {
				tw.row += 2
				tw.set(1, sec.SectionName)
				tw.styleRow(boldStyle, 1)
				for j := range sec.Fields {
					tw.field(model, &sec.Fields[j], 0)
				}
			}
		} else {
			for j := range tab.Fields {
				tw.field(model, &tab.Fields[j], 0)
			}
		}

		f.SetColWidth(name, "A", "A", 36)
		f.SetColWidth(name, "B", "Z", 18)
		f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	return f, nil
}

func (w *sheetWriter) field(model *form.Model, def *catalog.FieldDefinition, depth int) {
	label := strings.Repeat("  ", depth) + displayName(def)

	switch {
	case def.FieldType == catalog.FieldGroup:
		w.row++
		w.set(1, label)
		w.styleRow(w.bold, 1)
		for i := range def.SubFields {
			w.field(model, &def.SubFields[i], depth+1)
		}
	case def.FieldType.IsTable():
		w.row++
		w.set(1, label)
		w.styleRow(w.bold, 1)
		w.table(model, def.FieldID)
	default:
		w.row++
		w.set(1, label)
		if v, ok := model.Value(def.FieldID); ok && !catalog.IsEmpty(v) {
			if n, isNum := catalog.ToNumber(v); isNum && def.FieldType.IsNumeric() {
				w.set(2, n)
			} else {
				w.set(2, catalog.ToString(v))
			}
		}
	}
}

func (w *sheetWriter) table(model *form.Model, tableID string) {
	st, ok := model.TableStates()[tableID]
	if !ok {
		return
	}

	w.row++
	w.set(1, "")
	for i, col := range st.Columns {
		w.set(i+2, col.Label)
	}
	w.styleRow(w.header, len(st.Columns)+1)

	for _, r := range st.Rows {
		w.row++
		w.set(1, r.Label)
		for i, col := range st.Columns {
			if v := r.Cells[col.ID]; !catalog.IsEmpty(v) {
				w.set(i+2, catalog.ToString(v))
			}
		}
	}
}

func displayName(def *catalog.FieldDefinition) string {
	if def.UIDisplayName != "" {
		return def.UIDisplayName
	}
	if def.TechnicalName != "" {
		return def.TechnicalName
	}
	return def.FieldID
}

// sheetName makes a tab name usable as a sheet name: at most 31 characters,
// none of the reserved ones, unique within the workbook.
func sheetName(name, fallback string, used map[string]bool) string {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}

	base, n := name, 2
	for used[name] {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		name = string(r) + suffix
		n++
	}
	used[name] = true
	return name
}
