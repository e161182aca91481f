// Package templatelint checks uploaded template structures before they are
// stored.
package templatelint

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/service/formula"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/storage"
)

//go:embed schema.cue
var schemaSource string

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

// Linter validates structures against the CUE schema and the rules the
// schema cannot express.
type Linter struct {
	ctx    *cue.Context
	schema cue.Value
}

func New() (*Linter, error) {
	const op = "templatelint.New"

	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%s: compile schema: %w", op, err)
	}
	schema := v.LookupPath(cue.ParsePath("#Structure"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Linter{ctx: ctx, schema: schema}, nil
}

// Check returns every problem found in the structure. commonIDs lists field
// ids defined outside the structure that formulas and conditions may use.
func (l *Linter) Check(st *storage.TemplateStructure, commonIDs ...string) []Issue {
	issues := l.schemaIssues(st)

	known := map[string]bool{}
	for _, id := range commonIDs {
		known[id] = true
	}
	var all []*catalog.FieldDefinition
	visit := func(fields []catalog.FieldDefinition) {
		catalog.Walk(fields, func(f *catalog.FieldDefinition) {
			known[f.FieldID] = true
			all = append(all, f)
			if f.FieldType.IsTable() && f.TableConfig != nil {
				for _, r := range f.TableConfig.Rows {
					for _, c := range f.TableConfig.Columns {
						known[f.FieldID+"."+r.ID+"."+c.ID] = true
					}
				}
			}
		})
	}
	for _, tab := range st.Tabs {
		visit(tab.Fields)
		for _, s := range tab.Sections {
			visit(s.Fields)
		}
	}
	for _, doc := range st.Documents {
		visit(doc.Fields)
		for _, s := range doc.Sections {
			visit(s.Fields)
		}
	}

	for _, f := range all {
		issues = append(issues, fieldIssues(f, known)...)
	}

	_, warnings := resolver.Merge(st)
	for _, w := range warnings {
		issues = append(issues, Issue{Severity: SeverityError, Path: "documents", Message: w})
	}

	return issues
}

func (l *Linter) schemaIssues(st *storage.TemplateStructure) []Issue {
	doc := l.ctx.Encode(map[string]any{
		"tabs":      st.Tabs,
		"documents": st.Documents,
	})
	if err := doc.Err(); err != nil {
		return []Issue{{Severity: SeverityError, Message: err.Error()}}
	}

	err := l.schema.Unify(doc).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out []Issue
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, Issue{
			Severity: SeverityError,
			Path:     strings.Join(e.Path(), "."),
			Message:  fmt.Sprintf(format, args...),
		})
	}
	return out
}

func fieldIssues(f *catalog.FieldDefinition, known map[string]bool) []Issue {
	var out []Issue
	add := func(sev Severity, format string, args ...any) {
		out = append(out, Issue{Severity: sev, Path: f.FieldID, Message: fmt.Sprintf(format, args...)})
	}

	if err := f.Check(); err != nil {
		add(SeverityError, "%v", err)
	}

	if f.IsCalculated() {
		parsed, err := formula.Parse(f.CalcFormula())
		if err != nil {
			add(SeverityError, "formula %q: %v", f.CalcFormula(), err)
		} else {
			deps := f.CalculationMetadata.Dependencies
			if len(deps) == 0 {
				deps = parsed.Fields
			}
			for _, dep := range deps {
				if !known[dep] {
					add(SeverityWarning, "formula depends on unknown field %s", dep)
				}
			}
		}
	}

	if c := f.ConditionalLogic; c != nil && c.Field != "" && !known[c.Field] {
		add(SeverityWarning, "condition on unknown field %s", c.Field)
	}

	return out
}

// Failed reports whether any issue is an error.
func Failed(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
