package form

import (
	"fmt"
	"regexp"

	"valuation-backend/internal/catalog"
)

type Kind string

const (
	KindField Kind = "field"
	KindGroup Kind = "group"
	KindTable Kind = "table"
	KindRow   Kind = "row"
	KindCell  Kind = "cell"
)

// Control is the runtime state of one field, table row or table cell.
type Control struct {
	ID       string            `json:"id"`
	Kind     Kind              `json:"kind"`
	Value    any               `json:"value,omitempty"`
	Disabled bool              `json:"disabled"`
	Hidden   bool              `json:"hidden,omitempty"`
	Dirty    bool              `json:"dirty,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`

	def      *catalog.FieldDefinition
	pattern  *regexp.Regexp
	locked   bool
	parent   string
	children []string
}

func (c *Control) Valid() bool {
	return len(c.Errors) == 0
}

func (c *Control) snapshot() Control {
	out := *c
	out.Errors = append([]ValidationError(nil), c.Errors...)
	out.def, out.pattern, out.parent, out.children = nil, nil, "", nil
	return out
}

func newControl(id string, kind Kind, def *catalog.FieldDefinition) (*Control, error) {
	c := &Control{ID: id, Kind: kind, def: def, Value: ""}
	if def == nil {
		return c, nil
	}

	c.locked = def.Locked()
	c.Disabled = c.locked

	if kind.valued() && def.DefaultValue != nil {
		c.Value = def.DefaultValue
	}

	if def.Validation != nil && def.Validation.Pattern != "" {
		re, err := compilePattern(def.Validation.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid pattern: %w", def.FieldID, err)
		}
		c.pattern = re
	}

	return c, nil
}

// valued reports whether controls of this kind carry a value of their own
// rather than grouping other controls.
func (k Kind) valued() bool {
	return k == KindField || k == KindCell
}

// compilePattern anchors the pattern to the whole value unless the template
// already did.
func compilePattern(p string) (*regexp.Regexp, error) {
	if len(p) == 0 || p[0] != '^' {
		p = "^" + p
	}
	if p[len(p)-1] != '$' {
		p += "$"
	}
	return regexp.Compile(p)
}
