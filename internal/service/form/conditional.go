package form

import (
	"strings"

	"valuation-backend/internal/catalog"
)

const (
	OpEquals       = "=="
	OpNotEquals    = "!="
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpContains     = "contains"
	OpIn           = "in"
	OpNotIn        = "not_in"
	OpEmpty        = "empty"
	OpNotEmpty     = "not_empty"
)

// Operators lists every supported conditional operator.
var Operators = []string{
	OpEquals, OpNotEquals, OpGreater, OpLess, OpGreaterEqual, OpLessEqual,
	OpContains, OpIn, OpNotIn, OpEmpty, OpNotEmpty,
}

// Visible evaluates a conditional rule against the trigger field's current
// value. Unknown operators leave the field visible.
func Visible(logic catalog.ConditionalLogic, actual any) bool {
	switch logic.Operator {
	case OpEquals:
		return equal(actual, logic.Value)
	case OpNotEquals:
		return !equal(actual, logic.Value)
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return compare(logic.Operator, actual, logic.Value)
	case OpContains:
		if items, ok := catalog.ToSlice(actual); ok {
			return member(logic.Value, items)
		}
		return strings.Contains(catalog.ToString(actual), catalog.ToString(logic.Value))
	case OpIn, OpNotIn:
		items, ok := catalog.ToSlice(logic.Value)
		in := ok && member(actual, items)
		if logic.Operator == OpIn {
			return in
		}
		return !in
	case OpEmpty:
		return catalog.IsEmpty(actual)
	case OpNotEmpty:
		return !catalog.IsEmpty(actual)
	}
	return true
}

func equal(a, b any) bool {
	if !catalog.IsEmpty(a) && !catalog.IsEmpty(b) {
		x, okA := catalog.ToNumber(a)
		y, okB := catalog.ToNumber(b)
		if okA && okB {
			return x == y
		}
	}
	return catalog.ToString(a) == catalog.ToString(b)
}

func compare(op string, a, b any) bool {
	if catalog.IsEmpty(a) {
		return false
	}
	x, okA := catalog.ToNumber(a)
	y, okB := catalog.ToNumber(b)
	if !okA || !okB {
		return false
	}
	switch op {
	case OpGreater:
		return x > y
	case OpLess:
		return x < y
	case OpGreaterEqual:
		return x >= y
	default:
		return x <= y
	}
}

func member(v any, items []any) bool {
	for _, it := range items {
		if equal(v, it) {
			return true
		}
	}
	return false
}

// applyConditions re-evaluates every conditional field against the current
// values until visibility is stable. Controls that end up hidden, or sit
// below a hidden control, are disabled and emptied; controls that become
// visible are enabled again without restoring their old value. It returns
// the ids whose value was cleared.
func (m *Model) applyConditions() []string {
	var cleared []string

	for pass := 0; pass <= len(m.conditional); pass++ {
		flipped := false
		for _, id := range m.conditional {
			c, ok := m.controls[id]
			if !ok {
				continue
			}
			logic := c.def.ConditionalLogic
			var actual any
			if trigger, ok := m.controls[logic.Field]; ok {
				actual = trigger.Value
			}
			hidden := !Visible(*logic, actual)
			if hidden != c.Hidden {
				c.Hidden = hidden
				flipped = true
			}
		}

		cleared = append(cleared, m.syncDisabled()...)
		if !flipped {
			break
		}
	}

	return cleared
}

func (m *Model) syncDisabled() []string {
	var cleared []string
	for _, id := range m.order {
		c := m.controls[id]
		concealed := m.concealed(c)
		c.Disabled = c.locked || concealed
		if concealed && c.Kind.valued() {
			if !catalog.IsEmpty(c.Value) {
				cleared = append(cleared, id)
			}
			c.Value = ""
		}
	}
	return cleared
}

// concealed reports whether the control or any control above it is hidden.
func (m *Model) concealed(c *Control) bool {
	for c != nil {
		if c.Hidden {
			return true
		}
		if c.parent == "" {
			return false
		}
		c = m.controls[c.parent]
	}
	return false
}
