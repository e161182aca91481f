// Package form is the server-side runtime model of a report form: one control
// per template field, table row and table cell, with validation, conditional
// visibility and calculated fields kept current as values change.
package form

import (
	"errors"
	"fmt"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/service/calc"
	"valuation-backend/internal/service/resolver"
)

var (
	ErrUnknownControl = errors.New("unknown control")
	ErrNotEditable    = errors.New("control does not hold a value")
	ErrDisabled       = errors.New("control is disabled")
	ErrNotMutable     = errors.New("table axis is fixed")
	ErrUnknownTab     = errors.New("unknown tab")
)

// Snapshot is the persisted state of a form: field values by fieldId and
// table state by table fieldId.
type Snapshot struct {
	Values      map[string]any                `json:"values"`
	TableStates map[string]catalog.TableState `json:"tableStates,omitempty"`
}

type Option func(*Model)

// WithDeferredCalculation queues value changes for calculated fields until
// Flush. Conditional logic is still applied on every change.
func WithDeferredCalculation() Option {
	return func(m *Model) {
		m.deferred = true
	}
}

type Model struct {
	info        resolver.TemplateInfo
	fields      []catalog.FieldDefinition
	controls    map[string]*Control
	order       []string
	conditional []string
	tables      map[string]*table
	tabs        map[string][]string
	tabOrder    []string
	activeTab   string
	engine      *calc.Engine

	deferred bool
	pending  []string
	warnings []string
}

// Build creates the controls for every field of the merged template, restores
// initial values, wires the calculated fields and computes them once.
func Build(tpl *resolver.MergedTemplate, initial *Snapshot, opts ...Option) (*Model, error) {
	const op = "form.Build"

	if tpl == nil {
		return nil, fmt.Errorf("%s: nil template", op)
	}
	if initial == nil {
		initial = &Snapshot{}
	}

	m := &Model{
		info:     tpl.TemplateInfo,
		fields:   tpl.Fields(),
		controls: map[string]*Control{},
		tables:   map[string]*table{},
		tabs:     map[string][]string{},
	}
	for _, o := range opts {
		o(m)
	}

	for i := range m.fields {
		if _, err := m.add(&m.fields[i], "", initial); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	for i := range tpl.Tabs {
		tab := &tpl.Tabs[i]
		var ids []string
		for _, f := range tab.AllFields() {
			ids = append(ids, f.FieldID)
		}
		m.tabs[tab.TabID] = ids
		m.tabOrder = append(m.tabOrder, tab.TabID)
	}
	if len(m.tabOrder) > 0 {
		m.activeTab = m.tabOrder[0]
	}

	m.engine = calc.New(usable(m.fields), m)
	m.applyConditions()
	m.engine.RecomputeAll()
	m.settle(m.applyConditions())
	m.revalidate()

	return m, nil
}

// add registers the control of one field and, for groups and tables, of
// everything below it. A fieldId seen before is skipped: the first
// definition wins. A malformed field is skipped and reported in Warnings so
// the rest of the form stays usable.
func (m *Model) add(def *catalog.FieldDefinition, parent string, initial *Snapshot) (string, error) {
	if err := def.CheckSelf(); err != nil {
		m.warnings = append(m.warnings, err.Error())
		return "", nil
	}
	if _, dup := m.controls[def.FieldID]; dup {
		return "", nil
	}

	var kind Kind
	switch def.FieldType {
	case catalog.FieldGroup:
		kind = KindGroup
	case catalog.FieldTable, catalog.FieldDynamicTable:
		kind = KindTable
	default:
		kind = KindField
	}

	c, err := newControl(def.FieldID, kind, def)
	if err != nil {
		return "", err
	}
	c.parent = parent
	if v, ok := initial.Values[def.FieldID]; ok && kind.valued() {
		c.Value = v
	}
	m.register(c)

	if def.ConditionalLogic != nil {
		m.conditional = append(m.conditional, c.ID)
	}

	switch kind {
	case KindGroup:
		for i := range def.SubFields {
			id, err := m.add(&def.SubFields[i], c.ID, initial)
			if err != nil {
				return "", fmt.Errorf("group %s: %w", def.FieldID, err)
			}
			if id != "" {
				c.children = append(c.children, id)
			}
		}
	case KindTable:
		if err := m.addTable(c, initial); err != nil {
			return "", err
		}
	}

	return c.ID, nil
}

// usable drops the fields add skipped as malformed, sub-fields included.
func usable(fields []catalog.FieldDefinition) []catalog.FieldDefinition {
	out := make([]catalog.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		if f.CheckSelf() != nil {
			continue
		}
		if len(f.SubFields) > 0 {
			f.SubFields = usable(f.SubFields)
		}
		out = append(out, f)
	}
	return out
}

func (m *Model) register(c *Control) {
	m.controls[c.ID] = c
	m.order = append(m.order, c.ID)
}

func (m *Model) unregister(ids ...string) {
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
		delete(m.controls, id)
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if !gone[id] {
			kept = append(kept, id)
		}
	}
	m.order = kept
}

func (m *Model) Info() resolver.TemplateInfo {
	return m.info
}

// Value returns the current value of a field or table cell.
func (m *Model) Value(id string) (any, bool) {
	c, ok := m.controls[id]
	if !ok || !c.Kind.valued() {
		return nil, false
	}
	return c.Value, true
}

// SetComputed writes a calculated value. The control is written even when it
// is disabled and is not marked dirty. Controls hidden by conditional logic
// stay empty.
func (m *Model) SetComputed(id string, v any) {
	c, ok := m.controls[id]
	if !ok || !c.Kind.valued() || m.concealed(c) {
		return
	}
	c.Value = v
}

// SetValue applies a user edit and everything that follows from it.
func (m *Model) SetValue(id string, v any) error {
	c, ok := m.controls[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	if !c.Kind.valued() {
		return fmt.Errorf("%w: %s", ErrNotEditable, id)
	}
	if c.Disabled {
		return fmt.Errorf("%w: %s", ErrDisabled, id)
	}

	c.Value = v
	c.Dirty = true
	m.changed(id)

	return nil
}

// changed runs conditional logic right away and then either recalculates or,
// in deferred mode, queues the ids for the next Flush.
func (m *Model) changed(ids ...string) {
	ids = append(ids, m.applyConditions()...)
	if m.deferred {
		m.pending = append(m.pending, ids...)
	} else {
		m.settle(ids)
	}
	m.revalidate()
}

// Flush runs the calculations queued in deferred mode.
func (m *Model) Flush() {
	pending := m.pending
	m.pending = nil
	m.settle(pending)
	m.revalidate()
}

func (m *Model) Pending() bool {
	return len(m.pending) > 0
}

// settle recalculates from the changed ids until conditional logic stops
// clearing values.
func (m *Model) settle(ids []string) {
	for i := 0; len(ids) > 0 && i <= len(m.conditional); i++ {
		m.engine.OnChange(ids...)
		ids = m.applyConditions()
	}
}

// ActivateTab switches the active tab and recomputes every calculated field.
func (m *Model) ActivateTab(tabID string) error {
	if _, ok := m.tabs[tabID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
	}
	m.activeTab = tabID
	m.pending = nil
	m.engine.RecomputeAll()
	m.settle(m.applyConditions())
	m.revalidate()
	return nil
}

func (m *Model) ActiveTab() string {
	return m.activeTab
}

func (m *Model) Tabs() []string {
	return append([]string(nil), m.tabOrder...)
}

// Control returns a copy of the control's state.
func (m *Model) Control(id string) (Control, bool) {
	c, ok := m.controls[id]
	if !ok {
		return Control{}, false
	}
	return c.snapshot(), true
}

// Controls returns a copy of every control in creation order.
func (m *Model) Controls() []Control {
	out := make([]Control, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.controls[id].snapshot())
	}
	return out
}

// Validate returns the validation errors of every enabled control.
func (m *Model) Validate() []ValidationError {
	m.revalidate()
	var out []ValidationError
	for _, id := range m.order {
		out = append(out, m.controls[id].Errors...)
	}
	return out
}

func (m *Model) Valid() bool {
	return len(m.Validate()) == 0
}

// Warnings lists the template fields left out of the form as malformed.
func (m *Model) Warnings() []string {
	return append([]string(nil), m.warnings...)
}

// CalcErrors returns why calculated fields are blank, by field id.
func (m *Model) CalcErrors() map[string]error {
	return m.engine.Errors()
}

func (m *Model) revalidate() {
	for _, id := range m.order {
		c := m.controls[id]
		c.Errors = validate(c)
	}
}
