// Package calc keeps calculated template fields in sync with the fields their
// formulas read from.
package calc

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/service/formula"
)

const defaultPrecision = 2

// anySource is the dependency key of calculated fields that declare no
// dependencies: they are recomputed on every change.
const anySource = "*"

var (
	ErrNonNumeric = errors.New("dependency is not numeric")
	ErrUnknownRef = errors.New("formula references an unknown field")
	ErrCycle      = errors.New("calculation cycle")
)

// Controls is what the engine needs from the form: read a value, write a
// computed one.
type Controls interface {
	Value(fieldID string) (any, bool)
	SetComputed(fieldID string, v any)
}

// ComputationError records why a calculated field was blanked.
type ComputationError struct {
	FieldID string
	Err     error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("calculated field %s: %v", e.FieldID, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

type calculated struct {
	id        string
	formula   *formula.Formula
	parseErr  error
	deps      []string
	declared  bool
	precision int
	cyclic    bool
}

type Engine struct {
	controls   Controls
	fields     map[string]*calculated
	order      []string
	dependents map[string][]string
	errs       map[string]error
}

// New extracts every calculated field (sub-fields included) and builds the
// reverse dependency index. When a fieldId repeats, the first definition wins
// and the later one is ignored with everything below it, as in the form.
func New(fields []catalog.FieldDefinition, controls Controls) *Engine {
	e := &Engine{
		controls:   controls,
		fields:     map[string]*calculated{},
		dependents: map[string][]string{},
		errs:       map[string]error{},
	}

	e.collect(fields, map[string]bool{})

	ids := make([]string, 0, len(e.fields))
	for id := range e.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := e.fields[id]
		if !c.declared {
			e.dependents[anySource] = append(e.dependents[anySource], id)
		}
		for _, dep := range c.deps {
			e.dependents[dep] = append(e.dependents[dep], id)
		}
	}

	e.order = e.topoOrder(ids)

	return e
}

func (e *Engine) collect(fields []catalog.FieldDefinition, seen map[string]bool) {
	for i := range fields {
		f := &fields[i]
		if seen[f.FieldID] {
			continue
		}
		seen[f.FieldID] = true

		if f.IsCalculated() {
			c := &calculated{id: f.FieldID, precision: defaultPrecision}
			if p := f.CalculationMetadata.Precision; p != nil && *p >= 0 {
				c.precision = *p
			}
			c.formula, c.parseErr = formula.Parse(f.CalcFormula())
			if deps := f.CalculationMetadata.Dependencies; len(deps) > 0 {
				c.deps = deps
				c.declared = true
			} else if c.formula != nil {
				c.deps = c.formula.Fields
			}
			e.fields[c.id] = c
		}

		e.collect(f.SubFields, seen)
	}
}

// topoOrder sorts calculated fields so that every field comes after the
// calculated fields it reads. Fields left over are on a cycle.
func (e *Engine) topoOrder(ids []string) []string {
	indegree := make(map[string]int, len(ids))
	for _, id := range ids {
		for _, dep := range e.fields[id].deps {
			if _, ok := e.fields[dep]; ok && dep != id {
				indegree[id]++
			}
			if dep == id {
				e.fields[id].cyclic = true
			}
		}
	}

	var queue, order []string
	for _, id := range ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range e.dependents[id] {
			if next == id {
				continue
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) < len(ids) {
		placed := make(map[string]bool, len(order))
		for _, id := range order {
			placed[id] = true
		}
		for _, id := range ids {
			if !placed[id] {
				e.fields[id].cyclic = true
				order = append(order, id)
			}
		}
	}

	return order
}

// Dependencies maps each calculated field to the fields it reads.
func (e *Engine) Dependencies() map[string][]string {
	out := make(map[string][]string, len(e.fields))
	for id, c := range e.fields {
		out[id] = append([]string(nil), c.deps...)
	}
	return out
}

func (e *Engine) IsCalculated(fieldID string) bool {
	_, ok := e.fields[fieldID]
	return ok
}

// Errors returns the computation errors of the last evaluation, by field id.
func (e *Engine) Errors() map[string]error {
	out := make(map[string]error, len(e.errs))
	for k, v := range e.errs {
		out[k] = v
	}
	return out
}

// RecomputeAll evaluates every calculated field in dependency order.
func (e *Engine) RecomputeAll() {
	for _, id := range e.order {
		e.Recompute(id)
	}
}

// OnChange recomputes the calculated fields affected by the changed fields,
// following chains of calculated fields.
func (e *Engine) OnChange(changed ...string) {
	if len(changed) == 0 {
		return
	}

	affected := map[string]bool{}
	queue := append([]string(nil), changed...)
	for _, id := range e.dependents[anySource] {
		affected[id] = true
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, t := range e.dependents[id] {
			if affected[t] {
				continue
			}
			affected[t] = true
			queue = append(queue, t)
		}
	}

	for _, id := range e.order {
		if affected[id] {
			e.Recompute(id)
		}
	}
}

// Recompute evaluates one calculated field and writes the result. Any failure
// blanks the field; the error is kept in Errors.
func (e *Engine) Recompute(fieldID string) {
	c, ok := e.fields[fieldID]
	if !ok {
		return
	}

	v, err := e.evaluate(c)
	if err != nil {
		e.errs[fieldID] = &ComputationError{FieldID: fieldID, Err: err}
		e.controls.SetComputed(fieldID, "")
		return
	}

	delete(e.errs, fieldID)
	e.controls.SetComputed(fieldID, round(v, c.precision))
}

func (e *Engine) evaluate(c *calculated) (float64, error) {
	if c.parseErr != nil {
		return 0, c.parseErr
	}
	if c.cyclic {
		return 0, ErrCycle
	}

	return c.formula.Eval(func(ref string) (float64, error) {
		raw, ok := e.controls.Value(ref)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
		}
		if catalog.IsEmpty(raw) {
			return 0, nil
		}
		n, ok := catalog.ToNumber(raw)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNonNumeric, ref)
		}
		return n, nil
	})
}

func round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}
