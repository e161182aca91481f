// Package session drives a form model from a stream of user actions, as the
// live editing endpoint and the stateless evaluate endpoint do.
package session

import (
	"fmt"
	"sort"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/service/form"
)

const (
	ActionSetValue     = "setValue"
	ActionAddRow       = "addRow"
	ActionRemoveRow    = "removeRow"
	ActionAddColumn    = "addColumn"
	ActionRemoveColumn = "removeColumn"
	ActionActivateTab  = "activateTab"
	ActionFlush        = "flush"
)

type Action struct {
	Type     string `json:"type"`
	FieldID  string `json:"fieldId,omitempty"`
	Value    any    `json:"value,omitempty"`
	TableID  string `json:"tableId,omitempty"`
	RowID    string `json:"rowId,omitempty"`
	ColumnID string `json:"columnId,omitempty"`
	TabID    string `json:"tabId,omitempty"`
}

// State is what the client renders after an action.
type State struct {
	ActiveTab   string                        `json:"activeTab"`
	Controls    []form.Control                `json:"controls"`
	Values      map[string]any                `json:"values"`
	TableStates map[string]catalog.TableState `json:"tableStates,omitempty"`
	CalcErrors  map[string]string             `json:"calcErrors,omitempty"`
	Pending     bool                          `json:"pending"`
	Valid       bool                          `json:"valid"`
	Warnings    []string                      `json:"warnings,omitempty"`
}

// Apply performs one action on the model. The returned id is the created row
// or column for add actions.
func Apply(m *form.Model, a Action) (string, error) {
	switch a.Type {
	case ActionSetValue:
		return "", m.SetValue(a.FieldID, a.Value)
	case ActionAddRow:
		return m.AddRow(a.TableID)
	case ActionRemoveRow:
		return "", m.RemoveRow(a.TableID, a.RowID)
	case ActionAddColumn:
		return m.AddColumn(a.TableID)
	case ActionRemoveColumn:
		return "", m.RemoveColumn(a.TableID, a.ColumnID)
	case ActionActivateTab:
		return "", m.ActivateTab(a.TabID)
	case ActionFlush:
		m.Flush()
		return "", nil
	}
	return "", fmt.Errorf("unknown action %q", a.Type)
}

func StateOf(m *form.Model) State {
	st := State{
		ActiveTab:   m.ActiveTab(),
		Controls:    m.Controls(),
		Values:      m.Values(),
		TableStates: m.TableStates(),
		Pending:     m.Pending(),
		Valid:       m.Valid(),
		Warnings:    m.Warnings(),
	}

	if errs := m.CalcErrors(); len(errs) > 0 {
		st.CalcErrors = make(map[string]string, len(errs))
		ids := make([]string, 0, len(errs))
		for id := range errs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			st.CalcErrors[id] = errs[id].Error()
		}
	}

	return st
}
