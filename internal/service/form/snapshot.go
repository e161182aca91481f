package form

import "valuation-backend/internal/catalog"

// Values returns the value of every field control keyed by fieldId. Table
// cells are reported through TableStates.
func (m *Model) Values() map[string]any {
	out := make(map[string]any, len(m.order))
	for _, id := range m.order {
		c := m.controls[id]
		if c.Kind == KindField {
			out[id] = c.Value
		}
	}
	return out
}

// TableStates returns the rows, columns and cell values of every table.
func (m *Model) TableStates() map[string]catalog.TableState {
	out := make(map[string]catalog.TableState, len(m.tables))
	for id, t := range m.tables {
		st := catalog.TableState{
			Rows:    make([]catalog.TableRow, 0, len(t.rows)),
			Columns: append([]catalog.TableColumn(nil), t.columns...),
		}
		for _, r := range t.rows {
			cells := make(map[string]any, len(t.columns))
			for _, col := range t.columns {
				if c, ok := m.controls[CellID(id, r.ID, col.ID)]; ok {
					cells[col.ID] = c.Value
				}
			}
			st.Rows = append(st.Rows, catalog.TableRow{ID: r.ID, Label: r.Label, Cells: cells})
		}
		out[id] = st
	}
	return out
}

func (m *Model) Snapshot() Snapshot {
	return Snapshot{Values: m.Values(), TableStates: m.TableStates()}
}
