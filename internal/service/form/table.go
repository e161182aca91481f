package form

import (
	"fmt"
	"strconv"
	"strings"

	"valuation-backend/internal/catalog"
)

type table struct {
	id      string
	cfg     *catalog.TableConfig
	columns []catalog.TableColumn
	rows    []catalog.TableRow
}

func rowControlID(tableID, rowID string) string {
	return tableID + "." + rowID
}

// CellID is the control id of one table cell; formulas reference cells by it.
func CellID(tableID, rowID, colID string) string {
	return tableID + "." + rowID + "." + colID
}

func (m *Model) addTable(c *Control, initial *Snapshot) error {
	cfg := c.def.TableConfig
	st := cfg.InitialState()
	if saved, ok := initial.TableStates[c.ID]; ok {
		st = restoreState(cfg, st, saved)
	}

	t := &table{id: c.ID, cfg: cfg, columns: st.Columns}
	m.tables[t.id] = t

	for _, row := range st.Rows {
		if _, err := m.addRow(t, c, row); err != nil {
			return err
		}
	}

	return nil
}

// restoreState lays a saved table state over the template's initial state.
// Only the axis the table type makes mutable is taken from the saved state;
// cell values are taken wherever row ids still match. Saved rows and columns
// with an empty or repeated id are dropped, the first occurrence wins.
func restoreState(cfg *catalog.TableConfig, st, saved catalog.TableState) catalog.TableState {
	savedRows := uniqueRows(saved.Rows)

	switch cfg.Kind() {
	case catalog.TableRowDynamic:
		rows := savedRows
		if len(rows) > cfg.MaxRows {
			rows = rows[:cfg.MaxRows]
		}
		st.Rows = rows
		return st
	case catalog.TableColumnDynamic:
		fixed := make(map[string]bool, len(st.Columns))
		for _, col := range st.Columns {
			fixed[col.ID] = true
		}
		for _, col := range saved.Columns {
			if !col.UserAdded || col.ID == "" || fixed[col.ID] || len(st.Columns) >= cfg.MaxColumns {
				continue
			}
			fixed[col.ID] = true
			st.Columns = append(st.Columns, col)
		}
	}

	cells := make(map[string]map[string]any, len(savedRows))
	for _, r := range savedRows {
		cells[r.ID] = r.Cells
	}
	for i, r := range st.Rows {
		if saved, ok := cells[r.ID]; ok {
			st.Rows[i].Cells = saved
		}
	}
	return st
}

func uniqueRows(rows []catalog.TableRow) []catalog.TableRow {
	seen := make(map[string]bool, len(rows))
	out := make([]catalog.TableRow, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// addRow registers a row-group with one cell control per current column.
func (m *Model) addRow(t *table, tc *Control, row catalog.TableRow) ([]string, error) {
	rc, err := newControl(rowControlID(t.id, row.ID), KindRow, nil)
	if err != nil {
		return nil, err
	}
	rc.locked, rc.Disabled = tc.locked, tc.locked
	rc.parent = tc.ID
	m.register(rc)
	tc.children = append(tc.children, rc.ID)
	t.rows = append(t.rows, catalog.TableRow{ID: row.ID, Label: row.Label})

	ids := []string{rc.ID}
	for _, col := range t.columns {
		id, err := m.addCell(t, tc, rc, row.ID, col, row.Cells[col.ID])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Model) addCell(t *table, tc, rc *Control, rowID string, col catalog.TableColumn, v any) (string, error) {
	ft := col.FieldType
	if ft == "" {
		ft = catalog.FieldText
	}
	id := CellID(t.id, rowID, col.ID)
	def := &catalog.FieldDefinition{
		FieldID:       id,
		UIDisplayName: col.Label,
		FieldType:     ft,
		IsRequired:    col.IsRequired,
		IsReadonly:    tc.locked,
	}

	cc, err := newControl(id, KindCell, def)
	if err != nil {
		return "", err
	}
	if v != nil {
		cc.Value = v
	}
	cc.parent = rc.ID
	m.register(cc)
	rc.children = append(rc.children, id)
	return id, nil
}

// mutableTable returns a table the user may currently change.
func (m *Model) mutableTable(tableID string) (*table, *Control, error) {
	t, ok := m.tables[tableID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownControl, tableID)
	}
	c := m.controls[tableID]
	if c.Disabled {
		return nil, nil, fmt.Errorf("%w: %s", ErrDisabled, tableID)
	}
	return t, c, nil
}

// AddRow appends an empty row to a row_dynamic table.
func (m *Model) AddRow(tableID string) (string, error) {
	t, tc, err := m.mutableTable(tableID)
	if err != nil {
		return "", err
	}
	if !t.cfg.RowsMutable() {
		return "", fmt.Errorf("%w: %s rows", ErrNotMutable, tableID)
	}
	if len(t.rows) >= t.cfg.MaxRows {
		return "", fmt.Errorf("%s: %w (%d rows)", tableID, catalog.ErrTableLimit, t.cfg.MaxRows)
	}

	rowID := t.nextID("row_", func(id string) bool { return t.hasRow(id) })
	ids, err := m.addRow(t, tc, catalog.TableRow{ID: rowID})
	if err != nil {
		return "", err
	}
	m.changed(ids...)

	return rowID, nil
}

func (m *Model) RemoveRow(tableID, rowID string) error {
	t, tc, err := m.mutableTable(tableID)
	if err != nil {
		return err
	}
	if !t.cfg.RowsMutable() {
		return fmt.Errorf("%w: %s rows", ErrNotMutable, tableID)
	}
	if !t.hasRow(rowID) {
		return fmt.Errorf("%w: %s", ErrUnknownControl, rowControlID(tableID, rowID))
	}

	rc := m.controls[rowControlID(tableID, rowID)]
	removed := append([]string{rc.ID}, rc.children...)
	m.unregister(removed...)
	tc.children = without(tc.children, rc.ID)

	rows := t.rows[:0]
	for _, r := range t.rows {
		if r.ID != rowID {
			rows = append(rows, r)
		}
	}
	t.rows = rows

	m.changed(removed...)
	return nil
}

// AddColumn appends a user column to a column_dynamic table, adding a cell
// to every row. The label follows the table's column name pattern.
func (m *Model) AddColumn(tableID string) (string, error) {
	t, tc, err := m.mutableTable(tableID)
	if err != nil {
		return "", err
	}
	if !t.cfg.ColumnsMutable() {
		return "", fmt.Errorf("%w: %s columns", ErrNotMutable, tableID)
	}
	if len(t.columns) >= t.cfg.MaxColumns {
		return "", fmt.Errorf("%s: %w (%d columns)", tableID, catalog.ErrTableLimit, t.cfg.MaxColumns)
	}

	n := t.nextColumnNumber()
	col := catalog.TableColumn{
		ID:        fmt.Sprintf("col_%d", n),
		Label:     t.cfg.ColumnName(n),
		FieldType: t.columns[len(t.columns)-1].FieldType,
		UserAdded: true,
	}
	t.columns = append(t.columns, col)

	var ids []string
	for _, r := range t.rows {
		rc := m.controls[rowControlID(tableID, r.ID)]
		id, err := m.addCell(t, tc, rc, r.ID, col, nil)
		if err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	m.changed(ids...)

	return col.ID, nil
}

// RemoveColumn drops a user-added column. Template columns cannot be removed.
func (m *Model) RemoveColumn(tableID, colID string) error {
	t, _, err := m.mutableTable(tableID)
	if err != nil {
		return err
	}
	if !t.cfg.ColumnsMutable() {
		return fmt.Errorf("%w: %s columns", ErrNotMutable, tableID)
	}

	idx := -1
	for i, col := range t.columns {
		if col.ID == colID {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: column %s of %s", ErrUnknownControl, colID, tableID)
	}
	if !t.columns[idx].UserAdded {
		return fmt.Errorf("%w: column %s is part of the template", ErrNotMutable, colID)
	}
	t.columns = append(t.columns[:idx:idx], t.columns[idx+1:]...)

	var removed []string
	for _, r := range t.rows {
		id := CellID(tableID, r.ID, colID)
		rc := m.controls[rowControlID(tableID, r.ID)]
		rc.children = without(rc.children, id)
		removed = append(removed, id)
	}
	m.unregister(removed...)
	m.changed(removed...)

	return nil
}

func (t *table) hasRow(id string) bool {
	for _, r := range t.rows {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (t *table) hasColumn(id string) bool {
	for _, c := range t.columns {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (t *table) userColumns() int {
	n := 0
	for _, c := range t.columns {
		if c.UserAdded {
			n++
		}
	}
	return n
}

// nextColumnNumber numbers a new user column one past the highest user
// column so far, so labels stay unique after removals.
func (t *table) nextColumnNumber() int {
	n := t.userColumns()
	for _, c := range t.columns {
		if !c.UserAdded {
			continue
		}
		if k, err := strconv.Atoi(strings.TrimPrefix(c.ID, "col_")); err == nil && k > n {
			n = k
		}
	}
	n++
	for t.hasColumn(fmt.Sprintf("col_%d", n)) {
		n++
	}
	return n
}

func (t *table) nextID(prefix string, taken func(string) bool) string {
	for n := 1; ; n++ {
		id := fmt.Sprintf("%s%d", prefix, n)
		if !taken(id) {
			return id
		}
	}
}

func without(ids []string, drop string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
