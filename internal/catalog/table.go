package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type TableType string

const (
	TableStatic        TableType = "static"
	TableRowDynamic    TableType = "row_dynamic"
	TableColumnDynamic TableType = "column_dynamic"
)

const defaultColumnNamePattern = "Column {number}"

var ErrTableLimit = errors.New("table limit reached")

type TableColumn struct {
	ID         string    `json:"id" bson:"id"`
	Label      string    `json:"label" bson:"label"`
	FieldType  FieldType `json:"fieldType,omitempty" bson:"fieldType,omitempty"`
	IsRequired bool      `json:"isRequired,omitempty" bson:"isRequired,omitempty"`
	UserAdded  bool      `json:"userAdded,omitempty" bson:"userAdded,omitempty"`
}

type TableRow struct {
	ID    string         `json:"id" bson:"id"`
	Label string         `json:"label,omitempty" bson:"label,omitempty"`
	Cells map[string]any `json:"cells,omitempty" bson:"cells,omitempty"`
}

type TableConfig struct {
	TableType         TableType     `json:"tableType" bson:"tableType"`
	Columns           []TableColumn `json:"columns" bson:"columns"`
	Rows              []TableRow    `json:"rows,omitempty" bson:"rows,omitempty"`
	MaxRows           int           `json:"maxRows,omitempty" bson:"maxRows,omitempty"`
	MaxColumns        int           `json:"maxColumns,omitempty" bson:"maxColumns,omitempty"`
	ColumnNamePattern string        `json:"columnNamePattern,omitempty" bson:"columnNamePattern,omitempty"`
}

// TableState is the persisted shape of a table inside a report: the rows and
// the full column set currently present, with user-added columns flagged.
type TableState struct {
	Rows    []TableRow    `json:"rows" bson:"rows"`
	Columns []TableColumn `json:"columns" bson:"columns"`
}

// Kind normalises an empty tableType to static.
func (c *TableConfig) Kind() TableType {
	if c.TableType == "" {
		return TableStatic
	}
	return c.TableType
}

func (c *TableConfig) RowsMutable() bool {
	return c.Kind() == TableRowDynamic
}

func (c *TableConfig) ColumnsMutable() bool {
	return c.Kind() == TableColumnDynamic
}

func (c *TableConfig) Check(ft FieldType) error {
	if len(c.Columns) == 0 {
		return errors.New("table without columns")
	}

	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.ID == "" {
			return errors.New("table column without id")
		}
		if seen[col.ID] {
			return fmt.Errorf("duplicate column id %q", col.ID)
		}
		seen[col.ID] = true
	}

	switch c.Kind() {
	case TableStatic:
		if ft != FieldTable {
			return fmt.Errorf("%s requires row_dynamic or column_dynamic tableType", ft)
		}
		if len(c.Rows) == 0 {
			return errors.New("static table without rows")
		}
	case TableRowDynamic:
		if ft != FieldDynamicTable {
			return fmt.Errorf("tableType %s requires fieldType dynamic_table", c.TableType)
		}
		if c.MaxRows <= 0 {
			return errors.New("row_dynamic table requires maxRows")
		}
		if len(c.Rows) > c.MaxRows {
			return fmt.Errorf("%d initial rows exceed maxRows %d", len(c.Rows), c.MaxRows)
		}
	case TableColumnDynamic:
		if ft != FieldDynamicTable {
			return fmt.Errorf("tableType %s requires fieldType dynamic_table", c.TableType)
		}
		if c.MaxColumns <= 0 {
			return errors.New("column_dynamic table requires maxColumns")
		}
		if len(c.Columns) > c.MaxColumns {
			return fmt.Errorf("%d columns exceed maxColumns %d", len(c.Columns), c.MaxColumns)
		}
		if len(c.Rows) == 0 {
			return errors.New("column_dynamic table without rows")
		}
	default:
		return fmt.Errorf("unknown tableType %q", c.TableType)
	}

	return nil
}

// ColumnName renders the configured naming pattern for the n-th column.
func (c *TableConfig) ColumnName(n int) string {
	pattern := c.ColumnNamePattern
	if pattern == "" {
		pattern = defaultColumnNamePattern
	}
	return strings.ReplaceAll(pattern, "{number}", strconv.Itoa(n))
}

// InitialState is the table state of a fresh report.
func (c *TableConfig) InitialState() TableState {
	st := TableState{
		Rows:    make([]TableRow, len(c.Rows)),
		Columns: make([]TableColumn, len(c.Columns)),
	}
	copy(st.Columns, c.Columns)
	for i, r := range c.Rows {
		st.Rows[i] = TableRow{ID: r.ID, Label: r.Label, Cells: cloneCells(r.Cells)}
	}
	return st
}

func cloneCells(cells map[string]any) map[string]any {
	if cells == nil {
		return nil
	}
	out := make(map[string]any, len(cells))
	for k, v := range cells {
		out[k] = v
	}
	return out
}
