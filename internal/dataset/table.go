package dataset

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ColumnType is the inferred type of a column
type ColumnType string

const (
	TypeInteger   ColumnType = "integer"
	TypeDouble    ColumnType = "double"
	TypeBoolean   ColumnType = "boolean"
	TypeDate      ColumnType = "date"
	TypeTimestamp ColumnType = "timestamp"
	TypeString    ColumnType = "string"
)

// IsNumeric reports whether values of the type are int64 or float64
func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDouble
}

// Column describes one column of a Table
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Table is an in-memory batch with an inferred schema. Cell values are
// int64, float64, bool, time.Time, string, or nil for null.
type Table struct {
	Name   string
	Schema []Column
	Rows   [][]any

	index map[string]int
}

// NewTable builds a table from an explicit schema and typed rows.
func NewTable(name string, schema []Column, rows [][]any) (*Table, error) {
	t := &Table{Name: name, Schema: schema, Rows: rows, index: make(map[string]int, len(schema))}
	for i, col := range schema {
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q in %s", col.Name, name)
		}
		t.index[col.Name] = i
	}
	for i, row := range rows {
		if len(row) != len(schema) {
			return nil, fmt.Errorf("%s row %d has %d values, expected %d", name, i+1, len(row), len(schema))
		}
	}
	return t, nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the table has a column called name
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns the schema entry for name
func (t *Table) Column(name string) (Column, bool) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return Column{}, false
	}
	return t.Schema[i], true
}

// Values returns every value of the named column in row order.
func (t *Table) Values(name string) ([]any, bool) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, false
	}
	values := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = row[i]
	}
	return values, true
}

// MissingColumns returns the names in required that the table lacks, in order.
func (t *Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// PrintSchema writes the schema as an indented tree.
func (t *Table) PrintSchema(w io.Writer) error {
	var b strings.Builder
	b.WriteString("root\n")
	for _, col := range t.Schema {
		fmt.Fprintf(&b, " |-- %s: %s (nullable = %t)\n", col.Name, col.Type, col.Nullable)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatValue renders a cell the way it is shown in samples and keys.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}
