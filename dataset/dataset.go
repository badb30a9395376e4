// Package dataset models fixture data: an ordered collection of named tables,
// each a grid of rows over a column schema. Tables are read from flat XML or
// YAML fixture files, or built from live query results.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoSuchTable  = errors.New("no such table")
	ErrNoSuchColumn = errors.New("no such column")
)

// DataType is the coarse type of a column as reported by the database.
type DataType int

const (
	TypeUnknown DataType = iota
	TypeString
	TypeInteger
	TypeFloat
	TypeNumeric
	TypeBoolean
	TypeBytes
	TypeTimestamp
	TypeDate
	TypeJSON
)

func (t DataType) String() string {
	switch t {
	case TypeString:
		return "STRING"
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeNumeric:
		return "NUMERIC"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeBytes:
		return "BYTES"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeDate:
		return "DATE"
	case TypeJSON:
		return "JSON"
	}
	return "UNKNOWN"
}

// TypeFromDatabaseName maps a driver-reported column type name (for example
// "VARCHAR(20)", "INT64", "timestamptz") to a DataType.
func TypeFromDatabaseName(name string) DataType {
	n := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexAny(n, "(<"); i >= 0 {
		n = n[:i]
	}
	switch {
	case n == "":
		return TypeUnknown
	case strings.Contains(n, "INT"), n == "SERIAL", n == "BIGSERIAL":
		return TypeInteger
	case strings.Contains(n, "CHAR"), strings.Contains(n, "TEXT"), strings.Contains(n, "CLOB"),
		n == "STRING", n == "UUID", n == "NAME":
		return TypeString
	case strings.Contains(n, "REAL"), strings.Contains(n, "FLOA"), strings.Contains(n, "DOUB"):
		return TypeFloat
	case n == "NUMERIC", n == "DECIMAL", n == "NUMBER":
		return TypeNumeric
	case strings.HasPrefix(n, "BOOL"), n == "BIT":
		return TypeBoolean
	case strings.Contains(n, "BLOB"), n == "BYTES", n == "BYTEA", strings.Contains(n, "BINARY"):
		return TypeBytes
	case strings.HasPrefix(n, "TIMESTAMP"), n == "DATETIME", n == "TIME":
		return TypeTimestamp
	case n == "DATE":
		return TypeDate
	case strings.HasPrefix(n, "JSON"):
		return TypeJSON
	}
	return TypeUnknown
}

type Column struct {
	Name string
	Type DataType
}

// Metadata is a table's name and ordered column list.
type Metadata struct {
	Table   string
	Columns []Column
}

// ColumnIndex returns the position of the named column, matched
// case-insensitively, or -1.
func (m Metadata) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

func (m Metadata) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Table is a row-and-column grid. Each row holds one value per column, in
// column order; nil is SQL NULL.
type Table struct {
	meta Metadata
	rows [][]any
}

func NewTable(meta Metadata) *Table {
	return &Table{meta: meta}
}

func (t *Table) Name() string       { return t.meta.Table }
func (t *Table) Metadata() Metadata { return t.meta }
func (t *Table) RowCount() int      { return len(t.rows) }

// AddRow appends a row. The number of values must match the column count.
func (t *Table) AddRow(values ...any) error {
	if len(values) != len(t.meta.Columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.meta.Table, len(values), len(t.meta.Columns))
	}
	row := make([]any, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// Row returns the values of row i. The slice must not be modified.
func (t *Table) Row(i int) []any {
	return t.rows[i]
}

// Value returns the value at row i of the named column.
func (t *Table) Value(i int, column string) (any, error) {
	idx := t.meta.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("table %s: %w: %s", t.meta.Table, ErrNoSuchColumn, column)
	}
	if i < 0 || i >= len(t.rows) {
		return nil, fmt.Errorf("table %s: row %d out of range (%d rows)", t.meta.Table, i, len(t.rows))
	}
	return t.rows[i][idx], nil
}

// addColumn widens the schema, padding existing rows with NULL.
func (t *Table) addColumn(c Column) {
	t.meta.Columns = append(t.meta.Columns, c)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], nil)
	}
}

// Dataset is an ordered collection of named tables.
type Dataset struct {
	tables        []*Table
	caseSensitive bool
}

func New(tables ...*Table) *Dataset {
	d := &Dataset{}
	for _, t := range tables {
		d.AddTable(t)
	}
	return d
}

// SetCaseSensitive controls whether Table matches names exactly.
func (d *Dataset) SetCaseSensitive(v bool) { d.caseSensitive = v }

// AddTable appends t, replacing an existing table of the same name in place.
func (d *Dataset) AddTable(t *Table) {
	if i := d.index(t.Name()); i >= 0 {
		d.tables[i] = t
		return
	}
	d.tables = append(d.tables, t)
}

func (d *Dataset) Tables() []*Table {
	out := make([]*Table, len(d.tables))
	copy(out, d.tables)
	return out
}

func (d *Dataset) TableNames() []string {
	names := make([]string, len(d.tables))
	for i, t := range d.tables {
		names[i] = t.Name()
	}
	return names
}

func (d *Dataset) Table(name string) (*Table, error) {
	if i := d.index(name); i >= 0 {
		return d.tables[i], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, name)
}

func (d *Dataset) index(name string) int {
	for i, t := range d.tables {
		if t.Name() == name || (!d.caseSensitive && strings.EqualFold(t.Name(), name)) {
			return i
		}
	}
	return -1
}

// IncludedColumns returns a copy of t restricted to columns, in the given
// order. Column types are taken from t.
func IncludedColumns(t *Table, columns []Column) (*Table, error) {
	idx := make([]int, len(columns))
	meta := Metadata{Table: t.meta.Table, Columns: make([]Column, len(columns))}
	for i, c := range columns {
		j := t.meta.ColumnIndex(c.Name)
		if j < 0 {
			return nil, fmt.Errorf("table %s: %w: %s", t.meta.Table, ErrNoSuchColumn, c.Name)
		}
		idx[i] = j
		meta.Columns[i] = t.meta.Columns[j]
	}

	out := NewTable(meta)
	out.rows = make([][]any, len(t.rows))
	for r, row := range t.rows {
		projected := make([]any, len(idx))
		for i, j := range idx {
			projected[i] = row[j]
		}
		out.rows[r] = projected
	}
	return out, nil
}
