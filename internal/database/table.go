package database

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/nu0ma/dbfixture/dataset"
)

// Bindvar is the placeholder style of a driver.
type Bindvar int

const (
	BindQuestion Bindvar = iota // ?
	BindDollar                  // $1
)

func BindvarFor(driver string) Bindvar {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return BindDollar
	}
	return BindQuestion
}

func (b Bindvar) placeholder(n int) string {
	if b == BindDollar {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

type InsertOptions struct {
	AllowEmptyFields bool
	// EscapePattern quotes identifiers: "?" is replaced by the name.
	EscapePattern *string
	BatchSize     int
	Bindvar       Bindvar
}

// QuoteIdent applies pattern to name; a nil or empty pattern leaves it bare.
func QuoteIdent(name string, pattern *string) string {
	if pattern == nil || *pattern == "" {
		return name
	}
	return strings.ReplaceAll(*pattern, "?", name)
}

type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryTable loads the result of query as a table named table. An empty
// query selects every row and column of table.
func QueryTable(ctx context.Context, db Queryer, table, query string, escape *string) (*dataset.Table, error) {
	if strings.TrimSpace(query) == "" {
		query = "SELECT * FROM " + QuoteIdent(table, escape)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying table %s: %w", table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	meta := dataset.Metadata{Table: table, Columns: make([]dataset.Column, len(types))}
	for i, ct := range types {
		meta.Columns[i] = dataset.Column{Name: ct.Name(), Type: dataset.TypeFromDatabaseName(ct.DatabaseTypeName())}
	}

	t := dataset.NewTable(meta)
	values := make([]any, len(types))
	pointers := make([]any, len(types))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		row := make([]any, len(values))
		for i, v := range values {
			// some drivers hand back text as bytes
			if b, ok := v.([]byte); ok && meta.Columns[i].Type != dataset.TypeBytes {
				v = string(b)
			}
			row[i] = v
		}
		if err := t.AddRow(row...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows of %s: %w", table, err)
	}
	return t, nil
}

// CleanInsert replaces the contents of every table in ds with its rows, in a
// single transaction. Tables are emptied in reverse dataset order and filled
// in dataset order, so parents listed before children satisfy foreign keys.
func CleanInsert(ctx context.Context, db *sql.DB, ds *dataset.Dataset, opts InsertOptions) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		tables := ds.Tables()
		for i := len(tables) - 1; i >= 0; i-- {
			name := tables[i].Name()
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+QuoteIdent(name, opts.EscapePattern)); err != nil {
				return fmt.Errorf("cleaning table %s: %w", name, err)
			}
		}
		for _, t := range tables {
			if err := insertRows(ctx, tx, t, opts); err != nil {
				return err
			}
		}
		return nil
	})
}

// Insert adds the rows of ds without touching existing rows.
func Insert(ctx context.Context, db *sql.DB, ds *dataset.Dataset, opts InsertOptions) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		for _, t := range ds.Tables() {
			if err := insertRows(ctx, tx, t, opts); err != nil {
				return err
			}
		}
		return nil
	})
}

func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, t *dataset.Table, opts InsertOptions) error {
	meta := t.Metadata()
	if len(meta.Columns) == 0 || t.RowCount() == 0 {
		return nil
	}
	if err := CheckEmptyFields(t, opts.AllowEmptyFields); err != nil {
		return err
	}

	batch := opts.BatchSize
	if batch < 1 {
		batch = 1
	}

	types, err := columnTypes(ctx, tx, meta.Table, opts.EscapePattern)
	if err != nil {
		return err
	}
	binary := make([]bool, len(meta.Columns))
	cols := make([]string, len(meta.Columns))
	for i, c := range meta.Columns {
		cols[i] = QuoteIdent(c.Name, opts.EscapePattern)
		binary[i] = types[strings.ToLower(c.Name)] == dataset.TypeBytes
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", QuoteIdent(meta.Table, opts.EscapePattern), strings.Join(cols, ", "))

	for start := 0; start < t.RowCount(); start += batch {
		end := min(start+batch, t.RowCount())

		var (
			sb   strings.Builder
			args []any
		)
		sb.WriteString(prefix)
		for r := start; r < end; r++ {
			if r > start {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for i, v := range t.Row(r) {
				if i > 0 {
					sb.WriteString(", ")
				}
				if s, ok := v.(string); ok && binary[i] {
					v = decodeBytes(s)
				}
				args = append(args, v)
				sb.WriteString(opts.Bindvar.placeholder(len(args)))
			}
			sb.WriteByte(')')
		}

		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("inserting rows %d-%d into %s: %w", start+1, end, meta.Table, err)
		}
	}
	return nil
}

// columnTypes reads the declared column types of table, keyed by lower-case
// column name.
func columnTypes(ctx context.Context, tx *sql.Tx, table string, escape *string) (map[string]dataset.DataType, error) {
	rows, err := tx.QueryContext(ctx, "SELECT * FROM "+QuoteIdent(table, escape)+" WHERE 1=0")
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	types := make(map[string]dataset.DataType, len(cts))
	for _, ct := range cts {
		types[strings.ToLower(ct.Name())] = dataset.TypeFromDatabaseName(ct.DatabaseTypeName())
	}
	return types, rows.Err()
}

// decodeBytes reads a binary fixture cell: base64 as written by export,
// otherwise the raw text.
func decodeBytes(s string) []byte {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b
	}
	return []byte(s)
}

// CheckEmptyFields rejects empty string cells unless allowed.
func CheckEmptyFields(t *dataset.Table, allow bool) error {
	if allow {
		return nil
	}
	meta := t.Metadata()
	for r := 0; r < t.RowCount(); r++ {
		for i, v := range t.Row(r) {
			if s, ok := v.(string); ok && s == "" {
				return fmt.Errorf("table %s row %d column %s: empty field not allowed (enable allowEmptyFields)",
					meta.Table, r+1, meta.Columns[i].Name)
			}
		}
	}
	return nil
}
