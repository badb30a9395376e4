package dbfixture

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nu0ma/dbfixture/dataset"
	"github.com/nu0ma/dbfixture/internal/database"
	"github.com/nu0ma/dbfixture/internal/spanner"
)

// QueryOptions control how a Backend reads a table.
type QueryOptions struct {
	// EscapePattern quotes the table name of the default query.
	EscapePattern *string
}

type InsertOptions struct {
	AllowEmptyFields bool
	// EscapePattern quotes identifiers, "?" standing for the name.
	EscapePattern *string
	BatchSize     int
}

// Backend is a live database the Helper seeds and reads.
type Backend interface {
	// Exec runs one statement and releases its resources.
	Exec(ctx context.Context, query string) error
	// QueryTable loads query's result as a table named table. An empty
	// query selects the whole table.
	QueryTable(ctx context.Context, table, query string, opts QueryOptions) (*dataset.Table, error)
	// CleanInsert atomically replaces the contents of every table in ds.
	CleanInsert(ctx context.Context, ds *dataset.Dataset, opts InsertOptions) error
	// Insert adds the rows of ds, keeping existing rows.
	Insert(ctx context.Context, ds *dataset.Dataset, opts InsertOptions) error
	Close() error
}

// SQLBackend serves a database/sql handle.
type SQLBackend struct {
	db      *sql.DB
	driver  string
	bindvar database.Bindvar
}

func NewSQLBackend(db *sql.DB, driver string) *SQLBackend {
	return &SQLBackend{db: db, driver: driver, bindvar: database.BindvarFor(driver)}
}

func (b *SQLBackend) DB() *sql.DB    { return b.db }
func (b *SQLBackend) Driver() string { return b.driver }

func (b *SQLBackend) Exec(ctx context.Context, query string) error {
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("executing %q: %w", query, err)
	}
	return nil
}

func (b *SQLBackend) QueryTable(ctx context.Context, table, query string, opts QueryOptions) (*dataset.Table, error) {
	return database.QueryTable(ctx, b.db, table, query, opts.EscapePattern)
}

func (b *SQLBackend) CleanInsert(ctx context.Context, ds *dataset.Dataset, opts InsertOptions) error {
	return database.CleanInsert(ctx, b.db, ds, b.insertOptions(opts))
}

func (b *SQLBackend) Insert(ctx context.Context, ds *dataset.Dataset, opts InsertOptions) error {
	return database.Insert(ctx, b.db, ds, b.insertOptions(opts))
}

func (b *SQLBackend) insertOptions(opts InsertOptions) database.InsertOptions {
	return database.InsertOptions{
		AllowEmptyFields: opts.AllowEmptyFields,
		EscapePattern:    opts.EscapePattern,
		BatchSize:        opts.BatchSize,
		Bindvar:          b.bindvar,
	}
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

// SpannerBackend serves a Cloud Spanner database. Rows are written with
// mutations and identifiers are always backtick-quoted, so EscapePattern and
// BatchSize do not apply.
type SpannerBackend struct {
	client *spanner.Client
}

func (b *SpannerBackend) Exec(ctx context.Context, query string) error {
	return b.client.Exec(ctx, query)
}

func (b *SpannerBackend) QueryTable(ctx context.Context, table, query string, _ QueryOptions) (*dataset.Table, error) {
	return b.client.QueryTable(ctx, table, query)
}

func (b *SpannerBackend) CleanInsert(ctx context.Context, ds *dataset.Dataset, opts InsertOptions) error {
	return b.client.CleanInsert(ctx, ds, opts.AllowEmptyFields)
}

func (b *SpannerBackend) Insert(ctx context.Context, ds *dataset.Dataset, opts InsertOptions) error {
	return b.client.Insert(ctx, ds, opts.AllowEmptyFields)
}

func (b *SpannerBackend) Close() error {
	return b.client.Close()
}
