package dbfixture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/nu0ma/dbfixture/dataset"
	"github.com/nu0ma/dbfixture/internal/logging"
	"github.com/nu0ma/dbfixture/internal/validator"
)

const DefaultBasePath = "testdata/dataset"

// Helper seeds, exports and checks the tables of one Backend. It is not
// safe for concurrent use.
type Helper struct {
	backend   Backend
	config    *Config
	basePath  string
	fixtures  fs.FS
	logger    *chlog.Logger
	validator *validator.Validator
}

type Option func(*Helper)

// WithConfig merges c into DefaultConfig.
func WithConfig(c *Config) Option {
	return func(h *Helper) { h.config.Apply(c) }
}

// WithBasePath sets the directory export files are written under.
func WithBasePath(dir string) Option {
	return func(h *Helper) { h.basePath = dir }
}

// WithFixtures sets the file system fixtures are read from.
func WithFixtures(fsys fs.FS) Option {
	return func(h *Helper) { h.fixtures = fsys }
}

func WithLogger(l *chlog.Logger) Option {
	return func(h *Helper) { h.logger = l }
}

// Open initializes the database described by settings and wraps it.
func Open(ctx context.Context, settings *Settings, opts ...Option) (*Helper, error) {
	b, err := OpenDatabase(ctx, settings)
	if err != nil {
		return nil, err
	}
	return New(b, opts...), nil
}

func New(b Backend, opts ...Option) *Helper {
	h := &Helper{
		backend:  b,
		config:   DefaultConfig(),
		basePath: DefaultBasePath,
		fixtures: os.DirFS("."),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.L()
	}
	h.validator = validator.NewWithOptions(validator.ComparisonOptions{
		FloatTolerance:      h.config.FloatTolerance(),
		TimestampTruncateTo: h.config.TimestampTruncateTo(),
	})
	return h
}

func (h *Helper) Backend() Backend { return h.backend }

// Config returns a copy of the effective configuration.
func (h *Helper) Config() *Config { return h.config.Clone() }

func (h *Helper) Close() error {
	return h.backend.Close()
}

func (h *Helper) ExecSQL(ctx context.Context, query string) error {
	h.logger.Debug("Executing SQL", "sql", query)
	return h.backend.Exec(ctx, query)
}

// ReadDataSet reads a fixture from the fixture file system. The format
// follows the extension: .xml is flat XML, .yaml and .yml are YAML.
func (h *Helper) ReadDataSet(name string) (*dataset.Dataset, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	ds, err := dataset.ReadFile(h.fixtures, name, dataset.ReadOptions{
		ColumnSensing:           h.config.ColumnSensing(),
		NullValue:               h.config.NullValueString(),
		CaseSensitiveTableNames: h.config.CaseSensitiveTableNames(),
	})
	if err != nil {
		return nil, err
	}
	h.logger.Debug("Dataset loaded", "file", name, "tables", ds.TableNames())
	return ds, nil
}

// InitDataSet reads a fixture and resets its tables to it.
func (h *Helper) InitDataSet(ctx context.Context, name string) (*dataset.Dataset, error) {
	ds, err := h.ReadDataSet(name)
	if err != nil {
		return nil, err
	}
	if err := h.ResetTables(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// ResetTables replaces the contents of every table in ds with its rows in
// one transaction. Rows absent from ds are removed.
func (h *Helper) ResetTables(ctx context.Context, ds *dataset.Dataset) error {
	if err := h.backend.CleanInsert(ctx, ds, h.insertOptions()); err != nil {
		return fmt.Errorf("resetting tables %v: %w", ds.TableNames(), err)
	}
	h.logger.Debug("Tables reset", "tables", ds.TableNames())
	return nil
}

// InsertDataSet adds the rows of ds without deleting anything.
func (h *Helper) InsertDataSet(ctx context.Context, ds *dataset.Dataset) error {
	if err := h.backend.Insert(ctx, ds, h.insertOptions()); err != nil {
		return fmt.Errorf("inserting tables %v: %w", ds.TableNames(), err)
	}
	h.logger.Debug("Rows inserted", "tables", ds.TableNames())
	return nil
}

func (h *Helper) insertOptions() InsertOptions {
	return InsertOptions{
		AllowEmptyFields: h.config.AllowEmptyFields(),
		EscapePattern:    h.config.EscapePattern(),
		BatchSize:        h.config.BatchSize(),
	}
}

// ExportDataSet writes the live contents of tables to file under the base
// path. No tables means no write. When a query fails the tables read so far
// are still written.
func (h *Helper) ExportDataSet(ctx context.Context, tables []string, file string) error {
	if len(tables) == 0 {
		return nil
	}

	out := dataset.New()
	out.SetCaseSensitive(h.config.CaseSensitiveTableNames())

	var queryErr error
	for _, name := range tables {
		t, err := h.queryTable(ctx, name, "")
		if err != nil {
			queryErr = err
			break
		}
		out.AddTable(t)
	}

	path := filepath.Join(h.basePath, file)
	writeErr := dataset.WriteFile(path, out)
	if writeErr == nil {
		h.logger.Debug("Export written", "file", path, "tables", out.TableNames())
	}
	return errors.Join(queryErr, writeErr)
}

func (h *Helper) ExportTable(ctx context.Context, table, file string) error {
	return h.ExportDataSet(ctx, []string{table}, file)
}

func (h *Helper) queryTable(ctx context.Context, table, query string) (*dataset.Table, error) {
	t, err := h.backend.QueryTable(ctx, table, query, QueryOptions{EscapePattern: h.config.EscapePattern()})
	if err != nil {
		return nil, fmt.Errorf("querying table %s: %w", table, err)
	}
	return t, nil
}

// CompareTable compares every row and column of the live table with the
// table of the same name in expected.
func (h *Helper) CompareTable(ctx context.Context, table string, expected *dataset.Dataset) error {
	return h.ComparePartialTable(ctx, table, "", expected)
}

// ComparePartialTable compares the result of query (the whole table when
// empty) with the table of the same name in expected, over expected's
// columns only. It returns a *validator.MismatchError on a difference.
func (h *Helper) ComparePartialTable(ctx context.Context, table, query string, expected *dataset.Dataset) error {
	if expected == nil {
		return errors.New("nil expected dataset")
	}
	want, err := expected.Table(table)
	if err != nil {
		return err
	}

	live, err := h.queryTable(ctx, table, query)
	if err != nil {
		return err
	}
	return h.validator.CompareTable(want, live)
}

func (h *Helper) AssertTable(t testing.TB, table string, expected *dataset.Dataset) {
	t.Helper()
	require.NoError(t, h.CompareTable(t.Context(), table, expected), "table %s", table)
}

func (h *Helper) AssertPartialTable(t testing.TB, table, query string, expected *dataset.Dataset) {
	t.Helper()
	require.NoError(t, h.ComparePartialTable(t.Context(), table, query, expected), "table %s", table)
}
