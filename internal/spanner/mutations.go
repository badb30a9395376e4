package spanner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/spanner"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/api/iterator"

	"github.com/nu0ma/dbfixture/dataset"
	"github.com/nu0ma/dbfixture/internal/database"
)

type column struct {
	name string
	typ  *sppb.Type
}

type tableSchema struct {
	name    string
	columns []column
}

func (s tableSchema) column(name string) (column, bool) {
	for _, c := range s.columns {
		if strings.EqualFold(c.name, name) {
			return c, true
		}
	}
	return column{}, false
}

// schema looks table up in INFORMATION_SCHEMA, matching the name
// case-insensitively.
func (c *Client) schema(ctx context.Context, table string) (tableSchema, error) {
	stmt := spanner.Statement{
		SQL: `SELECT TABLE_NAME, COLUMN_NAME, SPANNER_TYPE
			FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = '' AND LOWER(TABLE_NAME) = LOWER(@tableName)
			ORDER BY ORDINAL_POSITION`,
		Params: map[string]any{
			"tableName": table,
		},
	}

	iter := c.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var s tableSchema
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return tableSchema{}, fmt.Errorf("failed to read schema of table %s: %w", table, err)
		}
		var tableName, columnName, spannerType string
		if err := row.Columns(&tableName, &columnName, &spannerType); err != nil {
			return tableSchema{}, fmt.Errorf("failed to scan schema row: %w", err)
		}
		typ, err := parseType(spannerType)
		if err != nil {
			return tableSchema{}, fmt.Errorf("table %s column %s: %w", tableName, columnName, err)
		}
		s.name = tableName
		s.columns = append(s.columns, column{name: columnName, typ: typ})
	}

	if s.name == "" {
		return tableSchema{}, fmt.Errorf("%w: %s", dataset.ErrNoSuchTable, table)
	}
	return s, nil
}

// insertMutations builds one Insert mutation per row of t.
func (c *Client) insertMutations(ctx context.Context, t *dataset.Table, allowEmptyFields bool) (string, []*spanner.Mutation, error) {
	s, err := c.schema(ctx, t.Name())
	if err != nil {
		return "", nil, err
	}
	if err := database.CheckEmptyFields(t, allowEmptyFields); err != nil {
		return "", nil, err
	}

	meta := t.Metadata()
	cols := make([]column, len(meta.Columns))
	names := make([]string, len(meta.Columns))
	for i, mc := range meta.Columns {
		col, ok := s.column(mc.Name)
		if !ok {
			return "", nil, fmt.Errorf("table %s: %w: %s", s.name, dataset.ErrNoSuchColumn, mc.Name)
		}
		cols[i] = col
		names[i] = col.name
	}

	mutations := make([]*spanner.Mutation, 0, t.RowCount())
	for r := 0; r < t.RowCount(); r++ {
		row := t.Row(r)
		values := make([]any, len(row))
		for i, v := range row {
			encoded, err := encodeValue(cols[i].typ, v)
			if err != nil {
				return "", nil, fmt.Errorf("table %s row %d column %s: %w", s.name, r+1, cols[i].name, err)
			}
			values[i] = encoded
		}
		mutations = append(mutations, spanner.Insert(s.name, names, values))
	}
	return s.name, mutations, nil
}

// CleanInsert deletes every row of each table in ds, in reverse order, then
// inserts the dataset rows. Everything commits atomically.
func (c *Client) CleanInsert(ctx context.Context, ds *dataset.Dataset, allowEmptyFields bool) error {
	return c.apply(ctx, ds, allowEmptyFields, true)
}

// Insert adds the dataset rows without deleting anything.
func (c *Client) Insert(ctx context.Context, ds *dataset.Dataset, allowEmptyFields bool) error {
	return c.apply(ctx, ds, allowEmptyFields, false)
}

func (c *Client) apply(ctx context.Context, ds *dataset.Dataset, allowEmptyFields, clean bool) error {
	tables := ds.Tables()
	names := make([]string, len(tables))
	var inserts []*spanner.Mutation
	for i, t := range tables {
		name, ms, err := c.insertMutations(ctx, t, allowEmptyFields)
		if err != nil {
			return err
		}
		names[i] = name
		inserts = append(inserts, ms...)
	}

	var mutations []*spanner.Mutation
	if clean {
		for i := len(names) - 1; i >= 0; i-- {
			mutations = append(mutations, spanner.Delete(names[i], spanner.AllKeys()))
		}
	}
	mutations = append(mutations, inserts...)
	if len(mutations) == 0 {
		return nil
	}

	if _, err := c.client.Apply(ctx, mutations); err != nil {
		return fmt.Errorf("failed to apply mutations: %w", err)
	}
	return nil
}
