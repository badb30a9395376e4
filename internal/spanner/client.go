package spanner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/spanner"
	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nu0ma/dbfixture/dataset"
)

var databasePathPattern = regexp.MustCompile(`^projects/[^/]+/instances/[^/]+/databases/[^/]+$`)

type Options struct {
	// EmulatorHost dials an emulator without credentials, e.g. "localhost:9010".
	EmulatorHost string
}

type Client struct {
	client   *spanner.Client
	admin    *database.DatabaseAdminClient
	database string
	owned    bool
}

func NewClient(ctx context.Context, databasePath string, opts Options) (*Client, error) {
	if !databasePathPattern.MatchString(databasePath) {
		return nil, fmt.Errorf("invalid database path %q: want projects/P/instances/I/databases/D", databasePath)
	}

	var clientOpts []option.ClientOption
	if opts.EmulatorHost != "" {
		clientOpts = append(clientOpts,
			option.WithEndpoint(opts.EmulatorHost),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := spanner.NewClient(ctx, databasePath, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spanner client: %w", err)
	}
	admin, err := database.NewDatabaseAdminClient(ctx, clientOpts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create database admin client: %w", err)
	}

	return &Client{client: client, admin: admin, database: databasePath, owned: true}, nil
}

// Wrap uses existing clients. Close does not close them.
func Wrap(client *spanner.Client, admin *database.DatabaseAdminClient, databasePath string) *Client {
	return &Client{client: client, admin: admin, database: databasePath}
}

func (c *Client) Close() error {
	if !c.owned {
		return nil
	}
	c.client.Close()
	return c.admin.Close()
}

type statementKind int

const (
	statementQuery statementKind = iota
	statementDML
	statementDDL
)

func classify(stmt string) statementKind {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return statementDML
	}
	switch strings.ToUpper(fields[0]) {
	case "CREATE", "ALTER", "DROP", "GRANT", "REVOKE", "RENAME", "ANALYZE":
		return statementDDL
	case "SELECT", "WITH", "GRAPH":
		return statementQuery
	}
	return statementDML
}

// Exec runs one statement. DDL goes through the admin API, DML through a
// read-write transaction and queries are drained.
func (c *Client) Exec(ctx context.Context, stmt string) error {
	switch classify(stmt) {
	case statementDDL:
		return c.UpdateDDL(ctx, []string{stmt})
	case statementQuery:
		iter := c.client.Single().Query(ctx, spanner.Statement{SQL: stmt})
		defer iter.Stop()
		for {
			_, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to run query: %w", err)
			}
		}
	}

	_, err := c.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		_, err := txn.Update(ctx, spanner.Statement{SQL: stmt})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to execute DML: %w", err)
	}
	return nil
}

func (c *Client) UpdateDDL(ctx context.Context, statements []string) error {
	if c.admin == nil {
		return errors.New("DDL requires a database admin client")
	}
	op, err := c.admin.UpdateDatabaseDdl(ctx, &databasepb.UpdateDatabaseDdlRequest{
		Database:   c.database,
		Statements: statements,
	})
	if err != nil {
		return fmt.Errorf("failed to update DDL: %w", err)
	}
	if err := op.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for DDL: %w", err)
	}
	return nil
}

// RunStatements executes statements in order. Consecutive DDL statements are
// sent as one batch.
func (c *Client) RunStatements(ctx context.Context, statements []string) error {
	var ddl []string
	first := 0
	flush := func() error {
		if len(ddl) == 0 {
			return nil
		}
		if err := c.UpdateDDL(ctx, ddl); err != nil {
			return fmt.Errorf("executing statements %d-%d: %w", first+1, first+len(ddl), err)
		}
		ddl = nil
		return nil
	}

	for i, stmt := range statements {
		if classify(stmt) == statementDDL {
			if len(ddl) == 0 {
				first = i
			}
			ddl = append(ddl, stmt)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := c.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing statement %d: %w", i+1, err)
		}
	}
	return flush()
}

// QueryTable loads the result of query as a table named table. An empty
// query selects every row and column of table.
func (c *Client) QueryTable(ctx context.Context, table, query string) (*dataset.Table, error) {
	if strings.TrimSpace(query) == "" {
		query = "SELECT * FROM " + quoteIdent(table)
	}

	iter := c.client.Single().Query(ctx, spanner.Statement{SQL: query})
	defer iter.Stop()

	var result *dataset.Table
	for {
		row, err := iter.Next()
		if result == nil && iter.Metadata != nil {
			result = newTable(table, iter.Metadata.GetRowType().GetFields())
		}
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query table %s: %w", table, err)
		}

		values := make([]any, row.Size())
		for i := range values {
			var gcv spanner.GenericColumnValue
			if err := row.Column(i, &gcv); err != nil {
				return nil, fmt.Errorf("failed to read column %d of table %s: %w", i, table, err)
			}
			v, err := decodeValue(gcv)
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", table, row.ColumnName(i), err)
			}
			values[i] = v
		}
		if err := result.AddRow(values...); err != nil {
			return nil, err
		}
	}

	if result == nil {
		return nil, fmt.Errorf("query for table %s returned no metadata", table)
	}
	return result, nil
}

func newTable(name string, fields []*sppb.StructType_Field) *dataset.Table {
	cols := make([]dataset.Column, len(fields))
	for i, f := range fields {
		cols[i] = dataset.Column{Name: f.GetName(), Type: dataTypeOf(f.GetType())}
	}
	return dataset.NewTable(dataset.Metadata{Table: name, Columns: cols})
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}
