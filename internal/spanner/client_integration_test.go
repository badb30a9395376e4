//go:build integration

package spanner

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/apstndb/spanemuboost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nu0ma/dbfixture/dataset"
)

var setupDDLs = []string{
	"CREATE TABLE Users (UserID STRING(36) NOT NULL, Name STRING(100) NOT NULL, Score INT64, Balance NUMERIC, CreatedAt TIMESTAMP) PRIMARY KEY (UserID)",
	"CREATE TABLE Orders (UserID STRING(36) NOT NULL, OrderID INT64 NOT NULL, Tags ARRAY<STRING(MAX)>) PRIMARY KEY (UserID, OrderID), INTERLEAVE IN PARENT Users ON DELETE CASCADE",
}

func newEmulatorClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	_, clients, teardown, err := spanemuboost.NewEmulatorWithClients(ctx,
		spanemuboost.WithSetupDDLs(setupDDLs),
	)
	if err != nil {
		t.Fatalf("failed to start Spanner emulator: %v", err)
	}
	t.Cleanup(teardown)

	path := fmt.Sprintf("projects/%s/instances/%s/databases/%s", clients.ProjectID, clients.InstanceID, clients.DatabaseID)
	return Wrap(clients.Client, clients.DatabaseClient, path)
}

func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	users := dataset.NewTable(dataset.Metadata{Table: "users", Columns: []dataset.Column{
		{Name: "UserID"}, {Name: "Name"}, {Name: "Score"}, {Name: "Balance"}, {Name: "CreatedAt"},
	}})
	require.NoError(t, users.AddRow("u1", "alice", "10", "12.50", "2024-03-01 12:30:00"))
	require.NoError(t, users.AddRow("u2", "bob", nil, nil, nil))

	orders := dataset.NewTable(dataset.Metadata{Table: "Orders", Columns: []dataset.Column{
		{Name: "UserID"}, {Name: "OrderID"}, {Name: "Tags"},
	}})
	require.NoError(t, orders.AddRow("u1", "1", `["a", "b"]`))
	return dataset.New(users, orders)
}

func TestIntegrationCleanInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	c := newEmulatorClient(t)

	require.NoError(t, c.Exec(ctx, "INSERT INTO Users (UserID, Name) VALUES ('stale', 'gone')"))
	require.NoError(t, c.CleanInsert(ctx, fixture(t), true))

	users, err := c.QueryTable(ctx, "Users", "SELECT UserID, Name, Score, Balance FROM Users ORDER BY UserID")
	require.NoError(t, err)
	require.Equal(t, 2, users.RowCount())

	score, err := users.Value(0, "Score")
	require.NoError(t, err)
	assert.Equal(t, int64(10), score)

	balance, err := users.Value(0, "Balance")
	require.NoError(t, err)
	assert.Zero(t, balance.(*big.Rat).Cmp(big.NewRat(25, 2)))

	nullScore, err := users.Value(1, "score")
	require.NoError(t, err)
	assert.Nil(t, nullScore)

	orders, err := c.QueryTable(ctx, "Orders", "")
	require.NoError(t, err)
	require.Equal(t, 1, orders.RowCount())
	tags, err := orders.Value(0, "Tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, tags)
}

func TestIntegrationInsertAndEmptyResult(t *testing.T) {
	ctx := context.Background()
	c := newEmulatorClient(t)

	empty, err := c.QueryTable(ctx, "Users", "")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.RowCount())
	assert.Equal(t, []string{"UserID", "Name", "Score", "Balance", "CreatedAt"}, empty.Metadata().ColumnNames())

	require.NoError(t, c.Exec(ctx, "INSERT INTO Users (UserID, Name) VALUES ('kept', 'k')"))
	users := dataset.NewTable(dataset.Metadata{Table: "Users", Columns: []dataset.Column{{Name: "UserID"}, {Name: "Name"}}})
	require.NoError(t, users.AddRow("new", "n"))
	require.NoError(t, c.Insert(ctx, dataset.New(users), false))

	got, err := c.QueryTable(ctx, "Users", "")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RowCount())
}

func TestIntegrationUnknownTable(t *testing.T) {
	c := newEmulatorClient(t)
	missing := dataset.NewTable(dataset.Metadata{Table: "Nope", Columns: []dataset.Column{{Name: "id"}}})
	err := c.CleanInsert(context.Background(), dataset.New(missing), true)
	assert.ErrorIs(t, err, dataset.ErrNoSuchTable)
}

func TestIntegrationRunStatements(t *testing.T) {
	ctx := context.Background()
	c := newEmulatorClient(t)

	err := c.RunStatements(ctx, []string{
		"CREATE TABLE Widgets (ID INT64 NOT NULL) PRIMARY KEY (ID)",
		"INSERT INTO Widgets (ID) VALUES (1)",
	})
	require.NoError(t, err)

	widgets, err := c.QueryTable(ctx, "Widgets", "")
	require.NoError(t, err)
	assert.Equal(t, 1, widgets.RowCount())
}
