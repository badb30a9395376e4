package dbfixture

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nu0ma/dbfixture/internal/testutil"
)

func TestInitDatabase(t *testing.T) {
	_, props := testutil.SQLiteProject(t, testutil.UsersSchema, nil)

	b, err := InitDatabase(context.Background(), props)
	require.NoError(t, err)
	defer b.Close()

	sqlBackend, ok := b.(*SQLBackend)
	require.True(t, ok)
	assert.Equal(t, "sqlite", sqlBackend.Driver())
	// the schema exists on the single pooled connection
	assert.Equal(t, 0, testutil.CountRows(t, sqlBackend.DB(), "users"))
}

func TestInitDatabaseMissingConfig(t *testing.T) {
	_, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "nope.properties"))
	assert.Error(t, err)
}

func TestInitDatabaseWithKeys(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"db.properties":  "jdbc.driver=sqlite\njdbc.url=:memory:\nschema=sql/schema.sql\n",
		"sql/schema.sql": testutil.UsersSchema,
	})
	keys := Keys{URL: "jdbc.url", User: "jdbc.user", Password: "jdbc.password", Script: "schema", Driver: "jdbc.driver"}

	b, err := InitDatabase(context.Background(), filepath.Join(dir, "db.properties"), WithKeys(keys))
	require.NoError(t, err)
	defer b.Close()

	assert.NoError(t, b.Exec(context.Background(), "INSERT INTO users (id, name) VALUES (1, 'a')"))
}

func TestInitDatabaseScriptFailure(t *testing.T) {
	_, props := testutil.SQLiteProject(t, "CREATE TABLE a (id INT);\nINSERT INTO nope VALUES (1);", nil)

	_, err := InitDatabase(context.Background(), props)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
}

func TestInitDatabaseMigrationsDirectory(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"server.properties":          "dataSourceClassName=sqlite\ndataSource.url=:memory:\ninitTableSql=migrations\n",
		"migrations/00001_users.sql": "-- +goose Up\nCREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);\n\n-- +goose Down\nDROP TABLE users;\n",
	})

	b, err := InitDatabase(context.Background(), filepath.Join(dir, "server.properties"))
	require.NoError(t, err)
	defer b.Close()

	assert.NoError(t, b.Exec(context.Background(), "INSERT INTO users (id, name) VALUES (1, 'a')"))
}

func TestInitDatabaseMissingScript(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"server.properties": "initTableSql=absent.sql\n",
	})
	_, err := InitDatabase(context.Background(), filepath.Join(dir, "server.properties"))
	assert.Error(t, err)
}

func TestOpenDatabaseNoScript(t *testing.T) {
	b, err := OpenDatabase(context.Background(), &Settings{Driver: "sqlite", URL: ":memory:"})
	require.NoError(t, err)
	defer b.Close()
	assert.NoError(t, b.Exec(context.Background(), "CREATE TABLE t (id INT)"))

	_, err = OpenDatabase(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenDatabaseSpannerBadPath(t *testing.T) {
	_, err := OpenDatabase(context.Background(), &Settings{Driver: "spanner", URL: "not-a-path"})
	assert.Error(t, err)
}

func TestOpenHelper(t *testing.T) {
	_, props := testutil.SQLiteProject(t, testutil.UsersSchema, nil)
	settings, err := LoadSettings(props, DefaultKeys())
	require.NoError(t, err)

	h, err := Open(context.Background(), settings)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.ExecSQL(context.Background(), "INSERT INTO users (id, name) VALUES (1, 'a')"))
}
