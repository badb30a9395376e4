package testutil

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/nu0ma/dbfixture/internal/database"
)

// UsersSchema creates users(id, name, note) and orders referencing it.
const UsersSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	note TEXT
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	amount REAL,
	placed_at TIMESTAMP
);
`

// OpenSQLite returns an in-memory database with script applied. It is
// closed when the test ends.
func OpenSQLite(t testing.TB, script string) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("cannot open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	LoadSQL(t, db, script)
	return db
}

// LoadSQL executes every statement of script.
func LoadSQL(t testing.TB, db *sql.DB, script string) {
	t.Helper()
	if err := database.RunScript(context.Background(), db, strings.NewReader(script)); err != nil {
		t.Fatalf("cannot execute SQL: %v", err)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("cannot count rows in %s: %v", table, err)
	}
	return n
}
