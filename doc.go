// Package dbfixture seeds and verifies database state for tests.
//
// A Backend is opened once from a properties file with InitDatabase, which
// also runs the configured init script or goose migrations directory. A
// Helper wraps the Backend and loads flat XML or YAML fixtures into it,
// exports live tables to fixture files and compares live tables with
// expected fixtures:
//
//	b, err := dbfixture.InitDatabase(ctx, "testdata/server.properties")
//	if err != nil {
//		t.Fatal(err)
//	}
//	h := dbfixture.New(b, dbfixture.WithFixtures(os.DirFS("testdata")))
//	defer h.Close()
//
//	ds, err := h.InitDataSet(ctx, "users.xml")
//	...
//	h.AssertTable(t, "users", ds)
//
// Row order is not significant when comparing. The row count is checked
// before any cell, and the live table is projected onto the expected
// table's columns, so a fixture may name a subset of the columns.
package dbfixture
