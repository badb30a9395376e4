package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// UsersXML holds two users rows.
const UsersXML = `<?xml version='1.0' encoding='UTF-8'?>
<dataset>
  <users id="1" name="a"/>
  <users id="2" name="b"/>
</dataset>
`

// WriteFiles writes files, keyed by slash-separated relative path, under a
// fresh temporary directory and returns that directory.
func WriteFiles(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("cannot create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("cannot write %s: %v", name, err)
		}
	}
	return dir
}

// SQLiteProject writes a server.properties pointing at an in-memory SQLite
// database initialized with schema.sql, plus the given extra files. It
// returns the directory and the properties file path.
func SQLiteProject(t testing.TB, schema string, extra map[string]string) (string, string) {
	t.Helper()
	files := map[string]string{
		"server.properties": "dataSourceClassName=sqlite\ndataSource.url=:memory:\ninitTableSql=schema.sql\n",
		"schema.sql":        schema,
	}
	for k, v := range extra {
		files[k] = v
	}
	dir := WriteFiles(t, files)
	return dir, filepath.Join(dir, "server.properties")
}
