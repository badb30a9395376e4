package dataset

import (
	"bytes"
	"strings"
	"testing"
)

const usersYAML = `
users:
  - id: 1
    name: a
  - id: 2
    name: ~
    email: b@example.com
orders: []
`

func TestReadYAML(t *testing.T) {
	ds, err := ReadYAML(strings.NewReader(usersYAML), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadYAML failed: %v", err)
	}

	if names := ds.TableNames(); len(names) != 2 || names[0] != "users" || names[1] != "orders" {
		t.Fatalf("unexpected tables: %v", names)
	}

	users, _ := ds.Table("users")
	if got := users.Metadata().ColumnNames(); len(got) != 3 || got[0] != "id" || got[2] != "email" {
		t.Fatalf("unexpected columns: %v", got)
	}
	if v, _ := users.Value(0, "id"); v != "1" {
		t.Errorf("expected scalar to read as string \"1\", got %#v", v)
	}
	if v, _ := users.Value(1, "name"); v != nil {
		t.Errorf("expected NULL, got %v", v)
	}
	if v, _ := users.Value(0, "email"); v != nil {
		t.Errorf("expected absent key to be NULL, got %v", v)
	}
}

func TestReadYAMLErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"top level sequence", "- users"},
		{"table not a sequence", "users: 1"},
		{"row not a mapping", "users:\n  - 1"},
		{"nested value", "users:\n  - id: [1, 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadYAML(strings.NewReader(tt.input), ReadOptions{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadYAMLEmptyDocument(t *testing.T) {
	ds, err := ReadYAML(strings.NewReader(""), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadYAML failed: %v", err)
	}
	if len(ds.Tables()) != 0 {
		t.Errorf("expected no tables, got %v", ds.TableNames())
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	users := NewTable(Metadata{Table: "users", Columns: []Column{{Name: "id"}, {Name: "name"}}})
	users.AddRow(int64(1), "null")
	users.AddRow(int64(2), nil)
	ds := New(users, NewTable(Metadata{Table: "orders"}))

	var buf bytes.Buffer
	if err := WriteYAML(&buf, ds); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}
	if !strings.Contains(buf.String(), "orders: []") {
		t.Errorf("expected empty table in flow style, got:\n%s", buf.String())
	}

	back, err := ReadYAML(&buf, ReadOptions{})
	if err != nil {
		t.Fatalf("reading written yaml failed: %v", err)
	}
	tbl, _ := back.Table("users")
	if v, _ := tbl.Value(0, "name"); v != "null" {
		t.Errorf("expected literal string null to survive, got %#v", v)
	}
	if v, _ := tbl.Value(1, "name"); v != nil {
		t.Errorf("expected NULL to survive, got %#v", v)
	}
	if v, _ := tbl.Value(1, "id"); v != "2" {
		t.Errorf("expected id 2, got %#v", v)
	}
}
