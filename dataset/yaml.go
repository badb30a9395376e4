package dataset

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ReadYAML parses a YAML dataset: a mapping from table name to a sequence of
// row mappings. Order of tables and columns follows the document; a table's
// columns are the union of its rows' keys. An empty sequence declares a table
// without rows.
func ReadYAML(r io.Reader, opts ReadOptions) (*Dataset, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	ds := New()
	ds.SetCaseSensitive(opts.CaseSensitiveTableNames)
	if len(doc.Content) == 0 {
		return ds, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing yaml: line %d: top level must be a mapping of tables", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		rows := root.Content[i+1]

		t, err := ds.Table(name)
		if err != nil {
			t = NewTable(Metadata{Table: name})
			ds.AddTable(t)
		}

		switch {
		case rows.Kind == yaml.ScalarNode && rows.Tag == "!!null":
			continue
		case rows.Kind != yaml.SequenceNode:
			return nil, fmt.Errorf("parsing yaml: line %d: table %s must be a sequence of rows", rows.Line, name)
		}

		for _, rowNode := range rows.Content {
			if err := addYAMLRow(t, rowNode, opts); err != nil {
				return nil, err
			}
		}
	}
	return ds, nil
}

func addYAMLRow(t *Table, n *yaml.Node, opts ReadOptions) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("parsing yaml: line %d: row of table %s must be a mapping", n.Line, t.meta.Table)
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		col := n.Content[i].Value
		if t.meta.ColumnIndex(col) < 0 {
			t.addColumn(Column{Name: col})
		}
	}

	row := make([]any, len(t.meta.Columns))
	for i := 0; i+1 < len(n.Content); i += 2 {
		col, val := n.Content[i].Value, n.Content[i+1]
		idx := t.meta.ColumnIndex(col)
		switch {
		case val.Kind == yaml.ScalarNode && val.Tag == "!!null":
			row[idx] = nil
		case val.Kind == yaml.ScalarNode:
			row[idx] = opts.value(val.Value)
		default:
			return fmt.Errorf("parsing yaml: line %d: column %s of table %s must be a scalar", val.Line, col, t.meta.Table)
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

// WriteYAML writes d as a YAML dataset. NULL cells are written as null.
func WriteYAML(w io.Writer, d *Dataset) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, t := range d.tables {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		if len(t.rows) == 0 {
			seq.Style = yaml.FlowStyle
		}
		for _, row := range t.rows {
			m := &yaml.Node{Kind: yaml.MappingNode}
			for i, c := range t.meta.Columns {
				val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
				if s, ok := FormatValue(row[i]); ok {
					val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
				}
				m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: c.Name}, val)
			}
			seq.Content = append(seq.Content, m)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: t.meta.Table}, seq)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return fmt.Errorf("writing yaml: %w", err)
	}
	return enc.Close()
}
