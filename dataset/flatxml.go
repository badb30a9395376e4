package dataset

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// ReadOptions tune how fixture files are turned into tables.
type ReadOptions struct {
	// ColumnSensing makes the column set of a flat XML table the union of
	// all its rows' attributes instead of the first row's.
	ColumnSensing bool
	// NullValue, when set, is a literal that reads as NULL.
	NullValue *string
	// CaseSensitiveTableNames disables case folding on table lookup.
	CaseSensitiveTableNames bool
}

func (o ReadOptions) value(s string) any {
	if o.NullValue != nil && s == *o.NullValue {
		return nil
	}
	return s
}

// ReadFlatXML parses a flat XML dataset: one root element holding one empty
// element per row, named after its table, with columns as attributes.
// Attributes missing from a row are NULL. An element without attributes
// declares a table without adding a row.
func ReadFlatXML(r io.Reader, opts ReadOptions) (*Dataset, error) {
	ds := New()
	ds.SetCaseSensitive(opts.CaseSensitiveTableNames)

	dec := xml.NewDecoder(r)
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing flat xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				continue
			case 2:
				if err := addXMLRow(ds, el, opts); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("parsing flat xml: unexpected nested element <%s>", el.Name.Local)
			}
		case xml.EndElement:
			depth--
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("parsing flat xml: unterminated document")
	}
	return ds, nil
}

func addXMLRow(ds *Dataset, el xml.StartElement, opts ReadOptions) error {
	name := el.Name.Local
	t, err := ds.Table(name)
	if err != nil {
		t = NewTable(Metadata{Table: name})
		for _, a := range el.Attr {
			t.meta.Columns = append(t.meta.Columns, Column{Name: a.Name.Local})
		}
		ds.AddTable(t)
	} else if len(t.meta.Columns) == 0 {
		// table was declared empty; the first real row fixes the columns
		for _, a := range el.Attr {
			t.meta.Columns = append(t.meta.Columns, Column{Name: a.Name.Local})
		}
	}
	if len(el.Attr) == 0 {
		return nil
	}

	if opts.ColumnSensing {
		for _, a := range el.Attr {
			if t.meta.ColumnIndex(a.Name.Local) < 0 {
				t.addColumn(Column{Name: a.Name.Local})
			}
		}
	}

	row := make([]any, len(t.meta.Columns))
	for _, a := range el.Attr {
		// without column sensing, attributes unknown to the first row are dropped
		if i := t.meta.ColumnIndex(a.Name.Local); i >= 0 {
			row[i] = opts.value(a.Value)
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

// WriteFlatXML writes d as a flat XML dataset. NULL cells are omitted and a
// table without rows is written as a single empty element.
func WriteFlatXML(w io.Writer, d *Dataset) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n<dataset>\n")

	for _, t := range d.tables {
		if len(t.rows) == 0 {
			fmt.Fprintf(bw, "  <%s/>\n", t.meta.Table)
			continue
		}
		for _, row := range t.rows {
			fmt.Fprintf(bw, "  <%s", t.meta.Table)
			for i, c := range t.meta.Columns {
				s, ok := FormatValue(row[i])
				if !ok {
					continue
				}
				fmt.Fprintf(bw, " %s=\"", c.Name)
				if err := xml.EscapeText(bw, []byte(s)); err != nil {
					return fmt.Errorf("writing flat xml: %w", err)
				}
				bw.WriteString(`"`)
			}
			bw.WriteString("/>\n")
		}
	}

	bw.WriteString("</dataset>\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing flat xml: %w", err)
	}
	return nil
}
