package dataset

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

func Read(r io.Reader, format Format, opts ReadOptions) (*Dataset, error) {
	if format == FormatYAML {
		return ReadYAML(r, opts)
	}
	return ReadFlatXML(r, opts)
}

func Write(w io.Writer, format Format, d *Dataset) error {
	if format == FormatYAML {
		return WriteYAML(w, d)
	}
	return WriteFlatXML(w, d)
}

// ReadFile reads the named fixture from fsys, choosing the encoding from
// its extension.
func ReadFile(fsys fs.FS, name string, opts ReadOptions) (*Dataset, error) {
	format, err := FormatFor(name)
	if err != nil {
		return nil, err
	}
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening fixture %s: %w", name, err)
	}
	defer f.Close()

	ds, err := Read(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", name, err)
	}
	return ds, nil
}

// WriteFile writes d to path, creating parent directories as needed.
func WriteFile(path string, d *Dataset) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating fixture directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating fixture %s: %w", path, err)
	}
	if err := Write(f, format, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
