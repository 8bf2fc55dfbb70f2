package statement

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Charsets accepted for statement files.
const (
	CharsetUTF8        = "utf-8"
	CharsetWindows1252 = "windows-1252"
)

// Options control how a statement file is decoded.
type Options struct {
	Charset string
}

// ValidCharset reports whether the charset name is supported.
func ValidCharset(name string) bool {
	switch strings.ToLower(name) {
	case "", CharsetUTF8, CharsetWindows1252:
		return true
	}
	return false
}

// Parse reads a ';' separated export. The first line is the export title and
// is dropped; rows that fail to split are skipped.
func Parse(name string, r io.Reader, opts Options) (Statement, error) {
	if strings.EqualFold(opts.Charset, CharsetWindows1252) {
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return Statement{}, fmt.Errorf("read %s: %w", name, err)
		}
		if first {
			first = false
			continue
		}
		records = append(records, rec)
	}
	return ParseRecords(name, records)
}

// ParseFile parses the statement stored at path.
func ParseFile(path string, opts Options) (Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return Statement{}, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()
	return Parse(filepath.Base(path), f, opts)
}

// ListFiles returns the files of dir with the given extension (without the
// dot), sorted by name. An empty extension lists every regular file.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext != "" && !strings.EqualFold(strings.TrimPrefix(filepath.Ext(e.Name()), "."), ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Dir is a Source reading every CSV file of a directory.
type Dir struct {
	Path    string
	Options Options
}

func (d Dir) Statements(ctx context.Context) ([]Statement, error) {
	files, err := ListFiles(d.Path, "csv")
	if err != nil {
		return nil, err
	}
	out := make([]Statement, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, err := ParseFile(f, d.Options)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
