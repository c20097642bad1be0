package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// Options controls how the input table is decoded.
type Options struct {
	// Delimiter separates fields; zero means ','.
	Delimiter rune
	// Encoding names the character set of the file; empty means UTF-8.
	Encoding string
}

// RawTable is the header-validated, untyped content of the input file.
type RawTable struct {
	Source string
	Header []string
	Rows   [][]string

	columns map[models.Field]int
}

// Len returns the number of data rows.
func (t RawTable) Len() int { return len(t.Rows) }

// Value returns the cell of a field in the given data row.
func (t RawTable) Value(row int, f models.Field) string {
	col, ok := t.columns[f]
	if !ok {
		return ""
	}
	return t.Rows[row][col]
}

// LoadCSV reads and validates the customer table at path.
func LoadCSV(ctx context.Context, path string, opts Options) (RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return RawTable{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	table, err := ReadCSV(ctx, f, opts)
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			schemaErr.Path = path
		}
		return RawTable{}, err
	}
	table.Source = path
	return table, nil
}

// ReadCSV reads and validates a customer table from r.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) (RawTable, error) {
	decoded, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return RawTable{}, err
	}

	reader := csv.NewReader(decoded)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return RawTable{}, &SchemaError{Path: "<input>", Missing: requiredColumns()}
		}
		return RawTable{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columns, err := resolveColumns(header)
	if err != nil {
		return RawTable{}, err
	}

	table := RawTable{
		Source:  "<input>",
		Header:  header,
		columns: columns,
	}
	for line := 2; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return RawTable{}, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RawTable{}, fmt.Errorf("read row: %w", err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

func decodeReader(r io.Reader, name string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("input encoding %q: %w", name, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func resolveColumns(header []string) (map[models.Field]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	columns := make(map[models.Field]int, len(header))
	var missing []string
	for _, f := range models.AllFields() {
		idx, ok := positions[f.String()]
		if !ok {
			missing = append(missing, f.String())
			continue
		}
		columns[f] = idx
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Path: "<input>", Missing: missing}
	}
	return columns, nil
}

func requiredColumns() []string {
	fields := models.AllFields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.String()
	}
	return out
}
