// Package sheet reads and writes the tabular files the CLI works on (CSV and
// XLSX) and maps their columns to and from address records.
package sheet

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header row plus data rows. Every row is padded to the header
// width on read.
type Table struct {
	Header []string
	Rows   [][]string
}

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("sheet: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// ReadOptions configures Read.
type ReadOptions struct {
	// Encoding is the CSV charset label (e.g. "windows-1252"). Empty means UTF-8.
	Encoding string
	// SheetName selects an XLSX sheet; empty means SheetIndex.
	SheetName  string
	SheetIndex int
}

// Read loads a CSV or XLSX file, choosing the parser by extension.
func Read(path string, opts ReadOptions) (*Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		return ReadCSVFile(path, opts.Encoding)
	}
	return ReadXLSX(path, opts.SheetName, opts.SheetIndex)
}

// Write saves t as CSV or XLSX, choosing the writer by extension.
func Write(path string, t *Table) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	if format == FormatCSV {
		return WriteCSVFile(path, t)
	}
	return WriteXLSX(path, t)
}

// fromRows splits raw rows into header and body and squares them up. Blank
// data rows are kept so output rows line up with the input file.
func fromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("sheet: file has no header row")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	t := &Table{Header: header}
	for _, row := range rows[1:] {
		t.Rows = append(t.Rows, pad(row, len(header)))
	}
	return t, nil
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// Index returns the position of the named column, matching case-insensitively
// after trimming, or -1.
func (t *Table) Index(name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, h := range t.Header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value at row, col, or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Column returns every value of the column at col.
func (t *Table) Column(col int) []string {
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Cell(i, col)
	}
	return out
}

// SetColumn writes values into the named column, updating it in place when it
// already exists and appending it otherwise. values must have one entry per row.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return eris.Errorf("sheet: column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	col := t.Index(name)
	if col < 0 {
		t.Header = append(t.Header, name)
		col = len(t.Header) - 1
	}
	for i := range t.Rows {
		t.Rows[i] = pad(t.Rows[i], len(t.Header))
		t.Rows[i][col] = values[i]
	}
	return nil
}
