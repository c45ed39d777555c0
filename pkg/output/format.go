// Package output provides formatters for exporting command results in various formats.
// Check reports default to NDJSON and apply reports to JSON; both also render
// as CSV and as a terminal table, and check reports as TSV.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format represents the output format type.
type Format string

const (
	// FormatNDJSON writes one JSON object per line, summary last.
	FormatNDJSON Format = "ndjson"
	// FormatTSV outputs tab-separated values with a trailing summary line.
	FormatTSV Format = "tsv"
	// FormatJSON outputs a single JSON document.
	FormatJSON Format = "json"
	// FormatCSV outputs data as comma-separated values.
	FormatCSV Format = "csv"
	// FormatTable is the terminal table output.
	FormatTable Format = "table"
)

// CheckFormats are the formats accepted for check reports.
var CheckFormats = []Format{FormatNDJSON, FormatTSV, FormatJSON, FormatCSV, FormatTable}

// ApplyFormats are the formats accepted for apply reports.
var ApplyFormats = []Format{FormatJSON, FormatNDJSON, FormatCSV, FormatTable}

// ParseFormat parses a format string into a Format type.
//
// The parsing is case-insensitive.
//
// Parameters:
//   - s: Format string to parse (e.g., "ndjson", "TSV")
//   - allowed: formats valid for the report being written
//
// Returns:
//   - Format: The parsed format
//   - error: When s is not one of allowed
func ParseFormat(s string, allowed []Format) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", fmt.Errorf("unsupported format %q (valid: %s)", s, strings.Join(names, ", "))
}

// Formatter handles writing data in a specific format.
//
// Fields:
//   - format: The output format
//   - writer: Destination for formatted output
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a new formatter for the given format and writer.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
	}
}

// Format returns the current format.
func (f *Formatter) Format() Format {
	return f.format
}

// WriteCSV writes data as CSV to the output writer.
//
// Note: csv.Writer buffers all writes and only reports errors via Error() after Flush().
//
// Parameters:
//   - headers: Column headers for the CSV
//   - rows: Data rows, each row should have the same number of columns as headers
//
// Returns:
//   - error: When write or flush fails, returns the underlying error; otherwise returns nil
func (f *Formatter) WriteCSV(headers []string, rows [][]string) error {
	w := csv.NewWriter(f.writer)

	_ = w.Write(headers)
	for _, row := range rows {
		_ = w.Write(row)
	}

	w.Flush()
	return w.Error()
}

// WriteTSV writes a header row and data rows separated by tabs. Tabs and
// newlines inside values are replaced by spaces, and empty values by "-".
func (f *Formatter) WriteTSV(headers []string, rows [][]string) error {
	if _, err := fmt.Fprintln(f.writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = tsvCell(v)
		}
		if _, err := fmt.Fprintln(f.writer, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

var tsvReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func tsvCell(v string) string {
	v = tsvReplacer.Replace(v)
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

// WriteJSON writes data as compact JSON to the output writer.
//
// The output is compact (single line) for easy parsing by tools.
func (f *Formatter) WriteJSON(data interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// WriteJSONIndent writes data as JSON indented by two spaces.
func (f *Formatter) WriteJSONIndent(data interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteNDJSON writes each record as one compact JSON line.
func (f *Formatter) WriteNDJSON(records ...interface{}) error {
	for _, r := range records {
		if err := f.WriteJSON(r); err != nil {
			return err
		}
	}
	return nil
}
