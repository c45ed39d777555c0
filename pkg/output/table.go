package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// DisplayWidth returns the display width of a string, accounting for unicode characters.
//
// Wide characters (CJK, emoji icons) occupy two terminal cells.
func DisplayWidth(val string) int {
	return runewidth.StringWidth(val)
}

// ToWidth pads a string with spaces to a specific display width.
//
// Returns the original string if width is <= 0 or the string is already at
// least that wide.
func ToWidth(val string, width int) string {
	if width <= 0 {
		return val
	}
	current := DisplayWidth(val)
	if current >= width {
		return val
	}
	return val + strings.Repeat(" ", width-current)
}

// Column represents a single table column with its header and current width.
type Column struct {
	Header string
	Width  int
}

// Table provides a flexible table formatter with dynamic column widths.
// It handles Unicode-aware width calculations and consistent formatting.
//
// Fields:
//   - columns: List of columns with their headers and widths
//   - separator: String used to separate columns in formatted output (default: "  ")
type Table struct {
	columns   []Column
	separator string
}

// NewTable creates a new table formatter with a two-space separator.
func NewTable() *Table {
	return &Table{
		columns:   make([]Column, 0),
		separator: "  ",
	}
}

// WithSeparator sets a custom column separator and returns the table.
func (t *Table) WithSeparator(sep string) *Table {
	t.separator = sep
	return t
}

// AddColumn adds a column with the given header and returns the table.
//
// The initial width is the display width of the header.
func (t *Table) AddColumn(header string) *Table {
	t.columns = append(t.columns, Column{
		Header: header,
		Width:  DisplayWidth(header),
	})
	return t
}

// UpdateWidths widens columns to fit a row of values and returns the table.
//
// Parameters:
//   - values: Variable number of strings representing a data row
//
// Returns:
//   - *Table: The table instance for method chaining
func (t *Table) UpdateWidths(values ...string) *Table {
	for i, val := range values {
		if i < len(t.columns) {
			width := DisplayWidth(val)
			if width > t.columns[i].Width {
				t.columns[i].Width = width
			}
		}
	}
	return t
}

// HeaderRow returns the formatted header row string.
func (t *Table) HeaderRow() string {
	parts := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		parts = append(parts, ToWidth(col.Header, col.Width))
	}
	return strings.TrimRight(strings.Join(parts, t.separator), " ")
}

// SeparatorRow returns a separator row with dashes matching column widths.
func (t *Table) SeparatorRow() string {
	parts := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		parts = append(parts, strings.Repeat("-", col.Width))
	}
	return strings.Join(parts, t.separator)
}

// FormatRow formats a data row with proper padding for each column and returns the formatted string.
//
// Missing values (when fewer values than columns are provided) are treated as empty strings.
func (t *Table) FormatRow(values ...string) string {
	return t.FormatRowStyled(nil, values...)
}

// FormatRowStyled formats a row like FormatRow, passing each padded cell
// through style. Padding happens before styling so escape sequences never
// count toward column widths.
//
// Parameters:
//   - style: called with the column index and padded cell; nil leaves cells unchanged
//   - values: one value per column
//
// Returns:
//   - string: the formatted row without trailing spaces
func (t *Table) FormatRowStyled(style func(col int, cell string) string, values ...string) string {
	parts := make([]string, 0, len(t.columns))
	for i, col := range t.columns {
		val := ""
		if i < len(values) {
			val = values[i]
		}
		cell := ToWidth(val, col.Width)
		if i == len(t.columns)-1 {
			cell = strings.TrimRight(cell, " ")
		}
		if style != nil {
			cell = style(i, cell)
		}
		parts = append(parts, cell)
	}
	return strings.Join(parts, t.separator)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// Fprint outputs the table header and separator to the given writer.
func (t *Table) Fprint(w io.Writer) {
	_, _ = fmt.Fprintln(w, t.HeaderRow())
	_, _ = fmt.Fprintln(w, t.SeparatorRow())
}
