package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		allowed []Format
		want    Format
		wantErr bool
	}{
		{"ndjson", "ndjson", CheckFormats, FormatNDJSON, false},
		{"upper tsv", "TSV", CheckFormats, FormatTSV, false},
		{"padded table", " table ", ApplyFormats, FormatTable, false},
		{"tsv not for apply", "tsv", ApplyFormats, "", true},
		{"xml", "xml", CheckFormats, "", true},
		{"empty", "", ApplyFormats, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input, tt.allowed)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "valid:")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatTSV, &buf)
	assert.Equal(t, FormatTSV, f.Format())

	require.NoError(t, f.WriteTSV([]string{"a", "b"}, [][]string{{"x\ty", ""}, {"line\nbreak", "z"}}))
	assert.Equal(t, "a\tb\nx y\t-\nline break\tz\n", buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(FormatCSV, &buf).WriteCSV([]string{"a", "b"}, [][]string{{"1", "with,comma"}}))
	assert.Equal(t, "a,b\n1,\"with,comma\"\n", buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(FormatNDJSON, &buf).WriteNDJSON(map[string]int{"a": 1}, map[string]string{"b": "<x>"}))
	assert.Equal(t, "{\"a\":1}\n{\"b\":\"<x>\"}\n", buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(FormatJSON, &buf).WriteJSONIndent(map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

// TestTable tests column sizing.
//
// It verifies:
//   - Columns widen to the widest value, measured in display cells
//   - Trailing padding is trimmed
//   - Styling applies after padding
func TestTable(t *testing.T) {
	table := NewTable().AddColumn("NAME").AddColumn("STATUS")
	table.UpdateWidths("日本語", "ok")
	table.UpdateWidths("a", "Resolved")

	assert.Equal(t, 2, table.ColumnCount())
	assert.Equal(t, "NAME    STATUS", table.HeaderRow())
	assert.Equal(t, "------  --------", table.SeparatorRow())
	assert.Equal(t, "日本語  ok", table.FormatRow("日本語", "ok"))
	assert.Equal(t, "a       ", table.FormatRow("a")[:8])

	styled := table.FormatRowStyled(func(col int, cell string) string {
		if col == 0 {
			return "[" + cell + "]"
		}
		return cell
	}, "a", "x")
	assert.Equal(t, "[a     ]  x", styled)

	var buf bytes.Buffer
	table.WithSeparator(" | ").Fprint(&buf)
	assert.Equal(t, "NAME   | STATUS\n------ | --------\n", buf.String())
}

func TestToWidth(t *testing.T) {
	assert.Equal(t, "ab  ", ToWidth("ab", 4))
	assert.Equal(t, "abcdef", ToWidth("abcdef", 4))
	assert.Equal(t, "ab", ToWidth("ab", 0))
	assert.Equal(t, 4, DisplayWidth("日本"))
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 4, "Probing skills")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Increment()
		}()
	}
	wg.Wait()
	assert.Contains(t, buf.String(), "Probing skills: 3/4 (75%)")

	p.Done()
	assert.Contains(t, buf.String(), "4/4 (100%)")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	buf.Reset()
	p.Clear()
	assert.Empty(t, buf.String(), "nothing to clear after Done")

	quiet := NewProgress(&buf, 2, "x")
	quiet.SetEnabled(false)
	quiet.Increment()
	quiet.Done()
	assert.Empty(t, buf.String())

	empty := NewProgress(&buf, 0, "x")
	empty.Increment()
	assert.Empty(t, buf.String())
}

func TestProgressClear(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 2, "Applying")
	p.Increment()
	p.Clear()
	assert.True(t, strings.HasSuffix(buf.String(), "\r"))
}
