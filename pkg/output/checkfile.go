package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/femon07/codex-skill-updater/pkg/constants"
)

// maxCheckLine bounds a single check report line.
const maxCheckLine = 1 << 20

// ReadCheckFile parses a check report written in NDJSON or TSV.
//
// The format is detected from the first non-empty line: a JSON object means
// NDJSON, anything else is a TSV header. Summary records and the TSV
// "summary:" line are skipped; "-" cells read as empty.
//
// Parameters:
//   - r: report content
//
// Returns:
//   - []CheckRow: rows in file order
//   - error: when a line cannot be parsed or the TSV header has no name column
func ReadCheckFile(r io.Reader) ([]CheckRow, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxCheckLine)

	var (
		rows    []CheckRow
		header  []string
		isJSON  bool
		started bool
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !started {
			started = true
			isJSON = strings.HasPrefix(strings.TrimSpace(line), "{")
			if !isJSON {
				header = strings.Split(line, "\t")
				if indexOf(header, "name") < 0 {
					return nil, fmt.Errorf("check file line %d: header has no name column", lineNo)
				}
				continue
			}
		}

		if isJSON {
			var row CheckRow
			if err := json.Unmarshal([]byte(line), &row); err != nil {
				return nil, fmt.Errorf("check file line %d: %w", lineNo, err)
			}
			if row.Type == RecordSummary {
				continue
			}
			if row.Name == "" {
				return nil, fmt.Errorf("check file line %d: row has no name", lineNo)
			}
			row.Type = RecordRow
			rows = append(rows, row)
			continue
		}

		if strings.HasPrefix(line, "summary:") {
			continue
		}
		row, err := parseTSVRow(header, strings.Split(line, "\t"))
		if err != nil {
			return nil, fmt.Errorf("check file line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read check file: %w", err)
	}
	return rows, nil
}

func parseTSVRow(header, cells []string) (CheckRow, error) {
	if len(cells) != len(header) {
		return CheckRow{}, fmt.Errorf("expected %d columns, got %d", len(header), len(cells))
	}
	get := func(col string) string {
		i := indexOf(header, col)
		if i < 0 {
			return ""
		}
		v := strings.TrimSpace(cells[i])
		if v == constants.PlaceholderNA {
			return ""
		}
		return v
	}
	row := CheckRow{
		Type:        RecordRow,
		Name:        get("name"),
		Strategy:    get("strategy"),
		ProbeStatus: get("probeStatus"),
		Repo:        get("repo"),
		Path:        get("path"),
		Ref:         get("ref"),
		Archive:     get("archive"),
		Reason:      get("reason"),
		Note:        get("note"),
	}
	if row.Name == "" {
		return CheckRow{}, fmt.Errorf("row has no name")
	}
	return row, nil
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if strings.TrimSpace(v) == want {
			return i
		}
	}
	return -1
}

// PrecheckFailed reports whether a check row marks its package as failed
// before apply.
func (r CheckRow) PrecheckFailed() bool {
	return r.ProbeStatus == constants.ProbeFailed || r.Reason == constants.ReasonPrecheckFailed
}
