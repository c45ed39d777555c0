package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/update"
)

var writeFileFunc = os.WriteFile

// WriteDebugCheck writes the check rows as TSV to dir/skill_update_check.debug.tsv.
func WriteDebugCheck(dir string, rows []CheckRow) (string, error) {
	var buf bytes.Buffer
	if err := WriteCheckReport(&buf, FormatTSV, rows, nil); err != nil {
		return "", err
	}
	return writeDebugFile(dir, constants.DebugCheckFile, buf.Bytes())
}

// WriteDebugReport writes the apply report as indented JSON to
// dir/skill_update_apply_report.debug.json.
func WriteDebugReport(dir string, report *update.Report) (string, error) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON, &buf).WriteJSONIndent(toApplyReport(report, ApplyRowsFromReport(report))); err != nil {
		return "", err
	}
	return writeDebugFile(dir, constants.DebugReportFile, buf.Bytes())
}

func writeDebugFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)
	if err := writeFileFunc(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write debug artifact %s: %w", path, err)
	}
	return path, nil
}
