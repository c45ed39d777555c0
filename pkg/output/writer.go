package output

import (
	"fmt"
	"io"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/update"
)

var checkHeaders = []string{"name", "strategy", "probeStatus", "repo", "path", "ref", "archive", "reason", "note"}

var applyHeaders = []string{"name", "strategy", "diffResult", "outcome", "reason", "backupPath", "error"}

// WriteCheckReport writes check rows in the specified format.
//
// It performs the following operations:
//   - Step 1: Computes the summary from rows
//   - Step 2: Writes rows and summary using format-specific logic
//
// Parameters:
//   - w: Destination writer for the output
//   - format: one of CheckFormats
//   - rows: report rows sorted by name
//   - styler: colors the table status column; may be nil
//
// Returns:
//   - error: When format is unsupported, returns an error; when write fails, returns the underlying error; otherwise returns nil
func WriteCheckReport(w io.Writer, format Format, rows []CheckRow, styler *Styler) error {
	formatter := NewFormatter(format, w)
	summary := SummarizeCheck(rows)

	switch format {
	case FormatNDJSON:
		for _, row := range rows {
			row.Type = RecordRow
			if err := formatter.WriteJSON(row); err != nil {
				return err
			}
		}
		return formatter.WriteJSON(summary)
	case FormatTSV:
		if err := formatter.WriteTSV(checkHeaders, checkCells(rows)); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\nsummary: total=%d resolved=%d needsMapping=%d failed=%d notRun=%d\n",
			summary.Total, summary.Resolved, summary.NeedsMapping, summary.Failed, summary.NotRun)
		return err
	case FormatJSON:
		if rows == nil {
			rows = []CheckRow{}
		}
		return formatter.WriteJSON(CheckReport{Packages: rows, Summary: summary})
	case FormatCSV:
		return formatter.WriteCSV(checkHeaders, checkCells(rows))
	case FormatTable:
		writeCheckTable(w, rows, summary, styler)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func checkCells(rows []CheckRow) [][]string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{r.Name, r.Strategy, r.ProbeStatus, r.Repo, r.Path, r.Ref, r.Archive, r.Reason, r.Note})
	}
	return cells
}

func writeCheckTable(w io.Writer, rows []CheckRow, summary CheckSummary, styler *Styler) {
	table := NewTable().
		AddColumn("NAME").
		AddColumn("STRATEGY").
		AddColumn("PROBE").
		AddColumn("SOURCE").
		AddColumn("NOTE")

	values := make([][]string, 0, len(rows))
	for _, r := range rows {
		note := r.Note
		if note == "" {
			note = r.Reason
		}
		v := []string{r.Name, r.Strategy, r.ProbeStatus, r.Source().String(), orPlaceholder(note)}
		table.UpdateWidths(v...)
		values = append(values, v)
	}

	table.Fprint(w)
	for i, v := range values {
		status := rows[i].ProbeStatus
		_, _ = fmt.Fprintln(w, table.FormatRowStyled(func(col int, cell string) string {
			if col == 2 {
				return styler.Status(status, cell)
			}
			return cell
		}, v...))
	}
	_, _ = fmt.Fprintf(w, "\n%d skills: %d resolved, %d need mapping, %d failed, %d not run\n",
		summary.Total, summary.Resolved, summary.NeedsMapping, summary.Failed, summary.NotRun)
}

// WriteApplyReport writes an apply report in the specified format.
//
// Parameters:
//   - w: Destination writer for the output
//   - format: one of ApplyFormats
//   - report: the apply run
//   - styler: colors the table outcome column; may be nil
//
// Returns:
//   - error: When format is unsupported, returns an error; when write fails, returns the underlying error; otherwise returns nil
func WriteApplyReport(w io.Writer, format Format, report *update.Report, styler *Styler) error {
	formatter := NewFormatter(format, w)
	rows := ApplyRowsFromReport(report)

	switch format {
	case FormatJSON:
		return formatter.WriteJSON(toApplyReport(report, rows))
	case FormatNDJSON:
		for _, row := range rows {
			row.Type = RecordRow
			if err := formatter.WriteJSON(row); err != nil {
				return err
			}
		}
		return formatter.WriteJSON(ApplySummary{
			Type:      RecordSummary,
			Summary:   report.Summary,
			Timestamp: report.Timestamp,
			DryRun:    report.DryRun,
		})
	case FormatCSV:
		cells := make([][]string, 0, len(rows))
		for _, r := range rows {
			cells = append(cells, []string{r.Name, r.Strategy, r.DiffResult, r.Outcome, r.Reason, r.BackupPath, r.Error})
		}
		return formatter.WriteCSV(applyHeaders, cells)
	case FormatTable:
		writeApplyTable(w, report, rows, styler)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func toApplyReport(report *update.Report, rows []ApplyRow) ApplyReport {
	return ApplyReport{
		Timestamp: report.Timestamp,
		DryRun:    report.DryRun,
		Packages:  rows,
		Summary:   report.Summary,
	}
}

func writeApplyTable(w io.Writer, report *update.Report, rows []ApplyRow, styler *Styler) {
	table := NewTable().
		AddColumn("").
		AddColumn("NAME").
		AddColumn("STRATEGY").
		AddColumn("DIFF").
		AddColumn("OUTCOME").
		AddColumn("REASON").
		AddColumn("BACKUP")

	values := make([][]string, 0, len(rows))
	for _, r := range rows {
		v := []string{
			constants.IconForOutcome(r.Outcome),
			r.Name,
			r.Strategy,
			r.DiffResult,
			r.Outcome,
			orPlaceholder(r.Reason),
			orPlaceholder(r.BackupPath),
		}
		table.UpdateWidths(v...)
		values = append(values, v)
	}

	table.Fprint(w)
	for i, v := range values {
		outcome := rows[i].Outcome
		_, _ = fmt.Fprintln(w, table.FormatRowStyled(func(col int, cell string) string {
			if col == 4 {
				return styler.Status(outcome, cell)
			}
			return cell
		}, v...))
	}

	s := report.Summary
	verb := "applied"
	count := s.Applied
	if report.DryRun {
		verb = "would apply"
		count = s.WouldApply
	}
	_, _ = fmt.Fprintf(w, "\n%d skills: %d %s, %d unchanged, %d need mapping, %d failed, %d rolled back",
		s.Total, count, verb, s.Unchanged, s.ManualMapping, s.Failed, s.RolledBack)
	if s.SkippedFailing > 0 {
		_, _ = fmt.Fprintf(w, ", %d skipped after failure", s.SkippedFailing)
	}
	_, _ = fmt.Fprintln(w)
	if s.RollbackFailed > 0 {
		_, _ = fmt.Fprintln(w, styler.Fatal(fmt.Sprintf("%d rollback(s) failed: manual intervention required", s.RollbackFailed)))
	}
}

func orPlaceholder(v string) string {
	if v == "" {
		return constants.PlaceholderNA
	}
	return v
}
