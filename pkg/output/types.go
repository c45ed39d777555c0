package output

import (
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/fetch"
	"github.com/femon07/codex-skill-updater/pkg/probe"
	"github.com/femon07/codex-skill-updater/pkg/update"
)

// Record types used in NDJSON output.
const (
	RecordRow     = "row"
	RecordSummary = "summary"
)

// CheckRow is one package in a check report.
type CheckRow struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Strategy    string `json:"strategy"`
	ProbeStatus string `json:"probeStatus"`
	Repo        string `json:"repo,omitempty"`
	Path        string `json:"path,omitempty"`
	Ref         string `json:"ref,omitempty"`
	Archive     string `json:"archive,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Source returns the row's source descriptor, or nil when it has none.
func (r CheckRow) Source() *fetch.Source {
	if r.Archive != "" {
		return &fetch.Source{ArchivePath: r.Archive}
	}
	if r.Repo != "" || r.Path != "" {
		return &fetch.Source{Repo: r.Repo, Path: r.Path, Ref: r.Ref}
	}
	return nil
}

// CheckSummary is the final record of a check report.
type CheckSummary struct {
	Type         string `json:"type"`
	Total        int    `json:"total"`
	Resolved     int    `json:"resolved"`
	NeedsMapping int    `json:"needsMapping"`
	Failed       int    `json:"failed"`
	NotRun       int    `json:"notRun"`
}

// CheckReport is the JSON form of a check report.
type CheckReport struct {
	Packages []CheckRow   `json:"packages"`
	Summary  CheckSummary `json:"summary"`
}

// CheckRowsFromResults converts probe results into report rows.
func CheckRowsFromResults(results []probe.Result) []CheckRow {
	rows := make([]CheckRow, 0, len(results))
	for _, r := range results {
		row := CheckRow{
			Type:        RecordRow,
			Name:        r.Name,
			Strategy:    r.Strategy,
			ProbeStatus: r.Status,
			Reason:      r.Reason,
			Note:        r.Note,
		}
		if r.Source != nil {
			row.Repo = r.Source.Repo
			row.Path = r.Source.Path
			row.Ref = r.Source.Ref
			row.Archive = r.Source.ArchivePath
		}
		switch r.Status {
		case constants.ProbeFailed:
			row.Reason = constants.ReasonPrecheckFailed
			if r.Err != nil {
				row.Note = r.Err.Error()
			}
		case constants.ProbeNotRun:
			row.Reason = constants.ReasonProbeNotRun
		case constants.ProbeNeedsMapping:
			if r.Err != nil && r.Reason == constants.ReasonInvalidSourceMap {
				row.Note = r.Err.Error()
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// SummarizeCheck counts rows by probe status.
func SummarizeCheck(rows []CheckRow) CheckSummary {
	s := CheckSummary{Type: RecordSummary, Total: len(rows)}
	for _, r := range rows {
		switch r.ProbeStatus {
		case constants.ProbeResolved:
			s.Resolved++
		case constants.ProbeNeedsMapping:
			s.NeedsMapping++
		case constants.ProbeFailed:
			s.Failed++
		case constants.ProbeNotRun:
			s.NotRun++
		}
	}
	return s
}

// ApplyRow is one package in an apply report.
type ApplyRow struct {
	Type       string `json:"type,omitempty"`
	Name       string `json:"name"`
	Strategy   string `json:"strategy"`
	DiffResult string `json:"diffResult"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	BackupPath string `json:"backupPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ApplySummary is the summary record of an apply report.
type ApplySummary struct {
	Type string `json:"type,omitempty"`
	update.Summary
	Timestamp string `json:"timestamp"`
	DryRun    bool   `json:"dryRun"`
}

// ApplyReport is the JSON form of an apply report.
type ApplyReport struct {
	Timestamp string         `json:"timestamp"`
	DryRun    bool           `json:"dryRun"`
	Packages  []ApplyRow     `json:"packages"`
	Summary   update.Summary `json:"summary"`
}

// ApplyRowsFromReport converts outcomes into report rows.
func ApplyRowsFromReport(r *update.Report) []ApplyRow {
	rows := make([]ApplyRow, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		row := ApplyRow{
			Name:       o.Name,
			Strategy:   o.Strategy,
			DiffResult: o.DiffResult,
			Outcome:    o.Outcome,
			Reason:     o.Reason,
			BackupPath: o.BackupPath,
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}
