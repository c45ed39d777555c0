package ledger

import (
	"time"

	"github.com/femon07/codex-skill-updater/pkg/update"
)

// Run is one recorded apply run.
type Run struct {
	ID             int64     `json:"id"`
	StartedAt      time.Time `json:"startedAt"`
	Timestamp      string    `json:"timestamp"`
	Command        string    `json:"command"`
	DryRun         bool      `json:"dryRun"`
	Total          int       `json:"total"`
	Applied        int       `json:"applied"`
	Failures       int       `json:"failures"`
	RollbackFailed int       `json:"rollbackFailed"`
	ExitCode       int       `json:"exitCode"`
}

// Entry is one package outcome within a run.
type Entry struct {
	RunID      int64  `json:"runId"`
	Name       string `json:"name"`
	Strategy   string `json:"strategy"`
	DiffResult string `json:"diffResult"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	BackupPath string `json:"backupPath,omitempty"`
	Error      string `json:"error,omitempty"`

	// Timestamp is the run timestamp, filled by PackageHistory.
	Timestamp string `json:"timestamp,omitempty"`
}

// FromReport converts an apply report into a run and its entries.
func FromReport(command string, startedAt time.Time, r *update.Report, exitCode int) (Run, []Entry) {
	run := Run{
		StartedAt:      startedAt,
		Timestamp:      r.Timestamp,
		Command:        command,
		DryRun:         r.DryRun,
		Total:          r.Summary.Total,
		Applied:        r.Summary.Applied,
		Failures:       r.Summary.Failures(),
		RollbackFailed: r.Summary.RollbackFailed,
		ExitCode:       exitCode,
	}

	entries := make([]Entry, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		e := Entry{
			Name:       o.Name,
			Strategy:   o.Strategy,
			DiffResult: o.DiffResult,
			Outcome:    o.Outcome,
			Reason:     o.Reason,
			BackupPath: o.BackupPath,
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
		}
		entries = append(entries, e)
	}
	return run, entries
}
