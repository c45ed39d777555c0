package update

import (
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/fetch"
	"github.com/femon07/codex-skill-updater/pkg/probe"
)

// PackageRecord is the per-run state of one skill as it moves through the
// pipeline. It is rebuilt from the installed tree on every run.
type PackageRecord struct {
	Name          string
	InstalledPath string
	Linked        bool
	Source        *fetch.Source
	Strategy      string
	ProbeStatus   string
	StagingPath   string
	DiffResult    string

	// Reason is the strategy's reason for unresolved skills.
	Reason string

	// Note is human-readable context from strategy resolution.
	Note string

	// ProbeErr is the probe or strategy error, if any.
	ProbeErr error
}

// RecordFromProbe builds a record from a probe result. DiffResult starts
// as Unknown.
func RecordFromProbe(r probe.Result) PackageRecord {
	return PackageRecord{
		Name:          r.Name,
		InstalledPath: r.InstalledPath,
		Linked:        r.Linked,
		Source:        r.Source,
		Strategy:      r.Strategy,
		ProbeStatus:   r.Status,
		StagingPath:   r.StagingPath,
		DiffResult:    constants.DiffUnknown,
		Reason:        r.Reason,
		Note:          r.Note,
		ProbeErr:      r.Err,
	}
}

// Outcome is the terminal result for one skill in an apply run.
type Outcome struct {
	Name       string `json:"name"`
	Strategy   string `json:"strategy"`
	DiffResult string `json:"diffResult"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	BackupPath string `json:"backupPath,omitempty"`

	// Err is the underlying error for failure outcomes.
	Err error `json:"-"`
}

// IsFailure reports whether the outcome counts as a failure for the run.
func (o Outcome) IsFailure() bool {
	return constants.IsFailureOutcome(o.Outcome)
}

// Summary counts outcomes by kind.
type Summary struct {
	Total          int `json:"total"`
	Applied        int `json:"applied"`
	WouldApply     int `json:"wouldApply"`
	Unchanged      int `json:"skippedNoChanges"`
	ManualMapping  int `json:"skippedManualMapping"`
	SkippedFailing int `json:"skippedFailFast"`
	Failed         int `json:"failed"`
	RolledBack     int `json:"rolledBack"`
	RollbackFailed int `json:"rollbackFailed"`
}

// Failures returns the number of failure outcomes.
func (s Summary) Failures() int {
	return s.Failed + s.RolledBack + s.RollbackFailed
}

// Summarize counts outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Outcome {
		case constants.OutcomeApplied:
			s.Applied++
		case constants.OutcomeWouldApply:
			s.WouldApply++
		case constants.OutcomeSkippedNoChanges:
			s.Unchanged++
		case constants.OutcomeSkippedManualMapping:
			s.ManualMapping++
		case constants.OutcomeSkippedFailFast:
			s.SkippedFailing++
		case constants.OutcomeFailed:
			s.Failed++
		case constants.OutcomeRolledBack:
			s.RolledBack++
		case constants.OutcomeRollbackFailed:
			s.RollbackFailed++
		}
	}
	return s
}
