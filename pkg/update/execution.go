// Package update applies probed skills to the installed tree.
//
// Apply is strictly serial in name order. Every Changed package is
// snapshotted, replaced and verified; a failure after the snapshot restores
// it. Retention runs once at the end and only after a run with no failures.
package update

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/femon07/codex-skill-updater/pkg/backup"
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/probe"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// ExecutionCallbacks provides callback functions for execution events.
type ExecutionCallbacks struct {
	// OnOutcome is called as soon as a package reaches its terminal outcome.
	OnOutcome func(o Outcome, dryRun bool)
}

// Report is the result of one apply run.
type Report struct {
	// Timestamp names the run's backup generation.
	Timestamp string `json:"timestamp"`

	DryRun bool `json:"dryRun"`

	// Outcomes are sorted by name, one per input package.
	Outcomes []Outcome `json:"packages"`

	Summary Summary `json:"summary"`

	// Pruned lists generations removed by retention.
	Pruned []backup.Generation `json:"-"`

	// PruneErr is the first retention error. It never changes outcomes.
	PruneErr error `json:"-"`
}

// Apply processes probe results in name order.
//
// It performs the following operations:
//   - Step 1: Map NotRun, NeedsMapping and ProbeFailed results to skip or failure outcomes
//   - Step 2: Compare staged and installed trees for Resolved results
//   - Step 3: Apply Changed packages (or report WouldApply on a dry run)
//   - Step 4: Under FailFast, mark everything after the first failure SkippedFailFast
//   - Step 5: Prune generations of applied packages if no package failed
//
// Parameters:
//   - ctx: cancellation stops processing; remaining packages are Failed(cancelled)
//   - actx: run parameters
//   - results: probe results, one per package
//   - callbacks: optional progress hooks
//
// Returns:
//   - *Report: one outcome per result; use Report.Err for the run-level error
func Apply(ctx context.Context, actx *ApplyContext, results []probe.Result, callbacks ExecutionCallbacks) *Report {
	log := verbose.Logger("apply")
	done := verbose.Operation(log, "apply")
	defer done()

	report := &Report{
		Timestamp: backup.Timestamp(actx.now()),
		DryRun:    actx.DryRun,
		Outcomes:  make([]Outcome, 0, len(results)),
	}

	records := make([]PackageRecord, 0, len(results))
	for _, r := range results {
		records = append(records, RecordFromProbe(r))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	tripped := false
	var touched []string
	for _, rec := range records {
		var out Outcome
		switch {
		case tripped:
			out = skipped(rec, constants.OutcomeSkippedFailFast, constants.ReasonFailFast)
		case ctx.Err() != nil:
			out = skipped(rec, constants.OutcomeFailed, constants.ReasonCancelled)
			out.Err = ctx.Err()
		default:
			out = processRecord(actx, rec, report.Timestamp)
		}

		if out.Outcome == constants.OutcomeApplied {
			touched = append(touched, rec.Name)
		}
		if out.IsFailure() && actx.FailFast {
			tripped = true
		}
		report.Outcomes = append(report.Outcomes, out)
		if callbacks.OnOutcome != nil {
			callbacks.OnOutcome(out, actx.DryRun)
		}
	}

	report.Summary = Summarize(report.Outcomes)

	if !actx.DryRun && report.Summary.Failures() == 0 && len(touched) > 0 {
		report.Pruned, report.PruneErr = actx.Backups.Prune(touched, actx.Keep)
		if report.PruneErr != nil {
			log.Warn().Err(report.PruneErr).Msg("retention incomplete")
		}
		log.Debug().Int("removed", len(report.Pruned)).Strs("packages", touched).Msg("pruned generations")
	}

	return report
}

// processRecord decides the outcome of one package.
func processRecord(actx *ApplyContext, rec PackageRecord, timestamp string) Outcome {
	log := verbose.Logger("apply")

	switch rec.ProbeStatus {
	case constants.ProbeNotRun:
		return skipped(rec, constants.OutcomeSkippedFailFast, constants.ReasonProbeNotRun)
	case constants.ProbeNeedsMapping:
		if rec.Reason == constants.ReasonInvalidSourceMap {
			out := skipped(rec, constants.OutcomeFailed, rec.Reason)
			out.Err = rec.ProbeErr
			return out
		}
		reason := rec.Reason
		if reason == "" {
			reason = constants.ReasonManualMapping
		}
		return skipped(rec, constants.OutcomeSkippedManualMapping, reason)
	case constants.ProbeResolved:
	default:
		out := skipped(rec, constants.OutcomeFailed, constants.ReasonPrecheckFailed)
		out.Err = rec.ProbeErr
		return out
	}

	cmp := compareFunc(rec.Name, rec.StagingPath, rec.InstalledPath)
	rec.DiffResult = cmp.Status
	if cmp.Err != nil {
		log.Warn().Str("package", rec.Name).Err(cmp.Err).Msg("comparison failed; treating as changed")
	}

	switch {
	case cmp.Status == constants.DiffUnchanged:
		return skipped(rec, constants.OutcomeSkippedNoChanges, constants.ReasonNoChanges)
	case actx.DryRun:
		return skipped(rec, constants.OutcomeWouldApply, constants.ReasonDryRun)
	default:
		return applyChanged(actx, rec, timestamp)
	}
}

func skipped(rec PackageRecord, outcome, reason string) Outcome {
	return Outcome{
		Name:       rec.Name,
		Strategy:   rec.Strategy,
		DiffResult: rec.DiffResult,
		Outcome:    outcome,
		Reason:     reason,
	}
}

// CollectErrors returns the errors of every failure outcome.
func CollectErrors(outcomes []Outcome) []error {
	var errs []error
	for _, o := range outcomes {
		if o.IsFailure() && o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// Err returns the run-level error.
//
// Returns:
//   - nil when no package failed
//   - the joined *errors.RollbackError values when any rollback failed (exit 4)
//   - an ExitFailure error when no package succeeded
//   - an ExitPartialFailure error wrapping a PartialSuccessError otherwise
func (r *Report) Err() error {
	if r == nil || r.Summary.Failures() == 0 {
		return nil
	}

	var rollbacks []error
	for _, o := range r.Outcomes {
		if rb, ok := errors.IsRollbackError(o.Err); ok {
			rollbacks = append(rollbacks, rb)
		}
	}
	if len(rollbacks) > 0 {
		return stderrors.Join(rollbacks...)
	}

	errs := CollectErrors(r.Outcomes)
	failed := r.Summary.Failures()
	succeeded := r.Summary.Total - failed
	if succeeded == 0 {
		return errors.NewExitError(errors.ExitFailure, stderrors.Join(errs...))
	}
	return errors.NewExitError(errors.ExitPartialFailure, errors.NewPartialSuccessError(succeeded, failed, errs))
}

// RollbackFailures returns the outcomes whose rollback failed.
func (r *Report) RollbackFailures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Outcome == constants.OutcomeRollbackFailed {
			out = append(out, o)
		}
	}
	return out
}
