// Package constants provides centralized string constants used throughout the application.
// This eliminates magic strings and provides a single source of truth for strategy,
// probe, diff and outcome values that appear in check and apply reports.
package constants

// Strategy values describe how a package's upstream content is located.
const (
	// StrategyUpdateViaRemote fetches the package from a remote repository subtree.
	StrategyUpdateViaRemote = "UpdateViaRemote"

	// StrategyInstallFromLocalArchive extracts a locally staged .skill archive.
	StrategyInstallFromLocalArchive = "InstallFromLocalArchive"

	// StrategyManualSourceMapRequired means no source could be resolved by convention.
	StrategyManualSourceMapRequired = "ManualSourceMapRequired"
)

// Strategies lists every strategy value in priority order.
var Strategies = []string{
	StrategyUpdateViaRemote,
	StrategyInstallFromLocalArchive,
	StrategyManualSourceMapRequired,
}

// Probe status values recorded by the prober for each package.
const (
	// ProbeResolved indicates candidate content was fetched into staging.
	ProbeResolved = "Resolved"

	// ProbeNeedsMapping indicates no fetch was attempted because no source is known.
	ProbeNeedsMapping = "NeedsMapping"

	// ProbeFailed indicates the fetch failed (network, auth, not found, timeout, invalid content).
	ProbeFailed = "ProbeFailed"

	// ProbeNotRun indicates the probe was never launched because fail-fast tripped.
	ProbeNotRun = "NotRun"
)

// Diff result values produced by comparing staged and installed content.
const (
	// DiffUnchanged indicates staged content equals installed content.
	DiffUnchanged = "Unchanged"

	// DiffChanged indicates staged content differs from installed content.
	DiffChanged = "Changed"

	// DiffUnknown indicates the comparison never ran.
	DiffUnknown = "Unknown"
)

// Apply outcome values. Exactly one is recorded per package per run.
const (
	// OutcomeApplied indicates the staged content replaced the installed content.
	OutcomeApplied = "Applied"

	// OutcomeWouldApply indicates a dry run decided the package would be applied.
	OutcomeWouldApply = "WouldApply"

	// OutcomeSkippedNoChanges indicates staged and installed content are equal.
	OutcomeSkippedNoChanges = "SkippedNoChanges"

	// OutcomeSkippedManualMapping indicates no update path is known for the package.
	OutcomeSkippedManualMapping = "SkippedManualMappingRequired"

	// OutcomeSkippedFailFast indicates the package was never scheduled after an earlier failure.
	OutcomeSkippedFailFast = "SkippedFailFast"

	// OutcomeFailed indicates the package failed before installed state was touched.
	OutcomeFailed = "Failed"

	// OutcomeRolledBack indicates the apply failed and installed content was restored.
	OutcomeRolledBack = "RolledBack"

	// OutcomeRollbackFailed indicates the apply failed and restoring the backup failed too.
	// Installed state is unknown and needs manual intervention.
	OutcomeRollbackFailed = "RollbackFailed"
)

// Reasons attached to skipped or failed outcomes.
const (
	ReasonNoChanges         = "no_changes_detected"
	ReasonManualMapping     = "manual_source_map_required"
	ReasonLinkedSkill       = "linked_skill_update_link_target"
	ReasonPrecheckFailed    = "precheck_failed"
	ReasonFailFast          = "not_scheduled_after_failure"
	ReasonDryRun            = "staged_and_validated"
	ReasonProbeNotRun       = "probe_not_run"
	ReasonInvalidSourceMap  = "invalid_source_map_entry"
	ReasonManualMapDisabled = "manual_source_map_not_enabled"
	ReasonSnapshotFailed    = "backup_failed"
	ReasonReplaceFailed     = "replace_failed"
	ReasonVerifyFailed      = "verify_failed"
	ReasonCancelled         = "cancelled"
)

// Placeholder values for display when data is not available.
const (
	// PlaceholderNA is used when a value is not available.
	PlaceholderNA = "-"
)

// Icon constants for status display in table output.
const (
	IconSuccess = "🟢"
	IconWarning = "🟠"
	IconError   = "❌"
	IconInfo    = "🔵"
	IconPending = "🟡"
	IconBlocked = "⛔"
)

// IconForOutcome returns the table icon for an apply outcome.
func IconForOutcome(outcome string) string {
	switch outcome {
	case OutcomeApplied:
		return IconSuccess
	case OutcomeWouldApply:
		return IconPending
	case OutcomeSkippedNoChanges:
		return IconInfo
	case OutcomeSkippedManualMapping, OutcomeSkippedFailFast:
		return IconWarning
	case OutcomeRollbackFailed:
		return IconBlocked
	default:
		return IconError
	}
}

// IsFailureOutcome reports whether an outcome counts as a failure for the run.
// A run containing any failure keeps every backup generation.
func IsFailureOutcome(outcome string) bool {
	return outcome == OutcomeFailed || outcome == OutcomeRolledBack || outcome == OutcomeRollbackFailed
}
