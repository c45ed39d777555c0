package errors

import (
	"errors"
	"fmt"
)

// StrategyUnresolvedError records that no strategy rule applied to a package.
// It is reported as ManualSourceMapRequired and is not a failure of the run.
type StrategyUnresolvedError struct {
	Package string
	Reason  string
}

func (e *StrategyUnresolvedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: no update strategy resolved", e.Package)
	}
	return fmt.Sprintf("%s: no update strategy resolved: %s", e.Package, e.Reason)
}

// SourceMapValidationError reports a malformed or placeholder source map entry.
//
// When Package is empty the error concerns the whole file (for example a
// document that is not a JSON object) and loading stops. Otherwise only the
// named entry is unusable and other packages resolve normally.
type SourceMapValidationError struct {
	// Path is the source map file the entry came from.
	Path string

	// Package is the map key, empty for file-level errors.
	Package string

	// Field is the offending entry field ("repo", "path", "ref").
	Field string

	// Message describes what is wrong.
	Message string
}

func (e *SourceMapValidationError) Error() string {
	switch {
	case e.Package == "":
		return fmt.Sprintf("invalid source map %s: %s", e.Path, e.Message)
	case e.Field == "":
		return fmt.Sprintf("invalid source map entry %q in %s: %s", e.Package, e.Path, e.Message)
	default:
		return fmt.Sprintf("invalid source map entry %q in %s: %s: %s", e.Package, e.Path, e.Field, e.Message)
	}
}

// ProbeKind classifies fetch failures.
type ProbeKind string

const (
	ProbeKindNetwork  ProbeKind = "network"
	ProbeKindAuth     ProbeKind = "auth"
	ProbeKindNotFound ProbeKind = "not_found"
	ProbeKindTimeout  ProbeKind = "timeout"
	ProbeKindInvalid  ProbeKind = "invalid_content"
	ProbeKindUnknown  ProbeKind = "unknown"
)

// ProbeError is the typed failure returned by a fetcher. It is isolated to
// one package and never aborts other probes.
type ProbeError struct {
	Package string
	Kind    ProbeKind
	Err     error
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("probe %s failed (%s)", e.Package, e.Kind)
	}
	return fmt.Sprintf("probe %s failed (%s): %v", e.Package, e.Kind, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// NewProbeError creates a ProbeError.
func NewProbeError(pkg string, kind ProbeKind, err error) *ProbeError {
	return &ProbeError{Package: pkg, Kind: kind, Err: err}
}

// DiffError reports that staged or installed content could not be read for
// comparison. The package is treated as changed.
type DiffError struct {
	Package string
	Path    string
	Err     error
}

func (e *DiffError) Error() string {
	return fmt.Sprintf("compare %s: cannot read %s: %v", e.Package, e.Path, e.Err)
}

func (e *DiffError) Unwrap() error { return e.Err }

// ApplyError is a write or verify failure during apply. It triggers rollback.
type ApplyError struct {
	Package string
	Step    string
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s: %s: %v", e.Package, e.Step, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// RollbackError means restoring a backup failed after an apply failure.
// Installed state for the package is unknown.
type RollbackError struct {
	Package    string
	BackupPath string
	ApplyErr   error
	Err        error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback %s from %s failed: %v (after: %v)", e.Package, e.BackupPath, e.Err, e.ApplyErr)
}

func (e *RollbackError) Unwrap() []error { return []error{e.Err, e.ApplyErr} }

// IsRollbackError checks if err is (or wraps) a RollbackError and returns it.
func IsRollbackError(err error) (*RollbackError, bool) {
	var rb *RollbackError
	if errors.As(err, &rb) {
		return rb, true
	}
	return nil, false
}

// IsSourceMapValidationError checks if err is (or wraps) a SourceMapValidationError.
func IsSourceMapValidationError(err error) (*SourceMapValidationError, bool) {
	var sm *SourceMapValidationError
	if errors.As(err, &sm) {
		return sm, true
	}
	return nil, false
}

// IsProbeError checks if err is (or wraps) a ProbeError.
func IsProbeError(err error) (*ProbeError, bool) {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
