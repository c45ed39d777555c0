package errors

import (
	"fmt"
	"io"
	"strings"
)

// PrintErrorWithHints prints errors with actionable hints to the writer.
//
// This is the single implementation for error display across all commands.
//
// Parameters:
//   - w: Writer to output to (typically os.Stderr)
//   - errs: Slice of errors to display
//   - verbose: If true, includes additional details for validation errors
//
// Output format:
//
//	Error: <error message>
//	  💡 <actionable hint if available>
func PrintErrorWithHints(w io.Writer, errs []error, verbose bool) {
	for _, err := range errs {
		printSingleError(w, err, verbose)
	}
}

// printSingleError determines the error type and dispatches to the matching formatter.
func printSingleError(w io.Writer, err error, verbose bool) {
	if err == nil {
		return
	}

	if rb, ok := IsRollbackError(err); ok {
		printRollbackError(w, rb)
		return
	}

	if ve, ok := IsValidationError(err); ok {
		printValidationError(w, ve, verbose)
		return
	}

	if pse, ok := IsPartialSuccess(err); ok {
		printPartialSuccessError(w, pse, verbose)
		return
	}

	_, _ = fmt.Fprintf(w, "Error: %s\n", EnhanceErrorWithHint(err))
}

// printRollbackError prints a rollback failure as a banner. The installed skill
// is in an unknown state, so the backup location is always shown.
func printRollbackError(w io.Writer, err *RollbackError) {
	_, _ = fmt.Fprintf(w, "⛔ ROLLBACK FAILED: %s\n", err.Package)
	_, _ = fmt.Fprintf(w, "  Apply error:    %v\n", err.ApplyErr)
	_, _ = fmt.Fprintf(w, "  Restore error:  %v\n", err.Err)
	_, _ = fmt.Fprintf(w, "  Backup:         %s\n", err.BackupPath)
	_, _ = fmt.Fprintf(w, "  Manual intervention required: restore the backup over the installed skill.\n")
}

func printValidationError(w io.Writer, err *ValidationError, verbose bool) {
	if verbose {
		_, _ = fmt.Fprintf(w, "Validation Error: %s\n", err.VerboseError())
	} else {
		_, _ = fmt.Fprintf(w, "Validation Error: %s\n", err.Error())
	}
}

// printPartialSuccessError prints a summary of succeeded and failed packages.
// In verbose mode each failure is listed with its hint.
func printPartialSuccessError(w io.Writer, err *PartialSuccessError, verbose bool) {
	_, _ = fmt.Fprintf(w, "Partial Success: %s\n", err.Error())
	if verbose && len(err.Errors) > 0 {
		_, _ = fmt.Fprintf(w, "  Failed packages:\n")
		for _, e := range err.Errors {
			_, _ = fmt.Fprintf(w, "    - %s\n", EnhanceErrorWithHint(e))
		}
	}
}

// FormatErrorsWithHints formats multiple errors with hints for display.
//
// Example output:
//
//	❌ probe foo failed (auth): exit status 1
//	  💡 Authentication required: Set GH_TOKEN or run 'gh auth login'
func FormatErrorsWithHints(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, err := range errs {
		sb.WriteString("❌ " + EnhanceErrorWithHint(err) + "\n")
	}
	return sb.String()
}

// ValidationResult holds the results of validation operations.
//
// Fields:
//   - Errors: Slice of validation errors
//   - Warnings: Slice of warning messages
type ValidationResult struct {
	// Errors contains all validation errors encountered.
	Errors []*ValidationError

	// Warnings contains non-fatal warning messages.
	Warnings []string
}

// NewValidationResult creates a new empty ValidationResult.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Errors:   make([]*ValidationError, 0),
		Warnings: make([]string, 0),
	}
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// AddError adds a validation error to the result.
func (r *ValidationResult) AddError(err *ValidationError) {
	r.Errors = append(r.Errors, err)
}

// AddWarning adds a warning message to the result.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Err returns the result as an error, or nil when there are no errors.
// A single error is returned as-is so callers can inspect it with errors.As.
func (r *ValidationResult) Err() error {
	switch len(r.Errors) {
	case 0:
		return nil
	case 1:
		return r.Errors[0]
	default:
		return fmt.Errorf("%s", strings.TrimRight(r.ErrorMessage(), "\n"))
	}
}

// ErrorMessage returns a formatted error message for all validation errors.
func (r *ValidationResult) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Validation failed:\n")
	for _, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// PrintTo writes validation results to the given writer.
//
// Parameters:
//   - w: Writer to output to
//   - verbose: If true, includes detailed error information
func (r *ValidationResult) PrintTo(w io.Writer, verbose bool) {
	for _, warning := range r.Warnings {
		_, _ = fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	if len(r.Errors) == 0 {
		return
	}
	_, _ = fmt.Fprint(w, "Validation failed:\n")
	for _, err := range r.Errors {
		if verbose {
			_, _ = fmt.Fprintf(w, "  - %s\n", err.VerboseError())
		} else {
			_, _ = fmt.Fprintf(w, "  - %s\n", err.Error())
		}
	}
}
