// Package errors provides unified error types and display for skill-updater.
//
// This package consolidates all error handling into a single location:
//   - ExitError: Command exit with specific exit code
//   - PartialSuccessError: Some packages were updated, some failed
//   - ValidationError: Configuration validation failures
//   - The per-package taxonomy: StrategyUnresolvedError, SourceMapValidationError,
//     ProbeError, DiffError, ApplyError and RollbackError
//
// Per-package errors are recorded on the package's report row and never abort a
// batch. Only RollbackError escalates to a run-level condition (ExitRollbackFailure).
//
// Error Display:
//
//	errors.PrintErrorWithHints(os.Stderr, errs, verbose)
//
// Exit Codes:
//   - ExitSuccess (0): All operations completed successfully
//   - ExitPartialFailure (1): Some packages failed
//   - ExitFailure (2): All selected packages failed or a critical error occurred
//   - ExitConfigError (3): Configuration or source map file error
//   - ExitRollbackFailure (4): A rollback failed; installed state needs manual repair
package errors
