package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExitCodes tests the exit code constants.
//
// It verifies that:
//   - Codes 0 through 4 map to the documented conditions
func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 1, ExitPartialFailure)
	assert.Equal(t, 2, ExitFailure)
	assert.Equal(t, 3, ExitConfigError)
	assert.Equal(t, 4, ExitRollbackFailure)
}

// TestExitError tests the ExitError struct and its methods.
//
// It verifies that:
//   - Error() returns the Message field when set
//   - Error() returns wrapped error message when Err is set
//   - Error() returns "exit code N" when neither is set
//   - Unwrap() returns the wrapped error
func TestExitError(t *testing.T) {
	t.Run("with message", func(t *testing.T) {
		err := &ExitError{Code: ExitFailure, Message: "test message"}
		assert.Equal(t, "test message", err.Error())
	})

	t.Run("with wrapped error", func(t *testing.T) {
		innerErr := stderrors.New("inner error")
		err := NewExitError(ExitConfigError, innerErr)
		assert.Equal(t, "inner error", err.Error())
		assert.Equal(t, innerErr, err.Unwrap())
	})

	t.Run("with neither", func(t *testing.T) {
		err := &ExitError{Code: ExitPartialFailure}
		assert.Contains(t, err.Error(), "exit code 1")
	})

	t.Run("formatted", func(t *testing.T) {
		err := NewExitErrorf(ExitFailure, "failed: %s", "reason")
		assert.Equal(t, "failed: reason", err.Error())
	})
}

// TestGetExitCode tests exit code extraction.
//
// It verifies that:
//   - nil maps to ExitSuccess
//   - wrapped ExitErrors keep their code
//   - a wrapped RollbackError maps to ExitRollbackFailure
//   - any other error maps to ExitFailure
func TestGetExitCode(t *testing.T) {
	rb := &RollbackError{Package: "foo", BackupPath: "/b", ApplyErr: stderrors.New("copy"), Err: stderrors.New("restore")}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", NewExitError(ExitConfigError, stderrors.New("x")), ExitConfigError},
		{"wrapped exit error", fmt.Errorf("ctx: %w", NewExitError(ExitPartialFailure, nil)), ExitPartialFailure},
		{"rollback error", fmt.Errorf("run: %w", rb), ExitRollbackFailure},
		{"plain", stderrors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestPartialSuccessError(t *testing.T) {
	err := NewPartialSuccessError(3, 1, []error{stderrors.New("bad")})
	assert.Equal(t, "3 succeeded, 1 failed", err.Error())

	got, ok := IsPartialSuccess(fmt.Errorf("wrap: %w", err))
	require.True(t, ok)
	assert.Equal(t, 1, got.Failed)

	_, ok = IsPartialSuccess(stderrors.New("other"))
	assert.False(t, ok)
}

// TestDomainErrors tests the per-package error taxonomy.
//
// It verifies that:
//   - Messages name the package
//   - Unwrap exposes the cause for errors.Is
//   - RollbackError unwraps to both the restore and the apply error
func TestDomainErrors(t *testing.T) {
	cause := stderrors.New("cause")

	t.Run("strategy unresolved", func(t *testing.T) {
		err := &StrategyUnresolvedError{Package: "foo"}
		assert.Equal(t, "foo: no update strategy resolved", err.Error())
		err.Reason = "no metadata"
		assert.Contains(t, err.Error(), "no metadata")
	})

	t.Run("source map file level", func(t *testing.T) {
		err := &SourceMapValidationError{Path: "map.json", Message: "not an object"}
		assert.Equal(t, "invalid source map map.json: not an object", err.Error())
	})

	t.Run("source map entry", func(t *testing.T) {
		err := &SourceMapValidationError{Path: "map.json", Package: "foo", Field: "repo", Message: "placeholder value \"owner/repo\""}
		assert.Contains(t, err.Error(), `entry "foo"`)
		assert.Contains(t, err.Error(), "repo: placeholder")

		got, ok := IsSourceMapValidationError(fmt.Errorf("w: %w", err))
		require.True(t, ok)
		assert.Equal(t, "foo", got.Package)
	})

	t.Run("probe", func(t *testing.T) {
		err := NewProbeError("foo", ProbeKindAuth, cause)
		assert.Equal(t, "probe foo failed (auth): cause", err.Error())
		assert.ErrorIs(t, err, cause)

		got, ok := IsProbeError(err)
		require.True(t, ok)
		assert.Equal(t, ProbeKindAuth, got.Kind)

		assert.Equal(t, "probe foo failed (timeout)", NewProbeError("foo", ProbeKindTimeout, nil).Error())
	})

	t.Run("diff and apply", func(t *testing.T) {
		assert.ErrorIs(t, &DiffError{Package: "foo", Path: "/x", Err: cause}, cause)
		assert.ErrorIs(t, &ApplyError{Package: "foo", Step: "replace", Err: cause}, cause)
	})

	t.Run("rollback", func(t *testing.T) {
		applyErr := stderrors.New("apply")
		err := &RollbackError{Package: "foo", BackupPath: "/b/foo", ApplyErr: applyErr, Err: cause}
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, applyErr)
		assert.Contains(t, err.Error(), "/b/foo")

		_, ok := IsRollbackError(stderrors.New("x"))
		assert.False(t, ok)
	})
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Category:  ValidationCategoryConfig,
		Field:     "jobs",
		Message:   "must be between 1 and 8",
		Expected:  "integer",
		ValidKeys: []string{"1", "8"},
		Hint:      "use --jobs",
	}
	assert.Equal(t, "jobs: must be between 1 and 8", err.Error())

	verbose := err.VerboseError()
	assert.Contains(t, verbose, "Expected: integer")
	assert.Contains(t, verbose, "Valid keys: 1, 8")
	assert.Contains(t, verbose, "Hint: use --jobs")

	assert.Equal(t, "plain", (&ValidationError{Message: "plain"}).Error())

	got, ok := IsValidationError(fmt.Errorf("w: %w", NewConfigValidationError("a", "b")))
	require.True(t, ok)
	assert.Equal(t, ValidationCategoryConfig, got.Category)
}

// TestEnhanceErrorWithHint tests hint matching.
//
// It verifies that:
//   - Probe kinds map to their resolution
//   - Rollback wins over other matches
//   - Unmatched errors are returned unchanged
func TestEnhanceErrorWithHint(t *testing.T) {
	assert.Equal(t, "", EnhanceErrorWithHint(nil))
	assert.Equal(t, "", GetHint(nil))

	auth := NewProbeError("foo", ProbeKindAuth, stderrors.New("exit status 1"))
	assert.Contains(t, EnhanceErrorWithHint(auth), "GH_TOKEN")
	assert.Contains(t, GetHint(auth), "Authentication required")

	nf := NewProbeError("foo", ProbeKindNotFound, nil)
	assert.Contains(t, GetHint(nf), "source map")

	rb := &RollbackError{Package: "foo", BackupPath: "/b", ApplyErr: stderrors.New("permission denied"), Err: stderrors.New("x")}
	assert.Contains(t, GetHint(rb), "could not be restored")

	assert.Equal(t, "something odd", EnhanceErrorWithHint(stderrors.New("something odd")))
	assert.Equal(t, "", GetHint(stderrors.New("something odd")))
}

func TestPrintErrorWithHints(t *testing.T) {
	t.Run("rollback banner", func(t *testing.T) {
		var buf bytes.Buffer
		rb := &RollbackError{Package: "foo", BackupPath: "/backups/x/foo", ApplyErr: stderrors.New("a"), Err: stderrors.New("r")}
		PrintErrorWithHints(&buf, []error{fmt.Errorf("run: %w", rb)}, false)
		assert.Contains(t, buf.String(), "ROLLBACK FAILED: foo")
		assert.Contains(t, buf.String(), "/backups/x/foo")
	})

	t.Run("validation", func(t *testing.T) {
		var buf bytes.Buffer
		ve := &ValidationError{Field: "jobs", Message: "bad", Hint: "fix it"}
		PrintErrorWithHints(&buf, []error{ve}, true)
		assert.Contains(t, buf.String(), "Validation Error: jobs: bad")
		assert.Contains(t, buf.String(), "Hint: fix it")
	})

	t.Run("partial success verbose", func(t *testing.T) {
		var buf bytes.Buffer
		pse := NewPartialSuccessError(1, 1, []error{NewProbeError("foo", ProbeKindNetwork, nil)})
		PrintErrorWithHints(&buf, []error{pse}, true)
		assert.Contains(t, buf.String(), "Partial Success: 1 succeeded, 1 failed")
		assert.Contains(t, buf.String(), "probe foo failed (network)")
	})

	t.Run("plain and nil", func(t *testing.T) {
		var buf bytes.Buffer
		PrintErrorWithHints(&buf, []error{nil, stderrors.New("boom")}, false)
		assert.Equal(t, "Error: boom\n", buf.String())
	})
}

func TestFormatErrorsWithHints(t *testing.T) {
	assert.Equal(t, "", FormatErrorsWithHints(nil))
	out := FormatErrorsWithHints([]error{stderrors.New("a"), stderrors.New("b")})
	assert.Equal(t, "❌ a\n❌ b\n", out)
}

func TestValidationResult(t *testing.T) {
	r := NewValidationResult()
	assert.False(t, r.HasErrors())
	assert.NoError(t, r.Err())
	assert.Equal(t, "", r.ErrorMessage())

	first := NewConfigValidationError("jobs", "too many")
	r.AddError(first)
	r.AddWarning("deprecated key")
	assert.True(t, r.HasErrors())
	assert.Same(t, first, r.Err())

	r.AddError(NewConfigValidationError("check_format", "unknown"))
	assert.Contains(t, r.Err().Error(), "jobs: too many")
	assert.Contains(t, r.Err().Error(), "check_format: unknown")

	var buf bytes.Buffer
	r.PrintTo(&buf, false)
	assert.Contains(t, buf.String(), "Warning: deprecated key")
	assert.Contains(t, buf.String(), "  - jobs: too many")
}
