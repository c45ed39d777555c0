// Package testutil provides shared test utilities for skill-updater packages.
package testutil

import (
	"bytes"
	"os"
	"testing"

	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// CaptureLog captures the process-wide log stream during fn.
//
// Log lines are rendered without color so tests can match them. The stderr
// writer and color output are restored when fn returns.
//
// Parameters:
//   - t: Testing instance for helper marking
//   - fn: Function to execute while capturing
//
// Returns:
//   - string: Every log line written during fn
func CaptureLog(t *testing.T, fn func()) string {
	t.Helper()

	var buf bytes.Buffer
	verbose.SetWriter(&buf)
	verbose.SetNoColor(true)
	defer func() {
		verbose.SetWriter(os.Stderr)
		verbose.SetNoColor(false)
	}()

	fn()
	return buf.String()
}
