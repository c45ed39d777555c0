package errors

import (
	"strings"
)

// ErrorHint provides actionable resolution hints for common errors.
//
// Fields:
//   - Pattern: Substring to match in error message (case-insensitive)
//   - Hint: Brief description of the issue
//   - Resolution: Command or action to resolve the issue
type ErrorHint struct {
	// Pattern is a substring to match in error messages (case-insensitive).
	Pattern string

	// Hint is a brief description of the problem.
	Hint string

	// Resolution is a command or action to fix the problem.
	Resolution string
}

// CommonErrorHints maps error patterns to actionable hints.
// The first matching pattern wins, so more specific patterns come first.
var CommonErrorHints = []ErrorHint{
	{
		Pattern:    "rollback",
		Hint:       "Installed skill could not be restored",
		Resolution: "Copy the backup directory shown above back over the skill directory by hand",
	},
	{
		Pattern:    "placeholder",
		Hint:       "Source map entry still holds template values",
		Resolution: "Edit the local source map (skill-updater sourcemap add NAME --repo OWNER/REPO --path PATH)",
	},
	{
		Pattern:    "invalid source map",
		Hint:       "Source map file is malformed",
		Resolution: "Run 'skill-updater sourcemap validate' and fix the reported entries",
	},
	{
		Pattern:    "(auth)",
		Hint:       "Authentication required",
		Resolution: "Set GH_TOKEN or run 'gh auth login'",
	},
	{
		Pattern:    "(not_found)",
		Hint:       "Upstream repository or path not found",
		Resolution: "Check repo and path for this skill in .skill-meta.json or the source map",
	},
	{
		Pattern:    "(timeout)",
		Hint:       "Fetch took too long",
		Resolution: "Raise --probe-timeout or check network connectivity",
	},
	{
		Pattern:    "(network)",
		Hint:       "Network connectivity issue",
		Resolution: "Check internet connection and proxy settings",
	},
	{
		Pattern:    "(invalid_content)",
		Hint:       "Fetched content is not a skill",
		Resolution: "Make sure the upstream path contains SKILL.md",
	},
	{
		Pattern:    "failed to load config",
		Hint:       "Configuration file is invalid or not found",
		Resolution: "Run 'skill-updater config' to see effective settings",
	},
	{
		Pattern:    "permission denied",
		Hint:       "Insufficient permissions",
		Resolution: "Check file permissions under CODEX_HOME",
	},
	{
		Pattern:    "no such file or directory",
		Hint:       "File or directory not found",
		Resolution: "Verify the path exists and you have read permissions",
	},
}

// GetHint returns an actionable hint for the given error, or "" if none matches.
func GetHint(err error) string {
	if err == nil {
		return ""
	}
	if h, ok := findHint(err.Error()); ok {
		return h.Hint + ": " + h.Resolution
	}
	return ""
}

// EnhanceErrorWithHint adds actionable hints to an error message if a matching pattern is found.
//
// Parameters:
//   - err: The error to enhance
//
// Returns:
//   - string: Error message with hint appended if found, otherwise just the error message
//
// Example:
//
//	enhanced := errors.EnhanceErrorWithHint(err)
//	fmt.Fprintf(os.Stderr, "Error: %s\n", enhanced)
func EnhanceErrorWithHint(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()
	if h, ok := findHint(errStr); ok {
		return errStr + "\n  \U0001F4A1 " + h.Hint + ": " + h.Resolution
	}
	return errStr
}

func findHint(msg string) (ErrorHint, bool) {
	lower := strings.ToLower(msg)
	for _, hint := range CommonErrorHints {
		if strings.Contains(lower, strings.ToLower(hint.Pattern)) {
			return hint, true
		}
	}
	return ErrorHint{}, false
}
