// Package preflight checks that the programs a run depends on are installed
// before any skill is probed.
package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// CommandResolutionHints maps command names to installation instructions.
//
// Keys are the programs the installer command usually starts with; values are
// human-readable installation instructions.
var CommandResolutionHints = map[string]string{
	"python":  "Install Python: https://python.org/downloads/",
	"python3": "Install Python: https://python.org/downloads/",
	"uv":      "Install uv: https://docs.astral.sh/uv/getting-started/installation/",
	"uvx":     "Install uv: https://docs.astral.sh/uv/getting-started/installation/",
	"node":    "Install Node.js: https://nodejs.org/",
	"npx":     "Install Node.js: https://nodejs.org/",
	"git":     "Install git: https://git-scm.com/downloads",
	"gh":      "Install the GitHub CLI: https://cli.github.com/",
	"curl":    "Install curl: https://curl.se/download.html (often pre-installed)",
	"codex":   "Install the Codex CLI: npm install -g @openai/codex",
}

// Test seams.
var (
	lookPathFunc      = exec.LookPath
	existsInShellFunc = commandExistsInShell
)

// ValidationError represents a missing command with resolution hints.
//
// Fields:
//   - Command: The name of the missing command
//   - Hint: Installation instructions (empty if no hint available)
type ValidationError struct {
	Command string
	Hint    string
}

// Error returns a formatted error message with resolution instructions.
func (e *ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("command not found: %s\n  Resolution: %s", e.Command, e.Hint)
	}
	return fmt.Sprintf("command not found: %s\n  Resolution: Ensure '%s' is installed and available in your PATH,\n             or set fetch.command to an installer that is.", e.Command, e.Command)
}

// ValidateResult holds the result of pre-flight validation.
type ValidateResult struct {
	Errors []ValidationError
}

// HasErrors returns true if there are validation errors.
func (r *ValidateResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ErrorMessage returns one message for all validation errors, or "" when
// there are none.
func (r *ValidateResult) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Pre-flight validation failed:\n")
	for _, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ValidateCommands checks that every program named by the command templates
// is available.
//
// It performs the following operations:
//   - Extracts the program of every line and pipe segment of each template
//   - Checks each unique program once, in PATH first and then in the user's shell
//   - Collects validation errors with resolution hints for missing programs
//
// Parameters:
//   - templates: Command templates; {{placeholders}} in arguments are ignored
//
// Returns:
//   - *ValidateResult: Result containing any validation errors; never nil
func ValidateCommands(templates ...string) *ValidateResult {
	result := &ValidateResult{}
	checked := make(map[string]bool)

	for _, tmpl := range templates {
		for _, cmd := range extractCommands(tmpl) {
			if checked[cmd] {
				continue
			}
			checked[cmd] = true
			if err := validateCommand(cmd); err != nil {
				result.Errors = append(result.Errors, *err)
			}
		}
	}

	verbose.Debugf("Preflight: %d unique commands checked, %d errors", len(checked), len(result.Errors))
	return result
}

// extractCommands extracts all command names from a multiline commands string.
//
// It performs the following operations:
//   - Normalizes line endings (CRLF to LF)
//   - Skips empty lines and comment lines (starting with #)
//   - Handles line continuation backslashes
//   - Parses piped commands (separated by |)
//   - Skips leading VAR=value environment assignments
//   - Deduplicates command names
//
// Returns:
//   - []string: Unique command names in order of first appearance
func extractCommands(commands string) []string {
	result := []string{}
	seen := make(map[string]bool)

	trimmed := strings.TrimSpace(commands)
	if trimmed == "" {
		return result
	}

	normalized := strings.ReplaceAll(trimmed, "\r\n", "\n")
	for _, line := range strings.Split(normalized, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimSpace(strings.TrimSuffix(line, "\\"))
		if line == "" {
			continue
		}

		for _, part := range strings.Split(line, "|") {
			fields := strings.Fields(part)
			for len(fields) > 0 && isAssignment(fields[0]) {
				fields = fields[1:]
			}
			if len(fields) == 0 {
				continue
			}
			cmd := fields[0]
			if strings.Contains(cmd, "{{") {
				continue
			}
			if !seen[cmd] {
				seen[cmd] = true
				result = append(result, cmd)
			}
		}
	}

	return result
}

func isAssignment(field string) bool {
	i := strings.IndexByte(field, '=')
	return i > 0 && !strings.ContainsAny(field[:i], "/{")
}

// validateCommand checks if a command exists in PATH or as a shell alias.
//
// Returns:
//   - *ValidationError: Error with resolution hint if command not found; nil
//     if command exists or cmd is empty
func validateCommand(cmd string) *ValidationError {
	if cmd == "" {
		return nil
	}

	if _, err := lookPathFunc(cmd); err == nil {
		return nil
	}
	if existsInShellFunc(cmd) {
		verbose.Debugf("Preflight: command %q found as shell alias/function", cmd)
		return nil
	}

	hint := CommandResolutionHints[cmd]
	verbose.Printf("Preflight ERROR: command %q not found", cmd)
	return &ValidationError{Command: cmd, Hint: hint}
}

// commandExistsInShell checks if a command exists through the user's shell,
// which also finds aliases and shell functions.
func commandExistsInShell(cmd string) bool {
	shell, args := getShellCommandCheck(cmd)
	return exec.Command(shell, args...).Run() == nil
}

// GetResolutionHint returns the installation hint for a command, if available.
func GetResolutionHint(cmd string) string {
	return CommandResolutionHints[cmd]
}
