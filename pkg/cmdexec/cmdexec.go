// Package cmdexec runs templated shell commands for skill-updater.
// It supports multiline commands with piped (|) and sequential (newline) execution,
// environment variables, {{key}} template arguments, and per-command timeouts.
package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// waitDelay bounds how long Wait blocks on output pipes after the process is killed.
const waitDelay = 2 * time.Second

// ErrTimeout is wrapped by errors returned when a command exceeds its timeout.
var ErrTimeout = errors.New("command timed out")

// Request describes one command invocation.
//
// Fields:
//   - Command: Multiline command string; {{key}} placeholders are replaced
//   - Env: Extra environment variables for the command
//   - Dir: Working directory, empty for the current directory
//   - Timeout: Maximum execution time, 0 for none
//   - Replacements: Template values, shell-escaped before substitution
type Request struct {
	Command      string
	Env          map[string]string
	Dir          string
	Timeout      time.Duration
	Replacements map[string]string
}

// ExitError is returned when a command exits non-zero. Stderr holds the
// trimmed diagnostic output so callers can classify the failure.
type ExitError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExecuteFunc is the function signature for command execution.
type ExecuteFunc func(ctx context.Context, req Request) ([]byte, error)

// Execute runs a Request. It can be replaced with a stub in tests.
var Execute ExecuteFunc = executeCommands

// getShell returns the shell and args used to run a command string.
func getShell() (shell string, args []string) {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh, []string{"-c"}
	}
	return getDefaultShell()
}

// executeCommands executes a multiline command string.
//
// It performs the following operations:
//   - Applies template replacements with shell escaping
//   - Splits the string into groups (pipes join lines, newlines separate groups)
//   - Runs each group in order, stopping at the first failure
//   - Applies Timeout to the whole request, not to each group
//
// Returns:
//   - []byte: Stdout of the last executed group
//   - error: ErrTimeout (wrapped), *ExitError, or a context error
func executeCommands(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.Command) == "" {
		return nil, fmt.Errorf("no commands provided")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	environ := os.Environ()
	for key, value := range req.Env {
		environ = append(environ, fmt.Sprintf("%s=%s", key, os.ExpandEnv(value)))
	}

	groups := parseCommandGroups(applyReplacements(req.Command, req.Replacements))

	var lastOutput []byte
	for _, group := range groups {
		if ctx.Err() != nil {
			return lastOutput, ctx.Err()
		}
		output, err := executeCommand(ctx, strings.Join(group, " | "), environ, req.Dir, req.Timeout)
		if err != nil {
			return output, err
		}
		lastOutput = output
	}

	return lastOutput, nil
}

// applyReplacements replaces {{key}} placeholders with shell-escaped values.
// An empty value removes its placeholder instead of passing an empty argument.
func applyReplacements(commands string, replacements map[string]string) string {
	result := commands
	for key, value := range replacements {
		escaped := ""
		if value != "" {
			escaped = shellEscape(value)
		}
		result = strings.ReplaceAll(result, "{{"+key+"}}", escaped)
	}
	return result
}

// shellEscape quotes s for the shell unless every rune is safe unquoted.
func shellEscape(s string) string {
	if s == "" {
		return "''"
	}

	needsEscape := false
	for _, r := range s {
		if !isShellSafe(r) {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return s
	}

	var escaped strings.Builder
	escaped.WriteRune('\'')
	for _, r := range s {
		if r == '\'' {
			escaped.WriteString(`'\''`)
		} else {
			escaped.WriteRune(r)
		}
	}
	escaped.WriteRune('\'')
	return escaped.String()
}

func isShellSafe(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.' ||
		r == '/' || r == '@' || r == ':' ||
		r == '+' || r == '='
}

// parseCommandGroups parses a multiline command string into groups.
//
// Lines ending with \ are joined with the next line. Lines ending with | are
// piped into the next line. Inline pipes split a line into one group. Other
// newlines separate sequential groups.
func parseCommandGroups(commands string) [][]string {
	lines := strings.Split(strings.ReplaceAll(commands, "\r\n", "\n"), "\n")
	var groups [][]string
	var currentGroup []string
	var currentCmd strings.Builder

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasSuffix(trimmed, "\\") {
			currentCmd.WriteString(strings.TrimSuffix(trimmed, "\\"))
			currentCmd.WriteString(" ")
			continue
		}

		currentCmd.WriteString(trimmed)
		fullLine := strings.TrimSpace(currentCmd.String())
		currentCmd.Reset()

		if strings.HasSuffix(fullLine, "|") {
			if pipeCmd := strings.TrimSpace(strings.TrimSuffix(fullLine, "|")); pipeCmd != "" {
				currentGroup = append(currentGroup, pipeCmd)
			}
			continue
		}

		if parts := splitByPipe(fullLine); len(parts) > 1 {
			currentGroup = append(currentGroup, parts...)
		} else {
			currentGroup = append(currentGroup, fullLine)
		}
		groups = append(groups, currentGroup)
		currentGroup = nil
	}

	if len(currentGroup) > 0 {
		groups = append(groups, currentGroup)
	}

	return groups
}

// splitByPipe splits a command line by pipe operators outside quotes.
// A "||" operator is left intact.
func splitByPipe(line string) []string {
	var parts []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if (r == '"' || r == '\'') && (i == 0 || runes[i-1] != '\\') {
			if !inQuote {
				inQuote = true
				quoteChar = r
			} else if r == quoteChar {
				inQuote = false
			}
			current.WriteRune(r)
			continue
		}

		if !inQuote && r == '|' {
			if i+1 < len(runes) && runes[i+1] == '|' {
				current.WriteString("||")
				i++
				continue
			}
			if part := strings.TrimSpace(current.String()); part != "" {
				parts = append(parts, part)
			}
			current.Reset()
			continue
		}

		current.WriteRune(r)
	}

	if part := strings.TrimSpace(current.String()); part != "" {
		parts = append(parts, part)
	}

	return parts
}

// executeCommand executes a single command string through the shell.
//
// The command runs in its own process group; cancellation kills the group.
func executeCommand(ctx context.Context, cmdStr string, environ []string, dir string, timeout time.Duration) ([]byte, error) {
	shell, shellArgs := getShell()
	args := append(append([]string{}, shellArgs...), cmdStr)

	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Env = environ
	if dir != "" {
		cmd.Dir = dir
	}
	setProcGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && timeout > 0 {
			verbose.Printf("command timed out after %s: %s", timeout, cmdStr)
			return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = strings.TrimSpace(stdout.String())
		}
		return nil, &ExitError{Command: cmdStr, Stderr: errMsg, Err: err}
	}

	return stdout.Bytes(), nil
}
