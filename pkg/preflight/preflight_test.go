package preflight

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLookup makes only the named commands resolvable.
func stubLookup(t *testing.T, available ...string) {
	t.Helper()
	set := make(map[string]bool, len(available))
	for _, c := range available {
		set[c] = true
	}
	oldLook, oldShell := lookPathFunc, existsInShellFunc
	lookPathFunc = func(cmd string) (string, error) {
		if set[cmd] {
			return "/usr/bin/" + cmd, nil
		}
		return "", exec.ErrNotFound
	}
	existsInShellFunc = func(string) bool { return false }
	t.Cleanup(func() { lookPathFunc, existsInShellFunc = oldLook, oldShell })
}

// TestExtractCommands tests the behavior of command extraction from command templates.
//
// It verifies:
//   - Single commands are extracted with placeholders ignored
//   - Multiline commands with pipes are handled
//   - Environment assignments before the program are skipped
//   - Comments and empty input produce no commands
//   - Repeated programs are deduplicated
func TestExtractCommands(t *testing.T) {
	tests := []struct {
		name     string
		commands string
		want     []string
	}{
		{
			name:     "installer",
			commands: "python3 {{codex_home}}/install.py --repo {{repo}} --dest {{dest}}",
			want:     []string{"python3"},
		},
		{
			name:     "multiline with pipes",
			commands: "curl -sL {{repo}} |\ntar -x -C {{dest}}",
			want:     []string{"curl", "tar"},
		},
		{
			name:     "env assignment",
			commands: "GH_TOKEN=x PYTHONUTF8=1 python3 install.py",
			want:     []string{"python3"},
		},
		{
			name:     "comments and continuation",
			commands: "# fetch\ngit clone {{repo}} \\\n  {{dest}}",
			want:     []string{"git"},
		},
		{
			name:     "placeholder program",
			commands: "{{codex_home}}/bin/install --dest {{dest}}",
			want:     []string{},
		},
		{name: "empty", commands: "", want: []string{}},
		{
			name:     "repeated",
			commands: "git fetch\ngit checkout {{ref}}",
			want:     []string{"git"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCommands(tt.commands))
		})
	}
}

// TestValidateCommands tests validation across templates.
//
// It verifies:
//   - Available programs pass
//   - Missing programs are reported once with their hint
func TestValidateCommands(t *testing.T) {
	stubLookup(t, "git")

	result := ValidateCommands("git clone {{repo}} {{dest}}", "python3 install.py", "python3 other.py")
	require.True(t, result.HasErrors())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "python3", result.Errors[0].Command)
	assert.Equal(t, CommandResolutionHints["python3"], result.Errors[0].Hint)
	assert.Contains(t, result.ErrorMessage(), "Pre-flight validation failed:")
	assert.Contains(t, result.ErrorMessage(), "command not found: python3")

	ok := ValidateCommands("git clone {{repo}} {{dest}}")
	assert.False(t, ok.HasErrors())
	assert.Empty(t, ok.ErrorMessage())
}

// TestValidateCommandShellFallback tests the alias fallback.
func TestValidateCommandShellFallback(t *testing.T) {
	stubLookup(t)
	existsInShellFunc = func(cmd string) bool { return cmd == "myinstaller" }

	assert.Nil(t, validateCommand("myinstaller"))
	assert.Nil(t, validateCommand(""))
	assert.NotNil(t, validateCommand("other"))
}

// TestValidationErrorMessage tests error text with and without a hint.
func TestValidationErrorMessage(t *testing.T) {
	withHint := &ValidationError{Command: "gh", Hint: GetResolutionHint("gh")}
	assert.Contains(t, withHint.Error(), "Resolution: Install the GitHub CLI")

	noHint := &ValidationError{Command: "custom"}
	assert.Contains(t, noHint.Error(), "Ensure 'custom' is installed")
	assert.Contains(t, noHint.Error(), "fetch.command")
}

// TestGetShellCommandCheck tests the shell invocation.
func TestGetShellCommandCheck(t *testing.T) {
	t.Setenv("SHELL", "")
	shell, args := getShellCommandCheck("it's")
	assert.Equal(t, "sh", shell)
	assert.Equal(t, []string{"-l", "-c", `command -v 'it'\''s'`}, args)

	t.Setenv("SHELL", "/bin/zsh")
	shell, _ = getShellCommandCheck("git")
	assert.Equal(t, "/bin/zsh", shell)
}
