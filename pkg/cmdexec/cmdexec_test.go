package cmdexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping Unix-specific test on Windows")
	}
}

// TestApplyReplacements tests the behavior of applyReplacements.
//
// It verifies:
//   - Template placeholders are replaced with values
//   - Values with shell metacharacters are single-quoted
//   - Empty values remove the placeholder
func TestApplyReplacements(t *testing.T) {
	tests := []struct {
		name         string
		cmd          string
		replacements map[string]string
		want         string
	}{
		{
			name:         "safe values",
			cmd:          "install --repo {{repo}} --path {{path}} --ref {{ref}}",
			replacements: map[string]string{"repo": "openai/skills", "path": "skills/.curated/pdf", "ref": "main"},
			want:         "install --repo openai/skills --path skills/.curated/pdf --ref main",
		},
		{
			name:         "quoted value",
			cmd:          "install --dest {{dest}}",
			replacements: map[string]string{"dest": "/tmp/my dir"},
			want:         "install --dest '/tmp/my dir'",
		},
		{
			name:         "injection attempt",
			cmd:          "install --name {{name}}",
			replacements: map[string]string{"name": "x; rm -rf /"},
			want:         "install --name 'x; rm -rf /'",
		},
		{
			name:         "empty value removed",
			cmd:          "install {{flag}} --name x",
			replacements: map[string]string{"flag": ""},
			want:         "install  --name x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyReplacements(tt.cmd, tt.replacements))
		})
	}
}

func TestShellEscape(t *testing.T) {
	assert.Equal(t, "''", shellEscape(""))
	assert.Equal(t, "abc-1.2_3", shellEscape("abc-1.2_3"))
	assert.Equal(t, `'it'\''s'`, shellEscape("it's"))
}

// TestGetShell tests the behavior of getShell.
//
// It verifies:
//   - SHELL environment variable is used when set
//   - Falls back to sh when SHELL is not set
func TestGetShell(t *testing.T) {
	skipOnWindows(t)

	t.Run("uses SHELL", func(t *testing.T) {
		t.Setenv("SHELL", "/bin/bash")
		shell, args := getShell()
		assert.Equal(t, "/bin/bash", shell)
		assert.Equal(t, []string{"-c"}, args)
	})

	t.Run("falls back to sh", func(t *testing.T) {
		t.Setenv("SHELL", "")
		shell, args := getShell()
		assert.Equal(t, "sh", shell)
		assert.Equal(t, []string{"-c"}, args)
	})
}

func TestParseCommandGroups(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want [][]string
	}{
		{"single", "echo hello", [][]string{{"echo hello"}}},
		{"inline pipe", `echo "a|b" | grep a`, [][]string{{`echo "a|b"`, "grep a"}}},
		{"multiline pipe", "echo hi |\ntr a-z A-Z", [][]string{{"echo hi", "tr a-z A-Z"}}},
		{"sequential", "echo one\n\necho two", [][]string{{"echo one"}, {"echo two"}}},
		{"continuation", "install \\\n  --repo x", [][]string{{"install  --repo x"}}},
		{"or operator kept", "false || true", [][]string{{"false || true"}}},
		{"crlf", "echo a\r\necho b", [][]string{{"echo a"}, {"echo b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCommandGroups(tt.cmd))
		})
	}
}

// TestExecute runs real shell commands.
//
// It verifies:
//   - Output of the last group is returned
//   - Replacements and environment reach the command
//   - Non-zero exits return *ExitError with stderr
//   - Timeouts wrap ErrTimeout
func TestExecute(t *testing.T) {
	skipOnWindows(t)
	t.Setenv("SHELL", "")
	ctx := context.Background()

	t.Run("sequential output", func(t *testing.T) {
		out, err := Execute(ctx, Request{Command: "echo first\necho {{word}}", Replacements: map[string]string{"word": "second"}})
		require.NoError(t, err)
		assert.Equal(t, "second\n", string(out))
	})

	t.Run("pipe", func(t *testing.T) {
		out, err := Execute(ctx, Request{Command: "echo hello | tr a-z A-Z"})
		require.NoError(t, err)
		assert.Equal(t, "HELLO\n", string(out))
	})

	t.Run("env and dir", func(t *testing.T) {
		dir := t.TempDir()
		out, err := Execute(ctx, Request{Command: `echo "$SKILL_TEST_VAR"; pwd`, Env: map[string]string{"SKILL_TEST_VAR": "v1"}, Dir: dir})
		require.NoError(t, err)
		resolved, _ := filepath.EvalSymlinks(dir)
		assert.Contains(t, string(out), "v1")
		assert.Contains(t, string(out), filepath.Base(resolved))
	})

	t.Run("failure", func(t *testing.T) {
		_, err := Execute(ctx, Request{Command: "echo 'not found' >&2; exit 3"})
		require.Error(t, err)
		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, "not found", exitErr.Stderr)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("timeout", func(t *testing.T) {
		start := time.Now()
		_, err := Execute(ctx, Request{Command: "sleep 5", Timeout: 100 * time.Millisecond})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Less(t, time.Since(start), 4*time.Second)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Execute(ctx, Request{Command: "  "})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Execute(cctx, Request{Command: "echo x"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("writes file", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "out.txt")
		_, err := Execute(ctx, Request{Command: "echo data > {{dest}}", Replacements: map[string]string{"dest": dest}})
		require.NoError(t, err)
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "data\n", string(data))
	})
}
