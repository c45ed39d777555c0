package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/testutil"
)

// TestConfigCommand tests the behavior of config command with various flags.
//
// It verifies:
//   - --show-defaults prints the template
//   - --show-effective prints the layered settings
//   - --init creates the template and refuses to overwrite it
func TestConfigCommand(t *testing.T) {
	t.Run("show defaults", func(t *testing.T) {
		setupCmd(t)

		stdout, _, err := execute(t, "config", "--show-defaults")
		require.NoError(t, err)
		assert.Contains(t, stdout, "skill-updater configuration")
	})

	t.Run("show effective", func(t *testing.T) {
		env := setupCmd(t)

		stdout, _, err := execute(t, "config", "--show-effective")
		require.NoError(t, err)
		assert.Contains(t, stdout, "# Effective configuration")
		assert.Contains(t, stdout, "codex_home: "+env.home)
		assert.Contains(t, stdout, "jobs: 2")
	})

	t.Run("init", func(t *testing.T) {
		env := setupCmd(t)
		path := filepath.Join(env.home, "conf", "config.yml")

		stdout, _, err := execute(t, "config", "--init", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Created "+path)
		assert.Equal(t, config.GetTemplateConfig(), testutil.ReadFile(t, path))

		resetFlags()
		_, _, err = execute(t, "config", "--init", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("init write failure", func(t *testing.T) {
		env := setupCmd(t)
		old := writeFileFunc
		writeFileFunc = func(string, []byte, os.FileMode) error { return os.ErrPermission }
		t.Cleanup(func() { writeFileFunc = old })

		_, _, err := execute(t, "config", "--init", "--config", filepath.Join(env.home, "config.yml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write")
	})
}

// TestConfigValidate tests --validate.
//
// It verifies:
//   - A known-keys file passes
//   - Unknown keys fail with ExitConfigError and a hint
//   - A missing file fails with ExitConfigError
//   - Invalid values from the loaded settings fail with ExitConfigError
func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := setupCmd(t)
		path := testutil.WriteFile(t, filepath.Join(env.home, "config.yml"), "jobs: 2\nfail_fast: true\n")

		stdout, _, err := execute(t, "config", "--validate", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Configuration valid: "+path)
	})

	t.Run("unknown key", func(t *testing.T) {
		env := setupCmd(t)
		path := testutil.WriteFile(t, filepath.Join(env.home, "config.yml"), "jobs: 2\nfail-fast: true\n")

		stdout, _, err := execute(t, "config", "--validate", "--config", path)
		require.Error(t, err)
		assert.Equal(t, errors.ExitConfigError, errors.GetExitCode(err))
		assert.Contains(t, stdout, "Configuration validation failed for: "+path)
		assert.Contains(t, stdout, "fail-fast")
	})

	t.Run("missing", func(t *testing.T) {
		env := setupCmd(t)

		_, _, err := execute(t, "config", "--validate", "--config", filepath.Join(env.home, "missing.yml"))
		require.Error(t, err)
		assert.Equal(t, errors.ExitConfigError, errors.GetExitCode(err))
	})

	t.Run("bad value", func(t *testing.T) {
		env := setupCmd(t)
		env.settings.Jobs = 99
		path := testutil.WriteFile(t, filepath.Join(env.home, "config.yml"), "jobs: 99\n")

		stdout, _, err := execute(t, "config", "--validate", "--config", path)
		require.Error(t, err)
		assert.Equal(t, errors.ExitConfigError, errors.GetExitCode(err))
		assert.Contains(t, stdout, "Configuration validation failed")
	})
}

// TestConfigHelp tests the config command without flags.
func TestConfigHelp(t *testing.T) {
	setupCmd(t)

	stdout, _, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "--show-effective")
}
