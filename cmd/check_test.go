package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/output"
	"github.com/femon07/codex-skill-updater/pkg/preflight"
	"github.com/femon07/codex-skill-updater/pkg/testutil"
)

// TestCheckNDJSON tests the default check report.
//
// It verifies:
//   - One row per installed skill, sorted by name, then a summary record
//   - Skills without metadata or archive need mapping and are not probed
//   - Skills that need mapping are listed on stderr with a hint
//   - The installed tree is never modified
func TestCheckNDJSON(t *testing.T) {
	env := setupCmd(t)
	alpha := env.remoteSkill(t, "alpha", "# alpha v1\n")
	testutil.WriteSkill(t, env.skills, "bravo", nil)
	env.upstream("alpha", map[string]string{constants.SkillManifest: "# alpha v2\n"})

	stdout, stderr, err := execute(t, "check")
	require.NoError(t, err)
	assert.Contains(t, stderr, "manual_source_map_required: bravo (1 skill)")

	records := ndjsonRecords(t, stdout)
	require.Len(t, records, 3)

	assert.Equal(t, "row", records[0]["type"])
	assert.Equal(t, "alpha", records[0]["name"])
	assert.Equal(t, constants.StrategyUpdateViaRemote, records[0]["strategy"])
	assert.Equal(t, constants.ProbeResolved, records[0]["probeStatus"])
	assert.Equal(t, "acme/skills", records[0]["repo"])

	assert.Equal(t, "bravo", records[1]["name"])
	assert.Equal(t, constants.StrategyManualSourceMapRequired, records[1]["strategy"])
	assert.Equal(t, constants.ProbeNeedsMapping, records[1]["probeStatus"])

	assert.Equal(t, "summary", records[2]["type"])
	assert.EqualValues(t, 2, records[2]["total"])
	assert.EqualValues(t, 1, records[2]["resolved"])
	assert.EqualValues(t, 1, records[2]["needsMapping"])

	assert.Equal(t, []string{"alpha"}, env.fetcher.called())
	assert.Equal(t, "# alpha v1\n", testutil.ReadFile(t, filepath.Join(alpha, constants.SkillManifest)))
}

// TestCheckExitCodes tests the check exit code for probe failures.
//
// It verifies:
//   - Some failed probes give ExitPartialFailure
//   - All failed probes give ExitFailure
func TestCheckExitCodes(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		env := setupCmd(t)
		env.remoteSkill(t, "alpha", "# alpha\n")
		env.remoteSkill(t, "bravo", "# bravo\n")
		env.upstream("alpha", map[string]string{constants.SkillManifest: "# alpha\n"})

		_, _, err := execute(t, "check")
		require.Error(t, err)
		assert.Equal(t, errors.ExitPartialFailure, errors.GetExitCode(err))
		assert.Contains(t, err.Error(), "1 of 2 skills failed the probe")
	})

	t.Run("all", func(t *testing.T) {
		env := setupCmd(t)
		env.remoteSkill(t, "alpha", "# alpha\n")

		_, _, err := execute(t, "check")
		require.Error(t, err)
		assert.Equal(t, errors.ExitFailure, errors.GetExitCode(err))
	})
}

// TestCheckConfigErrors tests flag validation.
//
// It verifies:
//   - An unsupported format, an unknown strategy and a bad regex are config errors
func TestCheckConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "format", args: []string{"check", "--format", "xml"}},
		{name: "strategy", args: []string{"check", "--strategy", "bogus"}},
		{name: "package regex", args: []string{"check", "--package", "~("}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCmd(t)
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, errors.ExitConfigError, errors.GetExitCode(err))
		})
	}
}

// TestCheckFilters tests the strategy and name filters.
//
// It verifies:
//   - Only matching skills are reported and probed
func TestCheckFilters(t *testing.T) {
	env := setupCmd(t)
	env.remoteSkill(t, "alpha", "# alpha\n")
	env.remoteSkill(t, "beta", "# beta\n")
	testutil.WriteSkill(t, env.skills, "gamma", nil)
	env.upstream("alpha", map[string]string{constants.SkillManifest: "# alpha\n"})
	env.upstream("beta", map[string]string{constants.SkillManifest: "# beta\n"})

	stdout, _, err := execute(t, "check", "-s", "updateviaremote", "-p", "b*")
	require.NoError(t, err)

	records := ndjsonRecords(t, stdout)
	require.Len(t, records, 2)
	assert.Equal(t, "beta", records[0]["name"])
	assert.Equal(t, []string{"beta"}, env.fetcher.called())
}

// TestCheckLocalArchive tests archive resolution end to end.
//
// It verifies:
//   - A dist/<name>.skill archive selects InstallFromLocalArchive
//   - The archive path is reported
func TestCheckLocalArchive(t *testing.T) {
	env := setupCmd(t)
	testutil.WriteSkill(t, env.skills, "delta", nil)
	archive := filepath.Join(env.skills, constants.DistDir, "delta"+constants.ArchiveExt)
	testutil.WriteArchive(t, archive, map[string]string{"delta/" + constants.SkillManifest: "# delta v2\n"})
	env.upstream("delta", map[string]string{constants.SkillManifest: "# delta v2\n"})

	stdout, _, err := execute(t, "check", "-o", "tsv")
	require.NoError(t, err)

	assert.Contains(t, stdout, "delta\t"+constants.StrategyInstallFromLocalArchive)
	assert.Contains(t, stdout, archive)
}

// TestCheckDebugArtifacts tests the fixed-name debug file.
//
// It verifies:
//   - --debug-artifacts writes the check TSV into the debug directory
//   - The file can be read back as a check file
func TestCheckDebugArtifacts(t *testing.T) {
	env := setupCmd(t)
	env.remoteSkill(t, "alpha", "# alpha\n")
	env.upstream("alpha", map[string]string{constants.SkillManifest: "# alpha v2\n"})

	_, _, err := execute(t, "check", "--debug-artifacts")
	require.NoError(t, err)

	content := testutil.ReadFile(t, filepath.Join(env.home, constants.DebugCheckFile))
	rows, err := output.ReadCheckFile(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0].Name)
	assert.Equal(t, constants.ProbeResolved, rows[0].ProbeStatus)
}

// TestCheckExitError tests the mapping from summary to exit error.
func TestCheckExitError(t *testing.T) {
	tests := []struct {
		name    string
		summary output.CheckSummary
		code    int
	}{
		{name: "clean", summary: output.CheckSummary{Total: 2, Resolved: 2}, code: errors.ExitSuccess},
		{name: "needs mapping only", summary: output.CheckSummary{Total: 2, Resolved: 1, NeedsMapping: 1}, code: errors.ExitSuccess},
		{name: "partial", summary: output.CheckSummary{Total: 3, Resolved: 2, Failed: 1}, code: errors.ExitPartialFailure},
		{name: "all", summary: output.CheckSummary{Total: 2, Failed: 2}, code: errors.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, errors.GetExitCode(checkExitError(tt.summary)))
		})
	}
}

// TestCheckPreflight tests the installer command check.
//
// It verifies:
//   - A missing installer program is a config error when a remote skill needs it
//   - Runs with no remote skills do not need the installer
func TestCheckPreflight(t *testing.T) {
	env := setupCmd(t)
	preflightFunc = preflight.ValidateCommands
	env.settings.Fetch.Command = "skill-updater-missing-installer --dest {{dest}}"

	testutil.WriteSkill(t, env.skills, "bravo", nil)
	_, _, err := execute(t, "check")
	require.NoError(t, err)

	env.remoteSkill(t, "alpha", "# alpha\n")
	resetFlags()
	_, _, err = execute(t, "check")
	require.Error(t, err)
	assert.Equal(t, errors.ExitConfigError, errors.GetExitCode(err))
	assert.Contains(t, err.Error(), "command not found: skill-updater-missing-installer")
	assert.Empty(t, env.fetcher.called())
}
