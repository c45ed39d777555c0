package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/output"
)

var (
	updateFlags      runFlags
	updateDryRunFlag bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check and apply updates in one run",
	Long: `Runs check and apply in one process: every selected skill is probed once and
the staged content is applied directly. A one-line check summary is printed to
stderr and the apply report to stdout. With --debug-artifacts both reports are
written under their fixed names.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	addRunFlags(updateCmd, &updateFlags, output.ApplyFormats)
	updateCmd.Flags().BoolVar(&updateDryRunFlag, "dry-run", false, "Stage and compare without writing to the installed tree")
}

// runUpdate executes check then apply.
//
// Parameters:
//   - cmd: Cobra command instance
//   - args: unused
//
// Returns:
//   - error: the apply report's exit error, or a configuration error
func runUpdate(cmd *cobra.Command, args []string) error {
	env, err := prepareRun(cmd, &updateFlags, output.ApplyFormats, func(s *config.Settings) string { return s.ApplyFormat })
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dry-run") {
		env.settings.DryRun = updateDryRunFlag
	}

	startedAt := nowFunc()
	batch, err := checkSkills(commandContext(cmd), env)
	if err != nil {
		return err
	}
	defer cleanupBatch(batch)

	rows := output.CheckRowsFromResults(batch.Results)
	summary := output.SummarizeCheck(rows)
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "check: total=%d resolved=%d needsMapping=%d failed=%d notRun=%d\n",
		summary.Total, summary.Resolved, summary.NeedsMapping, summary.Failed, summary.NotRun)
	if env.settings.DebugArtifacts {
		writeCheckDebug(env.settings, rows)
	}

	return finishApply(cmd, env, "update", startedAt, batch.Results)
}
