package cmd

import (
	"github.com/spf13/cobra"

	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/output"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

var checkFlags runFlags

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which installed skills can be updated",
	Long: `Resolves an update strategy for every installed skill and stages its
upstream content without touching the installed tree. The report lists each
skill with its strategy and probe status, followed by a summary record.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	addRunFlags(checkCmd, &checkFlags, output.CheckFormats)
}

// runCheck executes the read-only half of the pipeline and prints the report.
//
// Parameters:
//   - cmd: Cobra command instance
//   - args: unused
//
// Returns:
//   - error: ExitConfigError for configuration problems; ExitPartialFailure
//     or ExitFailure when some or all probes failed
func runCheck(cmd *cobra.Command, args []string) error {
	env, err := prepareRun(cmd, &checkFlags, output.CheckFormats, func(s *config.Settings) string { return s.CheckFormat })
	if err != nil {
		return err
	}

	batch, err := checkSkills(commandContext(cmd), env)
	if err != nil {
		return err
	}
	defer cleanupBatch(batch)

	rows := output.CheckRowsFromResults(batch.Results)
	styler := output.NewStyler(cmd.OutOrStdout(), noColorFlag)
	if err := output.WriteCheckReport(cmd.OutOrStdout(), env.format, rows, styler); err != nil {
		return err
	}
	if env.settings.DebugArtifacts {
		writeCheckDebug(env.settings, rows)
	}
	printUnsupported(cmd.ErrOrStderr(), batch.Results)

	return checkExitError(output.SummarizeCheck(rows))
}

// checkExitError maps probe failures to an exit code. Skills that need a
// source map entry are not failures.
func checkExitError(summary output.CheckSummary) error {
	if summary.Failed == 0 {
		return nil
	}
	code := errors.ExitPartialFailure
	if summary.Failed == summary.Total {
		code = errors.ExitFailure
	}
	verbose.Infof("Exit code %d: %d of %d probes failed", code, summary.Failed, summary.Total)
	return errors.NewExitErrorf(code, "%d of %d skills failed the probe", summary.Failed, summary.Total)
}
