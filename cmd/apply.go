package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/output"
	"github.com/femon07/codex-skill-updater/pkg/probe"
)

var (
	applyFlags         runFlags
	applyDryRunFlag    bool
	applyCheckFileFlag string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply updates to installed skills",
	Long: `Probes every selected skill and replaces the installed copy when the staged
content differs. Each replaced skill is backed up first and restored if the
replacement cannot be verified. Skills are applied one at a time in name order.

With --check-file the run is limited to the skills listed in a previous check
report (ndjson or tsv, "-" for stdin); skills whose probe failed there are
reported as failed without being probed again.`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	addRunFlags(applyCmd, &applyFlags, output.ApplyFormats)
	applyCmd.Flags().BoolVar(&applyDryRunFlag, "dry-run", false, "Stage and compare without writing to the installed tree")
	applyCmd.Flags().StringVar(&applyCheckFileFlag, "check-file", "", "Check report to apply (path, or - for stdin)")
}

// runApply executes the full pipeline and prints the apply report.
//
// Parameters:
//   - cmd: Cobra command instance
//   - args: unused
//
// Returns:
//   - error: the report's exit error (see update.Report.Err), or a
//     configuration error
func runApply(cmd *cobra.Command, args []string) error {
	env, err := prepareRun(cmd, &applyFlags, output.ApplyFormats, func(s *config.Settings) string { return s.ApplyFormat })
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dry-run") {
		env.settings.DryRun = applyDryRunFlag
	}

	ctx := commandContext(cmd)
	startedAt := nowFunc()

	var (
		batch   *probe.Batch
		results []probe.Result
	)
	if applyCheckFileFlag != "" {
		rows, err := readCheckRows(applyCheckFileFlag)
		if err != nil {
			return err
		}
		batch, results, err = probeFromCheckRows(ctx, env, rows)
		if err != nil {
			return err
		}
	} else {
		batch, err = checkSkills(ctx, env)
		if err != nil {
			return err
		}
		results = batch.Results
	}
	defer cleanupBatch(batch)

	return finishApply(cmd, env, "apply", startedAt, results)
}

// finishApply applies results, writes the report and records the run.
func finishApply(cmd *cobra.Command, env *runEnv, command string, startedAt time.Time, results []probe.Result) error {
	s := env.settings
	report := applyResults(commandContext(cmd), s, s.DryRun, results)

	styler := output.NewStyler(cmd.OutOrStdout(), noColorFlag)
	if err := output.WriteApplyReport(cmd.OutOrStdout(), env.format, report, styler); err != nil {
		return err
	}
	if s.DebugArtifacts {
		writeReportDebug(s, report)
	}
	printUnsupported(cmd.ErrOrStderr(), results)

	runErr := report.Err()
	recordRun(s, command, startedAt, report, errors.GetExitCode(runErr))
	return runErr
}
