package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/femon07/codex-skill-updater/pkg/backup"
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/ledger"
	"github.com/femon07/codex-skill-updater/pkg/output"
)

var (
	backupsHistoryLimitFlag   int
	backupsHistoryPackageFlag string
	backupsHistoryRunFlag     int64
	backupsFormatFlag         string
)

var openExistingLedgerFunc = ledger.OpenExisting

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect backups and run history",
	Long: `Backups are stored under $CODEX_HOME/skill-backups/<timestamp>/<skill>. After a
run in which every skill succeeded, the two newest generations of each applied
skill are kept.`,
}

var backupsListCmd = &cobra.Command{
	Use:   "list [skill]",
	Short: "List backup generations",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupsList,
}

var backupsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded apply runs",
	Args:  cobra.NoArgs,
	RunE:  runBackupsHistory,
}

func init() {
	backupsCmd.PersistentFlags().StringVarP(&backupsFormatFlag, "format", "o", string(output.FormatTable), "Output format: table, json")

	backupsHistoryCmd.Flags().IntVarP(&backupsHistoryLimitFlag, "limit", "n", 20, "Maximum number of runs or entries")
	backupsHistoryCmd.Flags().StringVarP(&backupsHistoryPackageFlag, "package", "p", "", "Show the outcomes of one skill across runs")
	backupsHistoryCmd.Flags().Int64Var(&backupsHistoryRunFlag, "run", 0, "Show the outcomes of one run")

	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsHistoryCmd)
}

var backupsFormats = []output.Format{output.FormatTable, output.FormatJSON}

// runBackupsList prints backup generations grouped by skill, oldest first.
func runBackupsList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(backupsFormatFlag, backupsFormats)
	if err != nil {
		return errors.NewExitError(errors.ExitConfigError, err)
	}
	s, err := loadSettings()
	if err != nil {
		return err
	}

	store := backup.New(s.BackupRoot())
	var gens []backup.Generation
	if len(args) == 1 {
		gens, err = store.ListPackage(args[0])
	} else {
		gens, err = store.List()
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == output.FormatJSON {
		if gens == nil {
			gens = []backup.Generation{}
		}
		return output.NewFormatter(format, w).WriteJSONIndent(gens)
	}
	if len(gens) == 0 {
		_, _ = fmt.Fprintf(w, "No backups under %s.\n", s.BackupRoot())
		return nil
	}

	table := output.NewTable().AddColumn("SKILL").AddColumn("TIMESTAMP").AddColumn("PATH")
	for _, g := range gens {
		table.UpdateWidths(g.Package, g.Timestamp, g.Path)
	}
	table.Fprint(w)
	for _, g := range gens {
		_, _ = fmt.Fprintln(w, table.FormatRow(g.Package, g.Timestamp, g.Path))
	}
	return nil
}

// runBackupsHistory prints runs from the ledger, the entries of one run, or
// the history of one skill.
func runBackupsHistory(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(backupsFormatFlag, backupsFormats)
	if err != nil {
		return errors.NewExitError(errors.ExitConfigError, err)
	}
	s, err := loadSettings()
	if err != nil {
		return err
	}

	l, err := openExistingLedgerFunc(s.Ledger.Path)
	if err != nil {
		if stderrors.Is(err, ledger.ErrNotInitialized) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
			return nil
		}
		return err
	}
	defer func() { _ = l.Close() }()

	w := cmd.OutOrStdout()
	switch {
	case backupsHistoryRunFlag > 0:
		run, err := l.GetRun(backupsHistoryRunFlag)
		if err != nil {
			return err
		}
		entries, err := l.GetEntries(run.ID)
		if err != nil {
			return err
		}
		if format == output.FormatJSON {
			return output.NewFormatter(format, w).WriteJSONIndent(map[string]interface{}{"run": run, "packages": entries})
		}
		_, _ = fmt.Fprintf(w, "Run %d (%s, %s, exit %d)\n", run.ID, run.Command, run.Timestamp, run.ExitCode)
		printEntries(w, entries, false)

	case backupsHistoryPackageFlag != "":
		entries, err := l.PackageHistory(backupsHistoryPackageFlag, backupsHistoryLimitFlag)
		if err != nil {
			return err
		}
		if format == output.FormatJSON {
			return output.NewFormatter(format, w).WriteJSONIndent(entries)
		}
		printEntries(w, entries, true)

	default:
		runs, err := l.ListRuns(backupsHistoryLimitFlag)
		if err != nil {
			return err
		}
		if format == output.FormatJSON {
			return output.NewFormatter(format, w).WriteJSONIndent(runs)
		}
		printRuns(w, runs)
	}
	return nil
}

func printRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	table := output.NewTable().AddColumn("ID").AddColumn("STARTED").AddColumn("COMMAND").
		AddColumn("TOTAL").AddColumn("APPLIED").AddColumn("FAILED").AddColumn("EXIT")
	cells := make([][]string, 0, len(runs))
	for _, r := range runs {
		command := r.Command
		if r.DryRun {
			command += " (dry-run)"
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			command,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Applied),
			strconv.Itoa(r.Failures),
			strconv.Itoa(r.ExitCode),
		}
		table.UpdateWidths(row...)
		cells = append(cells, row)
	}
	table.Fprint(w)
	for _, row := range cells {
		_, _ = fmt.Fprintln(w, table.FormatRow(row...))
	}
}

func printEntries(w io.Writer, entries []ledger.Entry, withTimestamp bool) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No outcomes recorded.")
		return
	}
	table := output.NewTable()
	if withTimestamp {
		table.AddColumn("RUN")
	}
	table.AddColumn("NAME").AddColumn("OUTCOME").AddColumn("REASON").AddColumn("BACKUP")
	cells := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{e.Name, e.Outcome, orNA(e.Reason), orNA(e.BackupPath)}
		if withTimestamp {
			row = append([]string{e.Timestamp}, row...)
		}
		table.UpdateWidths(row...)
		cells = append(cells, row)
	}
	table.Fprint(w)
	for _, row := range cells {
		_, _ = fmt.Fprintln(w, table.FormatRow(row...))
	}
}

func orNA(v string) string {
	if v == "" {
		return constants.PlaceholderNA
	}
	return v
}
