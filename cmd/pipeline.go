package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/femon07/codex-skill-updater/pkg/backup"
	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/fetch"
	"github.com/femon07/codex-skill-updater/pkg/filtering"
	"github.com/femon07/codex-skill-updater/pkg/inventory"
	"github.com/femon07/codex-skill-updater/pkg/ledger"
	"github.com/femon07/codex-skill-updater/pkg/output"
	"github.com/femon07/codex-skill-updater/pkg/preflight"
	"github.com/femon07/codex-skill-updater/pkg/probe"
	"github.com/femon07/codex-skill-updater/pkg/sourcemap"
	"github.com/femon07/codex-skill-updater/pkg/strategy"
	"github.com/femon07/codex-skill-updater/pkg/supervision"
	"github.com/femon07/codex-skill-updater/pkg/update"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// Testable function variables
var (
	loadSettingsFunc                = config.Load
	newFetcherFunc                  = newFetcher
	openLedgerFunc                  = ledger.Open
	preflightFunc                   = preflight.ValidateCommands
	nowFunc                         = time.Now
	stdinFunc      func() io.Reader = func() io.Reader { return os.Stdin }
	progressWriter io.Writer        = os.Stderr
)

// runFlags are the flags shared by check, apply and update.
type runFlags struct {
	jobs           int
	failFast       bool
	allowManualMap bool
	sourceMap      string
	sourceMapLocal string
	strategy       string
	packages       string
	format         string
	debugArtifacts bool
	probeTimeout   time.Duration
}

// addRunFlags registers the shared flags on cmd.
func addRunFlags(cmd *cobra.Command, f *runFlags, formats []output.Format) {
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", constants.DefaultJobs, fmt.Sprintf("Parallel probes (1-%d)", constants.MaxJobs))
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "Stop scheduling after the first failure (forces --jobs 1)")
	cmd.Flags().BoolVar(&f.allowManualMap, "allow-manual-map", false, "Resolve unmapped skills through the source maps")
	cmd.Flags().StringVar(&f.sourceMap, "source-map", "", "Shareable source map path")
	cmd.Flags().StringVar(&f.sourceMapLocal, "source-map-local", "", "Private override source map path")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", filtering.FilterAll, "Filter by strategy (comma-separated)")
	cmd.Flags().StringVarP(&f.packages, "package", "p", "", "Filter by skill name (comma-separated, supports prefix*, globs, ~regex, !negation)")
	cmd.Flags().StringVarP(&f.format, "format", "o", "", fmt.Sprintf("Output format: %s", joinFormats(formats)))
	cmd.Flags().BoolVar(&f.debugArtifacts, "debug-artifacts", false, "Write debug reports with fixed names to the debug directory")
	cmd.Flags().DurationVar(&f.probeTimeout, "probe-timeout", 0, "Timeout for a single probe (default from config)")
}

func joinFormats(formats []output.Format) string {
	s := ""
	for i, f := range formats {
		if i > 0 {
			s += ", "
		}
		s += string(f)
	}
	return s
}

// runEnv is the prepared state of one check, apply or update invocation.
type runEnv struct {
	settings *config.Settings
	filter   *filtering.Filter
	format   output.Format
}

// prepareRun loads settings and applies the command's flags.
//
// It performs the following operations:
//   - Loads settings (defaults, config file, environment)
//   - Overrides settings with flags the user set explicitly
//   - Validates the result and compiles the filters
//   - Resolves the output format from the flag or the configured default
//
// Returns:
//   - *runEnv: prepared state
//   - error: ExitConfigError for any configuration problem
func prepareRun(cmd *cobra.Command, f *runFlags, formats []output.Format, defaultFormat func(*config.Settings) string) (*runEnv, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("jobs") {
		s.Jobs = config.ClampJobs(f.jobs, false)
	}
	if flags.Changed("fail-fast") {
		s.FailFast = f.failFast
	}
	if flags.Changed("allow-manual-map") {
		s.AllowManualMap = f.allowManualMap
	}
	if f.sourceMap != "" {
		s.SourceMap = f.sourceMap
	}
	if f.sourceMapLocal != "" {
		s.SourceMapLocal = f.sourceMapLocal
	}
	if flags.Changed("debug-artifacts") {
		s.DebugArtifacts = f.debugArtifacts
	}
	if f.probeTimeout > 0 {
		s.ProbeTimeout = f.probeTimeout
	}

	if err := s.Validate(); err != nil {
		verbose.Infof("Exit code %d (config error): %v", errors.ExitConfigError, err)
		return nil, errors.NewExitError(errors.ExitConfigError, err)
	}

	filter, err := filtering.FromFlags(f.strategy, f.packages).Compile()
	if err != nil {
		return nil, errors.NewExitError(errors.ExitConfigError, err)
	}

	name := f.format
	if name == "" {
		name = defaultFormat(s)
	}
	format, err := output.ParseFormat(name, formats)
	if err != nil {
		return nil, errors.NewExitError(errors.ExitConfigError, err)
	}

	return &runEnv{settings: s, filter: filter, format: format}, nil
}

// loadSettings loads the effective settings for --config.
func loadSettings() (*config.Settings, error) {
	s, err := loadSettingsFunc(configFlag)
	if err != nil {
		return nil, errors.NewExitError(errors.ExitConfigError, err)
	}
	return s, nil
}

// commandContext returns the command's context, or Background outside cobra.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// newFetcher builds the production fetcher: the installer command for
// remote subtrees and zip extraction for local archives.
func newFetcher(ctx context.Context, s *config.Settings) fetch.Fetcher {
	return &fetch.Router{
		Remote: &fetch.Remote{
			Command:   s.Fetch.Command,
			Token:     s.ResolveToken(ctx),
			CodexHome: s.CodexHome,
		},
		Archive: &fetch.Archive{},
	}
}

// resolveDecisions lists installed skills and decides a strategy for each.
//
// It performs the following operations:
//   - Scans the skills root
//   - Loads and merges the source maps when manual mapping is allowed
//   - Resolves strategies and applies the strategy and name filters
//
// Returns:
//   - []strategy.Decision: filtered decisions sorted by name
//   - error: ExitConfigError for a malformed source map file, ExitFailure
//     when the skills root cannot be read
func resolveDecisions(s *config.Settings, filter *filtering.Filter) ([]strategy.Decision, error) {
	skills, err := inventory.Scan(s.SkillsRoot())
	if err != nil {
		return nil, errors.NewExitError(errors.ExitFailure, err)
	}
	verbose.Debugf("Found %d installed skills under %s", len(skills), s.SkillsRoot())

	var m *sourcemap.Map
	if s.AllowManualMap {
		m, err = sourcemap.Load(s.SourceMap, s.SourceMapLocal)
		if err != nil {
			return nil, errors.NewExitError(errors.ExitConfigError, err)
		}
		for _, p := range m.Problems() {
			verbose.Warnf("%v", p)
		}
	}

	decisions := strategy.Resolve(skills, strategy.Options{
		DistRoot:       s.DistRoot(),
		AllowManualMap: s.AllowManualMap,
		Map:            m,
	})
	return filter.Decisions(decisions), nil
}

// probeDecisions stages candidate content for every decision.
//
// Returns:
//   - *probe.Batch: staging batch with one result per decision
//   - error: ExitConfigError when the installer command is missing and a
//     remote skill needs it, ExitFailure when staging cannot be created
func probeDecisions(ctx context.Context, s *config.Settings, decisions []strategy.Decision) (*probe.Batch, error) {
	if needsInstaller(decisions) {
		if result := preflightFunc(s.Fetch.Command); result.HasErrors() {
			verbose.Infof("Exit code %d (config error): installer command unavailable", errors.ExitConfigError)
			return nil, errors.NewExitErrorf(errors.ExitConfigError, "%s", result.ErrorMessage())
		}
	}

	progress := newProgress(len(decisions), "Probing skills")
	prober := &probe.Prober{
		Fetcher: newFetcherFunc(ctx, s),
		Options: probe.Options{
			Jobs:        s.Jobs,
			FailFast:    s.FailFast,
			Timeout:     s.ProbeTimeout,
			StagingRoot: s.StagingDir,
		},
		OnResult: func(probe.Result) { progress.Increment() },
	}

	batch, err := prober.Run(ctx, decisions)
	progress.Done()
	if err != nil {
		return nil, errors.NewExitError(errors.ExitFailure, fmt.Errorf("failed to create staging directory: %w", err))
	}
	return batch, nil
}

// needsInstaller reports whether any decision is fetched by the installer command.
func needsInstaller(decisions []strategy.Decision) bool {
	for _, d := range decisions {
		if d.Source != nil && !d.Source.IsArchive() {
			return true
		}
	}
	return false
}

// checkSkills runs the read-only half of the pipeline.
func checkSkills(ctx context.Context, env *runEnv) (*probe.Batch, error) {
	decisions, err := resolveDecisions(env.settings, env.filter)
	if err != nil {
		return nil, err
	}
	return probeDecisions(ctx, env.settings, decisions)
}

// cleanupBatch removes a run's staging directory.
func cleanupBatch(batch *probe.Batch) {
	if err := batch.Cleanup(); err != nil {
		verbose.Warnf("failed to remove staging directory %s: %v", batch.Dir, err)
	}
}

// applyResults runs the serial apply engine over probe results.
func applyResults(ctx context.Context, s *config.Settings, dryRun bool, results []probe.Result) *update.Report {
	log := verbose.Logger("apply")
	progress := newProgress(len(results), "Applying")
	actx := update.NewApplyContext(backup.New(s.BackupRoot())).
		WithFlags(dryRun, s.FailFast).
		WithClock(nowFunc)

	report := update.Apply(ctx, actx, results, update.ExecutionCallbacks{
		OnOutcome: func(o update.Outcome, dryRun bool) {
			progress.Increment()
			log.Debug().Str("package", o.Name).Str("outcome", o.Outcome).Str("reason", o.Reason).Bool("dry_run", dryRun).Msg("outcome")
		},
	})
	progress.Done()

	if report.PruneErr != nil {
		verbose.Warnf("failed to prune backups: %v", report.PruneErr)
	}
	for _, g := range report.Pruned {
		verbose.Debugf("Pruned backup %s", g.Path)
	}
	return report
}

// recordRun stores the report in the ledger. Ledger failures are warnings.
func recordRun(s *config.Settings, command string, startedAt time.Time, report *update.Report, exitCode int) {
	if !s.Ledger.Enabled {
		return
	}
	l, err := openLedgerFunc(s.Ledger.Path)
	if err != nil {
		verbose.Warnf("run history disabled: %v", err)
		return
	}
	defer func() { _ = l.Close() }()

	run, entries := ledger.FromReport(command, startedAt, report, exitCode)
	id, err := l.RecordRun(run, entries)
	if err != nil {
		verbose.Warnf("failed to record run: %v", err)
		return
	}
	verbose.Debugf("Recorded run %d in %s", id, s.Ledger.Path)
}

// readCheckRows reads a check report from path, or from stdin for "-".
func readCheckRows(path string) ([]output.CheckRow, error) {
	var r io.Reader
	if path == "-" {
		r = stdinFunc()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.NewExitError(errors.ExitConfigError, fmt.Errorf("check file not found: %w", err))
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	rows, err := output.ReadCheckFile(r)
	if err != nil {
		return nil, errors.NewExitError(errors.ExitConfigError, fmt.Errorf("invalid check file %s: %w", path, err))
	}
	return rows, nil
}

// probeFromCheckRows builds probe results for the skills listed in a check
// report.
//
// It performs the following operations:
//   - Resolves current decisions and keeps only skills listed in rows
//   - Turns rows whose probe failed into ProbeFailed results without fetching
//   - Probes the remaining listed skills again to stage fresh content
//
// Returns:
//   - *probe.Batch: staging batch for the re-probed skills
//   - []probe.Result: one result per listed, still installed skill, sorted by name
//   - error: as for resolveDecisions and probeDecisions
func probeFromCheckRows(ctx context.Context, env *runEnv, rows []output.CheckRow) (*probe.Batch, []probe.Result, error) {
	decisions, err := resolveDecisions(env.settings, env.filter)
	if err != nil {
		return nil, nil, err
	}

	listed := make(map[string]output.CheckRow, len(rows))
	for _, row := range rows {
		listed[row.Name] = row
	}

	var (
		results  []probe.Result
		toProbe  []strategy.Decision
		resolved = make(map[string]bool, len(decisions))
	)
	for _, d := range decisions {
		row, ok := listed[d.Name]
		if !ok {
			continue
		}
		resolved[d.Name] = true
		if row.PrecheckFailed() {
			results = append(results, probe.Result{
				Decision: d,
				Status:   constants.ProbeFailed,
				Err:      errors.NewProbeError(d.Name, errors.ProbeKindUnknown, fmt.Errorf("%s: %s", constants.ReasonPrecheckFailed, row.Note)),
			})
			continue
		}
		toProbe = append(toProbe, d)
	}
	for _, row := range rows {
		if !resolved[row.Name] && env.filter.Match(row.Name, row.Strategy) {
			verbose.Warnf("skill %s from the check file is not installed, skipping", row.Name)
		}
	}

	batch, err := probeDecisions(ctx, env.settings, toProbe)
	if err != nil {
		return nil, nil, err
	}
	results = append(results, batch.Results...)
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return batch, results, nil
}

// newProgress returns a progress line on stderr, shown only on a terminal
// and when verbose logging is off.
func newProgress(total int, message string) *output.Progress {
	p := output.NewProgress(progressWriter, total, message)
	p.SetEnabled(!verbose.IsEnabled() && isTerminal(progressWriter))
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// printUnsupported lists skills that need manual action, grouped by reason.
func printUnsupported(w io.Writer, results []probe.Result) {
	tracker := supervision.NewUnsupportedTracker()
	for _, r := range results {
		if r.Status == constants.ProbeNeedsMapping && supervision.ShouldTrack(r.Reason) {
			tracker.Add(r.Name, r.Reason)
		}
	}
	for _, msg := range tracker.Messages() {
		_, _ = fmt.Fprintln(w, msg)
	}
}

// writeCheckDebug writes the check debug artifact and logs its path.
func writeCheckDebug(s *config.Settings, rows []output.CheckRow) {
	path, err := output.WriteDebugCheck(s.DebugDir, rows)
	if err != nil {
		verbose.Warnf("%v", err)
		return
	}
	verbose.Infof("Wrote %s", path)
}

// writeReportDebug writes the apply debug artifact and logs its path.
func writeReportDebug(s *config.Settings, report *update.Report) {
	path, err := output.WriteDebugReport(s.DebugDir, report)
	if err != nil {
		verbose.Warnf("%v", err)
		return
	}
	verbose.Infof("Wrote %s", path)
}
