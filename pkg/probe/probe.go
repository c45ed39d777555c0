// Package probe fetches candidate content for every resolved skill into
// private staging directories, with bounded parallelism.
//
// Probing is read-only with respect to the installed tree. Each operation
// gets its own staging directory and its own timeout; a failure is recorded
// on that skill alone.
package probe

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/fetch"
	"github.com/femon07/codex-skill-updater/pkg/strategy"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 120 * time.Second

// Result is the probe outcome for one skill.
type Result struct {
	strategy.Decision

	// Status is one of the constants.Probe* values.
	Status string

	// StagingPath is the staged skill directory when Status is Resolved.
	StagingPath string

	// Err is the failure for ProbeFailed, the strategy error for
	// NeedsMapping, or the reason a probe never ran.
	Err error

	Duration time.Duration
}

// Options configure a probe run.
type Options struct {
	// Jobs is clamped to [1, constants.MaxJobs]; zero uses the default and
	// FailFast forces 1.
	Jobs int

	// FailFast stops launching new probes after the first failure.
	FailFast bool

	// Timeout bounds each probe; zero uses DefaultTimeout.
	Timeout time.Duration

	// StagingRoot is the parent of the per-run staging directory. Empty
	// uses the system temp directory.
	StagingRoot string
}

// Prober runs probes through a Fetcher.
type Prober struct {
	Fetcher fetch.Fetcher
	Options Options

	// OnResult, when set, is called once per package as its result is
	// recorded. It may be called concurrently.
	OnResult func(Result)
}

// Batch holds the results of one run and owns its staging directory.
type Batch struct {
	// Dir is <StagingRoot>/<run id>.
	Dir string

	// Results are sorted by name.
	Results []Result
}

// Cleanup removes the run's staging directory.
func (b *Batch) Cleanup() error {
	if b == nil || b.Dir == "" {
		return nil
	}
	return os.RemoveAll(b.Dir)
}

// Lookup returns the result for name.
func (b *Batch) Lookup(name string) (Result, bool) {
	i := sort.Search(len(b.Results), func(i int) bool { return b.Results[i].Name >= name })
	if i < len(b.Results) && b.Results[i].Name == name {
		return b.Results[i], true
	}
	return Result{}, false
}

// Run probes every decision.
//
// It performs the following operations:
//   - Creates a run staging directory
//   - Marks ManualSourceMapRequired decisions NeedsMapping without fetching
//   - Launches the rest in name order through an errgroup limited to Jobs
//   - Under FailFast, probes not yet started after a failure become NotRun
//   - Returns results sorted by name, independent of completion order
//
// Parameters:
//   - ctx: cancelling ctx stops new probes; running ones see it through the fetcher
//   - decisions: output of strategy.Resolve
//
// Returns:
//   - *Batch: results and staging directory; call Cleanup when done
//   - error: only when the staging directory cannot be created
func (p *Prober) Run(ctx context.Context, decisions []strategy.Decision) (*Batch, error) {
	log := verbose.Logger("probe")
	done := verbose.Operation(log, "probe")
	defer done()

	jobs := p.Options.Jobs
	if jobs == 0 {
		jobs = constants.DefaultJobs
	}
	jobs = config.ClampJobs(jobs, p.Options.FailFast)
	timeout := p.Options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dir, err := makeRunDir(p.Options.StagingRoot)
	if err != nil {
		return nil, err
	}

	sorted := make([]strategy.Decision, len(decisions))
	copy(sorted, decisions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	results := make(map[string]Result, len(sorted))
	var mu sync.Mutex
	record := func(r Result) {
		mu.Lock()
		results[r.Name] = r
		mu.Unlock()
		if p.OnResult != nil {
			p.OnResult(r)
		}
	}

	var failed atomic.Bool
	g := new(errgroup.Group)
	g.SetLimit(jobs)

	log.Debug().Int("jobs", jobs).Int("packages", len(sorted)).Dur("timeout", timeout).Msg("probing")

	for _, d := range sorted {
		if d.Strategy == constants.StrategyManualSourceMapRequired || d.Source == nil {
			record(Result{Decision: d, Status: constants.ProbeNeedsMapping, Err: d.Err})
			continue
		}

		d := d
		g.Go(func() error {
			if p.Options.FailFast && failed.Load() {
				record(notRun(d, fmt.Errorf("not started after an earlier probe failed")))
				return nil
			}
			if err := ctx.Err(); err != nil {
				record(notRun(d, err))
				return nil
			}

			r := p.probeOne(ctx, d, filepath.Join(dir, d.Name), timeout)
			if r.Status == constants.ProbeFailed {
				failed.Store(true)
			}
			record(r)
			return nil
		})
	}
	_ = g.Wait()

	batch := &Batch{Dir: dir, Results: make([]Result, 0, len(sorted))}
	for _, d := range sorted {
		batch.Results = append(batch.Results, results[d.Name])
	}
	return batch, nil
}

func notRun(d strategy.Decision, err error) Result {
	return Result{Decision: d, Status: constants.ProbeNotRun, Err: err}
}

// probeOne fetches one skill under its own timeout.
func (p *Prober) probeOne(parent context.Context, d strategy.Decision, dest string, timeout time.Duration) Result {
	log := verbose.Logger("probe")
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	r := Result{Decision: d}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		r.Status = constants.ProbeFailed
		r.Err = errors.NewProbeError(d.Name, errors.ProbeKindUnknown, err)
		return r
	}

	staged, err := p.Fetcher.Fetch(ctx, d.Name, d.Source, dest)
	r.Duration = time.Since(start)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && !hasManifest(staged) {
		err = errors.NewProbeError(d.Name, errors.ProbeKindInvalid, fmt.Errorf("staged content has no %s", constants.SkillManifest))
	}
	if err != nil {
		r.Status = constants.ProbeFailed
		r.Err = asProbeError(ctx, d.Name, err)
		_ = os.RemoveAll(dest)
		log.Debug().Str("package", d.Name).Dur("duration", r.Duration).Err(r.Err).Msg("probe failed")
		return r
	}

	r.Status = constants.ProbeResolved
	r.StagingPath = staged
	log.Debug().Str("package", d.Name).Dur("duration", r.Duration).Str("staged", staged).Msg("resolved")
	return r
}

// asProbeError makes sure err is a *errors.ProbeError, classifying a
// deadline as a timeout.
func asProbeError(ctx context.Context, name string, err error) error {
	if pe, ok := errors.IsProbeError(err); ok {
		if pe.Kind != errors.ProbeKindTimeout && stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.NewProbeError(name, errors.ProbeKindTimeout, pe.Err)
		}
		return err
	}
	kind := errors.ProbeKindUnknown
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = errors.ProbeKindTimeout
	}
	return errors.NewProbeError(name, kind, err)
}

func makeRunDir(root string) (string, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging root %s: %w", root, err)
	}
	dir, err := os.MkdirTemp(root, "run-"+time.Now().Format("20060102-150405")+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return dir, nil
}

func hasManifest(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, constants.SkillManifest))
	return err == nil && info.Mode().IsRegular()
}
