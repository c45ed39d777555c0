package probe

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/fetch"
	"github.com/femon07/codex-skill-updater/pkg/strategy"
)

// mockFetcher is a testify mock of fetch.Fetcher.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
	args := m.Called(ctx, name, src, dest)
	return args.String(0), args.Error(1)
}

// funcFetcher adapts a function to fetch.Fetcher.
type funcFetcher func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error)

func (f funcFetcher) Fetch(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
	return f(ctx, name, src, dest)
}

// stage writes a minimal skill into dest/name.
func stage(dest, name string) (string, error) {
	dir := filepath.Join(dest, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("# "+name), 0o644)
}

func remote(name string) strategy.Decision {
	return strategy.Decision{
		Name:     name,
		Strategy: constants.StrategyUpdateViaRemote,
		Source:   &fetch.Source{Repo: "acme/skills", Path: name, Ref: "main"},
	}
}

func manual(name string) strategy.Decision {
	return strategy.Decision{
		Name:     name,
		Strategy: constants.StrategyManualSourceMapRequired,
		Err:      &errors.StrategyUnresolvedError{Package: name},
	}
}

func statuses(b *Batch) map[string]string {
	out := map[string]string{}
	for _, r := range b.Results {
		out[r.Name] = r.Status
	}
	return out
}

// TestRunBasic tests the common path with a mocked fetcher.
//
// It verifies:
//   - Manual decisions become NeedsMapping without a fetch
//   - Resolved probes point at staged content inside the run directory
//   - Fetch errors become ProbeFailed with a ProbeError
//   - Cleanup removes staging
func TestRunBasic(t *testing.T) {
	m := new(mockFetcher)
	m.On("Fetch", mock.Anything, "bar", mock.Anything, mock.Anything).
		Return("", nil).
		Run(func(args mock.Arguments) {
			_, _ = stage(args.String(3), "bar")
		}).Once()
	m.On("Fetch", mock.Anything, "broken", mock.Anything, mock.Anything).
		Return("", errors.NewProbeError("broken", errors.ProbeKindNotFound, stderrors.New("404"))).Once()

	// The mock cannot return the path it builds, so wrap it.
	f := funcFetcher(func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
		_, err := m.Fetch(ctx, name, src, dest)
		if err != nil {
			return "", err
		}
		return filepath.Join(dest, name), nil
	})

	p := &Prober{Fetcher: f, Options: Options{Jobs: 4, StagingRoot: t.TempDir()}}
	batch, err := p.Run(context.Background(), []strategy.Decision{remote("bar"), manual("foo"), remote("broken")})
	require.NoError(t, err)

	require.Len(t, batch.Results, 3)
	assert.Equal(t, "bar", batch.Results[0].Name)
	assert.Equal(t, "broken", batch.Results[1].Name)
	assert.Equal(t, "foo", batch.Results[2].Name)

	bar, ok := batch.Lookup("bar")
	require.True(t, ok)
	assert.Equal(t, constants.ProbeResolved, bar.Status)
	assert.FileExists(t, filepath.Join(bar.StagingPath, "SKILL.md"))
	assert.Equal(t, filepath.Join(batch.Dir, "bar", "bar"), bar.StagingPath)

	foo, _ := batch.Lookup("foo")
	assert.Equal(t, constants.ProbeNeedsMapping, foo.Status)
	var unresolved *errors.StrategyUnresolvedError
	assert.ErrorAs(t, foo.Err, &unresolved)

	broken, _ := batch.Lookup("broken")
	assert.Equal(t, constants.ProbeFailed, broken.Status)
	pe, ok := errors.IsProbeError(broken.Err)
	require.True(t, ok)
	assert.Equal(t, errors.ProbeKindNotFound, pe.Kind)
	assert.NoDirExists(t, filepath.Join(batch.Dir, "broken"))

	_, ok = batch.Lookup("missing")
	assert.False(t, ok)

	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Fetch", mock.Anything, "foo", mock.Anything, mock.Anything)

	require.NoError(t, batch.Cleanup())
	assert.NoDirExists(t, batch.Dir)
}

// TestRunInvalidContent tests that staged content without SKILL.md fails.
func TestRunInvalidContent(t *testing.T) {
	f := funcFetcher(func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
		return dest, nil
	})
	p := &Prober{Fetcher: f, Options: Options{StagingRoot: t.TempDir()}}

	batch, err := p.Run(context.Background(), []strategy.Decision{remote("empty")})
	require.NoError(t, err)
	defer func() { _ = batch.Cleanup() }()

	pe, ok := errors.IsProbeError(batch.Results[0].Err)
	require.True(t, ok)
	assert.Equal(t, errors.ProbeKindInvalid, pe.Kind)
}

// TestRunIsolation tests that a slow failing probe does not block or fail
// another probe.
func TestRunIsolation(t *testing.T) {
	f := funcFetcher(func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
		if name == "a-slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return stage(dest, name)
	})

	p := &Prober{Fetcher: f, Options: Options{Jobs: 2, Timeout: 100 * time.Millisecond, StagingRoot: t.TempDir()}}
	batch, err := p.Run(context.Background(), []strategy.Decision{remote("a-slow"), remote("b-fast")})
	require.NoError(t, err)
	defer func() { _ = batch.Cleanup() }()

	assert.Equal(t, map[string]string{
		"a-slow": constants.ProbeFailed,
		"b-fast": constants.ProbeResolved,
	}, statuses(batch))

	slow, _ := batch.Lookup("a-slow")
	pe, ok := errors.IsProbeError(slow.Err)
	require.True(t, ok)
	assert.Equal(t, errors.ProbeKindTimeout, pe.Kind)
}

// TestRunTimeoutIgnoredByFetcher tests that a probe finishing after its
// deadline still counts as timed out.
func TestRunTimeoutIgnoredByFetcher(t *testing.T) {
	f := funcFetcher(func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
		time.Sleep(80 * time.Millisecond)
		return stage(dest, name)
	})
	p := &Prober{Fetcher: f, Options: Options{Timeout: 20 * time.Millisecond, StagingRoot: t.TempDir()}}

	batch, err := p.Run(context.Background(), []strategy.Decision{remote("late")})
	require.NoError(t, err)
	defer func() { _ = batch.Cleanup() }()

	assert.Equal(t, constants.ProbeFailed, batch.Results[0].Status)
	pe, ok := errors.IsProbeError(batch.Results[0].Err)
	require.True(t, ok)
	assert.Equal(t, errors.ProbeKindTimeout, pe.Kind)
}

// TestRunDeterminism tests that jobs=1 and jobs=8 give the same report.
func TestRunDeterminism(t *testing.T) {
	var decisions []strategy.Decision
	for _, name := range []string{"h", "c", "a", "g", "e", "b", "f", "d", "j", "i"} {
		decisions = append(decisions, remote(name))
	}
	decisions = append(decisions, manual("zz"))

	f := funcFetcher(func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
		time.Sleep(time.Duration(int(name[0])%3) * 5 * time.Millisecond)
		if name == "e" {
			return "", errors.NewProbeError(name, errors.ProbeKindAuth, nil)
		}
		return stage(dest, name)
	})

	run := func(jobs int) []string {
		p := &Prober{Fetcher: f, Options: Options{Jobs: jobs, StagingRoot: t.TempDir()}}
		batch, err := p.Run(context.Background(), decisions)
		require.NoError(t, err)
		defer func() { _ = batch.Cleanup() }()
		var rows []string
		for _, r := range batch.Results {
			rows = append(rows, r.Name+"="+r.Status)
		}
		return rows
	}

	one := run(1)
	eight := run(8)
	assert.Equal(t, one, eight)
	assert.Equal(t, "a="+constants.ProbeResolved, one[0])
	assert.Contains(t, one, "e="+constants.ProbeFailed)
	assert.Equal(t, "zz="+constants.ProbeNeedsMapping, one[len(one)-1])
}

// TestRunBoundedParallelism tests that no more than Jobs probes run at once.
func TestRunBoundedParallelism(t *testing.T) {
	var active, peak atomic.Int32
	f := funcFetcher(func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return stage(dest, name)
	})

	var decisions []strategy.Decision
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		decisions = append(decisions, remote(name))
	}

	p := &Prober{Fetcher: f, Options: Options{Jobs: 50, StagingRoot: t.TempDir()}}
	batch, err := p.Run(context.Background(), decisions)
	require.NoError(t, err)
	defer func() { _ = batch.Cleanup() }()

	assert.LessOrEqual(t, peak.Load(), int32(constants.MaxJobs))
	for _, r := range batch.Results {
		assert.Equal(t, constants.ProbeResolved, r.Status, r.Name)
	}
}

// TestRunFailFast tests that no probe starts after the first failure.
func TestRunFailFast(t *testing.T) {
	var mu sync.Mutex
	var called []string
	f := funcFetcher(func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
		mu.Lock()
		called = append(called, name)
		mu.Unlock()
		if name == "b" {
			return "", errors.NewProbeError(name, errors.ProbeKindNetwork, nil)
		}
		return stage(dest, name)
	})

	p := &Prober{Fetcher: f, Options: Options{Jobs: 8, FailFast: true, StagingRoot: t.TempDir()}}
	batch, err := p.Run(context.Background(), []strategy.Decision{remote("d"), remote("c"), remote("b"), remote("a"), manual("m")})
	require.NoError(t, err)
	defer func() { _ = batch.Cleanup() }()

	assert.Equal(t, []string{"a", "b"}, called)
	assert.Equal(t, map[string]string{
		"a": constants.ProbeResolved,
		"b": constants.ProbeFailed,
		"c": constants.ProbeNotRun,
		"d": constants.ProbeNotRun,
		"m": constants.ProbeNeedsMapping,
	}, statuses(batch))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := funcFetcher(func(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
		t.Errorf("fetch called for %s after cancel", name)
		return "", nil
	})
	p := &Prober{Fetcher: f, Options: Options{StagingRoot: t.TempDir()}}
	batch, err := p.Run(ctx, []strategy.Decision{remote("a")})
	require.NoError(t, err)
	defer func() { _ = batch.Cleanup() }()

	assert.Equal(t, constants.ProbeNotRun, batch.Results[0].Status)
	assert.ErrorIs(t, batch.Results[0].Err, context.Canceled)
}

func TestRunStagingRootError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	p := &Prober{Fetcher: funcFetcher(nil), Options: Options{StagingRoot: filepath.Join(file, "sub")}}
	_, err := p.Run(context.Background(), nil)
	assert.Error(t, err)
}
