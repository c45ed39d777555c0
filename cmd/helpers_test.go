package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/fetch"
	"github.com/femon07/codex-skill-updater/pkg/preflight"
	"github.com/femon07/codex-skill-updater/pkg/testutil"
)

// fakeFetcher stages canned content per skill name.
type fakeFetcher struct {
	mu      sync.Mutex
	content map[string]map[string]string
	fail    map[string]error
	calls   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{content: map[string]map[string]string{}, fail: map[string]error{}}
}

// Fetch writes the canned files under dest/name.
func (f *fakeFetcher) Fetch(ctx context.Context, name string, src *fetch.Source, dest string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	files, ok := f.content[name]
	failErr := f.fail[name]
	f.mu.Unlock()

	if failErr != nil {
		return "", failErr
	}
	if !ok {
		return "", errors.NewProbeError(name, errors.ProbeKindNotFound, fmt.Errorf("no upstream content for %s", name))
	}
	dir := filepath.Join(dest, name)
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (f *fakeFetcher) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// cmdEnv is the sandbox one command test runs in.
type cmdEnv struct {
	home     string
	skills   string
	settings *config.Settings
	fetcher  *fakeFetcher
}

// setupCmd stubs every seam of the cmd package and resets all flags.
//
// Settings are rebuilt from env.settings on every load, so a test may change
// env.settings before running a command.
func setupCmd(t *testing.T) *cmdEnv {
	t.Helper()

	home := t.TempDir()
	env := &cmdEnv{
		home:     home,
		skills:   filepath.Join(home, constants.SkillsDir),
		settings: testutil.NewSettings(home).WithJobs(2).Build(),
		fetcher:  newFakeFetcher(),
	}
	require.NoError(t, os.MkdirAll(env.skills, 0o755))

	oldLoad := loadSettingsFunc
	oldFetcher := newFetcherFunc
	oldNow := nowFunc
	oldStdin := stdinFunc
	oldProgress := progressWriter
	oldExit := exitFunc
	oldErrWriter := errWriter
	oldPreflight := preflightFunc

	loadSettingsFunc = func(string) (*config.Settings, error) {
		s := *env.settings
		return &s, nil
	}
	newFetcherFunc = func(context.Context, *config.Settings) fetch.Fetcher { return env.fetcher }
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	progressWriter = io.Discard
	preflightFunc = func(...string) *preflight.ValidateResult { return &preflight.ValidateResult{} }

	resetFlags()
	t.Cleanup(func() {
		loadSettingsFunc = oldLoad
		newFetcherFunc = oldFetcher
		nowFunc = oldNow
		stdinFunc = oldStdin
		progressWriter = oldProgress
		exitFunc = oldExit
		errWriter = oldErrWriter
		preflightFunc = oldPreflight
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return env
}

// resetFlags restores every flag of every command to its default.
func resetFlags() {
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := ExecuteTest()
	return stdout.String(), stderr.String(), err
}

// remoteSkill installs a skill with installer metadata and returns its directory.
func (e *cmdEnv) remoteSkill(t *testing.T, name, body string) string {
	t.Helper()
	dir := testutil.WriteSkill(t, e.skills, name, map[string]string{constants.SkillManifest: body})
	testutil.WriteMeta(t, dir, "acme/skills", "skills/"+name, "")
	return dir
}

// upstream sets the content the fake fetcher stages for name.
func (e *cmdEnv) upstream(name string, files map[string]string) {
	e.fetcher.mu.Lock()
	defer e.fetcher.mu.Unlock()
	e.fetcher.content[name] = files
}

// installedFiles returns what a remote skill looks like after install,
// metadata included.
func installedFiles(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files[entry.Name()] = testutil.ReadFile(t, filepath.Join(dir, entry.Name()))
	}
	return files
}

// ndjsonRecords decodes ndjson output into generic records.
func ndjsonRecords(t *testing.T, out string) []map[string]any {
	t.Helper()
	var records []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		records = append(records, rec)
	}
	return records
}

// applyOutput is the JSON apply report.
type applyOutput struct {
	Timestamp string `json:"timestamp"`
	DryRun    bool   `json:"dryRun"`
	Packages  []struct {
		Name       string `json:"name"`
		Strategy   string `json:"strategy"`
		DiffResult string `json:"diffResult"`
		Outcome    string `json:"outcome"`
		Reason     string `json:"reason"`
		BackupPath string `json:"backupPath"`
		Error      string `json:"error"`
	} `json:"packages"`
	Summary map[string]int `json:"summary"`
}

func decodeApply(t *testing.T, out string) applyOutput {
	t.Helper()
	var report applyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	return report
}

func (r applyOutput) outcomes() map[string]string {
	m := make(map[string]string, len(r.Packages))
	for _, p := range r.Packages {
		m[p.Name] = p.Outcome
	}
	return m
}
