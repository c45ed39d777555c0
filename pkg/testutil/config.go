package testutil

import (
	"path/filepath"
	"time"

	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/constants"
)

// SettingsBuilder provides a fluent API for building test settings.
//
// Use this builder to construct Settings rooted in a temporary directory
// without loading a config file or reading the environment.
type SettingsBuilder struct {
	s config.Settings
}

// NewSettings creates a SettingsBuilder for a managed home at codexHome.
//
// Source maps, the ledger and the staging directory are placed next to the
// managed home so a test never touches the user's real directories.
//
// Parameters:
//   - codexHome: Managed home, usually t.TempDir()
//
// Returns:
//   - *SettingsBuilder: New builder instance ready for method chaining
func NewSettings(codexHome string) *SettingsBuilder {
	return &SettingsBuilder{
		s: config.Settings{
			CodexHome:      codexHome,
			SourceMap:      filepath.Join(codexHome, constants.SourceMapFile),
			SourceMapLocal: filepath.Join(codexHome, constants.SourceMapLocalFile),
			Jobs:           constants.DefaultJobs,
			ProbeTimeout:   30 * time.Second,
			StagingDir:     filepath.Join(codexHome, "staging"),
			CheckFormat:    "ndjson",
			ApplyFormat:    "json",
			DebugDir:       codexHome,
			Fetch:          config.FetchSettings{Command: "true {{dest}}"},
			Ledger: config.LedgerSettings{
				Enabled: false,
				Path:    filepath.Join(codexHome, "history.db"),
			},
		},
	}
}

// WithAllowManualMap enables source map resolution.
func (b *SettingsBuilder) WithAllowManualMap() *SettingsBuilder {
	b.s.AllowManualMap = true
	return b
}

// WithJobs sets the probe concurrency.
func (b *SettingsBuilder) WithJobs(jobs int) *SettingsBuilder {
	b.s.Jobs = jobs
	return b
}

// WithFetchCommand sets the remote installer command template.
func (b *SettingsBuilder) WithFetchCommand(command string) *SettingsBuilder {
	b.s.Fetch.Command = command
	return b
}

// WithLedger enables the run ledger at its default test location.
func (b *SettingsBuilder) WithLedger() *SettingsBuilder {
	b.s.Ledger.Enabled = true
	return b
}

// Build returns a copy of the built settings.
func (b *SettingsBuilder) Build() *config.Settings {
	s := b.s
	return &s
}
