package config

import "time"

// Settings is the effective configuration for a run.
//
// Values are layered by Load: built-in defaults, then the YAML config file,
// then SKILL_UPDATER_* environment variables. Commands apply CLI flags last.
type Settings struct {
	// CodexHome is the managed home. Skills live in CodexHome/skills and
	// backups in CodexHome/skill-backups.
	CodexHome string `koanf:"codex_home" yaml:"codex_home"`

	// SourceMap and SourceMapLocal are the shareable and private-override maps.
	SourceMap      string `koanf:"source_map" yaml:"source_map"`
	SourceMapLocal string `koanf:"source_map_local" yaml:"source_map_local"`

	// AllowManualMap gates source-map based strategy resolution.
	AllowManualMap bool `koanf:"allow_manual_map" yaml:"allow_manual_map"`

	// Jobs is the probe concurrency, clamped to [1, constants.MaxJobs].
	Jobs int `koanf:"jobs" yaml:"jobs"`

	FailFast bool `koanf:"fail_fast" yaml:"fail_fast"`
	DryRun   bool `koanf:"dry_run" yaml:"dry_run"`

	// ProbeTimeout bounds a single fetch. A timeout fails that package only.
	ProbeTimeout time.Duration `koanf:"probe_timeout" yaml:"probe_timeout"`

	// StagingDir is the parent of per-run staging directories. Empty means
	// the system temp directory.
	StagingDir string `koanf:"staging_dir" yaml:"staging_dir"`

	CheckFormat string `koanf:"check_format" yaml:"check_format"`
	ApplyFormat string `koanf:"apply_format" yaml:"apply_format"`

	// DebugArtifacts writes both reports under fixed names in DebugDir.
	DebugArtifacts bool   `koanf:"debug_artifacts" yaml:"debug_artifacts"`
	DebugDir       string `koanf:"debug_dir" yaml:"debug_dir"`

	Fetch  FetchSettings  `koanf:"fetch" yaml:"fetch"`
	Ledger LedgerSettings `koanf:"ledger" yaml:"ledger"`
}

// FetchSettings configures the remote fetcher.
type FetchSettings struct {
	// Command is the installer invocation. Placeholders: {{repo}}, {{path}},
	// {{ref}}, {{name}}, {{dest}}, {{codex_home}}.
	Command string `koanf:"command" yaml:"command"`

	// Token is passed to the installer as GH_TOKEN. When empty it is resolved
	// from GH_TOKEN, GITHUB_TOKEN, then `gh auth token`.
	Token string `koanf:"token" yaml:"-"`
}

// LedgerSettings configures the run history database.
type LedgerSettings struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}
