package config

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/femon07/codex-skill-updater/pkg/constants"
)

// AppName names the XDG config and state subdirectories.
const AppName = "skill-updater"

// DefaultFetchCommand runs the installer shipped in the reserved namespace.
const DefaultFetchCommand = "python3 {{codex_home}}/skills/.system/skill-installer/scripts/install-skill-from-github.py " +
	"--repo {{repo}} --path {{path}} --ref {{ref}} --name {{name}} --dest {{dest}}"

//go:embed template.yml
var templateConfigYAML string

// GetTemplateConfig returns a commented starter config file.
func GetTemplateConfig() string {
	return templateConfigYAML
}

// DefaultCodexHome returns $CODEX_HOME, or ~/.codex when unset.
func DefaultCodexHome() string {
	if v := os.Getenv("CODEX_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return constants.DefaultCodexDir
	}
	return filepath.Join(home, constants.DefaultCodexDir)
}

// ConfigDir returns the XDG config directory for skill-updater.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// StateDir returns the XDG state directory for skill-updater.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultConfigPath returns the config file location used when --config is not given.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yml")
}

// defaults returns the built-in layer as a flat koanf map.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"codex_home":       DefaultCodexHome(),
		"source_map":       filepath.Join(ConfigDir(), constants.SourceMapFile),
		"source_map_local": filepath.Join(ConfigDir(), constants.SourceMapLocalFile),
		"allow_manual_map": false,
		"jobs":             constants.DefaultJobs,
		"fail_fast":        false,
		"dry_run":          false,
		"probe_timeout":    "120s",
		"staging_dir":      "",
		"check_format":     "ndjson",
		"apply_format":     "json",
		"debug_artifacts":  false,
		"debug_dir":        ".",
		"fetch.command":    DefaultFetchCommand,
		"ledger.enabled":   true,
		"ledger.path":      filepath.Join(StateDir(), "history.db"),
	}
}
