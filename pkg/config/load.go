// Package config handles settings loading and validation for skill-updater.
// Settings are layered with koanf: built-in defaults, an optional YAML file,
// then SKILL_UPDATER_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SKILL_UPDATER_"

// DefaultMaxConfigFileSize is the maximum config file size in bytes.
const DefaultMaxConfigFileSize int64 = 1 << 20

// Load builds the effective settings.
//
// It performs the following operations:
//   - Loads built-in defaults
//   - Loads configPath if given (it must exist), otherwise the default
//     config file if present
//   - Applies SKILL_UPDATER_* environment variables; a double underscore
//     separates nested keys
//   - Expands ~ in path settings
//
// Parameters:
//   - configPath: explicit config file, or empty to use DefaultConfigPath
//
// Returns:
//   - *Settings: the effective settings, not yet validated
//   - error: when the config file is missing, too large or malformed
func Load(configPath string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := configPath
	if path == "" {
		if _, err := os.Stat(DefaultConfigPath()); err == nil {
			path = DefaultConfigPath()
		}
	}
	if path != "" {
		if err := checkFileSize(path); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		verbose.Infof("Loaded config from: %s", path)
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	s.CodexHome = expandHome(s.CodexHome)
	s.SourceMap = expandHome(s.SourceMap)
	s.SourceMapLocal = expandHome(s.SourceMapLocal)
	s.StagingDir = expandHome(s.StagingDir)
	s.DebugDir = expandHome(s.DebugDir)
	s.Ledger.Path = expandHome(s.Ledger.Path)

	return &s, nil
}

// checkFileSize rejects missing or oversized config files before parsing.
func checkFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > DefaultMaxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d bytes)", info.Size(), DefaultMaxConfigFileSize)
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// SkillsRoot returns the directory holding installed skills.
func (s *Settings) SkillsRoot() string {
	return filepath.Join(s.CodexHome, constants.SkillsDir)
}

// DistRoot returns the directory holding locally staged archives.
func (s *Settings) DistRoot() string {
	return filepath.Join(s.SkillsRoot(), constants.DistDir)
}

// BackupRoot returns the fixed backup root. It is derived from CodexHome and
// cannot be configured separately.
func (s *Settings) BackupRoot() string {
	return filepath.Join(s.CodexHome, constants.BackupDir)
}
