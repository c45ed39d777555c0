package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/femon07/codex-skill-updater/pkg/config"
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

var (
	configShowDefaultsFlag  bool
	configShowEffectiveFlag bool
	configInitFlag          bool
	configValidateFlag      bool
)

var (
	writeFileFunc = os.WriteFile
	readFileFunc  = os.ReadFile
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create configuration",
	Long: `Show or create the skill-updater configuration file. Settings are layered:
built-in defaults, the config file, SKILL_UPDATER_* environment variables, then
command-line flags.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowDefaultsFlag, "show-defaults", false, "Show the configuration template with defaults")
	configCmd.Flags().BoolVar(&configShowEffectiveFlag, "show-effective", false, "Show effective configuration")
	configCmd.Flags().BoolVar(&configInitFlag, "init", false, "Create a config file template")
	configCmd.Flags().BoolVar(&configValidateFlag, "validate", false, "Validate the config file (rejects unknown fields)")
}

// runConfig executes the config command with the specified flags.
//
// Behavior depends on flags:
//   - --init: Creates a config file template at --config or the default path
//   - --validate: Validates the config file for unknown fields and bad values
//   - --show-defaults: Displays the template with built-in defaults
//   - --show-effective: Displays the effective layered settings
//
// Returns:
//   - error: Returns ExitError with ExitConfigError on validation or load failure
func runConfig(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	switch {
	case configInitFlag:
		return createConfigTemplate(cmd)

	case configValidateFlag:
		return validateConfigFile(cmd)

	case configShowDefaultsFlag:
		_, _ = fmt.Fprintln(w, config.GetTemplateConfig())
		return nil

	case configShowEffectiveFlag:
		s, err := loadSettings()
		if err != nil {
			return err
		}
		rendered, err := s.Render()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, "# Effective configuration")
		_, _ = fmt.Fprint(w, rendered)
		return nil
	}

	return cmd.Help()
}

// configFilePath returns --config or the default config file path.
func configFilePath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.DefaultConfigPath()
}

// validateConfigFile validates the config file and the settings it produces.
//
// Returns:
//   - error: ExitConfigError when the file cannot be read or is invalid
func validateConfigFile(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	path := configFilePath()

	data, err := readFileFunc(path)
	if err != nil {
		return errors.NewExitError(errors.ExitConfigError, fmt.Errorf("failed to read config file '%s': %w", path, err))
	}

	result := config.ValidateConfigFile(data)
	if !result.HasErrors() {
		if s, err := loadSettings(); err != nil {
			return err
		} else if verr := s.Validate(); verr != nil {
			if ve, ok := errors.IsValidationError(verr); ok {
				result.AddError(ve)
			} else {
				_, _ = fmt.Fprintf(w, "%s Configuration validation failed for: %s\n\n%v\n", constants.IconError, path, verr)
				return errors.NewExitError(errors.ExitConfigError, fmt.Errorf("configuration validation failed"))
			}
		}
	}

	if result.HasErrors() {
		_, _ = fmt.Fprintf(w, "%s Configuration validation failed for: %s\n\n", constants.IconError, path)
		result.PrintTo(w, verbose.IsEnabled())
		verbose.Infof("Exit code %d (config error): configuration validation failed for %s", errors.ExitConfigError, path)
		return errors.NewExitError(errors.ExitConfigError, fmt.Errorf("configuration validation failed"))
	}

	for _, warning := range result.Warnings {
		_, _ = fmt.Fprintf(w, "  WARNING: %s\n", warning)
	}
	_, _ = fmt.Fprintf(w, "%s Configuration valid: %s\n", constants.IconSuccess, path)
	return nil
}

// createConfigTemplate writes the config template. It never overwrites an
// existing file.
func createConfigTemplate(cmd *cobra.Command) error {
	path := configFilePath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := writeFileFunc(path, []byte(config.GetTemplateConfig()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s\n", constants.IconSuccess, path)
	return nil
}
