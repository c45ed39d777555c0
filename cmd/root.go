// Package cmd implements the command-line interface for skill-updater.
// It provides commands for checking which installed skills can be updated,
// applying updates with backup and rollback, and managing source maps,
// backups and configuration.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

var exitFunc = os.Exit
var errWriter io.Writer = os.Stderr

var (
	verboseFlag bool
	configFlag  string
	noColorFlag bool
	versionFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "skill-updater",
	Short: "Keep installed Codex skills in sync with their sources",
	Long: `Check which installed skills can be updated, then apply updates one skill
at a time with a backup and automatic rollback.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			verbose.Enable()
		}
		if noColorFlag {
			verbose.SetNoColor(true)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if versionFlag {
			printVersionOutput(cmd.OutOrStdout())
			return
		}
		_ = cmd.Help()
	},
}

// Execute runs the root command and exits with appropriate code:
//   - 0: Success
//   - 1: Partial failure (some skills failed, others are fine)
//   - 2: Complete failure
//   - 3: Configuration or validation error
//   - 4: Rollback failure (manual intervention required)
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := errors.GetExitCode(err)
		printError(errWriter, err)
		verbose.Infof("Exit code %d: %v", code, err)
		exitFunc(code)
	}
}

// ExecuteTest runs the root command for testing (returns error instead of exiting).
//
// Returns:
//   - error: Command execution error, or nil on success
func ExecuteTest() error {
	return rootCmd.Execute()
}

// printError writes err with hints. Joined errors, such as several rollback
// failures, are printed one by one.
func printError(w io.Writer, err error) {
	if exitErr, ok := errors.IsExitError(err); ok && exitErr.Err != nil && exitErr.Message == "" {
		err = exitErr.Err
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errors.PrintErrorWithHints(w, joined.Unwrap(), verboseFlag)
		return
	}
	errors.PrintErrorWithHints(w, []error{err}, verboseFlag)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", fmt.Sprintf("Config file path (default %s)", "$XDG_CONFIG_HOME/skill-updater/config.yml"))
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.Flags().BoolVarP(&versionFlag, "version", "v", false, "Show version information")

	// Commands ordered logically: info, config, workflow (check, apply, update), maintenance
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(sourcemapCmd)
	rootCmd.AddCommand(backupsCmd)
}
