package config

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// CheckFormats lists the supported check report formats.
var CheckFormats = []string{"ndjson", "tsv", "json", "csv", "table"}

// ApplyFormats lists the supported apply report formats.
var ApplyFormats = []string{"json", "ndjson", "csv", "table"}

// fileKeys lists valid top-level keys of the config file.
var fileKeys = []string{
	"codex_home", "source_map", "source_map_local", "allow_manual_map", "jobs",
	"fail_fast", "dry_run", "probe_timeout", "staging_dir", "check_format",
	"apply_format", "debug_artifacts", "debug_dir", "fetch", "ledger",
}

var unknownFieldPattern = regexp.MustCompile(`line (\d+): field (\S+) not found`)

// ValidateConfigFile checks YAML config data for syntax errors and unknown keys.
//
// This performs strict decoding with KnownFields(true) so typos surface as
// errors instead of being silently ignored by the layered loader.
//
// Parameters:
//   - data: YAML configuration data as bytes
//
// Returns:
//   - *errors.ValidationResult: errors found, empty when the file is valid
func ValidateConfigFile(data []byte) *errors.ValidationResult {
	result := errors.NewValidationResult()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var s Settings
	err := decoder.Decode(&s)
	if err == nil || err == io.EOF {
		return result
	}

	verbose.Printf("Config validation FAILED: YAML decode error: %v", err)
	msg := err.Error()

	for _, m := range unknownFieldPattern.FindAllStringSubmatch(msg, -1) {
		line, _ := strconv.Atoi(m[1])
		verr := &errors.ValidationError{
			Category:  errors.ValidationCategoryConfig,
			Message:   fmt.Sprintf("unknown field '%s' (line %d)", m[2], line),
			ValidKeys: fileKeys,
		}
		if snake := strings.ReplaceAll(m[2], "-", "_"); snake != m[2] && slices.Contains(fileKeys, snake) {
			verr.Hint = fmt.Sprintf("did you mean '%s'?", snake)
		}
		result.AddError(verr)
	}
	if !result.HasErrors() {
		result.AddError(&errors.ValidationError{
			Category: errors.ValidationCategoryConfig,
			Message:  fmt.Sprintf("YAML error: %s", msg),
		})
	}

	return result
}

// Validate checks effective settings. Jobs outside [1, MaxJobs] is an error
// here; commands clamp flag values before validation.
//
// Returns:
//   - error: nil, a single *errors.ValidationError, or a combined error
func (s *Settings) Validate() error {
	result := errors.NewValidationResult()

	if strings.TrimSpace(s.CodexHome) == "" {
		result.AddError(errors.NewConfigValidationError("codex_home", "must not be empty"))
	}

	if s.Jobs < 1 || s.Jobs > constants.MaxJobs {
		verr := errors.NewConfigValidationError("jobs", fmt.Sprintf("must be between 1 and %d, got %d", constants.MaxJobs, s.Jobs))
		verr.Expected = fmt.Sprintf("integer 1-%d", constants.MaxJobs)
		result.AddError(verr)
	}

	if s.ProbeTimeout <= 0 {
		verr := errors.NewConfigValidationError("probe_timeout", fmt.Sprintf("must be positive, got %s", s.ProbeTimeout))
		verr.Expected = "duration such as 90s or 2m"
		result.AddError(verr)
	}

	if !slices.Contains(CheckFormats, s.CheckFormat) {
		verr := errors.NewConfigValidationError("check_format", fmt.Sprintf("unsupported format %q", s.CheckFormat))
		verr.ValidKeys = CheckFormats
		result.AddError(verr)
	}

	if !slices.Contains(ApplyFormats, s.ApplyFormat) {
		verr := errors.NewConfigValidationError("apply_format", fmt.Sprintf("unsupported format %q", s.ApplyFormat))
		verr.ValidKeys = ApplyFormats
		result.AddError(verr)
	}

	if strings.TrimSpace(s.Fetch.Command) == "" {
		result.AddError(errors.NewConfigValidationError("fetch.command", "must not be empty"))
	} else if !strings.Contains(s.Fetch.Command, "{{dest}}") {
		verr := errors.NewConfigValidationError("fetch.command", "must contain the {{dest}} placeholder")
		verr.Hint = "the installer must write the skill into {{dest}}/{{name}}"
		result.AddError(verr)
	}

	if s.AllowManualMap && strings.TrimSpace(s.SourceMap) == "" {
		result.AddError(errors.NewConfigValidationError("source_map", "must be set when allow_manual_map is enabled"))
	}

	if s.Ledger.Enabled && strings.TrimSpace(s.Ledger.Path) == "" {
		result.AddError(errors.NewConfigValidationError("ledger.path", "must be set when the ledger is enabled"))
	}

	return result.Err()
}

// ClampJobs bounds a requested job count. Fail-fast forces serial probing.
//
// Parameters:
//   - jobs: requested concurrency
//   - failFast: whether fail-fast is enabled
//
// Returns:
//   - int: 1 when failFast is set, otherwise jobs clamped to [1, MaxJobs]
func ClampJobs(jobs int, failFast bool) int {
	if failFast {
		return 1
	}
	return max(1, min(constants.MaxJobs, jobs))
}

// Render returns the settings as YAML, for `config --show-effective`.
func (s *Settings) Render() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
