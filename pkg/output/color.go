package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/femon07/codex-skill-updater/pkg/constants"
)

// Styler colors status cells in table output.
type Styler struct {
	enabled bool
	styles  map[string]lipgloss.Style
}

var (
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"})
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#EF6C00", Dark: "#FFB74D"})
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#E57373"})
	styleFatal   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#B71C1C", Dark: "#FF5252"})
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"})
)

// NewStyler returns a Styler that colors only when w is a terminal, noColor
// is false and NO_COLOR is unset.
func NewStyler(w io.Writer, noColor bool) *Styler {
	enabled := !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(w)
	return &Styler{
		enabled: enabled,
		styles: map[string]lipgloss.Style{
			constants.OutcomeApplied:              styleSuccess,
			constants.OutcomeWouldApply:           styleSuccess,
			constants.ProbeResolved:               styleSuccess,
			constants.OutcomeSkippedNoChanges:     styleMuted,
			constants.OutcomeSkippedFailFast:      styleMuted,
			constants.ProbeNotRun:                 styleMuted,
			constants.OutcomeSkippedManualMapping: styleWarning,
			constants.ProbeNeedsMapping:           styleWarning,
			constants.OutcomeFailed:               styleError,
			constants.OutcomeRolledBack:           styleError,
			constants.ProbeFailed:                 styleError,
			constants.OutcomeRollbackFailed:       styleFatal,
		},
	}
}

// Enabled reports whether the styler emits colors.
func (s *Styler) Enabled() bool {
	return s != nil && s.enabled
}

// Status colors a padded cell by the status or outcome it shows.
func (s *Styler) Status(status, cell string) string {
	if !s.Enabled() {
		return cell
	}
	style, ok := s.styles[status]
	if !ok {
		return cell
	}
	return style.Render(cell)
}

// Fatal renders text in the rollback failure style.
func (s *Styler) Fatal(text string) string {
	if !s.Enabled() {
		return text
	}
	return styleFatal.Render(text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
