package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Progress renders a single-line "message: n/total (p%)" counter, typically
// on stderr while probes or applies run.
//
// Fields:
//   - writer: Destination for progress output
//   - total: Total number of steps
//   - current: Completed steps
//   - message: Label shown before the counter
//   - mu: Guards all mutable state
//   - enabled: Whether anything is written
//   - lastWidth: Width of the last rendered line, used to clear it
type Progress struct {
	writer    io.Writer
	total     int
	current   int
	message   string
	mu        sync.Mutex
	enabled   bool
	lastWidth int
}

// NewProgress creates an enabled progress indicator.
//
// Parameters:
//   - writer: Destination for progress output (typically os.Stderr)
//   - total: Total number of steps in the operation
//   - message: Label to display (e.g., "Probing skills")
func NewProgress(writer io.Writer, total int, message string) *Progress {
	return &Progress{
		writer:  writer,
		total:   total,
		message: message,
		enabled: true,
	}
}

// SetEnabled enables or disables progress output.
func (p *Progress) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Increment advances the progress by one step and re-renders the line.
//
// This method is safe for concurrent use; probe workers call it as they finish.
func (p *Progress) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	p.renderLocked()
}

// Done renders the completed state and ends the line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	if p.renderLocked() {
		_, _ = fmt.Fprintln(p.writer)
		p.lastWidth = 0
	}
}

// Clear erases the progress line so other output can be printed.
func (p *Progress) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled && p.lastWidth > 0 {
		_, _ = fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", p.lastWidth))
		p.lastWidth = 0
	}
}

// renderLocked writes the current line. The caller holds p.mu.
func (p *Progress) renderLocked() bool {
	if !p.enabled || p.total <= 0 {
		return false
	}
	percentage := float64(p.current) / float64(p.total) * 100
	line := fmt.Sprintf("\r%s: %d/%d (%.0f%%)", p.message, p.current, p.total, percentage)
	if len(line) < p.lastWidth {
		line += strings.Repeat(" ", p.lastWidth-len(line))
	}
	p.lastWidth = len(line)

	_, _ = fmt.Fprint(p.writer, line)
	if f, ok := p.writer.(*os.File); ok {
		_ = f.Sync()
	}
	return true
}
