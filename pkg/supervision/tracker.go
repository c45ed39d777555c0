package supervision

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/femon07/codex-skill-updater/pkg/constants"
)

// reasonHints tells the user how to resolve each tracked reason.
var reasonHints = map[string]string{
	constants.ReasonManualMapping:    "Add an entry with `skill-updater sourcemap add <skill> --repo OWNER/REPO --path DIR` and run with --allow-manual-map.",
	constants.ReasonLinkedSkill:      "Update the link target instead; linked skills are never replaced in place.",
	constants.ReasonInvalidSourceMap: "Fix the entry; `skill-updater sourcemap validate` lists the problems.",
}

// ShouldTrack reports whether a reason means the user has to act.
func ShouldTrack(reason string) bool {
	_, ok := reasonHints[reason]
	return ok
}

// UnsupportedTracker collects skill names grouped by reason.
type UnsupportedTracker struct {
	mu      sync.RWMutex
	reasons map[string]map[string]struct{}
}

// NewUnsupportedTracker creates a new UnsupportedTracker.
func NewUnsupportedTracker() *UnsupportedTracker {
	return &UnsupportedTracker{reasons: make(map[string]map[string]struct{})}
}

// Add tracks a skill. Empty names and reasons are ignored; a skill is
// counted once per reason.
func (t *UnsupportedTracker) Add(name, reason string) {
	name = strings.TrimSpace(name)
	reason = strings.TrimSpace(reason)
	if name == "" || reason == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	names, ok := t.reasons[reason]
	if !ok {
		names = make(map[string]struct{})
		t.reasons[reason] = names
	}
	names[name] = struct{}{}
}

// Messages returns formatted messages sorted by reason. Each message lists
// the skills and, on a second line, how to resolve the reason.
//
// Returns:
//   - []string: Formatted messages, or nil if nothing was tracked
func (t *UnsupportedTracker) Messages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.reasons) == 0 {
		return nil
	}

	reasons := make([]string, 0, len(t.reasons))
	for r := range t.reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	messages := make([]string, 0, len(reasons))
	for _, r := range reasons {
		names := make([]string, 0, len(t.reasons[r]))
		for n := range t.reasons[r] {
			names = append(names, n)
		}
		sort.Strings(names)

		unit := "skills"
		if len(names) == 1 {
			unit = "skill"
		}
		msg := fmt.Sprintf("%s %s: %s (%d %s)", constants.IconBlocked, r, strings.Join(names, ", "), len(names), unit)
		if hint := reasonHints[r]; hint != "" {
			msg += "\n   " + hint
		}
		messages = append(messages, msg)
	}
	return messages
}

// TotalSkills returns the number of distinct skills tracked across reasons.
func (t *UnsupportedTracker) TotalSkills() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, names := range t.reasons {
		for n := range names {
			seen[n] = struct{}{}
		}
	}
	return len(seen)
}
