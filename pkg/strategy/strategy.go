// Package strategy decides how each installed skill can be updated.
//
// Resolution is pure: it reads only the inventory, the dist directory listing
// and the merged source map, and never touches the network.
package strategy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/fetch"
	"github.com/femon07/codex-skill-updater/pkg/inventory"
	"github.com/femon07/codex-skill-updater/pkg/sourcemap"
)

// Origins record which rule produced a decision.
const (
	OriginMeta      = "meta"
	OriginArchive   = "archive"
	OriginSourceMap = "source_map"
	OriginNone      = "none"
)

// Options control resolution.
type Options struct {
	// DistRoot holds <name>.skill archives.
	DistRoot string

	// AllowManualMap enables the source map rule.
	AllowManualMap bool

	// Map is the merged source map; ignored unless AllowManualMap.
	Map *sourcemap.Map
}

// Decision is the resolved strategy for one skill.
type Decision struct {
	Name          string
	InstalledPath string
	Linked        bool
	Strategy      string
	Origin        string

	// Source is nil for ManualSourceMapRequired.
	Source *fetch.Source

	// Reason is a report reason for unresolved decisions.
	Reason string

	// Note is a human-readable explanation.
	Note string

	// Err is a *errors.StrategyUnresolvedError or, for a rejected source map
	// entry, a *errors.SourceMapValidationError.
	Err error
}

// Resolve computes one decision per skill, sorted by name.
//
// Rules, first match wins:
//   - Symlinked skills are never updated in place
//   - Installer metadata naming a GitHub subtree
//   - A local archive <DistRoot>/<name>.skill
//   - A source map entry, when AllowManualMap is set
//   - Otherwise ManualSourceMapRequired
func Resolve(skills []inventory.Skill, opts Options) []Decision {
	out := make([]Decision, 0, len(skills))
	for _, s := range skills {
		if strings.HasPrefix(s.Name, ".") {
			continue
		}
		out = append(out, resolveOne(s, opts))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveOne(s inventory.Skill, opts Options) Decision {
	d := Decision{Name: s.Name, InstalledPath: s.Path, Linked: s.Linked}

	if s.Linked {
		return unresolved(d, constants.ReasonLinkedSkill, fmt.Sprintf("linked skill: update the link target (%s)", s.Target))
	}

	if s.Meta.HasRemote() {
		ref := strings.TrimSpace(s.Meta.Ref)
		if ref == "" {
			ref = constants.DefaultRef
		}
		d.Strategy = constants.StrategyUpdateViaRemote
		d.Origin = OriginMeta
		d.Source = &fetch.Source{
			Repo: strings.TrimSpace(s.Meta.Repo),
			Path: strings.Trim(strings.TrimSpace(s.Meta.SkillPath), "/"),
			Ref:  ref,
		}
		d.Note = "installed metadata"
		return d
	}

	if opts.DistRoot != "" {
		archive := filepath.Join(opts.DistRoot, s.Name+constants.ArchiveExt)
		if info, err := os.Stat(archive); err == nil && info.Mode().IsRegular() {
			d.Strategy = constants.StrategyInstallFromLocalArchive
			d.Origin = OriginArchive
			d.Source = &fetch.Source{ArchivePath: archive}
			d.Note = "local archive: " + archive
			return d
		}
	}

	if opts.AllowManualMap {
		entry, found, err := opts.Map.Lookup(s.Name)
		switch {
		case err != nil:
			d.Strategy = constants.StrategyManualSourceMapRequired
			d.Origin = OriginSourceMap
			d.Reason = constants.ReasonInvalidSourceMap
			d.Note = err.Error()
			d.Err = err
			return d
		case found:
			d.Strategy = constants.StrategyUpdateViaRemote
			d.Origin = OriginSourceMap
			d.Source = &fetch.Source{Repo: entry.Repo, Path: entry.Path, Ref: entry.Ref}
			d.Note = "source map: " + opts.Map.Origin(s.Name)
			return d
		}
	}

	source := "unknown"
	if s.Meta != nil && s.Meta.Source != "" {
		source = s.Meta.Source
	}
	note := fmt.Sprintf("repo/path unresolved (meta source=%s); add a source map entry", source)
	if !opts.AllowManualMap {
		note += " and enable --allow-manual-map"
	}
	return unresolved(d, constants.ReasonManualMapping, note)
}

func unresolved(d Decision, reason, note string) Decision {
	d.Strategy = constants.StrategyManualSourceMapRequired
	d.Origin = OriginNone
	d.Reason = reason
	d.Note = note
	d.Err = &errors.StrategyUnresolvedError{Package: d.Name, Reason: note}
	return d
}
