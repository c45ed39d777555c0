// Package inventory lists the skills installed under the skills root.
//
// A skill is a top-level directory containing SKILL.md. Dot-directories,
// including the reserved .system installer namespace, are never listed.
// Symlinked skills are read through the link and flagged as Linked.
package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// MetaSourceGitHub marks metadata written by the GitHub installer.
const MetaSourceGitHub = "github"

// Meta is the installer-written .skill-meta.json.
type Meta struct {
	Source    string `json:"source"`
	Repo      string `json:"repo"`
	SkillPath string `json:"skillPath"`
	Ref       string `json:"ref,omitempty"`
	Name      string `json:"name,omitempty"`
}

// HasRemote reports whether the metadata names a repository subtree.
func (m *Meta) HasRemote() bool {
	return m != nil && m.Source == MetaSourceGitHub &&
		strings.TrimSpace(m.Repo) != "" && strings.Trim(strings.TrimSpace(m.SkillPath), "/") != ""
}

// Skill is one installed skill.
type Skill struct {
	// Name is the directory name.
	Name string

	// Path is the installed location under the skills root.
	Path string

	// Linked is true when Path is a symlink.
	Linked bool

	// Target is the resolved symlink target, empty unless Linked.
	Target string

	// Meta is nil when the skill has no readable metadata.
	Meta *Meta
}

// Scan lists installed skills, sorted by name.
//
// It performs the following operations:
//   - Reads the top level of skillsRoot; a missing root yields no skills
//   - Skips dot-directories and entries without SKILL.md
//   - Follows symlinks for reading and records their targets
//   - Loads .skill-meta.json when present; unreadable metadata is ignored
//
// Parameters:
//   - skillsRoot: $CODEX_HOME/skills
//
// Returns:
//   - []Skill: installed skills
//   - error: when the root exists but cannot be read
func Scan(skillsRoot string) ([]Skill, error) {
	entries, err := os.ReadDir(skillsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			verbose.Printf("Skills root %s does not exist", skillsRoot)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read skills root %s: %w", skillsRoot, err)
	}

	skills := make([]Skill, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		skill := Skill{Name: name, Path: filepath.Join(skillsRoot, name)}
		readPath := skill.Path

		if entry.Type()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(skill.Path)
			if err != nil {
				verbose.Printf("Skipping %s: broken symlink: %v", name, err)
				continue
			}
			skill.Linked = true
			skill.Target = target
			readPath = target
		}

		info, err := os.Stat(filepath.Join(readPath, constants.SkillManifest))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		skill.Meta = ReadMeta(readPath)
		skills = append(skills, skill)
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	verbose.Infof("Found %d installed skills in %s", len(skills), skillsRoot)
	return skills, nil
}

// ReadMeta loads .skill-meta.json from dir. Missing or malformed metadata
// returns nil.
func ReadMeta(dir string) *Meta {
	data, err := os.ReadFile(filepath.Join(dir, constants.SkillMetaFile))
	if err != nil {
		return nil
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		verbose.Printf("Ignoring malformed %s in %s: %v", constants.SkillMetaFile, dir, err)
		return nil
	}
	return &meta
}
