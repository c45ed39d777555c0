// Package fetch stages upstream skill content into a directory.
//
// Two fetchers ship with skill-updater: Remote runs the configured installer
// command for a repository subtree, and Archive extracts a locally staged
// .skill zip. Router dispatches on the kind of Source. Every failure is a
// *errors.ProbeError carrying a ProbeKind.
package fetch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
)

// Source describes where a skill's upstream content lives. Exactly one of
// Repo or ArchivePath is set.
type Source struct {
	Repo        string `json:"repo,omitempty"`
	Path        string `json:"path,omitempty"`
	Ref         string `json:"ref,omitempty"`
	ArchivePath string `json:"archive,omitempty"`
}

// IsArchive reports whether the source is a local archive.
func (s *Source) IsArchive() bool {
	return s != nil && s.ArchivePath != ""
}

// String renders the source for logs and reports.
func (s *Source) String() string {
	switch {
	case s == nil:
		return constants.PlaceholderNA
	case s.IsArchive():
		return s.ArchivePath
	default:
		return fmt.Sprintf("%s:%s@%s", s.Repo, s.Path, s.Ref)
	}
}

// Fetcher stages content for one skill.
type Fetcher interface {
	// Fetch places the skill named name from src under dest and returns the
	// staged skill directory, which contains SKILL.md. dest is private to
	// this call. Errors are *errors.ProbeError.
	Fetch(ctx context.Context, name string, src *Source, dest string) (string, error)
}

// Router sends archive sources to Archive and everything else to Remote.
type Router struct {
	Remote  Fetcher
	Archive Fetcher
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, name string, src *Source, dest string) (string, error) {
	if src == nil {
		return "", errors.NewProbeError(name, errors.ProbeKindNotFound, fmt.Errorf("no source"))
	}
	next := r.Remote
	if src.IsArchive() {
		next = r.Archive
	}
	if next == nil {
		return "", errors.NewProbeError(name, errors.ProbeKindUnknown, fmt.Errorf("no fetcher for %s", src))
	}
	return next.Fetch(ctx, name, src, dest)
}

// locateSkill finds the staged skill directory under root.
//
// root/<name> wins when it contains SKILL.md. Otherwise the single directory
// under root containing SKILL.md is used; zero or several is invalid content.
func locateSkill(root, name string) (string, error) {
	preferred := filepath.Join(root, name)
	if hasManifest(preferred) {
		return preferred, nil
	}
	if hasManifest(root) {
		return root, nil
	}

	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == constants.SkillManifest {
			found = append(found, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", fmt.Errorf("staged content has no %s", constants.SkillManifest)
	default:
		return "", fmt.Errorf("staged content is ambiguous: %d directories contain %s", len(found), constants.SkillManifest)
	}
}

func hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, constants.SkillManifest))
	return err == nil && info.Mode().IsRegular()
}
