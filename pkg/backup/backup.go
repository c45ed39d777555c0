// Package backup manages backup generations of installed skills.
//
// A generation is a full copy of one skill's installed tree taken before it
// is replaced, stored at <root>/<run timestamp>/<skill>. Generations persist
// across runs until pruned.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// DefaultKeep is the number of generations retained per skill after a
// successful run.
const DefaultKeep = 2

// Generation is one stored backup.
type Generation struct {
	Timestamp string `json:"timestamp"`
	Package   string `json:"package"`
	Path      string `json:"path"`
}

// Time parses the generation timestamp.
func (g Generation) Time() (time.Time, error) {
	return time.ParseInLocation(constants.BackupTimestampFormat, g.Timestamp, time.Local)
}

// Store is a backup root on the local filesystem.
type Store struct {
	Root string
}

// New returns a Store rooted at root. The directory is created lazily by
// the first Snapshot.
func New(root string) *Store {
	return &Store{Root: root}
}

// Timestamp formats t as a generation timestamp.
func Timestamp(t time.Time) string {
	return t.Format(constants.BackupTimestampFormat)
}

// Snapshot copies the installed tree of one skill into a new generation.
//
// Parameters:
//   - timestamp: run timestamp shared by every skill of the run
//   - name: skill name
//   - installed: installed skill directory
//
// Returns:
//   - Generation: the stored generation
//   - error: when the copy fails; a partial copy is removed
func (s *Store) Snapshot(timestamp, name, installed string) (Generation, error) {
	gen := Generation{
		Timestamp: timestamp,
		Package:   name,
		Path:      filepath.Join(s.Root, timestamp, name),
	}

	if err := os.MkdirAll(filepath.Dir(gen.Path), 0o755); err != nil {
		return Generation{}, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := CopyTree(installed, gen.Path); err != nil {
		_ = os.RemoveAll(gen.Path)
		return Generation{}, fmt.Errorf("failed to back up %s: %w", name, err)
	}

	verbose.Printf("Backed up %s to %s", name, gen.Path)
	return gen, nil
}

// Restore replaces the installed tree with the generation's content.
func (s *Store) Restore(gen Generation, installed string) error {
	if _, err := os.Stat(gen.Path); err != nil {
		return fmt.Errorf("backup %s is not readable: %w", gen.Path, err)
	}
	if err := ReplaceTree(gen.Path, installed); err != nil {
		return err
	}
	verbose.Printf("Restored %s from %s", gen.Package, gen.Path)
	return nil
}

// List returns every generation, sorted by package then timestamp (oldest
// first). A missing root yields no generations.
func (s *Store) List() ([]Generation, error) {
	runs, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup root %s: %w", s.Root, err)
	}

	var gens []Generation
	for _, run := range runs {
		if !run.IsDir() {
			continue
		}
		if _, err := time.Parse(constants.BackupTimestampFormat, run.Name()); err != nil {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.Root, run.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read backup run %s: %w", run.Name(), err)
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			gens = append(gens, Generation{
				Timestamp: run.Name(),
				Package:   e.Name(),
				Path:      filepath.Join(s.Root, run.Name(), e.Name()),
			})
		}
	}

	sort.Slice(gens, func(i, j int) bool {
		if gens[i].Package != gens[j].Package {
			return gens[i].Package < gens[j].Package
		}
		return gens[i].Timestamp < gens[j].Timestamp
	})
	return gens, nil
}

// ListPackage returns the generations of one skill, oldest first.
func (s *Store) ListPackage(name string) ([]Generation, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []Generation
	for _, g := range all {
		if g.Package == name {
			out = append(out, g)
		}
	}
	return out, nil
}

// Prune keeps the newest keep generations of each named package and removes
// the rest. Run directories left empty are removed too.
//
// Parameters:
//   - packages: skills touched by the run; others are never pruned
//   - keep: generations to retain per package, at least 1
//
// Returns:
//   - []Generation: removed generations
//   - error: the first removal failure; pruning continues past it
func (s *Store) Prune(packages []string, keep int) ([]Generation, error) {
	if keep < 1 {
		keep = 1
	}
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(packages))
	for _, p := range packages {
		wanted[p] = true
	}
	byPackage := make(map[string][]Generation)
	for _, g := range all {
		if wanted[g.Package] {
			byPackage[g.Package] = append(byPackage[g.Package], g)
		}
	}

	var removed []Generation
	var firstErr error
	runs := make(map[string]bool)
	for _, name := range sortedKeys(byPackage) {
		gens := byPackage[name]
		if len(gens) <= keep {
			continue
		}
		for _, g := range gens[:len(gens)-keep] {
			if err := os.RemoveAll(g.Path); err != nil {
				verbose.Warnf("failed to prune backup %s: %v", g.Path, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			removed = append(removed, g)
			runs[g.Timestamp] = true
		}
	}

	for ts := range runs {
		dir := filepath.Join(s.Root, ts)
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}

	if len(removed) > 0 {
		verbose.Infof("Pruned %d backup generations", len(removed))
	}
	return removed, firstErr
}

func sortedKeys(m map[string][]Generation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
