// Package sourcemap loads and merges the source maps that name an upstream
// repository subtree for skills whose installed metadata does not.
//
// Two layers exist: a shareable map and a private-override map. A key present
// in a later layer replaces the whole entry of earlier layers, including when
// the later entry is invalid. Fields are never merged across layers.
package sourcemap

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// readFileFunc reads map files. Replaced in tests.
var readFileFunc = os.ReadFile

// Entry is one source descriptor.
type Entry struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
	Ref  string `json:"ref,omitempty"`
}

// Layer is one parsed map file.
type Layer struct {
	// Path is the file the layer was read from.
	Path string

	// Entries holds the valid entries.
	Entries map[string]Entry

	// Invalid holds entries that failed validation, keyed by skill name.
	Invalid map[string]*errors.SourceMapValidationError
}

// Map is the merged view of all layers.
type Map struct {
	entries map[string]Entry
	invalid map[string]*errors.SourceMapValidationError
	origin  map[string]string
}

// Load reads the shareable map (required, may be "{}") and the optional
// private-override map, then merges them.
//
// Parameters:
//   - publicPath: shareable map; a missing file is an error
//   - localPath: override map; skipped when empty or missing
//
// Returns:
//   - *Map: merged map; per-entry problems are kept, not returned
//   - error: *errors.SourceMapValidationError for file-level problems
func Load(publicPath, localPath string) (*Map, error) {
	public, err := LoadLayer(publicPath, true)
	if err != nil {
		return nil, err
	}

	layers := []*Layer{public}
	if localPath != "" {
		local, err := LoadLayer(localPath, false)
		if err != nil {
			return nil, err
		}
		if local != nil {
			layers = append(layers, local)
		}
	}

	return Merge(layers...), nil
}

// LoadLayer parses one map file.
//
// It performs the following operations:
//   - Reads the file; a missing file returns (nil, nil) unless required
//   - Validates the document structure against the embedded map schema
//   - Validates each entry on its own, so one bad entry never hides others
//   - Defaults an empty ref to "main"
//
// Returns:
//   - *Layer: parsed layer
//   - error: *errors.SourceMapValidationError for unreadable or malformed files
func LoadLayer(path string, required bool) (*Layer, error) {
	data, err := readFileFunc(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			verbose.Printf("Source map %s not found, skipping", path)
			return nil, nil
		}
		return nil, &errors.SourceMapValidationError{Path: path, Message: err.Error()}
	}

	return ParseLayer(path, data)
}

// ParseLayer parses map data read from path.
func ParseLayer(path string, data []byte) (*Layer, error) {
	if err := validateDocument(data); err != nil {
		return nil, &errors.SourceMapValidationError{Path: path, Message: err.Error()}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &errors.SourceMapValidationError{Path: path, Message: err.Error()}
	}

	layer := &Layer{
		Path:    path,
		Entries: make(map[string]Entry, len(raw)),
		Invalid: make(map[string]*errors.SourceMapValidationError),
	}

	for name, msg := range raw {
		entry, verr := parseEntry(path, name, msg)
		if verr != nil {
			verbose.Printf("Source map %s: %v", path, verr)
			layer.Invalid[name] = verr
			continue
		}
		layer.Entries[name] = entry
	}

	verbose.Infof("Loaded source map %s: %d valid, %d invalid", path, len(layer.Entries), len(layer.Invalid))
	return layer, nil
}

// parseEntry validates and decodes one entry.
func parseEntry(path, name string, msg json.RawMessage) (Entry, *errors.SourceMapValidationError) {
	if field, problem := validateEntry(msg); problem != "" {
		return Entry{}, &errors.SourceMapValidationError{Path: path, Package: name, Field: field, Message: problem}
	}

	var entry Entry
	if err := json.Unmarshal(msg, &entry); err != nil {
		return Entry{}, &errors.SourceMapValidationError{Path: path, Package: name, Message: err.Error()}
	}
	entry.Repo = strings.TrimSpace(entry.Repo)
	entry.Path = strings.Trim(strings.TrimSpace(entry.Path), "/")
	entry.Ref = strings.TrimSpace(entry.Ref)
	if entry.Ref == "" {
		entry.Ref = constants.DefaultRef
	}

	for _, f := range []struct{ name, value string }{
		{"repo", entry.Repo}, {"path", entry.Path}, {"ref", entry.Ref},
	} {
		if pattern, ok := IsPlaceholder(f.value); ok {
			return Entry{}, &errors.SourceMapValidationError{
				Path:    path,
				Package: name,
				Field:   f.name,
				Message: fmt.Sprintf("placeholder value %q (matches %q)", f.value, pattern),
			}
		}
	}

	return entry, nil
}

// Merge combines layers in order. A later layer replaces earlier entries by
// key, whole-entry, whether the later entry is valid or not.
func Merge(layers ...*Layer) *Map {
	m := &Map{
		entries: make(map[string]Entry),
		invalid: make(map[string]*errors.SourceMapValidationError),
		origin:  make(map[string]string),
	}

	for _, layer := range layers {
		if layer == nil {
			continue
		}
		for name, entry := range layer.Entries {
			delete(m.invalid, name)
			m.entries[name] = entry
			m.origin[name] = layer.Path
		}
		for name, verr := range layer.Invalid {
			delete(m.entries, name)
			m.invalid[name] = verr
			m.origin[name] = layer.Path
		}
	}

	return m
}

// Lookup returns the merged entry for a skill.
//
// Returns:
//   - Entry: the descriptor when found and valid
//   - bool: whether the name appears in any layer
//   - error: *errors.SourceMapValidationError when the winning entry is invalid
func (m *Map) Lookup(name string) (Entry, bool, error) {
	if m == nil {
		return Entry{}, false, nil
	}
	if verr, ok := m.invalid[name]; ok {
		return Entry{}, true, verr
	}
	entry, ok := m.entries[name]
	return entry, ok, nil
}

// Origin returns the file the winning entry for name came from.
func (m *Map) Origin(name string) string {
	if m == nil {
		return ""
	}
	return m.origin[name]
}

// Names returns every key in the merged map, sorted.
func (m *Map) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.entries)+len(m.invalid))
	for name := range m.entries {
		names = append(names, name)
	}
	for name := range m.invalid {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Problems returns the validation errors of invalid winning entries, sorted by name.
func (m *Map) Problems() []*errors.SourceMapValidationError {
	if m == nil {
		return nil
	}
	out := make([]*errors.SourceMapValidationError, 0, len(m.invalid))
	for _, verr := range m.invalid {
		out = append(out, verr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Package < out[j].Package })
	return out
}
