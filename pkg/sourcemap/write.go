package sourcemap

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iancoleman/orderedmap"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
)

// writeFileFunc writes the temp file during AddLocal. Replaced in tests.
var writeFileFunc = os.WriteFile

// templateEntries is printed by Template. Every value is a placeholder the
// validator rejects, so a copied template fails loudly until edited.
var templateEntries = []struct {
	name  string
	entry Entry
}{
	{"my-skill", Entry{Repo: "owner/repo", Path: "path/to/skill", Ref: constants.DefaultRef}},
	{"another-skill", Entry{Repo: "<org>/<repo>", Path: "skills/<name>", Ref: constants.DefaultRef}},
}

// Template returns an example source map document.
func Template() ([]byte, error) {
	doc := orderedmap.New()
	for _, t := range templateEntries {
		doc.Set(t.name, entryObject(t.entry))
	}
	return marshalJSON(doc)
}

// AddLocal sets one entry in the private-override map, creating the file when
// needed. Existing keys keep their order; a new key is appended.
//
// It performs the following operations:
//   - Validates the entry, rejecting placeholders
//   - Reads the current file into an ordered map
//   - Sets the entry and writes atomically (temp file + rename)
//
// Parameters:
//   - path: the local map file
//   - name: skill name
//   - entry: descriptor; an empty Ref becomes "main"
//
// Returns:
//   - error: *errors.SourceMapValidationError for invalid input, or an I/O error
func AddLocal(path, name string, entry Entry) error {
	if entry.Ref == "" {
		entry.Ref = constants.DefaultRef
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	if err := validateDocument([]byte(fmt.Sprintf("{%s:{}}", key))); err != nil {
		return &errors.SourceMapValidationError{Path: path, Package: name, Message: "invalid skill name: " + err.Error()}
	}
	if _, verr := parseEntry(path, name, raw); verr != nil {
		return verr
	}

	doc := orderedmap.New()
	data, err := readFileFunc(path)
	switch {
	case err == nil:
		if err := validateDocument(data); err != nil {
			return &errors.SourceMapValidationError{Path: path, Message: err.Error()}
		}
		if err := json.Unmarshal(data, doc); err != nil {
			return &errors.SourceMapValidationError{Path: path, Message: err.Error()}
		}
	case os.IsNotExist(err):
	default:
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc.Set(name, entryObject(entry))
	out, err := marshalJSON(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return writeFileAtomic(path, append(out, '\n'))
}

// entryObject renders an entry with a fixed field order.
func entryObject(e Entry) *orderedmap.OrderedMap {
	obj := orderedmap.New()
	obj.Set("repo", e.Repo)
	obj.Set("path", e.Path)
	obj.Set("ref", e.Ref)
	return obj
}

// marshalJSON encodes with two-space indentation and no HTML escaping.
func marshalJSON(doc *orderedmap.OrderedMap) ([]byte, error) {
	doc.SetEscapeHTML(false)
	for _, key := range doc.Keys() {
		if v, ok := doc.Get(key); ok {
			switch obj := v.(type) {
			case *orderedmap.OrderedMap:
				obj.SetEscapeHTML(false)
			case orderedmap.OrderedMap:
				obj.SetEscapeHTML(false)
				doc.Set(key, &obj)
			}
		}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writeFileAtomic writes content through a temp file in the same directory.
func writeFileAtomic(path string, content []byte) error {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return err
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"

	if err := writeFileFunc(tempPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
