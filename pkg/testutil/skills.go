package testutil

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/femon07/codex-skill-updater/pkg/constants"
)

// WriteSkill creates a skill directory root/name holding files.
//
// A SKILL.md with body "# name" is added unless files provides one.
//
// Parameters:
//   - t: Testing instance for helper marking and failures
//   - root: Parent directory, usually the skills root
//   - name: Skill directory name
//   - files: Relative path to content; nested paths create directories
//
// Returns:
//   - string: The skill directory
func WriteSkill(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if _, ok := files[constants.SkillManifest]; !ok {
		files = withManifest(files, "# "+name+"\n")
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

// WriteMeta writes installer metadata naming a GitHub subtree into dir.
func WriteMeta(t *testing.T, dir, repo, skillPath, ref string) {
	t.Helper()

	meta := map[string]string{"source": "github", "repo": repo, "skillPath": skillPath}
	if ref != "" {
		meta["ref"] = ref
	}
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.SkillMetaFile), data, 0o644))
}

// WriteArchive writes a .skill zip at path. Entry names are used as given,
// so callers choose whether content sits under a top-level directory.
func WriteArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func withManifest(files map[string]string, manifest string) map[string]string {
	out := make(map[string]string, len(files)+1)
	for k, v := range files {
		out[k] = v
	}
	out[constants.SkillManifest] = manifest
	return out
}
