// Copyright © 2024 The ELPS authors

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o700))
	for _, name := range []string{"a.sx", "sub/b.sx", "sub/c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	files, err := expandArgs([]string{dir + "/...", "other.sx"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.sx"),
		filepath.Join(dir, "sub", "b.sx"),
		"other.sx",
	}, files)

	_, err = expandArgs([]string{filepath.Join(dir, "missing") + "/..."})
	assert.Error(t, err)
}

func TestFilterExcludes_ByName(t *testing.T) {
	paths := []string{
		"src/main.sx",
		"src/core.sx",
		"lib/utils.sx",
	}
	result := filterExcludes(paths, []string{"core.sx"})
	assert.Equal(t, []string{"src/main.sx", "lib/utils.sx"}, result)
}

func TestFilterExcludes_ByDirectory(t *testing.T) {
	paths := []string{
		"src/main.sx",
		"build/output.sx",
		"build/sub/deep.sx",
		"lib/utils.sx",
	}
	result := filterExcludes(paths, []string{"build"})
	assert.Equal(t, []string{"src/main.sx", "lib/utils.sx"}, result)
}

func TestFilterExcludes_GlobPattern(t *testing.T) {
	paths := []string{
		"src/main.sx",
		"src/generated_foo.sx",
		"src/generated_bar.sx",
	}
	result := filterExcludes(paths, []string{"generated_*"})
	assert.Equal(t, []string{"src/main.sx"}, result)
}

func TestFilterExcludes_EmptyExcludes(t *testing.T) {
	paths := []string{"src/main.sx"}
	assert.Equal(t, paths, filterExcludes(paths, nil))
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, matchesAny("src/main.sx", []string{"src/*.sx"}))
	assert.False(t, matchesAny("lib/main.sx", []string{"src/*.sx"}))
	assert.True(t, matchesAny("deep/nested/core.sx", []string{"core.sx"}))
	assert.True(t, matchesAny("project/build/output.sx", []string{"build"}))
	assert.False(t, matchesAny("project/src/output.sx", []string{"build"}))
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c.sx"}, splitPath("a/b/c.sx"))
	assert.Equal(t, []string{"a", "c.sx"}, splitPath("a/./b/../c.sx"))
}
