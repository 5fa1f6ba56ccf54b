// Copyright © 2024 The ELPS authors

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/modules"
	"github.com/luthersystems/macrodispatch/syntax"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWorld = `
kernel: true
modules:
  - name: lists
    functions: [map/2]
    macros:
      - {name: swap, arity: 2, body: "(pair $2 $1)"}
      - {name: fail, arity: 0, body: '(raise "cannot expand")'}
  - name: unused
    functions: [f/0]
units:
  - name: main
    module: app
    imports: [{module: lists}, {module: unused}, {module: Kernel, only: [abs/1]}]
  - name: bare
    module: other
`

func setWorld(t *testing.T, world string, unit string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(world), 0o600))
	viper.Set("world", path)
	viper.Set("unit", unit)
	t.Cleanup(func() {
		viper.Set("world", "")
		viper.Set("unit", "")
	})
	return dir
}

func runExpand(t *testing.T, args []string, opts ...Option) (string, string, error) {
	cmd := ExpandCommand(opts...)
	cmd.SetArgs(args)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestExpandCommand_DefaultFlags(t *testing.T) {
	cmd := ExpandCommand()
	assert.Equal(t, "expand [flags] [files...]", cmd.Use)
	for _, name := range []string{"expression", "unused", "stats", "exclude"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func TestExpandCommand_Expressions(t *testing.T) {
	setWorld(t, testWorld, "main")
	stdout, stderr, err := runExpand(t, []string{"-e", "(swap 1 (map f xs))", "(abs x) (g)"})
	require.NoError(t, err)
	assert.Equal(t, "(pair (lists.map f xs) 1)\n(native.abs x)\n(g)\n", stdout)
	assert.Empty(t, stderr)
}

func TestExpandCommand_Files(t *testing.T) {
	dir := setWorld(t, testWorld, "")
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "gen"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.sx"), []byte("(swap a b)\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "gen", "b.sx"), []byte("(swap c d)\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("(swap e f)\n"), 0o600))

	stdout, _, err := runExpand(t, []string{src + "/..."})
	require.NoError(t, err)
	assert.Equal(t, "(pair b a)\n(pair d c)\n", stdout)

	stdout, _, err = runExpand(t, []string{"--exclude", "gen", src + "/..."})
	require.NoError(t, err)
	assert.Equal(t, "(pair b a)\n", stdout)
}

func TestExpandCommand_Errors(t *testing.T) {
	dir := setWorld(t, testWorld, "main")
	file := filepath.Join(dir, "bad.sx")
	require.NoError(t, os.WriteFile(file, []byte("(swap 1 2)\n  (fail)\n"), 0o600))

	stdout, stderr, err := runExpand(t, []string{file})
	assert.Equal(t, errReported, err)
	assert.Equal(t, "(pair 2 1)\n", stdout)
	assert.Contains(t, stderr, "error[macro-invocation]: cannot expand")
	assert.Contains(t, stderr, "--> "+file+":2")
	assert.Contains(t, stderr, " 2 |    (fail)")
	assert.Contains(t, stderr, "= note: in Kernel.raise/1")
	assert.Contains(t, stderr, "= note: in macro call lists.fail/0")
}

func TestExpandCommand_ParseError(t *testing.T) {
	setWorld(t, testWorld, "main")
	stdout, stderr, err := runExpand(t, []string{"-e", "(swap 1 2", "(abs 1)"})
	assert.Equal(t, errReported, err)
	assert.Equal(t, "(native.abs 1)\n", stdout)
	assert.Contains(t, stderr, "error: ")
}

func TestExpandCommand_Unused(t *testing.T) {
	setWorld(t, testWorld, "main")
	_, stderr, err := runExpand(t, []string{"--unused", "-e", "(map f xs)"})
	require.NoError(t, err)
	assert.Equal(t, "warning: unused import: Kernel\n\nwarning: unused import: unused\n", stderr)
}

func TestExpandCommand_Stats(t *testing.T) {
	setWorld(t, testWorld, "main")
	_, stderr, err := runExpand(t, []string{"--stats", "-e", "(swap 1 2)", "(swap 3 4)", "(g)"})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	assert.Contains(t, lines, "macrodispatch/expansions 2")
	assert.Contains(t, lines, "macrodispatch/resolutions dispatch=macro 2")
	assert.Contains(t, lines, "macrodispatch/resolutions dispatch=none 3")
}

func TestExpandCommand_UnknownUnit(t *testing.T) {
	setWorld(t, testWorld, "nope")
	_, _, err := runExpand(t, []string{"-e", "(g)"})
	assert.EqualError(t, err, "unknown unit: nope")
}

func TestExpandCommand_DefaultWorld(t *testing.T) {
	viper.Set("world", "")
	stdout, _, err := runExpand(t, []string{"-e", "(abs x)", "(unless c x)"})
	require.NoError(t, err)
	assert.Equal(t, "(native.abs x)\n(if (Kernel.not c) x)\n", stdout)
}

func TestExpandCommand_WithWorld(t *testing.T) {
	reg := modules.NewStandardRegistry()
	reg.Define("embed").DefMacro("answer", 0, func(*dispatch.Caller, []*syntax.Node) (*syntax.Node, error) {
		return syntax.Int(42), nil
	})
	manifest := &modules.Manifest{Units: []modules.Unit{{
		Name:    "main",
		Module:  "app",
		Imports: []modules.ImportSpec{{Module: "embed"}},
	}}}
	viper.Set("world", "ignored.yaml")
	t.Cleanup(func() { viper.Set("world", "") })

	stdout, _, err := runExpand(t, []string{"-e", "(answer)"}, WithWorld(reg, manifest))
	require.NoError(t, err)
	assert.Equal(t, "42\n", stdout)
}
