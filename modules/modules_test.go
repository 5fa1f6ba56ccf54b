// Copyright © 2018 The ELPS authors

package modules

import (
	"strings"
	"sync"
	"testing"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
kernel: true
modules:
  - name: lists
    functions: [map/2, filter/2, "reduce/3"]
    macros:
      - name: swap
        arity: 2
        body: "(pair $2 $1)"
      - name: here
        arity: 0
        body: "$line"
      - name: helper
        arity: 1
        body: "(inner $1)"
        private: true
  - name: legacy
    functions: [old/0]
    unloadable: true
  - name: opaque
    macros:
      - {name: m, arity: 0, body: "(x)"}
    no_metadata: true
units:
  - name: main
    module: app
    function: run/1
    file: app.src
    imports:
      - module: lists
        except: [filter/2]
      - module: Kernel
        only: [abs/1, unless/2]
    requires: [lists]
  - name: second
    module: other
`

func loadTestManifest(t *testing.T) (*Registry, *Manifest) {
	m, err := LoadManifest(strings.NewReader(testManifest))
	require.NoError(t, err)
	r, err := m.Registry()
	require.NoError(t, err)
	return r, m
}

func TestRegistryDefine(t *testing.T) {
	r := NewRegistry()
	a := r.Define("A")
	assert.Same(t, a, r.Define("A"))
	r.Define("C")
	r.Define("B")
	assert.Equal(t, []string{"A", "B", "C"}, r.Names())
	assert.Equal(t, "module A", a.String())

	_, ok := r.Module("D")
	assert.False(t, ok)
}

func TestRegistryConcurrentDefine(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Define("M").DefFunction("f", i)
		}(i)
	}
	wg.Wait()
	m, ok := r.Module("M")
	require.True(t, ok)
	assert.Len(t, m.Functions(), 50)
}

func TestRegistryLoad(t *testing.T) {
	r, _ := loadTestManifest(t)

	mod, ok := r.Load("lists")
	require.True(t, ok)
	assert.Equal(t, "lists", mod.Name())
	sigs, ok := mod.MacroSignatures()
	require.True(t, ok)
	assert.Equal(t, []dispatch.Signature{dispatch.Sig("here", 0), dispatch.Sig("swap", 2)}, sigs.Sorted())

	_, ok = mod.Macro(dispatch.Sig("helper", 1))
	assert.False(t, ok, "private macros are not exported")
	_, ok = r.LocalMacro("lists", dispatch.Sig("helper", 1))
	assert.True(t, ok, "private macros are visible locally")
	_, ok = r.LocalMacro("missing", dispatch.Sig("helper", 1))
	assert.False(t, ok)

	_, ok = r.Load("legacy")
	assert.False(t, ok)
	_, ok = r.Module("legacy")
	assert.True(t, ok)

	mod, ok = r.Load("opaque")
	require.True(t, ok)
	_, ok = mod.MacroSignatures()
	assert.False(t, ok)
	_, ok = mod.Macro(dispatch.Sig("m", 0))
	assert.True(t, ok)
}

func TestKernel(t *testing.T) {
	r := NewStandardRegistry()
	k, ok := r.Module(dispatch.BuiltinModule)
	require.True(t, ok)
	funs := k.Functions()
	for _, sig := range dispatch.Builtins() {
		assert.True(t, funs.Contains(sig), sig.String())
	}
	assert.True(t, funs.Contains(dispatch.Sig("raise", 1)))
	assert.True(t, k.Macros().Contains(dispatch.Sig("unless", 2)))

	unless, ok := k.Macro(dispatch.Sig("unless", 2))
	require.True(t, ok)
	v, err := unless(&dispatch.Caller{Line: 1}, []*syntax.Node{syntax.Symbol("c"), syntax.Symbol("body")})
	require.NoError(t, err)
	assert.Equal(t, "(if (not c) body)", v.String())

	let1, ok := k.Macro(dispatch.Sig("let1", 3))
	require.True(t, ok)
	v, err = let1(&dispatch.Caller{Line: 1}, []*syntax.Node{syntax.Symbol("x"), syntax.Int(1), syntax.Symbol("x")})
	require.NoError(t, err)
	assert.Equal(t, "(let ((tmp 1)) (let ((x tmp)) x))", v.String())
}

func TestTemplate(t *testing.T) {
	body := syntax.Call("pair", syntax.Symbol("$2"), syntax.Call("at", syntax.Symbol("$line")), syntax.Symbol("$1"))
	fun := Template("M", "swap", 2, body)
	a, b := syntax.Symbol("a"), syntax.Symbol("b")
	v, err := fun(&dispatch.Caller{Line: 17}, []*syntax.Node{a, b})
	require.NoError(t, err)
	assert.Equal(t, "(pair b (at 17) a)", v.String())
	assert.Same(t, b, v.Children[1], "arguments are substituted in place")
	assert.NotSame(t, body, v)
	assert.Equal(t, "(pair $2 (at $line) $1)", body.String())

	fun = Template("M", "bad", 1, syntax.Symbol("$2"))
	_, err = fun(&dispatch.Caller{}, []*syntax.Node{a})
	assert.EqualError(t, err, "placeholder $2 out of range for 1 arguments")

	fun = Template("M", "fail", 0, syntax.Call("raise", syntax.String("nope")))
	caller := &dispatch.Caller{Line: 3}
	_, err = fun(caller, nil)
	var terr *dispatch.TraceError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "nope", terr.Error())
	require.Len(t, terr.Stack.Frames, 2)
	assert.Same(t, caller, terr.Stack.Frames[0].Marker)
	assert.Equal(t, "Kernel.raise/1", terr.Stack.Top().QualifiedFunName())

	fun = Template("M", "boom", 0, syntax.Call("panic"))
	assert.PanicsWithValue(t, "panic called with 0 arguments", func() {
		_, _ = fun(caller, nil)
	})
}

func TestManifestUnitEnv(t *testing.T) {
	r, m := loadTestManifest(t)
	u, ok := m.Unit("main")
	require.True(t, ok)
	env, err := r.UnitEnv(u)
	require.NoError(t, err)

	assert.Equal(t, "app", env.Module)
	assert.Equal(t, "app.src", env.File)
	require.NotNil(t, env.Function)
	assert.Equal(t, dispatch.Sig("run", 1), *env.Function)
	assert.Equal(t, []string{"lists"}, env.Requires)

	require.Len(t, env.Functions, 2)
	assert.Equal(t, "lists", env.Functions[0].Module)
	assert.Equal(t, []dispatch.Signature{dispatch.Sig("map", 2), dispatch.Sig("reduce", 3)}, env.Functions[0].Signatures.Sorted())
	assert.Equal(t, []dispatch.Signature{dispatch.Sig("abs", 1)}, env.Functions[1].Signatures.Sorted())
	require.Len(t, env.Macros, 2)
	assert.Equal(t, []dispatch.Signature{dispatch.Sig("here", 0), dispatch.Sig("swap", 2)}, env.Macros[0].Signatures.Sorted())
	assert.Equal(t, []dispatch.Signature{dispatch.Sig("unless", 2)}, env.Macros[1].Signatures.Sorted())

	first, ok := m.Unit("")
	require.True(t, ok)
	assert.Equal(t, "main", first.Name)
	_, ok = m.Unit("missing")
	assert.False(t, ok)

	u, ok = m.Unit("second")
	require.True(t, ok)
	env, err = r.UnitEnv(u)
	require.NoError(t, err)
	assert.Nil(t, env.Function)
	assert.Empty(t, env.Functions)
}

func TestManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		err      string
	}{
		{"unknown field", "modules:\n  - name: a\n    bogus: 1\n", "invalid manifest"},
		{"unnamed module", "modules:\n  - functions: [f/1]\n", "module without a name"},
		{"bad signature", "modules:\n  - name: a\n    functions: [f]\n", `module a: invalid signature "f"`},
		{"bad body", "modules:\n  - name: a\n    macros:\n      - {name: m, arity: 0, body: \"(x\"}\n", "module a: macro m/0"},
		{"two forms", "modules:\n  - name: a\n    macros:\n      - {name: m, arity: 0, body: \"x y\"}\n", "body must be a single form"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, err := LoadManifest(strings.NewReader(test.manifest))
			if err == nil {
				_, err = m.Registry()
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)
		})
	}

	m, err := LoadManifest(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, m.Modules)

	r := NewRegistry()
	_, err = r.UnitEnv(Unit{Name: "u", Imports: []ImportSpec{{Module: "nope"}}})
	assert.EqualError(t, err, "unit u: cannot import unknown module nope")

	r.Define("A").DefFunction("f", 0)
	_, err = r.UnitEnv(Unit{Name: "u", Imports: []ImportSpec{{Module: "A"}, {Module: "A"}}})
	assert.EqualError(t, err, "unit u: duplicate function import table for module A")

	_, err = r.UnitEnv(Unit{Name: "u", Function: "bad"})
	assert.Error(t, err)
}

func TestLoadManifestFile(t *testing.T) {
	_, err := LoadManifestFile("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
