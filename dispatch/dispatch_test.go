// Copyright © 2018 The ELPS authors

package dispatch

import (
	"bytes"
	"testing"

	"github.com/luthersystems/macrodispatch/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imp(module string, sigs ...Signature) Import {
	return Import{Module: module, Signatures: NewSignatureSet(sigs...)}
}

func TestFindDispatch(t *testing.T) {
	foo := Sig("foo", 2)
	tests := []struct {
		name  string
		extra []Import
		env   Env
		want  Dispatch
		err   string
	}{
		{
			name: "none",
			env:  Env{Functions: []Import{imp("X", Sig("foo", 1))}},
			want: Dispatch{Kind: DispatchNone},
		},
		{
			name: "function",
			env:  Env{Functions: []Import{imp("W", Sig("bar", 2)), imp("X", foo)}},
			want: Dispatch{Kind: DispatchFunction, Module: "X"},
		},
		{
			name: "macro",
			env:  Env{Macros: []Import{imp("M", foo)}},
			want: Dispatch{Kind: DispatchMacro, Module: "M"},
		},
		{
			name:  "extra macro candidate",
			extra: []Import{imp("E", foo)},
			env:   Env{},
			want:  Dispatch{Kind: DispatchMacro, Module: "E"},
		},
		{
			name: "ambiguous functions in import order",
			env:  Env{Functions: []Import{imp("X", foo), imp("Y", foo)}},
			err:  "function `foo/2` imported from both `X` and `Y`, call is ambiguous",
		},
		{
			name: "ambiguous function and macro",
			env: Env{
				Functions: []Import{imp("F", foo)},
				Macros:    []Import{imp("M", foo)},
			},
			err: "function `foo/2` imported from both `F` and `M`, call is ambiguous",
		},
		{
			name:  "ambiguous reports first two candidates",
			extra: []Import{imp("E", foo)},
			env: Env{
				Functions: []Import{imp("F", foo)},
				Macros:    []Import{imp("M", foo), imp("N", foo)},
			},
			err: "function `foo/2` imported from both `F` and `E`, call is ambiguous",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d, err := FindDispatch(nil, foo, test.extra, test.env)
			if test.err != "" {
				require.Error(t, err)
				assert.Equal(t, test.err, err.Error())
				var aerr *AmbiguousCallError
				assert.ErrorAs(t, err, &aerr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, d)
		})
	}
}

func TestFindDispatch_ImportOverride(t *testing.T) {
	env := Env{Functions: []Import{imp("X", Sig("foo", 0)), imp("Y", Sig("foo", 0))}}

	trusted := &syntax.CallMeta{ImportOverride: "Z", Context: "Z"}
	d, err := FindDispatch(trusted, Sig("foo", 0), nil, env)
	require.NoError(t, err)
	assert.Equal(t, Dispatch{Kind: DispatchImportOverride, Module: "Z"}, d)

	// Without a context marker the override is ignored entirely.
	stale := &syntax.CallMeta{ImportOverride: "Z"}
	_, errStale := FindDispatch(stale, Sig("foo", 0), nil, env)
	_, errNone := FindDispatch(nil, Sig("foo", 0), nil, env)
	require.Error(t, errStale)
	assert.Equal(t, errNone, errStale)

	env = Env{Macros: []Import{imp("M", Sig("bar", 1))}}
	for _, meta := range []*syntax.CallMeta{nil, {}, {ImportOverride: "Q"}, {ImportOverride: "Q", RequireOverride: true}} {
		d, err := FindDispatch(meta, Sig("bar", 1), nil, env)
		require.NoError(t, err)
		assert.Equal(t, Dispatch{Kind: DispatchMacro, Module: "M"}, d)
	}
}

func TestFindDispatch_Idempotent(t *testing.T) {
	env := Env{
		Functions: []Import{imp("A", Sig("f", 1)), imp("B", Sig("g", 1))},
		Macros:    []Import{imp("C", Sig("h", 1))},
	}
	for _, sig := range []Signature{Sig("f", 1), Sig("g", 1), Sig("h", 1), Sig("i", 1)} {
		d1, err1 := FindDispatch(nil, sig, nil, env)
		d2, err2 := FindDispatch(nil, sig, nil, env)
		assert.Equal(t, d1, d2)
		assert.Equal(t, err1, err2)
	}
}

func TestIsBuiltin(t *testing.T) {
	assert.True(t, IsBuiltin("abs", 1))
	assert.True(t, IsBuiltin("apply", 3))
	assert.True(t, IsBuiltin("make_ref", 0))
	assert.True(t, IsBuiltin("unlink", 1))
	assert.False(t, IsBuiltin("abs", 2))
	assert.False(t, IsBuiltin("+", 2), "operators are not short-circuited")
	assert.False(t, IsBuiltin("==", 2))
	assert.False(t, IsBuiltin("", 0))
}

func TestBuiltins_SortedAndUnique(t *testing.T) {
	sigs := Builtins()
	assert.Len(t, sigs, 65)
	for i := 1; i < len(sigs); i++ {
		assert.True(t, sigs[i-1].less(sigs[i]), "%v before %v", sigs[i-1], sigs[i])
	}
	// Builtins returns a copy.
	sigs[0] = Sig("mutated", 9)
	assert.False(t, IsBuiltin("mutated", 9))
}

func TestParseSignature(t *testing.T) {
	sig, err := ParseSignature("foo/2")
	require.NoError(t, err)
	assert.Equal(t, Sig("foo", 2), sig)

	sig, err = ParseSignature("//1")
	require.NoError(t, err)
	assert.Equal(t, Sig("/", 1), sig)

	for _, bad := range []string{"", "foo", "foo/", "/2", "foo/x", "foo/-1"} {
		_, err := ParseSignature(bad)
		assert.Error(t, err, bad)
	}
}

func TestEnvValidate(t *testing.T) {
	env := Env{Functions: []Import{imp("A"), imp("B")}, Macros: []Import{imp("A")}}
	assert.NoError(t, env.Validate())

	env.Macros = append(env.Macros, imp("A"))
	assert.EqualError(t, env.Validate(), "duplicate macro import table for module A")
}

func TestEnvIsValue(t *testing.T) {
	env := Env{Module: "A", Line: 3, HygieneCounter: 4, Requires: []string{"B"}}
	next := env.WithCounter(5).AtLine(9)
	assert.Equal(t, 4, env.HygieneCounter)
	assert.Equal(t, 3, env.Line)
	assert.Equal(t, 5, next.HygieneCounter)
	assert.Equal(t, 9, next.Line)
	assert.True(t, next.Required("B"))
	assert.False(t, next.Required("C"))
}

func TestPruneTrace(t *testing.T) {
	caller := &Caller{Line: 7}
	synthetic := CallFrame{Module: "M", Name: "f", Arity: 2}
	frames := func(fs ...CallFrame) *CallStack { return &CallStack{Frames: fs} }
	names := func(s *CallStack) []string {
		var out []string
		for i := range s.Frames {
			out = append(out, s.Frames[i].QualifiedFunName())
		}
		return out
	}

	tests := []struct {
		name  string
		trace *CallStack
		want  []string
	}{
		{
			name:  "empty trace",
			trace: nil,
			want:  []string{"M.f/2"},
		},
		{
			name: "marker frame",
			trace: frames(
				CallFrame{Name: "driver", Arity: -1},
				CallFrame{Module: "M", Name: "body", Arity: 1, Marker: caller},
				CallFrame{Module: "H", Name: "helper", Arity: 1},
				CallFrame{Module: "H", Name: "inner", Arity: 0},
			),
			want: []string{"M.f/2", "H.helper/1", "H.inner/0"},
		},
		{
			name: "internal frame",
			trace: frames(
				CallFrame{Name: "outer", Arity: -1},
				CallFrame{Name: "callMacro", Arity: -1, Internal: true},
				CallFrame{Module: "H", Name: "helper", Arity: 1},
			),
			want: []string{"M.f/2", "H.helper/1"},
		},
		{
			name: "most recent match wins",
			trace: frames(
				CallFrame{Name: "a", Arity: -1, Internal: true},
				CallFrame{Name: "b", Arity: -1},
				CallFrame{Name: "c", Arity: -1, Marker: caller},
				CallFrame{Name: "d", Arity: -1},
			),
			want: []string{"M.f/2", "d"},
		},
		{
			name: "no match",
			trace: frames(
				CallFrame{Name: "a", Arity: -1},
				CallFrame{Name: "b", Arity: -1, Marker: &Caller{Line: 7}},
			),
			want: []string{"M.f/2", "a", "b"},
		},
		{
			name: "nested synthetic frame is demoted",
			trace: frames(
				CallFrame{Module: "N", Name: "g", Arity: 0, Synthetic: true},
				CallFrame{Name: "x", Arity: -1},
			),
			want: []string{"M.f/2", "N.g/0", "x"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pruned := PruneTrace(test.trace, caller, synthetic)
			assert.Equal(t, test.want, names(pruned))
			count := 0
			for _, f := range pruned.Frames {
				if f.Synthetic {
					count++
				}
			}
			assert.Equal(t, 1, count, "exactly one synthetic frame")
			assert.True(t, pruned.Bottom().Synthetic)
		})
	}
}

func TestCallStackDebugPrint(t *testing.T) {
	s := PruneTrace(&CallStack{Frames: []CallFrame{{Name: "helper", Arity: 1, Module: "H"}}},
		nil, CallFrame{Module: "M", Name: "f", Arity: 0})
	var buf bytes.Buffer
	_, err := s.DebugPrint(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Stack Trace [2 frames -- entrypoint last]:\n"+
		"  height 1: H.helper/1\n"+
		"  height 0: M.f/0 [macro call]\n", buf.String())
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  Error
		cond string
		msg  string
	}{
		{
			&UnrequiredModuleError{Module: "Mod", Name: "some_macro", Arity: 1},
			CondUnrequiredModule,
			"you must require `Mod` before invoking the macro `Mod.some_macro/1`",
		},
		{
			&MacroConflictError{Module: "B", Name: "m", Arity: 1},
			CondMacroConflict,
			"call to local macro `m/1` conflicts with imported `B.m/1`, please rename the local macro or remove the conflicting import",
		},
		{
			&AmbiguousCallError{Name: "foo", Arity: 2, First: "X", Second: "Y"},
			CondAmbiguousCall,
			"function `foo/2` imported from both `X` and `Y`, call is ambiguous",
		},
		{
			&UndefinedMacroError{Module: "M", Name: "g", Arity: 0},
			CondUndefinedMacro,
			"undefined macro `M.g/0`",
		},
	}
	for _, test := range tests {
		assert.Equal(t, test.msg, test.err.Error())
		assert.Equal(t, test.cond, test.err.Condition())
	}
}
