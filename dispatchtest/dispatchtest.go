// Copyright © 2018 The ELPS authors

// Package dispatchtest provides helpers for testing macro resolution against
// fixture modules.
package dispatchtest

import (
	"context"
	"strings"
	"testing"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/expander"
	"github.com/luthersystems/macrodispatch/modules"
	"github.com/luthersystems/macrodispatch/parser"
)

// World loads a manifest written in YAML and returns the registry it
// declares.
func World(t testing.TB, manifest string) (*modules.Registry, *modules.Manifest) {
	t.Helper()
	m, err := modules.LoadManifest(strings.NewReader(manifest))
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}
	reg, err := m.Registry()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return reg, m
}

// UnitEnv returns the environment of the named unit of m.
func UnitEnv(t testing.TB, reg *modules.Registry, m *modules.Manifest, unit string) dispatch.Env {
	t.Helper()
	u, ok := m.Unit(unit)
	if !ok {
		t.Fatalf("unknown unit: %q", unit)
	}
	env, err := reg.UnitEnv(u)
	if err != nil {
		t.Fatalf("failed to build unit environment: %v", err)
	}
	return env
}

// NewExpander returns an expander resolving against reg and logging to t.
func NewExpander(t testing.TB, reg *modules.Registry, opts ...dispatch.Option) *expander.Expander {
	ropts := append([]dispatch.Option{
		dispatch.WithIntrospector(reg),
		dispatch.WithLocalMacros(reg),
	}, opts...)
	return expander.New(
		expander.WithLogger(NewLogrus(t)),
		expander.WithResolverOptions(ropts...),
	)
}

// TestSuite is a set of named test sequences.
type TestSuite []struct {
	Name string
	TestSequence
}

// TestSequence is a sequence of forms expanded one after another in the
// same unit.  Result is the printed expansion, or the error message when
// expansion fails.
type TestSequence []struct {
	Expr   string
	Result string
}

// RunTestSuite expands each sequence of tests with a fresh expander in the
// environment of unit.
func RunTestSuite(t *testing.T, tests TestSuite, manifest string, unit string) {
	for i, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			reg, m := World(t, manifest)
			env := UnitEnv(t, reg, m, unit)
			exp := NewExpander(t, reg)
			for j, expr := range test.TestSequence {
				forms, err := parser.ParseString("test", expr.Expr)
				if err != nil {
					t.Errorf("test %d %q: expr %d: parse error: %v", i, test.Name, j, err)
					continue
				}
				results, next := exp.ExpandAll(context.Background(), forms, env)
				env = next
				out := make([]string, len(results))
				for k, r := range results {
					if r.Err != nil {
						out[k] = r.Err.Error()
					} else {
						out[k] = r.Form.String()
					}
				}
				got := strings.Join(out, "\n")
				if got != expr.Result {
					t.Errorf("test %d %q: expr %d: expected result %q (got %q)", i, test.Name, j, expr.Result, got)
				}
			}
		})
	}
}
