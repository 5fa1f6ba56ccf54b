// Copyright © 2018 The ELPS authors

package dispatch

import (
	"fmt"

	"github.com/luthersystems/macrodispatch/parser/token"
)

// Env is the compile-time environment at a call site.  An Env is a value:
// expanding a macro never modifies the Env it was given and instead returns
// an updated copy carrying the advanced hygiene counter.
type Env struct {
	// Module is the module being compiled.  It is empty for top-level
	// scripts.
	Module string

	// Function is the function whose body is being compiled, if any.
	Function *Signature

	File string
	Line int

	// Functions and Macros are the imported tables in import order.
	Functions []Import
	Macros    []Import

	// Requires lists the modules whose macros may be called qualified.
	Requires []string

	// HygieneCounter identifies the latest macro expansion generation.
	HygieneCounter int
}

// Required reports whether module has been required.
func (env Env) Required(module string) bool {
	for _, m := range env.Requires {
		if m == module {
			return true
		}
	}
	return false
}

// Location returns the call-site location of env.
func (env Env) Location() *token.Location {
	return &token.Location{File: env.File, Line: env.Line}
}

// AtLine returns a copy of env positioned at line.
func (env Env) AtLine(line int) Env {
	env.Line = line
	return env
}

// WithCounter returns a copy of env with the given hygiene counter.
func (env Env) WithCounter(counter int) Env {
	env.HygieneCounter = counter
	return env
}

// Validate checks that no import table names the same module twice.
func (env Env) Validate() error {
	if err := uniqueModules("function", env.Functions); err != nil {
		return err
	}
	return uniqueModules("macro", env.Macros)
}

func uniqueModules(kind string, imports []Import) error {
	seen := make(map[string]bool, len(imports))
	for _, imp := range imports {
		if seen[imp.Module] {
			return fmt.Errorf("duplicate %s import table for module %s", kind, imp.Module)
		}
		seen[imp.Module] = true
	}
	return nil
}

func (env Env) caller() string {
	if env.Function == nil {
		return env.Module
	}
	return fmt.Sprintf("%s.%s", env.Module, env.Function)
}
