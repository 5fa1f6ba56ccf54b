// Copyright © 2018 The ELPS authors

package dispatch

import (
	"fmt"

	"github.com/luthersystems/macrodispatch/parser/token"
)

// Condition names reported by resolver errors.
const (
	CondUnrequiredModule = "unrequired-module"
	CondMacroConflict    = "macro-conflict"
	CondAmbiguousCall    = "ambiguous-call"
	CondMacroInvocation  = "macro-invocation"
	CondUndefinedMacro   = "undefined-macro"
)

// Error is implemented by every error the resolver raises.
type Error interface {
	error
	// Condition returns the programmatic classification of the error.
	Condition() string
	// Location returns the call site the error is attributed to.
	Location() *token.Location
}

var (
	_ Error = (*UnrequiredModuleError)(nil)
	_ Error = (*MacroConflictError)(nil)
	_ Error = (*AmbiguousCallError)(nil)
	_ Error = (*MacroInvocationError)(nil)
	_ Error = (*UndefinedMacroError)(nil)
)

// UnrequiredModuleError is raised when a macro is invoked through a module
// that has not been required.
type UnrequiredModuleError struct {
	Module   string
	Name     string
	Arity    int
	Requires []string
	Source   *token.Location
}

func (e *UnrequiredModuleError) Error() string {
	return fmt.Sprintf("you must require `%s` before invoking the macro `%s.%s/%d`",
		e.Module, e.Module, e.Name, e.Arity)
}

func (e *UnrequiredModuleError) Condition() string         { return CondUnrequiredModule }
func (e *UnrequiredModuleError) Location() *token.Location { return e.Source }

// MacroConflictError is raised when a local macro has the same signature as
// an import.
type MacroConflictError struct {
	Module string // the import's module
	Name   string
	Arity  int
	Source *token.Location
}

func (e *MacroConflictError) Error() string {
	return fmt.Sprintf("call to local macro `%s/%d` conflicts with imported `%s.%s/%d`, "+
		"please rename the local macro or remove the conflicting import",
		e.Name, e.Arity, e.Module, e.Name, e.Arity)
}

func (e *MacroConflictError) Condition() string         { return CondMacroConflict }
func (e *MacroConflictError) Location() *token.Location { return e.Source }

// AmbiguousCallError is raised when a signature is imported from more than
// one module.  First and Second are the first two candidates in import
// order, functions before macros.
type AmbiguousCallError struct {
	Name   string
	Arity  int
	First  string
	Second string
	Source *token.Location
}

func (e *AmbiguousCallError) Error() string {
	return fmt.Sprintf("function `%s/%d` imported from both `%s` and `%s`, call is ambiguous",
		e.Name, e.Arity, e.First, e.Second)
}

func (e *AmbiguousCallError) Condition() string         { return CondAmbiguousCall }
func (e *AmbiguousCallError) Location() *token.Location { return e.Source }

// MacroInvocationError is raised when macro logic fails.  The message is the
// message of the original error, which is available through Unwrap, and
// Stack is the pruned trace of the failure.
type MacroInvocationError struct {
	Module string
	Name   string
	Arity  int
	Err    error
	Stack  *CallStack
	Source *token.Location
}

func (e *MacroInvocationError) Error() string {
	return e.Err.Error()
}

func (e *MacroInvocationError) Unwrap() error             { return e.Err }
func (e *MacroInvocationError) Condition() string         { return CondMacroInvocation }
func (e *MacroInvocationError) Location() *token.Location { return e.Source }

// UndefinedMacroError is raised when a module advertises a macro that has no
// implementation.
type UndefinedMacroError struct {
	Module string
	Name   string
	Arity  int
	Source *token.Location
}

func (e *UndefinedMacroError) Error() string {
	return fmt.Sprintf("undefined macro `%s.%s/%d`", e.Module, e.Name, e.Arity)
}

func (e *UndefinedMacroError) Condition() string         { return CondUndefinedMacro }
func (e *UndefinedMacroError) Location() *token.Location { return e.Source }
