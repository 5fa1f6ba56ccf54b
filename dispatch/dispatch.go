// Copyright © 2018 The ELPS authors

package dispatch

import (
	"fmt"

	"github.com/luthersystems/macrodispatch/syntax"
)

// DispatchKind is the kind of binding a call resolves to.
type DispatchKind int

const (
	DispatchNone DispatchKind = iota
	DispatchFunction
	DispatchMacro
	DispatchImportOverride
)

var dispatchKindStrings = []string{
	DispatchNone:           "none",
	DispatchFunction:       "function",
	DispatchMacro:          "macro",
	DispatchImportOverride: "import-override",
}

func (k DispatchKind) String() string {
	if k < 0 || int(k) >= len(dispatchKindStrings) {
		return "invalid"
	}
	return dispatchKindStrings[k]
}

// Dispatch is the binding found for a call.  Module is empty for
// DispatchNone.
type Dispatch struct {
	Kind   DispatchKind
	Module string
}

func (d Dispatch) String() string {
	if d.Kind == DispatchNone {
		return d.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", d.Kind, d.Module)
}

// FindDispatch determines which import a call to sig refers to.  A trusted
// import override in meta wins outright.  Otherwise the function tables of
// env and the macro tables in extra followed by those of env are searched; a
// signature found in more than one table is ambiguous.
//
// FindDispatch is a pure function of its arguments.
func FindDispatch(meta *syntax.CallMeta, sig Signature, extra []Import, env Env) (Dispatch, error) {
	if mod, ok := meta.TrustedOverride(); ok {
		return Dispatch{Kind: DispatchImportOverride, Module: mod}, nil
	}
	funs := matching(env.Functions, sig)
	macs := append(matching(extra, sig), matching(env.Macros, sig)...)
	switch {
	case len(funs) == 0 && len(macs) == 1:
		return Dispatch{Kind: DispatchMacro, Module: macs[0]}, nil
	case len(funs) == 1 && len(macs) == 0:
		return Dispatch{Kind: DispatchFunction, Module: funs[0]}, nil
	case len(funs) == 0 && len(macs) == 0:
		return Dispatch{Kind: DispatchNone}, nil
	}
	all := append(funs, macs...)
	return Dispatch{}, &AmbiguousCallError{
		Name:   sig.Name,
		Arity:  sig.Arity,
		First:  all[0],
		Second: all[1],
		Source: env.Location(),
	}
}

// ActionKind is the kind of an Action.
type ActionKind int

const (
	ActionInvalid ActionKind = iota
	// ActionRemote is a call to a function in another module.
	ActionRemote
	// ActionLocal is a call to a function in the current module.
	ActionLocal
	// ActionExpanded is a macro call replaced by its expansion.
	ActionExpanded
)

var actionKindStrings = []string{
	ActionInvalid:  "invalid",
	ActionRemote:   "remote",
	ActionLocal:    "local",
	ActionExpanded: "expanded",
}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionKindStrings) {
		return actionKindStrings[ActionInvalid]
	}
	return actionKindStrings[k]
}

// Action is the outcome of resolving a call.  Env is the environment
// following the call; callers continue with it so that sibling expansions
// never share a hygiene counter.
type Action struct {
	Kind ActionKind

	// Module, Name, and Arity identify the endpoint of remote and local
	// calls.
	Module string
	Name   string
	Arity  int

	// Tree is the expansion of an ActionExpanded.
	Tree *syntax.Node

	Env Env
}

// Remote returns an Action calling module.name/arity.
func Remote(module string, sig Signature, env Env) Action {
	return Action{Kind: ActionRemote, Module: module, Name: sig.Name, Arity: sig.Arity, Env: env}
}

// Local returns an Action calling name/arity in the current module.
func Local(sig Signature, env Env) Action {
	return Action{Kind: ActionLocal, Module: env.Module, Name: sig.Name, Arity: sig.Arity, Env: env}
}

// Expanded returns an Action replacing a call with tree.
func Expanded(tree *syntax.Node, env Env) Action {
	return Action{Kind: ActionExpanded, Tree: tree, Env: env}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionRemote, ActionLocal:
		if a.Module == "" {
			return fmt.Sprintf("%s %s/%d", a.Kind, a.Name, a.Arity)
		}
		return fmt.Sprintf("%s %s.%s/%d", a.Kind, a.Module, a.Name, a.Arity)
	case ActionExpanded:
		return fmt.Sprintf("%s %s", a.Kind, a.Tree)
	default:
		return a.Kind.String()
	}
}

// Fallback decides the outcome of a call that does not resolve to a binding.
// It is invoked at most once per resolution.
type Fallback func() (Action, error)

// BindingFallback decides the outcome of a binding lookup that finds no
// import.
type BindingFallback func() (string, bool, error)

// Unbound is a BindingFallback reporting that no module binds the call.
func Unbound() (string, bool, error) {
	return "", false, nil
}
