// Copyright © 2018 The ELPS authors

package modules

import (
	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/syntax"
)

// DefineKernel defines dispatch.BuiltinModule in r.  Every native primitive
// is exported as a function alongside a small set of macros.
func DefineKernel(r *Registry) *Module {
	k := r.Define(dispatch.BuiltinModule)
	for _, sig := range dispatch.Builtins() {
		k.DefFunction(sig.Name, sig.Arity)
	}
	k.DefFunction("raise", 1)
	k.DefFunction("not", 1)
	k.DefMacro("unless", 2, Template(k.Name(), "unless", 2,
		syntax.Call("if", syntax.Call("not", syntax.Symbol("$1")), syntax.Symbol("$2"))))
	k.DefMacro("current_line", 0, Template(k.Name(), "current_line", 0, syntax.Symbol("$line")))
	k.DefMacro("let1", 3, let1)
	return k
}

// NewStandardRegistry returns a registry containing the kernel module.
func NewStandardRegistry() *Registry {
	r := NewRegistry()
	DefineKernel(r)
	return r
}

// let1 expands (let1 name value body) to a binding of a fresh variable.
// The variable introduced by the expansion is hygienic: the body, which
// comes from the call site, cannot refer to it.
func let1(_ *dispatch.Caller, args []*syntax.Node) (*syntax.Node, error) {
	tmp := syntax.Symbol("tmp")
	return syntax.Call("let",
		syntax.List(syntax.List(tmp, args[1])),
		syntax.Call("let",
			syntax.List(syntax.List(args[0], syntax.Symbol("tmp"))),
			args[2])), nil
}
