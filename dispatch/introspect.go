// Copyright © 2018 The ELPS authors

package dispatch

import "github.com/luthersystems/macrodispatch/syntax"

// Caller is the environment a macro receives when it is invoked.
type Caller struct {
	Line int
}

// MacroFunc computes the expansion of a macro call.  Arguments are the
// unexpanded trees from the call site.
type MacroFunc func(caller *Caller, args []*syntax.Node) (*syntax.Node, error)

// Module is compiled module metadata.
type Module interface {
	Name() string

	// MacroSignatures returns the macros published by the module.  The
	// second result is false if the module does not publish macro
	// metadata.
	MacroSignatures() (SignatureSet, bool)

	// Macro returns the implementation of a published macro.
	Macro(sig Signature) (MacroFunc, bool)
}

// Introspector locates compiled modules.
type Introspector interface {
	// Load returns the named module or false if it cannot be located.
	Load(module string) (Module, bool)
}

// LocalMacros looks up macros defined by the module being compiled whose
// bodies are already available.
type LocalMacros interface {
	LocalMacro(module string, sig Signature) (MacroFunc, bool)
}

// MacroSet returns the macros exported by module.  Modules which cannot be
// loaded and modules without macro metadata export no macros.
func MacroSet(intro Introspector, module string) SignatureSet {
	if module == NativeModule || intro == nil {
		return nil
	}
	mod, ok := intro.Load(module)
	if !ok {
		return nil
	}
	set, ok := mod.MacroSignatures()
	if !ok {
		return nil
	}
	return set
}

type noModules struct{}

func (noModules) Load(string) (Module, bool) { return nil, false }
