// Copyright © 2018 The ELPS authors

// Package modules is an in-memory store of compiled module metadata.  It
// provides the module introspection and local macro lookup used by
// dispatch.Resolver, and builds call-site environments from import
// declarations.
package modules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/luthersystems/macrodispatch/dispatch"
)

var (
	_ dispatch.Introspector = (*Registry)(nil)
	_ dispatch.LocalMacros  = (*Registry)(nil)
	_ dispatch.Module       = (*Module)(nil)
)

// Registry contains a set of modules.  A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewRegistry initializes and returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]*Module),
	}
}

// Define returns the module with the given name, creating it if necessary.
func (r *Registry) Define(name string) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[name]
	if ok {
		return m
	}
	m = newModule(name)
	r.modules[name] = m
	return m
}

// Module returns the named module regardless of whether it can be loaded.
func (r *Registry) Module(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns the names of all modules in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load implements dispatch.Introspector.
func (r *Registry) Load(name string) (dispatch.Module, bool) {
	m, ok := r.Module(name)
	if !ok || m.Unloadable() {
		return nil, false
	}
	return m, true
}

// LocalMacro implements dispatch.LocalMacros.  Private macros are visible to
// their own module.
func (r *Registry) LocalMacro(module string, sig dispatch.Signature) (dispatch.MacroFunc, bool) {
	m, ok := r.Module(module)
	if !ok {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.macros[sig]
	if !ok {
		return nil, false
	}
	return def.fun, true
}

// Module is the metadata of one compiled module.
type Module struct {
	name string

	mu         sync.RWMutex
	functions  dispatch.SignatureSet
	macros     map[dispatch.Signature]macroDef
	unloadable bool
	noMetadata bool
}

type macroDef struct {
	fun     dispatch.MacroFunc
	private bool
}

func newModule(name string) *Module {
	return &Module{
		name:      name,
		functions: make(dispatch.SignatureSet),
		macros:    make(map[dispatch.Signature]macroDef),
	}
}

// Name implements dispatch.Module.
func (m *Module) Name() string {
	return m.name
}

// DefFunction declares an exported function.
func (m *Module) DefFunction(name string, arity int) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.functions[dispatch.Sig(name, arity)] = struct{}{}
	return m
}

// DefMacro defines an exported macro.
func (m *Module) DefMacro(name string, arity int, fun dispatch.MacroFunc) *Module {
	return m.defMacro(name, arity, fun, false)
}

// DefPrivateMacro defines a macro visible only within m.
func (m *Module) DefPrivateMacro(name string, arity int, fun dispatch.MacroFunc) *Module {
	return m.defMacro(name, arity, fun, true)
}

func (m *Module) defMacro(name string, arity int, fun dispatch.MacroFunc, private bool) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.macros[dispatch.Sig(name, arity)] = macroDef{fun: fun, private: private}
	return m
}

// SetUnloadable controls whether the module can be located by Load.
func (m *Module) SetUnloadable(v bool) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloadable = v
	return m
}

// Unloadable reports whether Load fails to locate the module.
func (m *Module) Unloadable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unloadable
}

// SetNoMetadata controls whether the module publishes its macros.
func (m *Module) SetNoMetadata(v bool) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noMetadata = v
	return m
}

// Functions returns the exported functions of m.
func (m *Module) Functions() dispatch.SignatureSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(dispatch.SignatureSet, len(m.functions))
	for sig := range m.functions {
		set[sig] = struct{}{}
	}
	return set
}

// Macros returns the exported macros of m, whether or not m publishes them.
func (m *Module) Macros() dispatch.SignatureSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(dispatch.SignatureSet, len(m.macros))
	for sig, def := range m.macros {
		if !def.private {
			set[sig] = struct{}{}
		}
	}
	return set
}

// MacroSignatures implements dispatch.Module.
func (m *Module) MacroSignatures() (dispatch.SignatureSet, bool) {
	m.mu.RLock()
	noMetadata := m.noMetadata
	m.mu.RUnlock()
	if noMetadata {
		return nil, false
	}
	return m.Macros(), true
}

// Macro implements dispatch.Module.  Private macros are not returned.
func (m *Module) Macro(sig dispatch.Signature) (dispatch.MacroFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.macros[sig]
	if !ok || def.private {
		return nil, false
	}
	return def.fun, true
}

func (m *Module) String() string {
	return fmt.Sprintf("module %s", m.name)
}
