// Copyright © 2018 The ELPS authors

package modules

import (
	"fmt"
	"io"
	"os"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/parser"
	"gopkg.in/yaml.v3"
)

// Manifest describes a set of compiled modules and the compilation units
// that use them.
type Manifest struct {
	// Kernel defines dispatch.BuiltinModule before any listed module.
	Kernel  bool         `yaml:"kernel"`
	Modules []ModuleSpec `yaml:"modules"`
	Units   []Unit       `yaml:"units"`
}

// ModuleSpec declares a module.
type ModuleSpec struct {
	Name       string      `yaml:"name"`
	Functions  []string    `yaml:"functions"`
	Macros     []MacroSpec `yaml:"macros"`
	Unloadable bool        `yaml:"unloadable"`
	NoMetadata bool        `yaml:"no_metadata"`
}

// MacroSpec declares a template macro.  See Template.
type MacroSpec struct {
	Name    string `yaml:"name"`
	Arity   int    `yaml:"arity"`
	Body    string `yaml:"body"`
	Private bool   `yaml:"private"`
}

// Unit describes the environment of a compilation unit.
type Unit struct {
	Name     string       `yaml:"name"`
	Module   string       `yaml:"module"`
	Function string       `yaml:"function"`
	File     string       `yaml:"file"`
	Imports  []ImportSpec `yaml:"imports"`
	Requires []string     `yaml:"requires"`
}

// ImportSpec imports the functions and macros of a module.  When Only is
// non-empty just the listed signatures are imported.  Signatures in Except
// are never imported.
type ImportSpec struct {
	Module string   `yaml:"module"`
	Only   []string `yaml:"only"`
	Except []string `yaml:"except"`
}

// LoadManifest decodes a manifest from r.
func LoadManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	m := &Manifest{}
	err := dec.Decode(m)
	if err == io.EOF {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

// LoadManifestFile decodes the manifest stored at path.
func LoadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path) //#nosec G304
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := LoadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Registry builds a registry containing the modules declared by m.
func (m *Manifest) Registry() (*Registry, error) {
	r := NewRegistry()
	if m.Kernel {
		DefineKernel(r)
	}
	for _, spec := range m.Modules {
		if spec.Name == "" {
			return nil, fmt.Errorf("module without a name")
		}
		mod := r.Define(spec.Name)
		for _, s := range spec.Functions {
			sig, err := dispatch.ParseSignature(s)
			if err != nil {
				return nil, fmt.Errorf("module %s: %w", spec.Name, err)
			}
			mod.DefFunction(sig.Name, sig.Arity)
		}
		for _, ms := range spec.Macros {
			forms, err := parser.ParseString(spec.Name+"."+ms.Name, ms.Body)
			if err != nil {
				return nil, fmt.Errorf("module %s: macro %s/%d: %w", spec.Name, ms.Name, ms.Arity, err)
			}
			if len(forms) != 1 {
				return nil, fmt.Errorf("module %s: macro %s/%d: body must be a single form", spec.Name, ms.Name, ms.Arity)
			}
			fun := Template(spec.Name, ms.Name, ms.Arity, forms[0])
			if ms.Private {
				mod.DefPrivateMacro(ms.Name, ms.Arity, fun)
			} else {
				mod.DefMacro(ms.Name, ms.Arity, fun)
			}
		}
		mod.SetUnloadable(spec.Unloadable)
		mod.SetNoMetadata(spec.NoMetadata)
	}
	return r, nil
}

// Unit returns the named unit.  When name is empty the first unit is
// returned.
func (m *Manifest) Unit(name string) (Unit, bool) {
	for _, u := range m.Units {
		if name == "" || u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

// UnitEnv builds the environment at the start of unit u.
func (r *Registry) UnitEnv(u Unit) (dispatch.Env, error) {
	env := dispatch.Env{
		Module:   u.Module,
		File:     u.File,
		Requires: append([]string(nil), u.Requires...),
	}
	if u.Function != "" {
		sig, err := dispatch.ParseSignature(u.Function)
		if err != nil {
			return dispatch.Env{}, fmt.Errorf("unit %s: %w", u.Name, err)
		}
		env.Function = &sig
	}
	for _, spec := range u.Imports {
		funs, macs, err := r.ImportTables(spec)
		if err != nil {
			return dispatch.Env{}, fmt.Errorf("unit %s: %w", u.Name, err)
		}
		if len(funs.Signatures) > 0 {
			env.Functions = append(env.Functions, funs)
		}
		if len(macs.Signatures) > 0 {
			env.Macros = append(env.Macros, macs)
		}
	}
	if err := env.Validate(); err != nil {
		return dispatch.Env{}, fmt.Errorf("unit %s: %w", u.Name, err)
	}
	return env, nil
}

// ImportTables returns the function and macro tables brought into scope by
// spec.
func (r *Registry) ImportTables(spec ImportSpec) (funs dispatch.Import, macs dispatch.Import, err error) {
	mod, ok := r.Module(spec.Module)
	if !ok {
		return funs, macs, fmt.Errorf("cannot import unknown module %s", spec.Module)
	}
	only, err := signatureSet(spec.Only)
	if err != nil {
		return funs, macs, err
	}
	except, err := signatureSet(spec.Except)
	if err != nil {
		return funs, macs, err
	}
	keep := func(set dispatch.SignatureSet) dispatch.SignatureSet {
		out := make(dispatch.SignatureSet)
		for sig := range set {
			if len(only) > 0 && !only.Contains(sig) {
				continue
			}
			if except.Contains(sig) {
				continue
			}
			out[sig] = struct{}{}
		}
		return out
	}
	funs = dispatch.Import{Module: spec.Module, Signatures: keep(mod.Functions())}
	macs = dispatch.Import{Module: spec.Module, Signatures: keep(mod.Macros())}
	return funs, macs, nil
}

func signatureSet(sigs []string) (dispatch.SignatureSet, error) {
	set := make(dispatch.SignatureSet, len(sigs))
	for _, s := range sigs {
		sig, err := dispatch.ParseSignature(s)
		if err != nil {
			return nil, err
		}
		set[sig] = struct{}{}
	}
	return set, nil
}
