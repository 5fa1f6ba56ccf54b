// Copyright © 2018 The ELPS authors

// Package dispatch decides what a call means.  Given a call at a point in a
// module, a Resolver determines whether it refers to a macro defined by the
// module itself, an imported function or macro, a macro of a required
// module, or a native primitive, and expands macro calls with hygiene.
package dispatch

import (
	"context"

	"github.com/luthersystems/macrodispatch/syntax"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Resolver resolves calls.  A Resolver holds no state that changes during
// resolution and may be used by concurrent compilations.
type Resolver struct {
	introspector Introspector
	locals       LocalMacros
	expander     Expander
	tracker      Tracker
	logger       logrus.FieldLogger
	tracer       trace.Tracer
}

// NewResolver returns a Resolver configured with opts.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.introspector == nil {
		r.introspector = noModules{}
	}
	if r.expander == nil {
		r.expander = ExpanderFunc(identityExpander)
	}
	if r.tracker == nil {
		r.tracker = nopTracker{}
	}
	if r.logger == nil {
		r.logger = defaultLogger()
	}
	if r.tracer == nil {
		r.tracer = defaultTracer()
	}
	return r
}

// MacroSet returns the macros exported by module.
func (r *Resolver) MacroSet(module string) SignatureSet {
	return MacroSet(r.introspector, module)
}

// FindDispatch is the package function FindDispatch.  It exists so that
// callers holding a Resolver need not import the dispatch rules separately.
func (r *Resolver) FindDispatch(meta *syntax.CallMeta, sig Signature, extra []Import, env Env) (Dispatch, error) {
	return FindDispatch(meta, sig, extra, env)
}

// FindBinding returns the module an unqualified call to sig is imported
// from, without expanding anything.  When no import provides sig the result
// is decided by fallback.
func (r *Resolver) FindBinding(meta *syntax.CallMeta, sig Signature, env Env, fallback BindingFallback) (string, bool, error) {
	d, err := FindDispatch(meta, sig, nil, env)
	if err != nil {
		return "", false, err
	}
	if d.Kind == DispatchNone {
		return fallback()
	}
	r.tracker.RecordImport(r.use(sig, d.Module, env))
	return d.Module, true, nil
}

// ResolveUnqualified resolves the call name(args...) made in env.  A trusted
// import override, or an import of the module being compiled, is expanded
// as an import.  A macro defined by the module being compiled is expanded
// unless an import has the same signature, which is an error.  Calls that
// resolve to nothing are decided by fallback.
func (r *Resolver) ResolveUnqualified(ctx context.Context, meta *syntax.CallMeta, name string, args []*syntax.Node, env Env, fallback Fallback) (Action, error) {
	sig := Signature{name, len(args)}
	d, err := FindDispatch(meta, sig, nil, env)
	if err != nil {
		return r.fail(ctx, err)
	}
	r.log(sig, env).WithField("dispatch", d.String()).Debug("dispatch found")
	recordResolution(ctx, d.Kind)
	if d.Kind == DispatchImportOverride || (d.Kind != DispatchNone && d.Module == env.Module) {
		return r.expandImport(ctx, meta, d, sig, args, env, fallback)
	}
	local, ok := r.localMacro(sig, env)
	switch {
	case ok && d.Kind != DispatchNone:
		return r.fail(ctx, &MacroConflictError{
			Module: d.Module,
			Name:   sig.Name,
			Arity:  sig.Arity,
			Source: env.Location(),
		})
	case !ok:
		return r.expandImport(ctx, meta, d, sig, args, env, fallback)
	}
	r.tracker.RecordLocal(r.use(sig, env.Module, env))
	tree, next, err := r.expandMacroFun(ctx, env.Module, sig, local, args, env)
	if err != nil {
		return r.fail(ctx, err)
	}
	return Expanded(tree, next), nil
}

// ResolveQualified resolves the call receiver.name(args...) made in env.
// Native primitives of BuiltinModule resolve directly to NativeModule.  Calls
// to macros exported by receiver are expanded.  Any other call is decided by
// fallback.
func (r *Resolver) ResolveQualified(ctx context.Context, meta *syntax.CallMeta, receiver string, name string, args []*syntax.Node, env Env, fallback Fallback) (Action, error) {
	sig := Signature{name, len(args)}
	if receiver == BuiltinModule && IsBuiltin(sig.Name, sig.Arity) {
		r.log(sig, env).WithField("receiver", receiver).Debug("native primitive")
		recordResolution(ctx, DispatchFunction)
		r.tracker.RecordRemote(r.use(sig, NativeModule, env))
		return Remote(NativeModule, sig, env), nil
	}
	if !r.MacroSet(receiver).Contains(sig) {
		recordResolution(ctx, DispatchNone)
		return fallback()
	}
	recordResolution(ctx, DispatchMacro)
	r.tracker.RecordRemote(r.use(sig, receiver, env))
	tree, next, err := r.InvokeMacro(ctx, meta, receiver, name, args, env.Module, env)
	if err != nil {
		return r.fail(ctx, err)
	}
	return Expanded(tree, next), nil
}

// expandImport acts on the dispatch of an unqualified call.
func (r *Resolver) expandImport(ctx context.Context, meta *syntax.CallMeta, d Dispatch, sig Signature, args []*syntax.Node, env Env, fallback Fallback) (Action, error) {
	switch d.Kind {
	case DispatchFunction:
		r.tracker.RecordImport(r.use(sig, d.Module, env))
		endpoint := d.Module
		if endpoint == BuiltinModule && IsBuiltin(sig.Name, sig.Arity) {
			endpoint = NativeModule
		}
		return Remote(endpoint, sig, env), nil
	case DispatchMacro:
		r.tracker.RecordImport(r.use(sig, d.Module, env))
		// Importing a module's macros grants permission to invoke them so
		// no require check is made.
		tree, next, err := r.expandMacroNamed(ctx, d.Module, sig, args, env)
		if err != nil {
			return r.fail(ctx, err)
		}
		return Expanded(tree, next), nil
	case DispatchImportOverride:
		// The module relationship was validated by the expansion which
		// attached the override.
		override := &syntax.CallMeta{RequireOverride: true}
		if meta != nil {
			cp := *meta
			cp.RequireOverride = true
			override = &cp
		}
		return r.ResolveQualified(ctx, override, d.Module, sig.Name, args, env, func() (Action, error) {
			return Remote(d.Module, sig, env), nil
		})
	default:
		return fallback()
	}
}

func (r *Resolver) localMacro(sig Signature, env Env) (MacroFunc, bool) {
	if r.locals == nil || env.Module == "" {
		return nil, false
	}
	if env.Function != nil && *env.Function == sig {
		// A function cannot shadow itself while it is being defined.
		return nil, false
	}
	return r.locals.LocalMacro(env.Module, sig)
}

func (r *Resolver) use(sig Signature, module string, env Env) Use {
	return Use{
		Signature: sig,
		Module:    module,
		Caller:    env.Module,
		Function:  env.Function,
	}
}

func (r *Resolver) log(sig Signature, env Env) logrus.FieldLogger {
	return r.logger.WithFields(logrus.Fields{
		"module":  env.Module,
		"call":    sig.String(),
		"file":    env.File,
		"line":    env.Line,
		"counter": env.HygieneCounter,
	})
}

func (r *Resolver) fail(ctx context.Context, err error) (Action, error) {
	recordFailure(ctx, err)
	r.logger.WithError(err).Debug("resolution failed")
	return Action{}, err
}
