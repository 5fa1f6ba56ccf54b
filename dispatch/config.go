// Copyright © 2018 The ELPS authors

package dispatch

import (
	"context"
	"io"

	"github.com/luthersystems/macrodispatch/syntax"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer used when none is configured.
const TracerName = "macrodispatch"

// Option configures a Resolver.
type Option func(r *Resolver)

// WithIntrospector returns an Option that makes the resolver locate modules
// and their exported macros with intro.
func WithIntrospector(intro Introspector) Option {
	return func(r *Resolver) {
		r.introspector = intro
	}
}

// WithLocalMacros returns an Option that makes the resolver find macros
// defined by the module being compiled with locals.
func WithLocalMacros(locals LocalMacros) Option {
	return func(r *Resolver) {
		r.locals = locals
	}
}

// WithExpander returns an Option that makes the resolver hand the result of
// each macro expansion to exp.  Without an expander expansions are returned
// as produced by the macro.
func WithExpander(exp Expander) Option {
	return func(r *Resolver) {
		r.expander = exp
	}
}

// WithTracker returns an Option that notifies t of every binding used.
func WithTracker(t Tracker) Option {
	return func(r *Resolver) {
		r.tracker = t
	}
}

// WithLogger returns an Option that makes the resolver log to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithTracer returns an Option that records a span for each macro
// invocation with tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = tracer
	}
}

// Expander expands trees produced by macros.  Expand must not modify env and
// returns the environment following the expansion, whose hygiene counter is
// at least that of env.
type Expander interface {
	Expand(ctx context.Context, tree *syntax.Node, env Env) (*syntax.Node, Env, error)
}

// ExpanderFunc adapts a function to the Expander interface.
type ExpanderFunc func(ctx context.Context, tree *syntax.Node, env Env) (*syntax.Node, Env, error)

func (fn ExpanderFunc) Expand(ctx context.Context, tree *syntax.Node, env Env) (*syntax.Node, Env, error) {
	return fn(ctx, tree, env)
}

func identityExpander(_ context.Context, tree *syntax.Node, env Env) (*syntax.Node, Env, error) {
	return tree, env, nil
}

// Use describes a binding used by a call.
type Use struct {
	Signature
	// Module is the module the binding was resolved to.
	Module string
	// Caller is the module containing the call and Function the function
	// whose body contains it.
	Caller   string
	Function *Signature
}

// Tracker is notified of the bindings used by calls.  Methods may be called
// concurrently by resolvers compiling different modules.
type Tracker interface {
	RecordImport(u Use)
	RecordLocal(u Use)
	RecordRemote(u Use)
}

type nopTracker struct{}

func (nopTracker) RecordImport(Use) {}
func (nopTracker) RecordLocal(Use)  {}
func (nopTracker) RecordRemote(Use) {}

func defaultLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func defaultTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}
