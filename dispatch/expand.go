// Copyright © 2018 The ELPS authors

package dispatch

import (
	"context"
	"errors"

	"github.com/luthersystems/macrodispatch/syntax"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/stats"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InvokeMacro expands the call receiver.name(args...) made from module.  The
// receiver must be module itself or appear in env.Requires unless meta
// disables the check.  The expansion is handed to the resolver's Expander
// under an environment whose hygiene counter has been advanced, and the
// final tree and environment are returned.
func (r *Resolver) InvokeMacro(ctx context.Context, meta *syntax.CallMeta, receiver string, name string, args []*syntax.Node, module string, env Env) (*syntax.Node, Env, error) {
	sig := Signature{name, len(args)}
	if receiver != module && !env.Required(receiver) && !meta.RequireCheckDisabled() {
		return nil, env, &UnrequiredModuleError{
			Module:   receiver,
			Name:     name,
			Arity:    sig.Arity,
			Requires: append([]string(nil), env.Requires...),
			Source:   env.Location(),
		}
	}
	return r.expandMacroNamed(ctx, receiver, sig, args, env)
}

func (r *Resolver) expandMacroNamed(ctx context.Context, receiver string, sig Signature, args []*syntax.Node, env Env) (*syntax.Node, Env, error) {
	var fun MacroFunc
	mod, ok := r.introspector.Load(receiver)
	if ok {
		fun, ok = mod.Macro(sig)
	}
	if !ok {
		return nil, env, &UndefinedMacroError{
			Module: receiver,
			Name:   sig.Name,
			Arity:  sig.Arity,
			Source: env.Location(),
		}
	}
	return r.expandMacroFun(ctx, receiver, sig, fun, args, env)
}

// expandMacroFun runs fun and expands its result.  Only failures of fun
// itself have their trace pruned; failures of the subsequent expansion are
// returned unchanged.
func (r *Resolver) expandMacroFun(ctx context.Context, receiver string, sig Signature, fun MacroFunc, args []*syntax.Node, env Env) (*syntax.Node, Env, error) {
	counter := env.HygieneCounter + 1
	ctx, span := r.tracer.Start(ctx, receiver+"."+sig.String(),
		trace.WithAttributes(
			semconv.CodeNamespace(receiver),
			semconv.CodeFunction(sig.Name),
			semconv.CodeFilepath(env.File),
			semconv.CodeLineNumber(env.Line),
			attribute.Int("macro.arity", sig.Arity),
			attribute.Int("macro.hygiene_counter", counter),
		))
	defer span.End()

	caller := &Caller{Line: env.Line}
	origin := syntax.Collect(args...)
	tree, err := callMacro(caller, fun, args)
	if err != nil {
		synthetic := CallFrame{
			Source: env.Location(),
			Module: receiver,
			Name:   sig.Name,
			Arity:  sig.Arity,
		}
		var stack *CallStack
		var terr *TraceError
		if errors.As(err, &terr) {
			stack = terr.Stack
			err = terr.Err
		}
		ierr := &MacroInvocationError{
			Module: receiver,
			Name:   sig.Name,
			Arity:  sig.Arity,
			Err:    err,
			Stack:  PruneTrace(stack, caller, synthetic),
			Source: env.Location(),
		}
		span.RecordError(ierr)
		span.SetStatus(codes.Error, ierr.Error())
		return nil, env, ierr
	}
	if tree == nil {
		tree = syntax.List()
	}
	// The macro may return nodes it has returned before.
	tree = origin.Copy(tree)
	syntax.Stamp(tree, origin, env.File, env.Line)
	syntax.Tag(tree, &syntax.Context{Module: receiver, Counter: counter}, origin)
	stats.Record(ctx, MeasureExpansions.M(1))
	r.log(sig, env).WithFields(logrus.Fields{
		"receiver": receiver,
		"context":  counter,
	}).Debug("macro expanded")
	return r.expander.Expand(ctx, tree, env.WithCounter(counter))
}

func callMacro(caller *Caller, fun MacroFunc, args []*syntax.Node) (tree *syntax.Node, err error) {
	defer func() {
		if p := recover(); p != nil {
			cause, ok := p.(error)
			if !ok {
				cause = &PanicError{Value: p}
			}
			err = &TraceError{Err: cause, Stack: goStack()}
		}
	}()
	return fun(caller, args)
}
