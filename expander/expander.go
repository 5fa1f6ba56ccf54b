// Copyright © 2018 The ELPS authors

// Package expander walks call-expression trees and expands every macro call
// they contain.
package expander

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/syntax"
	"github.com/sirupsen/logrus"
)

var _ dispatch.Expander = (*Expander)(nil)

// Expander expands trees.  Macro calls are resolved by Resolver, which hands
// each expansion back to the Expander.  Calls that are not macros are kept,
// with imported calls rewritten to name the module that defines them.
type Expander struct {
	// ID identifies the expander in logs.
	ID       uuid.UUID
	Resolver *dispatch.Resolver

	logger  logrus.FieldLogger
	options []dispatch.Option
}

// Option configures an Expander.
type Option func(e *Expander)

// WithResolverOptions returns an Option that configures the Expander's
// resolver with opts.
func WithResolverOptions(opts ...dispatch.Option) Option {
	return func(e *Expander) {
		e.options = append(e.options, opts...)
	}
}

// WithLogger returns an Option that makes the Expander and its resolver log
// to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Expander) {
		e.logger = logger
	}
}

// New returns an Expander with its own resolver.
func New(opts ...Option) *Expander {
	e := &Expander{ID: uuid.New()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		e.logger = logger
	}
	e.logger = e.logger.WithField("unit", e.ID.String())
	ropts := append([]dispatch.Option{dispatch.WithLogger(e.logger)}, e.options...)
	ropts = append(ropts, dispatch.WithExpander(e))
	e.Resolver = dispatch.NewResolver(ropts...)
	return e
}

// Result is the outcome of expanding one top-level form.
type Result struct {
	Form *syntax.Node
	Err  error
}

// ExpandAll expands forms in order.  A form that fails does not stop the
// expansion of the forms after it.  The returned environment follows the
// last form.
func (e *Expander) ExpandAll(ctx context.Context, forms []*syntax.Node, env dispatch.Env) ([]Result, dispatch.Env) {
	results := make([]Result, len(forms))
	for i, form := range forms {
		v, next, err := e.Expand(ctx, form, env)
		if err != nil {
			e.logger.WithError(err).WithField("form", i).Debug("form failed to expand")
			results[i] = Result{Err: err}
			continue
		}
		results[i] = Result{Form: v}
		env = next
	}
	return results, env
}

// Expand implements dispatch.Expander.
func (e *Expander) Expand(ctx context.Context, tree *syntax.Node, env dispatch.Env) (*syntax.Node, dispatch.Env, error) {
	if tree == nil || tree.Kind != syntax.KindList {
		return tree, env, nil
	}
	if tree.IsQuote() {
		return tree, env, nil
	}
	if !tree.IsCall() {
		return e.expandChildren(ctx, tree, 0, env)
	}
	return e.expandCall(ctx, tree, env)
}

func (e *Expander) expandCall(ctx context.Context, call *syntax.Node, env dispatch.Env) (*syntax.Node, dispatch.Env, error) {
	callEnv := env
	if line := call.Line(); line > 0 {
		callEnv = env.AtLine(line)
	}
	if call.Source != nil && call.Source.File != "" && !call.Source.IsSynthetic() {
		callEnv.File = call.Source.File
	}
	head, args := call.Head(), call.Args()
	sig := dispatch.Sig(head, len(args))

	var action dispatch.Action
	var err error
	if receiver, name, ok := syntax.SplitQualified(head); ok {
		sig = dispatch.Sig(name, len(args))
		action, err = e.Resolver.ResolveQualified(ctx, call.Meta, receiver, name, args, callEnv, func() (dispatch.Action, error) {
			return dispatch.Remote(receiver, sig, callEnv), nil
		})
	} else {
		action, err = e.Resolver.ResolveUnqualified(ctx, call.Meta, head, args, callEnv, func() (dispatch.Action, error) {
			return dispatch.Local(sig, callEnv), nil
		})
	}
	if err != nil {
		return nil, env, err
	}
	next := env.WithCounter(action.Env.HygieneCounter)
	switch action.Kind {
	case dispatch.ActionExpanded:
		return action.Tree, next, nil
	case dispatch.ActionRemote:
		out := rebuild(call, syntax.Qualify(action.Module, action.Name))
		return e.expandChildren(ctx, out, 1, next)
	default:
		out := rebuild(call, action.Name)
		return e.expandChildren(ctx, out, 1, next)
	}
}

// rebuild returns a shallow copy of call with its head replaced.
func rebuild(call *syntax.Node, head string) *syntax.Node {
	out := *call
	out.Children = append([]*syntax.Node(nil), call.Children...)
	h := *call.Children[0]
	h.Str = head
	out.Children[0] = &h
	return &out
}

// expandChildren expands the children of list from index start, threading
// the environment through each one in turn.
func (e *Expander) expandChildren(ctx context.Context, list *syntax.Node, start int, env dispatch.Env) (*syntax.Node, dispatch.Env, error) {
	out := *list
	out.Children = append([]*syntax.Node(nil), list.Children...)
	for i := start; i < len(out.Children); i++ {
		v, next, err := e.Expand(ctx, out.Children[i], env)
		if err != nil {
			return nil, env, err
		}
		out.Children[i] = v
		env = next
	}
	return &out, env, nil
}
