// Copyright © 2018 The ELPS authors

package modules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/syntax"
)

// Template returns a macro of module whose expansion is a copy of body with
// argument placeholders substituted.  The symbol $n is replaced by the n-th
// argument and $line by the line of the call site.  A body of the form
// (raise "message") makes every invocation fail with message, and a body
// (panic "message") makes the macro panic.
func Template(module string, name string, arity int, body *syntax.Node) dispatch.MacroFunc {
	return func(caller *dispatch.Caller, args []*syntax.Node) (*syntax.Node, error) {
		switch body.Head() {
		case "raise":
			return nil, raise(module, name, arity, caller, body)
		case "panic":
			panic(message(body))
		}
		return substitute(body, caller, args)
	}
}

func message(body *syntax.Node) string {
	args := body.Args()
	if len(args) == 1 && args[0].Kind == syntax.KindString {
		return args[0].Str
	}
	return fmt.Sprintf("%s called with %d arguments", body.Head(), len(args))
}

// raise fails the way macro logic calling Kernel.raise/1 would: the trace
// holds the macro body, which captured caller, and the raise beneath it.
func raise(module string, name string, arity int, caller *dispatch.Caller, body *syntax.Node) error {
	return &dispatch.TraceError{
		Err: errors.New(message(body)),
		Stack: &dispatch.CallStack{Frames: []dispatch.CallFrame{
			{Module: module, Name: name, Arity: arity, Marker: caller},
			{Module: dispatch.BuiltinModule, Name: "raise", Arity: 1, Source: body.Source},
		}},
	}
}

func substitute(v *syntax.Node, caller *dispatch.Caller, args []*syntax.Node) (*syntax.Node, error) {
	if v.Kind == syntax.KindSymbol && strings.HasPrefix(v.Str, "$") {
		if v.Str == "$line" {
			return syntax.Int(caller.Line), nil
		}
		n, err := strconv.Atoi(v.Str[1:])
		if err == nil {
			if n < 1 || n > len(args) {
				return nil, fmt.Errorf("placeholder %s out of range for %d arguments", v.Str, len(args))
			}
			// The argument itself is used so that it keeps the scope of
			// the call site.
			return args[n-1], nil
		}
	}
	cp := *v
	cp.Source = nil
	if v.Children != nil {
		cp.Children = make([]*syntax.Node, len(v.Children))
		for i, c := range v.Children {
			x, err := substitute(c, caller, args)
			if err != nil {
				return nil, err
			}
			cp.Children[i] = x
		}
	}
	return &cp, nil
}
