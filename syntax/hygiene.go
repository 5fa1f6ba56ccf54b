// Copyright © 2018 The ELPS authors

package syntax

import (
	"fmt"

	"github.com/luthersystems/macrodispatch/parser/token"
)

// Context identifies a single macro expansion.  Symbols tagged with a context
// only bind to, and are only bound by, symbols carrying the same context.
type Context struct {
	Module  string
	Counter int
}

func (c *Context) String() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%s#%d", c.Module, c.Counter)
}

// Walk calls fn on n and its descendants in depth-first order.  Children of a
// node are skipped when fn returns false.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Origin is a set of nodes that came from a call site.
type Origin map[*Node]struct{}

// Collect returns the set of nodes reachable from roots.
func Collect(roots ...*Node) Origin {
	o := make(Origin)
	for _, r := range roots {
		Walk(r, func(v *Node) bool {
			o[v] = struct{}{}
			return true
		})
	}
	return o
}

// Contains reports whether v came from the call site.
func (o Origin) Contains(v *Node) bool {
	_, ok := o[v]
	return ok
}

// Copy returns a deep copy of n in which nodes of o are shared with n rather
// than copied.
func (o Origin) Copy(n *Node) *Node {
	if n == nil || o.Contains(n) {
		return n
	}
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = o.Copy(c)
		}
	}
	return &cp
}

// Tag attaches ctx to every node of n introduced by the expansion.
// Transparent nodes and nodes in origin (the call site's own arguments) keep
// the scope they had.  Tag modifies n, which must not be shared with other
// trees; see Origin.Copy.
func Tag(n *Node, ctx *Context, origin Origin) {
	Walk(n, func(v *Node) bool {
		if origin.Contains(v) {
			return false
		}
		if !v.Transparent {
			v.Context = ctx
		}
		return true
	})
}

// Stamp moves every node of n outside origin to line.  Nodes without a
// location receive a synthetic location in file.
func Stamp(n *Node, origin Origin, file string, line int) {
	Walk(n, func(v *Node) bool {
		if origin.Contains(v) {
			return false
		}
		if v.Source == nil {
			v.Source = &token.Location{File: file, Pos: -1, Line: line}
			return true
		}
		v.Source = v.Source.AtLine(line)
		return true
	})
}
