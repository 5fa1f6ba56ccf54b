// Copyright © 2018 The ELPS authors

// Package syntax defines the call-expression trees handled by the resolver
// and the metadata attached to them by earlier expansion generations.
package syntax

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/luthersystems/macrodispatch/parser/token"
)

// QuoteSymbol heads a form whose body is never expanded.
const QuoteSymbol = "quote"

// Kind is the type of a Node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSymbol
	KindInt
	KindFloat
	KindString
	KindList
)

var kindStrings = []string{
	KindInvalid: "invalid",
	KindSymbol:  "symbol",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindList:    "list",
}

func (k Kind) String() string {
	if int(k) >= len(kindStrings) {
		return kindStrings[KindInvalid]
	}
	return kindStrings[k]
}

// Node is one element of a call-expression tree.  A list whose first child is
// a symbol is a call; the symbol is its head.
type Node struct {
	Kind     Kind
	Str      string // symbol name or string contents
	Int      int
	Float    float64
	Children []*Node
	Source   *token.Location

	// Meta is only meaningful on calls.
	Meta *CallMeta

	// Context is the hygiene context of the expansion that produced the
	// node.  Nodes read from source text have no context.
	Context *Context

	// Transparent symbols are never tagged with a hygiene context and
	// therefore resolve in the scope of the call site.
	Transparent bool
}

// CallMeta is metadata attached to a call node.
type CallMeta struct {
	// ImportOverride names a receiver resolved by a previous expansion
	// generation.  It is only trusted when Context is also set.
	ImportOverride string
	Context        string

	// RequireOverride disables the check that a macro's module has been
	// required before it is invoked.
	RequireOverride bool
}

// TrustedOverride returns the import override carried by m, if it may be
// used.  An override without a context marker is stale and is ignored.
func (m *CallMeta) TrustedOverride() (string, bool) {
	if m == nil || m.ImportOverride == "" || m.Context == "" {
		return "", false
	}
	return m.ImportOverride, true
}

// RequireCheckDisabled reports whether the required-module check is off.
func (m *CallMeta) RequireCheckDisabled() bool {
	return m != nil && m.RequireOverride
}

// Symbol returns a symbol node.
func Symbol(name string) *Node {
	return &Node{Kind: KindSymbol, Str: name}
}

// Int returns an integer node.
func Int(x int) *Node {
	return &Node{Kind: KindInt, Int: x}
}

// Float returns a floating point node.
func Float(x float64) *Node {
	return &Node{Kind: KindFloat, Float: x}
}

// String returns a string node.
func String(s string) *Node {
	return &Node{Kind: KindString, Str: s}
}

// List returns a list of nodes.
func List(children ...*Node) *Node {
	return &Node{Kind: KindList, Children: children}
}

// Call returns a call to head with the given arguments.
func Call(head string, args ...*Node) *Node {
	children := make([]*Node, 0, len(args)+1)
	children = append(children, Symbol(head))
	children = append(children, args...)
	return List(children...)
}

// Quote returns the form (quote n).
func Quote(n *Node) *Node {
	return Call(QuoteSymbol, n)
}

// IsCall reports whether n is a call form.
func (n *Node) IsCall() bool {
	return n != nil && n.Kind == KindList && len(n.Children) > 0 && n.Children[0].Kind == KindSymbol
}

// IsQuote reports whether n is a quoted form.
func (n *Node) IsQuote() bool {
	return n.IsCall() && n.Children[0].Str == QuoteSymbol && len(n.Children) == 2
}

// Head returns the name called by n.  Head returns the empty string if n is
// not a call.
func (n *Node) Head() string {
	if !n.IsCall() {
		return ""
	}
	return n.Children[0].Str
}

// Args returns the arguments of the call n.
func (n *Node) Args() []*Node {
	if !n.IsCall() {
		return nil
	}
	return n.Children[1:]
}

// Line returns the source line of n or 0 if it is unknown.
func (n *Node) Line() int {
	if n == nil || n.Source == nil {
		return 0
	}
	return n.Source.Line
}

// Copy returns a deep copy of n.  Locations and metadata are shared because
// they are never mutated in place.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Copy()
		}
	}
	return &cp
}

// Equal reports whether n and other are structurally equal, ignoring
// locations, metadata and hygiene.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Str != other.Str || n.Int != other.Int || n.Float != other.Float {
		return false
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

func (n *Node) String() string {
	var buf bytes.Buffer
	n.write(&buf)
	return buf.String()
}

func (n *Node) write(buf *bytes.Buffer) {
	if n == nil {
		buf.WriteString("()")
		return
	}
	switch n.Kind {
	case KindSymbol:
		buf.WriteString(n.Str)
	case KindInt:
		buf.WriteString(strconv.Itoa(n.Int))
	case KindFloat:
		s := strconv.FormatFloat(n.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		buf.WriteString(s)
	case KindString:
		buf.WriteString(strconv.Quote(n.Str))
	case KindList:
		if n.IsQuote() {
			buf.WriteString("'")
			n.Children[1].write(buf)
			return
		}
		buf.WriteString("(")
		for i, c := range n.Children {
			if i > 0 {
				buf.WriteString(" ")
			}
			c.write(buf)
		}
		buf.WriteString(")")
	default:
		buf.WriteString("#<invalid>")
	}
}

// SplitQualified splits a qualified name "Receiver.name" into its receiver
// and name.  The receiver may itself contain dots; the name is the text after
// the last dot.
func SplitQualified(sym string) (receiver, name string, ok bool) {
	i := strings.LastIndexByte(sym, '.')
	if i <= 0 || i == len(sym)-1 {
		return "", "", false
	}
	receiver, name = sym[:i], sym[i+1:]
	if strings.Trim(receiver, ".") == "" || strings.HasSuffix(receiver, ".") {
		return "", "", false
	}
	return receiver, name, true
}

// Qualify joins a receiver and a name.
func Qualify(receiver, name string) string {
	return receiver + "." + name
}
