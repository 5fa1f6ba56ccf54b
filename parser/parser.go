// Copyright © 2018 The ELPS authors

/*
Package parser reads call expressions written in s-expression syntax.

	form    := '(' <form>* ')' | "'" <form> | <number> | <string> | <symbol>
	number  := /[+-]?[0-9]+/ <fraction>? <exponent>?
	string  := '"' <strcontent> '"'
	symbol  := <name> | <receiver> '.' <name>

A list whose first element is a symbol is a call.  A symbol containing a dot
names a qualified call, Receiver.name.
*/
package parser

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/luthersystems/macrodispatch/parser/token"
	"github.com/luthersystems/macrodispatch/syntax"
	parsec "github.com/prataprc/goparsec"
)

// Reader parses source streams into call-expression trees.
type Reader interface {
	Read(name string, r io.Reader) ([]*syntax.Node, error)
}

// NewReader returns a Reader.
func NewReader() Reader {
	return &parsecReader{}
}

type parsecReader struct{}

func (p *parsecReader) Read(name string, r io.Reader) ([]*syntax.Node, error) {
	return ReadLocation(name, "", r)
}

// ParseString parses all forms in text.
func ParseString(name string, text string) ([]*syntax.Node, error) {
	return Parse(name, "", []byte(text))
}

// ReadLocation parses all forms in r.  The file is the name used in source
// locations while path, if non-empty, is the physical location of the stream.
func ReadLocation(file string, path string, r io.Reader) ([]*syntax.Node, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(file, path, b)
}

// Parse parses all forms in text.
func Parse(file string, path string, text []byte) ([]*syntax.Node, error) {
	src := newSource(file, path, text)
	parser := src.newParsecParser()

	var forms []*syntax.Node
	s := parsec.NewScanner(text)
	root, s := parser(s)
	for root != nil {
		v, err := src.getNode(root)
		if err != nil {
			return nil, err
		}
		if v != nil {
			forms = append(forms, v)
		}
		root, s = parser(s)
	}
	_, s = s.SkipWS()
	if !s.Endof() {
		b, _ := s.Match(`.{1,16}`)
		if len(b) > 15 {
			b = append(b[:15:15], []byte("...")...)
		}
		return forms, &token.LocationError{
			Err:    fmt.Errorf("unexpected source text possibly starting: %s", b),
			Source: src.locate(s.GetCursor()),
		}
	}
	return forms, nil
}

const (
	nodeInvalid nodeType = iota
	nodeTerm
	nodeList
	nodeUnmatched
	nodeQuote
)

type nodeType uint

// source maps byte offsets in the parsed text back to lines and columns.
type source struct {
	file  string
	path  string
	lines []int // offset of the first byte of each line
}

func newSource(file string, path string, text []byte) *source {
	lines := []int{0}
	for i, c := range text {
		if c == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &source{file: file, path: path, lines: lines}
}

func (src *source) locate(pos int) *token.Location {
	i := sort.Search(len(src.lines), func(i int) bool { return src.lines[i] > pos })
	return &token.Location{
		File: src.file,
		Path: src.path,
		Pos:  pos,
		Line: i,
		Col:  pos - src.lines[i-1] + 1,
	}
}

func (src *source) newParsecParser() parsec.Parser {
	openP := parsec.Atom("(", "OPENP")
	closeP := parsec.Atom(")", "CLOSEP")
	q := parsec.Atom("'", "QUOTE")
	comment := parsec.Token(`;([^\n]*[^\s])?`, "COMMENT")
	decimal := parsec.Token(`[+-]?[0-9]+([.][0-9]+)?([eE][+-]?[0-9]+)?`, "DECIMAL")
	symbol := parsec.Token(`(?:\pL|[._+\-*/\=<>!&~%?$])(?:\pL|[0-9]|[._+\-*/\=<>!&~%?$])*`, "SYMBOL")
	term := parsec.OrdChoice(src.nodify(nodeTerm),
		parsec.String(),
		decimal,
		symbol, // symbol comes last because it swallows anything
	)
	var form parsec.Parser // forward declaration allows for recursive parsing
	formList := parsec.Kleene(nil, &form)
	list := parsec.And(src.nodify(nodeList), openP, formList, closeP)
	unmatched := parsec.And(src.nodify(nodeUnmatched), openP, formList, parsec.End())
	quote := parsec.And(src.nodify(nodeQuote), q, &form)
	form = parsec.OrdChoice(nil,
		comment,
		term,
		list,
		quote,
		// Error matching cases come last because they have the lowest
		// precedence.
		unmatched,
	)
	return form
}

func (src *source) nodify(typ nodeType) parsec.Nodify {
	return func(nodes []parsec.ParsecNode) parsec.ParsecNode {
		return src.newNode(typ, nodes)
	}
}

func (src *source) newNode(typ nodeType, nodes []parsec.ParsecNode) parsec.ParsecNode {
	nodes, ok := cleanParsecNodeList(nodes)
	if len(nodes) == 0 {
		return syntax.List()
	}
	if !ok {
		// There is an error in the first position.
		return nodes[0]
	}
	switch typ {
	case nodeTerm:
		switch term := nodes[0].(type) {
		case string:
			// parsec.String unescapes the literal but leaves it wrapped in
			// double quotes.
			return syntax.String(term[1 : len(term)-1])
		case *parsec.Terminal:
			return src.newTerm(term)
		}
		return fmt.Errorf("unexpected term: %v", nodes[0])
	case nodeUnmatched:
		open := nodes[0].(*parsec.Terminal)
		rest := open.GetValue() + stringifyNodes(nodes[1:len(nodes)-1]) // Trim off the End node
		if len(rest) > 10 {
			rest = rest[:10] + "..."
		}
		return &token.LocationError{
			Err:    fmt.Errorf("unmatched %q starting: %v", open.GetValue(), rest),
			Source: src.locate(open.Position),
		}
	case nodeList:
		// The terminal parsec nodes '(' and ')' are dropped.
		open := nodes[0].(*parsec.Terminal)
		list := syntax.List()
		list.Children = make([]*syntax.Node, 0, len(nodes)-2)
		list.Source = src.locate(open.Position)
		for _, c := range nodes {
			if c, ok := c.(*syntax.Node); ok {
				list.Children = append(list.Children, c)
			}
		}
		return list
	case nodeQuote:
		mark := nodes[0].(*parsec.Terminal)
		body, ok := nodes[1].(*syntax.Node)
		if !ok {
			return fmt.Errorf("invalid quoted form: %v", nodes[1])
		}
		v := syntax.Quote(body)
		v.Source = src.locate(mark.Position)
		v.Children[0].Source = v.Source
		return v
	default:
		panic(fmt.Sprintf("unknown nodeType: %d", typ))
	}
}

func (src *source) newTerm(term *parsec.Terminal) parsec.ParsecNode {
	var v *syntax.Node
	switch term.Name {
	case "DECIMAL":
		if strings.ContainsAny(term.Value, ".eE") {
			f, err := strconv.ParseFloat(term.Value, 64)
			if err != nil {
				return &token.LocationError{Err: fmt.Errorf("bad number: %v (%s)", err, term.Value), Source: src.locate(term.Position)}
			}
			v = syntax.Float(f)
		} else {
			x, err := strconv.Atoi(term.Value)
			if err != nil {
				return &token.LocationError{Err: fmt.Errorf("bad number: %v (%s)", err, term.Value), Source: src.locate(term.Position)}
			}
			v = syntax.Int(x)
		}
	case "SYMBOL":
		v = syntax.Symbol(term.Value)
	default:
		return fmt.Errorf("unexpected token %s: %s", term.Name, term.Value)
	}
	v.Source = src.locate(term.Position)
	return v
}

func stringifyNodes(nodes []parsec.ParsecNode) string {
	var s []string
	for _, node := range nodes {
		switch node := node.(type) {
		case *parsec.Terminal:
			switch node.GetName() {
			case "OPENP", "CLOSEP":
				continue
			}
			s = append(s, node.GetValue())
		case []parsec.ParsecNode:
			s = append(s, "("+stringifyNodes(node)+")")
		case *syntax.Node:
			s = append(s, node.String())
		default:
			s = append(s, fmt.Sprint(node))
		}
	}
	return strings.Join(s, " ")
}

func cleanParsecNodeList(lis []parsec.ParsecNode) ([]parsec.ParsecNode, bool) {
	var nodes []parsec.ParsecNode
	for _, n := range lis {
		switch node := n.(type) {
		case *parsec.Terminal:
			if node.Name == "COMMENT" {
				continue
			}
			nodes = append(nodes, node)
		case error:
			nodes = []parsec.ParsecNode{node}
			return nodes, false
		case []parsec.ParsecNode:
			clean, ok := cleanParsecNodeList(node)
			if !ok {
				return clean, false
			}
			nodes = append(nodes, clean...)
		default:
			nodes = append(nodes, node)
		}
	}
	return nodes, true
}

// getNode returns the form parsed at root.  A nil form is returned for roots
// holding only whitespace or a comment.
func (src *source) getNode(root parsec.ParsecNode) (*syntax.Node, error) {
	nodes, ok := cleanParsecNodeList([]parsec.ParsecNode{root})
	if len(nodes) == 0 {
		return nil, nil
	}
	if !ok {
		return nil, nodes[0].(error)
	}
	v, ok := nodes[0].(*syntax.Node)
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Format renders forms one per line.
func Format(forms []*syntax.Node) string {
	var buf bytes.Buffer
	for i, f := range forms {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(f.String())
	}
	return buf.String()
}
