// Copyright © 2018 The ELPS authors

package syntax

import (
	"testing"

	"github.com/luthersystems/macrodispatch/parser/token"
	"github.com/stretchr/testify/assert"
)

func TestNodeString(t *testing.T) {
	tests := []struct {
		node *Node
		want string
	}{
		{Symbol("x"), "x"},
		{Int(-3), "-3"},
		{Float(2), "2.0"},
		{Float(0.25), "0.25"},
		{String("a \"b\""), `"a \"b\""`},
		{List(), "()"},
		{Call("f", Int(1), List(Symbol("a"), Symbol("b"))), "(f 1 (a b))"},
		{Quote(Call("f", Symbol("x"))), "'(f x)"},
		{Call("quote", Symbol("a"), Symbol("b")), "(quote a b)"},
		{nil, "()"},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.node.String())
	}
}

func TestNodeCall(t *testing.T) {
	call := Call("Mod.f", Int(1), Int(2))
	assert.True(t, call.IsCall())
	assert.False(t, call.IsQuote())
	assert.Equal(t, "Mod.f", call.Head())
	assert.Len(t, call.Args(), 2)

	list := List(Int(1), Symbol("f"))
	assert.False(t, list.IsCall())
	assert.Equal(t, "", list.Head())
	assert.Nil(t, list.Args())
	assert.False(t, List().IsCall())
	assert.False(t, Symbol("f").IsCall())

	assert.True(t, Quote(Symbol("x")).IsQuote())
}

func TestNodeCopyAndEqual(t *testing.T) {
	orig := Call("f", Call("g", Symbol("x")), String("s"))
	orig.Source = &token.Location{File: "a", Line: 1}
	cp := orig.Copy()
	assert.True(t, orig.Equal(cp))
	assert.NotSame(t, orig.Children[1], cp.Children[1])

	cp.Children[1].Children[1].Str = "y"
	assert.Equal(t, "(f (g x) \"s\")", orig.String())
	assert.False(t, orig.Equal(cp))

	tagged := orig.Copy()
	tagged.Context = &Context{Module: "M", Counter: 1}
	tagged.Source = nil
	assert.True(t, orig.Equal(tagged), "hygiene and locations are ignored")

	assert.True(t, (*Node)(nil).Equal(nil))
	assert.False(t, orig.Equal(nil))
	assert.False(t, Int(1).Equal(Float(1)))
	assert.Nil(t, (*Node)(nil).Copy())
}

func TestCallMeta(t *testing.T) {
	var meta *CallMeta
	_, ok := meta.TrustedOverride()
	assert.False(t, ok)
	assert.False(t, meta.RequireCheckDisabled())

	_, ok = (&CallMeta{ImportOverride: "M"}).TrustedOverride()
	assert.False(t, ok)
	_, ok = (&CallMeta{Context: "M"}).TrustedOverride()
	assert.False(t, ok)
	mod, ok := (&CallMeta{ImportOverride: "M", Context: "N"}).TrustedOverride()
	assert.True(t, ok)
	assert.Equal(t, "M", mod)

	assert.True(t, (&CallMeta{RequireOverride: true}).RequireCheckDisabled())
}

func TestSplitQualified(t *testing.T) {
	tests := []struct {
		sym      string
		receiver string
		name     string
		ok       bool
	}{
		{"Mod.f", "Mod", "f", true},
		{"A.B.f", "A.B", "f", true},
		{"f", "", "", false},
		{".f", "", "", false},
		{"Mod.", "", "", false},
		{"..f", "", "", false},
		{"A..f", "", "", false},
	}
	for _, test := range tests {
		receiver, name, ok := SplitQualified(test.sym)
		assert.Equal(t, test.ok, ok, test.sym)
		assert.Equal(t, test.receiver, receiver, test.sym)
		assert.Equal(t, test.name, name, test.sym)
	}
	assert.Equal(t, "A.B.f", Qualify("A.B", "f"))
}
