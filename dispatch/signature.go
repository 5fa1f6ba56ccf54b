// Copyright © 2018 The ELPS authors

package dispatch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Signature identifies a function or macro by name and arity.
type Signature struct {
	Name  string
	Arity int
}

// Sig is shorthand for Signature{name, arity}.
func Sig(name string, arity int) Signature {
	return Signature{Name: name, Arity: arity}
}

func (s Signature) String() string {
	return fmt.Sprintf("%s/%d", s.Name, s.Arity)
}

func (s Signature) less(other Signature) bool {
	if s.Name != other.Name {
		return s.Name < other.Name
	}
	return s.Arity < other.Arity
}

// SignatureSet is a set of signatures.  The nil set is empty.
type SignatureSet map[Signature]struct{}

// NewSignatureSet returns a set containing sigs.
func NewSignatureSet(sigs ...Signature) SignatureSet {
	set := make(SignatureSet, len(sigs))
	for _, s := range sigs {
		set[s] = struct{}{}
	}
	return set
}

// Contains reports whether sig is in the set.
func (set SignatureSet) Contains(sig Signature) bool {
	_, ok := set[sig]
	return ok
}

// Sorted returns the members of the set ordered by name and arity.
func (set SignatureSet) Sorted() []Signature {
	sigs := make([]Signature, 0, len(set))
	for s := range set {
		sigs = append(sigs, s)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].less(sigs[j]) })
	return sigs
}

// Import is the table of signatures brought into scope from one module.
type Import struct {
	Module     string
	Signatures SignatureSet
}

// matching returns the modules in imports, in order, whose tables contain
// sig.
func matching(imports []Import, sig Signature) []string {
	var mods []string
	for _, imp := range imports {
		if imp.Signatures.Contains(sig) {
			mods = append(mods, imp.Module)
		}
	}
	return mods
}

// ParseSignature parses a signature written name/arity.
func ParseSignature(s string) (Signature, error) {
	i := strings.LastIndexByte(s, '/')
	if i <= 0 || i == len(s)-1 {
		return Signature{}, fmt.Errorf("invalid signature %q: expected name/arity", s)
	}
	arity, err := strconv.Atoi(s[i+1:])
	if err != nil || arity < 0 {
		return Signature{}, fmt.Errorf("invalid signature %q: bad arity", s)
	}
	return Signature{Name: s[:i], Arity: arity}, nil
}
