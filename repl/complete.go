// Copyright © 2018 The ELPS authors

package repl

import (
	"sort"
	"strings"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/expander"
	"github.com/luthersystems/macrodispatch/syntax"
)

// symbolCompleter implements readline.AutoCompleter by enumerating the names
// callable in the shell's environment.
type symbolCompleter struct {
	exp *expander.Expander
	env dispatch.Env
}

func (c *symbolCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 {
		ch := line[start-1]
		if ch == ' ' || ch == '\t' || ch == '(' || ch == '\n' || ch == '\'' {
			break
		}
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	candidates := c.collectNames(prefix)
	if len(candidates) == 0 {
		return nil, 0
	}
	result := make([][]rune, 0, len(candidates))
	for _, name := range candidates {
		result = append(result, []rune(name[len(prefix):]))
	}
	return result, len(prefix)
}

func (c *symbolCompleter) collectNames(prefix string) []string {
	seen := make(map[string]bool)
	var result []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	// Imported names complete unqualified.
	for _, tables := range [][]dispatch.Import{c.env.Functions, c.env.Macros} {
		for _, imp := range tables {
			for sig := range imp.Signatures {
				add(sig.Name)
			}
		}
	}

	// Macros of required modules and native primitives complete qualified.
	receivers := append([]string{c.env.Module}, c.env.Requires...)
	for _, mod := range receivers {
		if mod == "" {
			continue
		}
		for sig := range c.exp.Resolver.MacroSet(mod) {
			add(syntax.Qualify(mod, sig.Name))
		}
	}
	for _, sig := range dispatch.Builtins() {
		add(syntax.Qualify(dispatch.BuiltinModule, sig.Name))
	}

	sort.Strings(result)
	return result
}
