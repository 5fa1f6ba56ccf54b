// Copyright © 2018 The ELPS authors

// Package usage records the bindings used by resolved calls so that a
// compiler can report unused imports and track module dependencies.
package usage

import (
	"sort"
	"sync"

	"github.com/luthersystems/macrodispatch/dispatch"
)

var _ dispatch.Tracker = (*Recorder)(nil)

// Recorder is a dispatch.Tracker that remembers every use.  A Recorder may be
// shared by resolvers running concurrently.
type Recorder struct {
	mu      sync.Mutex
	imports []dispatch.Use
	locals  []dispatch.Use
	remotes []dispatch.Use
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordImport implements dispatch.Tracker.
func (r *Recorder) RecordImport(u dispatch.Use) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imports = append(r.imports, u)
}

// RecordLocal implements dispatch.Tracker.
func (r *Recorder) RecordLocal(u dispatch.Use) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locals = append(r.locals, u)
}

// RecordRemote implements dispatch.Tracker.
func (r *Recorder) RecordRemote(u dispatch.Use) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remotes = append(r.remotes, u)
}

// Imports returns the recorded import uses in the order they were recorded.
func (r *Recorder) Imports() []dispatch.Use {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Use(nil), r.imports...)
}

// Locals returns the recorded local uses.
func (r *Recorder) Locals() []dispatch.Use {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Use(nil), r.locals...)
}

// Remotes returns the recorded remote uses.
func (r *Recorder) Remotes() []dispatch.Use {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Use(nil), r.remotes...)
}

// Unused returns the modules imported by env, for calls made from env's
// module, that no recorded import use refers to.  Modules are returned in
// sorted order.
func (r *Recorder) Unused(env dispatch.Env) []string {
	used := make(map[string]bool)
	for _, u := range r.Imports() {
		if u.Caller == env.Module {
			used[u.Module] = true
		}
	}
	seen := make(map[string]bool)
	var unused []string
	for _, tables := range [][]dispatch.Import{env.Functions, env.Macros} {
		for _, imp := range tables {
			if used[imp.Module] || seen[imp.Module] {
				continue
			}
			seen[imp.Module] = true
			unused = append(unused, imp.Module)
		}
	}
	sort.Strings(unused)
	return unused
}

// Dependencies returns the modules, other than env's module, that calls from
// module depended on through imports or remote calls, in sorted order.
func (r *Recorder) Dependencies(module string) []string {
	deps := make(map[string]bool)
	for _, uses := range [][]dispatch.Use{r.Imports(), r.Remotes()} {
		for _, u := range uses {
			if u.Caller == module && u.Module != module {
				deps[u.Module] = true
			}
		}
	}
	out := make([]string, 0, len(deps))
	for m := range deps {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
