// Copyright © 2018 The ELPS authors

// Package repl implements an interactive shell that expands the forms it
// reads in the environment of a compilation unit.
package repl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/luthersystems/macrodispatch/diagnostic"
	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/expander"
	"github.com/luthersystems/macrodispatch/parser"
)

type config struct {
	stdin   io.ReadCloser
	stderr  io.WriteCloser
	color   diagnostic.ColorMode
	history string
}

func newConfig(opts ...Option) *config {
	config := &config{history: historyPath()}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output to the REPL.
func WithStderr(stderr io.WriteCloser) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithColor sets the color mode used to render errors.
func WithColor(mode diagnostic.ColorMode) Option {
	return func(c *config) {
		c.color = mode
	}
}

// WithHistoryFile sets the file history is kept in.  An empty path disables
// persistent history.
func WithHistoryFile(path string) Option {
	return func(c *config) {
		c.history = path
	}
}

// Run reads forms until the input is exhausted and prints their expansions
// in env.  The environment is threaded from one input to the next so that
// every expansion of the session has a distinct hygiene context.
func Run(ctx context.Context, exp *expander.Expander, env dispatch.Env, prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	var out io.Writer = os.Stderr
	if cfg.stderr != nil {
		out = cfg.stderr
	}
	cont := strings.Repeat(" ", len(prompt)-2) + "> "
	if len(prompt) < 2 {
		cont = prompt
	}

	ensureHistoryFilePermissions(cfg.history)
	rlCfg := &readline.Config{
		Stdout:            out,
		Stderr:            out,
		Prompt:            prompt,
		HistoryFile:       cfg.history,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{exp: exp, env: env},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return err
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	renderer := &diagnostic.Renderer{Color: cfg.color}
	var pending bytes.Buffer
	for {
		if pending.Len() == 0 {
			rl.SetPrompt(prompt)
		} else {
			rl.SetPrompt(cont)
		}
		line, err := rl.ReadSlice()
		if err == readline.ErrInterrupt {
			pending.Reset()
			continue
		}
		if err != nil {
			break
		}
		if pending.Len() == 0 && len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if pending.Len() == 0 && command(out, string(bytes.TrimSpace(line)), env) {
			continue
		}
		pending.Write(line)
		pending.WriteByte('\n')
		if depth(pending.String()) > 0 {
			continue
		}
		text := pending.String()
		pending.Reset()

		forms, err := parser.ParseString("stdin", text)
		if err != nil {
			_ = renderer.Render(out, diagnostic.FromError(err))
			continue
		}
		var results []expander.Result
		results, env = exp.ExpandAll(ctx, forms, env)
		for _, r := range results {
			if r.Err != nil {
				_ = renderer.Render(out, diagnostic.FromError(r.Err))
				continue
			}
			fmt.Fprintln(out, r.Form) //nolint:errcheck // best-effort REPL output
		}
	}
	return nil
}

// command runs a shell command.  It reports false if line is not a
// command.
func command(w io.Writer, line string, env dispatch.Env) bool {
	switch line {
	case ":env":
		fmt.Fprintf(w, "module %q counter %d\n", env.Module, env.HygieneCounter) //nolint:errcheck
		for _, imp := range env.Functions {
			fmt.Fprintf(w, "  functions %s: %v\n", imp.Module, imp.Signatures.Sorted()) //nolint:errcheck
		}
		for _, imp := range env.Macros {
			fmt.Fprintf(w, "  macros %s: %v\n", imp.Module, imp.Signatures.Sorted()) //nolint:errcheck
		}
		if len(env.Requires) > 0 {
			fmt.Fprintf(w, "  requires %s\n", strings.Join(env.Requires, " ")) //nolint:errcheck
		}
		return true
	}
	return false
}

// depth returns the number of parentheses in text left open.  Parentheses
// in strings and comments are ignored.
func depth(text string) int {
	n := 0
	inString, escaped, inComment := false, false, false
	for _, c := range text {
		switch {
		case inComment:
			inComment = c != '\n'
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == ';':
			inComment = true
		case c == '(':
			n++
		case c == ')':
			n--
		}
	}
	return n
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".macrodispatch_history")
}

// ensureHistoryFilePermissions creates the history file if needed and
// restricts it to the current user.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600) //nolint:gosec // path is the user's own history file
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0600)
}
