// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/luthersystems/macrodispatch/diagnostic"
	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var builtinsWidth int

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "List the native primitives",
	Long: `List the signatures of the native primitives.  A call to ` + dispatch.BuiltinModule + `.name
with one of these signatures, or an unqualified call imported from ` + dispatch.BuiltinModule + `,
resolves directly to the native module "` + dispatch.NativeModule + `".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		width := builtinsWidth
		if width <= 0 {
			width = terminalWidth(cmd.OutOrStdout())
		}
		return writeBuiltins(cmd.OutOrStdout(), width)
	},
}

func init() {
	builtinsCmd.Flags().IntVar(&builtinsWidth, "width", 0, "wrap output at this column (default is the terminal width)")
}

// writeBuiltins lists the builtins grouped by name, wrapped at width.
func writeBuiltins(w io.Writer, width int) error {
	var names []string
	arities := make(map[string][]string)
	for _, sig := range dispatch.Builtins() {
		if _, ok := arities[sig.Name]; !ok {
			names = append(names, sig.Name)
		}
		arities[sig.Name] = append(arities[sig.Name], fmt.Sprint(sig.Arity))
	}
	entries := make([]string, len(names))
	for i, name := range names {
		entries[i] = name + "/" + strings.Join(arities[name], ",")
	}
	_, err := io.WriteString(w, wordwrap.String(strings.Join(entries, " "), width)+"\n")
	return err
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !diagnostic.IsTerminal(f) {
		return diagnostic.DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return diagnostic.DefaultWidth
	}
	return width
}
