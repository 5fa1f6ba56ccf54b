// Copyright © 2018 The ELPS authors

package cmd

import (
	"os"
	"path/filepath"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/expander"
	"github.com/luthersystems/macrodispatch/repl"
	"github.com/spf13/cobra"
)

// replCmd represents the repl command
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Expand forms interactively",
	Long: `Start an interactive shell that expands each form it reads in the
environment of a compilation unit of the world given by --world.

Forms may span several lines. Line editing, completion of imported and
qualified names, and command history are supported via readline. The
command :env prints the unit's imports and the current hygiene counter.
Use Ctrl-D to exit.

Example session:
  macrodispatch> (swap 1 2)
  (pair 2 1)
  macrodispatch> (Kernel.abs x)
  (native.abs x)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &cmdConfig{}
		reg, manifest, err := cfg.resolveWorld()
		if err != nil {
			return err
		}
		env, err := unitEnv(reg, manifest)
		if err != nil {
			return err
		}
		logger := newLogger()
		exp := expander.New(
			expander.WithLogger(logger),
			expander.WithResolverOptions(
				dispatch.WithIntrospector(reg),
				dispatch.WithLocalMacros(reg),
			),
		)
		logger.WithField("unit", exp.ID.String()).Debug("starting repl")
		return repl.Run(cmd.Context(), exp, env, filepath.Base(os.Args[0])+"> ",
			repl.WithColor(colorMode()))
	},
}
