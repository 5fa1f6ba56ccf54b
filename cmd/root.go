// Copyright © 2018 The ELPS authors

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "macrodispatch",
	Short: "Resolve calls and expand macros in call-expression trees",
	Long: `macrodispatch resolves the calls in call-expression trees the way a
compiler front end does before code generation. Each call is resolved to a
macro defined by the module being compiled, an imported function or macro, a
macro of a required module, or a native primitive. Macro calls are expanded
with hygiene until no macro calls remain.

Modules and compilation units are described by a YAML world file:

  kernel: true
  modules:
    - name: lists
      functions: [map/2]
      macros:
        - {name: swap, arity: 2, body: "(pair $2 $1)"}
  units:
    - name: main
      module: app
      imports: [{module: lists}]
      requires: [lists]

Getting started:
  macrodispatch expand --world world.yaml file.sx   Expand the forms in a file
  macrodispatch expand --world world.yaml -e '(swap 1 2)'
  macrodispatch repl --world world.yaml             Expand forms interactively
  macrodispatch builtins                            List native primitives

Settings may also be given in $HOME/.macrodispatch.yaml or as environment
variables prefixed with MACRODISPATCH_.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if err != errReported {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.macrodispatch.yaml)")
	rootCmd.PersistentFlags().String("color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().String("world", "", "YAML file describing modules and compilation units")
	rootCmd.PersistentFlags().String("unit", "", "compilation unit to expand in (default is the first unit)")
	rootCmd.PersistentFlags().String("log-level", "warning", "log level: debug, info, warning, or error")
	for _, key := range []string{"color", "world", "unit", "log-level"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(ExpandCommand())
	rootCmd.AddCommand(builtinsCmd)
	rootCmd.AddCommand(replCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".macrodispatch")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("macrodispatch")
	viper.AutomaticEnv() // read in environment variables that match

	if err := viper.ReadInConfig(); err == nil {
		newLogger().WithField("config", viper.ConfigFileUsed()).Debug("using config file")
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
