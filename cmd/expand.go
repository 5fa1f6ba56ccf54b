// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/luthersystems/macrodispatch/diagnostic"
	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/expander"
	"github.com/luthersystems/macrodispatch/parser"
	"github.com/luthersystems/macrodispatch/syntax"
	"github.com/luthersystems/macrodispatch/usage"
	"github.com/spf13/cobra"
)

// ExpandCommand returns the expand command.
func ExpandCommand(opts ...Option) *cobra.Command {
	cfg := &cmdConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var (
		expression bool
		unused     bool
		stats      bool
		excludes   []string
	)
	cmd := &cobra.Command{
		Use:   "expand [flags] [files...]",
		Short: "Expand the macro calls in source files",
		Long: `Expand reads the forms in each file, or each argument when -e is given,
and prints them with every call resolved and every macro call expanded. Calls
to imported functions are printed qualified by the module that defines them.

Forms are expanded in the environment of a compilation unit of the world
given by --world, one after another, so that each expansion receives a fresh
hygiene context. A form that fails to expand is reported and the remaining
forms are still expanded. The command exits with status 1 if any form fails.

A pattern "dir/..." expands to every .sx file below dir.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, manifest, err := cfg.resolveWorld()
			if err != nil {
				return err
			}
			env, err := unitEnv(reg, manifest)
			if err != nil {
				return err
			}

			logger := newLogger()
			tp := newTracerProvider(logger)
			defer tp.Shutdown(context.Background()) //nolint:errcheck // spans are logged synchronously
			rec := usage.NewRecorder()
			ropts := []dispatch.Option{
				dispatch.WithIntrospector(reg),
				dispatch.WithLocalMacros(reg),
				dispatch.WithTracker(rec),
				dispatch.WithTracer(tp.Tracer(dispatch.TracerName)),
			}
			exp := expander.New(
				expander.WithLogger(logger),
				expander.WithResolverOptions(append(ropts, cfg.resolver...)...),
			)

			var reporter *statsReporter
			if stats {
				reporter, err = startStats()
				if err != nil {
					return err
				}
			}

			sources, err := readSources(args, expression, excludes)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var errs []error
			for _, src := range sources {
				var results []expander.Result
				results, env = exp.ExpandAll(ctx, src.forms, env)
				for _, r := range results {
					if r.Err != nil {
						errs = append(errs, r.Err)
						continue
					}
					fmt.Fprintln(cmd.OutOrStdout(), r.Form) //nolint:errcheck
				}
				errs = append(errs, src.errs...)
			}

			var diags []diagnostic.Diagnostic
			for _, err := range errs {
				diags = append(diags, diagnostic.FromError(err))
			}
			if unused {
				for _, mod := range rec.Unused(env) {
					diags = append(diags, diagnostic.Diagnostic{
						Severity: diagnostic.SeverityWarning,
						Message:  "unused import: " + mod,
					})
				}
			}
			if len(diags) > 0 {
				_ = newRenderer().RenderAll(cmd.ErrOrStderr(), diags)
			}
			if reporter != nil {
				if err := reporter.Report(cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if len(errs) > 0 {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&expression, "expression", "e", false,
		"Interpret arguments as expressions")
	cmd.Flags().BoolVar(&unused, "unused", false,
		"Warn about imported modules that no call used")
	cmd.Flags().BoolVar(&stats, "stats", false,
		"Print resolution statistics to stderr")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil,
		"Skip files matching these patterns")
	return cmd
}

type sourceForms struct {
	forms []*syntax.Node
	// errs are parse errors, reported after the forms that could be read.
	errs []error
}

func readSources(args []string, expression bool, excludes []string) ([]sourceForms, error) {
	if expression {
		sources := make([]sourceForms, len(args))
		for i, arg := range args {
			forms, err := parser.ParseString("expr"+strconv.Itoa(i+1), arg)
			sources[i] = sourceForms{forms: forms}
			if err != nil {
				sources[i].errs = []error{err}
			}
		}
		return sources, nil
	}
	paths, err := expandArgs(args)
	if err != nil {
		return nil, err
	}
	paths = filterExcludes(paths, excludes)
	sources := make([]sourceForms, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path) //nolint:gosec // user-specified source file
		if err != nil {
			return nil, err
		}
		forms, err := parser.ReadLocation(path, path, f)
		_ = f.Close()
		src := sourceForms{forms: forms}
		if err != nil {
			src.errs = []error{err}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
