// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/modules"
	"github.com/spf13/viper"
)

// Option configures an exported command factory (ExpandCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	registry *modules.Registry
	manifest *modules.Manifest
	resolver []dispatch.Option
}

// WithWorld injects the modules and compilation units to expand against.
// An embedder whose modules are defined in Go passes its own registry along
// with a manifest listing the units; the --world flag is then ignored.
func WithWorld(reg *modules.Registry, manifest *modules.Manifest) Option {
	return func(c *cmdConfig) {
		c.registry = reg
		c.manifest = manifest
	}
}

// WithResolverOptions configures the resolver used by the command.
func WithResolverOptions(opts ...dispatch.Option) Option {
	return func(c *cmdConfig) {
		c.resolver = append(c.resolver, opts...)
	}
}

// resolveWorld returns the injected world or the world named by the
// "world" setting.  Without either, a world containing only the kernel
// module and a single unit importing it is returned.
func (c *cmdConfig) resolveWorld() (*modules.Registry, *modules.Manifest, error) {
	if c.registry != nil {
		manifest := c.manifest
		if manifest == nil {
			manifest = &modules.Manifest{}
		}
		return c.registry, manifest, nil
	}
	path := viper.GetString("world")
	if path == "" {
		return modules.NewStandardRegistry(), defaultManifest(), nil
	}
	manifest, err := modules.LoadManifestFile(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := manifest.Registry()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, manifest, nil
}

func defaultManifest() *modules.Manifest {
	return &modules.Manifest{
		Kernel: true,
		Units: []modules.Unit{{
			Name:    "main",
			Imports: []modules.ImportSpec{{Module: dispatch.BuiltinModule}},
		}},
	}
}

// unitEnv returns the environment of the unit selected by the "unit"
// setting.
func unitEnv(reg *modules.Registry, manifest *modules.Manifest) (dispatch.Env, error) {
	name := viper.GetString("unit")
	u, ok := manifest.Unit(name)
	if !ok {
		if name == "" {
			return dispatch.Env{}, nil
		}
		return dispatch.Env{}, fmt.Errorf("unknown unit: %s", name)
	}
	return reg.UnitEnv(u)
}
