// Copyright © 2024 The ELPS authors

package cmd

import (
	"errors"

	"github.com/luthersystems/macrodispatch/diagnostic"
	"github.com/spf13/viper"
)

// errReported is returned by commands whose errors have already been
// rendered.
var errReported = errors.New("errors reported")

func colorMode() diagnostic.ColorMode {
	mode, err := diagnostic.ParseColorMode(viper.GetString("color"))
	if err != nil {
		newLogger().WithError(err).Warn("ignoring color setting")
	}
	return mode
}

func newRenderer() *diagnostic.Renderer {
	return &diagnostic.Renderer{Color: colorMode()}
}
