// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opencensus.io/stats/view"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newLogger returns a logger writing to stderr at the level of the
// "log-level" setting.
func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

// spanLogger logs each ended span at debug level.
type spanLogger struct {
	logger logrus.FieldLogger
}

var _ sdktrace.SpanProcessor = spanLogger{}

func (spanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p spanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	fields := logrus.Fields{
		"span":     s.Name(),
		"duration": s.EndTime().Sub(s.StartTime()).String(),
		"status":   s.Status().Code.String(),
	}
	for _, kv := range s.Attributes() {
		fields[string(kv.Key)] = kv.Value.Emit()
	}
	p.logger.WithFields(fields).Debug("macro invocation")
}

func (spanLogger) Shutdown(context.Context) error   { return nil }
func (spanLogger) ForceFlush(context.Context) error { return nil }

// newTracerProvider returns a provider whose spans are logged to logger.
func newTracerProvider(logger logrus.FieldLogger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanLogger{logger: logger}))
}

// statsReporter collects the resolver's metrics for the duration of a
// command.
type statsReporter struct {
	views []*view.View
}

func startStats() (*statsReporter, error) {
	views := dispatch.Views()
	if err := view.Register(views...); err != nil {
		return nil, err
	}
	return &statsReporter{views: views}, nil
}

// Report writes the value of each view to w, one row per line, and
// unregisters the views.
func (s *statsReporter) Report(w io.Writer) error {
	defer view.Unregister(s.views...)
	for _, v := range s.views {
		rows, err := view.RetrieveData(v.Name)
		if err != nil {
			return err
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			line := v.Name
			for _, tag := range row.Tags {
				line += " " + tag.Key.Name() + "=" + tag.Value
			}
			if data, ok := row.Data.(*view.CountData); ok {
				line += " " + itoa(data.Value)
			}
			lines = append(lines, line)
		}
		sort.Strings(lines)
		for _, line := range lines {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
