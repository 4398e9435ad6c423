// Package logging configures the zerolog logger of the confpatch tool and
// renders patch decisions as log events.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yeti/confpatch"
)

// SetupLogger configures the global logger. Every -v lowers the base level by
// one step, down to trace.
func SetupLogger(out io.Writer, base zerolog.Level, verbosity int) {
	lvl := base - zerolog.Level(verbosity)
	if lvl < zerolog.TraceLevel {
		lvl = zerolog.TraceLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
	}).With().Timestamp().Logger()

	if lvl <= zerolog.DebugLevel {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Stringer("level", lvl).Msg("Logger initialized")
}

// GetLogger returns a logger tagged with the given component.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// EventReporter logs patch decisions. Changes are logged at info level,
// everything else at debug level.
type EventReporter struct {
	logger zerolog.Logger
}

// NewEventReporter returns a reporter for the file at path.
func NewEventReporter(logger zerolog.Logger, path string) *EventReporter {
	return &EventReporter{logger: logger.With().Str("path", path).Logger()}
}

// Report implements confpatch.Reporter.
func (r *EventReporter) Report(e confpatch.Event) {
	ev := r.logger.Debug()
	if e.Changed() {
		ev = r.logger.Info()
	}

	ev = ev.Str("setting", e.Setting.String()).Int("line", e.Line)
	if e.Before != "" {
		ev = ev.Str("before", e.Before)
	}
	if e.After != "" {
		ev = ev.Str("after", e.After)
	}
	ev.Msg(e.Kind.String())
}
