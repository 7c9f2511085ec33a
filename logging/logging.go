package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Init installs the global logger: JSON at info level in production, a
// console writer with caller info at debug level everywhere else.
func Init(env Environment) zerolog.Logger {
	log.Logger = New(env, os.Stderr)
	return log.Logger
}

// New builds a logger for env writing to w.
func New(env Environment, w io.Writer) zerolog.Logger {
	if env == Production {
		return zerolog.New(w).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).
		With().Timestamp().Caller().Logger().
		Level(zerolog.DebugLevel)
}

// Component returns a child of the global logger tagged with name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
