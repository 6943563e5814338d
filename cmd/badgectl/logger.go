package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// zeroLogger adapts zerolog to badge.Logger.
type zeroLogger struct {
	log zerolog.Logger
}

func newLogger(verbose bool) *zeroLogger {
	return newLoggerTo(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}, verbose)
}

func newLoggerTo(w io.Writer, verbose bool) *zeroLogger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return &zeroLogger{
		log: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// With returns a logger that adds key=value to every event.
func (z *zeroLogger) With(key string, value interface{}) *zeroLogger {
	return &zeroLogger{log: z.log.With().Interface(key, value).Logger()}
}

func (z *zeroLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (z *zeroLogger) Info(msg string, keysAndValues ...interface{}) {
	z.log.Info().Fields(keysAndValues).Msg(msg)
}

func (z *zeroLogger) Error(msg string, keysAndValues ...interface{}) {
	z.log.Error().Fields(keysAndValues).Msg(msg)
}
