// Package logging builds the zerolog logger shared by the server.
package logging

import (
    "io"
    "os"
    "time"

    "github.com/rs/zerolog"
)

// New returns a logger for env.  In "dev" output is a human readable
// console stream; everywhere else it is one JSON object per line.
func New(env string) zerolog.Logger {
    return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(env string, w io.Writer) zerolog.Logger {
    zerolog.TimeFieldFormat = time.RFC3339Nano
    level := zerolog.InfoLevel
    if env == "dev" {
        w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
        level = zerolog.DebugLevel
    }
    if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && os.Getenv("LOG_LEVEL") != "" {
        level = lvl
    }
    return zerolog.New(w).Level(level).With().Timestamp().Str("service", "acp-gateway").Logger()
}
