// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the diagnostic logger. Diagnostics go to stderr so
// they never interleave with the per-file progress lines on stdout.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLevel keeps routine runs quiet; --verbose lowers it to debug.
const DefaultLevel = "warn"

// Options configures New.
type Options struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string

	// Verbose forces debug level regardless of Level.
	Verbose bool

	// JSON selects newline-delimited JSON output instead of console format.
	JSON bool

	// NoColor disables ANSI colors in console format.
	NoColor bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns a logger for the given options. Unknown level names fall back
// to DefaultLevel.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(opts.Level)
	if opts.Verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	var w io.Writer = out
	if !opts.JSON {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog.Level.
func ParseLevel(s string) zerolog.Level {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		s = DefaultLevel
	}
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		level, _ = zerolog.ParseLevel(DefaultLevel)
	}
	return level
}
