// seehuhn.de/go/mapscript - an interpreter for a map drawing language
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package log sets up structured logging for the mapscript command.
//
// Loggers are created with [Make] and configured with functional options.
// The embedded [slog.Logger] can be handed to the interpreter directly.
package log

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// Level is the severity of a log message.
type Level slog.Level

// These are the supported log levels.  Trace is used for per-statement
// messages of the interpreter.
const (
	LevelTrace Level = Level(slog.LevelDebug - 4)
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// DefaultLevel is used when no level is given.
const DefaultLevel = LevelWarn

func (l Level) String() string {
	if l == LevelTrace {
		return "trace"
	}
	return strings.ToLower(slog.Level(l).String())
}

// ParseLevel converts a level name to a Level.  Unknown names give
// DefaultLevel.
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "trace") {
		return LevelTrace
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return DefaultLevel
	}
	return Level(l)
}

// Format selects the output format of log messages.
type Format int

// These are the supported formats.
const (
	FormatText Format = iota
	FormatJSON
)

// DefaultFormat is used when no format is given.
const DefaultFormat = FormatText

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat converts a format name to a Format.  Unknown names give
// DefaultFormat.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return DefaultFormat
	}
}

type config struct {
	output     io.Writer
	level      Level
	format     Format
	caller     bool
	timeLayout string
}

// Option changes the configuration of a Logger.
type Option func(*config)

// WithLevel sets the minimum level of messages which are written.
func WithLevel(level Level) Option {
	return func(c *config) { c.level = level }
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(c *config) { c.format = format }
}

// WithCaller controls whether the source location of the logging call is
// included in messages.
func WithCaller(enable bool) Option {
	return func(c *config) { c.caller = enable }
}

// WithTimeLayout sets the layout of time stamps.  An empty layout removes
// time stamps from the output.
func WithTimeLayout(layout string) Option {
	return func(c *config) { c.timeLayout = layout }
}

// Logger is a [slog.Logger] together with the configuration used to
// create it.
type Logger struct {
	*slog.Logger
	config
}

// Make returns a new Logger which writes to w.  If w is nil, all output is
// discarded.
func Make(w io.Writer, opts ...Option) Logger {
	cfg := config{
		output:     w,
		level:      DefaultLevel,
		format:     DefaultFormat,
		timeLayout: time.RFC3339,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.output == nil {
		cfg.output = io.Discard
	}
	return Logger{
		Logger: slog.New(cfg.handler()),
		config: cfg,
	}
}

// Level returns the minimum level of messages which are written.
func (l Logger) Level() Level {
	return l.level
}

// Format returns the output format.
func (l Logger) Format() Format {
	return l.format
}

func (c config) handler() slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource: c.caller,
		Level:     slog.Level(c.level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				if c.timeLayout == "" {
					return slog.Attr{}
				}
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(c.timeLayout))
				}
			case slog.LevelKey:
				// show "TRACE" instead of "DEBUG-4"
				if level, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(strings.ToUpper(Level(level).String()))
				}
			}
			return a
		},
	}
	if c.format == FormatJSON {
		return slog.NewJSONHandler(c.output, opts)
	}
	return slog.NewTextHandler(c.output, opts)
}
