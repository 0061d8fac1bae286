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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	"seehuhn.de/go/mapscript"
	"seehuhn.de/go/mapscript/afm"
	"seehuhn.de/go/mapscript/config"
	"seehuhn.de/go/mapscript/dataset"
	"seehuhn.de/go/mapscript/log"
	"seehuhn.de/go/mapscript/reproject"
	"seehuhn.de/go/mapscript/svg"
)

type cli struct {
	Config  string        `help:"Read settings from this YAML file." short:"c" type:"existingfile"`
	Define  []string      `help:"Set a global variable, given as NAME=EXPR." placeholder:"NAME=EXPR" sep:"none" short:"D"`
	Timeout time.Duration `help:"Stop scripts which run longer than this."`
	NoIO    bool          `help:"Forbid scripts to read or write files." name:"no-io"`
	Profile string        `help:"Write a profile of the given kind." default:"" enum:",cpu,mem"`
	Log     logFlags      `embed:"" prefix:"log-"`

	Files []string `arg:"" help:"Script files to run, or - for standard input." name:"file"`
}

type logFlags struct {
	Level  string `help:"Minimum level of log messages (trace, debug, info, warn, error)."`
	Format string `help:"Format of log messages (text, json)." enum:",text,json" default:""`
}

// run executes the command with the given arguments and returns the exit
// status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, exit func(int)) int {
	var opts cli
	parser, err := kong.New(&opts,
		kong.Name("mapscript"),
		kong.Description("Run map drawing scripts."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(exit),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if _, err := parser.Parse(args); err != nil {
		fmt.Fprintln(stderr, "mapscript:", err)
		return 1
	}

	cfg := config.Default()
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
		if err != nil {
			fmt.Fprintln(stderr, "mapscript:", err)
			return 1
		}
	}

	level, format := cfg.Log.Level, cfg.Log.Format
	if opts.Log.Level != "" {
		level = opts.Log.Level
	}
	if opts.Log.Format != "" {
		format = opts.Log.Format
	}
	logger := log.Make(stderr,
		log.WithLevel(log.ParseLevel(level)),
		log.WithFormat(log.ParseFormat(format)))

	switch opts.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}

	intp, err := setup(cfg, &opts, logger)
	if err != nil {
		fmt.Fprintln(stderr, "mapscript:", err)
		return 1
	}
	intp.Stdout = stdout

	err = runFiles(ctx, intp, opts.Files)
	if closeErr := intp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		logger.Debug("script failed", slog.Any("error", err))
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// setup creates an interpreter with all collaborators attached.
func setup(cfg *config.Config, opts *cli, logger log.Logger) (*mapscript.Interpreter, error) {
	limits, err := cfg.Limits()
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		limits.Timeout = opts.Timeout
	}
	if opts.NoIO {
		limits.DenyIO = true
	}

	intp := mapscript.NewInterpreter()
	intp.MaxDepth = cfg.MaxDepth
	intp.Throttle = limits
	intp.Log = logger.Logger
	intp.Outputs = svg.Opener{}
	intp.Datasets = dataset.Opener{}
	intp.Projections = reproject.Factory{}

	colors := mapscript.NewColorTable()
	if cfg.Colors.RGBFile != "" {
		fd, err := os.Open(cfg.Colors.RGBFile)
		if err != nil {
			return nil, err
		}
		err = colors.LoadRGB(fd)
		fd.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Colors.RGBFile, err)
		}
	}
	intp.Colors = colors

	fonts := afm.NewLibrary()
	for _, dir := range cfg.Fonts.AFMDirs {
		n, err := fonts.LoadDir(dir)
		if err != nil {
			return nil, err
		}
		logger.Debug("fonts loaded", slog.String("dir", dir), slog.Int("count", n))
	}
	intp.Fonts = fonts

	for _, def := range opts.Define {
		name, v, err := evalDefine(def)
		if err != nil {
			return nil, err
		}
		intp.Define(name, v)
	}
	return intp, nil
}

func runFiles(ctx context.Context, intp *mapscript.Interpreter, files []string) error {
	for _, name := range files {
		if err := runFile(ctx, intp, name); err != nil {
			return err
		}
	}
	return nil
}

func runFile(ctx context.Context, intp *mapscript.Interpreter, name string) error {
	if name == "-" {
		return intp.Execute(ctx, os.Stdin, name)
	}
	fd, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fd.Close()
	return intp.Execute(ctx, fd, name)
}
