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

// Package config reads the configuration file of the mapscript command.
//
// The file is written in YAML.  All settings are optional:
//
//	max_depth: 30
//	throttle:
//	  timeout: 30s
//	  allow_io: true
//	  pace: 0s
//	colors:
//	  rgb_file: /usr/share/X11/rgb.txt
//	fonts:
//	  afm_dirs: [/usr/share/fonts/type1/gsfonts]
//	log:
//	  level: warn
//	  format: text
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"seehuhn.de/go/mapscript"
)

// Config holds the settings read from a configuration file.
type Config struct {
	MaxDepth int      `yaml:"max_depth"`
	Throttle Throttle `yaml:"throttle"`
	Colors   Colors   `yaml:"colors"`
	Fonts    Fonts    `yaml:"fonts"`
	Log      Log      `yaml:"log"`
}

// Throttle limits the resources used by scripts.  Durations use the
// syntax of [time.ParseDuration].
type Throttle struct {
	Timeout string `yaml:"timeout"`
	AllowIO bool   `yaml:"allow_io"`
	Pace    string `yaml:"pace"`
}

// Colors configures the color name table.
type Colors struct {
	// RGBFile is an X11 rgb.txt file with additional color names.
	RGBFile string `yaml:"rgb_file"`
}

// Fonts configures text measurement.
type Fonts struct {
	// AFMDirs lists directories which are searched for AFM files.
	AFMDirs []string `yaml:"afm_dirs"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when no configuration file is given.
func Default() *Config {
	return &Config{
		MaxDepth: mapscript.DefaultMaxDepth,
		Throttle: Throttle{AllowIO: true},
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads a configuration file.  Settings missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration from YAML.  Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data), yaml.DisallowUnknownField())
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be positive, got %d", cfg.MaxDepth)
	}
	_, err := cfg.Limits()
	return err
}

// Limits converts the throttle settings for use by the interpreter.
func (cfg *Config) Limits() (mapscript.Throttle, error) {
	res := mapscript.Throttle{DenyIO: !cfg.Throttle.AllowIO}
	var err error
	res.Timeout, err = parseDuration("throttle.timeout", cfg.Throttle.Timeout)
	if err != nil {
		return mapscript.Throttle{}, err
	}
	res.Pace, err = parseDuration("throttle.pace", cfg.Throttle.Pace)
	if err != nil {
		return mapscript.Throttle{}, err
	}
	return res, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
