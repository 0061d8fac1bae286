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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/mapscript"
)

func TestDefault(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(Default(), cfg); d != "" {
		t.Errorf("empty file differs from defaults (-want +got):\n%s", d)
	}
	limits, err := cfg.Limits()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(mapscript.Throttle{}, limits); d != "" {
		t.Errorf("default limits (-want +got):\n%s", d)
	}
}

func TestLoad(t *testing.T) {
	body := `max_depth: 12
throttle:
  timeout: 1m30s
  allow_io: false
  pace: 5ms
colors:
  rgb_file: /etc/X11/rgb.txt
fonts:
  afm_dirs:
    - /usr/share/fonts/afm
    - ./fonts
log:
  level: debug
`
	name := filepath.Join(t.TempDir(), "mapscript.yaml")
	if err := os.WriteFile(name, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(name)
	if err != nil {
		t.Fatal(err)
	}

	want := &Config{
		MaxDepth: 12,
		Throttle: Throttle{Timeout: "1m30s", Pace: "5ms"},
		Colors:   Colors{RGBFile: "/etc/X11/rgb.txt"},
		Fonts:    Fonts{AFMDirs: []string{"/usr/share/fonts/afm", "./fonts"}},
		Log:      Log{Level: "debug", Format: "text"},
	}
	if d := cmp.Diff(want, cfg); d != "" {
		t.Errorf("config mismatch (-want +got):\n%s", d)
	}

	limits, err := cfg.Limits()
	if err != nil {
		t.Fatal(err)
	}
	wantLimits := mapscript.Throttle{
		Timeout: 90 * time.Second,
		DenyIO:  true,
		Pace:    5 * time.Millisecond,
	}
	if d := cmp.Diff(wantLimits, limits); d != "" {
		t.Errorf("limits mismatch (-want +got):\n%s", d)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"max_depth: 0\n",
		"max_depth: [1, 2]\n",
		"throttle:\n  timeout: soon\n",
		"throttle:\n  pace: -1s\n",
		"colours:\n  rgb_file: x\n",
	}
	for _, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Errorf("%q: expected an error", body)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if !os.IsNotExist(err) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}
