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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/mapscript"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func noExit(int) {}

func TestRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "map.svg")
	script := writeFile(t, "a.map", `newpage "svg", "`+out+`", 50, 50
move 0, 0
draw 50, 50
stroke
endpage
print "done", size
`)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(context.Background(), []string{"-D", "size=2*21", script}, stdout, stderr, noExit)
	if code != 0 {
		t.Fatalf("exit code %d, stderr %q", code, stderr.String())
	}
	if stdout.String() != "done 42\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "<svg") {
		t.Errorf("no SVG output:\n%s", body)
	}
}

func TestRunSharedState(t *testing.T) {
	first := writeFile(t, "first.map", "begin twice x\n  print x * 2\nend\n")
	second := writeFile(t, "second.map", "twice 21\n")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(context.Background(), []string{first, second}, stdout, stderr, noExit)
	if code != 0 {
		t.Fatalf("exit code %d, stderr %q", code, stderr.String())
	}
	if stdout.String() != "42\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunErrors(t *testing.T) {
	bad := writeFile(t, "bad.map", "print 1\nprint nosuchfunc(2)\n")
	io := writeFile(t, "io.map", `dataset "textfile", "/etc/hosts"`+"\n")
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"script error", []string{bad}, bad + ":2:"},
		{"no io", []string{"--no-io", io}, io + ":1:"},
		{"bad define", []string{"-D", "x=1 +", bad}, "definition of x"},
		{"missing file", []string{filepath.Join(t.TempDir(), "none.map")}, "none.map"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
			code := run(context.Background(), c.args, stdout, stderr, noExit)
			if code != 1 {
				t.Errorf("exit code %d", code)
			}
			if !strings.Contains(stderr.String(), c.want) {
				t.Errorf("stderr %q does not contain %q", stderr.String(), c.want)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	cfg := writeFile(t, "mapscript.yaml", "throttle:\n  allow_io: false\n")
	script := writeFile(t, "a.map", `dataset "textfile", "/etc/hosts"`+"\n")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(context.Background(), []string{"--config", cfg, script}, stdout, stderr, noExit)
	if code != 1 || !strings.Contains(stderr.String(), "not permitted") {
		t.Errorf("exit code %d, stderr %q", code, stderr.String())
	}
}

func TestEvalDefine(t *testing.T) {
	t.Setenv("MAPSCRIPT_TEST_CITY", "Leeds")
	cases := []struct {
		def  string
		name string
		want string
	}{
		{"n=3", "n", "3"},
		{"half = 1/2", "half", "0.5"},
		{`city=env("MAPSCRIPT_TEST_CITY") + "!"`, "city", "Leeds!"},
		{"flag=1 < 2", "flag", "1"},
		{"list=[10, 20]", "list", "1 10\n2 20\n"},
	}
	for _, c := range cases {
		name, v, err := evalDefine(c.def)
		if err != nil {
			t.Errorf("%q: %v", c.def, err)
			continue
		}
		if name != c.name {
			t.Errorf("%q: name %q, want %q", c.def, name, c.name)
		}
		if d := cmp.Diff(c.want, v.String()); d != "" {
			t.Errorf("%q: value mismatch (-want +got):\n%s", c.def, d)
		}
	}

	for _, def := range []string{"noequals", "=1", "x=)"} {
		if _, _, err := evalDefine(def); err == nil {
			t.Errorf("%q: expected an error", def)
		}
	}
}

func TestToValueKinds(t *testing.T) {
	if k := toValue(int64(5)).Kind(); k != mapscript.KindNumeric {
		t.Errorf("int64 gave kind %v", k)
	}
	if k := toValue(map[string]any{"a": 1}).Kind(); k != mapscript.KindMap {
		t.Errorf("map gave kind %v", k)
	}
}
