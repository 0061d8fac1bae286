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

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"Info", LevelInfo},
		{" warn ", LevelWarn},
		{"error", LevelError},
		{"loud", DefaultLevel},
		{"", DefaultLevel},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"text", FormatText},
		{"xml", DefaultFormat},
	}
	for _, c := range cases {
		if got := ParseFormat(c.in); got != c.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	l := Make(buf, WithLevel(LevelInfo))
	l.Debug("hidden")
	if buf.Len() > 0 {
		t.Errorf("debug message written at level info: %q", buf.String())
	}
	l.Info("shown")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("info message missing: %q", buf.String())
	}
}

func TestTraceLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := Make(buf, WithLevel(LevelTrace), WithTimeLayout(""))
	l.Log(context.Background(), slog.Level(LevelTrace), "step", slog.Int("line", 3))
	want := "level=TRACE msg=step line=3\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := Make(buf, WithFormat(FormatJSON), WithTimeLayout(""))
	l.Warn("careful", slog.String("file", "a.map"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["level"] != "WARN" || rec["msg"] != "careful" || rec["file"] != "a.map" {
		t.Errorf("unexpected record %v", rec)
	}
	if _, hasTime := rec["time"]; hasTime {
		t.Error("time stamp not removed")
	}
	if l.Format() != FormatJSON || l.Level() != DefaultLevel {
		t.Errorf("wrong configuration %v %v", l.Format(), l.Level())
	}
}

func TestNilWriter(t *testing.T) {
	l := Make(nil, WithLevel(LevelTrace))
	l.Error("nowhere") // must not panic
}
