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

package mapscript

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseExtras(t *testing.T) {
	cases := []struct {
		in   string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"Units=metres distortion=true", map[string]string{"units": "metres", "distortion": "true"}},
		{"plain words a=1 b= =c", map[string]string{"a": "1", "b": "", "": "c"}},
		{"k=v=w", map[string]string{"k": "v=w"}},
	}
	for _, c := range cases {
		if d := cmp.Diff(c.want, ParseExtras(c.in)); d != "" {
			t.Errorf("%q: (-want +got):\n%s", c.in, d)
		}
	}
}

func TestStatementErrors(t *testing.T) {
	cases := []struct {
		script string
		kind   ErrorKind
	}{
		{"linestyle -1\n", EvaluationError},
		{`linestyle 1, "wobbly"` + "\n", EvaluationError},
		{`linestyle 1, "round", "sharp"` + "\n", EvaluationError},
		{`linestyle 1, "round", "round", 0, 2, -1` + "\n", EvaluationError},
		{`font "Helvetica", 0` + "\n", EvaluationError},
		{`justify "upward"` + "\n", EvaluationError},
		{`clip "sideways"` + "\n", EvaluationError},
		{`newpage "svg", "out.svg", 100, 100` + "\n", StateError},
		{`dataset "memory", "x"` + "\n", StateError},
		{`project "EPSG:4326", "EPSG:3857"` + "\n", StateError},
		{`color "rgb", 1, 0` + "\n", EvaluationError},
		{`color "lab", 1, 0, 0` + "\n", EvaluationError},
		{"stroke\n", StateError},
		{"fetch\n", StateError},
	}
	for _, c := range cases {
		_, err := run(t, NewInterpreter(), c.script)
		if !IsKind(err, c.kind) {
			t.Errorf("%q: got %v, want %s", c.script, err, c.kind)
		}
	}
}

func TestNewpageSize(t *testing.T) {
	intp := NewInterpreter()
	intp.Outputs = &recorderOpener{}
	_, err := run(t, intp, `newpage "test", "page", 0, 100`+"\n")
	if !IsKind(err, EvaluationError) {
		t.Errorf("got %v", err)
	}
}

func TestLabelAttributes(t *testing.T) {
	opener := &recorderOpener{}
	intp := NewInterpreter()
	intp.Outputs = opener
	script := `newpage "test", "page", 100, 100
scale 2
linestyle 0.5
font "Helvetica", 4
justify "centre top"
move 1, 1
label "a", 7
clearpath
move 1, 1
draw 2, 1
stroke
`
	if _, err := run(t, intp, script); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"font Helvetica 8",
		"justify 1 2",
		"color 000000ff",
		"clip 0",
		`label 1 "a 7"`,
		"linestyle 1",
		"stroke M2,2L4,2",
	}
	if d := cmp.Diff(want, opener.last.drawCalls()); d != "" {
		t.Errorf("calls (-want +got):\n%s", d)
	}
}

func TestPrintDiscarded(t *testing.T) {
	intp := NewInterpreter()
	intp.Stdout = nil
	if err := intp.ExecuteString(t.Context(), "print 1, 2\n"); err != nil {
		t.Error(err)
	}
}
