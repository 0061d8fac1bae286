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
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/vec"
)

// run executes a script and returns everything it printed.
func run(t *testing.T, intp *Interpreter, script string) (string, error) {
	t.Helper()
	out := &strings.Builder{}
	intp.Stdout = out
	err := intp.Execute(context.Background(), strings.NewReader(script), "test.map")
	return out.String(), err
}

func TestPrograms(t *testing.T) {
	cases := []struct {
		name   string
		script string
		want   string
	}{
		{"arithmetic", "print 1 + 2 * 3, (1 + 2) * 3, 7 % 3, -2 * 3\n", "7 9 1 -6\n"},
		{"strings", `print "a" . "b", "x" eq "x", "10" < "9", "10" lt "9"` + "\n", "ab 1 0 1\n"},
		{"string to number", `print "abc" + 1, "" * 5` + "\n", "1 0\n"},
		{"conditional", "x = 3\nprint x > 2 ? \"big\" : \"small\"\n", "big\n"},
		{"if chain", `x = 5
if x < 3 then
  print "low"
elif x < 10
  print "mid"
else
  print "high"
endif
`, "mid\n"},
		{"while", "i = 0\nwhile i < 3 do\n  i = i + 1\ndone\nprint i\n", "3\n"},
		{"repeat", "n = 0\nrepeat 0.1 * 30 do\n  n = n + 1\ndone\nprint n\n", "3\n"},
		{"let", "let a = 1, b = a + 1\nprint a, b\n", "1 2\n"},
		{"map", "m[\"x\"] = 1\nm[2] = \"two\"\nprint m[\"x\"], m[2], m[\"none\"] eq \"\"\n", "1 two 1\n"},
		{"for", "m[3] = 1\nm[1] = 1\nm[2] = 1\nfor k in m do\n  print k\ndone\n", "1\n2\n3\n"},
		{"top level return", "print 1\nreturn\nprint 2\n", "1\n"},
		{"recursive function", `function fact n
  if n <= 1 then
    return 1
  endif
  return n * fact(n - 1)
end
print fact(5)
`, "120\n"},
		{"geometry index", `g = geometry("LINESTRING (1 2, 3 4)")
print g["type"], g["count"], g[2]["x"], g["y"]
`, "LINESTRING 2 3 2\n"},
		{"internal defaults", "print mapscript.path.length, mapscript.page.width, mapscript.nosuch eq \"\"\n", "0 0 1\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := run(t, NewInterpreter(), c.script)
			if err != nil {
				t.Fatal(err)
			}
			if got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestScoping(t *testing.T) {
	script := `x = 1
begin p a
  local x
  x = 2
  y = a + x
end
p 10
print x, y, a eq ""
`
	got, err := run(t, NewInterpreter(), script)
	if err != nil {
		t.Fatal(err)
	}
	if got != "1 12 1\n" {
		t.Errorf("got %q", got)
	}
}

func TestForLoopSnapshot(t *testing.T) {
	script := `m["a"] = 1
m["b"] = 2
n = 0
for k in m do
  m[k . "x"] = 1
  n = n + 1
done
print n, length(m)
`
	got, err := run(t, NewInterpreter(), script)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2 4\n" {
		t.Errorf("got %q", got)
	}
}

func TestRecursionLimit(t *testing.T) {
	intp := NewInterpreter()
	_, err := run(t, intp, "begin loop\n  loop\nend\nloop\n")
	if !IsKind(err, StateError) {
		t.Fatalf("expected a state error, got %v", err)
	}
	if d := intp.contextStack().Depth(); d != 1 {
		t.Errorf("%d frames left on the stack", d)
	}
}

func TestReplication(t *testing.T) {
	script := `begin mark
  move 0, 0
  print mapscript.path.start.x, mapscript.path.start.y
end
move 1, 1
move 2, 2
mark
`
	got, err := run(t, NewInterpreter(), script)
	if err != nil {
		t.Fatal(err)
	}
	if got != "1 1\n2 2\n" {
		t.Errorf("got %q", got)
	}
}

func TestReplicationHeading(t *testing.T) {
	script := `begin tick
  move 1, 0
  print round(abs(mapscript.path.start.x)), round(mapscript.path.start.y)
end
rotate 90
move 5, 0
tick
`
	got, err := run(t, NewInterpreter(), script)
	if err != nil {
		t.Fatal(err)
	}
	if got != "0 6\n" {
		t.Errorf("got %q", got)
	}
}

func TestReplicationDrawing(t *testing.T) {
	opener := &recorderOpener{}
	intp := NewInterpreter()
	intp.Outputs = opener
	script := `newpage "test", "page", 100, 100
begin dot
  box -1, -1, 1, 1
  fill
end
move 10, 10
move 20, 30
dot
`
	if _, err := run(t, intp, script); err != nil {
		t.Fatal(err)
	}
	var fills []string
	for _, call := range opener.last.calls {
		if strings.HasPrefix(call, "fill ") {
			fills = append(fills, call)
		}
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %q", fills)
	}
	if !strings.HasPrefix(fills[0], "fill M9,9L9,11L11,11L11,9") ||
		!strings.HasPrefix(fills[1], "fill M19,29L19,31L21,31L21,29") {
		t.Errorf("wrong fills %q", fills)
	}
}

func TestLazyAttributes(t *testing.T) {
	opener := &recorderOpener{}
	intp := NewInterpreter()
	intp.Outputs = opener
	script := `newpage "test", "page", 100, 100
color "red"
color "blue"
move 0, 0
draw 10, 10
stroke
stroke
`
	if _, err := run(t, intp, script); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"color 0000ffff",
		"linestyle 0.1",
		"clip 0",
		"stroke M0,0L10,10",
		"stroke M0,0L10,10",
	}
	if d := cmp.Diff(want, opener.last.drawCalls()); d != "" {
		t.Errorf("calls (-want +got):\n%s", d)
	}
}

func TestAttributesAfterCall(t *testing.T) {
	script := `newpage "test", "page", 100, 100
begin highlight
  color "red"
  stroke
end
move 0, 0
draw 10, 10
stroke
highlight
stroke
`
	cases := []struct {
		canRestore bool
		want       []string
	}{
		{false, []string{
			"color 000000ff", "linestyle 0.1", "clip 0", "stroke M0,0L10,10",
			"color ff0000ff", "stroke M0,0L10,10",
			"color 000000ff", "stroke M0,0L10,10",
		}},
		{true, []string{
			"color 000000ff", "linestyle 0.1", "clip 0", "stroke M0,0L10,10",
			"color ff0000ff", "stroke M0,0L10,10",
			"stroke M0,0L10,10",
		}},
	}
	for _, c := range cases {
		opener := &recorderOpener{canRestore: c.canRestore}
		intp := NewInterpreter()
		intp.Outputs = opener
		if _, err := run(t, intp, script); err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(c.want, opener.last.drawCalls()); d != "" {
			t.Errorf("canRestore=%t (-want +got):\n%s", c.canRestore, d)
		}
	}
}

func TestClipIntersection(t *testing.T) {
	intp := NewInterpreter()
	intp.Outputs = &recorderOpener{}
	script := `newpage "test", "page", 100, 100
box 0, 0, 60, 60
clip
clearpath
box 40, 40, 100, 100
clip "inside"
`
	if _, err := run(t, intp, script); err != nil {
		t.Fatal(err)
	}
	c := intp.Current()
	cases := []struct {
		pt   vec.Vec2
		want bool
	}{
		{vec.Vec2{X: 50, Y: 50}, true},
		{vec.Vec2{X: 20, Y: 20}, false},
		{vec.Vec2{X: 80, Y: 80}, false},
		{vec.Vec2{X: 50, Y: 90}, false},
	}
	for _, tc := range cases {
		if got := c.ClipContains(tc.pt); got != tc.want {
			t.Errorf("ClipContains(%v) = %t", tc.pt, got)
		}
	}
}

func TestClipOutside(t *testing.T) {
	intp := NewInterpreter()
	intp.Outputs = &recorderOpener{}
	script := `newpage "test", "page", 100, 100
box 40, 40, 60, 60
protect
`
	if _, err := run(t, intp, script); err != nil {
		t.Fatal(err)
	}
	c := intp.Current()
	if c.ClipContains(vec.Vec2{X: 50, Y: 50}) {
		t.Error("protected area is drawable")
	}
	if !c.ClipContains(vec.Vec2{X: 10, Y: 10}) {
		t.Error("area outside the protected box is not drawable")
	}
}

func TestWorldsAspect(t *testing.T) {
	intp := NewInterpreter()
	intp.Outputs = &recorderOpener{}
	script := `newpage "test", "page", 100, 100
worlds 0, 0, 10, 5
print mapscript.worlds.min.x, mapscript.worlds.max.x, mapscript.worlds.min.y, mapscript.worlds.max.y
move 5, 2.5
print mapscript.path.start.x, mapscript.path.start.y
clearpath
worlds 0, 0, 10, 5, "distortion=true"
print mapscript.worlds.min.y, mapscript.worlds.max.y
`
	got, err := run(t, intp, script)
	if err != nil {
		t.Fatal(err)
	}
	want := "0 10 -2.5 7.5\n50 50\n0 5\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDataset(t *testing.T) {
	ds := &memDataset{
		fields: []string{"name", "pop"},
		rows: []Row{
			{NewString("Oslo"), NewNumeric(700)},
			{NewString("Bergen"), NewNumeric(290)},
		},
	}
	intp := NewInterpreter()
	intp.Datasets = memOpener{ds: ds}
	script := `dataset "memory", "cities"
print mapscript.dataset.fieldnames, mapscript.dataset.projection, mapscript.dataset.min.x
while mapscript.fetch.more do
  fetch
  print name, pop * 1000
done
print mapscript.fetch.count
`
	got, err := run(t, intp, script)
	if err != nil {
		t.Fatal(err)
	}
	want := "name pop EPSG:4326 -10\nOslo 700000\nBergen 290000\n2\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	_, err = run(t, intp, "fetch\n")
	if !IsKind(err, StateError) {
		t.Errorf("fetch past the end: %v", err)
	}
	if err := intp.Close(); err != nil {
		t.Fatal(err)
	}
	if !ds.closed {
		t.Error("dataset not closed")
	}
}

func TestErrors(t *testing.T) {
	cases := []struct {
		script string
		kind   ErrorKind
		prefix string
	}{
		{"x = 1\ny = 1 / 0\n", EvaluationError, "test.map:2: "},
		{"print 1\nif 1 then\nprint 2\n", ParseError, "test.map:"},
		{"print nosuch(1)\n", ParseError, "test.map:1: "},
		{"print abs(1, 2)\n", ParseError, "test.map:1: "},
		{"nosuchproc\n", EvaluationError, "test.map:1: "},
		{"begin p a\nend\np\n", StateError, "test.map:3: "},
		{"stroke\n", StateError, "test.map:1: "},
		{"move 1, 2, 3\n", EvaluationError, "test.map:1: "},
		{"color \"nosuchcolor\"\n", EvaluationError, "test.map:1: "},
		{"begin p\n  x = 1 / 0\nend\np\n", EvaluationError, "test.map:2: "},
		{"m[1] = 1\nprint m + 1\n", EvaluationError, "test.map:2: "},
		{"if \"1\" then\n  print 1\nendif\n", EvaluationError, "test.map:1: "},
		{"x = 1\nwhile \"0\" do\ndone\n", EvaluationError, "test.map:2: "},
		{"m[1] = 1\nif m then\nendif\n", EvaluationError, "test.map:2: "},
	}
	for _, c := range cases {
		_, err := run(t, NewInterpreter(), c.script)
		if err == nil {
			t.Errorf("%q: no error", c.script)
			continue
		}
		if !IsKind(err, c.kind) {
			t.Errorf("%q: wrong kind: %v", c.script, err)
		}
		if !strings.HasPrefix(err.Error(), c.prefix) {
			t.Errorf("%q: message %q does not start with %q", c.script, err, c.prefix)
		}
	}
}

func TestTopLevelLet(t *testing.T) {
	intp := NewInterpreter()
	if _, err := run(t, intp, "let a = 1, b = 2\n"); err != nil {
		t.Fatal(err)
	}
	got := []string{intp.Lookup("a").String(), intp.Lookup("b").String()}
	if d := cmp.Diff([]string{"1", "2"}, got); d != "" {
		t.Errorf("variables (-want +got):\n%s", d)
	}

	out, err := run(t, intp, "let a = 3, b = 4 ; print a . b\n")
	if err != nil {
		t.Fatal(err)
	}
	if out != "34\n" {
		t.Errorf("got %q", out)
	}
}

func TestSuggestion(t *testing.T) {
	_, err := run(t, NewInterpreter(), "color \"lightgren\"\n")
	if err == nil || !strings.Contains(err.Error(), `did you mean "lightgreen"`) {
		t.Errorf("no suggestion in %v", err)
	}
}

func TestCancel(t *testing.T) {
	intp := NewInterpreter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := intp.ExecuteString(ctx, "while 1 do\ndone\n")
	if !IsKind(err, CancellationError) {
		t.Errorf("expected a cancellation error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestThrottle(t *testing.T) {
	intp := NewInterpreter()
	intp.Throttle.Timeout = 20 * time.Millisecond
	err := intp.ExecuteString(context.Background(), "while 1 do\ndone\n")
	if !IsKind(err, ThrottleError) {
		t.Errorf("expected a throttle error, got %v", err)
	}

	intp = NewInterpreter()
	intp.Throttle.DenyIO = true
	intp.Outputs = &recorderOpener{}
	err = intp.ExecuteString(context.Background(), `newpage "test", "page", 10, 10`)
	if !IsKind(err, ThrottleError) {
		t.Errorf("expected a throttle error, got %v", err)
	}
}

func TestDefine(t *testing.T) {
	intp := NewInterpreter()
	intp.Define("size", NewNumeric(12))
	got, err := run(t, intp, "print size / 4\n")
	if err != nil {
		t.Fatal(err)
	}
	if got != "3\n" {
		t.Errorf("got %q", got)
	}
	if v := intp.Lookup("size"); v.String() != "12" {
		t.Errorf("Lookup gave %v", v)
	}
}

func TestRepeatCount(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{3, 3},
		{0.1 * 30, 3},
		{2.9999999999999996, 3},
		{2.5, 2},
		{-1, 0},
		{0, 0},
	}
	for _, c := range cases {
		if got := repeatCount(c.in); got != c.want {
			t.Errorf("repeatCount(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
