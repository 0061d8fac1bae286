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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFunctions(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"abs(-3)", "3"},
		{"ceil(1.2) . floor(1.8) . round(2.5)", "213"},
		{"sqrt(16)", "4"},
		{"round(sin(30) * 1000)", "500"},
		{"round(cos(60) * 1000)", "500"},
		{"pow(2, 10)", "1024"},
		{"round(log(exp(2)) * 1000)", "2000"},
		{"min(3, 1, 2)", "1"},
		{`max("7", 12, "3")`, "12"},
		{"sum(1, 2, 3.5)", "6.5"},
		{"random(0)", "0"},

		{`length("héllo")`, "5"},
		{`substr("hello", 2, 3)`, "ell"},
		{`substr("hello", 4)`, "lo"},
		{`substr("hello", -1, 3)`, "h"},
		{`substr("hello", 9)`, ""},
		{`upper("abc") . lower("DEF")`, "ABCdef"},
		{`"[" . trim("  x  ") . "]"`, "[x]"},
		{`lpad("7", 3, "0")`, "007"},
		{`lpad("abcdef", 3)`, "def"},
		{`rpad("ab", 5, "xy")`, "abxyx"},
		{`"[" . rpad("ab", 4) . "]"`, "[ab  ]"},
		{`match("hello world", "o w")`, "5"},
		{`match("abc", "z")`, "0"},
		{`replace("a-b-c", "-", "+")`, "a+b+c"},
		{`length(split("a b  c"))`, "3"},
		{`split("x,y", ",")[2]`, "y"},

		{`format("#,##0.00", 1234.5)`, "1,234.50"},
		{`format("0.###", 3.14159)`, "3.142"},
		{`format("00", 7)`, "07"},
		{`format("#.##", -0.001)`, "0"},
		{`format("0.0", -2.76)`, "-2.8"},
		{`format("Total: #,##0 km", 1234567)`, "Total: 1,234,567 km"},

		{`interpolate("0 0 10 100", 2.5)`, "25"},
		{`interpolate("0 0 10 100", -5)`, "0"},
		{`interpolate("0 0 10 100", 20)`, "100"},
		{`interpolate("0 white 10 black", 5)`, "#808080"},
		{`interpolate("0 red 10 #ff0000", 5)`, "#ff0000"},

		{`geometry("POINT(1 2)")`, "POINT (1 2)"},
		{`getenv("MAPSCRIPT_TEST_VALUE")`, "on"},
		{`round(stringwidth("abcd"))`, "11"},
		{`stringheight("abcd")`, "5"},
	}
	t.Setenv("MAPSCRIPT_TEST_VALUE", "on")
	for _, c := range cases {
		got, err := run(t, NewInterpreter(), "print "+c.expr+"\n")
		if err != nil {
			t.Errorf("%s: %v", c.expr, err)
			continue
		}
		if got != c.want+"\n" {
			t.Errorf("%s = %q, want %q", c.expr, strings.TrimSuffix(got, "\n"), c.want)
		}
	}
}

func TestFunctionErrors(t *testing.T) {
	cases := []string{
		"sqrt(-1)",
		"log(0)",
		`match("a", "(")`,
		`interpolate("10 a 5 b", 12)`,
		`interpolate("0 1 10", 7)`,
		`interpolate("0 nosuchcolor 10 red", 5)`,
		`geometry("POINT (1)")`,
		`spool("/nonexistent/file")`,
		`sum(1, geometry("POINT (1 2)"))`,
	}
	for _, expr := range cases {
		if _, err := run(t, NewInterpreter(), "x = "+expr+"\n"); err == nil {
			t.Errorf("%s: no error", expr)
		}
	}
}

type fixedMetrics struct{}

func (fixedMetrics) StringSize(text, font string, size float64) (w, h float64) {
	return float64(len(text)) * size, 2 * size
}

func TestStringSize(t *testing.T) {
	intp := NewInterpreter()
	intp.Fonts = fixedMetrics{}
	got, err := run(t, intp, `font "Times-Roman", 3
scale 2
print stringwidth("abcd"), stringheight("x")
`)
	if err != nil {
		t.Fatal(err)
	}
	if got != "6 3\n" {
		t.Errorf("got %q", got)
	}
}

func TestSpool(t *testing.T) {
	name := filepath.Join(t.TempDir(), "text")
	if err := os.WriteFile(name, []byte{'c', 'a', 'f', 0xe9, ' ', 0xa4, 0x80}, 0o644); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		extras string
		want   string
	}{
		{"encoding=iso-8859-1", "café \u00a4\u0080"},
		{"encoding=Latin1", "café \u00a4\u0080"},
		{"encoding=latin9", "café €\u0080"},
		{"encoding=cp1252", "café ¤€"},
	}
	for _, c := range cases {
		intp := NewInterpreter()
		intp.Define("file", NewString(name))
		got, err := run(t, intp, `print spool(file, "`+c.extras+`")`+"\n")
		if err != nil {
			t.Errorf("%s: %v", c.extras, err)
			continue
		}
		if got != c.want+"\n" {
			t.Errorf("%s: got %q, want %q", c.extras, got, c.want)
		}
	}

	intp := NewInterpreter()
	intp.Define("file", NewString(name))
	_, err := run(t, intp, `x = spool(file, "encoding=ebcdic")`+"\n")
	if !IsKind(err, EvaluationError) {
		t.Errorf("expected an evaluation error, got %v", err)
	}

	intp.Throttle.DenyIO = true
	_, err = run(t, intp, "x = spool(file)\n")
	if !IsKind(err, ThrottleError) {
		t.Errorf("expected a throttle error, got %v", err)
	}
}
