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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVariableOperands(t *testing.T) {
	p := newParser(NewScanner(strings.NewReader("local a, b\nbegin p x, y\nend\n"), "t.map"),
		make(map[string]*procedure))

	list, err := p.parseNext()
	if err != nil {
		t.Fatal(err)
	}
	local, ok := list[0].(*localStmt)
	if !ok {
		t.Fatalf("got %T, want *localStmt", list[0])
	}
	if d := cmp.Diff([]VarRef{"a", "b"}, local.names); d != "" {
		t.Errorf("local names (-want +got):\n%s", d)
	}

	list, err = p.parseNext()
	if err != nil {
		t.Fatal(err)
	}
	def, ok := list[0].(*defineStmt)
	if !ok {
		t.Fatalf("got %T, want *defineStmt", list[0])
	}
	if d := cmp.Diff([]VarRef{"x", "y"}, def.proc.params); d != "" {
		t.Errorf("parameters (-want +got):\n%s", d)
	}

	var v Value = local.names[0]
	if v.Kind() != KindVariable || v.String() != "a" {
		t.Errorf("got %s %q", v.Kind(), v)
	}
	if _, err := NumericValue(v); !IsKind(err, EvaluationError) {
		t.Errorf("NumericValue of a variable name: %v", err)
	}
}

func TestBrokenFunctionDefinition(t *testing.T) {
	intp := NewInterpreter()
	_, err := run(t, intp, "function f\n  return 1 +\nend\n")
	if !IsKind(err, ParseError) {
		t.Fatalf("got %v, want a parse error", err)
	}
	_, err = run(t, intp, "print f()\n")
	if !IsKind(err, ParseError) {
		t.Errorf("call of a broken function: got %v, want a parse error", err)
	}

	if _, err := run(t, intp, "function g\n  return 1\nend\n"); err != nil {
		t.Fatal(err)
	}
	_, err = run(t, intp, "function g\n  return (\nend\n")
	if !IsKind(err, ParseError) {
		t.Fatalf("got %v, want a parse error", err)
	}
	out, err := run(t, intp, "print g()\n")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1\n" {
		t.Errorf("got %q, want the earlier definition", out)
	}
}
