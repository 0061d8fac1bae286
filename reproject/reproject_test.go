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

package reproject

import (
	"context"
	"math"
	"strings"
	"testing"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/mapscript"
)

func TestParseSystem(t *testing.T) {
	cases := []struct {
		in   string
		want System
		ok   bool
	}{
		{"EPSG:4326", Geographic, true},
		{"epsg:3857", Mercator, true},
		{"+init=epsg:4326", Geographic, true},
		{" Mercator ", Mercator, true},
		{"EPSG:27700", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, err := ParseSystem(c.in)
		if (err == nil) != c.ok {
			t.Errorf("%q: unexpected error state %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q: got %v, want %v", c.in, got, c.want)
		}
	}
}

func TestForward(t *testing.T) {
	p, err := Factory{}.NewProjection("EPSG:4326", "EPSG:3857")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		in, want vec.Vec2
	}{
		{vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 0, Y: 0}},
		{vec.Vec2{X: 180, Y: 0}, vec.Vec2{X: math.Pi * EarthRadius, Y: 0}},
		{vec.Vec2{X: 0, Y: MaxLatitude}, vec.Vec2{X: 0, Y: math.Pi * EarthRadius}},
		{vec.Vec2{X: 0, Y: 89.9}, vec.Vec2{X: 0, Y: math.Pi * EarthRadius}},
	}
	for _, c := range cases {
		got, err := p.Forward(c.in)
		if err != nil {
			t.Errorf("%v: %v", c.in, err)
			continue
		}
		if math.Abs(got.X-c.want.X) > 1e-3 || math.Abs(got.Y-c.want.Y) > 1e-3 {
			t.Errorf("%v: got %v, want %v", c.in, got, c.want)
		}
	}

	_, err = p.Forward(vec.Vec2{X: 0, Y: 95})
	if err == nil {
		t.Error("latitude 95 accepted")
	}
}

func TestRoundTrip(t *testing.T) {
	p, err := Factory{}.NewProjection("EPSG:4326", "EPSG:3857")
	if err != nil {
		t.Fatal(err)
	}
	for _, pt := range []vec.Vec2{{X: 10, Y: 50}, {X: -122.4, Y: 37.8}, {X: 151.2, Y: -33.9}} {
		m, err := p.Forward(pt)
		if err != nil {
			t.Fatal(err)
		}
		back, err := p.Backward(m)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(back.X-pt.X) > 1e-9 || math.Abs(back.Y-pt.Y) > 1e-9 {
			t.Errorf("%v: round trip gave %v", pt, back)
		}
	}
}

func TestUnsupported(t *testing.T) {
	_, err := Factory{}.NewProjection("EPSG:4326", "EPSG:2154")
	if err == nil {
		t.Error("unsupported system accepted")
	}
}

// TestProjectStatement checks that the project statement makes the
// interpreter convert world coordinates before they are used.
func TestProjectStatement(t *testing.T) {
	intp := mapscript.NewInterpreter()
	intp.Projections = Factory{}
	out := &strings.Builder{}
	intp.Stdout = out

	script := `project "EPSG:4326", "EPSG:3857"
move 180, 0
print round(mapscript.path.start.x / 1000)
`
	err := intp.ExecuteString(context.Background(), script)
	if err != nil {
		t.Fatal(err)
	}
	want := "20038\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}
