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
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"
)

func TestArcFlattening(t *testing.T) {
	cases := []struct {
		r       float64
		maxLen  int
		wantLen float64
	}{
		{10, maxArcSteps + 1, 10 * math.Pi},
		{1e12, maxArcSteps + 1, 0},
	}
	for _, c := range cases {
		p := &Path{}
		p.MoveTo(vec.Vec2{X: c.r}, 0)
		if err := p.ArcTo(-1, vec.Vec2{}, vec.Vec2{X: -c.r}); err != nil {
			t.Fatal(err)
		}
		polys := p.flatten(flattenTolerance)
		if len(polys) != 1 {
			t.Fatalf("r=%g: %d polylines", c.r, len(polys))
		}
		if n := len(polys[0]); n < 3 || n > c.maxLen {
			t.Errorf("r=%g: %d points", c.r, n)
		}
		if c.wantLen > 0 {
			if l := p.Length(); math.Abs(l-c.wantLen) > 0.1 {
				t.Errorf("r=%g: length %g, want %g", c.r, l, c.wantLen)
			}
		}
	}
}

func TestFlattenSteps(t *testing.T) {
	cases := []struct {
		x    float64
		want int
	}{
		{0, 1},
		{0.3, 1},
		{1.2, 2},
		{99.5, 100},
		{5e6, 100},
		{math.Inf(1), 100},
		{math.NaN(), 1},
	}
	for _, c := range cases {
		if got := flattenSteps(c.x, 100); got != c.want {
			t.Errorf("flattenSteps(%g) = %d, want %d", c.x, got, c.want)
		}
	}
}
