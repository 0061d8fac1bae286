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

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

type segKind int

const (
	segMove segKind = iota
	segLine
	segArc
	segCurve
	segClose
)

// segment is one element of a [Path].  All points are page coordinates.
type segment struct {
	kind    segKind
	pt      vec.Vec2 // end point; the center for arcs
	c1, c2  vec.Vec2 // curve control points
	end     vec.Vec2 // arc end point
	heading float64  // rotation in effect at a move, in radians
	dir     int      // arc direction: 1 clockwise, -1 anti-clockwise
}

// Path is a sequence of moves, lines, arcs and curves in page coordinates.
type Path struct {
	segs      []segment
	moveCount int
	lineCount int
}

// MoveCount returns the number of move points in the path.
func (p *Path) MoveCount() int {
	if p == nil {
		return 0
	}
	return p.moveCount
}

// LineCount returns the number of line, arc and curve segments in the path.
func (p *Path) LineCount() int {
	if p == nil {
		return 0
	}
	return p.lineCount
}

// IsEmpty reports whether the path contains no points.
func (p *Path) IsEmpty() bool {
	return p == nil || len(p.segs) == 0
}

func (p *Path) clone() *Path {
	if p == nil {
		return &Path{}
	}
	return &Path{
		segs:      append([]segment(nil), p.segs...),
		moveCount: p.moveCount,
		lineCount: p.lineCount,
	}
}

// MoveTo starts a new subpath.
func (p *Path) MoveTo(pt vec.Vec2, heading float64) {
	p.segs = append(p.segs, segment{kind: segMove, pt: pt, heading: heading})
	p.moveCount++
}

// currentPoint returns the end point of the last segment.
func (p *Path) currentPoint() (vec.Vec2, bool) {
	if p == nil {
		return vec.Vec2{}, false
	}
	for i := len(p.segs) - 1; i >= 0; i-- {
		s := p.segs[i]
		switch s.kind {
		case segClose:
			continue
		case segArc:
			return s.end, true
		default:
			return s.pt, true
		}
	}
	return vec.Vec2{}, false
}

// subpathStart returns the first point of the last subpath.
func (p *Path) subpathStart() (vec.Vec2, bool) {
	for i := len(p.segs) - 1; i >= 0; i-- {
		if p.segs[i].kind == segMove {
			return p.segs[i].pt, true
		}
	}
	return vec.Vec2{}, false
}

// LineTo adds a straight line from the current point.
func (p *Path) LineTo(pt vec.Vec2) error {
	if _, ok := p.currentPoint(); !ok {
		return errState("no current point")
	}
	p.segs = append(p.segs, segment{kind: segLine, pt: pt})
	p.lineCount++
	return nil
}

// ArcTo adds a circular arc from the current point around center to end.
// The direction is positive for clockwise arcs.
func (p *Path) ArcTo(dir int, center, end vec.Vec2) error {
	if _, ok := p.currentPoint(); !ok {
		return errState("no current point")
	}
	if dir >= 0 {
		dir = 1
	} else {
		dir = -1
	}
	p.segs = append(p.segs, segment{kind: segArc, pt: center, end: end, dir: dir})
	p.lineCount++
	return nil
}

// CurveTo adds a cubic Bezier curve from the current point.
func (p *Path) CurveTo(c1, c2, end vec.Vec2) error {
	if _, ok := p.currentPoint(); !ok {
		return errState("no current point")
	}
	p.segs = append(p.segs, segment{kind: segCurve, c1: c1, c2: c2, pt: end})
	p.lineCount++
	return nil
}

// ClosePath closes the current subpath.
func (p *Path) ClosePath() error {
	start, ok := p.subpathStart()
	if !ok {
		return errState("no current point")
	}
	if cur, _ := p.currentPoint(); cur != start {
		p.segs = append(p.segs, segment{kind: segLine, pt: start})
		p.lineCount++
	}
	p.segs = append(p.segs, segment{kind: segClose})
	return nil
}

// MovePoints returns the move points of the path, together with their
// headings.
func (p *Path) MovePoints() ([]vec.Vec2, []float64) {
	if p == nil {
		return nil, nil
	}
	var pts []vec.Vec2
	var headings []float64
	for _, s := range p.segs {
		if s.kind == segMove {
			pts = append(pts, s.pt)
			headings = append(headings, s.heading)
		}
	}
	return pts, headings
}

// Data converts the path for use by an [Output].  Arcs are approximated
// by cubic Bezier curves.
func (p *Path) Data() *path.Data {
	res := &path.Data{}
	if p == nil {
		return res
	}
	var cur vec.Vec2
	for _, s := range p.segs {
		switch s.kind {
		case segMove:
			res.Cmds = append(res.Cmds, path.CmdMoveTo)
			res.Coords = append(res.Coords, s.pt)
			cur = s.pt
		case segLine:
			res.Cmds = append(res.Cmds, path.CmdLineTo)
			res.Coords = append(res.Coords, s.pt)
			cur = s.pt
		case segCurve:
			res.Cmds = append(res.Cmds, path.CmdCubeTo)
			res.Coords = append(res.Coords, s.c1, s.c2, s.pt)
			cur = s.pt
		case segArc:
			arcToCubics(cur, s.pt, s.end, s.dir, func(c1, c2, end vec.Vec2) {
				res.Cmds = append(res.Cmds, path.CmdCubeTo)
				res.Coords = append(res.Coords, c1, c2, end)
			})
			cur = s.end
		case segClose:
			res.Cmds = append(res.Cmds, path.CmdClose)
		}
	}
	return res
}

// arcSweep returns the start angle, the signed sweep angle and the radius
// of an arc.  Negative sweeps are clockwise.
func arcSweep(start, center, end vec.Vec2, dir int) (a0, sweep, r float64) {
	r = math.Hypot(start.X-center.X, start.Y-center.Y)
	a0 = math.Atan2(start.Y-center.Y, start.X-center.X)
	a1 := math.Atan2(end.Y-center.Y, end.X-center.X)
	sweep = a1 - a0
	if dir > 0 {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	}
	return a0, sweep, r
}

// arcToCubics approximates an arc by at most four cubic Bezier curves per
// full circle.  The arc ends exactly at end, even if end is not on the
// circle through start.
func arcToCubics(start, center, end vec.Vec2, dir int, emit func(c1, c2, end vec.Vec2)) {
	a0, sweep, r := arcSweep(start, center, end, dir)
	if r == 0 {
		emit(start, end, end)
		return
	}
	n := int(math.Ceil(math.Abs(sweep) / (math.Pi / 2)))
	if n < 1 {
		n = 1
	}
	step := sweep / float64(n)
	k := 4.0 / 3.0 * math.Tan(step/4)
	for i := 0; i < n; i++ {
		t0 := a0 + float64(i)*step
		t1 := t0 + step
		p0 := vec.Vec2{X: center.X + r*math.Cos(t0), Y: center.Y + r*math.Sin(t0)}
		p3 := vec.Vec2{X: center.X + r*math.Cos(t1), Y: center.Y + r*math.Sin(t1)}
		if i == n-1 {
			p3 = end
		}
		c1 := vec.Vec2{X: p0.X - k*r*math.Sin(t0), Y: p0.Y + k*r*math.Cos(t0)}
		c2 := vec.Vec2{X: p3.X + k*r*math.Sin(t1), Y: p3.Y - k*r*math.Cos(t1)}
		emit(c1, c2, p3)
	}
}

// flatten converts the path to polylines, one per subpath.
// The tolerance is given in page millimetres.
func (p *Path) flatten(tolerance float64) [][]vec.Vec2 {
	var res [][]vec.Vec2
	var cur []vec.Vec2
	var pos vec.Vec2
	flush := func() {
		if len(cur) > 0 {
			res = append(res, cur)
		}
		cur = nil
	}
	if p == nil {
		return nil
	}
	for _, s := range p.segs {
		switch s.kind {
		case segMove:
			flush()
			cur = []vec.Vec2{s.pt}
			pos = s.pt
		case segLine:
			cur = append(cur, s.pt)
			pos = s.pt
		case segCurve:
			cur = flattenCubic(cur, pos, s.c1, s.c2, s.pt, tolerance)
			pos = s.pt
		case segArc:
			a0, sweep, r := arcSweep(pos, s.pt, s.end, s.dir)
			n := 1
			if r > 0 && tolerance < r {
				maxStep := 2 * math.Acos(1-tolerance/r)
				n = flattenSteps(math.Abs(sweep)/maxStep, maxArcSteps)
			}
			for i := 1; i < n; i++ {
				t := a0 + sweep*float64(i)/float64(n)
				cur = append(cur, vec.Vec2{X: s.pt.X + r*math.Cos(t), Y: s.pt.Y + r*math.Sin(t)})
			}
			cur = append(cur, s.end)
			pos = s.end
		}
	}
	flush()
	return res
}

func flattenCubic(out []vec.Vec2, p0, p1, p2, p3 vec.Vec2, tolerance float64) []vec.Vec2 {
	d1 := p0.Sub(p1.Mul(2)).Add(p2)
	d2 := p1.Sub(p2.Mul(2)).Add(p3)
	dd := math.Max(math.Hypot(d1.X, d1.Y), math.Hypot(d2.X, d2.Y))
	n := flattenSteps(math.Sqrt(0.75*dd/tolerance), maxCurveSteps)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		pt := p0.Mul(omt * omt * omt).
			Add(p1.Mul(3 * omt * omt * t)).
			Add(p2.Mul(3 * omt * t * t)).
			Add(p3.Mul(t * t * t))
		out = append(out, pt)
	}
	return out
}

const flattenTolerance = 0.05

// Upper limits for the number of line segments used to approximate a
// single arc or curve segment.
const (
	maxArcSteps   = 1024
	maxCurveSteps = 100
)

// flattenSteps rounds x up to an integer in the range [1, hi].
func flattenSteps(x float64, hi int) int {
	switch {
	case math.IsNaN(x) || x < 1:
		return 1
	case x > float64(hi):
		return hi
	}
	return int(math.Ceil(x))
}

// Length returns the total length of all subpaths.
func (p *Path) Length() float64 {
	total := 0.0
	for _, poly := range p.flatten(flattenTolerance) {
		for i := 1; i < len(poly); i++ {
			total += math.Hypot(poly[i].X-poly[i-1].X, poly[i].Y-poly[i-1].Y)
		}
	}
	return total
}

// Area returns the area enclosed by the path.  Subpaths are treated as
// closed; holes with the opposite orientation reduce the area.
func (p *Path) Area() float64 {
	total := 0.0
	for _, poly := range p.flatten(flattenTolerance) {
		total += signedArea(poly)
	}
	return math.Abs(total)
}

// signedArea is positive for anti-clockwise polygons.
func signedArea(poly []vec.Vec2) float64 {
	a := 0.0
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return a / 2
}

// Bounds returns the bounding box of the path.
func (p *Path) Bounds() (rect.Rect, bool) {
	first := true
	var r rect.Rect
	for _, poly := range p.flatten(flattenTolerance) {
		for _, pt := range poly {
			if first {
				r = rect.Rect{LLx: pt.X, LLy: pt.Y, URx: pt.X, URy: pt.Y}
				first = false
				continue
			}
			r.LLx = math.Min(r.LLx, pt.X)
			r.LLy = math.Min(r.LLy, pt.Y)
			r.URx = math.Max(r.URx, pt.X)
			r.URy = math.Max(r.URy, pt.Y)
		}
	}
	return r, !first
}

// Endpoints returns the first and the last point of the path.
func (p *Path) Endpoints() (start, end vec.Vec2, ok bool) {
	if p.IsEmpty() {
		return vec.Vec2{}, vec.Vec2{}, false
	}
	start = p.segs[0].pt
	end, _ = p.currentPoint()
	return start, end, true
}

// Sample returns a path of move points placed at regular intervals along
// the path.  Each point carries the direction of the path at that point as
// its heading, added to baseRotation.
func (p *Path) Sample(spacing, offset, baseRotation float64) (*Path, error) {
	if spacing <= 0 {
		return nil, errEval("sample spacing must be positive")
	}
	res := &Path{}
	for _, poly := range p.flatten(flattenTolerance) {
		next := offset
		travelled := 0.0
		for i := 1; i < len(poly); i++ {
			a, b := poly[i-1], poly[i]
			segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
			if segLen == 0 {
				continue
			}
			angle := math.Atan2(b.Y-a.Y, b.X-a.X)
			for next <= travelled+segLen {
				if next >= travelled {
					t := (next - travelled) / segLen
					pt := a.Add(b.Sub(a).Mul(t))
					res.MoveTo(pt, baseRotation+angle)
				}
				next += spacing
			}
			travelled += segLen
		}
	}
	return res, nil
}

// Reverse returns the path with the direction of every subpath reversed.
// Arcs and curves are reversed exactly.
func (p *Path) Reverse() *Path {
	res := &Path{}
	if p.IsEmpty() {
		return res
	}

	// split into subpaths
	var subpaths [][]segment
	for _, s := range p.segs {
		if s.kind == segMove || len(subpaths) == 0 {
			subpaths = append(subpaths, nil)
		}
		subpaths[len(subpaths)-1] = append(subpaths[len(subpaths)-1], s)
	}

	for i := len(subpaths) - 1; i >= 0; i-- {
		sp := subpaths[i]
		closed := sp[len(sp)-1].kind == segClose
		if closed {
			sp = sp[:len(sp)-1]
		}

		// points[k] is the start of segment k+1
		points := make([]vec.Vec2, len(sp))
		for k, s := range sp {
			if s.kind == segArc {
				points[k] = s.end
			} else {
				points[k] = s.pt
			}
		}

		last := len(sp) - 1
		res.MoveTo(points[last], sp[0].heading)
		for k := last; k >= 1; k-- {
			s := sp[k]
			prev := points[k-1]
			switch s.kind {
			case segLine:
				res.LineTo(prev)
			case segCurve:
				res.CurveTo(s.c2, s.c1, prev)
			case segArc:
				res.ArcTo(-s.dir, s.pt, prev)
			}
		}
		if closed {
			res.segs = append(res.segs, segment{kind: segClose})
		}
	}
	return res
}

// polygons returns the subpaths of p as closed polygons.
func (p *Path) polygons() [][]vec.Vec2 {
	var res [][]vec.Vec2
	for _, poly := range p.flatten(flattenTolerance) {
		if len(poly) >= 3 {
			res = append(res, poly)
		}
	}
	return res
}

// winding returns the winding number of the polygons around pt.
func winding(polys [][]vec.Vec2, pt vec.Vec2) int {
	w := 0
	for _, poly := range polys {
		for i := range poly {
			a := poly[i]
			b := poly[(i+1)%len(poly)]
			if a.Y <= pt.Y {
				if b.Y > pt.Y && isLeft(a, b, pt) > 0 {
					w++
				}
			} else if b.Y <= pt.Y && isLeft(a, b, pt) < 0 {
				w--
			}
		}
	}
	return w
}

func isLeft(a, b, pt vec.Vec2) float64 {
	return (b.X-a.X)*(pt.Y-a.Y) - (pt.X-a.X)*(b.Y-a.Y)
}

// polygonData converts closed polygons for use by an [Output].
func polygonData(polys [][]vec.Vec2) *path.Data {
	res := &path.Data{}
	for _, poly := range polys {
		for i, pt := range poly {
			if i == 0 {
				res.Cmds = append(res.Cmds, path.CmdMoveTo)
			} else {
				res.Cmds = append(res.Cmds, path.CmdLineTo)
			}
			res.Coords = append(res.Coords, pt)
		}
		res.Cmds = append(res.Cmds, path.CmdClose)
	}
	return res
}
