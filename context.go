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
	"errors"
	"image/color"
	"io"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// attrBits records which drawing attributes need to be sent to the output.
type attrBits int

const (
	attrFont attrBits = 1 << iota
	attrJustify
	attrColor
	attrLinestyle
	attrClip

	attrAll = attrFont | attrJustify | attrColor | attrLinestyle | attrClip
)

// pathRef is the path of a frame.  Until the first change, a frame uses
// the path of its parent frame; the path is copied before it is modified.
type pathRef struct {
	p     *Path
	owned bool
}

func (r *pathRef) read() *Path {
	return r.p
}

func (r *pathRef) write() *Path {
	if !r.owned {
		r.p = r.p.clone()
		r.owned = true
	}
	return r.p
}

func (r *pathRef) replace(p *Path) {
	r.p = p
	r.owned = true
}

// clipArea is one clip polygon set.  A point is inside if the polygons
// have a non-zero winding number around it.
type clipArea [][]vec.Vec2

// worldMap maps world coordinates to page coordinates.
type worldMap struct {
	extent rect.Rect // after aspect ratio expansion
	units  string
	m      matrix.Matrix
}

// datasetCursor is the dataset of a frame, with one row of look-ahead.
type datasetCursor struct {
	ds    Dataset
	next  Row
	more  bool
	count int
}

// Context is the graphics state of one execution frame.
type Context struct {
	ctm      matrix.Matrix
	scaling  float64
	rotation float64 // radians, counter-clockwise

	world *worldMap
	proj  Projection

	path  pathRef
	clips []clipArea

	color     color.RGBA
	linestyle Linestyle
	font      Font
	justify   Justify

	pending attrBits // attributes not yet sent to the output
	changed attrBits // attributes modified in this frame

	output     Output
	ownsOutput bool
	format     string

	data      *datasetCursor
	ownsData  bool

	vars   map[string]Value
	locals map[string]bool
}

func newContext() *Context {
	c := &Context{}
	c.reset()
	return c
}

// reset sets all graphics state to the defaults.
func (c *Context) reset() {
	c.ctm = matrix.Identity
	c.scaling = 1
	c.rotation = 0
	c.world = nil
	c.proj = nil
	c.path = pathRef{}
	c.clips = nil
	c.color = color.RGBA{A: 255}
	c.linestyle = Linestyle{Width: 0.1}
	c.font = Font{Name: "SansSerif", Size: 5}
	c.justify = Justify{Horizontal: AlignLeft, Vertical: AlignBottom}
	c.pending = attrAll
	c.changed = 0
}

// newChild returns the context for a procedure called from c.
// The child starts with the transformation and attributes of c, and uses
// the path of c until it modifies the path.  World coordinates and
// reprojection are not inherited.
func (c *Context) newChild() (*Context, error) {
	child := &Context{
		ctm:       c.ctm,
		scaling:   c.scaling,
		rotation:  c.rotation,
		path:      pathRef{p: c.path.read()},
		clips:     append([]clipArea(nil), c.clips...),
		color:     c.color,
		linestyle: c.linestyle,
		font:      c.font,
		justify:   c.justify,
		pending:   c.pending,
		output:    c.output,
		format:    c.format,
		data:      c.data,
	}
	if c.output != nil {
		err := c.output.SaveState()
		if err != nil {
			return nil, errIO(err, "cannot save graphics state")
		}
	}
	return child, nil
}

// close releases the resources owned by the frame.  The return value gives
// the attributes which were changed in this frame and which the output
// could not restore.
func (c *Context) close() (attrBits, error) {
	var errs []error
	if c.output != nil && !c.ownsOutput {
		restored, err := c.output.RestoreState()
		if err != nil {
			errs = append(errs, errIO(err, "cannot restore graphics state"))
		}
		if restored {
			c.changed = 0
		}
	}
	if c.ownsOutput && c.output != nil {
		if err := c.output.Close(); err != nil {
			errs = append(errs, errIO(err, "cannot close output"))
		}
		c.output = nil
		c.ownsOutput = false
	}
	if c.ownsData && c.data != nil {
		if err := c.data.ds.Close(); err != nil {
			errs = append(errs, errIO(err, "cannot close dataset"))
		}
		c.data = nil
		c.ownsData = false
	}
	return c.changed, errors.Join(errs...)
}

// setAttributesChanged marks attributes which a called procedure changed,
// so that they are sent to the output again before the next drawing
// operation.
func (c *Context) setAttributesChanged(bits attrBits) {
	c.pending |= bits
	c.changed |= bits
}

func (c *Context) setAttr(bits attrBits) {
	c.pending |= bits
	c.changed |= bits
}

// applyAttributes sends the pending attributes in mask to the output.
func (c *Context) applyAttributes(mask attrBits) error {
	need := c.pending & mask
	var err error
	if need&attrFont != 0 {
		err = c.output.SetFont(c.font)
	}
	if err == nil && need&attrJustify != 0 {
		err = c.output.SetJustify(c.justify)
	}
	if err == nil && need&attrColor != 0 {
		err = c.output.SetColor(c.color)
	}
	if err == nil && need&attrLinestyle != 0 {
		err = c.output.SetLinestyle(c.linestyle)
	}
	if err == nil && need&attrClip != 0 {
		err = c.output.SetClip(c.clipData())
	}
	if err != nil {
		return errIO(err, "cannot set drawing attributes")
	}
	c.pending &^= need
	return nil
}

func (c *Context) clipData() []*path.Data {
	res := make([]*path.Data, len(c.clips))
	for i, area := range c.clips {
		res[i] = polygonData(area)
	}
	return res
}

func (c *Context) needOutput() error {
	if c.output == nil {
		return errState("no output page defined")
	}
	return nil
}

// OpenPage starts a new page, closing any page previously started in this
// frame.  All graphics state is reset.
func (c *Context) OpenPage(out Output, format string) error {
	var err error
	if c.ownsOutput && c.output != nil {
		err = c.output.Close()
		if err != nil {
			err = errIO(err, "cannot close output")
		}
	}
	c.reset()
	c.output = out
	c.ownsOutput = true
	c.format = format
	return err
}

// ClosePage finishes the page started in this frame.
func (c *Context) ClosePage() error {
	if !c.ownsOutput || c.output == nil {
		return errState("no output page started here")
	}
	err := c.output.Close()
	c.output = nil
	c.ownsOutput = false
	if err != nil {
		return errIO(err, "cannot close output")
	}
	return nil
}

// Scale scales subsequent coordinates by factor s.
func (c *Context) Scale(s float64) error {
	if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return errEval("invalid scale factor %g", s)
	}
	c.ctm = matrix.Scale(s, s).Mul(c.ctm)
	c.scaling *= s
	return nil
}

// Rotate rotates subsequent coordinates counter-clockwise.
func (c *Context) Rotate(degrees float64) {
	angle := degrees * math.Pi / 180
	c.ctm = rotation(angle).Mul(c.ctm)
	c.rotation = math.Remainder(c.rotation+angle, 2*math.Pi)
}

// Translate moves the origin for subsequent coordinates.
func (c *Context) Translate(x, y float64) {
	c.ctm = matrix.Translate(x, y).Mul(c.ctm)
}

// SetWorlds sets the world coordinate range shown on the page.
// Unless distortion is allowed, the range is expanded in one axis so that it
// has the aspect ratio of the page.
func (c *Context) SetWorlds(x1, y1, x2, y2 float64, units string, distortion bool) error {
	if err := c.needOutput(); err != nil {
		return err
	}
	xDiff := x2 - x1
	yDiff := y2 - y1
	if !isFinite(xDiff) || !isFinite(yDiff) || xDiff == 0 || yDiff == 0 {
		return errEval("invalid world coordinate range")
	}
	pw := c.output.PageWidth()
	ph := c.output.PageHeight()
	if pw <= 0 || ph <= 0 {
		return errState("page has zero size")
	}

	if !distortion {
		worldAspect := yDiff / xDiff
		pageAspect := ph / pw
		if worldAspect > pageAspect {
			xMid := (x1 + x2) / 2
			x1 = xMid - (xDiff/2)*(worldAspect/pageAspect)
			x2 = xMid + (xDiff/2)*(worldAspect/pageAspect)
		} else if worldAspect < pageAspect {
			yMid := (y1 + y2) / 2
			y1 = yMid - (yDiff/2)*(pageAspect/worldAspect)
			y2 = yMid + (yDiff/2)*(pageAspect/worldAspect)
		}
	}

	c.world = &worldMap{
		extent: rect.Rect{LLx: x1, LLy: y1, URx: x2, URy: y2},
		units:  units,
		m:      matrix.Translate(-x1, -y1).Mul(matrix.Scale(pw/(x2-x1), ph/(y2-y1))),
	}
	return nil
}

// SetProjection sets the reprojection applied to world coordinates.
func (c *Context) SetProjection(p Projection) {
	c.proj = p
}

// toPage converts a point to page coordinates.
func (c *Context) toPage(x, y float64) (vec.Vec2, error) {
	pt := vec.Vec2{X: x, Y: y}
	if c.proj != nil {
		var err error
		pt, err = c.proj.Forward(pt)
		if err != nil {
			return vec.Vec2{}, errIO(err, "cannot reproject (%g, %g)", x, y)
		}
	}
	if c.world != nil {
		pt = apply(c.world.m, pt)
	}
	return apply(c.ctm, pt), nil
}

// toPageDelta converts a displacement to page coordinates.
// Reprojection is not applied.
func (c *Context) toPageDelta(dx, dy float64) vec.Vec2 {
	d := vec.Vec2{X: dx, Y: dy}
	if c.world != nil {
		d = applyLinear(c.world.m, d)
	}
	return applyLinear(c.ctm, d)
}

// MoveTo starts a new subpath.  The point remembers the current rotation.
func (c *Context) MoveTo(x, y float64) error {
	pt, err := c.toPage(x, y)
	if err != nil {
		return err
	}
	c.path.write().MoveTo(pt, c.rotation)
	return nil
}

// LineTo adds a line to the path.
func (c *Context) LineTo(x, y float64) error {
	if c.path.read().MoveCount() == 0 {
		return errState("no current point")
	}
	pt, err := c.toPage(x, y)
	if err != nil {
		return err
	}
	return c.path.write().LineTo(pt)
}

// RLineTo adds a line to the path, relative to the current point.
func (c *Context) RLineTo(dx, dy float64) error {
	cur, ok := c.path.read().currentPoint()
	if !ok {
		return errState("no current point")
	}
	return c.path.write().LineTo(cur.Add(c.toPageDelta(dx, dy)))
}

// ArcTo adds a circular arc to the path.
func (c *Context) ArcTo(dir int, xc, yc, xe, ye float64) error {
	if c.path.read().MoveCount() == 0 {
		return errState("no current point")
	}
	center, err := c.toPage(xc, yc)
	if err != nil {
		return err
	}
	end, err := c.toPage(xe, ye)
	if err != nil {
		return err
	}
	// a reflection reverses the direction of arcs
	if c.determinant() < 0 {
		dir = -dir
	}
	return c.path.write().ArcTo(dir, center, end)
}

// CurveTo adds a cubic Bezier curve to the path.
func (c *Context) CurveTo(x1, y1, x2, y2, x3, y3 float64) error {
	if c.path.read().MoveCount() == 0 {
		return errState("no current point")
	}
	var pts [3]vec.Vec2
	for i, xy := range [3][2]float64{{x1, y1}, {x2, y2}, {x3, y3}} {
		pt, err := c.toPage(xy[0], xy[1])
		if err != nil {
			return err
		}
		pts[i] = pt
	}
	return c.path.write().CurveTo(pts[0], pts[1], pts[2])
}

// Circle adds a closed circle to the path.
func (c *Context) Circle(x, y, r float64) error {
	if r <= 0 {
		return errEval("circle radius must be positive")
	}
	if err := c.MoveTo(x+r, y); err != nil {
		return err
	}
	if err := c.ArcTo(1, x, y, x+r, y); err != nil {
		return err
	}
	return c.ClosePath()
}

// Box adds a closed rectangle to the path.
func (c *Context) Box(x1, y1, x2, y2 float64) error {
	if err := c.MoveTo(x1, y1); err != nil {
		return err
	}
	for _, xy := range [3][2]float64{{x1, y2}, {x2, y2}, {x2, y1}} {
		if err := c.LineTo(xy[0], xy[1]); err != nil {
			return err
		}
	}
	return c.ClosePath()
}

// ClosePath closes the current subpath.
func (c *Context) ClosePath() error {
	if c.path.read().MoveCount() == 0 {
		return errState("no current point")
	}
	return c.path.write().ClosePath()
}

// ClearPath removes all points from the path.
func (c *Context) ClearPath() {
	c.path.replace(&Path{})
}

// AddGeometry appends the coordinates of a geometry to the path.
func (c *Context) AddGeometry(g Geometry) error {
	var err error
	g.Coords(func(op int, x, y float64) {
		if err != nil {
			return
		}
		if op == OpMove {
			err = c.MoveTo(x, y)
		} else {
			err = c.LineTo(x, y)
		}
	})
	return err
}

// SamplePath replaces the path with points at regular intervals along it.
// Spacing and offset are scaled by the current scale factor.
func (c *Context) SamplePath(spacing, offset float64) error {
	sampled, err := c.path.read().Sample(spacing*c.scaling, offset*c.scaling, 0)
	if err != nil {
		return err
	}
	c.path.replace(sampled)
	return nil
}

// ReversePath reverses the direction of the path.
func (c *Context) ReversePath() {
	c.path.replace(c.path.read().Reverse())
}

// Path returns the current path.  The caller must not modify it.
func (c *Context) Path() *Path {
	return c.path.read()
}

func (c *Context) SetColor(col color.RGBA) {
	c.color = col
	c.setAttr(attrColor)
}

// SetLinestyle sets the line style.  Width and dashes are scaled by the
// current scale factor.
func (c *Context) SetLinestyle(ls Linestyle) {
	ls.Width *= c.scaling
	ls.Phase *= c.scaling
	if ls.Dashes != nil {
		dashes := make([]float64, len(ls.Dashes))
		for i, d := range ls.Dashes {
			dashes[i] = d * c.scaling
		}
		ls.Dashes = dashes
	}
	c.linestyle = ls
	c.setAttr(attrLinestyle)
}

// SetFont sets the font for labels.  The size is scaled by the current
// scale factor and the font follows the current rotation.
func (c *Context) SetFont(name string, size float64) {
	c.font = Font{Name: name, Size: size * c.scaling, Rotation: c.rotation}
	c.setAttr(attrFont)
}

func (c *Context) SetJustify(j Justify) {
	c.justify = j
	c.setAttr(attrJustify)
}

// Stroke draws the path.
func (c *Context) Stroke() error {
	if err := c.needOutput(); err != nil {
		return err
	}
	p := c.path.read()
	if p.IsEmpty() {
		return nil
	}
	if err := c.applyAttributes(attrColor | attrLinestyle | attrClip); err != nil {
		return err
	}
	if err := c.output.Stroke(p.Data()); err != nil {
		return errIO(err, "stroke failed")
	}
	return nil
}

// Fill fills the area enclosed by the path.
func (c *Context) Fill() error {
	if err := c.needOutput(); err != nil {
		return err
	}
	p := c.path.read()
	if p.IsEmpty() {
		return nil
	}
	if err := c.applyAttributes(attrColor | attrClip); err != nil {
		return err
	}
	if err := c.output.Fill(p.Data()); err != nil {
		return errIO(err, "fill failed")
	}
	return nil
}

// Label draws text at each move point of the path.
func (c *Context) Label(text string) error {
	if err := c.needOutput(); err != nil {
		return err
	}
	pts, _ := c.path.read().MovePoints()
	if len(pts) == 0 {
		return nil
	}
	if err := c.applyAttributes(attrColor | attrFont | attrJustify | attrClip); err != nil {
		return err
	}
	if err := c.output.Label(pts, text); err != nil {
		return errIO(err, "label failed")
	}
	return nil
}

// DrawIcon draws an image at each move point of the path.
func (c *Context) DrawIcon(icon string, size float64) error {
	if err := c.needOutput(); err != nil {
		return err
	}
	pts, _ := c.path.read().MovePoints()
	if len(pts) == 0 {
		return nil
	}
	if err := c.applyAttributes(attrClip); err != nil {
		return err
	}
	err := c.output.DrawIcon(pts, icon, size*c.scaling, c.rotation, c.scaling)
	if err != nil {
		return errIO(err, "cannot draw icon %q", icon)
	}
	return nil
}

// ClipInside restricts drawing to the inside of the path.
func (c *Context) ClipInside() {
	polys := c.path.read().polygons()
	if len(polys) == 0 {
		return
	}
	c.clips = append(c.clips, clipArea(polys))
	c.setAttr(attrClip)
}

// ClipOutside restricts drawing to the outside of the path.
// The page area with the path cut out as a hole is added to the clip list.
func (c *Context) ClipOutside() error {
	if err := c.needOutput(); err != nil {
		return err
	}
	polys := c.path.read().polygons()
	if len(polys) == 0 {
		return nil
	}
	w := c.output.PageWidth()
	h := c.output.PageHeight()

	// outer rectangle clockwise, holes anti-clockwise
	area := clipArea{{{X: 0, Y: 0}, {X: 0, Y: h}, {X: w, Y: h}, {X: w, Y: 0}}}
	for _, poly := range polys {
		if signedArea(poly) < 0 {
			rev := make([]vec.Vec2, len(poly))
			for i, pt := range poly {
				rev[len(poly)-1-i] = pt
			}
			poly = rev
		}
		area = append(area, poly)
	}
	c.clips = append(c.clips, area)
	c.setAttr(attrClip)
	return nil
}

// ClipContains reports whether a page point lies inside the clip region.
func (c *Context) ClipContains(pt vec.Vec2) bool {
	for _, area := range c.clips {
		if winding(area, pt) == 0 {
			return false
		}
	}
	return true
}

// SetDataset makes ds the dataset of this frame.  A dataset previously
// opened in this frame is closed.
func (c *Context) SetDataset(ds Dataset) error {
	var err error
	if c.ownsData && c.data != nil {
		err = c.data.ds.Close()
		if err != nil {
			err = errIO(err, "cannot close dataset")
		}
	}
	c.data = &datasetCursor{ds: ds}
	c.ownsData = true
	if ferr := c.data.advance(); ferr != nil {
		return ferr
	}
	return err
}

// advance reads the look-ahead row.
func (d *datasetCursor) advance() error {
	row, err := d.ds.FetchRow()
	if err == io.EOF {
		d.next = nil
		d.more = false
		return nil
	} else if err != nil {
		d.more = false
		return errIO(err, "cannot read from dataset")
	}
	d.next = row
	d.more = true
	return nil
}

// Fetch returns the next row of the dataset.
func (c *Context) Fetch() (Row, error) {
	if c.data == nil {
		return nil, errState("no dataset defined")
	}
	if !c.data.more {
		return nil, errState("no more rows in dataset")
	}
	row := c.data.next
	c.data.count++
	if err := c.data.advance(); err != nil {
		return nil, err
	}
	return row, nil
}

func (c *Context) determinant() float64 {
	m := c.ctm
	if c.world != nil {
		m = c.world.m.Mul(m)
	}
	return m[0]*m[3] - m[1]*m[2]
}

// rotation returns the matrix for a counter-clockwise rotation.
func rotation(angle float64) matrix.Matrix {
	s, co := math.Sincos(angle)
	return matrix.Matrix{co, s, -s, co, 0, 0}
}

func apply(m matrix.Matrix, p vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

func applyLinear(m matrix.Matrix, p vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*p.X + m[2]*p.Y,
		Y: m[1]*p.X + m[3]*p.Y,
	}
}

// invert returns the inverse of m.
func invert(m matrix.Matrix) (matrix.Matrix, bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 || !isFinite(det) {
		return matrix.Matrix{}, false
	}
	a := m[3] / det
	b := -m[1] / det
	c := -m[2] / det
	d := m[0] / det
	return matrix.Matrix{a, b, c, d, -(m[4]*a + m[5]*c), -(m[4]*b + m[5]*d)}, true
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
