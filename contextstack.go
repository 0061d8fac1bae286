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
	"math"
	"strings"
	"time"
)

// DefaultMaxDepth is the default limit for the nesting of procedure calls.
const DefaultMaxDepth = 30

// Version is reported by the mapscript.version variable.
const Version = "0.9"

// internalPrefix starts the names of the variables which give access to
// the interpreter state.
const internalPrefix = "mapscript."

// ContextStack is the stack of execution frames.  The bottom frame holds
// the global variables.
type ContextStack struct {
	frames   []*Context
	maxDepth int

	filename string
	start    time.Time
	now      func() time.Time
}

// NewContextStack returns a stack holding a single, global frame.
func NewContextStack(maxDepth int) *ContextStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &ContextStack{
		frames:   []*Context{newContext()},
		maxDepth: maxDepth,
		start:    time.Now(),
		now:      time.Now,
	}
}

// Current returns the frame on top of the stack.
func (cs *ContextStack) Current() *Context {
	return cs.frames[len(cs.frames)-1]
}

// Depth returns the number of frames on the stack.
func (cs *ContextStack) Depth() int {
	return len(cs.frames)
}

// Push adds a new frame for a procedure call.
func (cs *ContextStack) Push() error {
	if len(cs.frames) >= cs.maxDepth {
		return errState("procedure calls nested more than %d deep", cs.maxDepth)
	}
	child, err := cs.Current().newChild()
	if err != nil {
		return err
	}
	cs.frames = append(cs.frames, child)
	return nil
}

// Pop removes the top frame.  Attributes which the frame changed are
// marked for the parent frame, so that they are set again before the next
// drawing operation.
func (cs *ContextStack) Pop() error {
	if len(cs.frames) <= 1 {
		return errState("cannot pop the global frame")
	}
	top := cs.Current()
	cs.frames = cs.frames[:len(cs.frames)-1]
	changed, err := top.close()
	cs.Current().setAttributesChanged(changed)
	return err
}

// Close pops all frames and closes the output and dataset of the global
// frame.
func (cs *ContextStack) Close() error {
	var errs []error
	for len(cs.frames) > 1 {
		if err := cs.Pop(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := cs.frames[0].close(); err != nil {
		errs = append(errs, err)
	}
	cs.frames[0] = newContext()
	return errors.Join(errs...)
}

// scope returns the frame which holds the variable name.
func (cs *ContextStack) scope(name string) *Context {
	top := cs.Current()
	if len(cs.frames) > 1 && top.locals[name] {
		return top
	}
	return cs.frames[0]
}

// Lookup returns the value of a variable.  Undefined variables give an
// empty string.
func (cs *ContextStack) Lookup(name string) Value {
	if strings.HasPrefix(name, internalPrefix) {
		return cs.internal(name[len(internalPrefix):])
	}
	v, ok := cs.scope(name).vars[name]
	if !ok {
		return NewString("")
	}
	return v
}

// IsDefined reports whether a variable has a value.
func (cs *ContextStack) IsDefined(name string) bool {
	_, ok := cs.scope(name).vars[name]
	return ok
}

// Define sets a variable.  The variable is local to the current frame if it
// was declared local there, and global otherwise.
func (cs *ContextStack) Define(name string, v Value) {
	c := cs.scope(name)
	if c.vars == nil {
		c.vars = make(map[string]Value)
	}
	c.vars[name] = copyValue(v)
}

// DefineEntry sets one entry of a map variable, creating the map if
// needed.
func (cs *ContextStack) DefineEntry(name, key string, v Value) {
	c := cs.scope(name)
	if c.vars == nil {
		c.vars = make(map[string]Value)
	}
	m, ok := c.vars[name].(*Map)
	if !ok {
		m = NewMap()
		c.vars[name] = m
	}
	m.Set(key, v)
}

// SetLocal declares a variable local to the current frame.
func (cs *ContextStack) SetLocal(name string) {
	top := cs.Current()
	if top.locals == nil {
		top.locals = make(map[string]bool)
	}
	top.locals[name] = true
}

// worldFrame returns the nearest frame with world coordinates.
func (cs *ContextStack) worldFrame() *Context {
	for i := len(cs.frames) - 1; i >= 0; i-- {
		if cs.frames[i].world != nil {
			return cs.frames[i]
		}
	}
	return nil
}

// worldUnitsPerMM gives the size of one world unit in page millimetres.
var worldUnitsPerMM = map[string]float64{
	"metres":  1000,
	"meters":  1000,
	"m":       1000,
	"feet":    1000 * 0.3048,
	"ft":      1000 * 0.3048,
	"degrees": 110000 * 1000,
	"deg":     110000 * 1000,
}

// WorldScale returns the map scale: the world width divided by the page
// width, so that 1:2000 gives 2000.
func (cs *ContextStack) WorldScale() float64 {
	c := cs.worldFrame()
	if c == nil || c.output == nil {
		return 1
	}
	f, ok := worldUnitsPerMM[c.world.units]
	if !ok {
		f = 1000
	}
	return (c.world.extent.URx - c.world.extent.LLx) * f / c.output.PageWidth()
}

func num(x float64) Value { return NewNumeric(x) }

// internal returns the value of an interpreter variable.
func (cs *ContextStack) internal(name string) Value {
	c := cs.Current()
	p := c.Path()

	switch name {
	case "version":
		return NewString(Version)
	case "filename":
		return NewString(cs.filename)
	case "timer":
		return num(float64(cs.now().Sub(cs.start).Milliseconds()) / 1000)
	case "rotation":
		return num(c.rotation * 180 / math.Pi)
	case "scale":
		return num(c.scaling)
	case "path":
		return p.Geometry()
	case "path.length":
		return num(p.Length())
	case "path.area":
		return num(p.Area())
	case "path.start.x", "path.start.y", "path.end.x", "path.end.y":
		start, end, ok := p.Endpoints()
		if !ok {
			return num(0)
		}
		pt := start
		if strings.HasPrefix(name, "path.end") {
			pt = end
		}
		if strings.HasSuffix(name, ".x") {
			return num(pt.X)
		}
		return num(pt.Y)
	case "path.min.x", "path.min.y", "path.max.x", "path.max.y",
		"path.center.x", "path.center.y", "path.width", "path.height":
		r, ok := p.Bounds()
		if !ok {
			return num(0)
		}
		switch name {
		case "path.min.x":
			return num(r.LLx)
		case "path.min.y":
			return num(r.LLy)
		case "path.max.x":
			return num(r.URx)
		case "path.max.y":
			return num(r.URy)
		case "path.center.x":
			return num((r.LLx + r.URx) / 2)
		case "path.center.y":
			return num((r.LLy + r.URy) / 2)
		case "path.width":
			return num(r.URx - r.LLx)
		default:
			return num(r.URy - r.LLy)
		}
	case "page.width", "page.height":
		if c.output == nil {
			return num(0)
		}
		if name == "page.width" {
			return num(c.output.PageWidth())
		}
		return num(c.output.PageHeight())
	case "page.format":
		return NewString(c.format)
	case "worlds.min.x", "worlds.min.y", "worlds.max.x", "worlds.max.y",
		"worlds.width", "worlds.height":
		wc := cs.worldFrame()
		var lx, ly, ux, uy float64
		if wc != nil {
			lx, ly, ux, uy = wc.world.extent.LLx, wc.world.extent.LLy, wc.world.extent.URx, wc.world.extent.URy
		} else if c.output != nil {
			ux, uy = c.output.PageWidth(), c.output.PageHeight()
		}
		switch name {
		case "worlds.min.x":
			return num(lx)
		case "worlds.min.y":
			return num(ly)
		case "worlds.max.x":
			return num(ux)
		case "worlds.max.y":
			return num(uy)
		case "worlds.width":
			return num(ux - lx)
		default:
			return num(uy - ly)
		}
	case "worlds.scale":
		return num(cs.WorldScale())
	case "fetch.more":
		return boolValue(c.data != nil && c.data.more)
	case "fetch.count":
		if c.data == nil {
			return num(0)
		}
		return num(float64(c.data.count))
	case "dataset.projection":
		if c.data == nil {
			return NewString("")
		}
		return NewString(c.data.ds.Projection())
	case "dataset.fieldnames":
		if c.data == nil {
			return NewString("")
		}
		return NewString(strings.Join(c.data.ds.FieldNames(), " "))
	case "dataset.min.x", "dataset.min.y", "dataset.max.x", "dataset.max.y":
		if c.data == nil {
			return num(0)
		}
		r := c.data.ds.WorldExtent()
		switch name {
		case "dataset.min.x":
			return num(r.LLx)
		case "dataset.min.y":
			return num(r.LLy)
		case "dataset.max.x":
			return num(r.URx)
		default:
			return num(r.URy)
		}
	}

	if strings.HasPrefix(name, "time.") {
		t := cs.now()
		switch name[len("time."):] {
		case "hour":
			return num(float64(t.Hour()))
		case "minute":
			return num(float64(t.Minute()))
		case "second":
			return num(float64(t.Second()))
		case "day":
			return num(float64(t.Day()))
		case "month":
			return num(float64(t.Month()))
		case "year":
			return num(float64(t.Year()))
		case "weekday":
			return num(float64(t.Weekday()))
		case "stamp":
			return NewString(t.Format(time.RFC1123))
		}
	}

	return NewString("")
}

// Geometry returns the path as a geometry in page coordinates.  A path
// of points gives a MULTIPOINT, everything else gives a MULTILINESTRING
// with curves flattened.
func (p *Path) Geometry() Geometry {
	if p.IsEmpty() {
		return Geometry{GeomMultiLineString, 0}
	}
	if p.LineCount() == 0 {
		pts, _ := p.MovePoints()
		g := Geometry{GeomMultiPoint, float64(len(pts))}
		for _, pt := range pts {
			g = append(g, GeomPoint, 1, OpMove, pt.X, pt.Y)
		}
		return g
	}
	polys := p.flatten(flattenTolerance)
	g := Geometry{GeomMultiLineString, float64(len(polys))}
	for _, poly := range polys {
		g = append(g, GeomLineString, float64(len(poly)))
		for i, pt := range poly {
			op := float64(OpLine)
			if i == 0 {
				op = OpMove
			}
			g = append(g, op, pt.X, pt.Y)
		}
	}
	return g
}
