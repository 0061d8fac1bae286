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
	"fmt"
	"image/color"
	"io"
	"strings"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// recorder is an Output which records all calls.
type recorder struct {
	width, height float64
	canRestore    bool
	calls         []string
	closed        bool
}

func (r *recorder) log(format string, a ...any) error {
	r.calls = append(r.calls, fmt.Sprintf(format, a...))
	return nil
}

func (r *recorder) SetColor(c color.RGBA) error {
	return r.log("color %02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (r *recorder) SetLinestyle(ls Linestyle) error {
	return r.log("linestyle %g", ls.Width)
}

func (r *recorder) SetFont(f Font) error {
	return r.log("font %s %g", f.Name, f.Size)
}

func (r *recorder) SetJustify(j Justify) error {
	return r.log("justify %d %d", j.Horizontal, j.Vertical)
}

func (r *recorder) SetClip(clips []*path.Data) error {
	return r.log("clip %d", len(clips))
}

func (r *recorder) Stroke(p *path.Data) error {
	return r.log("stroke %s", pathText(p))
}

func (r *recorder) Fill(p *path.Data) error {
	return r.log("fill %s", pathText(p))
}

func (r *recorder) Label(pts []vec.Vec2, text string) error {
	return r.log("label %d %q", len(pts), text)
}

func (r *recorder) DrawIcon(pts []vec.Vec2, icon string, size, rotation, scale float64) error {
	return r.log("icon %d %s %g", len(pts), icon, size)
}

func (r *recorder) SaveState() error {
	return r.log("save")
}

func (r *recorder) RestoreState() (bool, error) {
	return r.canRestore, r.log("restore")
}

func (r *recorder) PageWidth() float64  { return r.width }
func (r *recorder) PageHeight() float64 { return r.height }

func (r *recorder) Close() error {
	r.closed = true
	return r.log("close")
}

// drawCalls returns the recorded calls, without the state saving calls
// made for procedure frames.
func (r *recorder) drawCalls() []string {
	var res []string
	for _, call := range r.calls {
		if call != "save" && call != "restore" {
			res = append(res, call)
		}
	}
	return res
}

// pathText formats a path with coordinates rounded to integers.
func pathText(p *path.Data) string {
	var parts []string
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			parts = append(parts, fmt.Sprintf("M%.0f,%.0f", p.Coords[k].X, p.Coords[k].Y))
			k++
		case path.CmdLineTo:
			parts = append(parts, fmt.Sprintf("L%.0f,%.0f", p.Coords[k].X, p.Coords[k].Y))
			k++
		case path.CmdCubeTo:
			parts = append(parts, fmt.Sprintf("C%.0f,%.0f", p.Coords[k+2].X, p.Coords[k+2].Y))
			k += 3
		case path.CmdClose:
			parts = append(parts, "Z")
		}
	}
	return strings.Join(parts, "")
}

// recorderOpener opens recorder pages.  The most recently opened page is
// kept in last.
type recorderOpener struct {
	canRestore bool
	last       *recorder
}

func (o *recorderOpener) OpenOutput(format, name string, width, height float64, extras string) (Output, error) {
	if format != "test" {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	o.last = &recorder{width: width, height: height, canRestore: o.canRestore}
	return o.last, nil
}

// memDataset is a Dataset held in memory.
type memDataset struct {
	fields []string
	rows   []Row
	next   int
	closed bool
}

func (d *memDataset) FetchRow() (Row, error) {
	if d.next >= len(d.rows) {
		return nil, io.EOF
	}
	row := d.rows[d.next]
	d.next++
	return row, nil
}

func (d *memDataset) FieldNames() []string  { return d.fields }
func (d *memDataset) Projection() string     { return "EPSG:4326" }
func (d *memDataset) WorldExtent() rect.Rect { return rect.Rect{LLx: -10, LLy: -5, URx: 10, URy: 5} }

func (d *memDataset) Close() error {
	d.closed = true
	return nil
}

type memOpener struct {
	ds *memDataset
}

func (o memOpener) OpenDataset(kind, name, extras string) (Dataset, error) {
	if kind != "memory" {
		return nil, fmt.Errorf("unknown dataset type %q", kind)
	}
	return o.ds, nil
}
