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

// Package svg writes pages as SVG files.
package svg

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	svgo "github.com/ajstarks/svgo"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/mapscript"
)

// Opener creates SVG pages.  It implements the [mapscript.OutputOpener]
// interface.
type Opener struct{}

// OpenOutput creates an SVG file.  The only supported format is "svg".
// The name "-" writes to standard output.  The extras may contain
// "title=..." and "background=..." settings, where the background is a
// color in the form "#rrggbb".
func (Opener) OpenOutput(format, name string, width, height float64, extras string) (mapscript.Output, error) {
	if !strings.EqualFold(format, "svg") {
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	var w io.Writer
	var closer io.Closer
	if name == "-" {
		w = os.Stdout
	} else {
		fd, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		w = fd
		closer = fd
	}

	opts := mapscript.ParseExtras(extras)
	p := NewPage(w, width, height, opts["title"], opts["background"])
	p.closer = closer
	return p, nil
}

// state holds the drawing attributes of a page.
type state struct {
	color     color.RGBA
	linestyle mapscript.Linestyle
	font      mapscript.Font
	justify   mapscript.Justify
	clips     []string // ids of clip paths
}

// Page is a single SVG page.  Coordinates are in millimetres, with the
// origin in the bottom left corner.
type Page struct {
	canvas *svgo.SVG
	out    *errWriter
	buf    *bufio.Writer
	closer io.Closer

	width, height float64

	state
	saved []state

	nextClip int
	closed   bool
}

// NewPage starts an SVG document of the given size on w.
func NewPage(w io.Writer, width, height float64, title, background string) *Page {
	buf := bufio.NewWriter(w)
	out := &errWriter{w: buf}
	p := &Page{
		canvas: svgo.New(out),
		out:    out,
		buf:    buf,
		width:  width,
		height: height,
	}
	p.color = color.RGBA{A: 255}
	p.linestyle = mapscript.Linestyle{Width: 0.1}
	p.font = mapscript.Font{Name: "SansSerif", Size: 5}

	w0, h0 := num(width), num(height)
	p.canvas.Startraw(
		`width="`+w0+`mm"`,
		`height="`+h0+`mm"`,
		`viewBox="0 0 `+w0+` `+h0+`"`)
	if title != "" {
		p.canvas.Title(title)
	}
	if strings.HasPrefix(background, "#") && len(background) == 7 {
		p.canvas.Path(fmt.Sprintf("M0 0H%sV%sH0Z", w0, h0), `fill="`+background+`"`)
	}
	return p
}

// errWriter remembers the first write error, since svgo ignores errors.
type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) Write(b []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(b)
	w.err = err
	return n, err
}

// PageWidth implements the [mapscript.Output] interface.
func (p *Page) PageWidth() float64 { return p.width }

// PageHeight implements the [mapscript.Output] interface.
func (p *Page) PageHeight() float64 { return p.height }

// SetColor implements the [mapscript.Output] interface.
func (p *Page) SetColor(c color.RGBA) error {
	p.color = c
	return nil
}

// SetLinestyle implements the [mapscript.Output] interface.
func (p *Page) SetLinestyle(ls mapscript.Linestyle) error {
	p.linestyle = ls
	return nil
}

// SetFont implements the [mapscript.Output] interface.
func (p *Page) SetFont(f mapscript.Font) error {
	p.font = f
	return nil
}

// SetJustify implements the [mapscript.Output] interface.
func (p *Page) SetJustify(j mapscript.Justify) error {
	p.justify = j
	return nil
}

// SetClip implements the [mapscript.Output] interface.
// Each clip polygon becomes a clipPath element.  Drawing operations are
// wrapped in one group per clip path, which gives the intersection.
func (p *Page) SetClip(clips []*path.Data) error {
	p.clips = nil
	for _, data := range clips {
		p.nextClip++
		id := "clip" + strconv.Itoa(p.nextClip)
		p.canvas.Def()
		p.canvas.ClipPath(`id="` + id + `"`)
		p.canvas.Path(p.pathString(data), `clip-rule="nonzero"`)
		p.canvas.ClipEnd()
		p.canvas.DefEnd()
		p.clips = append(p.clips, id)
	}
	return p.out.err
}

func (p *Page) beginClip() {
	for _, id := range p.clips {
		p.canvas.Group(`clip-path="url(#` + id + `)"`)
	}
}

func (p *Page) endClip() {
	for range p.clips {
		p.canvas.Gend()
	}
}

// Stroke implements the [mapscript.Output] interface.
func (p *Page) Stroke(data *path.Data) error {
	ls := p.linestyle
	attrs := []string{
		`fill="none"`,
		`stroke="` + colorString(p.color) + `"`,
		`stroke-width="` + num(ls.Width) + `"`,
		`stroke-linecap="` + capNames[ls.Cap] + `"`,
		`stroke-linejoin="` + joinNames[ls.Join] + `"`,
	}
	if p.color.A != 255 {
		attrs = append(attrs, `stroke-opacity="`+num(float64(p.color.A)/255)+`"`)
	}
	if len(ls.Dashes) > 0 {
		dashes := make([]string, len(ls.Dashes))
		for i, d := range ls.Dashes {
			dashes[i] = num(d)
		}
		attrs = append(attrs,
			`stroke-dasharray="`+strings.Join(dashes, " ")+`"`,
			`stroke-dashoffset="`+num(ls.Phase)+`"`)
	}

	p.beginClip()
	p.canvas.Path(p.pathString(data), attrs...)
	p.endClip()
	return p.out.err
}

// Fill implements the [mapscript.Output] interface.
func (p *Page) Fill(data *path.Data) error {
	attrs := []string{
		`fill="` + colorString(p.color) + `"`,
		`fill-rule="nonzero"`,
	}
	if p.color.A != 255 {
		attrs = append(attrs, `fill-opacity="`+num(float64(p.color.A)/255)+`"`)
	}

	p.beginClip()
	p.canvas.Path(p.pathString(data), attrs...)
	p.endClip()
	return p.out.err
}

// Label implements the [mapscript.Output] interface.  Lines of text
// are separated by newlines.
func (p *Page) Label(pts []vec.Vec2, text string) error {
	lines := strings.Split(text, "\n")
	f := p.font
	attrs := []string{
		`font-family="` + f.Name + `"`,
		`font-size="` + num(f.Size) + `"`,
		`fill="` + colorString(p.color) + `"`,
		`text-anchor="` + anchorNames[p.justify.Horizontal] + `"`,
	}
	if p.color.A != 255 {
		attrs = append(attrs, `fill-opacity="`+num(float64(p.color.A)/255)+`"`)
	}

	// offset of the baseline of the first line, downwards in SVG space
	var dy float64
	n := float64(len(lines))
	switch p.justify.Vertical {
	case mapscript.AlignBottom:
		dy = -(n - 1) * f.Size
	case mapscript.AlignMiddle:
		dy = f.Size/2 - (n-1)*f.Size/2
	case mapscript.AlignTop:
		dy = f.Size
	}

	p.beginClip()
	for _, pt := range pts {
		p.canvas.Gtransform(p.place(pt, f.Rotation, 1))
		for i, line := range lines {
			p.canvas.Gtransform("translate(0," + num(dy+float64(i)*f.Size) + ")")
			p.canvas.Text(0, 0, line, attrs...)
			p.canvas.Gend()
		}
		p.canvas.Gend()
	}
	p.endClip()
	return p.out.err
}

// DrawIcon implements the [mapscript.Output] interface.  The icon file is
// referenced from the SVG file, centred on each point.
func (p *Page) DrawIcon(pts []vec.Vec2, icon string, size, rotation, scale float64) error {
	if size <= 0 {
		size = 5 * scale
	}
	p.beginClip()
	for _, pt := range pts {
		p.canvas.Gtransform(p.place(pt, rotation, size/100))
		p.canvas.Image(-50, -50, 100, 100, icon)
		p.canvas.Gend()
	}
	p.endClip()
	return p.out.err
}

// place returns the SVG transformation which moves the origin to pt, rotates
// counter-clockwise by the given angle in radians and scales by s.
func (p *Page) place(pt vec.Vec2, rotation, s float64) string {
	res := "translate(" + num(pt.X) + "," + num(p.height-pt.Y) + ")"
	if rotation != 0 {
		res += " rotate(" + num(-rotation*180/math.Pi) + ")"
	}
	if s != 1 {
		res += " scale(" + num(s) + ")"
	}
	return res
}

// SaveState implements the [mapscript.Output] interface.
func (p *Page) SaveState() error {
	p.saved = append(p.saved, p.state)
	return nil
}

// RestoreState implements the [mapscript.Output] interface.  Since every
// element carries its own attributes, restoring always succeeds.
func (p *Page) RestoreState() (bool, error) {
	if len(p.saved) == 0 {
		return false, nil
	}
	p.state = p.saved[len(p.saved)-1]
	p.saved = p.saved[:len(p.saved)-1]
	return true, nil
}

// Close implements the [mapscript.Output] interface.
func (p *Page) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.canvas.End()
	err := p.out.err
	if flushErr := p.buf.Flush(); err == nil {
		err = flushErr
	}
	if p.closer != nil {
		if closeErr := p.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// pathString converts a path to SVG path data, flipping the y axis.
func (p *Page) pathString(data *path.Data) string {
	var sb strings.Builder
	pt := func(v vec.Vec2) {
		sb.WriteString(num(v.X))
		sb.WriteByte(' ')
		sb.WriteString(num(p.height - v.Y))
	}
	i := 0
	for _, cmd := range data.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			sb.WriteByte('M')
			pt(data.Coords[i])
			i++
		case path.CmdLineTo:
			sb.WriteByte('L')
			pt(data.Coords[i])
			i++
		case path.CmdCubeTo:
			sb.WriteByte('C')
			pt(data.Coords[i])
			sb.WriteByte(' ')
			pt(data.Coords[i+1])
			sb.WriteByte(' ')
			pt(data.Coords[i+2])
			i += 3
		case path.CmdClose:
			sb.WriteByte('Z')
		}
	}
	return sb.String()
}

var capNames = map[mapscript.Cap]string{
	mapscript.CapButt:   "butt",
	mapscript.CapRound:  "round",
	mapscript.CapSquare: "square",
}

var joinNames = map[mapscript.Join]string{
	mapscript.JoinMiter: "miter",
	mapscript.JoinRound: "round",
	mapscript.JoinBevel: "bevel",
}

var anchorNames = map[mapscript.HAlign]string{
	mapscript.AlignLeft:   "start",
	mapscript.AlignCenter: "middle",
	mapscript.AlignRight:  "end",
}

// colorString converts a premultiplied color to "#rrggbb".
func colorString(c color.RGBA) string {
	if c.A == 0 {
		return "none"
	}
	un := func(x uint8) uint8 {
		return uint8(math.Round(float64(x) * 255 / float64(c.A)))
	}
	return fmt.Sprintf("#%02x%02x%02x", un(c.R), un(c.G), un(c.B))
}

// num formats a coordinate, rounded to 1/1000 mm.
func num(x float64) string {
	x = math.Round(x*1000) / 1000
	if x == 0 {
		x = 0 // avoid "-0"
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
