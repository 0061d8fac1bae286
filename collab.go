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
	"image/color"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Output receives finished page geometry together with the drawing
// attributes.  All coordinates are page coordinates in millimetres, with
// the origin in the bottom left corner of the page.
type Output interface {
	SetColor(c color.RGBA) error
	SetLinestyle(ls Linestyle) error
	SetFont(f Font) error
	SetJustify(j Justify) error

	// SetClip sets the clip region to the intersection of the given
	// polygons.  An empty list removes all clipping.
	SetClip(clips []*path.Data) error

	Stroke(p *path.Data) error
	Fill(p *path.Data) error
	Label(pts []vec.Vec2, text string) error
	DrawIcon(pts []vec.Vec2, icon string, size, rotation, scale float64) error

	// SaveState saves all attributes.
	SaveState() error

	// RestoreState restores the attributes saved by the most recent call
	// to SaveState.  The return value indicates whether the output was
	// able to restore the attributes.
	RestoreState() (bool, error)

	PageWidth() float64
	PageHeight() float64
	Close() error
}

// OutputOpener creates new pages.
type OutputOpener interface {
	OpenOutput(format, name string, width, height float64, extras string) (Output, error)
}

// Row is one record read from a dataset.
type Row []Value

// Dataset is a source of records.
type Dataset interface {
	// FetchRow returns the next record.  At the end of the data, io.EOF is
	// returned.
	FetchRow() (Row, error)

	// FieldNames returns the names of the fields, in the order they appear
	// in each row.
	FieldNames() []string

	// Projection returns a description of the coordinate system of the data.
	Projection() string

	// WorldExtent returns the bounding box of all the data.
	WorldExtent() rect.Rect

	Close() error
}

// DatasetOpener opens datasets.
type DatasetOpener interface {
	OpenDataset(kind, name, extras string) (Dataset, error)
}

// Projection converts between two coordinate systems.
type Projection interface {
	Forward(p vec.Vec2) (vec.Vec2, error)
	Backward(p vec.Vec2) (vec.Vec2, error)
}

// ProjectionFactory creates projections from coordinate system descriptions.
type ProjectionFactory interface {
	NewProjection(src, dst string) (Projection, error)
}

// ColorNames maps color names to colors.
type ColorNames interface {
	LookupColor(name string) (color.RGBA, bool)
}

// FontMetrics measures text.
type FontMetrics interface {
	// StringSize returns the width and height of text set in the given
	// font, in the same units as size.
	StringSize(text, font string, size float64) (w, h float64)
}

// Collaborators bundles the external services used by an interpreter.
// Any field may be nil, in which case the corresponding statements fail
// or fall back to built-in defaults.
type Collaborators struct {
	Outputs     OutputOpener
	Datasets    DatasetOpener
	Projections ProjectionFactory
	Colors      ColorNames
	Fonts       FontMetrics
}

// Cap is the shape used at the ends of stroked lines.
type Cap int

// These are the supported line caps.
const (
	CapButt Cap = iota
	CapRound
	CapSquare
)

// Join is the shape used at the corners of stroked lines.
type Join int

// These are the supported line joins.
const (
	JoinMiter Join = iota
	JoinRound
	JoinBevel
)

// Linestyle describes how lines are stroked.  Width, Dashes and Phase are
// in page millimetres.
type Linestyle struct {
	Width  float64
	Cap    Cap
	Join   Join
	Phase  float64
	Dashes []float64
}

// Font selects the font for labels.  Size is in page millimetres and
// Rotation in radians, counter-clockwise.
type Font struct {
	Name     string
	Size     float64
	Rotation float64
}

// Justify gives the alignment of labels relative to the label point.
type Justify struct {
	Horizontal HAlign
	Vertical   VAlign
}

// HAlign is the horizontal alignment of labels.
type HAlign int

// These are the horizontal alignments.
const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
)

// VAlign is the vertical alignment of labels.
type VAlign int

// These are the vertical alignments.
const (
	AlignBottom VAlign = iota
	AlignMiddle
	AlignTop
)
