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

// Package reproject converts coordinates between geographic longitude and
// latitude and the spherical Mercator projection used by web maps.
package reproject

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/mapscript"
)

// EarthRadius is the radius of the sphere used by spherical Mercator, in
// metres.
const EarthRadius = 6378137.0

// MaxLatitude is the latitude, in degrees, where spherical Mercator maps
// are usually cut off to give a square world.
const MaxLatitude = 85.05112877980659

// System identifies a coordinate system.
type System int

// These are the supported coordinate systems.
const (
	Geographic System = iota + 1 // EPSG:4326, degrees
	Mercator                     // EPSG:3857, metres
)

func (s System) String() string {
	switch s {
	case Geographic:
		return "EPSG:4326"
	case Mercator:
		return "EPSG:3857"
	default:
		return fmt.Sprintf("System(%d)", int(s))
	}
}

var systemNames = map[string]System{
	"epsg:4326":   Geographic,
	"wgs84":       Geographic,
	"latlon":      Geographic,
	"lonlat":      Geographic,
	"epsg:3857":   Mercator,
	"epsg:900913": Mercator,
	"mercator":    Mercator,
}

// ParseSystem converts a coordinate system description to a System.
// Descriptions are matched ignoring case.  A PROJ style "+init=epsg:NNNN"
// prefix is accepted.
func ParseSystem(desc string) (System, error) {
	key := strings.ToLower(strings.TrimSpace(desc))
	key = strings.TrimPrefix(key, "+init=")
	if s, ok := systemNames[key]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("unsupported coordinate system %q", desc)
}

// ErrOutOfRange is returned for coordinates which cannot be projected.
var ErrOutOfRange = errors.New("coordinates out of range")

// Factory creates projections.  It implements [mapscript.ProjectionFactory].
type Factory struct{}

// NewProjection returns a projection from src to dst.
func (Factory) NewProjection(src, dst string) (mapscript.Projection, error) {
	from, err := ParseSystem(src)
	if err != nil {
		return nil, err
	}
	to, err := ParseSystem(dst)
	if err != nil {
		return nil, err
	}
	return &Projection{From: from, To: to}, nil
}

// Projection converts between two coordinate systems.
type Projection struct {
	From, To System
}

// Forward converts a point from the source to the destination system.
func (p *Projection) Forward(pt vec.Vec2) (vec.Vec2, error) {
	return convert(p.From, p.To, pt)
}

// Backward converts a point from the destination to the source system.
func (p *Projection) Backward(pt vec.Vec2) (vec.Vec2, error) {
	return convert(p.To, p.From, pt)
}

func convert(from, to System, pt vec.Vec2) (vec.Vec2, error) {
	if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
		return vec.Vec2{}, ErrOutOfRange
	}
	switch {
	case from == to:
		return pt, nil
	case from == Geographic && to == Mercator:
		return toMercator(pt)
	case from == Mercator && to == Geographic:
		return fromMercator(pt), nil
	default:
		return vec.Vec2{}, fmt.Errorf("cannot convert from %s to %s", from, to)
	}
}

// toMercator converts longitude and latitude in degrees to metres.
// Latitudes beyond MaxLatitude are clamped.
func toMercator(pt vec.Vec2) (vec.Vec2, error) {
	if pt.Y < -90 || pt.Y > 90 {
		return vec.Vec2{}, ErrOutOfRange
	}
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, pt.Y))
	phi := lat * math.Pi / 180
	return vec.Vec2{
		X: EarthRadius * pt.X * math.Pi / 180,
		Y: EarthRadius * math.Log(math.Tan(math.Pi/4+phi/2)),
	}, nil
}

func fromMercator(pt vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: pt.X / EarthRadius * 180 / math.Pi,
		Y: (2*math.Atan(math.Exp(pt.Y/EarthRadius)) - math.Pi/2) * 180 / math.Pi,
	}
}
