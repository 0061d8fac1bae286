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

// Package dataset provides the data sources which scripts read with the
// "dataset" and "fetch" statements.
package dataset

import (
	"fmt"
	"strings"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/mapscript"
)

// Opener opens datasets by type name.  It implements the
// [mapscript.DatasetOpener] interface.
type Opener struct{}

// OpenDataset implements the [mapscript.DatasetOpener] interface.
// The supported types are "textfile", "json" (including GeoJSON) and
// "mysql".
func (Opener) OpenDataset(kind, name, extras string) (mapscript.Dataset, error) {
	switch strings.ToLower(kind) {
	case "textfile", "text":
		return OpenTextFile(name, extras)
	case "json", "geojson":
		return OpenJSON(name, extras)
	case "mysql":
		return OpenMySQL(name, extras)
	default:
		return nil, fmt.Errorf("unknown dataset type %q", kind)
	}
}

// wholeWorld is the extent reported when the data do not say otherwise.
var wholeWorld = rect.Rect{LLx: -180, LLy: -90, URx: 180, URy: 90}

// extent computes the bounding box of the geometries in a set of rows.
// If there are no coordinates, the whole world is returned.
func extent(rows []mapscript.Row) rect.Rect {
	var r rect.Rect
	first := true
	for _, row := range rows {
		for _, v := range row {
			g, ok := v.(mapscript.Geometry)
			if !ok {
				continue
			}
			g.Coords(func(_ int, x, y float64) {
				if first {
					r = rect.Rect{LLx: x, LLy: y, URx: x, URy: y}
					first = false
					return
				}
				r.LLx = min(r.LLx, x)
				r.LLy = min(r.LLy, y)
				r.URx = max(r.URx, x)
				r.URy = max(r.URy, y)
			})
		}
	}
	if first {
		return wholeWorld
	}
	return r
}
