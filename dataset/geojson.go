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

package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// geoJSONToWKT converts a GeoJSON geometry object to well-known text.
func geoJSONToWKT(obj map[string]any) (string, error) {
	tp, _ := obj["type"].(string)
	var sb strings.Builder

	if tp == "GeometryCollection" {
		members, _ := obj["geometries"].([]any)
		if len(members) == 0 {
			return "GEOMETRYCOLLECTION EMPTY", nil
		}
		sb.WriteString("GEOMETRYCOLLECTION (")
		for i, m := range members {
			sub, ok := m.(map[string]any)
			if !ok {
				return "", errors.New("invalid geometry collection member")
			}
			wkt, err := geoJSONToWKT(sub)
			if err != nil {
				return "", err
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(wkt)
		}
		sb.WriteString(")")
		return sb.String(), nil
	}

	// nesting depth of the coordinates array
	depth := map[string]int{
		"Point":           0,
		"LineString":      1,
		"MultiPoint":      1,
		"Polygon":         2,
		"MultiLineString": 2,
		"MultiPolygon":    3,
	}
	d, ok := depth[tp]
	if !ok {
		return "", fmt.Errorf("unknown GeoJSON geometry type %q", tp)
	}
	sb.WriteString(strings.ToUpper(tp))
	coords, _ := obj["coordinates"].([]any)
	if len(coords) == 0 {
		sb.WriteString(" EMPTY")
		return sb.String(), nil
	}
	sb.WriteByte(' ')
	if d == 0 {
		sb.WriteByte('(')
		if err := writePosition(&sb, coords); err != nil {
			return "", err
		}
		sb.WriteByte(')')
		return sb.String(), nil
	}
	if err := writeCoordList(&sb, coords, d); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeCoordList(sb *strings.Builder, list []any, depth int) error {
	sb.WriteByte('(')
	for i, elem := range list {
		if i > 0 {
			sb.WriteString(", ")
		}
		sub, ok := elem.([]any)
		if !ok {
			return errors.New("invalid GeoJSON coordinates")
		}
		var err error
		if depth == 1 {
			err = writePosition(sb, sub)
		} else {
			err = writeCoordList(sb, sub, depth-1)
		}
		if err != nil {
			return err
		}
	}
	sb.WriteByte(')')
	return nil
}

func writePosition(sb *strings.Builder, pos []any) error {
	if len(pos) < 2 {
		return errors.New("GeoJSON position needs two coordinates")
	}
	for i := range 2 {
		x, ok := pos[i].(float64)
		if !ok {
			return errors.New("invalid GeoJSON coordinate")
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	return nil
}
