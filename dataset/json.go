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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/mapscript"
)

// JSON is a dataset read from a JSON document.  A jq query selects the
// records.  GeoJSON features give one row each, with the geometry in the
// field "geometry" followed by the feature properties.  Other objects give
// one field per key.
type JSON struct {
	fields     []string
	rows       []mapscript.Row
	next       int
	projection string
	extent     rect.Rect
}

// OpenJSON reads a JSON file.  The extras, if not empty, are a jq query
// which selects the records.  The default query is ".features[]" for
// GeoJSON feature collections and ".[]" otherwise.
func OpenJSON(name, extras string) (*JSON, error) {
	var r io.Reader
	if name == "-" {
		r = os.Stdin
	} else {
		fd, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer fd.Close()
		r = fd
	}
	return readJSON(r, extras)
}

func readJSON(r io.Reader, query string) (*JSON, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	isGeoJSON := false
	if obj, ok := doc.(map[string]any); ok && obj["type"] == "FeatureCollection" {
		isGeoJSON = true
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = ".[]"
		if isGeoJSON {
			query = ".features[]"
		}
	}
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", query, err)
	}

	var records []map[string]any
	iter := q.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("query %q: %w", query, err)
		}
		obj, ok := v.(map[string]any)
		if !ok {
			obj = map[string]any{"value": v}
		}
		if obj["type"] == "Feature" {
			isGeoJSON = true
			obj = flattenFeature(obj)
		}
		records = append(records, obj)
	}

	res := &JSON{}
	seen := make(map[string]bool)
	for _, rec := range records {
		for key := range rec {
			if !seen[key] {
				seen[key] = true
				res.fields = append(res.fields, key)
			}
		}
	}
	slices.SortFunc(res.fields, func(a, b string) int {
		// the geometry comes first
		switch {
		case a == b:
			return 0
		case a == "geometry":
			return -1
		case b == "geometry":
			return 1
		}
		return strings.Compare(a, b)
	})

	for _, rec := range records {
		row := make(mapscript.Row, len(res.fields))
		for i, key := range res.fields {
			v, err := toValue(rec[key], isGeoJSON && key == "geometry")
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			row[i] = v
		}
		res.rows = append(res.rows, row)
	}

	res.extent = extent(res.rows)
	if isGeoJSON {
		res.projection = "EPSG:4326"
	}
	return res, nil
}

// flattenFeature turns a GeoJSON feature into a record holding the
// geometry and the properties.
func flattenFeature(f map[string]any) map[string]any {
	res := make(map[string]any)
	if props, ok := f["properties"].(map[string]any); ok {
		for key, val := range props {
			res[key] = val
		}
	}
	res["geometry"] = f["geometry"]
	return res
}

// toValue converts a decoded JSON value.  Objects and arrays become maps,
// with array elements numbered from 1.
func toValue(v any, isGeometry bool) (mapscript.Value, error) {
	if isGeometry {
		if obj, ok := v.(map[string]any); ok {
			wkt, err := geoJSONToWKT(obj)
			if err != nil {
				return nil, err
			}
			g, err := mapscript.ParseWKT(wkt)
			if err != nil {
				return nil, err
			}
			return g, nil
		}
	}
	switch v := v.(type) {
	case nil:
		return mapscript.NewString(""), nil
	case bool:
		if v {
			return mapscript.NewNumeric(1), nil
		}
		return mapscript.NewNumeric(0), nil
	case float64:
		return mapscript.NewNumeric(v), nil
	case int:
		return mapscript.NewNumeric(float64(v)), nil
	case string:
		return mapscript.NewString(v), nil
	case map[string]any:
		m := mapscript.NewMap()
		for key, val := range v {
			x, err := toValue(val, false)
			if err != nil {
				return nil, err
			}
			m.Set(key, x)
		}
		return m, nil
	case []any:
		m := mapscript.NewMap()
		for i, val := range v {
			x, err := toValue(val, false)
			if err != nil {
				return nil, err
			}
			m.Set(strconv.Itoa(i+1), x)
		}
		return m, nil
	default:
		return mapscript.NewString(fmt.Sprint(v)), nil
	}
}

// FetchRow implements the [mapscript.Dataset] interface.
func (j *JSON) FetchRow() (mapscript.Row, error) {
	if j.next >= len(j.rows) {
		return nil, io.EOF
	}
	row := j.rows[j.next]
	j.next++
	return row, nil
}

// FieldNames implements the [mapscript.Dataset] interface.
func (j *JSON) FieldNames() []string {
	return j.fields
}

// Projection implements the [mapscript.Dataset] interface.
func (j *JSON) Projection() string {
	return j.projection
}

// WorldExtent implements the [mapscript.Dataset] interface.
func (j *JSON) WorldExtent() rect.Rect {
	return j.extent
}

// Close implements the [mapscript.Dataset] interface.
func (j *JSON) Close() error {
	j.rows = nil
	return nil
}
