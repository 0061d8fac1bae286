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
	"strconv"
	"strings"
)

// Geometry type tags, stored as the first element of every encoded
// geometry.
const (
	GeomPoint           = 100
	GeomLineString      = 101
	GeomPolygon         = 102
	GeomMultiPoint      = 103
	GeomMultiLineString = 104
	GeomMultiPolygon    = 105
	GeomCollection      = 106
)

// Coordinate markers.  Every coordinate pair in an encoded geometry is
// preceded by one of these.
const (
	OpMove = 0
	OpLine = 1
)

var geomNames = map[int]string{
	GeomPoint:           "POINT",
	GeomLineString:      "LINESTRING",
	GeomPolygon:         "POLYGON",
	GeomMultiPoint:      "MULTIPOINT",
	GeomMultiLineString: "MULTILINESTRING",
	GeomMultiPolygon:    "MULTIPOLYGON",
	GeomCollection:      "GEOMETRYCOLLECTION",
}

var geomTypes = map[string]int{
	"POINT":              GeomPoint,
	"LINESTRING":         GeomLineString,
	"POLYGON":            GeomPolygon,
	"MULTIPOINT":         GeomMultiPoint,
	"MULTILINESTRING":    GeomMultiLineString,
	"MULTIPOLYGON":       GeomMultiPolygon,
	"GEOMETRYCOLLECTION": GeomCollection,
}

// Geometry is a geometry in a flat numeric encoding.
//
// Each geometry starts with its type tag and an element count.
// Points, line strings and polygons are followed by count triples
// (marker, x, y), where polygon rings each start with an OpMove marker.
// Multi-geometries and collections are followed by count encoded member
// geometries; the members of a MULTIPOINT are POINT geometries.
type Geometry []float64

// Kind implements the [Value] interface.
func (g Geometry) Kind() Kind { return KindGeometry }

func (Geometry) isValue() {}

// Type returns the type tag of the geometry.
func (g Geometry) Type() int {
	if len(g) < 2 {
		return 0
	}
	return int(g[0])
}

// TypeName returns the WKT keyword for the geometry type.
func (g Geometry) TypeName() string {
	return geomNames[g.Type()]
}

// Count returns the number of elements of the geometry: coordinates for
// points, line strings and polygons, and members for all other types.
func (g Geometry) Count() int {
	if len(g) < 2 {
		return 0
	}
	return int(g[1])
}

// end returns the index just after the geometry starting at index i.
func (g Geometry) end(i int) int {
	tp := int(g[i])
	n := int(g[i+1])
	switch tp {
	case GeomPoint, GeomLineString, GeomPolygon:
		return i + 2 + 3*n
	default:
		j := i + 2
		for k := 0; k < n; k++ {
			j = g.end(j)
		}
		return j
	}
}

// Member returns the i-th element of the geometry, counting from 1.
// For line strings this is a POINT geometry at the i-th vertex, for
// polygons the i-th ring as a LINESTRING, for a point the point itself, and
// for all other types the i-th member geometry.
func (g Geometry) Member(i int) (Geometry, bool) {
	n := g.Count()
	if i < 1 || i > n && g.Type() != GeomPolygon {
		return nil, false
	}

	switch g.Type() {
	case GeomPoint:
		return g, true
	case GeomLineString:
		k := 2 + 3*(i-1)
		return Geometry{GeomPoint, 1, OpMove, g[k+1], g[k+2]}, true
	case GeomPolygon:
		var ring Geometry
		count := 0
		for k := 2; k < len(g); k += 3 {
			if g[k] == OpMove {
				count++
				if count > i {
					break
				}
			}
			if count == i {
				op := float64(OpLine)
				if len(ring) == 0 {
					ring = Geometry{GeomLineString, 0}
					op = OpMove
				}
				ring = append(ring, op, g[k+1], g[k+2])
				ring[1]++
			}
		}
		if ring == nil {
			return nil, false
		}
		return ring, true
	default:
		j := 2
		for k := 1; k < i; k++ {
			j = g.end(j)
		}
		return g[j:g.end(j)], true
	}
}

// Coords calls fn for every coordinate of the geometry, in order.
func (g Geometry) Coords(fn func(op int, x, y float64)) {
	if len(g) < 2 {
		return
	}
	g.coords(0, fn)
}

func (g Geometry) firstCoord() (x, y float64, ok bool) {
	g.Coords(func(_ int, px, py float64) {
		if !ok {
			x, y, ok = px, py, true
		}
	})
	return x, y, ok
}

func (g Geometry) coords(i int, fn func(op int, x, y float64)) int {
	tp := int(g[i])
	n := int(g[i+1])
	j := i + 2
	switch tp {
	case GeomPoint, GeomLineString, GeomPolygon:
		for k := 0; k < n; k++ {
			fn(int(g[j]), g[j+1], g[j+2])
			j += 3
		}
	default:
		for k := 0; k < n; k++ {
			j = g.coords(j, fn)
		}
	}
	return j
}

func (g Geometry) String() string {
	if len(g) < 2 {
		return ""
	}
	var sb strings.Builder
	g.format(&sb, 0, true)
	return sb.String()
}

func (g Geometry) format(sb *strings.Builder, i int, withType bool) int {
	tp := int(g[i])
	n := int(g[i+1])
	j := i + 2

	if withType {
		sb.WriteString(geomNames[tp])
		sb.WriteByte(' ')
	}
	if n == 0 {
		sb.WriteString("EMPTY")
		return j
	}

	switch tp {
	case GeomPoint:
		sb.WriteByte('(')
		writeCoord(sb, g[j+1], g[j+2])
		sb.WriteByte(')')
		j += 3
	case GeomLineString:
		sb.WriteByte('(')
		for k := 0; k < n; k++ {
			if k > 0 {
				sb.WriteString(", ")
			}
			writeCoord(sb, g[j+1], g[j+2])
			j += 3
		}
		sb.WriteByte(')')
	case GeomPolygon:
		sb.WriteByte('(')
		for k := 0; k < n; k++ {
			if g[j] == OpMove {
				if k > 0 {
					sb.WriteString("), ")
				}
				sb.WriteByte('(')
			} else {
				sb.WriteString(", ")
			}
			writeCoord(sb, g[j+1], g[j+2])
			j += 3
		}
		sb.WriteString("))")
	default:
		sb.WriteByte('(')
		for k := 0; k < n; k++ {
			if k > 0 {
				sb.WriteString(", ")
			}
			j = g.format(sb, j, tp == GeomCollection)
		}
		sb.WriteByte(')')
	}
	return j
}

func writeCoord(sb *strings.Builder, x, y float64) {
	sb.WriteString(FormatNumber(x))
	sb.WriteByte(' ')
	sb.WriteString(FormatNumber(y))
}

// ParseWKT parses a geometry in OGC well-known text format.
func ParseWKT(text string) (Geometry, error) {
	p := &wktParser{text: text, tokens: tokenizeWKT(text)}
	if len(p.tokens) == 0 {
		return nil, p.errorf("empty geometry")
	}
	g := make(Geometry, 0, len(p.tokens)+2)
	g, err := p.parseGeometry(g)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, p.errorf("unexpected %q after geometry", p.tokens[p.pos])
	}
	return g, nil
}

func tokenizeWKT(text string) []string {
	var tokens []string
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '(', ')', ',', ' ', '\t', '\n', '\r':
			if start >= 0 {
				tokens = append(tokens, text[start:i])
				start = -1
			}
			if c == '(' || c == ')' || c == ',' {
				tokens = append(tokens, text[i:i+1])
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

type wktParser struct {
	text   string
	tokens []string
	pos    int
}

func (p *wktParser) errorf(format string, a ...any) *Error {
	err := errGeometry(format, a...)
	err.Msg = "invalid geometry " + strconv.Quote(abbreviate(p.text, 40)) + ": " + err.Msg
	return err
}

func (p *wktParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *wktParser) next() string {
	tok := p.peek()
	if tok != "" {
		p.pos++
	}
	return tok
}

func (p *wktParser) expect(tok string) error {
	got := p.next()
	if got == "" {
		return p.errorf("unmatched parentheses")
	}
	if got != tok {
		return p.errorf("expected %q, found %q", tok, got)
	}
	return nil
}

// isEmpty consumes an EMPTY keyword, if present.
func (p *wktParser) isEmpty() bool {
	if strings.EqualFold(p.peek(), "EMPTY") {
		p.pos++
		return true
	}
	return false
}

// closeOrComma consumes the separator after a list element and reports
// whether the list continues.
func (p *wktParser) closeOrComma() (bool, error) {
	switch p.next() {
	case ",":
		return true, nil
	case ")":
		return false, nil
	case "":
		return false, p.errorf("unmatched parentheses")
	default:
		p.pos--
		return false, p.errorf("expected ',' or ')', found %q", p.peek())
	}
}

func (p *wktParser) number() (float64, error) {
	tok := p.next()
	switch tok {
	case "":
		return 0, p.errorf("unmatched parentheses")
	case "(", ")", ",":
		return 0, p.errorf("expected number, found %q", tok)
	}
	x, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, p.errorf("invalid number %q", tok)
	}
	return x, nil
}

func (p *wktParser) coord(g Geometry, op int) (Geometry, error) {
	x, err := p.number()
	if err != nil {
		return nil, err
	}
	switch p.peek() {
	case ")", ",", "":
		return nil, p.errorf("missing Y coordinate after %s", FormatNumber(x))
	}
	y, err := p.number()
	if err != nil {
		return nil, err
	}
	return append(g, float64(op), x, y), nil
}

func (p *wktParser) parseGeometry(g Geometry) (Geometry, error) {
	keyword := p.next()
	tp, ok := geomTypes[strings.ToUpper(keyword)]
	if !ok {
		return nil, p.errorf("unknown geometry type %q", keyword)
	}
	return p.parseBody(g, tp)
}

// parseBody appends the geometry of type tp, excluding the keyword,
// to g.
func (p *wktParser) parseBody(g Geometry, tp int) (Geometry, error) {
	start := len(g)
	g = append(g, float64(tp), 0)
	if p.isEmpty() {
		return g, nil
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}

	var err error
	n := 0
	switch tp {
	case GeomPoint:
		g, err = p.coord(g, OpMove)
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		n = 1

	case GeomLineString:
		g, n, err = p.coordList(g)
		if err != nil {
			return nil, err
		}

	case GeomPolygon:
		for more := true; more; {
			if err := p.expect("("); err != nil {
				return nil, err
			}
			var k int
			g, k, err = p.coordList(g)
			if err != nil {
				return nil, err
			}
			n += k
			more, err = p.closeOrComma()
			if err != nil {
				return nil, err
			}
		}

	case GeomMultiPoint:
		for more := true; more; {
			switch {
			case p.isEmpty():
				g = append(g, GeomPoint, 0)
			case p.peek() == "(":
				p.pos++
				g = append(g, GeomPoint, 1)
				g, err = p.coord(g, OpMove)
				if err != nil {
					return nil, err
				}
				if err := p.expect(")"); err != nil {
					return nil, err
				}
			default:
				g = append(g, GeomPoint, 1)
				g, err = p.coord(g, OpMove)
				if err != nil {
					return nil, err
				}
			}
			n++
			more, err = p.closeOrComma()
			if err != nil {
				return nil, err
			}
		}

	case GeomMultiLineString, GeomMultiPolygon, GeomCollection:
		member := GeomLineString
		if tp == GeomMultiPolygon {
			member = GeomPolygon
		}
		for more := true; more; {
			if tp == GeomCollection {
				g, err = p.parseGeometry(g)
			} else {
				g, err = p.parseBody(g, member)
			}
			if err != nil {
				return nil, err
			}
			n++
			more, err = p.closeOrComma()
			if err != nil {
				return nil, err
			}
		}
	}

	g[start+1] = float64(n)
	return g, nil
}

// coordList parses a comma separated list of coordinates, up to and
// including the closing parenthesis.  The first coordinate gets a move
// marker, all others get line markers.
func (p *wktParser) coordList(g Geometry) (Geometry, int, error) {
	n := 0
	op := OpMove
	for more := true; more; {
		var err error
		g, err = p.coord(g, op)
		if err != nil {
			return nil, 0, err
		}
		op = OpLine
		n++
		more, err = p.closeOrComma()
		if err != nil {
			return nil, 0, err
		}
	}
	return g, n, nil
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
