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
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/exp/maps"
	"golang.org/x/image/colornames"
)

// ColorTable is a [ColorNames] implementation.  It knows the SVG color
// names and can be extended from an X11 rgb.txt file.
// Names are matched ignoring case and spaces.
type ColorTable struct {
	colors map[string]color.RGBA
}

// NewColorTable returns a table holding the SVG 1.1 color names.
func NewColorTable() *ColorTable {
	t := &ColorTable{colors: make(map[string]color.RGBA, len(colornames.Map))}
	for name, c := range colornames.Map {
		t.colors[colorKey(name)] = c
	}
	return t
}

func colorKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}

// LoadRGB reads colors in the format of the X11 rgb.txt file: three
// decimal components followed by the name, one color per line.
// Entries from the file replace entries of the same name.
func (t *ColorTable) LoadRGB(r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '!' || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return fmt.Errorf("rgb.txt line %d: malformed entry", lineNo)
		}
		var rgb [3]uint8
		for i := range rgb {
			x, err := strconv.ParseUint(fields[i], 10, 8)
			if err != nil {
				return fmt.Errorf("rgb.txt line %d: %w", lineNo, err)
			}
			rgb[i] = uint8(x)
		}
		name := strings.Join(fields[3:], "")
		t.colors[colorKey(name)] = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	}
	return sc.Err()
}

// LookupColor implements the [ColorNames] interface.
func (t *ColorTable) LookupColor(name string) (color.RGBA, bool) {
	c, ok := t.colors[colorKey(name)]
	return c, ok
}

// Names returns all known color names.
func (t *ColorTable) Names() []string {
	names := maps.Keys(t.colors)
	slices.Sort(names)
	return names
}

// suggest returns a "did you mean" hint for a misspelled name, or the
// empty string if no candidate is similar enough.
func suggest(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}
	candidates = slices.Sorted(slices.Values(candidates))
	matches := fuzzy.Find(strings.ToLower(name), candidates)
	if len(matches) == 0 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", matches[0].Str)
}

// parseColor interprets the arguments of the color statement.
func (intp *Interpreter) parseColor(args []Value) (color.RGBA, error) {
	first := args[0].String()
	model := strings.ToLower(first)

	alpha := 1.0
	components := func(n int) ([]float64, error) {
		if len(args) != n+1 && len(args) != n+2 {
			return nil, errEval("color model %q needs %d components", first, n)
		}
		res := make([]float64, n)
		for i := range res {
			x, err := NumericValue(args[i+1])
			if err != nil {
				return nil, err
			}
			res[i] = clamp01(x)
		}
		if len(args) == n+2 {
			a, err := NumericValue(args[n+1])
			if err != nil {
				return nil, err
			}
			alpha = clamp01(a)
		}
		return res, nil
	}

	var r, g, b float64
	switch model {
	case "rgb":
		c, err := components(3)
		if err != nil {
			return color.RGBA{}, err
		}
		r, g, b = c[0], c[1], c[2]
	case "hsb", "hsv":
		c, err := components(3)
		if err != nil {
			return color.RGBA{}, err
		}
		r, g, b = hsbToRGB(c[0], c[1], c[2])
	case "cmyk":
		c, err := components(4)
		if err != nil {
			return color.RGBA{}, err
		}
		r = (1 - c[0]) * (1 - c[3])
		g = (1 - c[1]) * (1 - c[3])
		b = (1 - c[2]) * (1 - c[3])
	default:
		if len(args) > 2 {
			return color.RGBA{}, errEval("unknown color model %q", first)
		}
		col, err := intp.namedColor(first)
		if err != nil {
			return color.RGBA{}, err
		}
		if len(args) == 2 {
			a, err := NumericValue(args[1])
			if err != nil {
				return color.RGBA{}, err
			}
			a = clamp01(a)
			col = color.RGBA{
				R: uint8(math.Round(float64(col.R) * a)),
				G: uint8(math.Round(float64(col.G) * a)),
				B: uint8(math.Round(float64(col.B) * a)),
				A: uint8(math.Round(a * 255)),
			}
		}
		return col, nil
	}

	// color.RGBA uses premultiplied alpha
	return color.RGBA{
		R: uint8(math.Round(r * alpha * 255)),
		G: uint8(math.Round(g * alpha * 255)),
		B: uint8(math.Round(b * alpha * 255)),
		A: uint8(math.Round(alpha * 255)),
	}, nil
}

// namedColor looks up a color given by name or as a hexadecimal
// "#rrggbb" value.
func (intp *Interpreter) namedColor(name string) (color.RGBA, error) {
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		x, err := strconv.ParseUint(name[1:], 16, 32)
		if err == nil {
			return color.RGBA{R: uint8(x >> 16), G: uint8(x >> 8), B: uint8(x), A: 255}, nil
		}
	}

	colors := intp.Colors
	if colors == nil {
		colors = defaultColors
	}
	if c, ok := colors.LookupColor(name); ok {
		return c, nil
	}
	var hint string
	if t, ok := colors.(*ColorTable); ok {
		hint = suggest(name, t.Names())
	}
	return color.RGBA{}, errEval("unknown color %q%s", name, hint)
}

var defaultColors = NewColorTable()

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// hsbToRGB converts hue, saturation and brightness, all in the range
// [0, 1], to RGB components.
func hsbToRGB(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	h = (h - math.Floor(h)) * 6
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

// rgbToHSB converts RGB components to hue, saturation and brightness, all
// in the range [0, 1].
func rgbToHSB(r8, g8, b8 uint8) (h, s, v float64) {
	r, g, b := float64(r8)/255, float64(g8)/255, float64(b8)/255
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	v = hi
	if hi == 0 {
		return 0, 0, 0
	}
	s = (hi - lo) / hi
	if s == 0 {
		return 0, 0, v
	}
	d := hi - lo
	switch hi {
	case r:
		h = (g - b) / d
	case g:
		h = 2 + (b-r)/d
	default:
		h = 4 + (r-g)/d
	}
	h /= 6
	if h < 0 {
		h++
	}
	return h, s, v
}
