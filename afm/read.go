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

package afm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/rect"
)

// Read reads an AFM file.
func Read(fd io.Reader) (*Metrics, error) {
	res := &Metrics{
		Glyphs: make(map[string]*GlyphInfo),
	}

	res.Encoding = make([]string, 256)
	for i := range res.Encoding {
		res.Encoding[i] = ".notdef"
	}

	charMetrics := false
	kernPairs := false
	lineNo := 0
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.HasPrefix(line, "EndCharMetrics") {
			charMetrics = false
			continue
		}
		if charMetrics {
			name, code, info, err := readCharMetrics(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if _, seen := res.Glyphs[name]; name == "" || seen {
				continue
			}
			if code >= 0 && code < 256 {
				res.Encoding[code] = name
			}
			res.Glyphs[name] = info
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "EndKernPairs" {
			kernPairs = false
			continue
		}
		if kernPairs && len(fields) == 4 && fields[0] == "KPX" {
			x, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid kerning pair adjustment: %v", lineNo, err)
			}
			if res.Kern == nil {
				res.Kern = make(map[KernPair]float64)
			}
			res.Kern[KernPair{Left: fields[1], Right: fields[2]}] = x
			continue
		}
		if len(fields) < 2 {
			continue
		}

		// number parses a global metric, ignoring values which are out of
		// range, NaN or infinite.
		number := func(dst *float64) {
			x, _ := strconv.ParseFloat(fields[1], 64)
			if x >= math.MinInt32 && x <= math.MaxInt32 {
				*dst = x
			}
		}
		switch fields[0] {
		case "FontName":
			res.FontName = fields[1]
		case "FullName":
			res.FullName = strings.Join(fields[1:], " ")
		case "FamilyName":
			res.FamilyName = strings.Join(fields[1:], " ")
		case "CapHeight":
			number(&res.CapHeight)
		case "XHeight":
			number(&res.XHeight)
		case "Ascender":
			number(&res.Ascent)
		case "Descender":
			number(&res.Descent)
		case "IsFixedPitch":
			res.IsFixedPitch = fields[1] == "true"
		case "StartCharMetrics":
			charMetrics = true
		case "StartKernPairs", "StartKernPairs0":
			kernPairs = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if res.FontName == "" {
		return nil, fmt.Errorf("missing FontName")
	}

	return res, nil
}

// readCharMetrics parses one line of the character metrics section, like
// "C 102 ; WX 333 ; N f ; B 20 0 383 683 ; L i fi ;".
func readCharMetrics(line string) (string, int, *GlyphInfo, error) {
	var name string
	code := -1
	info := &GlyphInfo{}
	ligatures := make(map[string]string)

	for _, keyVal := range strings.Split(line, ";") {
		ff := strings.Fields(keyVal)
		if len(ff) < 2 {
			continue
		}
		switch ff[0] {
		case "C":
			var err error
			code, err = strconv.Atoi(ff[1])
			if err != nil {
				return "", 0, nil, fmt.Errorf("invalid character code %q: %v", ff[1], err)
			}
		case "WX":
			x, err := strconv.ParseFloat(ff[1], 64)
			if err != nil {
				return "", 0, nil, fmt.Errorf("invalid character width %q: %v", ff[1], err)
			}
			info.WidthX = x
		case "N":
			name = ff[1]
		case "B":
			if len(ff) != 5 {
				continue
			}
			var coords [4]float64
			for i := range coords {
				x, err := strconv.ParseFloat(ff[i+1], 64)
				if err != nil {
					return "", 0, nil, fmt.Errorf("invalid bounding box: %v", err)
				}
				coords[i] = x
			}
			info.BBox = rect.Rect{LLx: coords[0], LLy: coords[1], URx: coords[2], URy: coords[3]}
		case "L":
			if len(ff) >= 3 {
				ligatures[ff[1]] = ff[2]
			}
		}
	}
	if len(ligatures) > 0 {
		info.Ligatures = ligatures
	}
	return name, code, info, nil
}
