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

// Package afm reads Adobe Font Metrics files and uses them to measure
// label text.
package afm

import (
	"seehuhn.de/go/geom/rect"
)

// Metrics contains the information from an AFM file.
// All lengths are in glyph space units, 1/1000 of the font size.
type Metrics struct {
	Glyphs   map[string]*GlyphInfo
	Encoding []string

	// PostScript language name of the font.
	FontName string

	// FullName is a unique, human-readable name for an individual font.
	FullName string

	FamilyName string

	CapHeight float64
	XHeight   float64
	Ascent    float64
	Descent   float64 // negative

	IsFixedPitch bool

	Kern map[KernPair]float64 // negative = move glyphs closer together
}

// GlyphInfo holds the metrics of a single glyph.
type GlyphInfo struct {
	WidthX    float64
	BBox      rect.Rect
	Ligatures map[string]string
}

// KernPair identifies two glyphs which are set next to each other.
type KernPair struct {
	Left, Right string
}

// GlyphName returns the name of the glyph used for r, or the empty string
// if the font has no glyph for r.
func (m *Metrics) GlyphName(r rune) string {
	var name string
	switch {
	case r >= 0x20 && r < 0x7f && r != '\'' && r != '`':
		if int(r) < len(m.Encoding) {
			name = m.Encoding[r]
		}
	case r == '\'':
		name = "quotesingle"
	case r == '`':
		name = "grave"
	case r >= 0xa0 && r <= 0xff:
		name = latin1Names[r-0xa0]
	default:
		name = extraNames[r]
	}
	if _, ok := m.Glyphs[name]; !ok {
		return ""
	}
	return name
}

// Width returns the advance width of a string in glyph space units.
// Characters without a glyph use the width of ".notdef", or zero.
func (m *Metrics) Width(text string) float64 {
	var w float64
	prev := ""
	for _, r := range text {
		name := m.GlyphName(r)
		if name == "" {
			if g := m.Glyphs[".notdef"]; g != nil {
				w += g.WidthX
			}
			prev = ""
			continue
		}
		w += m.Glyphs[name].WidthX
		if prev != "" {
			w += m.Kern[KernPair{Left: prev, Right: name}]
		}
		prev = name
	}
	return w
}

// latin1Names gives the glyph names for the ISO 8859-1 characters
// U+00A0 to U+00FF.
var latin1Names = [96]string{
	"space", "exclamdown", "cent", "sterling", "currency", "yen", "brokenbar", "section",
	"dieresis", "copyright", "ordfeminine", "guillemotleft", "logicalnot", "hyphen", "registered", "macron",
	"degree", "plusminus", "twosuperior", "threesuperior", "acute", "mu", "paragraph", "periodcentered",
	"cedilla", "onesuperior", "ordmasculine", "guillemotright", "onequarter", "onehalf", "threequarters", "questiondown",
	"Agrave", "Aacute", "Acircumflex", "Atilde", "Adieresis", "Aring", "AE", "Ccedilla",
	"Egrave", "Eacute", "Ecircumflex", "Edieresis", "Igrave", "Iacute", "Icircumflex", "Idieresis",
	"Eth", "Ntilde", "Ograve", "Oacute", "Ocircumflex", "Otilde", "Odieresis", "multiply",
	"Oslash", "Ugrave", "Uacute", "Ucircumflex", "Udieresis", "Yacute", "Thorn", "germandbls",
	"agrave", "aacute", "acircumflex", "atilde", "adieresis", "aring", "ae", "ccedilla",
	"egrave", "eacute", "ecircumflex", "edieresis", "igrave", "iacute", "icircumflex", "idieresis",
	"eth", "ntilde", "ograve", "oacute", "ocircumflex", "otilde", "odieresis", "divide",
	"oslash", "ugrave", "uacute", "ucircumflex", "udieresis", "yacute", "thorn", "ydieresis",
}

var extraNames = map[rune]string{
	'–': "endash",
	'—': "emdash",
	'‘': "quoteleft",
	'’': "quoteright",
	'“': "quotedblleft",
	'”': "quotedblright",
	'•': "bullet",
	'…': "ellipsis",
	'€': "Euro",
}
