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
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"
)

const testAFM = `StartFontMetrics 4.1
Comment a tiny font for testing
FontName Test-Regular
FullName Test Regular
FamilyName Test
ItalicAngle 0
IsFixedPitch false
CapHeight 700
XHeight 450
Ascender 750
Descender -250
StartCharMetrics 5
C -1 ; WX 500 ; N .notdef ; B 0 0 500 700 ;
C 32 ; WX 250 ; N space ; B 0 0 0 0 ;
C 65 ; WX 600 ; N A ; B 10 0 590 700 ;
C 86 ; WX 650 ; N V ; B 5 0 645 700 ;
C 102 ; WX 300 ; N f ; B 20 0 380 720 ; L i fi ;
C -1 ; WX 550 ; N Adieresis ; B 10 0 590 900 ;
EndCharMetrics
StartKernData
StartKernPairs 1
KPX A V -80
EndKernPairs
EndKernData
EndFontMetrics
`

func TestRead(t *testing.T) {
	m, err := Read(strings.NewReader(testAFM))
	if err != nil {
		t.Fatal(err)
	}

	if m.FontName != "Test-Regular" || m.FullName != "Test Regular" || m.FamilyName != "Test" {
		t.Errorf("wrong names: %q %q %q", m.FontName, m.FullName, m.FamilyName)
	}
	if m.Ascent != 750 || m.Descent != -250 || m.CapHeight != 700 || m.XHeight != 450 {
		t.Errorf("wrong vertical metrics: %v %v %v %v", m.Ascent, m.Descent, m.CapHeight, m.XHeight)
	}
	if m.Encoding[65] != "A" || m.Encoding[66] != ".notdef" {
		t.Errorf("wrong encoding: %q %q", m.Encoding[65], m.Encoding[66])
	}

	want := &GlyphInfo{
		WidthX:    300,
		BBox:      rect.Rect{LLx: 20, LLy: 0, URx: 380, URy: 720},
		Ligatures: map[string]string{"i": "fi"},
	}
	if d := cmp.Diff(want, m.Glyphs["f"]); d != "" {
		t.Errorf("glyph f mismatch (-want +got):\n%s", d)
	}

	wantKern := map[KernPair]float64{{Left: "A", Right: "V"}: -80}
	if d := cmp.Diff(wantKern, m.Kern); d != "" {
		t.Errorf("kerning mismatch (-want +got):\n%s", d)
	}
}

func TestReadErrors(t *testing.T) {
	cases := []string{
		"StartCharMetrics 1\nC x ; WX 500 ; N a ;\nEndCharMetrics\nFontName X\n",
		"FontName X\nStartCharMetrics 1\nC 1 ; WX wide ; N a ;\nEndCharMetrics\n",
		"FontName X\nStartKernPairs 1\nKPX a b far\nEndKernPairs\n",
		"StartFontMetrics 4.1\nEndFontMetrics\n",
	}
	for i, in := range cases {
		_, err := Read(strings.NewReader(in))
		if err == nil {
			t.Errorf("%d: expected an error", i)
		}
	}
}

func TestWidth(t *testing.T) {
	m, err := Read(strings.NewReader(testAFM))
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"A", 600},
		{"AV", 600 + 650 - 80},
		{"VA", 650 + 600},
		{"A A", 600 + 250 + 600},
		{"Ä", 550},
		{"x", 500}, // .notdef
	}
	for _, c := range cases {
		got := m.Width(c.text)
		if got != c.want {
			t.Errorf("Width(%q) = %g, want %g", c.text, got, c.want)
		}
	}
}

func TestLibrary(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "test.afm"), []byte(testAFM), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(filepath.Join(dir, "README"), []byte("not a font"), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	n, err := lib.LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("loaded %d fonts, want 1", n)
	}
	if lib.Lookup("Test-Regular") == nil || lib.Lookup("Test Regular") == nil {
		t.Fatal("font not found by name")
	}

	w, h := lib.StringSize("AV", "Test-Regular", 10)
	if math.Abs(w-11.7) > 1e-9 || h != 10 {
		t.Errorf("StringSize = %g, %g, want 11.7, 10", w, h)
	}

	w, h = lib.StringSize("A\nAVA", "Test-Regular", 10)
	if math.Abs(w-17.7) > 1e-9 || h != 20 {
		t.Errorf("two lines: StringSize = %g, %g, want 17.7, 20", w, h)
	}

	// unknown font without fallback: estimate
	w, h = lib.StringSize("abcd", "Nonexistent", 10)
	if w != 20 || h != 10 {
		t.Errorf("estimate: StringSize = %g, %g, want 20, 10", w, h)
	}

	lib.Fallback = "Test-Regular"
	w, _ = lib.StringSize("A", "Nonexistent", 10)
	if w != 6 {
		t.Errorf("fallback: width = %g, want 6", w)
	}
}

func FuzzRead(f *testing.F) {
	f.Add([]byte(testAFM))
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := Read(bytes.NewReader(data))
		if err != nil {
			return
		}
		if m.FontName == "" {
			t.Fatal("font without name accepted")
		}
		if len(m.Encoding) != 256 {
			t.Fatalf("encoding has %d entries", len(m.Encoding))
		}
		_ = m.Width("AVf x")
	})
}
