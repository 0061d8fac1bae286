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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Library is a collection of font metrics, indexed by font name.
// It implements the font metrics interface of the interpreter.
type Library struct {
	fonts map[string]*Metrics

	// Fallback names the font used to measure text set in unknown fonts.
	// If no fallback font is loaded, widths are estimated.
	Fallback string
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{
		fonts:    make(map[string]*Metrics),
		Fallback: "Helvetica",
	}
}

// Add adds font metrics to the library.  The font can be found by its
// PostScript name and by its full name.
func (l *Library) Add(m *Metrics) {
	l.fonts[m.FontName] = m
	if m.FullName != "" {
		if _, exists := l.fonts[m.FullName]; !exists {
			l.fonts[m.FullName] = m
		}
	}
}

// LoadFile reads an AFM file and adds it to the library.
func (l *Library) LoadFile(name string) error {
	fd, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fd.Close()

	m, err := Read(fd)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	l.Add(m)
	return nil
}

// LoadDir adds all files with extension ".afm" in a directory to the
// library.  It returns the number of fonts loaded.
func (l *Library) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".afm") {
			continue
		}
		err := l.LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Lookup returns the metrics for a font, or nil if the font is unknown.
func (l *Library) Lookup(font string) *Metrics {
	return l.fonts[font]
}

// StringSize returns the width and height of text set in the given font
// and size.  Text containing newlines is measured as several lines: the
// width is the width of the longest line and the height is the size times
// the number of lines.
func (l *Library) StringSize(text, font string, size float64) (w, h float64) {
	m := l.fonts[font]
	if m == nil {
		m = l.fonts[l.Fallback]
	}

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		var lw float64
		if m != nil {
			lw = m.Width(line) * size / 1000
		} else {
			lw = 0.5 * size * float64(utf8.RuneCountInString(line))
		}
		w = max(w, lw)
	}
	return w, size * float64(len(lines))
}
