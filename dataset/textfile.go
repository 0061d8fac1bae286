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
	"bufio"
	"io"
	"os"
	"strings"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/mapscript"
)

// TextFile reads records from a text file, one record per line.
// Each row holds the whole line, followed by its fields.  Rows are padded
// with empty strings to the largest number of fields seen so far.
type TextFile struct {
	name      string
	sc        *bufio.Scanner
	closer    io.Closer
	comment   string
	delimiter string
	maxFields int
}

// OpenTextFile opens a text file.  The name "-" reads standard input.
// The extras may contain "comment=PREFIX" to change the prefix of comment
// lines (default "#") and "delimiter=C" to split fields at the character
// C instead of at white space.
func OpenTextFile(name, extras string) (*TextFile, error) {
	var r io.Reader
	var closer io.Closer
	if name == "-" {
		r = os.Stdin
	} else {
		fd, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		r = fd
		closer = fd
	}
	return newTextFile(name, r, closer, extras), nil
}

func newTextFile(name string, r io.Reader, closer io.Closer, extras string) *TextFile {
	t := &TextFile{
		name:    name,
		sc:      bufio.NewScanner(r),
		closer:  closer,
		comment: "#",
	}
	t.sc.Buffer(nil, 1<<20)
	for key, val := range mapscript.ParseExtras(extras) {
		switch key {
		case "comment":
			t.comment = val
		case "delimiter":
			if len(val) == 1 {
				t.delimiter = val
			}
		}
	}
	return t
}

// FetchRow implements the [mapscript.Dataset] interface.
func (t *TextFile) FetchRow() (mapscript.Row, error) {
	var line string
	for {
		if !t.sc.Scan() {
			if err := t.sc.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		line = t.sc.Text()
		if t.comment == "" || !strings.HasPrefix(line, t.comment) {
			break
		}
	}

	var fields []string
	if t.delimiter == "" {
		fields = strings.Fields(line)
	} else {
		fields = strings.Split(line, t.delimiter)
	}

	row := make(mapscript.Row, 0, max(len(fields)+1, t.maxFields))
	row = append(row, mapscript.NewString(line))
	for _, f := range fields {
		row = append(row, mapscript.NewString(f))
	}
	for len(row) < t.maxFields {
		row = append(row, mapscript.NewString(""))
	}
	t.maxFields = len(row)
	return row, nil
}

// FieldNames implements the [mapscript.Dataset] interface.
// Text files have positional fields only, so the list is empty.
func (t *TextFile) FieldNames() []string {
	return nil
}

// Projection implements the [mapscript.Dataset] interface.
func (t *TextFile) Projection() string {
	return ""
}

// WorldExtent implements the [mapscript.Dataset] interface.
func (t *TextFile) WorldExtent() rect.Rect {
	return wholeWorld
}

// Close implements the [mapscript.Dataset] interface.
func (t *TextFile) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
