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
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// command is a builtin statement.
type command struct {
	name    string
	minArgs int
	maxArgs int // -1 means no limit
	fn      func(intp *Interpreter, args []Value) error
}

var commands map[string]*command

func init() {
	list := []*command{
		{"move", 2, -1, bMove},
		{"draw", 2, -1, bDraw},
		{"rdraw", 2, -1, bRdraw},
		{"arc", 5, 5, bArc},
		{"curve", 6, 6, bCurve},
		{"circle", 3, 3, bCircle},
		{"box", 4, 4, bBox},
		{"closepath", 0, 0, bClosepath},
		{"clearpath", 0, 0, bClearpath},
		{"geometry", 1, -1, bGeometry},
		{"samplepath", 2, 2, bSamplepath},
		{"reversepath", 0, 0, bReversepath},

		{"scale", 1, 1, bScale},
		{"rotate", 1, 1, bRotate},
		{"translate", 2, 2, bTranslate},
		{"worlds", 4, 5, bWorlds},
		{"project", 2, 2, bProject},

		{"color", 1, 5, bColor},
		{"colour", 1, 5, bColor},
		{"linestyle", 1, -1, bLinestyle},
		{"font", 2, 2, bFont},
		{"justify", 1, 1, bJustify},

		{"newpage", 4, 5, bNewpage},
		{"endpage", 0, 0, bEndpage},
		{"stroke", 0, 0, bStroke},
		{"fill", 0, 0, bFill},
		{"clip", 0, 1, bClip},
		{"protect", 0, 0, bProtect},
		{"label", 1, -1, bLabel},
		{"icon", 2, 2, bIcon},

		{"dataset", 2, 3, bDataset},
		{"fetch", 0, 0, bFetch},

		{"print", 0, -1, bPrint},
	}
	commands = make(map[string]*command, len(list))
	for _, cmd := range list {
		commands[cmd.name] = cmd
	}
}

// numbers converts all arguments to numbers.
func numbers(args []Value) ([]float64, error) {
	res := make([]float64, len(args))
	for i, arg := range args {
		x, err := NumericValue(arg)
		if err != nil {
			return nil, err
		}
		res[i] = x
	}
	return res, nil
}

// coordPairs converts the arguments to numbers and checks that they form
// (x, y) pairs.
func coordPairs(args []Value) ([]float64, error) {
	if len(args)%2 != 0 {
		return nil, errEval("odd number of coordinates")
	}
	return numbers(args)
}

func bMove(intp *Interpreter, args []Value) error {
	xy, err := coordPairs(args)
	if err != nil {
		return err
	}
	c := intp.Current()
	for i := 0; i < len(xy); i += 2 {
		if err := c.MoveTo(xy[i], xy[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func bDraw(intp *Interpreter, args []Value) error {
	xy, err := coordPairs(args)
	if err != nil {
		return err
	}
	c := intp.Current()
	for i := 0; i < len(xy); i += 2 {
		if err := c.LineTo(xy[i], xy[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func bRdraw(intp *Interpreter, args []Value) error {
	xy, err := coordPairs(args)
	if err != nil {
		return err
	}
	c := intp.Current()
	for i := 0; i < len(xy); i += 2 {
		if err := c.RLineTo(xy[i], xy[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func bArc(intp *Interpreter, args []Value) error {
	x, err := numbers(args)
	if err != nil {
		return err
	}
	dir := -1
	if x[0] > 0 {
		dir = 1
	}
	return intp.Current().ArcTo(dir, x[1], x[2], x[3], x[4])
}

func bCurve(intp *Interpreter, args []Value) error {
	x, err := numbers(args)
	if err != nil {
		return err
	}
	return intp.Current().CurveTo(x[0], x[1], x[2], x[3], x[4], x[5])
}

func bCircle(intp *Interpreter, args []Value) error {
	x, err := numbers(args)
	if err != nil {
		return err
	}
	return intp.Current().Circle(x[0], x[1], x[2])
}

func bBox(intp *Interpreter, args []Value) error {
	x, err := numbers(args)
	if err != nil {
		return err
	}
	return intp.Current().Box(x[0], x[1], x[2], x[3])
}

func bClosepath(intp *Interpreter, args []Value) error {
	return intp.Current().ClosePath()
}

func bClearpath(intp *Interpreter, args []Value) error {
	intp.Current().ClearPath()
	return nil
}

func bGeometry(intp *Interpreter, args []Value) error {
	c := intp.Current()
	for _, arg := range args {
		g, ok := arg.(Geometry)
		if !ok {
			var err error
			g, err = ParseWKT(arg.String())
			if err != nil {
				return err
			}
		}
		if err := c.AddGeometry(g); err != nil {
			return err
		}
	}
	return nil
}

func bSamplepath(intp *Interpreter, args []Value) error {
	x, err := numbers(args)
	if err != nil {
		return err
	}
	return intp.Current().SamplePath(x[0], x[1])
}

func bReversepath(intp *Interpreter, args []Value) error {
	intp.Current().ReversePath()
	return nil
}

func bScale(intp *Interpreter, args []Value) error {
	s, err := NumericValue(args[0])
	if err != nil {
		return err
	}
	return intp.Current().Scale(s)
}

func bRotate(intp *Interpreter, args []Value) error {
	angle, err := NumericValue(args[0])
	if err != nil {
		return err
	}
	intp.Current().Rotate(angle)
	return nil
}

func bTranslate(intp *Interpreter, args []Value) error {
	x, err := numbers(args)
	if err != nil {
		return err
	}
	intp.Current().Translate(x[0], x[1])
	return nil
}

func bWorlds(intp *Interpreter, args []Value) error {
	x, err := numbers(args[:4])
	if err != nil {
		return err
	}
	units := "metres"
	distortion := false
	if len(args) > 4 {
		for key, val := range ParseExtras(args[4].String()) {
			switch key {
			case "units":
				if _, ok := worldUnitsPerMM[val]; !ok {
					return errEval("unknown units %q", val)
				}
				units = val
			case "distortion":
				distortion = val == "true"
			}
		}
	}
	return intp.Current().SetWorlds(x[0], x[1], x[2], x[3], units, distortion)
}

func bProject(intp *Interpreter, args []Value) error {
	if intp.Projections == nil {
		return errState("reprojection is not available")
	}
	src, dst := args[0].String(), args[1].String()
	p, err := intp.Projections.NewProjection(src, dst)
	if err != nil {
		return errIO(err, "cannot reproject from %q to %q", src, dst)
	}
	intp.Current().SetProjection(p)
	return nil
}

func bColor(intp *Interpreter, args []Value) error {
	col, err := intp.parseColor(args)
	if err != nil {
		return err
	}
	intp.Current().SetColor(col)
	return nil
}

var capNames = map[string]Cap{
	"butt":   CapButt,
	"round":  CapRound,
	"square": CapSquare,
}

var joinNames = map[string]Join{
	"miter": JoinMiter,
	"mitre": JoinMiter,
	"round": JoinRound,
	"bevel": JoinBevel,
}

func bLinestyle(intp *Interpreter, args []Value) error {
	width, err := NumericValue(args[0])
	if err != nil {
		return err
	}
	if width < 0 {
		return errEval("negative line width %g", width)
	}
	ls := Linestyle{Width: width}
	if len(args) > 1 {
		name := strings.ToLower(args[1].String())
		cp, ok := capNames[name]
		if !ok {
			return errEval("unknown line cap %q", args[1].String())
		}
		ls.Cap = cp
	}
	if len(args) > 2 {
		name := strings.ToLower(args[2].String())
		j, ok := joinNames[name]
		if !ok {
			return errEval("unknown line join %q", args[2].String())
		}
		ls.Join = j
	}
	if len(args) > 3 {
		ls.Phase, err = NumericValue(args[3])
		if err != nil {
			return err
		}
	}
	if len(args) > 4 {
		ls.Dashes, err = numbers(args[4:])
		if err != nil {
			return err
		}
		for _, d := range ls.Dashes {
			if d < 0 {
				return errEval("negative dash length %g", d)
			}
		}
	}
	intp.Current().SetLinestyle(ls)
	return nil
}

func bFont(intp *Interpreter, args []Value) error {
	size, err := NumericValue(args[1])
	if err != nil {
		return err
	}
	if size <= 0 {
		return errEval("invalid font size %g", size)
	}
	intp.Current().SetFont(args[0].String(), size)
	return nil
}

func bJustify(intp *Interpreter, args []Value) error {
	var j Justify
	for _, word := range strings.Fields(strings.ToLower(args[0].String())) {
		switch word {
		case "left":
			j.Horizontal = AlignLeft
		case "centre", "center":
			j.Horizontal = AlignCenter
		case "right":
			j.Horizontal = AlignRight
		case "bottom":
			j.Vertical = AlignBottom
		case "middle":
			j.Vertical = AlignMiddle
		case "top":
			j.Vertical = AlignTop
		default:
			return errEval("unknown justification %q", word)
		}
	}
	intp.Current().SetJustify(j)
	return nil
}

func bNewpage(intp *Interpreter, args []Value) error {
	if err := intp.checkIO("newpage"); err != nil {
		return err
	}
	if intp.Outputs == nil {
		return errState("no output formats available")
	}
	size, err := numbers(args[2:4])
	if err != nil {
		return err
	}
	if size[0] <= 0 || size[1] <= 0 {
		return errEval("invalid page size %gx%g", size[0], size[1])
	}
	format, name := args[0].String(), args[1].String()
	var extras string
	if len(args) > 4 {
		extras = args[4].String()
	}
	out, err := intp.Outputs.OpenOutput(format, name, size[0], size[1], extras)
	if err != nil {
		return errIO(err, "cannot open %s output %q", format, name)
	}
	intp.logger().Debug("page opened",
		slog.String("format", format),
		slog.String("name", name),
		slog.Float64("width", size[0]),
		slog.Float64("height", size[1]))
	return intp.Current().OpenPage(out, format)
}

func bEndpage(intp *Interpreter, args []Value) error {
	c := intp.Current()
	format := c.format
	if err := c.ClosePage(); err != nil {
		return err
	}
	intp.logger().Debug("page closed", slog.String("format", format))
	return nil
}

func bStroke(intp *Interpreter, args []Value) error {
	return intp.Current().Stroke()
}

func bFill(intp *Interpreter, args []Value) error {
	return intp.Current().Fill()
}

func bClip(intp *Interpreter, args []Value) error {
	side := "inside"
	if len(args) > 0 {
		side = strings.ToLower(args[0].String())
	}
	switch side {
	case "inside":
		intp.Current().ClipInside()
		return nil
	case "outside":
		return intp.Current().ClipOutside()
	default:
		return errEval("unknown clip side %q", args[0].String())
	}
}

func bProtect(intp *Interpreter, args []Value) error {
	return intp.Current().ClipOutside()
}

func bLabel(intp *Interpreter, args []Value) error {
	return intp.Current().Label(joinValues(args))
}

func bIcon(intp *Interpreter, args []Value) error {
	if err := intp.checkIO("icon"); err != nil {
		return err
	}
	size, err := NumericValue(args[1])
	if err != nil {
		return err
	}
	return intp.Current().DrawIcon(args[0].String(), size)
}

func bDataset(intp *Interpreter, args []Value) error {
	if err := intp.checkIO("dataset"); err != nil {
		return err
	}
	if intp.Datasets == nil {
		return errState("no dataset formats available")
	}
	kind, name := args[0].String(), args[1].String()
	var extras string
	if len(args) > 2 {
		extras = args[2].String()
	}
	ds, err := intp.Datasets.OpenDataset(kind, name, extras)
	if err != nil {
		return errIO(err, "cannot open %s dataset %q", kind, name)
	}
	intp.logger().Debug("dataset opened",
		slog.String("type", kind),
		slog.String("name", name),
		slog.Int("fields", len(ds.FieldNames())))
	return intp.Current().SetDataset(ds)
}

// bFetch reads the next row of the dataset and assigns the fields to the
// variables named by the field names.  Datasets without field names give
// the variables $0, $1, ...
func bFetch(intp *Interpreter, args []Value) error {
	c := intp.Current()
	row, err := c.Fetch()
	if err != nil {
		return err
	}
	cs := intp.stack
	names := c.data.ds.FieldNames()
	if len(names) == 0 {
		// positional fields: $0 is the whole record
		names = make([]string, len(row))
		for i := range names {
			names[i] = "$" + strconv.Itoa(i)
		}
	}
	for i, name := range names {
		if i >= len(row) {
			cs.Define(name, NewString(""))
			continue
		}
		cs.Define(name, row[i])
	}
	return nil
}

func bPrint(intp *Interpreter, args []Value) error {
	if intp.Stdout == nil {
		return nil
	}
	_, err := fmt.Fprintln(intp.Stdout, joinValues(args))
	if err != nil {
		return errIO(err, "cannot write output")
	}
	return nil
}

func joinValues(args []Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}

// ParseExtras splits a string of space separated key=value settings.
// Keys are converted to lower case.  Words without "=" are ignored.
func ParseExtras(s string) map[string]string {
	res := make(map[string]string)
	for _, word := range strings.Fields(s) {
		key, val, ok := strings.Cut(word, "=")
		if !ok {
			continue
		}
		res[strings.ToLower(key)] = val
	}
	return res
}
