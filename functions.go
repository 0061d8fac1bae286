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
	"math"
	"io"
	"math/rand/v2"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// function is a builtin function which can be used in expressions.
type function struct {
	name    string
	minArgs int
	maxArgs int // -1 means no limit
	fn      func(intp *Interpreter, args []Value) (Value, error)
}

func (f *function) call(intp *Interpreter, args []Value) (Value, error) {
	return f.fn(intp, args)
}

var functions map[string]*function

func init() {
	list := []*function{
		{"abs", 1, 1, math1(math.Abs)},
		{"ceil", 1, 1, math1(math.Ceil)},
		{"floor", 1, 1, math1(math.Floor)},
		{"round", 1, 1, math1(math.Round)},
		{"sqrt", 1, 1, fSqrt},
		{"sin", 1, 1, math1(func(x float64) float64 { return math.Sin(x * math.Pi / 180) })},
		{"cos", 1, 1, math1(func(x float64) float64 { return math.Cos(x * math.Pi / 180) })},
		{"tan", 1, 1, math1(func(x float64) float64 { return math.Tan(x * math.Pi / 180) })},
		{"log", 1, 1, fLog},
		{"exp", 1, 1, math1(math.Exp)},
		{"pow", 2, 2, fPow},
		{"min", 1, -1, fMin},
		{"max", 1, -1, fMax},
		{"sum", 1, -1, fSum},
		{"random", 1, 1, fRandom},

		{"length", 1, 1, fLength},
		{"substr", 2, 3, fSubstr},
		{"upper", 1, 1, str1(strings.ToUpper)},
		{"lower", 1, 1, str1(strings.ToLower)},
		{"trim", 1, 1, str1(strings.TrimSpace)},
		{"lpad", 2, 3, fLpad},
		{"rpad", 2, 3, fRpad},
		{"match", 2, 2, fMatch},
		{"replace", 3, 3, fReplace},
		{"split", 1, 2, fSplit},
		{"format", 2, 2, fFormat},
		{"interpolate", 2, 2, fInterpolate},

		{"stringwidth", 1, 1, fStringwidth},
		{"stringheight", 1, 1, fStringheight},
		{"getenv", 1, 1, fGetenv},
		{"geometry", 1, 1, fGeometry},
		{"spool", 1, 2, fSpool},
	}
	functions = make(map[string]*function, len(list))
	for _, fn := range list {
		functions[fn.name] = fn
	}
}

func math1(f func(float64) float64) func(*Interpreter, []Value) (Value, error) {
	return func(_ *Interpreter, args []Value) (Value, error) {
		x, err := NumericValue(args[0])
		if err != nil {
			return nil, err
		}
		return NewNumeric(f(x)), nil
	}
}

func str1(f func(string) string) func(*Interpreter, []Value) (Value, error) {
	return func(_ *Interpreter, args []Value) (Value, error) {
		return NewString(f(args[0].String())), nil
	}
}

func fSqrt(_ *Interpreter, args []Value) (Value, error) {
	x, err := NumericValue(args[0])
	if err != nil {
		return nil, err
	}
	if x < 0 {
		return nil, errEval("square root of negative number %s", FormatNumber(x))
	}
	return NewNumeric(math.Sqrt(x)), nil
}

func fLog(_ *Interpreter, args []Value) (Value, error) {
	x, err := NumericValue(args[0])
	if err != nil {
		return nil, err
	}
	if x <= 0 {
		return nil, errEval("logarithm of non-positive number %s", FormatNumber(x))
	}
	return NewNumeric(math.Log(x)), nil
}

func fPow(_ *Interpreter, args []Value) (Value, error) {
	x, err := numbers(args)
	if err != nil {
		return nil, err
	}
	return NewNumeric(math.Pow(x[0], x[1])), nil
}

// flatten returns the arguments with maps replaced by their entries.
func flatten(args []Value) []Value {
	var res []Value
	for _, arg := range args {
		if m, ok := arg.(*Map); ok {
			for _, key := range m.Keys() {
				res = append(res, m.Get(key))
			}
			continue
		}
		res = append(res, arg)
	}
	return res
}

// extremum returns the argument for which better(value, best) holds against
// all others.  Map arguments contribute their entries.
func extremum(args []Value, better func(a, b float64) bool) (Value, error) {
	var best Value
	var bestVal float64
	for _, arg := range flatten(args) {
		x, err := NumericValue(arg)
		if err != nil {
			return nil, err
		}
		if best == nil || better(x, bestVal) {
			best = arg
			bestVal = x
		}
	}
	if best == nil {
		return NewString(""), nil
	}
	return best, nil
}

func fMin(_ *Interpreter, args []Value) (Value, error) {
	return extremum(args, func(a, b float64) bool { return a < b })
}

func fMax(_ *Interpreter, args []Value) (Value, error) {
	return extremum(args, func(a, b float64) bool { return a > b })
}

func fSum(_ *Interpreter, args []Value) (Value, error) {
	total := 0.0
	for _, arg := range flatten(args) {
		x, err := NumericValue(arg)
		if err != nil {
			return nil, err
		}
		total += x
	}
	return NewNumeric(total), nil
}

// fRandom returns a random number in the range [0, n).
func fRandom(_ *Interpreter, args []Value) (Value, error) {
	n, err := NumericValue(args[0])
	if err != nil {
		return nil, err
	}
	return NewNumeric(rand.Float64() * n), nil
}

func fLength(_ *Interpreter, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case *Map:
		return NewNumeric(float64(v.Len())), nil
	case Geometry:
		return NewNumeric(float64(v.Count())), nil
	default:
		return NewNumeric(float64(utf8.RuneCountInString(v.String()))), nil
	}
}

// fSubstr returns part of a string.  The start position is 1-based and
// both the start and the length are clamped to the string.
func fSubstr(_ *Interpreter, args []Value) (Value, error) {
	s := []rune(args[0].String())
	start, err := NumericValue(args[1])
	if err != nil {
		return nil, err
	}
	from := int(math.Floor(start)) - 1
	to := len(s)
	if len(args) > 2 {
		n, err := NumericValue(args[2])
		if err != nil {
			return nil, err
		}
		to = from + int(math.Floor(n))
	}
	from = max(from, 0)
	to = min(to, len(s))
	if from >= to {
		return NewString(""), nil
	}
	return NewString(string(s[from:to])), nil
}

// padArgs extracts the arguments of lpad and rpad.
func padArgs(args []Value) (s []rune, n int, pad string, err error) {
	s = []rune(args[0].String())
	x, err := NumericValue(args[1])
	if err != nil {
		return nil, 0, "", err
	}
	n = max(int(math.Floor(x)), 0)
	pad = " "
	if len(args) > 2 {
		pad = args[2].String()
		if pad == "" {
			pad = " "
		}
	}
	return s, n, pad, nil
}

func padding(pad string, n int) string {
	p := []rune(strings.Repeat(pad, n/utf8.RuneCountInString(pad)+1))
	return string(p[:n])
}

// fLpad pads a string on the left to the given length.  Longer strings
// keep their last characters.
func fLpad(_ *Interpreter, args []Value) (Value, error) {
	s, n, pad, err := padArgs(args)
	if err != nil {
		return nil, err
	}
	if len(s) >= n {
		return NewString(string(s[len(s)-n:])), nil
	}
	return NewString(padding(pad, n-len(s)) + string(s)), nil
}

// fRpad pads a string on the right to the given length.  Longer strings
// keep their first characters.
func fRpad(_ *Interpreter, args []Value) (Value, error) {
	s, n, pad, err := padArgs(args)
	if err != nil {
		return nil, err
	}
	if len(s) >= n {
		return NewString(string(s[:n])), nil
	}
	return NewString(string(s) + padding(pad, n-len(s))), nil
}

func compileRegexp(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errEval("invalid regular expression %q", pattern)
	}
	return re, nil
}

// fMatch returns the 1-based position of the first match of a regular
// expression, or 0 if there is no match.
func fMatch(_ *Interpreter, args []Value) (Value, error) {
	s := args[0].String()
	re, err := compileRegexp(args[1].String())
	if err != nil {
		return nil, err
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return NewNumeric(0), nil
	}
	return NewNumeric(float64(utf8.RuneCountInString(s[:loc[0]]) + 1)), nil
}

func fReplace(_ *Interpreter, args []Value) (Value, error) {
	re, err := compileRegexp(args[1].String())
	if err != nil {
		return nil, err
	}
	return NewString(re.ReplaceAllString(args[0].String(), args[2].String())), nil
}

// fSplit splits a string into a map with keys "1", "2", ...  Without a
// delimiter the string is split at runs of white space.
func fSplit(_ *Interpreter, args []Value) (Value, error) {
	s := args[0].String()
	var parts []string
	if len(args) > 1 && args[1].String() != "" {
		parts = strings.Split(s, args[1].String())
	} else {
		parts = strings.Fields(s)
	}
	m := NewMap()
	for i, part := range parts {
		m.Set(strconv.Itoa(i+1), NewString(part))
	}
	return m, nil
}

func fFormat(_ *Interpreter, args []Value) (Value, error) {
	x, err := NumericValue(args[1])
	if err != nil {
		return nil, err
	}
	return NewString(formatDecimal(args[0].String(), x)), nil
}

// formatDecimal formats x using a pattern like "#,##0.00".
// In the integer part "0" marks a digit which is always shown and ","
// separates groups of digits.  In the fraction part "0" marks a digit
// which is always shown and "#" a digit which is shown if it is not a
// trailing zero.  Text before and after the number pattern is copied.
func formatDecimal(pattern string, x float64) string {
	first := strings.IndexAny(pattern, "#0,.")
	if first < 0 {
		return pattern + FormatNumber(x)
	}
	last := strings.LastIndexAny(pattern, "#0,.")
	prefix, number, suffix := pattern[:first], pattern[first:last+1], pattern[last+1:]

	intPat, fracPat, _ := strings.Cut(number, ".")
	minInt := strings.Count(intPat, "0")
	group := 0
	if k := strings.LastIndexByte(intPat, ','); k >= 0 {
		group = len(intPat) - k - 1
	}
	minFrac := strings.Count(fracPat, "0")
	maxFrac := minFrac + strings.Count(fracPat, "#")

	if math.IsNaN(x) || math.IsInf(x, 0) {
		return prefix + FormatNumber(x) + suffix
	}
	neg := x < 0
	digits := strconv.FormatFloat(math.Abs(x), 'f', maxFrac, 64)
	intDigits, fracDigits, _ := strings.Cut(digits, ".")
	for len(fracDigits) > minFrac && strings.HasSuffix(fracDigits, "0") {
		fracDigits = fracDigits[:len(fracDigits)-1]
	}
	if intDigits == "0" && minInt == 0 {
		intDigits = ""
	}
	for len(intDigits) < minInt {
		intDigits = "0" + intDigits
	}
	if intDigits == "" && fracDigits == "" {
		intDigits = "0"
	}
	if group > 0 {
		var sb strings.Builder
		for i, d := range intDigits {
			if i > 0 && (len(intDigits)-i)%group == 0 {
				sb.WriteByte(',')
			}
			sb.WriteRune(d)
		}
		intDigits = sb.String()
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	if neg && strings.Trim(intDigits+fracDigits, "0,") != "" {
		sb.WriteByte('-')
	}
	sb.WriteString(intDigits)
	if fracDigits != "" {
		sb.WriteByte('.')
		sb.WriteString(fracDigits)
	}
	sb.WriteString(suffix)
	return sb.String()
}

// fInterpolate finds a value in a list of ascending limits paired with
// values, like "0 white 100 blue 1000 black".  Between two limits the
// values are interpolated linearly, either as numbers or as colors.
func fInterpolate(intp *Interpreter, args []Value) (Value, error) {
	tokens := strings.Fields(args[0].String())
	d, err := NumericValue(args[1])
	if err != nil {
		return nil, err
	}
	if len(tokens)%2 != 0 {
		return nil, errEval("missing value after limit %s", tokens[len(tokens)-1])
	}

	lower := math.Inf(-1)
	var lastToken, token string
	for i := 0; i < len(tokens); i += 2 {
		upper, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			return nil, errEval("invalid limit %q", tokens[i])
		}
		if upper <= lower {
			return nil, errEval("limits not in ascending order: %s %s",
				FormatNumber(lower), FormatNumber(upper))
		}
		token = tokens[i+1]
		if d >= lower && d < upper {
			if i == 0 {
				return NewString(token), nil
			}
			f := (d - lower) / (upper - lower)
			return intp.interpolateTokens(lastToken, token, f)
		}
		lower = upper
		lastToken = token
	}
	return NewString(token), nil
}

func (intp *Interpreter) interpolateTokens(a, b string, f float64) (Value, error) {
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return NewNumeric(x + f*(y-x)), nil
	}

	ca, err := intp.namedColor(a)
	if err != nil {
		return nil, err
	}
	cb, err := intp.namedColor(b)
	if err != nil {
		return nil, err
	}
	h1, s1, v1 := rgbToHSB(ca.R, ca.G, ca.B)
	h2, s2, v2 := rgbToHSB(cb.R, cb.G, cb.B)
	r, g, bl := hsbToRGB(h1+f*(h2-h1), s1+f*(s2-s1), v1+f*(v2-v1))
	col := fmt.Sprintf("#%02x%02x%02x",
		uint8(math.Round(r*255)), uint8(math.Round(g*255)), uint8(math.Round(bl*255)))
	return NewString(col), nil
}

// textSize measures text in the current font, in the units of the current
// coordinate system.
func (intp *Interpreter) textSize(text string) (w, h float64) {
	c := intp.Current()
	size := c.font.Size
	if intp.Fonts != nil {
		w, h = intp.Fonts.StringSize(text, c.font.Name, size)
	} else {
		// rough estimate for an average sans serif font
		w = 0.55 * size * float64(utf8.RuneCountInString(text))
		h = size
	}
	return w / c.scaling, h / c.scaling
}

func fStringwidth(intp *Interpreter, args []Value) (Value, error) {
	w, _ := intp.textSize(args[0].String())
	return NewNumeric(w), nil
}

func fStringheight(intp *Interpreter, args []Value) (Value, error) {
	_, h := intp.textSize(args[0].String())
	return NewNumeric(h), nil
}

func fGetenv(_ *Interpreter, args []Value) (Value, error) {
	return NewString(os.Getenv(args[0].String())), nil
}

func fGeometry(_ *Interpreter, args []Value) (Value, error) {
	if g, ok := args[0].(Geometry); ok {
		return g, nil
	}
	g, err := ParseWKT(args[0].String())
	if err != nil {
		return nil, err
	}
	return g, nil
}

// spoolEncodings lists the single byte character sets known to spool.
var spoolEncodings = map[string]*charmap.Charmap{
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"latin9":       charmap.ISO8859_15,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// fSpool returns the contents of a file.  The optional second argument
// may select an encoding, for example "encoding=latin1".  The default is
// UTF-8.
func fSpool(intp *Interpreter, args []Value) (Value, error) {
	if err := intp.checkIO("spool"); err != nil {
		return nil, err
	}
	name := args[0].String()
	charset := "utf-8"
	if len(args) > 1 {
		if enc, ok := ParseExtras(args[1].String())["encoding"]; ok {
			charset = strings.ToLower(enc)
		}
	}
	var dec *encoding.Decoder
	switch charset {
	case "utf-8", "utf8":
	default:
		cm, ok := spoolEncodings[charset]
		if !ok {
			return nil, errEval("unsupported encoding %q", charset)
		}
		dec = cm.NewDecoder()
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, errIO(err, "cannot read %q", name)
	}
	defer f.Close()
	var r io.Reader = f
	if dec != nil {
		r = dec.Reader(f)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errIO(err, "cannot read %q", name)
	}
	return NewString(string(data)), nil
}
