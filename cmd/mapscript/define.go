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

package main

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"seehuhn.de/go/mapscript"
)

// evalDefine evaluates a command line definition of the form NAME=EXPR.
// The expression may use env("NAME") to read environment variables.
func evalDefine(def string) (string, mapscript.Value, error) {
	name, source, ok := strings.Cut(def, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid definition %q, expected NAME=EXPR", def)
	}
	env := map[string]any{
		"env": os.Getenv,
	}
	out, err := expr.Eval(source, env)
	if err != nil {
		return "", nil, fmt.Errorf("definition of %s: %w", name, err)
	}
	return name, toValue(out), nil
}

// toValue converts the result of an expression.  Lists become maps with
// keys counting from 1.
func toValue(x any) mapscript.Value {
	switch x := x.(type) {
	case nil:
		return mapscript.NewString("")
	case string:
		return mapscript.NewString(x)
	case bool:
		if x {
			return mapscript.NewNumeric(1)
		}
		return mapscript.NewNumeric(0)
	}

	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return mapscript.NewNumeric(float64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return mapscript.NewNumeric(float64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		return mapscript.NewNumeric(v.Float())
	case reflect.Slice, reflect.Array:
		m := mapscript.NewMap()
		for i := range v.Len() {
			m.Set(strconv.Itoa(i+1), toValue(v.Index(i).Interface()))
		}
		return m
	case reflect.Map:
		m := mapscript.NewMap()
		iter := v.MapRange()
		for iter.Next() {
			m.Set(fmt.Sprint(iter.Key().Interface()), toValue(iter.Value().Interface()))
		}
		return m
	default:
		return mapscript.NewString(fmt.Sprint(x))
	}
}
