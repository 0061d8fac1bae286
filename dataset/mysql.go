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
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/mapscript"
)

// MySQL is a dataset holding the result of an SQL query.
type MySQL struct {
	db     *sql.DB
	rows   *sql.Rows
	fields []string
}

// mysqlConfig builds the connection settings from the extras.  The
// settings "host", "port", "user", "password" and "database" default to
// the environment variables MAPSCRIPT_DB_HOST, MAPSCRIPT_DB_PORT, and so on.
func mysqlConfig(extras string) *mysql.Config {
	opts := mapscript.ParseExtras(extras)
	get := func(key, env, def string) string {
		if v, ok := opts[key]; ok {
			return v
		}
		if v, ok := os.LookupEnv(env); ok {
			return v
		}
		return def
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = get("host", "MAPSCRIPT_DB_HOST", "localhost") + ":" +
		get("port", "MAPSCRIPT_DB_PORT", "3306")
	cfg.User = get("user", "MAPSCRIPT_DB_USER", "")
	cfg.Passwd = get("password", "MAPSCRIPT_DB_PASS", "")
	cfg.DBName = get("database", "MAPSCRIPT_DB_NAME", "")
	return cfg
}

// OpenMySQL runs an SQL query.  Each row of the result is a record, with
// the column names as field names.
func OpenMySQL(query, extras string) (*MySQL, error) {
	cfg := mysqlConfig(extras)
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(query)
	if err != nil {
		db.Close()
		return nil, err
	}
	fields, err := rows.Columns()
	if err != nil {
		rows.Close()
		db.Close()
		return nil, err
	}
	return &MySQL{db: db, rows: rows, fields: fields}, nil
}

// FetchRow implements the [mapscript.Dataset] interface.  Columns holding
// numbers give numeric values, NULL gives the empty string.
func (m *MySQL) FetchRow() (mapscript.Row, error) {
	if !m.rows.Next() {
		if err := m.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	cols := make([]sql.NullString, len(m.fields))
	ptrs := make([]any, len(cols))
	for i := range cols {
		ptrs[i] = &cols[i]
	}
	if err := m.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("cannot read row: %w", err)
	}

	row := make(mapscript.Row, len(cols))
	for i, col := range cols {
		row[i] = columnValue(col)
	}
	return row, nil
}

func columnValue(col sql.NullString) mapscript.Value {
	if !col.Valid {
		return mapscript.NewString("")
	}
	if x, err := strconv.ParseFloat(col.String, 64); err == nil {
		return mapscript.NewNumeric(x)
	}
	return mapscript.NewString(col.String)
}

// FieldNames implements the [mapscript.Dataset] interface.
func (m *MySQL) FieldNames() []string {
	return m.fields
}

// Projection implements the [mapscript.Dataset] interface.
func (m *MySQL) Projection() string {
	return ""
}

// WorldExtent implements the [mapscript.Dataset] interface.
func (m *MySQL) WorldExtent() rect.Rect {
	return wholeWorld
}

// Close implements the [mapscript.Dataset] interface.
func (m *MySQL) Close() error {
	err := m.rows.Close()
	if dbErr := m.db.Close(); err == nil {
		err = dbErr
	}
	return err
}
