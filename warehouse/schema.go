//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of AeroDW.
//
// AeroDW is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AeroDW is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with AeroDW. If not, see https://www.gnu.org/licenses/.

package warehouse

import (
	"fmt"
	"strings"
)

// Column describes one warehouse column.
type Column struct {
	Name    string
	SQLType string
	// Decimal marks DECIMAL(10, 2) measures; sinks round them to Scale digits.
	Decimal bool
	Scale   int32
}

// TableSpec describes one warehouse table: its key columns and all columns in
// storage order.
type TableSpec struct {
	Name      string
	Keys      []string
	Columns   []Column
	Dimension bool
}

// ColumnNames returns the column names in storage order.
func (t TableSpec) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Measures returns the non-key column names.
func (t TableSpec) Measures() []string {
	keys := make(map[string]bool, len(t.Keys))
	for _, k := range t.Keys {
		keys[k] = true
	}
	var out []string
	for _, c := range t.Columns {
		if !keys[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column returns the column with the given name.
func (t TableSpec) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CreateSQL renders the CREATE TABLE statement for the table.
func (t TableSpec) CreateSQL() string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", c.Name, c.SQLType))
	}
	defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(t.Keys, ", ")))
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.Name, strings.Join(defs, ", "))
}

func varchar(name string) Column { return Column{Name: name, SQLType: "VARCHAR"} }
func integer(name string) Column { return Column{Name: name, SQLType: "INTEGER"} }
func decimal(name string) Column {
	return Column{Name: name, SQLType: "DECIMAL(10, 2)", Decimal: true, Scale: 2}
}

// LoadOrder lists the tables with dimensions ahead of the facts that reference them.
var LoadOrder = []string{
	TableDays,
	TableMonths,
	TableAircrafts,
	TableReporteurs,
	TableDailyUsage,
	TableMonthlyUsage,
	TableReportageUsage,
}

// Schema maps each table name to its spec.
var Schema = map[string]TableSpec{
	TableDays: {
		Name:      TableDays,
		Keys:      []string{"day_id"},
		Columns:   []Column{varchar("day_id"), integer("day"), varchar("month_id")},
		Dimension: true,
	},
	TableMonths: {
		Name:      TableMonths,
		Keys:      []string{"month_id"},
		Columns:   []Column{varchar("month_id"), integer("month"), integer("year")},
		Dimension: true,
	},
	TableAircrafts: {
		Name:      TableAircrafts,
		Keys:      []string{"registration"},
		Columns:   []Column{varchar("registration"), varchar("model"), varchar("manufacturer")},
		Dimension: true,
	},
	TableReporteurs: {
		Name:      TableReporteurs,
		Keys:      []string{"reporteur_uid"},
		Columns:   []Column{varchar("reporteur_uid"), varchar("airport"), varchar("role")},
		Dimension: true,
	},
	TableDailyUsage: {
		Name: TableDailyUsage,
		Keys: []string{"registration", "day_id"},
		Columns: []Column{
			varchar("registration"), varchar("day_id"),
			decimal("fh"), integer("tos"), integer("sto"),
		},
	},
	TableMonthlyUsage: {
		Name: TableMonthlyUsage,
		Keys: []string{"registration", "month_id"},
		Columns: []Column{
			varchar("registration"), varchar("month_id"),
			integer("dy"), integer("cn"), decimal("dh"),
			decimal("ados"), decimal("adoss"), decimal("adosu"), decimal("adis"),
		},
	},
	TableReportageUsage: {
		Name: TableReportageUsage,
		Keys: []string{"registration", "month_id", "reporteur_uid"},
		Columns: []Column{
			varchar("registration"), varchar("month_id"), varchar("reporteur_uid"),
			integer("reps"), integer("mareps"), integer("pireps"),
		},
	},
}

// Spec returns the spec of a table by name.
func Spec(name string) (TableSpec, error) {
	spec, ok := Schema[name]
	if !ok {
		return TableSpec{}, fmt.Errorf("unknown warehouse table %q", name)
	}
	return spec, nil
}
