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

import "github.com/aaronlmathis/aerodw/core"

// Package warehouse defines the rows of the AeroDW star schema and the
// structures the transform stage materializes them into.
//
// All keys are natural keys derived from source identifiers; no surrogate keys
// are generated here.

// Table names, as expected by the load stage.
const (
	TableDays           = "days"
	TableMonths         = "months"
	TableAircrafts      = "aircrafts"
	TableReporteurs     = "reporteurs"
	TableDailyUsage     = "daily_usage"
	TableMonthlyUsage   = "monthly_usage"
	TableReportageUsage = "reportage_usage"
)

// Day is a row of the days dimension.
type Day struct {
	DayID   string `db:"day_id" json:"day_id"`
	Day     int    `db:"day" json:"day"`
	MonthID string `db:"month_id" json:"month_id"`
}

// Month is a row of the months dimension.
type Month struct {
	MonthID string `db:"month_id" json:"month_id"`
	Month   int    `db:"month" json:"month"`
	Year    int    `db:"year" json:"year"`
}

// Aircraft is a row of the aircrafts dimension. It comes entirely from the
// reference feed.
type Aircraft struct {
	Registration string `db:"registration" json:"registration"`
	Model        string `db:"model" json:"model"`
	Manufacturer string `db:"manufacturer" json:"manufacturer"`
}

// Reporteur is a row of the reporteurs dimension. Airport is nil when the
// reporteur was first seen in a report; Role is nil until a report names it.
type Reporteur struct {
	ReporteurUID string  `db:"reporteur_uid" json:"reporteur_uid"`
	Airport      *string `db:"airport" json:"airport"`
	Role         *string `db:"role" json:"role"`
}

// DailyKey is the grain of DailyUsage.
type DailyKey struct {
	Registration string
	DayID        string
}

// MonthlyKey is the grain of MonthlyUsage.
type MonthlyKey struct {
	Registration string
	MonthID      string
}

// ReportageKey is the grain of ReportageUsage.
type ReportageKey struct {
	Registration string
	MonthID      string
	ReporteurUID string
}

// DailyUsage accumulates flight hours, takeoffs and scheduled takeoffs per
// aircraft and day.
type DailyUsage struct {
	Registration string  `db:"registration" json:"registration"`
	DayID        string  `db:"day_id" json:"day_id"`
	FH           float64 `db:"fh" json:"fh"`
	TOs          int     `db:"tos" json:"tos"`
	STO          int     `db:"sto" json:"sto"`
}

// MonthlyUsage accumulates delays, cancellations and out-of-service time per
// aircraft and month. ADIS starts at the nominal month length.
type MonthlyUsage struct {
	Registration string  `db:"registration" json:"registration"`
	MonthID      string  `db:"month_id" json:"month_id"`
	DY           int     `db:"dy" json:"dy"`
	CN           int     `db:"cn" json:"cn"`
	DH           float64 `db:"dh" json:"dh"`
	ADOS         float64 `db:"ados" json:"ados"`
	ADOSS        float64 `db:"adoss" json:"adoss"`
	ADOSU        float64 `db:"adosu" json:"adosu"`
	ADIS         float64 `db:"adis" json:"adis"`
}

// ReportageUsage counts reports per aircraft, month and reporteur.
type ReportageUsage struct {
	Registration string `db:"registration" json:"registration"`
	MonthID      string `db:"month_id" json:"month_id"`
	ReporteurUID string `db:"reporteur_uid" json:"reporteur_uid"`
	Reps         int    `db:"reps" json:"reps"`
	MAReps       int    `db:"mareps" json:"mareps"`
	PIReps       int    `db:"pireps" json:"pireps"`
}

// Record converts the row into a core.Record.
func (d Day) Record() core.Record {
	return core.Record{"day_id": d.DayID, "day": d.Day, "month_id": d.MonthID}
}

// Record converts the row into a core.Record.
func (m Month) Record() core.Record {
	return core.Record{"month_id": m.MonthID, "month": m.Month, "year": m.Year}
}

// Record converts the row into a core.Record.
func (a Aircraft) Record() core.Record {
	return core.Record{"registration": a.Registration, "model": a.Model, "manufacturer": a.Manufacturer}
}

// Record converts the row into a core.Record. Unknown airport or role become nil.
func (r Reporteur) Record() core.Record {
	return core.Record{
		"reporteur_uid": r.ReporteurUID,
		"airport":       nullable(r.Airport),
		"role":          nullable(r.Role),
	}
}

// Record converts the row into a core.Record.
func (u DailyUsage) Record() core.Record {
	return core.Record{
		"registration": u.Registration,
		"day_id":       u.DayID,
		"fh":           u.FH,
		"tos":          u.TOs,
		"sto":          u.STO,
	}
}

// Record converts the row into a core.Record.
func (u MonthlyUsage) Record() core.Record {
	return core.Record{
		"registration": u.Registration,
		"month_id":     u.MonthID,
		"dy":           u.DY,
		"cn":           u.CN,
		"dh":           u.DH,
		"ados":         u.ADOS,
		"adoss":        u.ADOSS,
		"adosu":        u.ADOSU,
		"adis":         u.ADIS,
	}
}

// Record converts the row into a core.Record.
func (u ReportageUsage) Record() core.Record {
	return core.Record{
		"registration":  u.Registration,
		"month_id":      u.MonthID,
		"reporteur_uid": u.ReporteurUID,
		"reps":          u.Reps,
		"mareps":        u.MAReps,
		"pireps":        u.PIReps,
	}
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
