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

package aggregate

import (
	"errors"
	"time"

	"github.com/aaronlmathis/aerodw/core"
)

// Source field names.
const (
	FieldAircraft           = "aircraftregistration"
	FieldScheduledDeparture = "scheduleddeparture"
	FieldScheduledArrival   = "scheduledarrival"
	FieldActualDeparture    = "actualdeparture"
	FieldActualArrival      = "actualarrival"
	FieldCancelled          = "cancelled"
	FieldProgrammed         = "programmed"
	FieldReportingDate      = "reportingdate"
	FieldReporteurID        = "reporteurid"
	FieldReporteurClass     = "reporteurclass"

	FieldRegistration = "registration"
	FieldModel        = "model"
	FieldManufacturer = "manufacturer"
	FieldAirport      = "airport"
)

// Reporteur classes counted separately in reportage usage.
const (
	ClassMAREP = "MAREP"
	ClassPIREP = "PIREP"
)

// Flight is a decoded AIMS flight record. A flight with either actual
// timestamp missing did not fly.
type Flight struct {
	Aircraft           string
	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	ActualDeparture    *time.Time
	ActualArrival      *time.Time
	CancelledFlag      bool
}

// Cancelled reports whether the flight counts as cancelled.
func (f Flight) Cancelled() bool {
	return f.CancelledFlag || f.ActualDeparture == nil || f.ActualArrival == nil
}

// DecodeFlight decodes a flight record. The aircraft and the scheduled
// departure are required.
func DecodeFlight(r core.Record) (Flight, error) {
	var f Flight
	var err error
	if f.Aircraft, err = r.String(FieldAircraft); err != nil {
		return f, err
	}
	if f.ScheduledDeparture, err = r.Time(FieldScheduledDeparture); err != nil {
		return f, err
	}
	if f.ScheduledArrival, _, err = r.OptionalTime(FieldScheduledArrival); err != nil {
		return f, err
	}
	if f.ActualDeparture, err = optionalTime(r, FieldActualDeparture); err != nil {
		return f, err
	}
	if f.ActualArrival, err = optionalTime(r, FieldActualArrival); err != nil {
		return f, err
	}
	if f.CancelledFlag, err = optionalBool(r, FieldCancelled); err != nil {
		return f, err
	}
	return f, nil
}

// Maintenance is a decoded AIMS maintenance slot.
type Maintenance struct {
	Aircraft           string
	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	Programmed         bool
}

// DecodeMaintenance decodes a maintenance record. Both scheduled timestamps
// are required.
func DecodeMaintenance(r core.Record) (Maintenance, error) {
	var m Maintenance
	var err error
	if m.Aircraft, err = r.String(FieldAircraft); err != nil {
		return m, err
	}
	if m.ScheduledDeparture, err = r.Time(FieldScheduledDeparture); err != nil {
		return m, err
	}
	if m.ScheduledArrival, err = r.Time(FieldScheduledArrival); err != nil {
		return m, err
	}
	if m.Programmed, err = optionalBool(r, FieldProgrammed); err != nil {
		return m, err
	}
	return m, nil
}

// Report is a decoded AMOS post-flight report. Class is empty when the
// source gave none.
type Report struct {
	Aircraft      string
	ReportingDate time.Time
	ReporteurID   string
	Class         string
}

// DecodeReport decodes a post-flight report record.
func DecodeReport(r core.Record) (Report, error) {
	var p Report
	var err error
	if p.Aircraft, err = r.String(FieldAircraft); err != nil {
		return p, err
	}
	if p.ReportingDate, err = r.Time(FieldReportingDate); err != nil {
		return p, err
	}
	if p.ReporteurID, err = r.String(FieldReporteurID); err != nil {
		return p, err
	}
	if p.Class, err = optionalString(r, FieldReporteurClass); err != nil {
		return p, err
	}
	return p, nil
}

func optionalTime(r core.Record, field string) (*time.Time, error) {
	t, ok, err := r.OptionalTime(field)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

// optionalBool reads an absent field as false.
func optionalBool(r core.Record, field string) (bool, error) {
	b, err := r.Bool(field)
	if errors.Is(err, core.ErrMissingField) {
		return false, nil
	}
	return b, err
}

func optionalString(r core.Record, field string) (string, error) {
	s, err := r.String(field)
	if errors.Is(err, core.ErrMissingField) {
		return "", nil
	}
	return s, err
}
