/*
Copyright © 2025 the chamberflux authors.
This file is part of chamberflux.

chamberflux is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

chamberflux is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with chamberflux.  If not, see <http://www.gnu.org/licenses/>.
*/

package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	chamberflux "github.com/fluxlab/chamberflux"
	"github.com/fluxlab/chamberflux/chamber"
	"github.com/fluxlab/chamberflux/gas"
)

// QueryCycles reads the cycle definitions of a project between start
// and end, ordered by start time.
func (s *Store) QueryCycles(ctx context.Context, project chamberflux.Project, start, end time.Time) (*chamberflux.TimeData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(ctx, `
		SELECT chamber_id, start_time, close_offset, open_offset, end_offset,
		       snow_depth, id, instrument_link, project_link
		FROM cycles
		WHERE start_time BETWEEN $1 AND $2 AND project_link = $3
		ORDER BY start_time`,
		start.Unix(), end.Unix(), project.ID)
	if err != nil {
		return nil, fmt.Errorf("store: querying cycles: %w", err)
	}
	defer rows.Close()

	times := &chamberflux.TimeData{}
	for rows.Next() {
		var chamberID string
		var startTime, closeOffset, openOffset, endOffset, id, instrumentID, projectID int64
		var snowDepth float64
		if err := rows.Scan(&chamberID, &startTime, &closeOffset, &openOffset,
			&endOffset, &snowDepth, &id, &instrumentID, &projectID); err != nil {
			return nil, err
		}
		times.ChamberID = append(times.ChamberID, chamberID)
		times.StartTime = append(times.StartTime, startTime)
		times.CloseOffset = append(times.CloseOffset, closeOffset)
		times.OpenOffset = append(times.OpenOffset, openOffset)
		times.EndOffset = append(times.EndOffset, endOffset)
		times.SnowDepth = append(times.SnowDepth, snowDepth)
		times.ID = append(times.ID, id)
		times.InstrumentID = append(times.InstrumentID, instrumentID)
		times.ProjectID = append(times.ProjectID, projectID)
	}
	return times, rows.Err()
}

// InstrumentsByProject reads the project's instruments keyed by ID.
func (s *Store) InstrumentsByProject(ctx context.Context, projectID int64) (map[int64]chamberflux.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instrumentsLocked(ctx, projectID)
}

func (s *Store) instrumentsLocked(ctx context.Context, projectID int64) (map[int64]chamberflux.Instrument, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, instrument_model, instrument_serial
		FROM instruments WHERE project_link = $1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: querying instruments: %w", err)
	}
	defer rows.Close()

	instruments := make(map[int64]chamberflux.Instrument)
	for rows.Next() {
		var id int64
		var modelStr, serial string
		if err := rows.Scan(&id, &modelStr, &serial); err != nil {
			return nil, err
		}
		model, err := chamberflux.ParseInstrumentModel(modelStr)
		if err != nil {
			return nil, err
		}
		instruments[id] = chamberflux.Instrument{ID: id, Model: model, Serial: serial}
	}
	return instruments, rows.Err()
}

// QueryChambers reads the project's chamber geometries.
func (s *Store) QueryChambers(ctx context.Context, projectID int64) (map[string]chamber.Shape, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chambersLocked(ctx, projectID)
}

func (s *Store) chambersLocked(ctx context.Context, projectID int64) (map[string]chamber.Shape, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT chamber_id, shape, radius_m, width_m, length_m, height_m
		FROM chambers WHERE project_link = $1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: querying chambers: %w", err)
	}
	defer rows.Close()

	shapes := make(map[string]chamber.Shape)
	for rows.Next() {
		var id, kind string
		var radius, width, length, height float64
		if err := rows.Scan(&id, &kind, &radius, &width, &length, &height); err != nil {
			return nil, err
		}
		switch kind {
		case "cylinder":
			shapes[id] = chamber.Cylinder{RadiusM: radius, HeightMVal: height}
		case "box":
			shapes[id] = chamber.Box{WidthM: width, LengthM: length, HeightMVal: height}
		default:
			return nil, fmt.Errorf("store: chamber %s: unknown shape %q", id, kind)
		}
	}
	return shapes, rows.Err()
}

// QueryMeteo reads the meteorology table for a project and range.
func (s *Store) QueryMeteo(ctx context.Context, projectID int64, start, end time.Time) (*chamberflux.MeteoData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(ctx, `
		SELECT datetime, temperature, pressure FROM meteo
		WHERE project_link = $1 AND datetime BETWEEN $2 AND $3
		ORDER BY datetime`, projectID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("store: querying meteo: %w", err)
	}
	defer rows.Close()

	meteo := &chamberflux.MeteoData{}
	for rows.Next() {
		var ts int64
		var temperature, pressure float64
		if err := rows.Scan(&ts, &temperature, &pressure); err != nil {
			return nil, err
		}
		meteo.Datetime = append(meteo.Datetime, ts)
		meteo.Temperature = append(meteo.Temperature, temperature)
		meteo.Pressure = append(meteo.Pressure, pressure)
	}
	return meteo, rows.Err()
}

// QueryHeights reads the chamber-height table for a project.
func (s *Store) QueryHeights(ctx context.Context, projectID int64) (*chamberflux.HeightData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(ctx, `
		SELECT datetime, chamber_id, height FROM heights
		WHERE project_link = $1 ORDER BY datetime`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: querying heights: %w", err)
	}
	defer rows.Close()

	heights := &chamberflux.HeightData{}
	for rows.Next() {
		var ts int64
		var chamberID string
		var height float64
		if err := rows.Scan(&ts, &chamberID, &height); err != nil {
			return nil, err
		}
		heights.Datetime = append(heights.Datetime, ts)
		heights.ChamberID = append(heights.ChamberID, chamberID)
		heights.Height = append(heights.Height, height)
	}
	return heights, rows.Err()
}

// QueryGasByDay reads the raw samples of a range bucketed by local
// day, the shape the batch orchestrator consumes.
func (s *Store) QueryGasByDay(ctx context.Context, project chamberflux.Project, start, end time.Time) (map[string]*chamberflux.GasData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	instruments, err := s.instrumentsLocked(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, `
		SELECT datetime, instrument_link, gas, value, diag
		FROM gas
		WHERE project_link = $1 AND datetime BETWEEN $2 AND $3
		ORDER BY instrument_link, datetime`,
		project.ID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("store: querying gas samples: %w", err)
	}
	defer rows.Close()

	loc := project.Location()
	byDay := make(map[string]*chamberflux.GasData)
	// A (day, instrument) pair appends one timestamp per distinct
	// sample; the per-gas value rows of one sample share it.
	lastTs := make(map[string]map[int64]int64)

	for rows.Next() {
		var ts, instrumentID, diag int64
		var gasInt int16
		var value sql.NullFloat64
		if err := rows.Scan(&ts, &instrumentID, &gasInt, &value, &diag); err != nil {
			return nil, err
		}
		g, err := gas.FromInt(int64(gasInt))
		if err != nil {
			return nil, err
		}

		day := time.Unix(ts, 0).In(loc).Format("2006-01-02")
		bucket, ok := byDay[day]
		if !ok {
			bucket = chamberflux.NewGasData()
			bucket.Instruments = instruments
			byDay[day] = bucket
			lastTs[day] = make(map[int64]int64)
		}

		if prev, ok := lastTs[day][instrumentID]; !ok || prev != ts {
			bucket.Datetime[instrumentID] = append(bucket.Datetime[instrumentID], float64(ts))
			bucket.Diag[instrumentID] = append(bucket.Diag[instrumentID], diag)
			lastTs[day][instrumentID] = ts
		}

		key := chamberflux.GasKey{Gas: g, InstrumentID: instrumentID}
		v := nan
		if value.Valid {
			v = value.Float64
		}
		bucket.Gas[key] = append(bucket.Gas[key], v)
	}
	return byDay, rows.Err()
}

// GasSamples implements chamberflux.SampleSource: it returns the raw
// samples of a time range merged into one bucket, letting a cycle
// re-slice its window after a lag change.
func (s *Store) GasSamples(start, end time.Time, projectID int64) (*chamberflux.GasData, error) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()

	instruments, err := s.instrumentsLocked(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, `
		SELECT datetime, instrument_link, gas, value, diag
		FROM gas
		WHERE project_link = $1 AND datetime BETWEEN $2 AND $3
		ORDER BY instrument_link, datetime`,
		projectID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("store: querying gas samples: %w", err)
	}
	defer rows.Close()

	data := chamberflux.NewGasData()
	data.Instruments = instruments
	lastTs := make(map[int64]int64)

	for rows.Next() {
		var ts, instrumentID, diag int64
		var gasInt int16
		var value sql.NullFloat64
		if err := rows.Scan(&ts, &instrumentID, &gasInt, &value, &diag); err != nil {
			return nil, err
		}
		g, err := gas.FromInt(int64(gasInt))
		if err != nil {
			return nil, err
		}
		if prev, ok := lastTs[instrumentID]; !ok || prev != ts {
			data.Datetime[instrumentID] = append(data.Datetime[instrumentID], float64(ts))
			data.Diag[instrumentID] = append(data.Diag[instrumentID], diag)
			lastTs[instrumentID] = ts
		}
		key := chamberflux.GasKey{Gas: g, InstrumentID: instrumentID}
		v := nan
		if value.Valid {
			v = value.Float64
		}
		data.Gas[key] = append(data.Gas[key], v)
	}
	return data, rows.Err()
}

var nan = math.NaN()
