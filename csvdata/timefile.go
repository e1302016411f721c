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

// Package csvdata parses cycle-definition CSV files into the table
// form the engine consumes. Two layouts are supported: the standard
// export with one fully-specified cycle per row, and the manual
// field-campaign format whose header rows carry the date, measurement
// length and instrument shared by every cycle in the file.
package csvdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	chamberflux "github.com/fluxlab/chamberflux"
)

// ParseTimeFile parses the standard cycle layout:
//
//	chamber_id, start_time, close_offset, open_offset, end_offset
//
// with a header row and local timestamps formatted
// "2006-01-02 15:04:05" in tz. Unreadable rows fail the whole file.
func ParseTimeFile(r io.Reader, tz *time.Location, project chamberflux.Project, instrumentID int64) (*chamberflux.TimeData, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1

	times := &chamberflux.TimeData{}
	first := true
	for rowIdx := 0; ; rowIdx++ {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvdata: reading row %d: %w", rowIdx+1, err)
		}
		if first {
			first = false // header
			continue
		}
		if len(record) < 5 {
			return nil, fmt.Errorf("csvdata: row %d: expected at least 5 columns, got %d", rowIdx+1, len(record))
		}

		t, err := time.ParseInLocation("2006-01-02 15:04:05", record[1], tz)
		if err != nil {
			return nil, fmt.Errorf("csvdata: row %d: parsing timestamp %q: %w", rowIdx+1, record[1], err)
		}

		times.ChamberID = append(times.ChamberID, record[0])
		times.StartTime = append(times.StartTime, t.Unix())
		times.CloseOffset = append(times.CloseOffset, parseInt(record[2]))
		times.OpenOffset = append(times.OpenOffset, parseInt(record[3]))
		times.EndOffset = append(times.EndOffset, parseInt(record[4]))
		times.SnowDepth = append(times.SnowDepth, 0)
		times.ID = append(times.ID, 0)
		times.ProjectID = append(times.ProjectID, project.ID)
		times.InstrumentID = append(times.InstrumentID, instrumentID)
	}

	if times.Len() == 0 {
		return nil, fmt.Errorf("csvdata: no valid cycle rows found")
	}
	return times, nil
}

// ParseCampaignFile parses the manual field-campaign layout. The
// first four rows carry, in their second column: the date as YYMMDD,
// the measurement length in seconds, the instrument model, and the
// instrument serial. A header row follows, then one row per cycle:
//
//	chamber_id, HHMM, snow_depth_cm
//
// Start times are set one minute before the recorded time; each cycle
// closes after 60 s and opens after the measurement length. Rows with
// unparseable times are skipped; the events channel reports them.
func ParseCampaignFile(r io.Reader, tz *time.Location, project chamberflux.Project,
	instrumentID int64, events chan<- chamberflux.Event) (*chamberflux.TimeData, chamberflux.Instrument, error) {

	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1

	var instrument chamberflux.Instrument
	instrument.ID = instrumentID

	readSecond := func() (string, error) {
		record, err := rdr.Read()
		if err != nil {
			return "", err
		}
		if len(record) < 2 {
			return "", fmt.Errorf("csvdata: expected two columns in header row")
		}
		return record[1], nil
	}

	dateStr, err := readSecond()
	if err != nil {
		return nil, instrument, err
	}
	date, err := time.ParseInLocation("060102", dateStr, tz)
	if err != nil {
		return nil, instrument, fmt.Errorf("csvdata: parsing first row %q as YYMMDD: %w", dateStr, err)
	}

	lengthStr, err := readSecond()
	if err != nil {
		return nil, instrument, err
	}
	measurementTime := parseInt(lengthStr)

	modelStr, err := readSecond()
	if err != nil {
		return nil, instrument, err
	}
	model, err := chamberflux.ParseInstrumentModel(modelStr)
	if err != nil {
		return nil, instrument, err
	}
	instrument.Model = model

	serial, err := readSecond()
	if err != nil {
		return nil, instrument, err
	}
	if serial == "" {
		return nil, instrument, fmt.Errorf("csvdata: instrument serial field is empty")
	}
	instrument.Serial = serial

	// Skip the header row before the data.
	if _, err := rdr.Read(); err != nil {
		return nil, instrument, err
	}

	times := &chamberflux.TimeData{}
	for rowIdx := 6; ; rowIdx++ {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			chamberflux.Emit(events, chamberflux.ReadFileFailEvent{
				Msg: fmt.Sprintf("failed to read row %d: %v", rowIdx, err),
			})
			continue
		}
		if len(record) < 2 {
			continue
		}

		clock, err := time.ParseInLocation("1504", record[1], tz)
		if err != nil {
			chamberflux.Emit(events, chamberflux.ReadFileFailEvent{
				Msg: fmt.Sprintf("failed to parse time on row %d: %q", rowIdx, record[1]),
			})
			continue
		}
		start := time.Date(date.Year(), date.Month(), date.Day(),
			clock.Hour(), clock.Minute(), 0, 0, tz).Unix() - 60

		var snow float64
		if len(record) > 2 {
			if v, err := strconv.ParseFloat(record[2], 64); err == nil {
				snow = v / 100 // cm → m
			}
		}

		times.ChamberID = append(times.ChamberID, record[0])
		times.StartTime = append(times.StartTime, start)
		times.CloseOffset = append(times.CloseOffset, 60)
		times.OpenOffset = append(times.OpenOffset, measurementTime+60)
		times.EndOffset = append(times.EndOffset, measurementTime+120)
		times.SnowDepth = append(times.SnowDepth, snow)
		times.ID = append(times.ID, 0)
		times.ProjectID = append(times.ProjectID, project.ID)
		times.InstrumentID = append(times.InstrumentID, instrumentID)
	}

	return times, instrument, nil
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
