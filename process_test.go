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

package chamberflux

import (
	"testing"
	"time"

	"github.com/fluxlab/chamberflux/chamber"
	"github.com/fluxlab/chamberflux/gas"
)

// dayBucket builds one day of clean ramp samples for instrument 1
// starting at start.
func dayBucket(start int64, n int) *GasData {
	data := NewGasData()
	key := GasKey{Gas: gas.CH4, InstrumentID: 1}
	dt := make([]float64, n)
	y := make([]float64, n)
	diag := make([]int64, n)
	for i := 0; i < n; i++ {
		dt[i] = float64(start + int64(i))
		if i <= 540 {
			y[i] = 400 + 0.1*float64(i)
		} else {
			y[i] = 400 + 0.1*540 - 0.5*float64(i-540)
		}
	}
	data.Datetime[1] = dt
	data.Gas[key] = y
	data.Diag[1] = diag
	data.Instruments[1] = Instrument{ID: 1, Model: Li7810, Serial: "TG10-01169"}
	return data
}

func threeCycleTable(day1, day2, day3 int64) *TimeData {
	return &TimeData{
		ChamberID:    []string{"CH1", "CH2", "CH3"},
		StartTime:    []int64{day1, day2, day3},
		CloseOffset:  []int64{60, 60, 60},
		OpenOffset:   []int64{540, 540, 540},
		EndOffset:    []int64{600, 600, 600},
		SnowDepth:    []float64{0, 0, 0},
		ID:           []int64{1, 2, 3},
		ProjectID:    []int64{1, 1, 1},
		InstrumentID: []int64{1, 1, 1},
	}
}

// Three cycles, the middle day has no gas data: two succeed, the
// middle slot is nil, and one no-data event is delivered.
func TestProcessCyclesMissingDay(t *testing.T) {
	project := testProject()
	day1 := int64(1600000000)
	day2 := day1 + 86400
	day3 := day2 + 86400
	times := threeCycleTable(day1, day2, day3)

	dayKey := func(ts int64) string {
		return time.Unix(ts, 0).UTC().Format("2006-01-02")
	}
	gasByDay := map[string]*GasData{
		dayKey(day1): dayBucket(day1, 601),
		dayKey(day3): dayBucket(day3, 601),
	}

	events := make(chan Event, 32)
	cycles, err := ProcessCycles(times, gasByDay, &MeteoData{}, &HeightData{}, nil, project, events)
	if err != nil {
		t.Fatal(err)
	}

	if len(cycles) != 3 {
		t.Fatalf("length: have %d, want 3", len(cycles))
	}
	if cycles[0] == nil || cycles[2] == nil {
		t.Error("cycles 0 and 2 should succeed")
	}
	if cycles[1] != nil {
		t.Error("cycle 1 should be nil")
	}

	close(events)
	var noData int
	for ev := range events {
		if _, ok := ev.(NoGasDataDayEvent); ok {
			noData++
		}
	}
	if noData != 1 {
		t.Errorf("no-data events: have %d, want 1", noData)
	}

	// Missing meteo falls back to the defaults.
	if cycles[0].AirTemperature != 10 || cycles[0].AirPressure != 1000 {
		t.Errorf("default air state: have (%g, %g), want (10, 1000)",
			cycles[0].AirTemperature, cycles[0].AirPressure)
	}
}

func TestProcessCyclesAttachesEnvironment(t *testing.T) {
	project := testProject()
	day1 := int64(1600000000)
	times := &TimeData{
		ChamberID:    []string{"CH1"},
		StartTime:    []int64{day1},
		CloseOffset:  []int64{60},
		OpenOffset:   []int64{540},
		EndOffset:    []int64{600},
		SnowDepth:    []float64{0.1},
		ID:           []int64{1},
		ProjectID:    []int64{1},
		InstrumentID: []int64{1},
	}
	gasByDay := map[string]*GasData{
		time.Unix(day1, 0).UTC().Format("2006-01-02"): dayBucket(day1, 601),
	}
	meteo := &MeteoData{
		Datetime:    []int64{day1 + 100},
		Temperature: []float64{17.5},
		Pressure:    []float64{995},
	}
	heights := &HeightData{
		Datetime:  []int64{day1 - 3600},
		ChamberID: []string{"CH1"},
		Height:    []float64{0.5},
	}
	chambers := map[string]chamber.Shape{
		"CH1": chamber.Cylinder{RadiusM: 0.3, HeightMVal: 0.4},
	}

	cycles, err := ProcessCycles(times, gasByDay, meteo, heights, chambers, project, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := cycles[0]
	if c == nil {
		t.Fatal("cycle should succeed")
	}
	if c.AirTemperature != 17.5 || c.AirPressure != 995 {
		t.Errorf("air state: have (%g, %g), want (17.5, 995)", c.AirTemperature, c.AirPressure)
	}
	if c.ChamberHeight != 0.5 {
		t.Errorf("chamber height: have %g, want 0.5", c.ChamberHeight)
	}
	if c.Chamber.HeightM() != 0.5 {
		t.Errorf("shape height: have %g, want 0.5", c.Chamber.HeightM())
	}
	if _, ok := c.Chamber.(chamber.Cylinder); !ok {
		t.Errorf("shape: have %T, want Cylinder", c.Chamber)
	}
}

// The chunked driver returns every successful cycle ordered by start
// time and terminates the event stream.
func TestRunProcessingOrdersByStart(t *testing.T) {
	project := testProject()
	day1 := int64(1600000000)
	day2 := day1 + 86400
	day3 := day2 + 86400
	times := threeCycleTable(day3, day2, day1) // deliberately unordered

	dayKey := func(ts int64) string {
		return time.Unix(ts, 0).UTC().Format("2006-01-02")
	}
	gasByDay := map[string]*GasData{
		dayKey(day1): dayBucket(day1, 601),
		dayKey(day2): dayBucket(day2, 601),
		dayKey(day3): dayBucket(day3, 601),
	}

	events := make(chan Event, 64)
	cycles := RunProcessing(times, gasByDay, &MeteoData{}, &HeightData{}, nil, project, events)

	if len(cycles) != 3 {
		t.Fatalf("length: have %d, want 3", len(cycles))
	}
	var prev int64
	for i, c := range cycles {
		if c == nil {
			t.Fatalf("cycle %d is nil", i)
		}
		if ts := c.Timing.StartTs(); ts < prev {
			t.Errorf("cycle %d out of order: %d after %d", i, ts, prev)
		} else {
			prev = ts
		}
	}

	close(events)
	var done, progress int
	for ev := range events {
		switch ev.(type) {
		case DoneEvent:
			done++
		case ProgressEvent:
			progress++
		}
	}
	if done != 1 {
		t.Errorf("done events: have %d, want 1", done)
	}
	if progress == 0 {
		t.Error("expected progress events")
	}
}

func TestRunProcessingEmptyInput(t *testing.T) {
	events := make(chan Event, 8)
	cycles := RunProcessing(&TimeData{}, nil, &MeteoData{}, &HeightData{}, nil, testProject(), events)
	if cycles != nil {
		t.Errorf("have %d cycles, want none", len(cycles))
	}
	close(events)
	var errored bool
	for ev := range events {
		if _, ok := ev.(ErrorEvent); ok {
			errored = true
		}
	}
	if !errored {
		t.Error("expected an error event")
	}
}
