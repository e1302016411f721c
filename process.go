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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fluxlab/chamberflux/chamber"
)

// ProcessCycles builds and initializes one cycle per row of times.
// The result has exactly one entry per row; rows that could not be
// processed (no gas data that day, no instrument coverage) come back
// nil with a progress event, and never abort the batch. Only a
// malformed cycle definition (missing required fields) is an error.
func ProcessCycles(times *TimeData, gasByDay map[string]*GasData, meteo *MeteoData,
	heights *HeightData, chambers map[string]chamber.Shape, project Project,
	events chan<- Event) ([]*Cycle, error) {

	loc := project.Location()
	cycles := make([]*Cycle, 0, times.Len())

	for i := 0; i < times.Len(); i++ {
		start := time.Unix(times.StartTime[i], 0).In(loc)
		day := start.Format("2006-01-02")

		cycle, err := NewCycleBuilder().
			ChamberID(times.ChamberID[i]).
			StartTime(start).
			CloseOffset(times.CloseOffset[i]).
			OpenOffset(times.OpenOffset[i]).
			EndOffset(times.EndOffset[i]).
			SnowDepth(times.SnowDepth[i]).
			InstrumentID(times.InstrumentID[i]).
			Project(project).
			MinCalcLen(project.MinCalcLen).
			ID(times.ID[i]).
			Build()
		if err != nil {
			return nil, fmt.Errorf("chamberflux: building cycle %d: %w", i, err)
		}

		dayData, ok := gasByDay[day]
		if !ok {
			Emit(events, NoGasDataDayEvent{Day: day})
			cycles = append(cycles, nil)
			continue
		}

		if !attachSamples(cycle, dayData, times.StartTime[i], times.EndOffset[i]) {
			Emit(events, NoGasDataEvent{Msg: fmt.Sprintf("%s, ID: %s", start, times.ChamberID[i])})
			cycles = append(cycles, nil)
			continue
		}

		cycle.MainGas = project.MainGas
		cycle.MainInstrument = project.MainInstrument

		target := times.StartTime[i] + times.CloseOffset[i]
		temperature, pressure, ok := meteo.GetNearest(target)
		if !ok {
			temperature, pressure = 10, 1000
		}
		cycle.AirTemperature = temperature
		cycle.AirPressure = pressure

		if shape, ok := chambers[times.ChamberID[i]]; ok {
			cycle.Chamber = shape
		}
		cycle.Chamber = cycle.Chamber.WithSnowHeight(times.SnowDepth[i])
		if h, ok := heights.NearestPrevious(target, times.ChamberID[i]); ok {
			cycle.ChamberHeight = h
			cycle.Chamber = cycle.Chamber.WithHeight(h)
		} else {
			cycle.ChamberHeight = cycle.Chamber.HeightM()
		}

		for _, key := range cycle.Gases {
			cycle.Timing.SetDeadband(key, project.Deadband)
		}
		cycle.Init(project.Mode, project.Deadband)
		cyclesProcessed.Inc()
		cycles = append(cycles, cycle)
	}

	return cycles, nil
}

// attachSamples slices the day's raw data down to the cycle's sample
// window for every instrument whose coverage spans it. It reports
// whether any instrument contributed data.
func attachSamples(cycle *Cycle, dayData *GasData, start, endOffset int64) bool {
	found := false

	for id, datetimes := range dayData.Datetime {
		if len(datetimes) == 0 ||
			float64(start) < datetimes[0] ||
			float64(start+endOffset) > datetimes[len(datetimes)-1] {
			continue
		}

		si := sort.SearchFloat64s(datetimes, float64(start))
		ei := sort.SearchFloat64s(datetimes, float64(start+endOffset))
		if ei <= si {
			continue
		}

		cycle.DtV[id] = append([]float64(nil), datetimes[si:ei]...)
		if diags, ok := dayData.Diag[id]; ok && len(diags) >= ei {
			cycle.DiagV[id] = append([]int64(nil), diags[si:ei]...)
		}
		if inst, ok := dayData.Instruments[id]; ok {
			cycle.Instrument = inst
		}

		instModel := cycle.Instrument.Model
		if inst, ok := dayData.Instruments[id]; ok {
			instModel = inst.Model
		}
		for key, values := range dayData.Gas {
			if key.InstrumentID != id || len(values) < ei {
				continue
			}
			ch, ok := instModel.Channel(key.Gas)
			if !ok {
				continue
			}
			cycle.Channels[key] = ch
			cycle.GasV[key] = append([]float64(nil), values[si:ei]...)
		}

		found = true
	}

	if found {
		cycle.Gases = cycle.Gases[:0]
		for key := range cycle.GasV {
			cycle.Gases = append(cycle.Gases, key)
		}
		sort.Slice(cycle.Gases, func(i, j int) bool {
			a, b := cycle.Gases[i], cycle.Gases[j]
			if a.InstrumentID != b.InstrumentID {
				return a.InstrumentID < b.InstrumentID
			}
			return a.Gas < b.Gas
		})
	}
	return found
}

// RunProcessing drives ProcessCycles over the whole table in chunks
// of roughly one hundredth of the rows, keeping at most
// MaxConcurrentTasks chunks in flight. A progress event follows every
// completed chunk and a final DoneEvent closes the stream. The
// returned slice is ordered by cycle start time, with failed rows as
// trailing nils.
func RunProcessing(times *TimeData, gasByDay map[string]*GasData, meteo *MeteoData,
	heights *HeightData, chambers map[string]chamber.Shape, project Project,
	events chan<- Event) []*Cycle {

	if times.Len() == 0 || len(gasByDay) == 0 {
		Emit(events, ErrorEvent{Msg: "no data available"})
		return nil
	}

	total := times.Len()
	chunks := times.Chunk()
	results := make([][]*Cycle, len(chunks))

	sem := make(chan struct{}, MaxConcurrentTasks)
	var wg sync.WaitGroup
	loc := project.Location()

	for i, chunk := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, chunk *TimeData) {
			defer wg.Done()
			defer func() { <-sem }()

			// Each chunk only sees the day buckets it needs.
			chunkDays := make(map[string]*GasData)
			for _, ts := range chunk.StartTime {
				day := time.Unix(ts, 0).In(loc).Format("2006-01-02")
				if data, ok := gasByDay[day]; ok {
					chunkDays[day] = data
				}
			}

			cycles, err := ProcessCycles(chunk, chunkDays, meteo, heights, chambers, project, events)
			if err != nil {
				Emit(events, ErrorEvent{Msg: err.Error()})
				cyclesFailed.Add(float64(chunk.Len()))
				results[i] = make([]*Cycle, chunk.Len())
				Emit(events, ProgressEvent{Done: 0, Total: total})
				return
			}
			results[i] = cycles

			var done int
			for _, c := range cycles {
				if c != nil {
					done++
				}
			}
			Emit(events, ProgressEvent{Done: done, Total: total})
		}(i, chunk)
	}
	wg.Wait()

	var all []*Cycle
	for _, chunk := range results {
		all = append(all, chunk...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Timing.StartTs() < b.Timing.StartTs()
		}
	})

	Emit(events, DoneEvent{})
	return all
}
