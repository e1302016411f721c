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

// The external data tables the engine consumes. They mirror the
// relational store row-for-row but live in memory as
// struct-of-arrays, which keeps the batch orchestrator free of
// database access.

// TimeData is the cycle definition table: one entry per planned
// chamber cycle.
type TimeData struct {
	ChamberID    []string
	StartTime    []int64 // epoch seconds UTC
	CloseOffset  []int64 // seconds since start
	OpenOffset   []int64
	EndOffset    []int64
	SnowDepth    []float64 // meters
	ID           []int64
	ProjectID    []int64
	InstrumentID []int64
}

// Len is the number of cycle rows.
func (t *TimeData) Len() int { return len(t.StartTime) }

// ValidateLengths reports whether all column vectors are the same
// length.
func (t *TimeData) ValidateLengths() bool {
	n := t.Len()
	return len(t.ChamberID) == n && len(t.CloseOffset) == n &&
		len(t.OpenOffset) == n && len(t.EndOffset) == n &&
		len(t.SnowDepth) == n && len(t.ID) == n &&
		len(t.ProjectID) == n && len(t.InstrumentID) == n
}

// Chunk splits the table into pieces of n/100 rows (at least one row
// each) for concurrent processing; the last piece takes the remainder.
func (t *TimeData) Chunk() []*TimeData {
	n := t.Len()
	if n == 0 {
		return nil
	}
	size := n / 100
	if size < 1 {
		size = 1
	}
	var chunks []*TimeData
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		chunks = append(chunks, &TimeData{
			ChamberID:    t.ChamberID[i:end],
			StartTime:    t.StartTime[i:end],
			CloseOffset:  t.CloseOffset[i:end],
			OpenOffset:   t.OpenOffset[i:end],
			EndOffset:    t.EndOffset[i:end],
			SnowDepth:    t.SnowDepth[i:end],
			ID:           t.ID[i:end],
			ProjectID:    t.ProjectID[i:end],
			InstrumentID: t.InstrumentID[i:end],
		})
	}
	return chunks
}

// GasData holds one day of raw instrument samples. Timestamps and
// diagnostics are keyed by instrument, concentrations by (gas,
// instrument). Missing concentrations are NaN.
type GasData struct {
	Datetime    map[int64][]float64 // epoch seconds, ascending
	Gas         map[GasKey][]float64
	Diag        map[int64][]int64
	Instruments map[int64]Instrument
}

// NewGasData returns an empty day bucket.
func NewGasData() *GasData {
	return &GasData{
		Datetime:    make(map[int64][]float64),
		Gas:         make(map[GasKey][]float64),
		Diag:        make(map[int64][]int64),
		Instruments: make(map[int64]Instrument),
	}
}

// MeteoData is the meteorology table: timestamps with air temperature
// [°C] and pressure [hPa], ascending by time.
type MeteoData struct {
	Datetime    []int64
	Temperature []float64
	Pressure    []float64
}

// GetNearest returns the reading closest to target, rejecting matches
// further than MeteoNearestMax seconds away.
func (m *MeteoData) GetNearest(target int64) (temperature, pressure float64, ok bool) {
	n := len(m.Datetime)
	if n == 0 {
		return 0, 0, false
	}

	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if m.Datetime[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	best := -1
	var bestDiff int64
	for _, i := range []int{lo - 1, lo} {
		if i < 0 || i >= n {
			continue
		}
		diff := m.Datetime[i] - target
		if diff < 0 {
			diff = -diff
		}
		if best == -1 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best == -1 || bestDiff > MeteoNearestMax {
		return 0, 0, false
	}
	return m.Temperature[best], m.Pressure[best], true
}

// HeightData is the chamber-height table: per-chamber height
// measurements over time.
type HeightData struct {
	Datetime  []int64
	ChamberID []string
	Height    []float64 // meters
}

// NearestPrevious returns the latest height measured for the chamber
// at or before target.
func (h *HeightData) NearestPrevious(target int64, chamberID string) (height float64, ok bool) {
	best := -1
	for i, ts := range h.Datetime {
		if h.ChamberID[i] != chamberID || ts > target {
			continue
		}
		if best == -1 || ts > h.Datetime[best] {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return h.Height[best], true
}
