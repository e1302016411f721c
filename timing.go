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
	"time"
)

// CycleTiming is the sole authority for every time anchor of one
// cycle: the absolute start, the close/open/end offsets, the four lag
// corrections, and the per-gas deadbands and calculation windows.
// Callers never write endpoints directly. The window setters clamp
// against the current bounds; after a lag or deadband change the owner
// calls AdjustCalcRangeAll or AdjustCalcRangeAllDeadband, which restore
// the invariants
//
//	start ≤ adjusted close ≤ adjusted open ≤ end
//	adjusted close + deadband ≤ calc start < calc end ≤ adjusted open
//	calc end − calc start ≥ min calc length
type CycleTiming struct {
	startTime time.Time

	closeOffset int64 // seconds since start
	openOffset  int64
	endOffset   int64

	startLag float64 // seconds
	closeLag float64
	openLag  float64
	endLag   float64

	minCalcLen float64

	deadband  map[GasKey]float64
	calcStart map[GasKey]float64
	calcEnd   map[GasKey]float64
}

// NewCycleTiming builds timing from a cycle definition row. All lags
// start at zero; calculation windows are placed when gases are added.
func NewCycleTiming(start time.Time, closeOffset, openOffset, endOffset int64, minCalcLen float64) CycleTiming {
	return CycleTiming{
		startTime:   start,
		closeOffset: closeOffset,
		openOffset:  openOffset,
		endOffset:   endOffset,
		minCalcLen:  minCalcLen,
		deadband:    make(map[GasKey]float64),
		calcStart:   make(map[GasKey]float64),
		calcEnd:     make(map[GasKey]float64),
	}
}

// StartTime is the cycle's scheduled start in its local zone.
func (t *CycleTiming) StartTime() time.Time { return t.startTime }

// StartTs is the scheduled start as epoch seconds.
func (t *CycleTiming) StartTs() int64 { return t.startTime.Unix() }

// Start is the lag-corrected start of the sample window.
func (t *CycleTiming) Start() float64 { return float64(t.StartTs()) + t.startLag }

// End is the lag-corrected end of the sample window.
func (t *CycleTiming) End() float64 {
	return float64(t.StartTs()+t.endOffset) + t.endLag
}

// AdjustedClose is the lag-corrected chamber-close time; the
// measurement window begins here.
func (t *CycleTiming) AdjustedClose() float64 {
	return float64(t.StartTs()+t.closeOffset) + t.closeLag + t.openLag
}

// AdjustedOpen is the lag-corrected chamber-open time; the measurement
// window ends here.
func (t *CycleTiming) AdjustedOpen() float64 {
	return float64(t.StartTs()+t.openOffset) + t.openLag
}

// MeasurementStart and MeasurementEnd delimit the closed-chamber
// measurement window.
func (t *CycleTiming) MeasurementStart() float64 { return t.AdjustedClose() }
func (t *CycleTiming) MeasurementEnd() float64   { return t.AdjustedOpen() }

func (t *CycleTiming) CloseOffset() int64  { return t.closeOffset }
func (t *CycleTiming) OpenOffset() int64   { return t.openOffset }
func (t *CycleTiming) EndOffset() int64    { return t.endOffset }
func (t *CycleTiming) StartLag() float64   { return t.startLag }
func (t *CycleTiming) CloseLag() float64   { return t.closeLag }
func (t *CycleTiming) OpenLag() float64    { return t.openLag }
func (t *CycleTiming) EndLag() float64     { return t.endLag }
func (t *CycleTiming) MinCalcLen() float64 { return t.minCalcLen }

// Lag setters. Start and end lags shift the sample window itself, so
// the owning cycle reloads raw samples after changing them.
func (t *CycleTiming) SetStartLag(v float64)       { t.startLag = v }
func (t *CycleTiming) SetEndLag(v float64)         { t.endLag = v }
func (t *CycleTiming) SetCloseLag(v float64)       { t.closeLag = v }
func (t *CycleTiming) SetOpenLag(v float64)        { t.openLag = v }
func (t *CycleTiming) IncrementStartLag(d float64) { t.startLag += d }
func (t *CycleTiming) IncrementEndLag(d float64)   { t.endLag += d }
func (t *CycleTiming) IncrementCloseLag(d float64) { t.closeLag += d }
func (t *CycleTiming) IncrementOpenLag(d float64)  { t.openLag += d }

// Deadband returns the equilibration deadband of a gas in seconds.
func (t *CycleTiming) Deadband(key GasKey) float64 { return t.deadband[key] }

// SetDeadband sets a gas's deadband, clamped at zero. Callers follow
// with AdjustCalcRangeAllDeadband.
func (t *CycleTiming) SetDeadband(key GasKey, v float64) {
	if v < 0 {
		v = 0
	}
	t.deadband[key] = v
}

// SetDeadbandConstantCalc shifts every gas's deadband and calculation
// window by delta, keeping the window's position relative to the
// deadband end constant.
func (t *CycleTiming) SetDeadbandConstantCalc(gases []GasKey, delta float64) {
	for _, key := range gases {
		db := t.deadband[key] + delta
		if db < 0 {
			db = 0
		}
		t.deadband[key] = db
		t.calcStart[key] += delta
		t.calcEnd[key] += delta
	}
}

// CalcStart and CalcEnd return a gas's calculation window endpoints
// as epoch seconds.
func (t *CycleTiming) CalcStart(key GasKey) float64 { return t.calcStart[key] }
func (t *CycleTiming) CalcEnd(key GasKey) float64   { return t.calcEnd[key] }

// CalcRange is the window width in seconds.
func (t *CycleTiming) CalcRange(key GasKey) float64 {
	w := t.calcEnd[key] - t.calcStart[key]
	if w < 0 {
		return 0
	}
	return w
}

// SetCalcStart moves the window's left edge, clamped so the window
// stays inside [adjusted close + deadband, calc end − min length].
func (t *CycleTiming) SetCalcStart(key GasKey, v float64) {
	lo := t.AdjustedClose() + t.deadband[key]
	hi := t.calcEnd[key] - t.minCalcLen
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	t.calcStart[key] = v
}

// SetCalcEnd moves the window's right edge, clamped so the window
// stays inside [calc start + min length, adjusted open].
func (t *CycleTiming) SetCalcEnd(key GasKey, v float64) {
	lo := t.calcStart[key] + t.minCalcLen
	hi := t.AdjustedOpen()
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	t.calcEnd[key] = v
}

// DragLeftTo translates the whole window so its left edge lands at
// newStart, preserving the window length and staying inside the
// allowed range.
func (t *CycleTiming) DragLeftTo(key GasKey, newStart float64) {
	width := t.calcEnd[key] - t.calcStart[key]
	lo := t.AdjustedClose() + t.deadband[key]
	hi := t.AdjustedOpen() - width
	if newStart < lo {
		newStart = lo
	}
	if newStart > hi {
		newStart = hi
	}
	t.calcStart[key] = newStart
	t.calcEnd[key] = newStart + width
}

// CalcAreaCanMove reports whether the window has room on either side.
func (t *CycleTiming) CalcAreaCanMove(key GasKey) bool {
	return t.calcStart[key] > t.AdjustedClose()+t.deadband[key] ||
		t.calcEnd[key] < t.AdjustedOpen()
}

// setCalcWindow places a window without clamping; callers restore the
// invariants afterwards through the adjust methods.
func (t *CycleTiming) setCalcWindow(key GasKey, start, end float64) {
	t.calcStart[key] = start
	t.calcEnd[key] = end
}

// RestoreCalcWindow places a window exactly as persisted, bypassing
// the clamps. Only rehydration uses it; stored windows already honor
// the invariants.
func (t *CycleTiming) RestoreCalcWindow(key GasKey, start, end float64) {
	t.setCalcWindow(key, start, end)
}

// RestoreLags sets all four lags exactly as persisted.
func (t *CycleTiming) RestoreLags(startLag, closeLag, openLag, endLag float64) {
	t.startLag = startLag
	t.closeLag = closeLag
	t.openLag = openLag
	t.endLag = endLag
}

// AdjustCalcRangeAll restores the calculation-window invariants after
// a lag change. When the measurement window itself has become too
// short for the minimum window length, the close lag is moved back by
// exactly the deficit. This and AdjustCalcRangeAllDeadband are the only
// places the close lag changes implicitly.
func (t *CycleTiming) AdjustCalcRangeAll(gases []GasKey) {
	t.adjustCalcRanges(gases, false)
}

// AdjustCalcRangeAllDeadband is AdjustCalcRangeAll for deadband
// changes: the deadband shrinks by the deficit first, and only once it
// reaches zero does the close lag take the remainder.
func (t *CycleTiming) AdjustCalcRangeAllDeadband(gases []GasKey) {
	t.adjustCalcRanges(gases, true)
}

func (t *CycleTiming) adjustCalcRanges(gases []GasKey, deadbandAbsorbs bool) {
	for _, key := range gases {
		rangeMin := t.AdjustedClose() + t.deadband[key]
		rangeMax := t.AdjustedOpen()

		if rangeMax-rangeMin < t.minCalcLen {
			deficit := t.minCalcLen - (rangeMax - rangeMin)
			if deadbandAbsorbs {
				db := t.deadband[key] - deficit
				if db < 0 {
					// Deadband exhausted; the close lag takes the rest.
					t.closeLag += db
					db = 0
				}
				t.deadband[key] = db
			} else {
				t.closeLag -= deficit
			}
			rangeMin = t.AdjustedClose() + t.deadband[key]
			rangeMax = t.AdjustedOpen()
		}

		s, e := t.calcStart[key], t.calcEnd[key]
		if s < rangeMin {
			s = rangeMin
		}
		if e > rangeMax {
			e = rangeMax
		}
		if e < s {
			e = s
		}

		if e-s < t.minCalcLen {
			// Expand symmetrically, then asymmetrically against
			// whichever bound has room left.
			need := t.minCalcLen - (e - s)
			s -= need / 2
			e += need / 2
			if s < rangeMin {
				e += rangeMin - s
				s = rangeMin
			}
			if e > rangeMax {
				s -= e - rangeMax
				e = rangeMax
			}
			if s < rangeMin {
				s = rangeMin
			}
		}

		t.calcStart[key] = s
		t.calcEnd[key] = e
	}
}

// Validate checks every timing invariant and returns the first
// violation found.
func (t *CycleTiming) Validate(gases []GasKey) error {
	if !(t.Start() <= t.AdjustedClose()) {
		return fmt.Errorf("chamberflux: start %.1f after adjusted close %.1f", t.Start(), t.AdjustedClose())
	}
	if !(t.AdjustedClose() <= t.AdjustedOpen()) {
		return fmt.Errorf("chamberflux: adjusted close %.1f after adjusted open %.1f", t.AdjustedClose(), t.AdjustedOpen())
	}
	if !(t.AdjustedOpen() <= t.End()) {
		return fmt.Errorf("chamberflux: adjusted open %.1f after end %.1f", t.AdjustedOpen(), t.End())
	}
	for _, key := range gases {
		s, e := t.calcStart[key], t.calcEnd[key]
		if lo := t.AdjustedClose() + t.deadband[key]; s < lo-timeEps {
			return fmt.Errorf("chamberflux: %v calc start %.1f before deadband end %.1f", key, s, lo)
		}
		if s >= e {
			return fmt.Errorf("chamberflux: %v empty calc window [%.1f, %.1f]", key, s, e)
		}
		if e > t.AdjustedOpen()+timeEps {
			return fmt.Errorf("chamberflux: %v calc end %.1f after adjusted open %.1f", key, e, t.AdjustedOpen())
		}
		if e-s < t.minCalcLen-timeEps {
			return fmt.Errorf("chamberflux: %v calc window %.1f s shorter than minimum %.1f s", key, e-s, t.minCalcLen)
		}
	}
	return nil
}

// timeEps absorbs float rounding when comparing second-resolution
// anchors.
const timeEps = 1e-9
