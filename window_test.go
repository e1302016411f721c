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
	"math"
	"testing"
)

// noise is a tiny deterministic generator for test series.
func noise(seed *uint64) float64 {
	*seed = *seed*6364136223846793005 + 1442695040888963407
	return float64(*seed>>11) / float64(1<<53)
}

// The gap-fenced ramp is the only admissible window and must be
// returned exactly.
func TestBestWindowFindsRamp(t *testing.T) {
	n := 400
	dt := make([]float64, n)
	y := make([]float64, n)
	gaps := make([]bool, n-1)
	seed := uint64(7)
	for i := 0; i < n; i++ {
		dt[i] = float64(i)
		if i >= 100 && i < 300 {
			y[i] = float64(i)
		} else {
			y[i] = 50 * noise(&seed)
		}
	}
	gaps[99] = true
	gaps[299] = true

	start, end, r, found := BestWindow(dt, y, gaps, 200, 1)
	if !found {
		t.Fatal("expected a window")
	}
	if start != 100 || end != 300 {
		t.Errorf("window: have [%d, %d), want [100, 300)", start, end)
	}
	if math.Abs(r-1) > 1e-9 {
		t.Errorf("r: have %g, want 1", r)
	}
}

// No returned window may cross a gap.
func TestBestWindowNeverCrossesGap(t *testing.T) {
	n := 400
	dt := make([]float64, n)
	y := make([]float64, n)
	gaps := make([]bool, n-1)
	for i := 0; i < n; i++ {
		offset := 0.
		if i >= 200 {
			offset = 5 // a five-second hole in the record
		}
		dt[i] = float64(i) + offset
		y[i] = float64(i)
		if i > 0 {
			gaps[i-1] = dt[i]-dt[i-1] > 1
		}
	}

	start, end, _, found := BestWindow(dt, y, gaps, 180, 1)
	if !found {
		t.Fatal("expected a window")
	}
	if start < 200 && end > 200 {
		t.Errorf("window [%d, %d) crosses the gap at 200", start, end)
	}
}

// A descending series wins on |r|, not r.
func TestBestWindowUsesAbsoluteR(t *testing.T) {
	n := 300
	dt := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		dt[i] = float64(i)
		y[i] = -float64(i)
	}
	gaps := make([]bool, n-1)

	_, _, r, found := BestWindow(dt, y, gaps, 180, 1)
	if !found {
		t.Fatal("expected a window")
	}
	if math.Abs(r+1) > 1e-9 {
		t.Errorf("r: have %g, want -1", r)
	}
}

func TestBestWindowTooShort(t *testing.T) {
	dt := []float64{0, 1, 2}
	y := []float64{1, 2, 3}
	if _, _, _, found := BestWindow(dt, y, []bool{false, false}, 180, 1); found {
		t.Error("series shorter than the minimum window must not match")
	}
}

func TestBestWindowAllGapped(t *testing.T) {
	n := 200
	dt := make([]float64, n)
	y := make([]float64, n)
	gaps := make([]bool, n-1)
	for i := 0; i < n; i++ {
		dt[i] = float64(i)
		y[i] = float64(i)
	}
	for i := range gaps {
		gaps[i] = true
	}
	if _, _, _, found := BestWindow(dt, y, gaps, 180, 1); found {
		t.Error("every window contains a gap; none must be returned")
	}
}
