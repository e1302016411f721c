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
	"runtime"
	"sync"

	"github.com/fluxlab/chamberflux/stats"
)

// candidate is one (start, width) window under evaluation.
type candidate struct {
	start, width int
}

// BestWindow scans every sub-window of (dt, y) at least minWindow
// samples wide, stepping start and width by step, and returns the
// window with the largest |r| of time against concentration. Windows
// containing a gap (gaps[i] marks a gap between samples i and i+1)
// are rejected. found is false when every candidate was rejected.
//
// The scan fans candidates across the available processors and
// reduces by larger-|r|-wins.
func BestWindow(dt, y []float64, gaps []bool, minWindow, step int) (start, end int, r float64, found bool) {
	n := len(y)
	if n < minWindow || len(dt) != n || step < 1 {
		return 0, 0, 0, false
	}

	jobs := make(chan candidate, 256)
	go func() {
		for width := minWindow; width <= n; width += step {
			for s := 0; s+width <= n; s += step {
				jobs <- candidate{start: s, width: width}
			}
		}
		close(jobs)
	}()

	type result struct {
		start, end int
		r          float64
		found      bool
	}

	nprocs := runtime.GOMAXPROCS(0)
	results := make(chan result, nprocs)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func() {
			defer wg.Done()
			best := result{}
			for c := range jobs {
				e := c.start + c.width
				if hasGap(gaps, c.start, e) {
					continue
				}
				rw, ok := stats.Pearson(dt[c.start:e], y[c.start:e])
				if !ok {
					rw = 0
				}
				if !best.found || math.Abs(rw) > math.Abs(best.r) {
					best = result{start: c.start, end: e, r: rw, found: true}
				}
			}
			results <- best
		}()
	}
	wg.Wait()
	close(results)

	var best result
	for res := range results {
		if !res.found {
			continue
		}
		if !best.found || math.Abs(res.r) > math.Abs(best.r) {
			best = res
		}
	}
	return best.start, best.end, best.r, best.found
}

// hasGap reports whether the half-open sample range [start, end)
// crosses a gap.
func hasGap(gaps []bool, start, end int) bool {
	last := end - 1
	if last > len(gaps) {
		last = len(gaps)
	}
	for i := start; i < last; i++ {
		if gaps[i] {
			return true
		}
	}
	return false
}
