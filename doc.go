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

// Package chamberflux computes greenhouse-gas fluxes from
// closed-chamber measurements. An instrument samples air inside a
// chamber while it closes, equilibrates and re-opens over a timed
// cycle; the rate of change of concentration inside the chamber
// yields the flux of that gas from the surface underneath.
//
// The central type is Cycle: it owns the timing anchors of one
// measurement run, the per-channel sample series, the selected
// calculation window, the three competing regression fits, and a
// quality state machine. Cycles are built from raw data tables by
// CycleBuilder, initialized and fitted by ProcessCycles, and driven
// interactively through the mutation methods, each of which keeps the
// timing invariants and the fitted fluxes consistent.
package chamberflux

// Tuning constants shared with downstream consumers of the stored
// results. The values are part of the interop contract.
const (
	// MinWindowSize is the smallest calculation window the best-r
	// search will consider, in seconds.
	MinWindowSize = 180.

	// WindowIncrement is the step of the moving window search, in
	// samples.
	WindowIncrement = 1

	// R2MainGasThreshold is the measurement-r² below which the main
	// gas marks the cycle LowR.
	R2MainGasThreshold = 0.98

	// MissingValidRatio and MissingLenRatio bound how much of the
	// expected sample count may be missing before the cycle is marked
	// TooFewMeasurements.
	MissingValidRatio = 0.70
	MissingLenRatio   = 0.99

	// MeteoNearestMax is how far away, in seconds, a meteorology
	// reading may be and still be attached to a cycle.
	MeteoNearestMax = 1800

	// PeakSearchWindow is the half-width, in samples, of the
	// peak-near-timestamp lag search.
	PeakSearchWindow = 5

	// MaxConcurrentTasks bounds how many cycle chunks are processed
	// at once.
	MaxConcurrentTasks = 10

	// minLagSearchPoints is the fewest samples the open-lag search
	// will operate on (two minutes at 1 Hz).
	minLagSearchPoints = 120

	// gapThreshold is the sample spacing, in seconds, above which the
	// series is considered to have a gap.
	gapThreshold = 1.0
)
