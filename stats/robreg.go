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

package stats

import (
	"errors"
	"math"
	"sort"
)

// Tuning of the robust fit. The values are part of the interop
// contract and must not drift.
const (
	// HuberK is the Huber ψ bandwidth.
	HuberK = 1.0
	// IRLSMaxIter is the number of reweighting iterations.
	IRLSMaxIter = 10
	// TrimFraction is the share of points dropped from each residual
	// tail when seeding the robust fit.
	TrimFraction = 0.10
)

// ErrDegenerate reports input a robust line cannot be fitted to:
// too few points, non-finite values, or no x variance.
var ErrDegenerate = errors.New("stats: degenerate input for robust fit")

// RobReg is a robust line y = Intercept + Slope·x fitted with
// iteratively-reweighted least squares under a Huber ψ-function.
type RobReg struct {
	Intercept float64
	Slope     float64
}

// Predict evaluates the line at x.
func (r RobReg) Predict(x float64) float64 {
	return r.Intercept + r.Slope*x
}

// FitRob fits a robust line to (x, y). k is the Huber bandwidth and
// maxIter the number of IRLS iterations. The seed comes from a
// trimmed OLS fit; each iteration rescales residuals by their MAD,
// weights them with the Huber function, and re-solves the weighted
// normal equations.
func FitRob(x, y []float64, k float64, maxIter int) (RobReg, error) {
	if len(x) != len(y) || len(x) < 2 {
		return RobReg{}, ErrDegenerate
	}

	// Normalize x for numerical stability.
	x0 := x[0]
	xn := make([]float64, len(x))
	for i, xi := range x {
		xn[i] = xi - x0
	}

	slope, intercept, err := trimmedOLS(xn, y, TrimFraction)
	if err != nil {
		return RobReg{}, err
	}

	for iter := 0; iter < maxIter; iter++ {
		residuals := make([]float64, len(y))
		for i := range y {
			residuals[i] = y[i] - (intercept + slope*xn[i])
		}
		scale := MAD(residuals)
		if scale == 0 {
			break // already an exact fit
		}

		weights := make([]float64, len(residuals))
		var wSum float64
		for i, r := range residuals {
			weights[i] = HuberWeight(r/scale, k)
			wSum += weights[i]
		}

		var xwMean, ywMean float64
		for i := range xn {
			xwMean += xn[i] * weights[i]
			ywMean += y[i] * weights[i]
		}
		xwMean /= wSum
		ywMean /= wSum

		var sxxW, sxyW float64
		for i := range xn {
			dx := xn[i] - xwMean
			sxxW += weights[i] * dx * dx
			sxyW += weights[i] * dx * (y[i] - ywMean)
		}
		if math.Abs(sxxW) < 1e-12 {
			return RobReg{}, ErrDegenerate
		}

		slope = sxyW / sxxW
		intercept = ywMean - slope*xwMean
	}

	return RobReg{Intercept: intercept - slope*x0, Slope: slope}, nil
}

// trimmedOLS seeds the robust fit: an OLS fit, then a refit with the
// largest- and smallest-residual tails removed.
func trimmedOLS(x, y []float64, trimFrac float64) (slope, intercept float64, err error) {
	n := len(x)
	if n != len(y) || n < 3 {
		return 0, 0, ErrDegenerate
	}
	if trimFrac < 0 || trimFrac >= 0.5 {
		return 0, 0, ErrDegenerate
	}
	for i := 0; i < n; i++ {
		if !isFinite(x[i]) || !isFinite(y[i]) {
			return 0, 0, ErrDegenerate
		}
	}

	s, a, ok := ols(x, y)
	if !ok {
		return 0, 0, ErrDegenerate
	}

	type point struct {
		x, y, resid float64
	}
	pts := make([]point, n)
	for i := 0; i < n; i++ {
		pts[i] = point{x: x[i], y: y[i], resid: math.Abs(y[i] - (a + s*x[i]))}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].resid < pts[j].resid })

	trimN := int(math.Floor(float64(n) * trimFrac))
	if trimN*2 >= n {
		return 0, 0, ErrDegenerate
	}
	trimmed := pts[trimN : n-trimN]
	if len(trimmed) < 2 {
		return 0, 0, ErrDegenerate
	}

	xs := make([]float64, len(trimmed))
	ys := make([]float64, len(trimmed))
	for i, p := range trimmed {
		xs[i] = p.x
		ys[i] = p.y
	}
	s, a, ok = ols(xs, ys)
	if !ok {
		return 0, 0, ErrDegenerate
	}
	return s, a, nil
}

func ols(x, y []float64) (slope, intercept float64, ok bool) {
	n := float64(len(x))
	var xMean, yMean float64
	for i := range x {
		xMean += x[i]
		yMean += y[i]
	}
	xMean /= n
	yMean /= n

	var sxx, sxy float64
	for i := range x {
		dx := x[i] - xMean
		sxx += dx * dx
		sxy += dx * (y[i] - yMean)
	}
	if math.Abs(sxx) < 1e-12 {
		return 0, 0, false
	}
	slope = sxy / sxx
	return slope, yMean - slope*xMean, true
}

// MAD is the median absolute deviation scaled to be consistent with
// the standard deviation of a normal distribution.
func MAD(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	med := median(v)
	dev := make([]float64, len(v))
	for i, x := range v {
		dev[i] = math.Abs(x - med)
	}
	return 1.4826 * median(dev)
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// HuberWeight is the Huber ψ weight for a scaled residual u: 1 inside
// the bandwidth, k/|u| outside.
func HuberWeight(u, k float64) float64 {
	a := math.Abs(u)
	if a <= k {
		return 1
	}
	return k / a
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
