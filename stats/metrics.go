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
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Pearson returns the correlation coefficient of (x, y). ok is false
// for mismatched lengths, empty input, or zero variance in either
// variable.
func Pearson(x, y []float64) (r float64, ok bool) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, false
	}
	var xMean, yMean float64
	for i := 0; i < n; i++ {
		xMean += x[i]
		yMean += y[i]
	}
	xMean /= float64(n)
	yMean /= float64(n)

	var sxx, syy, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - xMean
		dy := y[i] - yMean
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}

// R2 returns the coefficient of determination of predictions yHat
// against observations y. ok is false when the total sum of squares is
// zero or fewer than two points are given.
func R2(y, yHat []float64) (r2 float64, ok bool) {
	n := len(y)
	if n < 2 || n != len(yHat) {
		return 0, false
	}
	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		d := y[i] - yHat[i]
		ssRes += d * d
		t := y[i] - yMean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0, false
	}
	return 1 - ssRes/ssTot, true
}

// AdjustedR2 penalizes r² for the number of predictors k. With too few
// points to adjust it returns r² unchanged.
func AdjustedR2(r2 float64, n, k int) float64 {
	if n <= k+1 {
		return r2
	}
	return 1 - (1-r2)*float64(n-1)/float64(n-k-1)
}

// RMSE is the root mean squared error of yHat against y. ok is false
// for empty or mismatched input.
func RMSE(y, yHat []float64) (rmse float64, ok bool) {
	n := len(y)
	if n == 0 || n != len(yHat) {
		return 0, false
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := y[i] - yHat[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n)), true
}

// AICFromRSS is the Akaike information criterion for a model with k
// parameters and residual sum of squares rss over n points. A
// non-positive rss yields +Inf so a degenerate fit never wins a model
// comparison.
func AICFromRSS(rss float64, n, k int) float64 {
	if rss <= 0 || n == 0 {
		return math.Inf(1)
	}
	return float64(n)*math.Log(rss/float64(n)) + 2*float64(k)
}

// TPValue is the two-sided p-value of a t-statistic with df degrees of
// freedom.
func TPValue(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - dist.CDF(math.Abs(t)))
}
