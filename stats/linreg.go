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

// Package stats holds the numeric kernels of the flux engine: ordinary,
// polynomial and Huber-robust regression, Pearson correlation, and the
// fit-quality metrics the flux models report.
package stats

// LinReg is an ordinary least-squares line y = Intercept + Slope·x.
type LinReg struct {
	Intercept float64
	Slope     float64
}

// FitLin fits an ordinary least-squares line to (x, y). Empty or
// mismatched input yields the zero line and input with no x variance a
// flat line at the mean of y, rather than an error; the flux models
// apply their own guards.
func FitLin(x, y []float64) LinReg {
	n := len(x)
	if n == 0 || n != len(y) {
		return LinReg{}
	}
	var xMean, yMean float64
	for i := 0; i < n; i++ {
		xMean += x[i]
		yMean += y[i]
	}
	xMean /= float64(n)
	yMean /= float64(n)

	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - xMean
		sxx += dx * dx
		sxy += dx * (y[i] - yMean)
	}
	if sxx == 0 {
		return LinReg{Intercept: yMean}
	}
	slope := sxy / sxx
	return LinReg{Intercept: yMean - slope*xMean, Slope: slope}
}

// Predict evaluates the line at x.
func (l LinReg) Predict(x float64) float64 {
	return l.Intercept + l.Slope*x
}
