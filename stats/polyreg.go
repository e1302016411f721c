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

	"gonum.org/v1/gonum/mat"
)

// ErrSingular reports that the polynomial design matrix has no unique
// solution.
var ErrSingular = errors.New("stats: singular design matrix")

// PolyReg is a quadratic y = A0 + A1·x + A2·x².
type PolyReg struct {
	A0, A1, A2 float64
}

// FitPoly fits a three-coefficient polynomial to (x, y) by solving the
// normal equations. It returns ErrSingular when the design matrix is
// singular (e.g. fewer than three distinct x values).
func FitPoly(x, y []float64) (PolyReg, error) {
	n := len(x)
	if n < 3 || n != len(y) {
		return PolyReg{}, ErrSingular
	}

	// Accumulate the moments of the normal equations XᵀX b = Xᵀy.
	var s0, s1, s2, s3, s4 float64
	var t0, t1, t2 float64
	for i := 0; i < n; i++ {
		xi := x[i]
		x2 := xi * xi
		s0++
		s1 += xi
		s2 += x2
		s3 += x2 * xi
		s4 += x2 * x2
		t0 += y[i]
		t1 += xi * y[i]
		t2 += x2 * y[i]
	}

	a := mat.NewDense(3, 3, []float64{
		s0, s1, s2,
		s1, s2, s3,
		s2, s3, s4,
	})
	b := mat.NewVecDense(3, []float64{t0, t1, t2})

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		return PolyReg{}, ErrSingular
	}
	return PolyReg{A0: coef.AtVec(0), A1: coef.AtVec(1), A2: coef.AtVec(2)}, nil
}

// Predict evaluates the polynomial at x.
func (p PolyReg) Predict(x float64) float64 {
	return p.A0 + p.A1*x + p.A2*x*x
}

// SlopeAt is the derivative of the polynomial at x.
func (p PolyReg) SlopeAt(x float64) float64 {
	return p.A1 + 2*p.A2*x
}
