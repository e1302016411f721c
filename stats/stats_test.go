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
	"testing"

	gostats "github.com/GaryBoone/GoStats/stats"
)

func different(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance
}

func TestFitLinExact(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 3, 5, 7, 9} // y = 1 + 2x

	l := FitLin(x, y)
	if different(l.Slope, 2, 1e-12) {
		t.Errorf("slope: have %g, want %g", l.Slope, 2.)
	}
	if different(l.Intercept, 1, 1e-12) {
		t.Errorf("intercept: have %g, want %g", l.Intercept, 1.)
	}
	if v := l.Predict(10); different(v, 21, 1e-12) {
		t.Errorf("predict: have %g, want %g", v, 21.)
	}
}

// FitLin should agree with an independent OLS implementation.
func TestFitLinCrossCheck(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	y := []float64{2.1, 2.8, 4.2, 4.9, 6.1, 6.8, 8.2, 8.9}

	slope, intercept, _, _, _, _ := gostats.LinearRegression(x, y)
	l := FitLin(x, y)
	if different(l.Slope, slope, 1e-9) {
		t.Errorf("slope: have %g, want %g", l.Slope, slope)
	}
	if different(l.Intercept, intercept, 1e-9) {
		t.Errorf("intercept: have %g, want %g", l.Intercept, intercept)
	}
}

func TestFitLinDegenerate(t *testing.T) {
	l := FitLin([]float64{2, 2, 2}, []float64{1, 2, 3})
	if l.Slope != 0 {
		t.Errorf("slope on constant x: have %g, want 0", l.Slope)
	}
	if different(l.Intercept, 2, 1e-12) {
		t.Errorf("intercept on constant x: have %g, want %g", l.Intercept, 2.)
	}
}

func TestFitPolyExact(t *testing.T) {
	// y = 2 − x + 0.5x²
	x := []float64{0, 1, 2, 3, 4, 5}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 2 - xi + 0.5*xi*xi
	}

	p, err := FitPoly(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if different(p.A0, 2, 1e-9) || different(p.A1, -1, 1e-9) || different(p.A2, 0.5, 1e-9) {
		t.Errorf("coefficients: have (%g, %g, %g), want (2, -1, 0.5)", p.A0, p.A1, p.A2)
	}
	if v := p.SlopeAt(2); different(v, 1, 1e-9) {
		t.Errorf("slope at 2: have %g, want %g", v, 1.)
	}
}

func TestFitPolySingular(t *testing.T) {
	if _, err := FitPoly([]float64{1, 1, 1, 1}, []float64{1, 2, 3, 4}); err == nil {
		t.Error("expected singular design matrix error")
	}
	if _, err := FitPoly([]float64{1, 2}, []float64{1, 2}); err == nil {
		t.Error("expected error for two points")
	}
}

func TestFitRobBasic(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 2, 3, 4} // y = x + 1

	m, err := FitRob(x, y, HuberK, IRLSMaxIter)
	if err != nil {
		t.Fatal(err)
	}
	if different(m.Slope, 1, 1e-6) {
		t.Errorf("slope: have %g, want %g", m.Slope, 1.)
	}
	if different(m.Intercept, 1, 1e-6) {
		t.Errorf("intercept: have %g, want %g", m.Intercept, 1.)
	}
}

// An outlier amid a clean linear trend should barely move the robust
// slope, while ordinary least squares is pulled far off.
func TestFitRobOutlier(t *testing.T) {
	var x, y []float64
	for i := 0; i < 50; i++ {
		x = append(x, float64(i))
		y = append(y, float64(i))
	}
	x = append(x, 100)
	y = append(y, 1000)

	m, err := FitRob(x, y, HuberK, IRLSMaxIter)
	if err != nil {
		t.Fatal(err)
	}
	if different(m.Slope, 1, 0.1) {
		t.Errorf("robust slope: have %g, want within 0.1 of 1", m.Slope)
	}

	ols := FitLin(x, y)
	if math.Abs(ols.Slope-1) < math.Abs(m.Slope-1) {
		t.Errorf("OLS slope %g closer to truth than robust slope %g", ols.Slope, m.Slope)
	}
}

func TestFitRobDegenerate(t *testing.T) {
	if _, err := FitRob([]float64{1, 2}, []float64{1, 2}, HuberK, IRLSMaxIter); err == nil {
		t.Error("expected error for two points")
	}
	if _, err := FitRob([]float64{3, 3, 3, 3}, []float64{1, 2, 3, 4}, HuberK, IRLSMaxIter); err == nil {
		t.Error("expected error for constant x")
	}
}

func TestPearson(t *testing.T) {
	x := []float64{0, 1, 2, 3}

	r, ok := Pearson(x, []float64{5, 6, 7, 8})
	if !ok || different(r, 1, 1e-12) {
		t.Errorf("perfect correlation: have %g (ok=%v), want 1", r, ok)
	}

	r, ok = Pearson(x, []float64{8, 7, 6, 5})
	if !ok || different(r, -1, 1e-12) {
		t.Errorf("perfect anticorrelation: have %g (ok=%v), want -1", r, ok)
	}

	if _, ok := Pearson(x, []float64{1, 1, 1, 1}); ok {
		t.Error("zero variance should not produce a correlation")
	}
	if _, ok := Pearson(x, []float64{1, 2}); ok {
		t.Error("mismatched lengths should not produce a correlation")
	}
	if _, ok := Pearson(nil, nil); ok {
		t.Error("empty input should not produce a correlation")
	}
}

func TestR2(t *testing.T) {
	y := []float64{1, 2, 3, 4}

	r2, ok := R2(y, y)
	if !ok || different(r2, 1, 1e-12) {
		t.Errorf("perfect predictions: have %g, want 1", r2)
	}

	if _, ok := R2([]float64{3, 3, 3}, []float64{1, 2, 3}); ok {
		t.Error("zero total variance should not produce an r2")
	}
	if _, ok := R2([]float64{1}, []float64{1}); ok {
		t.Error("single point should not produce an r2")
	}
}

func TestAdjustedR2(t *testing.T) {
	if v := AdjustedR2(0.9, 3, 2); v != 0.9 {
		t.Errorf("too few points: have %g, want unchanged 0.9", v)
	}
	want := 1 - (1-0.9)*9./8.
	if v := AdjustedR2(0.9, 10, 1); different(v, want, 1e-12) {
		t.Errorf("have %g, want %g", v, want)
	}
}

func TestRMSE(t *testing.T) {
	rmse, ok := RMSE([]float64{0, 0}, []float64{3, 4})
	want := math.Sqrt(25. / 2.)
	if !ok || different(rmse, want, 1e-12) {
		t.Errorf("have %g, want %g", rmse, want)
	}
}

func TestAICFromRSS(t *testing.T) {
	if v := AICFromRSS(0, 10, 2); !math.IsInf(v, 1) {
		t.Errorf("zero RSS: have %g, want +Inf", v)
	}
	if v := AICFromRSS(-1, 10, 2); !math.IsInf(v, 1) {
		t.Errorf("negative RSS: have %g, want +Inf", v)
	}
	want := 10*math.Log(5./10.) + 4
	if v := AICFromRSS(5, 10, 2); different(v, want, 1e-12) {
		t.Errorf("have %g, want %g", v, want)
	}
}

func TestTPValue(t *testing.T) {
	if p := TPValue(0, 10); different(p, 1, 1e-9) {
		t.Errorf("t=0: have %g, want 1", p)
	}
	if p := TPValue(100, 10); p > 1e-6 {
		t.Errorf("t=100: have %g, want < 1e-6", p)
	}
	if a, b := TPValue(2.5, 10), TPValue(-2.5, 10); different(a, b, 1e-12) {
		t.Errorf("two-sided symmetry: have %g and %g", a, b)
	}
}

func TestMAD(t *testing.T) {
	if v := MAD([]float64{1, 1, 1}); v != 0 {
		t.Errorf("constant input: have %g, want 0", v)
	}
	// median 3, deviations {2,1,0,1,2}, median deviation 1.
	if v := MAD([]float64{1, 2, 3, 4, 5}); different(v, 1.4826, 1e-12) {
		t.Errorf("have %g, want %g", v, 1.4826)
	}
}

func TestHuberWeight(t *testing.T) {
	if w := HuberWeight(0.5, 1); w != 1 {
		t.Errorf("inside bandwidth: have %g, want 1", w)
	}
	if w := HuberWeight(4, 1); different(w, 0.25, 1e-12) {
		t.Errorf("outside bandwidth: have %g, want 0.25", w)
	}
	if w := HuberWeight(-4, 1); different(w, 0.25, 1e-12) {
		t.Errorf("negative residual: have %g, want 0.25", w)
	}
}
