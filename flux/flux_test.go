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

package flux

import (
	"errors"
	"math"
	"testing"

	"github.com/fluxlab/chamberflux/chamber"
	"github.com/fluxlab/chamberflux/gas"
)

func different(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance
}

var testChannel = gas.Channel{Gas: gas.CH4, Unit: gas.Ppb, Label: "ch4"}

func ramp(n int, intercept, slope float64) (x, y []float64) {
	x = make([]float64, n)
	y = make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		// A hint of noise keeps residuals from collapsing to zero.
		y[i] = intercept + slope*float64(i) + 1e-6*math.Sin(float64(i))
	}
	return x, y
}

func TestFitLinearExactRamp(t *testing.T) {
	x, y := ramp(601, 400, 0.1)
	shape := chamber.Box{WidthM: 1, LengthM: 1, HeightMVal: 1}

	m, err := FitLinear(testChannel, x, y, x[0], x[len(x)-1], 20, 1013.25, shape)
	if err != nil {
		t.Fatal(err)
	}
	if different(m.Slope(), 0.1, 1e-8) {
		t.Errorf("slope: have %g, want %g", m.Slope(), 0.1)
	}
	if different(m.Intercept(), 400, 1e-4) {
		t.Errorf("intercept: have %g, want %g", m.Intercept(), 400.)
	}
	if different(m.R2(), 1, 1e-9) {
		t.Errorf("r2: have %g, want 1", m.R2())
	}
	p, ok := m.PValue()
	if !ok || p > 1e-6 {
		t.Errorf("p-value: have %g (ok=%v), want < 1e-6", p, ok)
	}

	// 0.1 ppb/s in a unit box at 20 °C and 1013.25 hPa.
	slopePpm := 0.1 / 1000
	molPerM3 := 101325. / (8.314 * 293.15)
	want := slopePpm * 1e-6 * molPerM3 * 1e6
	if different(m.Flux(), want, 1e-9) {
		t.Errorf("flux: have %g, want %g", m.Flux(), want)
	}

	if v := m.Predict(x[10]); different(v, 401, 1e-4) {
		t.Errorf("predict: have %g, want %g", v, 401.)
	}
}

func TestFitLinearGuards(t *testing.T) {
	shape := chamber.Default()

	_, err := FitLinear(testChannel, []float64{1, 2}, []float64{1}, 0, 1, 20, 1000, shape)
	var fitErr *FitError
	if !errors.As(err, &fitErr) || fitErr.Kind != LengthMismatch {
		t.Errorf("length mismatch: have %v", err)
	}

	_, err = FitLinear(testChannel, []float64{1, 2}, []float64{1, 2}, 0, 1, 20, 1000, shape)
	if !errors.As(err, &fitErr) || fitErr.Kind != NotEnoughPoints {
		t.Errorf("two points: have %v", err)
	}

	_, err = FitLinear(testChannel, []float64{5, 5, 5, 5}, []float64{1, 2, 3, 4}, 5, 5, 20, 1000, shape)
	if !errors.As(err, &fitErr) || fitErr.Kind != DegenerateX {
		t.Errorf("constant x: have %v", err)
	}
}

func TestFitPolyExactQuadratic(t *testing.T) {
	n := 200
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xi := float64(i)
		x[i] = 1000 + xi // absolute time offset exercises normalization
		y[i] = 400 + 0.2*xi - 0.001*xi*xi
	}
	shape := chamber.Default()

	m, err := FitPoly(testChannel, x, y, x[0], x[n-1], 20, 1013.25, shape)
	if err != nil {
		t.Fatal(err)
	}
	if different(m.Curve.A0, 400, 1e-6) || different(m.Curve.A1, 0.2, 1e-8) || different(m.Curve.A2, -0.001, 1e-10) {
		t.Errorf("coefficients: have (%g, %g, %g)", m.Curve.A0, m.Curve.A1, m.Curve.A2)
	}
	// Reported slope is the derivative at the window start.
	if different(m.Slope(), 0.2, 1e-8) {
		t.Errorf("slope: have %g, want %g", m.Slope(), 0.2)
	}
	if _, ok := m.PValue(); ok {
		t.Error("polynomial model should not define a p-value")
	}
	if different(m.R2(), 1, 1e-9) {
		t.Errorf("r2: have %g, want 1", m.R2())
	}
}

func TestFitRobustOutlier(t *testing.T) {
	x, y := ramp(100, 400, 0.1)
	y[50] = 10000 // spike
	shape := chamber.Default()

	rob, err := FitRobust(testChannel, x, y, x[0], x[len(x)-1], 20, 1013.25, shape)
	if err != nil {
		t.Fatal(err)
	}
	if different(rob.Slope(), 0.1, 0.01) {
		t.Errorf("robust slope: have %g, want within 10%% of 0.1", rob.Slope())
	}

	lin, err := FitLinear(testChannel, x, y, x[0], x[len(x)-1], 20, 1013.25, shape)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(lin.Slope()-0.1) < math.Abs(rob.Slope()-0.1) {
		t.Errorf("linear slope %g beat robust slope %g on outlier data", lin.Slope(), rob.Slope())
	}
}

func TestChamberHeightScalesFlux(t *testing.T) {
	x, y := ramp(100, 400, 0.1)
	tall := chamber.Box{WidthM: 1, LengthM: 1, HeightMVal: 2}
	short := chamber.Box{WidthM: 1, LengthM: 1, HeightMVal: 1}

	a, err := FitLinear(testChannel, x, y, x[0], x[len(x)-1], 20, 1013.25, tall)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FitLinear(testChannel, x, y, x[0], x[len(x)-1], 20, 1013.25, short)
	if err != nil {
		t.Fatal(err)
	}
	if different(a.Flux(), 2*b.Flux(), 1e-12) {
		t.Errorf("doubling headspace should double flux: have %g and %g", a.Flux(), b.Flux())
	}
}

func TestUnitConversions(t *testing.T) {
	const base = 2.0 // µmol/m2/s
	cases := []struct {
		unit Unit
		want float64
	}{
		{UmolPerM2S, 2},
		{UmolPerM2H, 7200},
		{MmolPerM2S, 0.002},
		{MmolPerM2H, 7.2},
		{MgPerM2S, 2 * gas.CH4.MolMass() / 1000},
		{MgPerM2H, 2 * gas.CH4.MolMass() / 1000 * 3600},
	}
	for _, c := range cases {
		if v := c.unit.Convert(base, gas.CH4); different(v, c.want, 1e-9) {
			t.Errorf("%s: have %g, want %g", c.unit, v, c.want)
		}
	}

	for _, u := range Units() {
		parsed, err := ParseUnit(u.String())
		if err != nil || parsed != u {
			t.Errorf("parse %s: have %v, %v", u, parsed, err)
		}
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{Linear: "linear", RobLin: "roblin", Poly: "poly"}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("have %s, want %s", kind.String(), want)
		}
	}
}
