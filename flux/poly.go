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
	"math"

	"github.com/fluxlab/chamberflux/chamber"
	"github.com/fluxlab/chamberflux/gas"
	"github.com/fluxlab/chamberflux/stats"
)

const polyMinPoints = 3

// PolyFlux is a quadratic fit; its reported slope is the derivative at
// the start of the calculation window. It defines no p-value.
type PolyFlux struct {
	Ch    gas.Channel
	Curve stats.PolyReg
	Value float64 // flux [µmol m⁻² s⁻¹]

	XOffset                float64
	R2Val, AdjR2Val        float64
	SigmaVal               float64
	AICVal, RMSEVal, CVVal float64
	Start, End             float64
}

// FitPoly fits a quadratic flux model to the calculation window.
func FitPoly(ch gas.Channel, x, y []float64, start, end, airTemperatureC, airPressureHPa float64, shape chamber.Shape) (*PolyFlux, error) {
	if len(x) != len(y) {
		return nil, errLengthMismatch(len(x), len(y))
	}
	if len(x) < polyMinPoints {
		return nil, errNotEnoughPoints(len(x), polyMinPoints)
	}

	x0 := x[0]
	xn := make([]float64, len(x))
	for i, xi := range x {
		xn[i] = xi - x0
	}

	curve, err := stats.FitPoly(xn, y)
	if err != nil {
		return nil, &FitError{Kind: StatError, Detail: err.Error()}
	}

	n := len(y)
	yHat := make([]float64, n)
	var rss float64
	for i, xi := range xn {
		yHat[i] = curve.Predict(xi)
		r := y[i] - yHat[i]
		rss += r * r
	}

	r2, _ := stats.R2(y, yHat)
	rmse, _ := stats.RMSE(y, yHat)
	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)
	cv := rmse / yMean

	const k = 2 // predictors: x and x²
	adjR2 := stats.AdjustedR2(r2, n, k)
	aic := stats.AICFromRSS(rss, n, k+1)
	sigma := math.Sqrt(rss / (float64(n) - k - 1))
	if !isFinite(sigma) {
		return nil, &FitError{Kind: NonFiniteSigma}
	}

	// Slope at the window start in normalized coordinates.
	slope := curve.SlopeAt(start - x0)
	f := UmolM2S(ch, slope, airTemperatureC, airPressureHPa, shape)

	return &PolyFlux{
		Ch:       ch,
		Curve:    curve,
		Value:    f,
		XOffset:  x0,
		R2Val:    r2,
		AdjR2Val: adjR2,
		SigmaVal: sigma,
		AICVal:   aic,
		RMSEVal:  rmse,
		CVVal:    cv,
		Start:    start,
		End:      end,
	}, nil
}

func (m *PolyFlux) Kind() Kind              { return Poly }
func (m *PolyFlux) Channel() gas.Channel    { return m.Ch }
func (m *PolyFlux) Flux() float64           { return m.Value }
func (m *PolyFlux) R2() float64             { return m.R2Val }
func (m *PolyFlux) AdjR2() float64          { return m.AdjR2Val }
func (m *PolyFlux) Intercept() float64      { return m.Curve.A0 }
func (m *PolyFlux) Slope() float64          { return m.Curve.A1 }
func (m *PolyFlux) PValue() (float64, bool) { return 0, false }
func (m *PolyFlux) Sigma() float64          { return m.SigmaVal }
func (m *PolyFlux) RMSE() float64           { return m.RMSEVal }
func (m *PolyFlux) CV() float64             { return m.CVVal }
func (m *PolyFlux) AIC() float64            { return m.AICVal }
func (m *PolyFlux) RangeStart() float64     { return m.Start }
func (m *PolyFlux) RangeEnd() float64       { return m.End }
func (m *PolyFlux) SetRange(s, e float64)   { m.Start, m.End = s, e }

// Predict evaluates the fitted curve at an absolute epoch second.
func (m *PolyFlux) Predict(x float64) float64 {
	return m.Curve.Predict(x - m.XOffset)
}
