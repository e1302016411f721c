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

const linearMinPoints = 3

// LinearFlux is an ordinary least-squares fit of concentration against
// time, with slope significance from a two-sided Student-t test.
type LinearFlux struct {
	Ch    gas.Channel
	Line  stats.LinReg
	Value float64 // flux [µmol m⁻² s⁻¹]

	R2Val, AdjR2Val        float64
	PVal, SigmaVal         float64
	AICVal, RMSEVal, CVVal float64
	Start, End             float64
}

// FitLinear fits a linear flux model to the calculation window. x are
// absolute epoch seconds, y concentrations in the channel's native
// unit.
func FitLinear(ch gas.Channel, x, y []float64, start, end, airTemperatureC, airPressureHPa float64, shape chamber.Shape) (*LinearFlux, error) {
	if len(x) != len(y) {
		return nil, errLengthMismatch(len(x), len(y))
	}
	if len(x) < linearMinPoints {
		return nil, errNotEnoughPoints(len(x), linearMinPoints)
	}

	x0 := x[0]
	xn := make([]float64, len(x))
	for i, xi := range x {
		xn[i] = xi - x0
	}
	n := float64(len(x))

	line := stats.FitLin(xn, y)

	yHat := make([]float64, len(y))
	var rss float64
	for i, xi := range xn {
		yHat[i] = line.Predict(xi)
		r := y[i] - yHat[i]
		rss += r * r
	}

	rmse, _ := stats.RMSE(y, yHat)
	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= n
	cv := rmse / yMean

	var xMean float64
	for _, xi := range xn {
		xMean += xi
	}
	xMean /= n
	var sxx float64
	for _, xi := range xn {
		d := xi - xMean
		sxx += d * d
	}
	if !isFinite(sxx) || sxx <= epsilon {
		return nil, &FitError{Kind: DegenerateX}
	}

	sigma := math.Sqrt(rss / (n - 2))
	if !isFinite(sigma) {
		return nil, &FitError{Kind: NonFiniteSigma}
	}

	seSlope := sigma / math.Sqrt(sxx)
	if !isFinite(seSlope) || seSlope <= 0 {
		return nil, &FitError{Kind: NonFiniteSE}
	}

	tStat := line.Slope / seSlope
	if !isFinite(tStat) {
		return nil, &FitError{Kind: NonFiniteTStat}
	}
	pValue := stats.TPValue(tStat, n-2)

	aic := stats.AICFromRSS(rss, len(y), 2)
	r2, _ := stats.R2(y, yHat)
	adjR2 := stats.AdjustedR2(r2, len(y), 1)

	f := UmolM2S(ch, line.Slope, airTemperatureC, airPressureHPa, shape)

	return &LinearFlux{
		Ch:       ch,
		Line:     line,
		Value:    f,
		R2Val:    r2,
		AdjR2Val: adjR2,
		PVal:     pValue,
		SigmaVal: sigma,
		AICVal:   aic,
		RMSEVal:  rmse,
		CVVal:    cv,
		Start:    start,
		End:      end,
	}, nil
}

func (m *LinearFlux) Kind() Kind              { return Linear }
func (m *LinearFlux) Channel() gas.Channel    { return m.Ch }
func (m *LinearFlux) Flux() float64           { return m.Value }
func (m *LinearFlux) R2() float64             { return m.R2Val }
func (m *LinearFlux) AdjR2() float64          { return m.AdjR2Val }
func (m *LinearFlux) Intercept() float64      { return m.Line.Intercept }
func (m *LinearFlux) Slope() float64          { return m.Line.Slope }
func (m *LinearFlux) PValue() (float64, bool) { return m.PVal, true }
func (m *LinearFlux) Sigma() float64          { return m.SigmaVal }
func (m *LinearFlux) RMSE() float64           { return m.RMSEVal }
func (m *LinearFlux) CV() float64             { return m.CVVal }
func (m *LinearFlux) AIC() float64            { return m.AICVal }
func (m *LinearFlux) RangeStart() float64     { return m.Start }
func (m *LinearFlux) RangeEnd() float64       { return m.End }
func (m *LinearFlux) SetRange(s, e float64)   { m.Start, m.End = s, e }

// Predict evaluates the fitted line at an absolute epoch second.
func (m *LinearFlux) Predict(x float64) float64 {
	return m.Line.Predict(x - m.Start)
}

const epsilon = 2.220446049250313e-16

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
