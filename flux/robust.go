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

const robustMinPoints = 3

// RobustFlux is a Huber IRLS linear fit, resistant to outliers in the
// concentration series. It defines no p-value.
type RobustFlux struct {
	Ch    gas.Channel
	Line  stats.RobReg
	Value float64 // flux [µmol m⁻² s⁻¹]

	R2Val, AdjR2Val        float64
	SigmaVal               float64
	AICVal, RMSEVal, CVVal float64
	Start, End             float64
}

// FitRobust fits a robust linear flux model to the calculation window.
func FitRobust(ch gas.Channel, x, y []float64, start, end, airTemperatureC, airPressureHPa float64, shape chamber.Shape) (*RobustFlux, error) {
	if len(x) != len(y) {
		return nil, errLengthMismatch(len(x), len(y))
	}
	if len(x) < robustMinPoints {
		return nil, errNotEnoughPoints(len(x), robustMinPoints)
	}

	x0 := x[0]
	xn := make([]float64, len(x))
	for i, xi := range x {
		xn[i] = xi - x0
	}

	line, err := stats.FitRob(xn, y, stats.HuberK, stats.IRLSMaxIter)
	if err != nil {
		return nil, &FitError{Kind: DegenerateX}
	}

	n := len(y)
	yHat := make([]float64, n)
	var rss float64
	for i, xi := range xn {
		yHat[i] = line.Predict(xi)
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

	adjR2 := stats.AdjustedR2(r2, n, 1)
	sigma := math.Sqrt(rss / (float64(n) - 2))
	if !isFinite(sigma) {
		return nil, &FitError{Kind: NonFiniteSigma}
	}
	aic := stats.AICFromRSS(rss, n, 2)

	f := UmolM2S(ch, line.Slope, airTemperatureC, airPressureHPa, shape)

	return &RobustFlux{
		Ch:       ch,
		Line:     line,
		Value:    f,
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

func (m *RobustFlux) Kind() Kind              { return RobLin }
func (m *RobustFlux) Channel() gas.Channel    { return m.Ch }
func (m *RobustFlux) Flux() float64           { return m.Value }
func (m *RobustFlux) R2() float64             { return m.R2Val }
func (m *RobustFlux) AdjR2() float64          { return m.AdjR2Val }
func (m *RobustFlux) Intercept() float64      { return m.Line.Intercept }
func (m *RobustFlux) Slope() float64          { return m.Line.Slope }
func (m *RobustFlux) PValue() (float64, bool) { return 0, false }
func (m *RobustFlux) Sigma() float64          { return m.SigmaVal }
func (m *RobustFlux) RMSE() float64           { return m.RMSEVal }
func (m *RobustFlux) CV() float64             { return m.CVVal }
func (m *RobustFlux) AIC() float64            { return m.AICVal }
func (m *RobustFlux) RangeStart() float64     { return m.Start }
func (m *RobustFlux) RangeEnd() float64       { return m.End }
func (m *RobustFlux) SetRange(s, e float64)   { m.Start, m.End = s, e }

// Predict evaluates the fitted line at an absolute epoch second.
func (m *RobustFlux) Predict(x float64) float64 {
	return m.Line.Predict(x - m.Start)
}
