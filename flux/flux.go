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

// Package flux fits regression models to a calculation window of
// chamber concentration data and converts the fitted slope to a gas
// flux across the chamber footprint. Three competing models share one
// contract: ordinary linear, Huber-robust linear, and quadratic
// polynomial.
package flux

import (
	"fmt"

	"github.com/fluxlab/chamberflux/chamber"
	"github.com/fluxlab/chamberflux/gas"
)

// Kind identifies which model produced a fit.
type Kind int

const (
	Linear Kind = iota + 1
	RobLin
	Poly
)

func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case RobLin:
		return "roblin"
	case Poly:
		return "poly"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinds lists every model kind in comparison order.
func Kinds() []Kind { return []Kind{Linear, Poly, RobLin} }

// Model is the contract every fitted flux model satisfies. The x
// values a model was fitted on are absolute epoch seconds; models
// normalize internally to x − x[0] before fitting.
type Model interface {
	// Kind is the model's tag.
	Kind() Kind
	// Channel is the instrument channel the fit belongs to.
	Channel() gas.Channel
	// Flux is the derived gas flux in µmol m⁻² s⁻¹.
	Flux() float64
	R2() float64
	AdjR2() float64
	// Intercept and Slope of the fitted curve at the window start.
	Intercept() float64
	Slope() float64
	// PValue reports the slope's two-sided t-test p-value; ok is
	// false for models that don't define one.
	PValue() (p float64, ok bool)
	Sigma() float64
	RMSE() float64
	CV() float64
	AIC() float64
	// Predict evaluates the fitted curve at an absolute epoch-second
	// x.
	Predict(x float64) float64
	RangeStart() float64
	RangeEnd() float64
	SetRange(start, end float64)
}

// Record pairs a fitted model with its per-model validity flag. The
// flag gates an individual fit without touching cycle-level validity.
type Record struct {
	Model   Model
	IsValid bool
}

// Physical constants of the flux formula.
const (
	gasConstant = 8.314 // Pa·m³/(mol·K)
	zeroCelsius = 273.15
)

// UmolM2S converts a regression slope in the channel's native unit per
// second to a flux in µmol m⁻² s⁻¹ given the air state inside the
// chamber and its geometry.
func UmolM2S(ch gas.Channel, slopePerS, airTemperatureC, airPressureHPa float64, shape chamber.Shape) float64 {
	pPa := airPressureHPa * 100
	tK := airTemperatureC + zeroCelsius

	slopePpmPerS := ch.SlopePpmPerS(slopePerS)

	// Ideal-gas molar concentration of air [mol/m³].
	molPerM3 := pPa / (gasConstant * tK)

	// ppm/s (µmol/mol/s) → mol/mol/s → mol/m³/s.
	dCdt := slopePpmPerS * 1e-6 * molPerM3

	fluxMol := dCdt * shape.AdjustedVolume() / shape.AreaM2()
	return fluxMol * 1e6
}

// MgM2S converts a slope to a flux in mg m⁻² s⁻¹.
func MgM2S(ch gas.Channel, slopePerS, airTemperatureC, airPressureHPa float64, shape chamber.Shape) float64 {
	umol := UmolM2S(ch, slopePerS, airTemperatureC, airPressureHPa, shape)
	// 1 µmol = molMass·1e-3 mg
	return umol * ch.Gas.MolMass() * 1e-3
}
